package pages

import (
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"screenflow.dev/screenflow-go/internal/element"
)

var (
	testRes = element.Resolution{Width: 100, Height: 100}
	red     = color.RGBA{255, 0, 0, 255}
	blue    = color.RGBA{0, 0, 255, 255}
)

func pixelAt(t *testing.T, name string, x, y int, c color.RGBA) *element.VisualElement {
	t.Helper()
	el, err := element.NewPixelColorElement(name, testRes, element.PixelColorPayload{
		Samples:  []element.PixelSample{{X: x, Y: y, Color: c, Tolerance: 10}},
		MatchAll: true,
	})
	if err != nil {
		t.Fatalf("failed to create element %s: %v", name, err)
	}
	return el
}

// loginLobbyManager builds the canonical two-page setup: Login identified by
// a red pixel, Lobby identified by that same pixel being absent.
func loginLobbyManager(t *testing.T) (*Manager, *element.VisualElement) {
	t.Helper()
	m := NewManager("test-app", nil)

	marker := pixelAt(t, "login marker", 10, 10, red)
	if err := m.AddElement(marker); err != nil {
		t.Fatalf("add element: %v", err)
	}

	login, err := m.AddPage("Login")
	if err != nil {
		t.Fatalf("add page: %v", err)
	}
	lobby, err := m.AddPage("Lobby")
	if err != nil {
		t.Fatalf("add page: %v", err)
	}

	if err := m.AddIdentifier(login.ID, marker.ID(), true); err != nil {
		t.Fatalf("add identifier: %v", err)
	}
	if err := m.AddIdentifier(lobby.ID, marker.ID(), false); err != nil {
		t.Fatalf("add identifier: %v", err)
	}
	return m, marker
}

func TestValidateNegativeIdentifierDisambiguates(t *testing.T) {
	m, _ := loginLobbyManager(t)
	if err := m.Validate(); err != nil {
		t.Errorf("present/absent of the same element should validate, got %v", err)
	}
}

func TestValidateRejectsAmbiguousPages(t *testing.T) {
	m := NewManager("test-app", nil)

	a := pixelAt(t, "a", 10, 10, red)
	b := pixelAt(t, "b", 50, 50, blue)
	m.AddElement(a)
	m.AddElement(b)

	pageA, _ := m.AddPage("A")
	pageB, _ := m.AddPage("B")
	m.AddIdentifier(pageA.ID, a.ID(), true)
	m.AddIdentifier(pageB.ID, b.ID(), true)

	// One screen with red at (10,10) and blue at (50,50) satisfies both.
	err := m.Validate()
	if !errors.Is(err, ErrAmbiguousPageConfiguration) {
		t.Fatalf("err = %v, want ErrAmbiguousPageConfiguration", err)
	}
}

func TestValidateAcceptsConflictingColors(t *testing.T) {
	m := NewManager("test-app", nil)

	// Same coordinate, colors too far apart to coexist.
	a := pixelAt(t, "a", 10, 10, red)
	b := pixelAt(t, "b", 10, 10, blue)
	m.AddElement(a)
	m.AddElement(b)

	pageA, _ := m.AddPage("A")
	pageB, _ := m.AddPage("B")
	m.AddIdentifier(pageA.ID, a.ID(), true)
	m.AddIdentifier(pageB.ID, b.ID(), true)

	if err := m.Validate(); err != nil {
		t.Errorf("mutually exclusive colors at one coordinate should validate, got %v", err)
	}
}

func TestValidateRequiresIdentifiers(t *testing.T) {
	m := NewManager("test-app", nil)
	if _, err := m.AddPage("Empty"); err != nil {
		t.Fatalf("add page: %v", err)
	}
	if err := m.Validate(); err == nil {
		t.Error("a page with no identifiers should fail validation")
	}
}

func TestMutationsFailClosed(t *testing.T) {
	m, marker := loginLobbyManager(t)

	// The marker is referenced by both pages.
	if err := m.RemoveElement(marker.ID()); err == nil {
		t.Error("removing a referenced element should fail")
	}
	if _, ok := m.Snapshot().Element(marker.ID()); !ok {
		t.Error("failed removal must leave the element in place")
	}

	if err := m.AddIdentifier("no-such-page", marker.ID(), true); err == nil {
		t.Error("identifier on an unknown page should fail")
	}
	if _, err := m.AddPage("Login"); err == nil {
		t.Error("duplicate page name should fail")
	}

	login, _ := m.Snapshot().PageByName("Login")
	if _, err := m.AddTransition(login.ID, "no-such-page", "start", 0, nil); err == nil {
		t.Error("transition to an unknown page should fail")
	}
}

func TestTransitionRequiresRole(t *testing.T) {
	m, marker := loginLobbyManager(t)
	cfg := m.Snapshot()
	login, _ := cfg.PageByName("Login")
	lobby, _ := cfg.PageByName("Lobby")

	if _, err := m.AddTransition(login.ID, lobby.ID, "start", time.Second, nil); err == nil {
		t.Fatal("transition should fail before the role is bound")
	}

	if err := m.SetInteractive(login.ID, "start", marker.ID()); err != nil {
		t.Fatalf("set interactive: %v", err)
	}
	if _, err := m.AddTransition(login.ID, lobby.ID, "start", time.Second, nil); err != nil {
		t.Fatalf("transition after binding the role: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	m, _ := loginLobbyManager(t)
	snap := m.Snapshot()

	extra := pixelAt(t, "late", 80, 80, blue)
	if err := m.AddElement(extra); err != nil {
		t.Fatalf("add element: %v", err)
	}

	if _, ok := snap.Element(extra.ID()); ok {
		t.Error("snapshot taken earlier must not see later mutations")
	}
}

func TestFindPath(t *testing.T) {
	c := NewPageConfiguration("nav")
	for _, id := range []string{"a", "b", "c", "d"} {
		c.Pages = append(c.Pages, &Page{ID: id, Name: id})
	}
	c.Transitions = []*Transition{
		{ID: "t1", SourcePageID: "a", TargetPageID: "b"},
		{ID: "t2", SourcePageID: "b", TargetPageID: "c"},
		{ID: "t3", SourcePageID: "a", TargetPageID: "d"},
	}

	path := c.FindPath("a", "c")
	want := []string{"a", "b", "c"}
	if len(path) != len(want) {
		t.Fatalf("path = %v, want %v", path, want)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("path = %v, want %v", path, want)
		}
	}

	if got := c.FindPath("d", "c"); got != nil {
		t.Errorf("no path exists from d to c, got %v", got)
	}
	if got := c.FindPath("b", "b"); len(got) != 1 || got[0] != "b" {
		t.Errorf("self path = %v, want [b]", got)
	}
}

func testImagePattern(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 17 % 256), uint8(y * 31 % 256), 90, 255})
		}
	}
	return img
}

func TestValidateRejectsOverlappingConsistentTemplates(t *testing.T) {
	m := NewManager("test-app", nil)

	pattern := testImagePattern(20, 20)
	a, err := element.NewImageRegionElement("a", testRes, image.Point{X: 10, Y: 10},
		element.ImageRegionPayload{Template: pattern, Threshold: 0.9})
	if err != nil {
		t.Fatalf("element a: %v", err)
	}
	// Same template at the same spot under another name: both pages could
	// be satisfied by one screen.
	b, err := element.NewImageRegionElement("b", testRes, image.Point{X: 10, Y: 10},
		element.ImageRegionPayload{Template: pattern, Threshold: 0.9})
	if err != nil {
		t.Fatalf("element b: %v", err)
	}

	m.AddElement(a)
	m.AddElement(b)
	pageA, _ := m.AddPage("A")
	pageB, _ := m.AddPage("B")
	m.AddIdentifier(pageA.ID, a.ID(), true)
	m.AddIdentifier(pageB.ID, b.ID(), true)

	if err := m.Validate(); !errors.Is(err, ErrAmbiguousPageConfiguration) {
		t.Errorf("err = %v, want ErrAmbiguousPageConfiguration", err)
	}
}
