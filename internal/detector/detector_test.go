package detector

import (
	"image"
	"image/color"
	"testing"

	"screenflow.dev/screenflow-go/internal/element"
	"screenflow.dev/screenflow-go/internal/pages"
)

var (
	testRes = element.Resolution{Width: 100, Height: 100}
	red     = color.RGBA{255, 0, 0, 255}
)

func frame(marks map[image.Point]color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.SetRGBA(x, y, color.RGBA{240, 240, 240, 255})
		}
	}
	for p, c := range marks {
		img.SetRGBA(p.X, p.Y, c)
	}
	return img
}

// loginLobbyConfig: Login is identified by a red pixel at (10, 10), Lobby
// by its absence.
func loginLobbyConfig(t *testing.T) *pages.PageConfiguration {
	t.Helper()
	m := pages.NewManager("test-app", nil)

	marker, err := element.NewPixelColorElement("login marker", testRes, element.PixelColorPayload{
		Samples:  []element.PixelSample{{X: 10, Y: 10, Color: red, Tolerance: 10}},
		MatchAll: true,
	})
	if err != nil {
		t.Fatalf("element: %v", err)
	}
	m.AddElement(marker)

	login, _ := m.AddPage("Login")
	lobby, _ := m.AddPage("Lobby")
	m.AddIdentifier(login.ID, marker.ID(), true)
	m.AddIdentifier(lobby.ID, marker.ID(), false)

	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return m.Snapshot()
}

func TestDetectLoginAndLobby(t *testing.T) {
	cfg := loginLobbyConfig(t)
	det := New(element.NewRegistry(), nil)

	loginScreen := frame(map[image.Point]color.RGBA{{X: 10, Y: 10}: red})
	result, err := det.Detect(loginScreen, cfg)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if result == nil || result.Page.Name != "Login" {
		t.Fatalf("result = %+v, want Login", result)
	}
	if result.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", result.Confidence)
	}

	lobbyScreen := frame(nil)
	result, err = det.Detect(lobbyScreen, cfg)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if result == nil || result.Page.Name != "Lobby" {
		t.Fatalf("result = %+v, want Lobby", result)
	}
}

func TestDetectIsDeterministic(t *testing.T) {
	cfg := loginLobbyConfig(t)
	det := New(element.NewRegistry(), nil)
	screen := frame(map[image.Point]color.RGBA{{X: 10, Y: 10}: red})

	first, err := det.Detect(screen, cfg)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := det.Detect(screen, cfg)
		if err != nil {
			t.Fatalf("detect: %v", err)
		}
		if again.Page.ID != first.Page.ID || again.Confidence != first.Confidence {
			t.Fatalf("run %d: result changed: %+v vs %+v", i, again, first)
		}
	}
}

func TestDetectDeclarationOrderTiebreak(t *testing.T) {
	// Hand-built configuration that bypasses save-time validation: both
	// pages hold on the same screen. Declaration order must decide.
	marker, err := element.NewPixelColorElement("marker", testRes, element.PixelColorPayload{
		Samples:  []element.PixelSample{{X: 10, Y: 10, Color: red, Tolerance: 10}},
		MatchAll: true,
	})
	if err != nil {
		t.Fatalf("element: %v", err)
	}

	cfg := pages.NewPageConfiguration("ambiguous")
	cfg.Elements[marker.ID()] = marker
	cfg.Pages = []*pages.Page{
		{ID: "p1", Name: "First", Identifiers: []pages.IdentifierBinding{{ElementID: marker.ID(), ExpectPresent: true}}},
		{ID: "p2", Name: "Second", Identifiers: []pages.IdentifierBinding{{ElementID: marker.ID(), ExpectPresent: true}}},
	}

	det := New(element.NewRegistry(), nil)
	screen := frame(map[image.Point]color.RGBA{{X: 10, Y: 10}: red})

	for i := 0; i < 3; i++ {
		result, err := det.Detect(screen, cfg)
		if err != nil {
			t.Fatalf("detect: %v", err)
		}
		if result.Page.Name != "First" {
			t.Fatalf("winner = %q, want First (declaration order)", result.Page.Name)
		}
	}
}

func TestDetectNoMatchReturnsNil(t *testing.T) {
	marker, err := element.NewPixelColorElement("marker", testRes, element.PixelColorPayload{
		Samples:  []element.PixelSample{{X: 10, Y: 10, Color: red, Tolerance: 0}},
		MatchAll: true,
	})
	if err != nil {
		t.Fatalf("element: %v", err)
	}

	cfg := pages.NewPageConfiguration("one-page")
	cfg.Elements[marker.ID()] = marker
	cfg.Pages = []*pages.Page{
		{ID: "p1", Name: "Only", Identifiers: []pages.IdentifierBinding{{ElementID: marker.ID(), ExpectPresent: true}}},
	}

	det := New(element.NewRegistry(), nil)
	result, err := det.Detect(frame(nil), cfg)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil when nothing matches", result)
	}
}

func TestDetectResolutionMismatchNotFatal(t *testing.T) {
	cfg := loginLobbyConfig(t)
	det := New(element.NewRegistry(), nil)

	// Elements were captured at 100x100; a differently sized screen makes
	// every page unmatched rather than erroring the sweep.
	small := image.NewRGBA(image.Rect(0, 0, 50, 50))
	result, err := det.Detect(small, cfg)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil on mismatched resolution", result)
	}
}
