package workflow

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"screenflow.dev/screenflow-go/internal/detector"
	"screenflow.dev/screenflow-go/internal/element"
	"screenflow.dev/screenflow-go/internal/pages"
	"screenflow.dev/screenflow-go/internal/screen"
)

var green = color.RGBA{0, 255, 0, 255}

// countingInjector records every injected click.
type countingInjector struct {
	clicks int
}

func (c *countingInjector) Click(x, y int) error { c.clicks++; return nil }
func (c *countingInjector) Move(x, y int) error  { return nil }

// countingSource serves one fixed frame and counts captures.
type countingSource struct {
	frame *image.RGBA
	calls int
}

func (s *countingSource) Capture() (*image.RGBA, error) {
	s.calls++
	return s.frame, nil
}

func (s *countingSource) Dimensions() (int, int) {
	b := s.frame.Bounds()
	return b.Dx(), b.Dy()
}

// clickTestConfig extends the canonical two-page setup with an "ok" button
// bound on Login. The button pixel is green at (30, 30) and, in these tests,
// drawn on every screen regardless of which page is showing.
func clickTestConfig(t *testing.T) *pages.PageConfiguration {
	t.Helper()
	m := pages.NewManager("test-app", nil)

	marker, err := element.NewPixelColorElement("login marker", testRes, element.PixelColorPayload{
		Samples:  []element.PixelSample{{X: 10, Y: 10, Color: red, Tolerance: 10}},
		MatchAll: true,
	})
	if err != nil {
		t.Fatalf("marker: %v", err)
	}
	okButton, err := element.NewPixelColorElement("ok button", testRes, element.PixelColorPayload{
		Samples:  []element.PixelSample{{X: 30, Y: 30, Color: green, Tolerance: 10}},
		MatchAll: true,
	})
	if err != nil {
		t.Fatalf("ok button: %v", err)
	}
	m.AddElement(marker)
	m.AddElement(okButton)

	login, _ := m.AddPage("Login")
	lobby, _ := m.AddPage("Lobby")
	m.AddIdentifier(login.ID, marker.ID(), true)
	m.AddIdentifier(lobby.ID, marker.ID(), false)
	if err := m.SetInteractive(login.ID, "ok", okButton.ID()); err != nil {
		t.Fatalf("set interactive: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return m.Snapshot()
}

func clickRuntime(t *testing.T, cfg *pages.PageConfiguration, injector screen.Injector, frames ...*image.RGBA) *Runtime {
	t.Helper()
	svc := screen.NewService(screen.NewReplaySource(frames...), injector).WithCacheDuration(0)
	registry := element.NewRegistry()
	rt := NewRuntime(svc, registry, detector.New(registry, nil), cfg)
	rt.PollInterval = 10 * time.Millisecond
	rt.SettleDelay = 0
	return rt
}

func TestClickElementRequiresDetectedPage(t *testing.T) {
	cfg := clickTestConfig(t)

	// The button is visible but the Login marker never appears: the screen
	// is showing Lobby, so no input may be injected.
	lobbyWithButton := frame(false)
	lobbyWithButton.SetRGBA(30, 30, green)

	injector := &countingInjector{}
	rt := clickRuntime(t, cfg, injector, lobbyWithButton)

	wf := &Workflow{
		Name:  "premature-click",
		Steps: []StepDefinition{&ClickElement{Page: "Login", Role: "ok", Timeout: 1}},
	}
	report, err := NewExecutor(nil, nil).Run(context.Background(), rt, wf)
	if err == nil {
		t.Fatal("expected failure: the button matches but the page is wrong")
	}
	if !errors.Is(err, detector.ErrPageNotDetected) {
		t.Errorf("err = %v, want ErrPageNotDetected", err)
	}
	if report.FailureKind != FailurePageNotDetected {
		t.Errorf("failure kind = %q, want %q", report.FailureKind, FailurePageNotDetected)
	}
	if injector.clicks != 0 {
		t.Errorf("clicks = %d, want 0 (no input on the wrong page)", injector.clicks)
	}
}

func TestClickElementClicksOnDetectedPage(t *testing.T) {
	cfg := clickTestConfig(t)

	loginWithButton := frame(true)
	loginWithButton.SetRGBA(30, 30, green)

	injector := &countingInjector{}
	rt := clickRuntime(t, cfg, injector, loginWithButton)

	wf := &Workflow{
		Name:  "confirmed-click",
		Steps: []StepDefinition{&ClickElement{Page: "Login", Role: "ok", Timeout: 1}},
	}
	report, err := NewExecutor(nil, nil).Run(context.Background(), rt, wf)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !report.Succeeded || report.StepsCompleted != 1 {
		t.Fatalf("report = %+v, want 1 completed step", report)
	}
	if injector.clicks != 1 {
		t.Errorf("clicks = %d, want 1", injector.clicks)
	}
}

func TestWaitForElementsReusesCachedFrame(t *testing.T) {
	cfg := loginLobbyConfig(t)

	src := &countingSource{frame: frame(false)}
	svc := screen.NewService(src, screen.NullInjector{}).WithCacheDuration(time.Minute)
	registry := element.NewRegistry()
	rt := NewRuntime(svc, registry, detector.New(registry, nil), cfg)
	rt.PollInterval = time.Millisecond

	marker, ok := findElementByName(cfg, "login marker")
	if !ok {
		t.Fatal("login marker not found")
	}

	err := rt.WaitForElements(context.Background(), []string{marker.ID()}, 50*time.Millisecond)
	if !errors.Is(err, ErrActionNotConfirmed) {
		t.Fatalf("err = %v, want ErrActionNotConfirmed", err)
	}
	if src.calls != 1 {
		t.Errorf("captures = %d, want 1 (polls within the cache window reuse the frame)", src.calls)
	}
}
