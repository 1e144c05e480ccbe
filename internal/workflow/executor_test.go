package workflow

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"
	"time"

	"screenflow.dev/screenflow-go/internal/detector"
	"screenflow.dev/screenflow-go/internal/element"
	"screenflow.dev/screenflow-go/internal/events"
	"screenflow.dev/screenflow-go/internal/pages"
	"screenflow.dev/screenflow-go/internal/screen"
)

var (
	testRes = element.Resolution{Width: 100, Height: 100}
	red     = color.RGBA{255, 0, 0, 255}
)

func frame(withMarker bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.SetRGBA(x, y, color.RGBA{240, 240, 240, 255})
		}
	}
	if withMarker {
		img.SetRGBA(10, 10, red)
	}
	return img
}

// loginLobbyConfig wires the canonical two-page application: Login shows a
// red marker at (10, 10) which doubles as the start button; Lobby is the
// marker's absence.
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
	m.SetInteractive(login.ID, "start", marker.ID())
	if _, err := m.AddTransition(login.ID, lobby.ID, "start", 0, nil); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return m.Snapshot()
}

func newTestRuntime(t *testing.T, cfg *pages.PageConfiguration, frames ...*image.RGBA) *Runtime {
	t.Helper()
	source := screen.NewReplaySource(frames...)
	svc := screen.NewService(source, screen.NullInjector{}).WithCacheDuration(0)
	registry := element.NewRegistry()
	det := detector.New(registry, nil)

	rt := NewRuntime(svc, registry, det, cfg)
	rt.PollInterval = 10 * time.Millisecond
	rt.SettleDelay = 0
	return rt
}

func TestWaitForPageTimeoutBound(t *testing.T) {
	cfg := loginLobbyConfig(t)
	// Login never appears: every frame is the lobby.
	rt := newTestRuntime(t, cfg, frame(false))

	start := time.Now()
	_, err := rt.WaitForPage(context.Background(), "Login", 300*time.Millisecond)
	elapsed := time.Since(start)

	if !errors.Is(err, detector.ErrPageNotDetected) {
		t.Fatalf("err = %v, want ErrPageNotDetected", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("wait took %v, must return promptly after the timeout", elapsed)
	}
}

func TestExecutorEndToEnd(t *testing.T) {
	cfg := loginLobbyConfig(t)

	// Three login frames cover detection, the transition's source check
	// and the click; after the click the lobby appears.
	rt := newTestRuntime(t, cfg,
		frame(true), frame(true), frame(true), frame(false))

	wf, err := Parse([]byte(`
name: login-flow
steps:
  - type: wait_for_page
    page: Login
    timeout: 2
  - type: transition
    from: Login
    to: Lobby
    timeout: 2
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	bus := events.NewEventBus(16)
	defer bus.Stop()
	completed := make(chan events.Event, 1)
	bus.Subscribe(events.EventTypeRunCompleted, func(e events.Event) { completed <- e })

	executor := NewExecutor(bus, nil)
	report, err := executor.Run(context.Background(), rt, wf)
	if err != nil {
		t.Fatalf("run failed: %v (report %+v)", err, report)
	}
	if !report.Succeeded || report.StepsCompleted != 2 {
		t.Fatalf("report = %+v, want 2 completed steps", report)
	}

	select {
	case e := <-completed:
		if e.Data["succeeded"] != true {
			t.Errorf("run completed event = %v", e.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("run completed event not published")
	}
}

func TestExecutorReportsPageNotDetected(t *testing.T) {
	cfg := loginLobbyConfig(t)
	rt := newTestRuntime(t, cfg, frame(false))

	wf := &Workflow{
		Name:  "never",
		Steps: []StepDefinition{&WaitForPage{Page: "Login", Timeout: 1}},
	}

	executor := NewExecutor(nil, nil)
	report, err := executor.Run(context.Background(), rt, wf)
	if err == nil {
		t.Fatal("expected run failure")
	}
	if report.Succeeded || report.StepsCompleted != 0 {
		t.Errorf("report = %+v", report)
	}
	if report.FailureKind != FailurePageNotDetected {
		t.Errorf("failure kind = %q, want %q", report.FailureKind, FailurePageNotDetected)
	}
	if report.FailedStep == "" {
		t.Error("failed step not recorded")
	}
}

func TestExecutorHonorsCancellation(t *testing.T) {
	cfg := loginLobbyConfig(t)
	rt := newTestRuntime(t, cfg, frame(false))

	wf := &Workflow{
		Name:  "cancelled",
		Steps: []StepDefinition{&WaitForPage{Page: "Login", Timeout: 30}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	report, err := NewExecutor(nil, nil).Run(ctx, rt, wf)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("cancellation not honored promptly")
	}
	if report.FailureKind != FailureCancelled {
		t.Errorf("failure kind = %q, want %q", report.FailureKind, FailureCancelled)
	}
}

func TestBuilderRetries(t *testing.T) {
	builder := NewBuilder()
	attempts := 0
	builder.steps = append(builder.steps, Step{
		name: "flaky",
		execute: func(ctx context.Context, rt *Runtime) error {
			attempts++
			if attempts < 3 {
				return fmt.Errorf("transient failure %d", attempts)
			}
			return nil
		},
		maxAttempts: 3,
		retryDelay:  time.Millisecond,
	})

	if _, err := builder.Execute(context.Background(), nil); err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestBuilderExhaustsAttempts(t *testing.T) {
	builder := NewBuilder()
	attempts := 0
	builder.steps = append(builder.steps, Step{
		name: "always-fails",
		execute: func(ctx context.Context, rt *Runtime) error {
			attempts++
			return fmt.Errorf("no")
		},
		maxAttempts: 2,
		retryDelay:  time.Millisecond,
	})

	failedAt, err := builder.Execute(context.Background(), nil)
	if err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if failedAt != 0 {
		t.Errorf("failed index = %d, want 0", failedAt)
	}
}
