package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"screenflow.dev/screenflow-go/internal/element"
	"screenflow.dev/screenflow-go/internal/events"
	"screenflow.dev/screenflow-go/internal/logging"
	"screenflow.dev/screenflow-go/internal/screen"
)

// ErrCaptureInProgress is returned when a capture is started while another
// session is active. Starting a new capture never implicitly cancels the
// prior one; the operator must cancel explicitly first.
var ErrCaptureInProgress = errors.New("a capture session is already active")

// OverlayManager coordinates an active capture strategy against the
// transparent input-capturing surface. It holds at most one active strategy
// at a time and routes raw pointer events to it.
type OverlayManager struct {
	registry *element.Registry
	screen   *screen.Service
	bus      events.EventBus
	logger   *logging.Logger

	active element.CaptureStrategy
	mu     sync.Mutex
}

// NewOverlayManager creates an overlay manager and attaches the built-in
// capture strategies to the registry.
func NewOverlayManager(registry *element.Registry, svc *screen.Service, bus events.EventBus) *OverlayManager {
	registry.AttachStrategy(element.KindPixelColor, NewPixelColorStrategy)
	registry.AttachStrategy(element.KindImageRegion, NewImageRegionStrategy)

	return &OverlayManager{
		registry: registry,
		screen:   svc,
		bus:      bus,
		logger:   logging.NewLogger("overlay"),
	}
}

// StartCapture begins an interactive session for the given element kind
// against a fresh screen capture. Fails fast with ErrCaptureInProgress if
// a session is already active.
func (m *OverlayManager) StartCapture(ctx context.Context, kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return ErrCaptureInProgress
	}

	strategy, err := m.registry.NewStrategy(kind)
	if err != nil {
		return err
	}

	m.screen.InvalidateCache()
	frame, err := m.screen.CaptureFrame(ctx, false)
	if err != nil {
		return fmt.Errorf("%w: %v", screen.ErrCaptureUnavailable, err)
	}

	if err := strategy.Start(frame); err != nil {
		return err
	}

	m.active = strategy
	if m.bus != nil {
		m.bus.Publish(events.Event{
			Type:   events.EventTypeCaptureStarted,
			Source: "overlay",
			Data:   map[string]interface{}{"kind": kind},
		})
	}
	m.logger.InfoWithContext("capture session started", map[string]interface{}{"kind": kind})
	return nil
}

// HandlePress routes a pointer press to the active strategy.
func (m *OverlayManager) HandlePress(p image.Point) error {
	return m.route(func(s element.CaptureStrategy) error { return s.HandlePress(p) })
}

// HandleMove routes a pointer move to the active strategy.
func (m *OverlayManager) HandleMove(p image.Point) error {
	return m.route(func(s element.CaptureStrategy) error { return s.HandleMove(p) })
}

// HandleRelease routes a pointer release to the active strategy.
func (m *OverlayManager) HandleRelease(p image.Point) error {
	return m.route(func(s element.CaptureStrategy) error { return s.HandleRelease(p) })
}

func (m *OverlayManager) route(fn func(element.CaptureStrategy) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return fmt.Errorf("no active capture session")
	}

	err := fn(m.active)
	if errors.Is(err, element.ErrCaptureRejected) {
		if m.bus != nil {
			m.bus.Publish(events.Event{
				Type:   events.EventTypeCaptureRejected,
				Source: "overlay",
				Data:   map[string]interface{}{"kind": m.active.Kind()},
			})
		}
		m.logger.Warn("capture gesture rejected, operator re-prompted")
	}
	return err
}

// Confirm finalizes the active session and emits the finished element to
// subscribers. The active strategy is cleared on success.
func (m *OverlayManager) Confirm(name string) (*element.VisualElement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, fmt.Errorf("no active capture session")
	}

	el, err := m.active.Confirm(name)
	if err != nil {
		return nil, err
	}

	m.active = nil
	if m.bus != nil {
		m.bus.Publish(events.NewElementCapturedEvent(el.ID(), el.Kind()))
	}
	m.logger.InfoWithContext("element captured", map[string]interface{}{
		"element_id": el.ID(),
		"kind":       el.Kind(),
		"name":       el.Name(),
	})
	return el, nil
}

// Cancel abandons the active session without emitting an element.
func (m *OverlayManager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return
	}

	kind := m.active.Kind()
	m.active.Cancel()
	m.active = nil
	if m.bus != nil {
		m.bus.Publish(events.NewCaptureCancelledEvent(kind))
	}
	m.logger.InfoWithContext("capture session cancelled", map[string]interface{}{"kind": kind})
}

// Active reports whether a capture session is in progress.
func (m *OverlayManager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// Instructions returns the active session's operator instructions.
func (m *OverlayManager) Instructions() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return ""
	}
	return m.active.Instructions()
}

// Preview returns the active session's overlay primitives for the UI
// boundary to render.
func (m *OverlayManager) Preview() []element.PreviewPrimitive {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil
	}
	return m.active.Preview()
}
