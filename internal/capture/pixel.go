package capture

import (
	"fmt"
	"image"
	"image/color"

	"screenflow.dev/screenflow-go/internal/element"
)

// Capture defaults. Tolerance and search radius follow the values the
// matcher expects for small window drift.
const (
	DefaultTolerance    = 10
	DefaultSearchRadius = 2
	DefaultThreshold    = 0.85

	// Selections smaller than this are degenerate gestures.
	minSelectionSize = 4

	// Extra pixels around a captured template used as its search window.
	searchWindowMargin = 40
)

// PixelColorStrategy captures one or more pixel color samples. A press
// samples the color under the pointer; further presses add more samples;
// confirmation produces the element.
type PixelColorStrategy struct {
	state     element.CaptureState
	frame     *image.RGBA
	samples   []element.PixelSample
	tolerance uint8
}

// NewPixelColorStrategy creates a fresh pixel color capture session.
func NewPixelColorStrategy() element.CaptureStrategy {
	return &PixelColorStrategy{state: element.StateIdle, tolerance: DefaultTolerance}
}

func (s *PixelColorStrategy) Kind() string                { return element.KindPixelColor }
func (s *PixelColorStrategy) State() element.CaptureState { return s.state }

// Start arms the session against a frame captured at session start.
func (s *PixelColorStrategy) Start(frame *image.RGBA) error {
	if s.state != element.StateIdle {
		return fmt.Errorf("capture already started (state %s)", s.state)
	}
	if frame == nil || frame.Bounds().Empty() {
		return fmt.Errorf("capture requires a non-empty frame")
	}
	s.frame = frame
	s.state = element.StateArmed
	return nil
}

// HandlePress samples the pixel under the pointer.
func (s *PixelColorStrategy) HandlePress(p image.Point) error {
	if s.state != element.StateArmed && s.state != element.StateConfirming {
		return fmt.Errorf("press ignored in state %s", s.state)
	}
	if !p.In(s.frame.Bounds()) {
		// Outside the capturable surface; state unchanged
		return element.ErrCaptureRejected
	}

	sampled := s.frame.RGBAAt(p.X, p.Y)
	s.samples = append(s.samples, element.PixelSample{
		X:         p.X,
		Y:         p.Y,
		Color:     color.RGBA{R: sampled.R, G: sampled.G, B: sampled.B, A: 255},
		Tolerance: s.tolerance,
	})
	s.state = element.StateSampling
	return nil
}

// HandleMove is a no-op for pixel capture.
func (s *PixelColorStrategy) HandleMove(p image.Point) error { return nil }

// HandleRelease completes one sample; the operator may press again to add
// more points or confirm to finish.
func (s *PixelColorStrategy) HandleRelease(p image.Point) error {
	if s.state != element.StateSampling {
		return fmt.Errorf("release ignored in state %s", s.state)
	}
	s.state = element.StateConfirming
	return nil
}

// Confirm finalizes the session into a VisualElement.
func (s *PixelColorStrategy) Confirm(name string) (*element.VisualElement, error) {
	if s.state != element.StateConfirming {
		return nil, fmt.Errorf("cannot confirm in state %s", s.state)
	}

	bounds := s.frame.Bounds()
	el, err := element.NewPixelColorElement(name,
		element.Resolution{Width: bounds.Dx(), Height: bounds.Dy()},
		element.PixelColorPayload{
			Samples:      s.samples,
			MatchAll:     true,
			SearchRadius: DefaultSearchRadius,
		})
	if err != nil {
		return nil, err
	}

	s.state = element.StateDone
	return el, nil
}

// Cancel abandons the session, releasing all unconfirmed samples.
func (s *PixelColorStrategy) Cancel() {
	s.samples = nil
	s.frame = nil
	s.state = element.StateCancelled
}

// Instructions describes the next operator action for the current state.
func (s *PixelColorStrategy) Instructions() string {
	switch s.state {
	case element.StateIdle:
		return "Capture not started"
	case element.StateArmed:
		return "Click a point to sample its color"
	case element.StateSampling:
		return "Release to record the sample"
	case element.StateConfirming:
		return fmt.Sprintf("Captured %d sample(s). Click more points or confirm.", len(s.samples))
	case element.StateDone:
		return "Capture complete"
	case element.StateCancelled:
		return "Capture cancelled"
	default:
		return ""
	}
}

// Preview returns point marks for each sample plus the instruction text.
func (s *PixelColorStrategy) Preview() []element.PreviewPrimitive {
	prims := []element.PreviewPrimitive{{
		Kind:  element.PreviewText,
		Point: image.Point{X: 10, Y: 10},
		Text:  s.Instructions(),
	}}
	for _, sample := range s.samples {
		prims = append(prims, element.PreviewPrimitive{
			Kind:  element.PreviewPoint,
			Point: image.Point{X: sample.X, Y: sample.Y},
			Color: sample.Color,
		})
	}
	return prims
}
