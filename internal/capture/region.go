package capture

import (
	"fmt"
	"image"
	"image/color"

	"screenflow.dev/screenflow-go/internal/cv"
	"screenflow.dev/screenflow-go/internal/element"
)

// ImageRegionStrategy captures a rectangular template. A press marks one
// corner, dragging previews the rectangle live, release marks the opposite
// corner and extracts the sub-image under it.
type ImageRegionStrategy struct {
	state     element.CaptureState
	frame     *image.RGBA
	pressAt   image.Point
	current   image.Rectangle
	selection image.Rectangle
	template  *image.RGBA
	threshold float64
}

// NewImageRegionStrategy creates a fresh image region capture session.
func NewImageRegionStrategy() element.CaptureStrategy {
	return &ImageRegionStrategy{state: element.StateIdle, threshold: DefaultThreshold}
}

func (s *ImageRegionStrategy) Kind() string                { return element.KindImageRegion }
func (s *ImageRegionStrategy) State() element.CaptureState { return s.state }

// Start arms the session against a frame captured at session start.
func (s *ImageRegionStrategy) Start(frame *image.RGBA) error {
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

// HandlePress marks the first rectangle corner.
func (s *ImageRegionStrategy) HandlePress(p image.Point) error {
	if s.state != element.StateArmed {
		return fmt.Errorf("press ignored in state %s", s.state)
	}
	if !p.In(s.frame.Bounds()) {
		return element.ErrCaptureRejected
	}

	s.pressAt = p
	s.current = image.Rectangle{Min: p, Max: p}
	s.state = element.StateSampling
	return nil
}

// HandleMove live-previews the selection rectangle during a drag.
func (s *ImageRegionStrategy) HandleMove(p image.Point) error {
	if s.state != element.StateSampling {
		return nil
	}
	s.current = image.Rectangle{Min: s.pressAt, Max: p}.Canon()
	return nil
}

// HandleRelease marks the opposite corner and extracts the sub-image.
// A degenerate selection is rejected and the session stays in Sampling.
func (s *ImageRegionStrategy) HandleRelease(p image.Point) error {
	if s.state != element.StateSampling {
		return fmt.Errorf("release ignored in state %s", s.state)
	}

	selection := image.Rectangle{Min: s.pressAt, Max: p}.Canon().Intersect(s.frame.Bounds())
	if selection.Dx() < minSelectionSize || selection.Dy() < minSelectionSize {
		// Degenerate rectangle; operator tries again
		return element.ErrCaptureRejected
	}

	s.selection = selection
	s.template = cv.CropRegion(s.frame, selection)
	s.state = element.StateConfirming
	return nil
}

// Confirm finalizes the session into a VisualElement. The search window is
// the captured rectangle expanded by a margin, clamped to the frame.
func (s *ImageRegionStrategy) Confirm(name string) (*element.VisualElement, error) {
	if s.state != element.StateConfirming {
		return nil, fmt.Errorf("cannot confirm in state %s", s.state)
	}

	bounds := s.frame.Bounds()
	window := s.selection.Inset(-searchWindowMargin).Intersect(bounds)
	search := cv.NewRegion(window.Min.X, window.Min.Y, window.Max.X, window.Max.Y)

	el, err := element.NewImageRegionElement(name,
		element.Resolution{Width: bounds.Dx(), Height: bounds.Dy()},
		s.selection.Min,
		element.ImageRegionPayload{
			Template:     s.template,
			Threshold:    s.threshold,
			SearchRegion: &search,
		})
	if err != nil {
		return nil, err
	}

	s.state = element.StateDone
	return el, nil
}

// Cancel abandons the session, releasing the extracted template.
func (s *ImageRegionStrategy) Cancel() {
	s.template = nil
	s.frame = nil
	s.state = element.StateCancelled
}

// Instructions describes the next operator action for the current state.
func (s *ImageRegionStrategy) Instructions() string {
	switch s.state {
	case element.StateIdle:
		return "Capture not started"
	case element.StateArmed:
		return "Press and drag to select the template region"
	case element.StateSampling:
		return "Release to complete the selection"
	case element.StateConfirming:
		return fmt.Sprintf("Selected %dx%d region. Confirm or cancel.", s.selection.Dx(), s.selection.Dy())
	case element.StateDone:
		return "Capture complete"
	case element.StateCancelled:
		return "Capture cancelled"
	default:
		return ""
	}
}

// Preview returns the live selection rectangle plus the instruction text.
func (s *ImageRegionStrategy) Preview() []element.PreviewPrimitive {
	prims := []element.PreviewPrimitive{{
		Kind:  element.PreviewText,
		Point: image.Point{X: 10, Y: 10},
		Text:  s.Instructions(),
	}}

	rect := s.current
	if s.state == element.StateConfirming {
		rect = s.selection
	}
	if !rect.Empty() {
		prims = append(prims, element.PreviewPrimitive{
			Kind:  element.PreviewRect,
			Rect:  rect,
			Color: color.RGBA{R: 0, G: 255, B: 0, A: 255},
		})
	}
	return prims
}
