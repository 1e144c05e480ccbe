package element

import (
	"errors"
	"image"
	"image/color"
)

// CaptureState is the state of an interactive capture session.
type CaptureState int

const (
	// StateIdle - strategy created but not started
	StateIdle CaptureState = iota
	// StateArmed - listening for pointer input on the overlay surface
	StateArmed
	// StateSampling - a gesture is in progress
	StateSampling
	// StateConfirming - captured data awaits operator confirmation
	StateConfirming
	// StateDone - capture confirmed; terminal
	StateDone
	// StateCancelled - capture abandoned; terminal
	StateCancelled
)

// String returns a human-readable state name.
func (s CaptureState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateArmed:
		return "Armed"
	case StateSampling:
		return "Sampling"
	case StateConfirming:
		return "Confirming"
	case StateDone:
		return "Done"
	case StateCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// ErrCaptureRejected marks a degenerate capture gesture (zero-area
// rectangle, press outside the capturable surface). The session stays in
// its current state and the operator is re-prompted.
var ErrCaptureRejected = errors.New("capture gesture rejected")

// PreviewKind distinguishes overlay preview primitives.
type PreviewKind int

const (
	PreviewPoint PreviewKind = iota
	PreviewRect
	PreviewText
)

// PreviewPrimitive is one drawable item the UI boundary renders over the
// capture surface. The core never renders; it only describes.
type PreviewPrimitive struct {
	Kind  PreviewKind
	Point image.Point
	Rect  image.Rectangle
	Text  string
	Color color.RGBA
}

// CaptureStrategy turns operator pointer gestures into a VisualElement.
// Implementations are single-use: one session produces at most one element.
type CaptureStrategy interface {
	// Kind returns the element kind this strategy captures.
	Kind() string

	// State returns the current session state.
	State() CaptureState

	// Start arms the session against a frame captured at session start.
	Start(frame *image.RGBA) error

	// HandlePress, HandleMove and HandleRelease drive the gesture.
	// A rejected gesture returns ErrCaptureRejected and leaves the state
	// unchanged.
	HandlePress(p image.Point) error
	HandleMove(p image.Point) error
	HandleRelease(p image.Point) error

	// Confirm finalizes the session, producing the captured element.
	// Only legal in the Confirming state.
	Confirm(name string) (*VisualElement, error)

	// Cancel abandons the session from any state, releasing all
	// captured-but-unconfirmed data.
	Cancel()

	// Instructions describes the next operator action for the current
	// state. Pure function of state; no side effects.
	Instructions() string

	// Preview returns the overlay primitives to render for the current
	// state.
	Preview() []PreviewPrimitive
}

// StrategyFactory creates a fresh capture strategy session.
type StrategyFactory func() CaptureStrategy
