package screen

import (
	"errors"
	"image"
)

// Source provides screen captures of the target application's window region.
// Implementations must reflect the current window position and size.
type Source interface {
	// Capture grabs the current frame. A minimized or closed window surfaces
	// as ErrCaptureUnavailable, never as an empty image.
	Capture() (*image.RGBA, error)

	// Dimensions returns the capture width and height.
	Dimensions() (width, height int)
}

// Injector issues pointer input in the same coordinate space as captured
// images. Both primitives must be idempotent from the caller's perspective:
// clicking a confirmed coordinate twice must not corrupt state.
type Injector interface {
	Click(x, y int) error
	Move(x, y int) error
}

// External resource failures. Both are retried a bounded number of times
// with backoff before escalating as fatal to the current run.
var (
	ErrCaptureUnavailable   = errors.New("screen capture unavailable")
	ErrInjectionUnavailable = errors.New("input injection unavailable")
)
