package workflow

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"screenflow.dev/screenflow-go/internal/cv"
	"screenflow.dev/screenflow-go/internal/detector"
	"screenflow.dev/screenflow-go/internal/element"
	"screenflow.dev/screenflow-go/internal/pages"
	"screenflow.dev/screenflow-go/internal/screen"
)

// ErrActionNotConfirmed is returned when a transition's click was injected
// but the target page never appeared within the expected window.
var ErrActionNotConfirmed = errors.New("action not confirmed")

// Runtime bundles the services steps execute against. A runtime is built
// once per run from a configuration snapshot, so a mid-run configuration
// edit never changes the pages under a running workflow.
type Runtime struct {
	Screen   *screen.Service
	Registry *element.Registry
	Detector *detector.Detector
	Config   *pages.PageConfiguration

	// PollInterval paces detection loops; SettleDelay is the pause after
	// an injected click before the screen is trusted again.
	PollInterval time.Duration
	SettleDelay  time.Duration

	// Outputs collects values read from the screen during the run,
	// keyed by the step's output name.
	Outputs map[string]interface{}
}

const (
	defaultPollInterval = 200 * time.Millisecond
	defaultSettleDelay  = 300 * time.Millisecond
)

// NewRuntime creates a runtime with default pacing.
func NewRuntime(svc *screen.Service, registry *element.Registry, det *detector.Detector, config *pages.PageConfiguration) *Runtime {
	return &Runtime{
		Screen:       svc,
		Registry:     registry,
		Detector:     det,
		Config:       config,
		PollInterval: defaultPollInterval,
		SettleDelay:  defaultSettleDelay,
		Outputs:      make(map[string]interface{}),
	}
}

// DetectCurrent captures one fresh frame and runs page detection on it.
func (rt *Runtime) DetectCurrent(ctx context.Context) (*detector.Result, error) {
	frame, err := rt.Screen.CaptureFrame(ctx, false)
	if err != nil {
		return nil, err
	}
	return rt.Detector.Detect(frame, rt.Config)
}

// WaitForPage polls detection until the named page appears or the timeout
// elapses. The last detection outcome rides along on the error so failures
// report what the screen actually showed.
func (rt *Runtime) WaitForPage(ctx context.Context, pageName string, timeout time.Duration) (*detector.Result, error) {
	page, ok := rt.Config.PageByName(pageName)
	if !ok {
		return nil, fmt.Errorf("unknown page %q", pageName)
	}

	deadline := time.Now().Add(timeout)
	var lastSeen string

	for {
		result, err := rt.DetectCurrent(ctx)
		if err != nil {
			return nil, err
		}
		if result != nil {
			if result.Page.ID == page.ID {
				return result, nil
			}
			lastSeen = result.Page.Name
		}

		if time.Now().After(deadline) {
			if lastSeen != "" {
				return nil, fmt.Errorf("%w: page %q did not appear within %v (last seen %q)",
					detector.ErrPageNotDetected, pageName, timeout, lastSeen)
			}
			return nil, fmt.Errorf("%w: page %q did not appear within %v",
				detector.ErrPageNotDetected, pageName, timeout)
		}
		if err := rt.sleep(ctx, rt.PollInterval); err != nil {
			return nil, err
		}
	}
}

// WaitForElements polls until every listed element matches present, used
// for transition confirmation.
func (rt *Runtime) WaitForElements(ctx context.Context, elementIDs []string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		// Cached capture: consecutive confirmation checks against one
		// screen state reuse the frame within the cache window.
		frame, err := rt.Screen.CaptureFrame(ctx, true)
		if err != nil {
			return err
		}

		all := true
		for _, id := range elementIDs {
			el, ok := rt.Config.Element(id)
			if !ok {
				return fmt.Errorf("unknown confirmation element %s", id)
			}
			result, err := rt.Registry.Match(el, frame)
			if err != nil || !result.Matched {
				all = false
				break
			}
		}
		if all {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: confirmation elements not present within %v", ErrActionNotConfirmed, timeout)
		}
		if err := rt.sleep(ctx, rt.PollInterval); err != nil {
			return err
		}
	}
}

// ClickElement waits for the element to match, clicks its center, and
// pauses for the settle delay. Callers verify the page precondition before
// calling, so the locate may reuse a cached frame; the cache is invalidated
// after the click since the screen is expected to change.
func (rt *Runtime) ClickElement(ctx context.Context, el *element.VisualElement, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		frame, err := rt.Screen.CaptureFrame(ctx, true)
		if err != nil {
			return err
		}

		result, err := rt.Registry.Match(el, frame)
		if err != nil {
			return err
		}
		if result.Matched {
			point := clickPoint(el, result)
			if err := rt.Screen.Click(ctx, point.X, point.Y); err != nil {
				return err
			}
			rt.Screen.InvalidateCache()
			return rt.sleep(ctx, rt.SettleDelay)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("element %q not present within %v", el.Name(), timeout)
		}
		if err := rt.sleep(ctx, rt.PollInterval); err != nil {
			return err
		}
	}
}

// clickPoint picks the screen coordinate to click for a matched element:
// the template center for image regions, the first sample for pixels.
func clickPoint(el *element.VisualElement, result cv.MatchResult) image.Point {
	if payload := el.RegionPayload(); payload != nil {
		bounds := payload.Template.Bounds()
		return image.Point{
			X: result.Location.X + bounds.Dx()/2,
			Y: result.Location.Y + bounds.Dy()/2,
		}
	}
	return result.Location
}

// resolveInteractive finds the element bound to a role on a page.
func (rt *Runtime) resolveInteractive(pageName, role string) (*pages.Page, *element.VisualElement, error) {
	page, ok := rt.Config.PageByName(pageName)
	if !ok {
		return nil, nil, fmt.Errorf("unknown page %q", pageName)
	}
	elementID, ok := page.InteractiveElement(role)
	if !ok {
		return nil, nil, fmt.Errorf("page %q has no interactive role %q", pageName, role)
	}
	el, ok := rt.Config.Element(elementID)
	if !ok {
		return nil, nil, fmt.Errorf("page %q role %q binds unknown element %s", pageName, role, elementID)
	}
	return page, el, nil
}

// findElementByName looks an element up by its human-readable name.
func findElementByName(config *pages.PageConfiguration, name string) (*element.VisualElement, bool) {
	for _, el := range config.Elements {
		if el.Name() == name {
			return el, true
		}
	}
	return nil, false
}

// sleep pauses without outliving the context.
func (rt *Runtime) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
