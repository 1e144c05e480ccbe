package detector

import (
	"errors"
	"fmt"
	"image"

	"screenflow.dev/screenflow-go/internal/cv"
	"screenflow.dev/screenflow-go/internal/element"
	"screenflow.dev/screenflow-go/internal/events"
	"screenflow.dev/screenflow-go/internal/logging"
	"screenflow.dev/screenflow-go/internal/pages"
)

// ErrPageNotDetected is returned by callers that require a page when no
// page's identifier set was satisfied.
var ErrPageNotDetected = errors.New("no page detected")

// Result is one detection outcome. Outcomes holds the per-identifier match
// results that produced the decision, keyed by element ID.
type Result struct {
	Page       *pages.Page
	Confidence float64
	Outcomes   map[string]cv.MatchResult
}

// Detector evaluates page signatures against screen images. It holds no
// screen or timing state; the same screen and configuration always produce
// the same result.
type Detector struct {
	registry *element.Registry
	bus      events.EventBus
	logger   *logging.Logger
}

// New creates a detector dispatching matches through the registry.
func New(registry *element.Registry, bus events.EventBus) *Detector {
	return &Detector{
		registry: registry,
		bus:      bus,
		logger:   logging.NewLogger("detector"),
	}
}

// Detect evaluates every page in the configuration against the screen and
// returns the page whose identifier set is fully satisfied. Returns nil
// when no page matches. If several pages match, the first in declaration
// order wins and a warning is emitted; a validated configuration should
// never reach that state.
func (d *Detector) Detect(screenImg *image.RGBA, config *pages.PageConfiguration) (*Result, error) {
	if screenImg == nil {
		return nil, fmt.Errorf("screen image cannot be nil")
	}
	if config == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	var matches []*Result
	for _, page := range config.Pages {
		result, ok := d.evaluate(screenImg, config, page)
		if ok {
			matches = append(matches, result)
		}
	}

	if len(matches) == 0 {
		return nil, nil
	}

	winner := matches[0]
	if len(matches) > 1 {
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Page.Name
		}
		d.logger.WarnWithContext("multiple pages matched, taking first by declaration order", map[string]interface{}{
			"pages":  names,
			"winner": winner.Page.Name,
		})
		if d.bus != nil {
			d.bus.Publish(events.Event{
				Type:   events.EventTypePageAmbiguous,
				Source: "detector",
				Data:   map[string]interface{}{"pages": names, "winner": winner.Page.Name},
			})
		}
	}

	if d.bus != nil {
		d.bus.Publish(events.NewPageDetectedEvent(winner.Page.ID, winner.Page.Name, winner.Confidence))
	}
	return winner, nil
}

// DetectPage evaluates a single page's identifier set against the screen.
func (d *Detector) DetectPage(screenImg *image.RGBA, config *pages.PageConfiguration, pageID string) (*Result, error) {
	page, ok := config.PageByID(pageID)
	if !ok {
		return nil, fmt.Errorf("unknown page %s", pageID)
	}
	result, matched := d.evaluate(screenImg, config, page)
	if !matched {
		return nil, nil
	}
	return result, nil
}

// evaluate checks every identifier binding of one page. The page matches
// only when every binding's outcome equals its expectation. A matcher error
// counts as unsatisfied rather than aborting the sweep.
func (d *Detector) evaluate(screenImg *image.RGBA, config *pages.PageConfiguration, page *pages.Page) (*Result, bool) {
	outcomes := make(map[string]cv.MatchResult, len(page.Identifiers))
	total := 0.0

	for _, binding := range page.Identifiers {
		el, ok := config.Element(binding.ElementID)
		if !ok {
			return nil, false
		}

		result, err := d.registry.Match(el, screenImg)
		if err != nil {
			d.logger.WarnWithContext("identifier match failed", map[string]interface{}{
				"page":    page.Name,
				"element": el.Name(),
				"error":   err.Error(),
			})
			return nil, false
		}
		outcomes[binding.ElementID] = result

		if result.Matched != binding.ExpectPresent {
			return nil, false
		}
		if binding.ExpectPresent {
			total += result.Confidence
		} else {
			total += 1 - result.Confidence
		}
	}

	return &Result{
		Page:       page,
		Confidence: total / float64(len(page.Identifiers)),
		Outcomes:   outcomes,
	}, true
}
