package element

import (
	"fmt"
	"image"
	"image/color"

	"github.com/google/uuid"
	"screenflow.dev/screenflow-go/internal/cv"
)

// Built-in element kinds. New kinds are added through the Registry without
// touching the detector or executor.
const (
	KindPixelColor  = "pixel_color"
	KindImageRegion = "image_region"
)

// Resolution is the window size an element was captured at. Captures taken
// at one window size must be re-validated before reuse at another.
type Resolution struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Contains reports whether a point lies within the resolution bounds.
func (r Resolution) Contains(p image.Point) bool {
	return p.X >= 0 && p.X < r.Width && p.Y >= 0 && p.Y < r.Height
}

// PixelSample is one screen coordinate with its expected color.
type PixelSample struct {
	X         int        `yaml:"x" json:"x"`
	Y         int        `yaml:"y" json:"y"`
	Color     color.RGBA `yaml:"-" json:"-"`
	Tolerance uint8      `yaml:"tolerance" json:"tolerance"`
}

// PixelColorPayload holds the matching data for a pixel color element.
// An element may sample several points; MatchAll requires every sample to
// match, otherwise any single match suffices.
type PixelColorPayload struct {
	Samples      []PixelSample
	MatchAll     bool
	SearchRadius int // pixels to search around each sample if the window moved
}

// ImageRegionPayload holds the matching data for an image template element.
type ImageRegionPayload struct {
	Template     *image.RGBA // sub-image extracted at capture time
	Threshold    float64     // minimum match confidence
	SearchRegion *cv.Region  // optional window to search in; nil = whole screen
}

// VisualElement is an immutable description of a screen feature and how to
// match it. Elements are created exclusively through a completed capture
// session; edits produce a new element.
type VisualElement struct {
	id         string
	name       string
	kind       string
	anchor     image.Point
	resolution Resolution

	pixel  *PixelColorPayload
	region *ImageRegionPayload
}

// NewPixelColorElement creates a pixel color element from captured samples.
func NewPixelColorElement(name string, res Resolution, payload PixelColorPayload) (*VisualElement, error) {
	if name == "" {
		return nil, fmt.Errorf("element name cannot be empty")
	}
	if len(payload.Samples) == 0 {
		return nil, fmt.Errorf("pixel color element requires at least one sample")
	}
	for i, sample := range payload.Samples {
		if !res.Contains(image.Point{X: sample.X, Y: sample.Y}) {
			return nil, fmt.Errorf("sample %d at (%d, %d) outside reference resolution %dx%d",
				i, sample.X, sample.Y, res.Width, res.Height)
		}
	}
	if payload.SearchRadius < 0 {
		return nil, fmt.Errorf("search radius cannot be negative")
	}

	first := payload.Samples[0]
	return &VisualElement{
		id:         uuid.NewString(),
		name:       name,
		kind:       KindPixelColor,
		anchor:     image.Point{X: first.X, Y: first.Y},
		resolution: res,
		pixel:      &payload,
	}, nil
}

// NewImageRegionElement creates an image template element from a captured
// sub-image anchored at the template's original top-left corner.
func NewImageRegionElement(name string, res Resolution, anchor image.Point, payload ImageRegionPayload) (*VisualElement, error) {
	if name == "" {
		return nil, fmt.Errorf("element name cannot be empty")
	}
	if payload.Template == nil || payload.Template.Bounds().Empty() {
		return nil, fmt.Errorf("image region element requires a non-empty template")
	}
	if payload.Threshold <= 0 || payload.Threshold > 1 {
		return nil, fmt.Errorf("threshold must be in (0, 1], got %v", payload.Threshold)
	}
	if !res.Contains(anchor) {
		return nil, fmt.Errorf("anchor (%d, %d) outside reference resolution %dx%d",
			anchor.X, anchor.Y, res.Width, res.Height)
	}
	bounds := payload.Template.Bounds()
	if anchor.X+bounds.Dx() > res.Width || anchor.Y+bounds.Dy() > res.Height {
		return nil, fmt.Errorf("template %dx%d at (%d, %d) exceeds reference resolution %dx%d",
			bounds.Dx(), bounds.Dy(), anchor.X, anchor.Y, res.Width, res.Height)
	}
	if payload.SearchRegion != nil && payload.SearchRegion.Empty() {
		return nil, fmt.Errorf("search region cannot be empty")
	}

	return &VisualElement{
		id:         uuid.NewString(),
		name:       name,
		kind:       KindImageRegion,
		anchor:     anchor,
		resolution: res,
		region:     &payload,
	}, nil
}

// Restore rebuilds an element from persisted fields, preserving its ID.
// Used by the pages package when loading a configuration document.
func Restore(id, name, kind string, anchor image.Point, res Resolution,
	pixel *PixelColorPayload, region *ImageRegionPayload) (*VisualElement, error) {

	switch kind {
	case KindPixelColor:
		if pixel == nil {
			return nil, fmt.Errorf("element %s: kind %s requires a pixel color payload", id, kind)
		}
		el, err := NewPixelColorElement(name, res, *pixel)
		if err != nil {
			return nil, fmt.Errorf("element %s: %w", id, err)
		}
		el.id = id
		el.anchor = anchor
		return el, nil

	case KindImageRegion:
		if region == nil {
			return nil, fmt.Errorf("element %s: kind %s requires an image region payload", id, kind)
		}
		el, err := NewImageRegionElement(name, res, anchor, *region)
		if err != nil {
			return nil, fmt.Errorf("element %s: %w", id, err)
		}
		el.id = id
		return el, nil

	default:
		return nil, fmt.Errorf("element %s: unknown kind %q", id, kind)
	}
}

// ID returns the element's stable unique identifier.
func (e *VisualElement) ID() string { return e.id }

// Name returns the element's human-readable name.
func (e *VisualElement) Name() string { return e.name }

// Kind returns the element kind tag.
func (e *VisualElement) Kind() string { return e.kind }

// Anchor returns the element's screen coordinate in the reference resolution.
func (e *VisualElement) Anchor() image.Point { return e.anchor }

// Resolution returns the reference resolution recorded at capture time.
func (e *VisualElement) Resolution() Resolution { return e.resolution }

// PixelPayload returns the pixel color payload, or nil for other kinds.
func (e *VisualElement) PixelPayload() *PixelColorPayload { return e.pixel }

// RegionPayload returns the image region payload, or nil for other kinds.
func (e *VisualElement) RegionPayload() *ImageRegionPayload { return e.region }

// WithName returns a copy of the element with a new name and a new ID.
// Elements are immutable; edits always produce a new element.
func (e *VisualElement) WithName(name string) *VisualElement {
	clone := *e
	clone.id = uuid.NewString()
	clone.name = name
	return &clone
}
