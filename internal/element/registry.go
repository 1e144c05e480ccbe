package element

import (
	"fmt"
	"image"
	"sync"

	"screenflow.dev/screenflow-go/internal/cv"
)

// Matcher decides whether a stored element matches a live screen image.
type Matcher func(el *VisualElement, screenImg *image.RGBA) (cv.MatchResult, error)

// Reader extracts the element's current value from a screen image without
// injecting input (the matched sub-image for templates, the sampled color
// for pixels).
type Reader func(el *VisualElement, screenImg *image.RGBA) (*ReadValue, error)

// ReadValue is the kind-specific value a Reader extracts.
type ReadValue struct {
	Image *image.RGBA  // image_region: matched sub-image
	Color *PixelSample // pixel_color: sample observed at the anchor
}

// Entry binds one element kind to its capture strategy factory and matcher.
type Entry struct {
	Matcher     Matcher
	Reader      Reader
	NewStrategy StrategyFactory // nil in headless contexts with no capture UI
}

// Registry is the open mapping from element kind to capture and matching
// behavior. Adding a new element kind requires only a new registry entry;
// the detector and executor dispatch through it untouched.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates a registry pre-populated with the built-in
// pixel_color and image_region matchers. Capture strategy factories are
// attached separately by the capture package.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[string]Entry)}
	r.entries[KindPixelColor] = Entry{Matcher: matchPixelColor, Reader: readPixelColor}
	r.entries[KindImageRegion] = Entry{Matcher: matchImageRegion, Reader: readImageRegion}
	return r
}

// Register adds or replaces the entry for a kind.
func (r *Registry) Register(kind string, entry Entry) error {
	if kind == "" {
		return fmt.Errorf("element kind cannot be empty")
	}
	if entry.Matcher == nil {
		return fmt.Errorf("kind %q: matcher is required", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[kind] = entry
	return nil
}

// AttachStrategy sets the capture strategy factory for an existing kind.
func (r *Registry) AttachStrategy(kind string, factory StrategyFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[kind]
	if !ok {
		return fmt.Errorf("unknown element kind %q", kind)
	}
	entry.NewStrategy = factory
	r.entries[kind] = entry
	return nil
}

// Matcher returns the matcher for a kind.
func (r *Registry) Matcher(kind string) (Matcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[kind]
	if !ok {
		return nil, false
	}
	return entry.Matcher, true
}

// Reader returns the reader for a kind.
func (r *Registry) Reader(kind string) (Reader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[kind]
	if !ok || entry.Reader == nil {
		return nil, false
	}
	return entry.Reader, true
}

// NewStrategy creates a fresh capture session for a kind.
func (r *Registry) NewStrategy(kind string) (CaptureStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[kind]
	if !ok {
		return nil, fmt.Errorf("unknown element kind %q", kind)
	}
	if entry.NewStrategy == nil {
		return nil, fmt.Errorf("element kind %q has no capture strategy registered", kind)
	}
	return entry.NewStrategy(), nil
}

// Match evaluates an element against a screen image through its registered
// matcher.
func (r *Registry) Match(el *VisualElement, screenImg *image.RGBA) (cv.MatchResult, error) {
	matcher, ok := r.Matcher(el.Kind())
	if !ok {
		return cv.MatchResult{}, fmt.Errorf("no matcher registered for kind %q", el.Kind())
	}
	return matcher(el, screenImg)
}

// Kinds returns all registered kinds.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.entries))
	for kind := range r.entries {
		kinds = append(kinds, kind)
	}
	return kinds
}
