package pages

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"screenflow.dev/screenflow-go/internal/cv"
	"screenflow.dev/screenflow-go/internal/element"
	"screenflow.dev/screenflow-go/internal/events"
)

// Document is the YAML form of a PageConfiguration. Image templates are
// embedded as base64 PNG so a configuration travels as one file.
type Document struct {
	Version     int             `yaml:"version"`
	Name        string          `yaml:"name"`
	Elements    []elementDoc    `yaml:"elements"`
	Pages       []pageDoc       `yaml:"pages"`
	Transitions []transitionDoc `yaml:"transitions"`
}

const documentVersion = 1

type elementDoc struct {
	ID         string             `yaml:"id"`
	Name       string             `yaml:"name"`
	Kind       string             `yaml:"kind"`
	Anchor     pointDoc           `yaml:"anchor"`
	Resolution element.Resolution `yaml:"resolution"`
	Pixel      *pixelDoc          `yaml:"pixel,omitempty"`
	Image      *imageDoc          `yaml:"image,omitempty"`
}

type pointDoc struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

type pixelDoc struct {
	Samples      []sampleDoc `yaml:"samples"`
	MatchAll     bool        `yaml:"match_all"`
	SearchRadius int         `yaml:"search_radius"`
}

type sampleDoc struct {
	X         int      `yaml:"x"`
	Y         int      `yaml:"y"`
	Color     colorDoc `yaml:"color"`
	Tolerance uint8    `yaml:"tolerance"`
}

type colorDoc struct {
	R uint8 `yaml:"r"`
	G uint8 `yaml:"g"`
	B uint8 `yaml:"b"`
}

type imageDoc struct {
	Template     string     `yaml:"template"` // base64 PNG
	Threshold    float64    `yaml:"threshold"`
	SearchRegion *cv.Region `yaml:"search_region,omitempty"`
}

type pageDoc struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Identifiers []identifierDoc   `yaml:"identifiers"`
	Interactive map[string]string `yaml:"interactive,omitempty"`
}

type identifierDoc struct {
	ElementID     string `yaml:"element_id"`
	ExpectPresent bool   `yaml:"expect_present"`
}

type transitionDoc struct {
	ID                     string   `yaml:"id"`
	SourcePageID           string   `yaml:"source_page_id"`
	TargetPageID           string   `yaml:"target_page_id"`
	Role                   string   `yaml:"role"`
	ExpectedLatency        string   `yaml:"expected_latency,omitempty"`
	ConfirmationElementIDs []string `yaml:"confirmation_element_ids,omitempty"`
}

// MarshalConfiguration serializes a configuration to YAML.
func MarshalConfiguration(c *PageConfiguration) ([]byte, error) {
	doc := Document{Version: documentVersion, Name: c.Name}

	// Pages carry element references in declaration order; emit elements
	// in a stable order too so documents diff cleanly.
	seen := make(map[string]bool, len(c.Elements))
	emit := func(id string) error {
		if seen[id] {
			return nil
		}
		el, ok := c.Elements[id]
		if !ok {
			return fmt.Errorf("unknown element %s", id)
		}
		ed, err := encodeElement(el)
		if err != nil {
			return err
		}
		doc.Elements = append(doc.Elements, ed)
		seen[id] = true
		return nil
	}

	for _, page := range c.Pages {
		for _, binding := range page.Identifiers {
			if err := emit(binding.ElementID); err != nil {
				return nil, err
			}
		}
		for _, id := range page.Interactive {
			if err := emit(id); err != nil {
				return nil, err
			}
		}
	}
	for _, t := range c.Transitions {
		for _, id := range t.ConfirmationElementIDs {
			if err := emit(id); err != nil {
				return nil, err
			}
		}
	}
	for id, el := range c.Elements {
		if !seen[id] {
			ed, err := encodeElement(el)
			if err != nil {
				return nil, err
			}
			doc.Elements = append(doc.Elements, ed)
			seen[id] = true
		}
	}

	for _, page := range c.Pages {
		pd := pageDoc{ID: page.ID, Name: page.Name, Interactive: page.Interactive}
		for _, binding := range page.Identifiers {
			pd.Identifiers = append(pd.Identifiers, identifierDoc{
				ElementID:     binding.ElementID,
				ExpectPresent: binding.ExpectPresent,
			})
		}
		doc.Pages = append(doc.Pages, pd)
	}

	for _, t := range c.Transitions {
		td := transitionDoc{
			ID:                     t.ID,
			SourcePageID:           t.SourcePageID,
			TargetPageID:           t.TargetPageID,
			Role:                   t.Action.Role,
			ConfirmationElementIDs: t.ConfirmationElementIDs,
		}
		if t.ExpectedLatency > 0 {
			td.ExpectedLatency = t.ExpectedLatency.String()
		}
		doc.Transitions = append(doc.Transitions, td)
	}

	return yaml.Marshal(doc)
}

// UnmarshalConfiguration parses a YAML document back into a configuration.
// The result is structurally complete but not yet validated.
func UnmarshalConfiguration(data []byte) (*PageConfiguration, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse configuration document: %w", err)
	}
	if doc.Version != documentVersion {
		return nil, fmt.Errorf("unsupported configuration version %d", doc.Version)
	}

	c := NewPageConfiguration(doc.Name)

	for _, ed := range doc.Elements {
		el, err := decodeElement(ed)
		if err != nil {
			return nil, err
		}
		c.Elements[el.ID()] = el
	}

	for _, pd := range doc.Pages {
		page := &Page{ID: pd.ID, Name: pd.Name, Interactive: pd.Interactive}
		if page.Interactive == nil {
			page.Interactive = make(map[string]string)
		}
		for _, id := range pd.Identifiers {
			page.Identifiers = append(page.Identifiers, IdentifierBinding{
				ElementID:     id.ElementID,
				ExpectPresent: id.ExpectPresent,
			})
		}
		c.Pages = append(c.Pages, page)
	}

	for _, td := range doc.Transitions {
		t := &Transition{
			ID:                     td.ID,
			SourcePageID:           td.SourcePageID,
			TargetPageID:           td.TargetPageID,
			Action:                 TransitionAction{Role: td.Role},
			ConfirmationElementIDs: td.ConfirmationElementIDs,
		}
		if td.ExpectedLatency != "" {
			latency, err := time.ParseDuration(td.ExpectedLatency)
			if err != nil {
				return nil, fmt.Errorf("transition %s: bad expected_latency: %w", td.ID, err)
			}
			t.ExpectedLatency = latency
		}
		c.Transitions = append(c.Transitions, t)
	}

	return c, nil
}

// SaveFile validates the configuration and writes it as YAML. Invalid or
// ambiguous configurations are never written.
func (m *Manager) SaveFile(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := ValidateConfiguration(m.config); err != nil {
		m.logger.Error("configuration rejected", err)
		if m.bus != nil {
			m.bus.Publish(events.Event{
				Type:   events.EventTypeConfigRejected,
				Source: "pages",
				Data:   map[string]interface{}{"error": err.Error()},
			})
		}
		return err
	}

	data, err := MarshalConfiguration(m.config)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	m.logger.InfoWithContext("configuration saved", map[string]interface{}{"path": path})
	if m.bus != nil {
		m.bus.Publish(events.Event{
			Type:   events.EventTypeConfigSaved,
			Source: "pages",
			Data:   map[string]interface{}{"path": path, "pages": len(m.config.Pages)},
		})
	}
	return nil
}

// LoadFile reads, parses and validates a configuration document, replacing
// the manager's configuration on success.
func (m *Manager) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read configuration: %w", err)
	}

	config, err := UnmarshalConfiguration(data)
	if err != nil {
		return err
	}
	if err := ValidateConfiguration(config); err != nil {
		return err
	}

	m.mu.Lock()
	m.config = config
	m.mu.Unlock()
	m.logger.InfoWithContext("configuration loaded", map[string]interface{}{
		"path":  path,
		"pages": len(config.Pages),
	})
	return nil
}

func encodeElement(el *element.VisualElement) (elementDoc, error) {
	doc := elementDoc{
		ID:         el.ID(),
		Name:       el.Name(),
		Kind:       el.Kind(),
		Anchor:     pointDoc{X: el.Anchor().X, Y: el.Anchor().Y},
		Resolution: el.Resolution(),
	}

	if pixel := el.PixelPayload(); pixel != nil {
		pd := &pixelDoc{MatchAll: pixel.MatchAll, SearchRadius: pixel.SearchRadius}
		for _, s := range pixel.Samples {
			pd.Samples = append(pd.Samples, sampleDoc{
				X:         s.X,
				Y:         s.Y,
				Color:     colorDoc{R: s.Color.R, G: s.Color.G, B: s.Color.B},
				Tolerance: s.Tolerance,
			})
		}
		doc.Pixel = pd
	}

	if region := el.RegionPayload(); region != nil {
		encoded, err := cv.EncodePNGBase64(region.Template)
		if err != nil {
			return elementDoc{}, fmt.Errorf("element %s: %w", el.ID(), err)
		}
		doc.Image = &imageDoc{
			Template:     encoded,
			Threshold:    region.Threshold,
			SearchRegion: region.SearchRegion,
		}
	}

	return doc, nil
}

func decodeElement(doc elementDoc) (*element.VisualElement, error) {
	var pixel *element.PixelColorPayload
	var region *element.ImageRegionPayload

	if doc.Pixel != nil {
		pixel = &element.PixelColorPayload{
			MatchAll:     doc.Pixel.MatchAll,
			SearchRadius: doc.Pixel.SearchRadius,
		}
		for _, s := range doc.Pixel.Samples {
			pixel.Samples = append(pixel.Samples, element.PixelSample{
				X:         s.X,
				Y:         s.Y,
				Color:     color.RGBA{R: s.Color.R, G: s.Color.G, B: s.Color.B, A: 255},
				Tolerance: s.Tolerance,
			})
		}
	}

	if doc.Image != nil {
		template, err := cv.DecodePNGBase64(doc.Image.Template)
		if err != nil {
			return nil, fmt.Errorf("element %s: %w", doc.ID, err)
		}
		region = &element.ImageRegionPayload{
			Template:     template,
			Threshold:    doc.Image.Threshold,
			SearchRegion: doc.Image.SearchRegion,
		}
	}

	return element.Restore(doc.ID, doc.Name, doc.Kind,
		image.Point{X: doc.Anchor.X, Y: doc.Anchor.Y}, doc.Resolution, pixel, region)
}
