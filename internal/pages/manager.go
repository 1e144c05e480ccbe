package pages

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"screenflow.dev/screenflow-go/internal/element"
	"screenflow.dev/screenflow-go/internal/events"
	"screenflow.dev/screenflow-go/internal/logging"
)

// ErrAmbiguousPageConfiguration is returned when two pages' identifier sets
// could both be satisfied by the same screen. Such configurations are
// rejected at save time; the usual fix is a negative identifier binding.
var ErrAmbiguousPageConfiguration = errors.New("ambiguous page configuration")

// Manager owns the live PageConfiguration and is the only writer to it.
// Mutations validate their inputs and fail closed: a rejected operation
// leaves the configuration exactly as it was.
type Manager struct {
	mu     sync.RWMutex
	config *PageConfiguration
	bus    events.EventBus
	logger *logging.Logger
}

// NewManager creates a manager around an empty configuration.
func NewManager(name string, bus events.EventBus) *Manager {
	return &Manager{
		config: NewPageConfiguration(name),
		bus:    bus,
		logger: logging.NewLogger("pages"),
	}
}

// NewManagerWith wraps an existing configuration, for example one loaded
// from a document or the store.
func NewManagerWith(config *PageConfiguration, bus events.EventBus) *Manager {
	return &Manager{
		config: config,
		bus:    bus,
		logger: logging.NewLogger("pages"),
	}
}

// Snapshot returns a deep copy of the current configuration for readers.
// The detector and executor work against snapshots so a mid-run edit never
// changes the configuration under them.
func (m *Manager) Snapshot() *PageConfiguration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Clone()
}

// AddElement registers a captured element in the configuration.
func (m *Manager) AddElement(el *element.VisualElement) error {
	if el == nil {
		return fmt.Errorf("element cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.config.Elements[el.ID()]; exists {
		return fmt.Errorf("element %s already registered", el.ID())
	}
	m.config.Elements[el.ID()] = el
	return nil
}

// RemoveElement removes an element. Fails if any page or transition still
// references it.
func (m *Manager) RemoveElement(elementID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.config.Elements[elementID]; !ok {
		return fmt.Errorf("unknown element %s", elementID)
	}

	for _, page := range m.config.Pages {
		for _, binding := range page.Identifiers {
			if binding.ElementID == elementID {
				return fmt.Errorf("element %s is an identifier of page %q", elementID, page.Name)
			}
		}
		for role, id := range page.Interactive {
			if id == elementID {
				return fmt.Errorf("element %s is interactive role %q of page %q", elementID, role, page.Name)
			}
		}
	}
	for _, t := range m.config.Transitions {
		for _, id := range t.ConfirmationElementIDs {
			if id == elementID {
				return fmt.Errorf("element %s confirms transition %s", elementID, t.ID)
			}
		}
	}

	delete(m.config.Elements, elementID)
	return nil
}

// AddPage creates a page with a unique name. Identifier bindings are added
// separately.
func (m *Manager) AddPage(name string) (*Page, error) {
	if name == "" {
		return nil, fmt.Errorf("page name cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.config.PageByName(name); exists {
		return nil, fmt.Errorf("page name %q already in use", name)
	}

	page := &Page{
		ID:          uuid.NewString(),
		Name:        name,
		Interactive: make(map[string]string),
	}
	m.config.Pages = append(m.config.Pages, page)
	return page, nil
}

// AddIdentifier binds an element to a page's signature with an expected
// outcome. ExpectPresent=false identifies the page by the element's absence.
func (m *Manager) AddIdentifier(pageID, elementID string, expectPresent bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	page, ok := m.config.PageByID(pageID)
	if !ok {
		return fmt.Errorf("unknown page %s", pageID)
	}
	if _, ok := m.config.Elements[elementID]; !ok {
		return fmt.Errorf("unknown element %s", elementID)
	}
	for _, binding := range page.Identifiers {
		if binding.ElementID == elementID {
			return fmt.Errorf("element %s already identifies page %q", elementID, page.Name)
		}
	}

	page.Identifiers = append(page.Identifiers, IdentifierBinding{
		ElementID:     elementID,
		ExpectPresent: expectPresent,
	})
	return nil
}

// SetInteractive binds an element to an interactive role on a page.
func (m *Manager) SetInteractive(pageID, role, elementID string) error {
	if role == "" {
		return fmt.Errorf("role name cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	page, ok := m.config.PageByID(pageID)
	if !ok {
		return fmt.Errorf("unknown page %s", pageID)
	}
	if _, ok := m.config.Elements[elementID]; !ok {
		return fmt.Errorf("unknown element %s", elementID)
	}

	page.Interactive[role] = elementID
	return nil
}

// AddTransition creates a directed transition between two existing pages,
// triggered by clicking the named interactive role on the source page.
func (m *Manager) AddTransition(sourcePageID, targetPageID, role string, latency time.Duration, confirmationElementIDs []string) (*Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	source, ok := m.config.PageByID(sourcePageID)
	if !ok {
		return nil, fmt.Errorf("unknown source page %s", sourcePageID)
	}
	if _, ok := m.config.PageByID(targetPageID); !ok {
		return nil, fmt.Errorf("unknown target page %s", targetPageID)
	}
	if _, ok := source.Interactive[role]; !ok {
		return nil, fmt.Errorf("page %q has no interactive role %q", source.Name, role)
	}
	for _, id := range confirmationElementIDs {
		if _, ok := m.config.Elements[id]; !ok {
			return nil, fmt.Errorf("unknown confirmation element %s", id)
		}
	}
	if latency < 0 {
		return nil, fmt.Errorf("expected latency cannot be negative")
	}

	t := &Transition{
		ID:                     uuid.NewString(),
		SourcePageID:           sourcePageID,
		TargetPageID:           targetPageID,
		Action:                 TransitionAction{Role: role},
		ExpectedLatency:        latency,
		ConfirmationElementIDs: confirmationElementIDs,
	}
	m.config.Transitions = append(m.config.Transitions, t)
	return t, nil
}

// RemovePage removes a page and fails if any transition still touches it.
func (m *Manager) RemovePage(pageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.config.Transitions {
		if t.SourcePageID == pageID || t.TargetPageID == pageID {
			return fmt.Errorf("page %s is an endpoint of transition %s", pageID, t.ID)
		}
	}

	for i, page := range m.config.Pages {
		if page.ID == pageID {
			m.config.Pages = append(m.config.Pages[:i], m.config.Pages[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("unknown page %s", pageID)
}

// RemoveTransition removes a transition by ID.
func (m *Manager) RemoveTransition(transitionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, t := range m.config.Transitions {
		if t.ID == transitionID {
			m.config.Transitions = append(m.config.Transitions[:i], m.config.Transitions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("unknown transition %s", transitionID)
}

// Validate checks the whole configuration for structural problems and for
// pairwise page ambiguity. Persisting an invalid configuration is refused.
func (m *Manager) Validate() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ValidateConfiguration(m.config)
}

// ValidateConfiguration checks a configuration without a manager, for
// example right after loading a document.
func ValidateConfiguration(c *PageConfiguration) error {
	names := make(map[string]bool, len(c.Pages))
	ids := make(map[string]bool, len(c.Pages))

	for _, page := range c.Pages {
		if names[page.Name] {
			return fmt.Errorf("duplicate page name %q", page.Name)
		}
		names[page.Name] = true
		if ids[page.ID] {
			return fmt.Errorf("duplicate page ID %s", page.ID)
		}
		ids[page.ID] = true

		if len(page.Identifiers) == 0 {
			return fmt.Errorf("page %q has no identifier elements", page.Name)
		}
		for _, binding := range page.Identifiers {
			if _, ok := c.Elements[binding.ElementID]; !ok {
				return fmt.Errorf("page %q identifies by unknown element %s", page.Name, binding.ElementID)
			}
		}
		for role, elementID := range page.Interactive {
			if _, ok := c.Elements[elementID]; !ok {
				return fmt.Errorf("page %q role %q binds unknown element %s", page.Name, role, elementID)
			}
		}
	}

	for _, t := range c.Transitions {
		source, ok := c.PageByID(t.SourcePageID)
		if !ok {
			return fmt.Errorf("transition %s has unknown source page %s", t.ID, t.SourcePageID)
		}
		if _, ok := c.PageByID(t.TargetPageID); !ok {
			return fmt.Errorf("transition %s has unknown target page %s", t.ID, t.TargetPageID)
		}
		if _, ok := source.Interactive[t.Action.Role]; !ok {
			return fmt.Errorf("transition %s triggers role %q missing on page %q", t.ID, t.Action.Role, source.Name)
		}
		for _, id := range t.ConfirmationElementIDs {
			if _, ok := c.Elements[id]; !ok {
				return fmt.Errorf("transition %s confirms by unknown element %s", t.ID, id)
			}
		}
	}

	for i := 0; i < len(c.Pages); i++ {
		for j := i + 1; j < len(c.Pages); j++ {
			if !pagesConflict(c, c.Pages[i], c.Pages[j]) {
				return fmt.Errorf("%w: pages %q and %q could both match one screen; add a distinguishing or negative identifier",
					ErrAmbiguousPageConfiguration, c.Pages[i].Name, c.Pages[j].Name)
			}
		}
	}

	return nil
}
