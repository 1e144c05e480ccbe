package pages

import (
	"time"

	"screenflow.dev/screenflow-go/internal/element"
)

// IdentifierBinding pairs an element with its expected match outcome.
// ExpectPresent=false gives a negative signature: the page is identified by
// the absence of the element.
type IdentifierBinding struct {
	ElementID     string
	ExpectPresent bool
}

// Page is a named application state, identified by a signature of elements
// and exposing interactive elements a workflow may act on.
type Page struct {
	ID          string
	Name        string
	Identifiers []IdentifierBinding
	Interactive map[string]string // role name -> element ID
}

// InteractiveElement resolves a role name to its element ID.
func (p *Page) InteractiveElement(role string) (string, bool) {
	id, ok := p.Interactive[role]
	return id, ok
}

// TransitionAction is the input that triggers a transition: clicking one of
// the source page's interactive elements.
type TransitionAction struct {
	Role string
}

// Transition is a directed, action-triggered move from one page to another.
type Transition struct {
	ID           string
	SourcePageID string
	TargetPageID string
	Action       TransitionAction

	// ExpectedLatency hints how long the target page takes to appear.
	ExpectedLatency time.Duration

	// ConfirmationElementIDs optionally name elements on the target page
	// that confirm arrival. Empty means the target page identifiers are
	// used.
	ConfirmationElementIDs []string
}

// PageConfiguration is the aggregate root owning the pages, transitions and
// elements for one target application. It is persisted as a single unit and
// mutated only through the Manager.
type PageConfiguration struct {
	Name        string
	Elements    map[string]*element.VisualElement
	Pages       []*Page // declaration order is the detection tiebreak
	Transitions []*Transition
}

// NewPageConfiguration creates an empty configuration.
func NewPageConfiguration(name string) *PageConfiguration {
	return &PageConfiguration{
		Name:     name,
		Elements: make(map[string]*element.VisualElement),
	}
}

// PageByID returns the page with the given ID.
func (c *PageConfiguration) PageByID(id string) (*Page, bool) {
	for _, page := range c.Pages {
		if page.ID == id {
			return page, true
		}
	}
	return nil, false
}

// PageByName returns the page with the given name.
func (c *PageConfiguration) PageByName(name string) (*Page, bool) {
	for _, page := range c.Pages {
		if page.Name == name {
			return page, true
		}
	}
	return nil, false
}

// TransitionByID returns the transition with the given ID.
func (c *PageConfiguration) TransitionByID(id string) (*Transition, bool) {
	for _, t := range c.Transitions {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// TransitionBetween returns the first transition from source to target.
func (c *PageConfiguration) TransitionBetween(sourceID, targetID string) (*Transition, bool) {
	for _, t := range c.Transitions {
		if t.SourcePageID == sourceID && t.TargetPageID == targetID {
			return t, true
		}
	}
	return nil, false
}

// Element returns the element with the given ID.
func (c *PageConfiguration) Element(id string) (*element.VisualElement, bool) {
	el, ok := c.Elements[id]
	return el, ok
}

// Clone returns a deep copy of the configuration structure. Elements are
// immutable and shared between copies.
func (c *PageConfiguration) Clone() *PageConfiguration {
	clone := NewPageConfiguration(c.Name)

	for id, el := range c.Elements {
		clone.Elements[id] = el
	}

	clone.Pages = make([]*Page, len(c.Pages))
	for i, page := range c.Pages {
		identifiers := make([]IdentifierBinding, len(page.Identifiers))
		copy(identifiers, page.Identifiers)

		interactive := make(map[string]string, len(page.Interactive))
		for role, elementID := range page.Interactive {
			interactive[role] = elementID
		}

		clone.Pages[i] = &Page{
			ID:          page.ID,
			Name:        page.Name,
			Identifiers: identifiers,
			Interactive: interactive,
		}
	}

	clone.Transitions = make([]*Transition, len(c.Transitions))
	for i, t := range c.Transitions {
		confirmations := make([]string, len(t.ConfirmationElementIDs))
		copy(confirmations, t.ConfirmationElementIDs)

		clone.Transitions[i] = &Transition{
			ID:                     t.ID,
			SourcePageID:           t.SourcePageID,
			TargetPageID:           t.TargetPageID,
			Action:                 t.Action,
			ExpectedLatency:        t.ExpectedLatency,
			ConfirmationElementIDs: confirmations,
		}
	}

	return clone
}

// FindPath returns the shortest chain of page IDs from one page to another
// following transitions, or nil if no path exists. BFS over the directed
// transition graph.
func (c *PageConfiguration) FindPath(fromPageID, toPageID string) []string {
	if fromPageID == toPageID {
		return []string{fromPageID}
	}

	type node struct {
		id   string
		path []string
	}

	queue := []node{{id: fromPageID, path: []string{fromPageID}}}
	visited := map[string]bool{fromPageID: true}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, t := range c.Transitions {
			if t.SourcePageID != current.id {
				continue
			}
			if t.TargetPageID == toPageID {
				return append(current.path, toPageID)
			}
			if !visited[t.TargetPageID] {
				visited[t.TargetPageID] = true
				next := make([]string, len(current.path), len(current.path)+1)
				copy(next, current.path)
				queue = append(queue, node{id: t.TargetPageID, path: append(next, t.TargetPageID)})
			}
		}
	}

	return nil
}
