package workflow

import (
	"context"
	"fmt"
	"time"
)

// ClickElement clicks an interactive element by its role on a page. The
// page itself is implicitly waited for first, then the element is located
// on the current frame, so input is never injected while another page is
// on screen and the coordinate is never stale. Both waits share the step's
// timeout budget.
type ClickElement struct {
	Page     string `yaml:"page"`
	Role     string `yaml:"role"`
	Timeout  int    `yaml:"timeout,omitempty"`  // seconds, default 10
	Attempts int    `yaml:"attempts,omitempty"` // default 1
}

const defaultClickTimeout = 10

func (a *ClickElement) Validate(b *Builder) error {
	if a.Page == "" {
		return fmt.Errorf("page is required")
	}
	if a.Role == "" {
		return fmt.Errorf("role is required")
	}
	if a.Timeout < 0 || a.Attempts < 0 {
		return fmt.Errorf("timeout and attempts must be non-negative")
	}
	if b.config != nil {
		page, ok := b.config.PageByName(a.Page)
		if !ok {
			return fmt.Errorf("page %q not found in configuration", a.Page)
		}
		if _, ok := page.InteractiveElement(a.Role); !ok {
			return fmt.Errorf("page %q has no interactive role %q", a.Page, a.Role)
		}
	}
	return nil
}

func (a *ClickElement) Build(b *Builder) *Builder {
	timeout := a.Timeout
	if timeout == 0 {
		timeout = defaultClickTimeout
	}
	duration := time.Duration(timeout) * time.Second

	step := Step{
		name: fmt.Sprintf("ClickElement(%s/%s)", a.Page, a.Role),
		execute: func(ctx context.Context, rt *Runtime) error {
			_, el, err := rt.resolveInteractive(a.Page, a.Role)
			if err != nil {
				return err
			}
			deadline := time.Now().Add(duration)
			if _, err := rt.WaitForPage(ctx, a.Page, duration); err != nil {
				return err
			}
			remaining := time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
			return rt.ClickElement(ctx, el, remaining)
		},
		issue:       a.Validate(b),
		timeout:     duration + time.Second,
		maxAttempts: a.Attempts,
	}
	b.steps = append(b.steps, step)
	return b
}
