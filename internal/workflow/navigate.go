package workflow

import (
	"context"
	"fmt"
	"time"
)

// Navigate detects the current page and walks the shortest transition path
// to the target page, confirming each hop.
type Navigate struct {
	To      string `yaml:"to"` // target page name
	Timeout int    `yaml:"timeout,omitempty"` // seconds per hop, default 15
}

func (a *Navigate) Validate(b *Builder) error {
	if a.To == "" {
		return fmt.Errorf("to is required")
	}
	if a.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if b.config != nil {
		if _, ok := b.config.PageByName(a.To); !ok {
			return fmt.Errorf("page %q not found in configuration", a.To)
		}
	}
	return nil
}

func (a *Navigate) Build(b *Builder) *Builder {
	timeout := a.Timeout
	if timeout == 0 {
		timeout = defaultTransitionTimeout
	}
	duration := time.Duration(timeout) * time.Second

	step := Step{
		name: fmt.Sprintf("Navigate(%s)", a.To),
		execute: func(ctx context.Context, rt *Runtime) error {
			return executeNavigate(ctx, rt, a.To, duration)
		},
		issue: a.Validate(b),
	}
	b.steps = append(b.steps, step)
	return b
}

func executeNavigate(ctx context.Context, rt *Runtime, to string, hopTimeout time.Duration) error {
	target, ok := rt.Config.PageByName(to)
	if !ok {
		return fmt.Errorf("unknown page %q", to)
	}

	current, err := rt.DetectCurrent(ctx)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("cannot navigate: current page unknown")
	}
	if current.Page.ID == target.ID {
		return nil
	}

	path := rt.Config.FindPath(current.Page.ID, target.ID)
	if path == nil {
		return fmt.Errorf("no transition path from %q to %q", current.Page.Name, to)
	}

	for i := 0; i+1 < len(path); i++ {
		from, _ := rt.Config.PageByID(path[i])
		next, _ := rt.Config.PageByID(path[i+1])
		if err := executeTransition(ctx, rt, from.Name, next.Name, hopTimeout); err != nil {
			return fmt.Errorf("navigation hop %q -> %q: %w", from.Name, next.Name, err)
		}
	}
	return nil
}
