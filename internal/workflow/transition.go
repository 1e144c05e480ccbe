package workflow

import (
	"context"
	"fmt"
	"time"
)

// Transition follows a configured transition: verify the source page is
// current, click the triggering element, wait out the expected latency,
// then confirm arrival. Arrival is confirmed by the transition's
// confirmation elements when it has any, otherwise by detecting the target
// page.
type Transition struct {
	From    string `yaml:"from"` // source page name
	To      string `yaml:"to"`   // target page name
	Timeout int    `yaml:"timeout,omitempty"` // seconds to confirm arrival, default 15
}

const defaultTransitionTimeout = 15

func (a *Transition) Validate(b *Builder) error {
	if a.From == "" || a.To == "" {
		return fmt.Errorf("from and to are required")
	}
	if a.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if b.config != nil {
		source, ok := b.config.PageByName(a.From)
		if !ok {
			return fmt.Errorf("page %q not found in configuration", a.From)
		}
		target, ok := b.config.PageByName(a.To)
		if !ok {
			return fmt.Errorf("page %q not found in configuration", a.To)
		}
		if _, ok := b.config.TransitionBetween(source.ID, target.ID); !ok {
			return fmt.Errorf("no transition configured from %q to %q", a.From, a.To)
		}
	}
	return nil
}

func (a *Transition) Build(b *Builder) *Builder {
	timeout := a.Timeout
	if timeout == 0 {
		timeout = defaultTransitionTimeout
	}
	duration := time.Duration(timeout) * time.Second

	step := Step{
		name: fmt.Sprintf("Transition(%s -> %s)", a.From, a.To),
		execute: func(ctx context.Context, rt *Runtime) error {
			return executeTransition(ctx, rt, a.From, a.To, duration)
		},
		issue:   a.Validate(b),
		timeout: duration + time.Second,
	}
	b.steps = append(b.steps, step)
	return b
}

// executeTransition is shared between the Transition and Navigate steps.
func executeTransition(ctx context.Context, rt *Runtime, from, to string, timeout time.Duration) error {
	source, ok := rt.Config.PageByName(from)
	if !ok {
		return fmt.Errorf("unknown page %q", from)
	}
	target, ok := rt.Config.PageByName(to)
	if !ok {
		return fmt.Errorf("unknown page %q", to)
	}
	transition, ok := rt.Config.TransitionBetween(source.ID, target.ID)
	if !ok {
		return fmt.Errorf("no transition configured from %q to %q", from, to)
	}

	// The source page must actually be on screen before injecting input.
	if _, err := rt.WaitForPage(ctx, from, timeout); err != nil {
		return err
	}

	_, el, err := rt.resolveInteractive(from, transition.Action.Role)
	if err != nil {
		return err
	}
	if err := rt.ClickElement(ctx, el, timeout); err != nil {
		return err
	}

	if transition.ExpectedLatency > 0 {
		if err := rt.sleep(ctx, transition.ExpectedLatency); err != nil {
			return err
		}
	}

	if len(transition.ConfirmationElementIDs) > 0 {
		return rt.WaitForElements(ctx, transition.ConfirmationElementIDs, timeout)
	}
	if _, err := rt.WaitForPage(ctx, to, timeout); err != nil {
		return fmt.Errorf("%w: %v", ErrActionNotConfirmed, err)
	}
	return nil
}
