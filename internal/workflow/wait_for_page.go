package workflow

import (
	"context"
	"fmt"
	"time"
)

// WaitForPage blocks until the named page is detected or the timeout
// elapses.
type WaitForPage struct {
	Page    string `yaml:"page"`
	Timeout int    `yaml:"timeout"` // seconds
}

func (a *WaitForPage) Validate(b *Builder) error {
	if a.Page == "" {
		return fmt.Errorf("page is required")
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	if b.config != nil {
		if _, ok := b.config.PageByName(a.Page); !ok {
			return fmt.Errorf("page %q not found in configuration", a.Page)
		}
	}
	return nil
}

func (a *WaitForPage) Build(b *Builder) *Builder {
	duration := time.Duration(a.Timeout) * time.Second
	step := Step{
		name: fmt.Sprintf("WaitForPage(%s, %ds)", a.Page, a.Timeout),
		execute: func(ctx context.Context, rt *Runtime) error {
			_, err := rt.WaitForPage(ctx, a.Page, duration)
			return err
		},
		issue:   a.Validate(b),
		timeout: duration + time.Second,
	}
	b.steps = append(b.steps, step)
	return b
}
