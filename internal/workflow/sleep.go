package workflow

import (
	"context"
	"fmt"
	"time"
)

// Sleep pauses the workflow for a fixed duration.
type Sleep struct {
	Milliseconds int `yaml:"ms"`
}

func (a *Sleep) Validate(b *Builder) error {
	if a.Milliseconds <= 0 {
		return fmt.Errorf("ms must be greater than 0")
	}
	return nil
}

func (a *Sleep) Build(b *Builder) *Builder {
	step := Step{
		name: fmt.Sprintf("Sleep(%dms)", a.Milliseconds),
		execute: func(ctx context.Context, rt *Runtime) error {
			return rt.sleep(ctx, time.Duration(a.Milliseconds)*time.Millisecond)
		},
		issue: a.Validate(b),
	}
	b.steps = append(b.steps, step)
	return b
}
