package workflow

import (
	"context"
	"fmt"
	"time"

	"screenflow.dev/screenflow-go/internal/logging"
	"screenflow.dev/screenflow-go/internal/pages"
)

// StepDefinition is a declarative step parsed from a workflow document.
// Validate checks the step's own fields plus any configuration references;
// Build chains the executable form onto the builder.
type StepDefinition interface {
	Validate(b *Builder) error
	Build(b *Builder) *Builder
}

// Step is one bound, executable step.
type Step struct {
	name        string
	execute     func(context.Context, *Runtime) error
	issue       error         // build-time validation failure, reported at execution
	timeout     time.Duration // per-step deadline (0 = none)
	maxAttempts int           // 0 or 1 = no retries
	retryDelay  time.Duration // pause between attempts (default 1s)
}

// Name returns the step's display name.
func (s Step) Name() string { return s.name }

// Builder assembles a step sequence for execution. The configuration, when
// set, lets steps validate page and role names at build time instead of
// failing mid-run.
type Builder struct {
	steps   []Step
	timeout time.Duration
	config  *pages.PageConfiguration
	logger  *logging.Logger
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{logger: logging.NewLogger("workflow")}
}

// WithConfiguration sets the configuration used for build-time validation.
func (b *Builder) WithConfiguration(config *pages.PageConfiguration) *Builder {
	b.config = config
	return b
}

// WithTimeout sets a deadline for the whole sequence.
func (b *Builder) WithTimeout(d time.Duration) *Builder {
	b.timeout = d
	return b
}

// Steps returns the bound steps.
func (b *Builder) Steps() []Step {
	return b.steps
}

// Execute runs the step sequence against the runtime. Execution stops at
// the first step that exhausts its attempts; the failed step index rides
// along on the error.
func (b *Builder) Execute(ctx context.Context, rt *Runtime) (int, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	for i, step := range b.steps {
		select {
		case <-ctx.Done():
			return i, ctx.Err()
		default:
		}

		if step.issue != nil {
			return i, fmt.Errorf("step %q misconfigured: %w", step.name, step.issue)
		}

		if err := b.executeStepWithRetries(ctx, rt, &step); err != nil {
			return i, err
		}
	}
	return len(b.steps), nil
}

// executeStepWithRetries runs one step under its own deadline, retrying up
// to maxAttempts with retryDelay between attempts.
func (b *Builder) executeStepWithRetries(ctx context.Context, rt *Runtime, step *Step) error {
	maxAttempts := step.maxAttempts
	if maxAttempts == 0 {
		maxAttempts = 1
	}
	retryDelay := step.retryDelay
	if retryDelay == 0 {
		retryDelay = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		stepCtx := ctx
		var cancel context.CancelFunc
		if step.timeout > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, step.timeout)
		}

		err := step.execute(stepCtx, rt)
		if cancel != nil {
			cancel()
		}

		if err == nil {
			if attempt > 1 {
				b.logger.InfoWithContext("step succeeded after retry", map[string]interface{}{
					"step":    step.name,
					"attempt": attempt,
				})
			}
			return nil
		}

		// The outer context ending is not retryable
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		if attempt < maxAttempts {
			b.logger.WarnWithContext("step failed, retrying", map[string]interface{}{
				"step":    step.name,
				"attempt": attempt,
				"of":      maxAttempts,
				"error":   err.Error(),
				"delay":   retryDelay.String(),
			})
			timer := time.NewTimer(retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return fmt.Errorf("step %q failed after %d attempts: %w", step.name, maxAttempts, lastErr)
}
