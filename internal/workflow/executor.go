package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"screenflow.dev/screenflow-go/internal/detector"
	"screenflow.dev/screenflow-go/internal/events"
	"screenflow.dev/screenflow-go/internal/logging"
	"screenflow.dev/screenflow-go/internal/pages"
	"screenflow.dev/screenflow-go/internal/screen"
)

// Failure kinds reported on a run, for history and triage.
const (
	FailurePageNotDetected    = "page_not_detected"
	FailureActionNotConfirmed = "action_not_confirmed"
	FailureCaptureUnavailable = "capture_unavailable"
	FailureCancelled          = "cancelled"
	FailureStepError          = "step_error"
)

// RunReport summarizes one workflow execution.
type RunReport struct {
	RunID          string
	Workflow       string
	StartedAt      time.Time
	FinishedAt     time.Time
	Succeeded      bool
	StepsCompleted int
	FailedStep     string
	FailureKind    string
	FailureReason  string
	Outputs        map[string]interface{}
}

// Executor runs workflows against a runtime, emitting progress events and
// optionally persisting run history.
type Executor struct {
	bus    events.EventBus
	store  *pages.Store
	logger *logging.Logger
}

// NewExecutor creates an executor. The store may be nil to skip history.
func NewExecutor(bus events.EventBus, store *pages.Store) *Executor {
	return &Executor{
		bus:    bus,
		store:  store,
		logger: logging.NewLogger("executor"),
	}
}

// Run executes every step of the workflow in order against the runtime.
// The report is returned alongside the first failing step's error; a report
// is produced even on failure.
func (e *Executor) Run(ctx context.Context, rt *Runtime, wf *Workflow) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.NewString(),
		Workflow:  wf.Name,
		StartedAt: time.Now(),
		Outputs:   rt.Outputs,
	}

	builder := NewBuilder().WithConfiguration(rt.Config)
	for _, def := range wf.Steps {
		def.Build(builder)
	}
	steps := builder.Steps()

	e.logger.InfoWithContext("run started", map[string]interface{}{
		"run_id":   report.RunID,
		"workflow": wf.Name,
		"steps":    len(steps),
	})

	var runErr error
	for i := range steps {
		step := &steps[i]

		if err := ctx.Err(); err != nil {
			runErr = err
			report.FailedStep = step.name
			break
		}

		if e.bus != nil {
			e.bus.Publish(events.NewStepStartedEvent(report.RunID, i, step.name))
		}

		var err error
		if step.issue != nil {
			err = step.issue
		} else {
			err = builder.executeStepWithRetries(ctx, rt, step)
		}

		if err != nil {
			runErr = err
			report.FailedStep = step.name
			if e.bus != nil {
				e.bus.Publish(events.NewStepFailedEvent(report.RunID, i, step.name, err))
			}
			e.logger.Error("step failed", err)
			break
		}

		report.StepsCompleted++
		if e.bus != nil {
			e.bus.Publish(events.NewStepSucceededEvent(report.RunID, i, step.name))
		}
	}

	report.FinishedAt = time.Now()
	report.Succeeded = runErr == nil
	if runErr != nil {
		report.FailureKind = classifyFailure(runErr)
		report.FailureReason = runErr.Error()
	}

	if e.bus != nil {
		e.bus.Publish(events.NewRunCompletedEvent(report.RunID, report.Succeeded, report.StepsCompleted))
	}
	e.logger.InfoWithContext("run completed", map[string]interface{}{
		"run_id":    report.RunID,
		"succeeded": report.Succeeded,
		"steps":     report.StepsCompleted,
		"duration":  report.FinishedAt.Sub(report.StartedAt).String(),
	})

	e.persist(rt, report)
	return report, runErr
}

func (e *Executor) persist(rt *Runtime, report *RunReport) {
	if e.store == nil {
		return
	}
	_, err := e.store.RecordRun(pages.RunRecord{
		Configuration:  rt.Config.Name,
		Workflow:       report.Workflow,
		StartedAt:      report.StartedAt,
		FinishedAt:     report.FinishedAt,
		Succeeded:      report.Succeeded,
		StepsCompleted: report.StepsCompleted,
		FailedStep:     report.FailedStep,
		FailureReason:  report.FailureReason,
	})
	if err != nil {
		e.logger.Error("failed to persist run history", err)
	}
}

// classifyFailure maps an error to a coarse failure kind.
func classifyFailure(err error) string {
	switch {
	case errors.Is(err, detector.ErrPageNotDetected):
		return FailurePageNotDetected
	case errors.Is(err, ErrActionNotConfirmed):
		return FailureActionNotConfirmed
	case errors.Is(err, screen.ErrCaptureUnavailable), errors.Is(err, screen.ErrInjectionUnavailable):
		return FailureCaptureUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FailureCancelled
	default:
		return FailureStepError
	}
}
