package events

import "time"

// EventType represents different types of events in the system
type EventType string

const (
	// Capture events
	EventTypeCaptureStarted   EventType = "capture.started"
	EventTypeElementCaptured  EventType = "capture.element_captured"
	EventTypeCaptureCancelled EventType = "capture.cancelled"
	EventTypeCaptureRejected  EventType = "capture.rejected"

	// Detection events
	EventTypePageDetected  EventType = "detector.page_detected"
	EventTypePageAmbiguous EventType = "detector.page_ambiguous"

	// Workflow events
	EventTypeStepStarted   EventType = "workflow.step_started"
	EventTypeStepSucceeded EventType = "workflow.step_succeeded"
	EventTypeStepFailed    EventType = "workflow.step_failed"
	EventTypeRunCompleted  EventType = "workflow.run_completed"

	// Configuration events
	EventTypeConfigSaved    EventType = "pages.config_saved"
	EventTypeConfigRejected EventType = "pages.config_rejected"

	// Error events
	EventTypeError EventType = "error"
)

// Event represents a system event with metadata
type Event struct {
	Type      EventType
	Source    string // Component that emitted the event (e.g. "overlay", "executor")
	Timestamp time.Time
	Data      map[string]interface{}
}

// EventHandler is a function that processes an event
type EventHandler func(Event)

// SubscriptionID uniquely identifies a subscription
type SubscriptionID int64

// EventBus defines the interface for event pub/sub
type EventBus interface {
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID
	Unsubscribe(id SubscriptionID)
	Publish(event Event)
	Stop()
}

// Helper constructors for common events

// NewElementCapturedEvent creates an element captured event
func NewElementCapturedEvent(elementID, kind string) Event {
	return Event{
		Type:      EventTypeElementCaptured,
		Source:    "overlay",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"element_id": elementID,
			"kind":       kind,
		},
	}
}

// NewCaptureCancelledEvent creates a capture cancelled event
func NewCaptureCancelledEvent(kind string) Event {
	return Event{
		Type:      EventTypeCaptureCancelled,
		Source:    "overlay",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"kind": kind,
		},
	}
}

// NewPageDetectedEvent creates a page detected event
func NewPageDetectedEvent(pageID, pageName string, confidence float64) Event {
	return Event{
		Type:      EventTypePageDetected,
		Source:    "detector",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"page_id":    pageID,
			"page_name":  pageName,
			"confidence": confidence,
		},
	}
}

// NewStepStartedEvent creates a workflow step started event
func NewStepStartedEvent(runID string, index int, kind string) Event {
	return Event{
		Type:      EventTypeStepStarted,
		Source:    "executor",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"run_id": runID,
			"index":  index,
			"kind":   kind,
		},
	}
}

// NewStepSucceededEvent creates a workflow step succeeded event
func NewStepSucceededEvent(runID string, index int, kind string) Event {
	return Event{
		Type:      EventTypeStepSucceeded,
		Source:    "executor",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"run_id": runID,
			"index":  index,
			"kind":   kind,
		},
	}
}

// NewStepFailedEvent creates a workflow step failed event
func NewStepFailedEvent(runID string, index int, kind string, err error) Event {
	return Event{
		Type:      EventTypeStepFailed,
		Source:    "executor",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"run_id": runID,
			"index":  index,
			"kind":   kind,
			"error":  err.Error(),
		},
	}
}

// NewRunCompletedEvent creates a workflow run completed event
func NewRunCompletedEvent(runID string, succeeded bool, stepsRun int) Event {
	return Event{
		Type:      EventTypeRunCompleted,
		Source:    "executor",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"run_id":    runID,
			"succeeded": succeeded,
			"steps_run": stepsRun,
		},
	}
}

// NewErrorEvent creates an error event
func NewErrorEvent(source string, err error, metadata map[string]interface{}) Event {
	data := map[string]interface{}{
		"error": err.Error(),
	}
	for k, v := range metadata {
		data[k] = v
	}

	return Event{
		Type:      EventTypeError,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
	}
}
