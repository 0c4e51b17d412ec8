package reporting

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of execution event
type EventType string

const (
	// Category run lifecycle events
	EventTypeRunStarted EventType = "run.started"
	EventTypeRunEnded   EventType = "run.ended"

	// Step events
	EventTypeStepResult EventType = "step.result"
)

// Outcome grades a single step or a whole category run
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
	OutcomeError   Outcome = "error"

	// OutcomeEndedPrematurely is a run outcome only, emitted when a
	// category is interrupted before all of its steps have reported
	OutcomeEndedPrematurely Outcome = "ended-prematurely"
)

// Event is the base interface for all execution events
type Event interface {
	// Type returns the event type
	Type() EventType

	// Category returns the suite category this event belongs to
	Category() string

	// Timestamp returns when the event occurred
	Timestamp() time.Time

	// String returns a human-readable description of the event
	String() string
}

// BaseEvent provides common event functionality
type BaseEvent struct {
	EventType   EventType `json:"type"`
	RunCategory string    `json:"category"`
	EventTime   time.Time `json:"timestamp"`
}

// Type implements Event interface
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Category implements Event interface
func (e BaseEvent) Category() string {
	return e.RunCategory
}

// Timestamp implements Event interface
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// String implements Event interface
func (e BaseEvent) String() string {
	return string(e.EventType) + " for " + e.RunCategory
}

// RunStartedEvent opens a category's execution timeline
type RunStartedEvent struct {
	BaseEvent
}

// StepResultEvent records the outcome of a single step within a category run.
// Output holds the step's captured output, or the skip reason for steps that
// never ran.
type StepResultEvent struct {
	BaseEvent
	StepIndex int           `json:"step_index"`
	StepName  string        `json:"step_name"`
	Outcome   Outcome       `json:"outcome"`
	Duration  time.Duration `json:"duration"`
	Output    string        `json:"output,omitempty"`
}

// String returns a human-readable description
func (e StepResultEvent) String() string {
	return fmt.Sprintf("%s step %d %q: %s", e.RunCategory, e.StepIndex, e.StepName, e.Outcome)
}

// RunEndedEvent closes a category's execution timeline
type RunEndedEvent struct {
	BaseEvent
	Overall Outcome `json:"overall_outcome"`
}

// String returns a human-readable description
func (e RunEndedEvent) String() string {
	return fmt.Sprintf("%s run ended: %s", e.RunCategory, e.Overall)
}

// NewRunStarted creates a new run-started event stamped with the current time
func NewRunStarted(category string) *RunStartedEvent {
	return &RunStartedEvent{
		BaseEvent: BaseEvent{
			EventType:   EventTypeRunStarted,
			RunCategory: category,
			EventTime:   time.Now(),
		},
	}
}

// NewStepResult creates a new step-result event stamped with the current time
func NewStepResult(category string, index int, name string, outcome Outcome, duration time.Duration, output string) *StepResultEvent {
	return &StepResultEvent{
		BaseEvent: BaseEvent{
			EventType:   EventTypeStepResult,
			RunCategory: category,
			EventTime:   time.Now(),
		},
		StepIndex: index,
		StepName:  name,
		Outcome:   outcome,
		Duration:  duration,
		Output:    output,
	}
}

// NewRunEnded creates a new run-ended event stamped with the current time
func NewRunEnded(category string, overall Outcome) *RunEndedEvent {
	return &RunEndedEvent{
		BaseEvent: BaseEvent{
			EventType:   EventTypeRunEnded,
			RunCategory: category,
			EventTime:   time.Now(),
		},
		Overall: overall,
	}
}

// GenerateCorrelationID returns a fresh identifier used to tie one process
// run's log lines and summaries together
func GenerateCorrelationID() string {
	return uuid.NewString()
}
