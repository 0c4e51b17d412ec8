package reporting

import (
	"context"
	"fmt"
	"sync"

	"github.com/gboutry/defining-acceptance/internal/observer"
	"github.com/gboutry/defining-acceptance/pkg/logging"
)

// CategoryStats is a snapshot of one category's delivery counters
type CategoryStats struct {
	ExecutionID  int64
	Created      bool
	CreateFailed bool
	Delivered    int
	Failed       int
	Reasons      []string
}

// LiveSink posts events to the collector as they arrive. Delivery failures
// are logged and counted, never returned: reporting must not fail the run
// it reports on. Ordering violations are still errors from Emit.
type LiveSink struct {
	client    *observer.Client
	meta      Metadata
	lifecycle *categoryLifecycle

	mu         sync.Mutex
	executions map[string]*executionState
}

type executionState struct {
	id           int64
	created      bool
	createFailed bool
	delivered    int
	failed       int
	reasons      []string
}

// NewLiveSink creates a sink posting against the given collector client
func NewLiveSink(client *observer.Client, meta Metadata) *LiveSink {
	return &LiveSink{
		client:     client,
		meta:       meta,
		lifecycle:  newCategoryLifecycle(),
		executions: make(map[string]*executionState),
	}
}

// Emit implements Sink. Posts run on a fresh context so a category whose
// run context was cancelled can still report its premature end.
func (s *LiveSink) Emit(event Event) error {
	if err := s.lifecycle.admit(event); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := event.(type) {
	case *RunStartedEvent:
		s.startExecution(e.Category())
	case *StepResultEvent:
		s.postResult(e)
	case *RunEndedEvent:
		s.closeExecution(e)
	}

	return nil
}

// Flush implements Sink. Posts happen synchronously inside Emit, so there
// is never pending state to push.
func (s *LiveSink) Flush() error {
	return nil
}

// Stats returns a snapshot of per-category delivery counters
func (s *LiveSink) Stats() map[string]CategoryStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make(map[string]CategoryStats, len(s.executions))
	for category, state := range s.executions {
		stats[category] = CategoryStats{
			ExecutionID:  state.id,
			Created:      state.created,
			CreateFailed: state.createFailed,
			Delivered:    state.delivered,
			Failed:       state.failed,
			Reasons:      append([]string(nil), state.reasons...),
		}
	}
	return stats
}

// state returns the category's execution state, creating it on first use.
// Callers hold s.mu.
func (s *LiveSink) state(category string) *executionState {
	state, ok := s.executions[category]
	if !ok {
		state = &executionState{}
		s.executions[category] = state
	}
	return state
}

// startExecution creates the remote execution for a category. A failed
// create is not retried within this process; later events for the category
// are dropped with a log line.
func (s *LiveSink) startExecution(category string) {
	state := s.state(category)
	if state.created || state.createFailed {
		return
	}

	id, err := s.client.StartExecution(context.Background(), s.meta.StartRequest(category))
	if err != nil {
		state.createFailed = true
		state.fail(fmt.Sprintf("create execution: %v", err))
		logging.Error("LiveSink", err, "Failed to create execution for category %s", category)
		return
	}

	state.id = id
	state.created = true
	state.delivered++
	logging.Info("LiveSink", "Created execution %d for category %s (%s)", id, category, s.meta.TestPlan(category))
}

// postResult posts one step's result row against the category's execution
func (s *LiveSink) postResult(e *StepResultEvent) {
	category := e.Category()
	state := s.state(category)
	if !state.created {
		state.fail(fmt.Sprintf("step %q: no execution", e.StepName))
		logging.Debug("LiveSink", "Dropping step result %q for category %s: no execution", e.StepName, category)
		return
	}

	result := observer.TestResult{
		Name:     e.StepName,
		Status:   resultStatus(e.Outcome),
		Category: category,
		IOLog:    e.Output,
	}
	if err := s.client.PostResults(context.Background(), state.id, []observer.TestResult{result}); err != nil {
		state.fail(fmt.Sprintf("step %q: %v", e.StepName, err))
		logging.Error("LiveSink", err, "Failed to post result %q for category %s", e.StepName, category)
		return
	}

	state.delivered++
}

// closeExecution patches the category's execution to its terminal status
func (s *LiveSink) closeExecution(e *RunEndedEvent) {
	category := e.Category()
	state := s.state(category)
	if !state.created {
		state.fail("close: no execution")
		logging.Debug("LiveSink", "Dropping run end for category %s: no execution", category)
		return
	}

	status := executionStatus(e.Overall)
	if err := s.client.PatchExecution(context.Background(), state.id, status); err != nil {
		state.fail(fmt.Sprintf("close %s: %v", status, err))
		logging.Error("LiveSink", err, "Failed to close execution %d for category %s", state.id, category)
		return
	}

	state.delivered++
	logging.Info("LiveSink", "Closed execution %d for category %s as %s", state.id, category, status)
}

func (st *executionState) fail(reason string) {
	st.failed++
	st.reasons = append(st.reasons, reason)
}

// resultStatus maps a step outcome to the collector's result status
func resultStatus(outcome Outcome) string {
	switch outcome {
	case OutcomePassed:
		return observer.ResultPassed
	case OutcomeSkipped:
		return observer.ResultSkipped
	default:
		return observer.ResultFailed
	}
}

// executionStatus maps a run outcome to the collector's execution status
func executionStatus(outcome Outcome) string {
	switch outcome {
	case OutcomePassed:
		return observer.ExecutionPassed
	case OutcomeEndedPrematurely:
		return observer.ExecutionEndedPrematurely
	default:
		return observer.ExecutionFailed
	}
}
