package reporting

import (
	"errors"
	"fmt"
	"sync"
)

// Contract errors for event ordering violations. These surface to the
// caller through Emit, unlike delivery failures which stay in the logs.
var (
	ErrRunAlreadyStarted = errors.New("run already started for category")
	ErrRunNotStarted     = errors.New("run not started for category")
	ErrRunClosed         = errors.New("run already ended for category")
)

// runState tracks where a category is in its run lifecycle
type runState int

const (
	runUnstarted runState = iota
	runActive
	runClosed
)

// categoryLifecycle is the per-category ordering guard shared by every sink:
// exactly one run-started, step results only while active, exactly one
// terminal run-ended, nothing after that.
type categoryLifecycle struct {
	mu     sync.Mutex
	states map[string]runState
}

func newCategoryLifecycle() *categoryLifecycle {
	return &categoryLifecycle{
		states: make(map[string]runState),
	}
}

// admit validates the event against its category's current state and
// advances the state on success.
func (l *categoryLifecycle) admit(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	category := event.Category()
	state := l.states[category]

	switch event.Type() {
	case EventTypeRunStarted:
		switch state {
		case runActive:
			return fmt.Errorf("category %s: %w", category, ErrRunAlreadyStarted)
		case runClosed:
			return fmt.Errorf("category %s: %w", category, ErrRunClosed)
		}
		l.states[category] = runActive

	case EventTypeStepResult:
		switch state {
		case runUnstarted:
			return fmt.Errorf("category %s: %w", category, ErrRunNotStarted)
		case runClosed:
			return fmt.Errorf("category %s: %w", category, ErrRunClosed)
		}

	case EventTypeRunEnded:
		switch state {
		case runUnstarted:
			return fmt.Errorf("category %s: %w", category, ErrRunNotStarted)
		case runClosed:
			return fmt.Errorf("category %s: %w", category, ErrRunClosed)
		}
		l.states[category] = runClosed

	default:
		return fmt.Errorf("unknown event type %q for category %s", event.Type(), category)
	}

	return nil
}
