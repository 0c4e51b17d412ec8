package reporting

// Sink consumes ordered execution events for one acceptance run.
// Implementations share the same per-category ordering contract and differ
// only in where events go.
type Sink interface {
	// Emit accepts one event. Ordering violations are returned as errors;
	// how delivery failures surface depends on the implementation.
	Emit(event Event) error

	// Flush forces any pending state out of the sink.
	Flush() error
}

// NullSink discards events while still enforcing the ordering contract, so
// misordered emission is caught even when reporting is disabled.
type NullSink struct {
	lifecycle *categoryLifecycle
}

// NewNullSink creates a sink that validates and drops every event
func NewNullSink() *NullSink {
	return &NullSink{
		lifecycle: newCategoryLifecycle(),
	}
}

// Emit implements Sink
func (s *NullSink) Emit(event Event) error {
	return s.lifecycle.admit(event)
}

// Flush implements Sink
func (s *NullSink) Flush() error {
	return nil
}
