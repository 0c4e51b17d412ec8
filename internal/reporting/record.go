package reporting

import "time"

// Record is the on-disk JSONL form of one execution event. Run-started
// records additionally carry the collector metadata captured at buffer time
// so a later replay can create the remote execution exactly as a live run
// would have.
type Record struct {
	Seq        int64     `json:"seq"`
	Type       EventType `json:"type"`
	Category   string    `json:"category"`
	Timestamp  time.Time `json:"timestamp"`
	StepIndex  int       `json:"step_index,omitempty"`
	StepName   string    `json:"step_name,omitempty"`
	Outcome    Outcome   `json:"outcome,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	Output     string    `json:"output,omitempty"`
	Overall    Outcome   `json:"overall_outcome,omitempty"`
	Meta       *Metadata `json:"meta,omitempty"`
}

// newRecord converts an event into its on-disk form. Sequence numbers are
// per-category and assigned by the buffered sink.
func newRecord(seq int64, event Event) Record {
	rec := Record{
		Seq:       seq,
		Type:      event.Type(),
		Category:  event.Category(),
		Timestamp: event.Timestamp(),
	}

	switch e := event.(type) {
	case *StepResultEvent:
		rec.StepIndex = e.StepIndex
		rec.StepName = e.StepName
		rec.Outcome = e.Outcome
		rec.DurationMS = e.Duration.Milliseconds()
		rec.Output = e.Output
	case *RunEndedEvent:
		rec.Overall = e.Overall
	}

	return rec
}

// Event reconstructs the in-memory event this record was written from, or
// nil when the record's type is not a known event type. Durations come back
// with millisecond precision.
func (r Record) Event() Event {
	base := BaseEvent{
		EventType:   r.Type,
		RunCategory: r.Category,
		EventTime:   r.Timestamp,
	}

	switch r.Type {
	case EventTypeRunStarted:
		return &RunStartedEvent{BaseEvent: base}
	case EventTypeStepResult:
		return &StepResultEvent{
			BaseEvent: base,
			StepIndex: r.StepIndex,
			StepName:  r.StepName,
			Outcome:   r.Outcome,
			Duration:  time.Duration(r.DurationMS) * time.Millisecond,
			Output:    r.Output,
		}
	case EventTypeRunEnded:
		return &RunEndedEvent{BaseEvent: base, Overall: r.Overall}
	default:
		return nil
	}
}
