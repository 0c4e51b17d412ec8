package observer

import "time"

// Execution statuses understood by the collector.
const (
	ExecutionInProgress       = "IN_PROGRESS"
	ExecutionPassed           = "PASSED"
	ExecutionFailed           = "FAILED"
	ExecutionEndedPrematurely = "ENDED_PREMATURELY"
)

// Result statuses understood by the collector.
const (
	ResultPassed  = "PASSED"
	ResultFailed  = "FAILED"
	ResultSkipped = "SKIPPED"
)

// RelevantLink is a labelled URL attached to an execution.
type RelevantLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// StartRequest is the body of the start-test call. The collector matches
// name/revision/arch against known artefacts, so these fields describe the
// snap under test rather than the harness.
type StartRequest struct {
	Name           string         `json:"name"`
	Version        string         `json:"version"`
	Arch           string         `json:"arch"`
	Environment    string         `json:"environment"`
	TestPlan       string         `json:"test_plan"`
	InitialStatus  string         `json:"initial_status"`
	RelevantLinks  []RelevantLink `json:"relevant_links,omitempty"`
	Family         string         `json:"family"`
	Revision       int            `json:"revision"`
	Track          string         `json:"track"`
	Store          string         `json:"store"`
	ExecutionStage string         `json:"execution_stage"`
	CILink         string         `json:"ci_link,omitempty"`
}

// TestResult is one result row posted under an execution.
type TestResult struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Category string `json:"category"`
	IOLog    string `json:"io_log"`
}

// StatusEvent is one milestone posted to an execution's status updates.
type StatusEvent struct {
	EventName string    `json:"event_name"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail"`
}
