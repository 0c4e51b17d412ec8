package runner

import (
	"context"
	"strings"
	"time"

	"github.com/gboutry/defining-acceptance/internal/clients"
	"github.com/gboutry/defining-acceptance/internal/reporting"
	"github.com/gboutry/defining-acceptance/internal/scenario"
	"github.com/gboutry/defining-acceptance/pkg/logging"
)

// StepOutcome is what one executed step produced
type StepOutcome struct {
	Outcome reporting.Outcome
	Output  string
}

// Executor runs scenario steps against the testbed. Implementations fold
// every failure mode into the outcome: passed, failed for a non-zero exit,
// error when the step could not be driven at all.
type Executor interface {
	ExecuteStep(ctx context.Context, step scenario.Step) StepOutcome
}

// MockExecutor pretends every step passes. It backs dry runs where the
// harness wiring is under test rather than the cloud.
type MockExecutor struct {
	// Delay stretches each step so timing behaviour is observable
	Delay time.Duration
}

// ExecuteStep implements Executor
func (e *MockExecutor) ExecuteStep(ctx context.Context, step scenario.Step) StepOutcome {
	if e.Delay > 0 {
		select {
		case <-time.After(e.Delay):
		case <-ctx.Done():
			return StepOutcome{Outcome: reporting.OutcomeError, Output: ctx.Err().Error()}
		}
	}

	command := clients.QuoteCommand(step.Command)
	logging.Info("MockExecutor", "Pretending to run %q", command)
	return StepOutcome{Outcome: reporting.OutcomePassed, Output: "mock: " + command}
}

// commandRunner is the slice of the SSH client the executor needs
type commandRunner interface {
	Run(ctx context.Context, host string, argv []string, timeout time.Duration) (clients.CommandResult, error)
}

// SSHExecutor runs step commands on one machine over SSH, honoring each
// step's own timeout.
type SSHExecutor struct {
	runner commandRunner
	host   string
}

// NewSSHExecutor creates an executor running steps on host
func NewSSHExecutor(runner *clients.SSHRunner, host string) *SSHExecutor {
	return &SSHExecutor{runner: runner, host: host}
}

// ExecuteStep implements Executor
func (e *SSHExecutor) ExecuteStep(ctx context.Context, step scenario.Step) StepOutcome {
	result, err := e.runner.Run(ctx, e.host, step.Command, step.CommandTimeout())
	if err != nil {
		return StepOutcome{Outcome: reporting.OutcomeError, Output: err.Error()}
	}

	output := combineOutput(result)
	if !result.Succeeded() {
		return StepOutcome{Outcome: reporting.OutcomeFailed, Output: output}
	}
	return StepOutcome{Outcome: reporting.OutcomePassed, Output: output}
}

// combineOutput flattens a command's streams into one log blob, stderr
// labelled so interleaving stays readable.
func combineOutput(result clients.CommandResult) string {
	var b strings.Builder
	if result.Stdout != "" {
		b.WriteString(result.Stdout)
	}
	if result.Stderr != "" {
		if b.Len() > 0 && !strings.HasSuffix(result.Stdout, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("stderr:\n")
		b.WriteString(result.Stderr)
	}
	return b.String()
}
