package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gboutry/defining-acceptance/internal/clients"
	"github.com/gboutry/defining-acceptance/internal/reporting"
	"github.com/gboutry/defining-acceptance/internal/scenario"
)

// fakeCommandRunner scripts what the SSH layer would have returned
type fakeCommandRunner struct {
	result clients.CommandResult
	err    error

	gotHost    string
	gotArgv    []string
	gotTimeout time.Duration
}

func (f *fakeCommandRunner) Run(_ context.Context, host string, argv []string, timeout time.Duration) (clients.CommandResult, error) {
	f.gotHost = host
	f.gotArgv = argv
	f.gotTimeout = timeout
	if f.err != nil {
		return clients.CommandResult{}, f.err
	}
	return f.result, nil
}

func TestSSHExecutorPassesOnZeroExit(t *testing.T) {
	fake := &fakeCommandRunner{result: clients.CommandResult{ExitCode: 0, Stdout: "active\n"}}
	executor := &SSHExecutor{runner: fake, host: "10.20.30.5"}

	step := scenario.Step{Name: "check service", Command: []string{"systemctl", "is-active", "snap.openstack.clusterd"}}
	outcome := executor.ExecuteStep(context.Background(), step)

	assert.Equal(t, reporting.OutcomePassed, outcome.Outcome)
	assert.Equal(t, "active\n", outcome.Output)
	assert.Equal(t, "10.20.30.5", fake.gotHost)
	assert.Equal(t, step.Command, fake.gotArgv)
	assert.Equal(t, scenario.DefaultStepTimeout, fake.gotTimeout, "a step without its own timeout gets the default")
}

func TestSSHExecutorFailsOnNonZeroExit(t *testing.T) {
	fake := &fakeCommandRunner{result: clients.CommandResult{
		ExitCode: 2,
		Stdout:   "checking quota",
		Stderr:   "quota exceeded",
	}}
	executor := &SSHExecutor{runner: fake, host: "10.20.30.5"}

	outcome := executor.ExecuteStep(context.Background(), scenario.Step{Name: "allocate", Command: []string{"openstack", "server", "create"}})

	assert.Equal(t, reporting.OutcomeFailed, outcome.Outcome)
	assert.Equal(t, "checking quota\nstderr:\nquota exceeded", outcome.Output)
}

func TestSSHExecutorErrorsWhenCommandCannotRun(t *testing.T) {
	fake := &fakeCommandRunner{err: errors.New("connecting to 10.20.30.5:22: connection refused")}
	executor := &SSHExecutor{runner: fake, host: "10.20.30.5"}

	outcome := executor.ExecuteStep(context.Background(), scenario.Step{Name: "ping", Command: []string{"true"}})

	assert.Equal(t, reporting.OutcomeError, outcome.Outcome)
	assert.Contains(t, outcome.Output, "connection refused")
}

func TestSSHExecutorUsesStepTimeout(t *testing.T) {
	fake := &fakeCommandRunner{}
	executor := &SSHExecutor{runner: fake, host: "10.20.30.5"}

	step := scenario.Step{Name: "long migration", Command: []string{"openstack", "server", "migrate"}, Timeout: "45m"}
	executor.ExecuteStep(context.Background(), step)

	require.Equal(t, 45*time.Minute, fake.gotTimeout)
}

func TestCombineOutput(t *testing.T) {
	tests := []struct {
		name   string
		result clients.CommandResult
		want   string
	}{
		{
			name:   "stdout only",
			result: clients.CommandResult{Stdout: "all good\n"},
			want:   "all good\n",
		},
		{
			name:   "stderr only",
			result: clients.CommandResult{Stderr: "warning: deprecated flag"},
			want:   "stderr:\nwarning: deprecated flag",
		},
		{
			name:   "both streams",
			result: clients.CommandResult{Stdout: "partial", Stderr: "disk full"},
			want:   "partial\nstderr:\ndisk full",
		},
		{
			name:   "stdout keeps its trailing newline",
			result: clients.CommandResult{Stdout: "done\n", Stderr: "note"},
			want:   "done\nstderr:\nnote",
		},
		{
			name:   "empty command",
			result: clients.CommandResult{},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, combineOutput(tt.result))
		})
	}
}
