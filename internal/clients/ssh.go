package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/gboutry/defining-acceptance/pkg/logging"
)

// For mocking in tests
var osReadFile = os.ReadFile

const (
	connectTimeout = 30 * time.Second

	// DefaultCommandTimeout bounds a remote command when the caller
	// passes no timeout
	DefaultCommandTimeout = 10 * time.Minute

	sshPort = "22"
)

// CommandResult is the outcome of one remote command
type CommandResult struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
}

// Succeeded reports whether the command exited zero
func (r CommandResult) Succeeded() bool {
	return r.ExitCode == 0
}

// Check returns a CommandError when the command exited non-zero
func (r CommandResult) Check() error {
	if r.ExitCode != 0 {
		return &CommandError{Result: r}
	}
	return nil
}

// CommandError reports a remote command that exited non-zero
type CommandError struct {
	Result CommandResult
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command failed (rc=%d): %s\nstdout: %s\nstderr: %s",
		e.Result.ExitCode, e.Result.Command, e.Result.Stdout, e.Result.Stderr)
}

var safeArg = regexp.MustCompile(`^[a-zA-Z0-9_@%+=:,./-]+$`)

// shellQuote quotes one argument for a POSIX shell
func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	if safeArg.MatchString(arg) {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
}

// QuoteCommand joins argv into a single shell-safe command line
func QuoteCommand(argv []string) string {
	parts := make([]string, len(argv))
	for i, arg := range argv {
		parts[i] = shellQuote(arg)
	}
	return strings.Join(parts, " ")
}

// SSHRunner executes commands and transfers files on remote machines. A new
// connection is opened for each operation and closed immediately after, so
// a flapping machine only affects the operation that touched it.
type SSHRunner struct {
	user   string
	signer ssh.Signer
}

// NewSSHRunner loads the private key and returns a runner authenticating
// as user
func NewSSHRunner(user, privateKeyPath string) (*SSHRunner, error) {
	raw, err := osReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key %s: %w", privateKeyPath, err)
	}

	signer, err := ssh.ParsePrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing private key %s: %w", privateKeyPath, err)
	}

	return &SSHRunner{user: user, signer: signer}, nil
}

// hostAddress appends the default SSH port unless the host already names
// one
func hostAddress(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, sshPort)
}

// connect dials the host. Host keys are not pinned: testbed machines are
// reprovisioned between runs and present fresh keys every time.
func (r *SSHRunner) connect(host string) (*ssh.Client, error) {
	cfg := &ssh.ClientConfig{
		User:            r.user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(r.signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         connectTimeout,
	}

	client, err := ssh.Dial("tcp", hostAddress(host), cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", host, err)
	}
	return client, nil
}

// Run executes argv on the host, bounded by timeout and ctx. The argv is
// joined with shell quoting first, so arguments survive the remote shell
// verbatim. A non-zero exit is reported in the result, not as an error;
// errors mean the command could not be run or did not finish.
func (r *SSHRunner) Run(ctx context.Context, host string, argv []string, timeout time.Duration) (CommandResult, error) {
	return r.exec(ctx, host, QuoteCommand(argv), nil, nil, timeout)
}

// ReadFile reads a remote file's content
func (r *SSHRunner) ReadFile(ctx context.Context, host, remotePath string) (string, error) {
	result, err := r.Run(ctx, host, []string{"cat", remotePath}, 0)
	if err != nil {
		return "", err
	}
	if err := result.Check(); err != nil {
		return "", err
	}
	return result.Stdout, nil
}

// WriteFile writes content to a remote path, creating or overwriting the
// file. Parent directories must exist.
func (r *SSHRunner) WriteFile(ctx context.Context, host, remotePath, content string) error {
	command := "cat > " + shellQuote(remotePath)
	result, err := r.exec(ctx, host, command, strings.NewReader(content), nil, 0)
	if err != nil {
		return err
	}
	return result.Check()
}

// Download copies a remote file to a local path, streaming so large
// artifacts never sit in memory.
func (r *SSHRunner) Download(ctx context.Context, host, remotePath, localPath string) error {
	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", localPath, err)
	}
	defer f.Close()

	command := "cat " + shellQuote(remotePath)
	result, err := r.exec(ctx, host, command, nil, f, 0)
	if err != nil {
		return err
	}
	if err := result.Check(); err != nil {
		return err
	}
	return f.Sync()
}

// exec runs one command over a fresh connection. When stdout is nil the
// output is captured into the result; otherwise it streams to the writer
// and the result's Stdout stays empty.
func (r *SSHRunner) exec(ctx context.Context, host, command string, stdin io.Reader, stdout io.Writer, timeout time.Duration) (CommandResult, error) {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}

	result := CommandResult{Command: command}
	logging.Debug("SSHRunner", "Running %q on %s", command, host)

	client, err := r.connect(host)
	if err != nil {
		return result, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return result, fmt.Errorf("opening session on %s: %w", host, err)
	}
	defer session.Close()

	var outBuf, errBuf bytes.Buffer
	if stdout == nil {
		session.Stdout = &outBuf
	} else {
		session.Stdout = stdout
	}
	session.Stderr = &errBuf
	session.Stdin = stdin

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		// Closing the session tears down the remote process
		session.Close()
		<-done
		result.Stdout = outBuf.String()
		result.Stderr = errBuf.String()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return result, fmt.Errorf("command timed out after %s on %s: %s", timeout, host, command)
		}
		return result, fmt.Errorf("command cancelled on %s: %s", host, command)

	case err := <-done:
		result.Stdout = outBuf.String()
		result.Stderr = errBuf.String()
		if err == nil {
			return result, nil
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
			return result, nil
		}
		return result, fmt.Errorf("running %q on %s: %w", command, host, err)
	}
}
