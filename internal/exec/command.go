// Package exec provides abstractions for executing external commands.
package exec

//go:generate mockgen -source=command.go -destination=command_mock.go -package=exec

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	// ErrLaunch is returned when a process could not be started.
	ErrLaunch = errors.New("process failed to launch")

	// ErrTimeout is returned when a process exceeded its bounded wait.
	ErrTimeout = errors.New("process timed out")
)

// waitDelay bounds how long Wait keeps reading pipes after the process group
// was killed.
const waitDelay = 2 * time.Second

// Command describes one process invocation.
type Command struct {
	// Name is the executable, resolved through PATH when it has no separator.
	Name string

	// Args are the positional arguments.
	Args []string

	// Dir is the working directory. Empty means the caller's directory.
	Dir string

	// Env is the complete environment. Nil inherits the caller's environment.
	Env []string

	// Stdin is written to the process and then closed.
	Stdin []byte
}

// CommandResult contains the result of a command execution.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
	TimedOut bool
	Duration time.Duration
}

// Success returns true if the command exited with status 0.
func (r *CommandResult) Success() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Failed returns true if the command did not succeed.
func (r *CommandResult) Failed() bool {
	return !r.Success()
}

// Launched returns true if the process was started.
func (r *CommandResult) Launched() bool {
	return !errors.Is(r.Err, ErrLaunch)
}

// CommandRunner executes external commands with timeout and output capture.
type CommandRunner interface {
	// Run executes a command and waits for it to exit. A non-zero exit status
	// is reported through ExitCode and Err, never by a nil result.
	Run(ctx context.Context, cmd *Command) *CommandResult
}

// commandRunner implements CommandRunner.
type commandRunner struct {
	defaultTimeout time.Duration
}

// NewCommandRunner creates a new CommandRunner. The default timeout applies
// only when ctx carries no deadline; zero disables it.
//
//nolint:ireturn // callers depend on the interface so tests can swap in mocks
func NewCommandRunner(defaultTimeout time.Duration) CommandRunner {
	return &commandRunner{
		defaultTimeout: defaultTimeout,
	}
}

// Run executes a command and returns the result.
func (r *commandRunner) Run(ctx context.Context, c *Command) *CommandResult {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && r.defaultTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.defaultTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdin = bytes.NewReader(c.Stdin)
	cmd.WaitDelay = waitDelay

	setProcGroup(cmd)

	cmd.Cancel = func() error {
		return killProcGroup(cmd)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()

	if err := cmd.Start(); err != nil {
		return &CommandResult{
			ExitCode: -1,
			Err:      errors.Mark(errors.Wrapf(err, "starting %s", c.Name), ErrLaunch),
		}
	}

	waitErr := cmd.Wait()

	result := &CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}

	switch {
	case ctx.Err() != nil:
		result.ExitCode = -1
		result.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)

		if result.TimedOut {
			result.Err = errors.Wrapf(ErrTimeout, "%s after %s", c.Name, result.Duration.Round(time.Millisecond))
		} else {
			result.Err = errors.Wrapf(ctx.Err(), "running %s", c.Name)
		}
	case waitErr != nil:
		result.Err = errors.Wrapf(waitErr, "running %s", c.Name)
	}

	return result
}
