// Package invoker runs the external validator for one hook command.
package invoker

import (
	"context"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/desgate/internal/exec"
	"github.com/smykla-skalski/desgate/pkg/config"
	"github.com/smykla-skalski/desgate/pkg/hook"
	"github.com/smykla-skalski/desgate/pkg/logger"
)

// LaunchError is returned when the validator process could not be started.
type LaunchError struct {
	Executable string
	Err        error
}

func (e *LaunchError) Error() string {
	return "DES adapter failed to launch " + e.Executable + ": " + e.Err.Error()
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when the validator exceeded the bounded wait.
type TimeoutError struct {
	Command hook.Command
	Outcome *hook.Outcome
	Err     error
}

func (e *TimeoutError) Error() string {
	return "DES adapter timed out on " + e.Command.String() + ": " + e.Err.Error()
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// Invoker launches one validator process per invocation.
type Invoker struct {
	runner  exec.CommandRunner
	cfg     *config.ValidatorConfig
	args    []string
	environ func() []string
	log     logger.Logger
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithRunner replaces the process runner.
func WithRunner(runner exec.CommandRunner) Option {
	return func(i *Invoker) {
		i.runner = runner
	}
}

// WithArgs sets the arguments placed between the executable and the command,
// replacing validator.args.
func WithArgs(args []string) Option {
	return func(i *Invoker) {
		if len(args) > 0 {
			i.args = args
		}
	}
}

// WithEnviron sets the base environment source (for testing).
func WithEnviron(environ func() []string) Option {
	return func(i *Invoker) {
		i.environ = environ
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(i *Invoker) {
		i.log = log
	}
}

// New creates an Invoker for the given validator configuration.
func New(cfg *config.ValidatorConfig, opts ...Option) *Invoker {
	i := &Invoker{
		cfg:     cfg,
		args:    cfg.Args,
		environ: os.Environ,
		log:     logger.NewNoOpLogger(),
	}

	for _, opt := range opts {
		opt(i)
	}

	if i.runner == nil {
		i.runner = exec.NewCommandRunner(cfg.GetTimeout())
	}

	return i
}

// CommandLine returns the argv used for cmd.
func (i *Invoker) CommandLine(cmd hook.Command) []string {
	argv := make([]string, 0, len(i.args)+2)
	argv = append(argv, i.cfg.GetExecutable())
	argv = append(argv, i.args...)

	return append(argv, cmd.String())
}

// Invoke serializes req, runs the validator with it on stdin and returns
// what the process produced. Non-zero exit statuses are not errors.
func (i *Invoker) Invoke(ctx context.Context, cmd hook.Command, req hook.Request) (*hook.Outcome, error) {
	payload, err := req.Encode()
	if err != nil {
		return nil, err
	}

	argv := i.CommandLine(cmd)

	i.log.Debug("invoking validator",
		"command", cmd.String(),
		"argv", strings.Join(argv, " "),
		"root", i.cfg.Root,
	)

	result := i.runner.Run(ctx, &exec.Command{
		Name:  argv[0],
		Args:  argv[1:],
		Dir:   i.cfg.Root,
		Env:   i.Environment(),
		Stdin: payload,
	})

	outcome := &hook.Outcome{
		ExitStatus: result.ExitCode,
		Output:     result.Stdout,
		ErrorText:  result.Stderr,
	}

	if strings.TrimSpace(result.Stderr) != "" {
		i.log.Info("validator stderr",
			"command", cmd.String(),
			"stderr", strings.TrimSpace(result.Stderr),
		)
	}

	switch {
	case !result.Launched():
		return nil, &LaunchError{Executable: argv[0], Err: result.Err}
	case result.TimedOut:
		return outcome, &TimeoutError{Command: cmd, Outcome: outcome, Err: result.Err}
	case ctx.Err() != nil:
		return outcome, errors.Wrap(result.Err, "validator cancelled")
	}

	i.log.Debug("validator exited",
		"command", cmd.String(),
		"exit", result.ExitCode,
		"duration", result.Duration,
	)

	return outcome, nil
}

// Environment returns the child environment: the base environment overlaid
// with validator.env, and the search-path variable prefixed by the engine root.
func (i *Invoker) Environment() []string {
	pathEnv := i.cfg.GetPathEnv()

	vars := make(map[string]string)
	order := make([]string, 0)

	set := func(k, v string) {
		if _, ok := vars[k]; !ok {
			order = append(order, k)
		}

		vars[k] = v
	}

	for _, kv := range i.environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			set(k, v)
		}
	}

	for _, k := range slices.Sorted(maps.Keys(i.cfg.Env)) {
		set(k, i.cfg.Env[k])
	}

	if root := i.cfg.Root; root != "" {
		if existing := vars[pathEnv]; existing != "" {
			set(pathEnv, root+string(filepath.ListSeparator)+existing)
		} else {
			set(pathEnv, root)
		}
	}

	env := make([]string, 0, len(order))
	for _, k := range order {
		env = append(env, k+"="+vars[k])
	}

	return env
}
