package doctor

import (
	"context"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/desgate/pkg/logger"
)

// ErrChecksFailed is returned when at least one check reports an error.
var ErrChecksFailed = errors.New("health checks failed")

// Runner orchestrates health checks and fixes
type Runner struct {
	registry *Registry
	reporter Reporter
	out      io.Writer
	logger   logger.Logger
}

// RunOptions configures the doctor run behavior
type RunOptions struct {
	// Verbose enables detailed output
	Verbose bool

	// AutoFix applies available fixes and re-runs the failed checks (--fix flag)
	AutoFix bool

	// Categories filters checks by category
	Categories []Category
}

// NewRunner creates a new Runner. Fix suggestions are written to out.
func NewRunner(registry *Registry, reporter Reporter, out io.Writer, log logger.Logger) *Runner {
	return &Runner{
		registry: registry,
		reporter: reporter,
		out:      out,
		logger:   log,
	}
}

// Run executes health checks and applies fixes if requested
func (r *Runner) Run(ctx context.Context, opts RunOptions) error {
	r.logger.Info("starting doctor run", "verbose", opts.Verbose, "autoFix", opts.AutoFix)

	results := r.registry.Run(ctx, opts.Categories)

	r.logger.Info("checks completed", "total", len(results))

	r.reporter.Report(results, opts.Verbose)

	fixable := r.collectFixable(results)
	if len(fixable) == 0 {
		return r.determineExitError(results)
	}

	if !opts.AutoFix {
		r.suggestFixes(fixable)

		return r.determineExitError(results)
	}

	for _, result := range fixable {
		fixer, _ := r.registry.FixerFor(result)

		r.logger.Info("applying fix", "check", result.Name, "fixer", fixer.ID())

		if err := fixer.Fix(ctx); err != nil {
			return errors.Wrapf(err, "failed to fix %q", result.Name)
		}
	}

	rerun := r.registry.Run(ctx, opts.Categories)
	r.reporter.Report(rerun, opts.Verbose)

	return r.determineExitError(rerun)
}

// collectFixable returns failed results that a registered fixer can fix
func (r *Runner) collectFixable(results []CheckResult) []CheckResult {
	var fixable []CheckResult

	for _, result := range results {
		if result.Status != StatusFail || !result.HasFix() {
			continue
		}

		if _, ok := r.registry.FixerFor(result); ok {
			fixable = append(fixable, result)
		}
	}

	return fixable
}

func (r *Runner) suggestFixes(results []CheckResult) {
	fmt.Fprintln(r.out, "\nSuggested fixes:")

	for _, result := range results {
		fixer, _ := r.registry.FixerFor(result)
		fmt.Fprintf(r.out, "  - %s: %s\n", result.Name, fixer.Description())
	}

	fmt.Fprintln(r.out, "\nRun 'desgate doctor --fix' to apply fixes automatically")
}

func (r *Runner) determineExitError(results []CheckResult) error {
	errorCount, warningCount := 0, 0

	for _, result := range results {
		switch {
		case result.IsError():
			errorCount++
		case result.IsWarning():
			warningCount++
		}
	}

	r.logger.Info("final status",
		"errors", errorCount,
		"warnings", warningCount,
		"total", len(results),
	)

	if errorCount > 0 {
		return errors.Wrapf(ErrChecksFailed, "%d error(s)", errorCount)
	}

	return nil
}
