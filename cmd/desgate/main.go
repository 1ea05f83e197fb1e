// Package main provides the CLI entry point for desgate.
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	internalconfig "github.com/smykla-skalski/desgate/internal/config"
	"github.com/smykla-skalski/desgate/internal/paths"
	"github.com/smykla-skalski/desgate/pkg/config"
	"github.com/smykla-skalski/desgate/pkg/logger"
)

const (
	// ExitCodeOK indicates success.
	ExitCodeOK = 0

	// ExitCodeFailure indicates a usage, configuration or check failure.
	ExitCodeFailure = 1

	// ExitCodeCrash indicates an unexpected panic.
	ExitCodeCrash = 3
)

var (
	debugMode           bool
	traceMode           bool
	configPath          string
	globalConfig        string
	validatorRoot       string
	validatorExecutable string
	timeoutFlag         string
	logFileFlag         string
	noColorFlag         bool
)

// exitCodeError carries a process exit code out of a command without
// printing anything further.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "desgate: panic: %v\n%s", r, debug.Stack())

			exitCode = ExitCodeCrash
		}
	}()

	err := rootCmd.Execute()
	if err == nil {
		return ExitCodeOK
	}

	var codeErr *exitCodeError
	if errors.As(err, &codeErr) {
		return codeErr.code
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	return ExitCodeFailure
}

var rootCmd = &cobra.Command{
	Use:   "desgate",
	Short: "DES hook protocol bridge",
	Long: `desgate bridges AI coding host hook callbacks to the DES validation engine.

Each host event is decoded into a canonical hook command, handed to the
validator process, and the validator's verdict is mapped back onto the host's
protocol: a JSON response for Claude Code, an exit code for OpenCode.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.BoolVar(&debugMode, "debug", true, "Enable debug logging")
	pf.BoolVar(&traceMode, "trace", false, "Enable trace logging")
	pf.StringVarP(
		&configPath,
		"config",
		"c",
		"",
		"Path to project configuration file (default: .desgate/config.toml or desgate.toml)",
	)
	pf.StringVar(
		&globalConfig,
		"global-config",
		"",
		"Path to global configuration file (default: ~/.desgate/config.toml)",
	)
	pf.StringVar(&validatorRoot, "validator-root", "", "Validation engine root (overrides NWAVE_ROOT)")
	pf.StringVar(
		&validatorExecutable,
		"validator-executable",
		"",
		"Validator executable (overrides NWAVE_PYTHON)",
	)
	pf.StringVar(&timeoutFlag, "timeout", "", "Validator timeout, e.g. 30s (0 waits forever)")
	pf.StringVar(&logFileFlag, "log-file", "", "Log file path (default: ~/.desgate/desgate.log)")
	pf.BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
}

// buildFlagsMap converts CLI flags to a map for the config provider.
func buildFlagsMap() map[string]any {
	flags := make(map[string]any)

	set := func(key, value string) {
		if value != "" {
			flags[key] = value
		}
	}

	set("config_path", configPath)
	set("global_config", globalConfig)
	set("validator_root", validatorRoot)
	set("validator_executable", validatorExecutable)
	set("timeout", timeoutFlag)
	set("log_file", logFileFlag)

	return flags
}

// loadConfig loads configuration from all sources with precedence.
func loadConfig() (*config.Config, error) {
	loader, err := internalconfig.NewKoanfLoader()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create config loader")
	}

	cfg, err := loader.Load(buildFlagsMap())
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	return cfg, nil
}

// newLogger opens the file logger. stdout and stderr belong to the host
// protocol, so a logger that cannot be opened degrades to a no-op.
func newLogger(cfg *config.Config) (logger.Logger, func()) {
	path := paths.ExpandPathSilent(cfg.GetLog().GetFile())

	log, err := logger.NewFileLogger(path, debugMode, traceMode)
	if err != nil {
		return logger.NewNoOpLogger(), func() {}
	}

	return log, func() { _ = log.Close() }
}
