package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	internalcolor "github.com/smykla-skalski/desgate/internal/color"
	internalconfig "github.com/smykla-skalski/desgate/internal/config"
	"github.com/smykla-skalski/desgate/internal/doctor"
	configchecker "github.com/smykla-skalski/desgate/internal/doctor/checkers/config"
	"github.com/smykla-skalski/desgate/internal/doctor/checkers/hook"
	"github.com/smykla-skalski/desgate/internal/doctor/checkers/storage"
	"github.com/smykla-skalski/desgate/internal/doctor/checkers/validator"
	"github.com/smykla-skalski/desgate/internal/doctor/fixers"
	"github.com/smykla-skalski/desgate/internal/doctor/reporters"
	"github.com/smykla-skalski/desgate/internal/exec"
	"github.com/smykla-skalski/desgate/internal/paths"
	"github.com/smykla-skalski/desgate/pkg/config"
	"github.com/smykla-skalski/desgate/pkg/logger"
)

const binaryName = "desgate"

var (
	verboseFlag  bool
	fixFlag      bool
	categoryFlag []string
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose desgate setup and configuration",
	Long: `Diagnose desgate setup and configuration issues.

Checks:
- Validator executable and validation engine root
- Hook registration in Claude Code settings
- The OpenCode plugin and its env file, when OpenCode is configured
- Configuration file validity and permissions
- Log, audit and session state directories

Examples:
  desgate doctor                       # Run all checks
  desgate doctor --verbose             # Run with detailed output
  desgate doctor --fix                 # Automatically fix issues
  desgate doctor --category validator  # Check specific categories`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVarP(
		&verboseFlag,
		"verbose",
		"v",
		false,
		"Enable verbose output with detailed context",
	)

	doctorCmd.Flags().BoolVar(
		&fixFlag,
		"fix",
		false,
		"Automatically fix issues",
	)

	doctorCmd.Flags().StringSliceVar(
		&categoryFlag,
		"category",
		[]string{},
		"Filter checks by category (validator, hook, config, storage)",
	)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	loader, err := internalconfig.NewKoanfLoader()
	if err != nil {
		return errors.Wrap(err, "failed to create config loader")
	}

	// Doctor reports invalid configuration instead of failing on it.
	cfg, err := loader.LoadWithoutValidation(buildFlagsMap())
	if err != nil {
		cfg = internalconfig.DefaultConfig()
	}

	log, closeLog := newLogger(cfg)
	defer closeLog()

	log.Info("starting doctor command",
		"verbose", verboseFlag,
		"fix", fixFlag,
		"categories", categoryFlag,
	)

	registry := buildDoctorRegistry(cfg, loader)
	registerFixers(registry, cfg, loader, log)

	categories, err := parseCategories(categoryFlag)
	if err != nil {
		return err
	}

	runner := doctor.NewRunner(registry, selectReporter(cmd), cmd.OutOrStdout(), log)

	err = runner.Run(cmd.Context(), doctor.RunOptions{
		Verbose:    verboseFlag,
		AutoFix:    fixFlag,
		Categories: categories,
	})
	if errors.Is(err, doctor.ErrChecksFailed) {
		return &exitCodeError{code: ExitCodeFailure}
	}

	return err
}

func buildDoctorRegistry(cfg *config.Config, loader *internalconfig.KoanfLoader) *doctor.Registry {
	registry := doctor.NewRegistry()

	registry.RegisterChecker(validator.NewExecutableChecker(cfg.GetValidator(), exec.NewToolChecker()))
	registry.RegisterChecker(validator.NewRootChecker(cfg.GetValidator()))

	registry.RegisterChecker(hook.NewRegistrationChecker(paths.ClaudeSettingsFile(), binaryName))
	registry.RegisterChecker(hook.NewPluginChecker(paths.OpenCodePluginDir(), binaryName))

	registry.RegisterChecker(configchecker.NewLoadChecker(loader))
	registry.RegisterChecker(configchecker.NewGlobalChecker(loader))

	registry.RegisterChecker(storage.NewDirChecker("Log", cfg.GetLog().GetFile()))

	if cfg.GetAudit().IsEnabled() {
		registry.RegisterChecker(storage.NewDirChecker("Audit log", cfg.GetAudit().GetLogFile()))
	}

	if cfg.GetSession().IsEnabled() {
		registry.RegisterChecker(storage.NewDirChecker("Session state", cfg.GetSession().GetStateFile()))
	}

	return registry
}

func registerFixers(
	registry *doctor.Registry,
	cfg *config.Config,
	loader *internalconfig.KoanfLoader,
	log logger.Logger,
) {
	binaryPath := binaryName
	if exe, err := os.Executable(); err == nil {
		binaryPath = exe
	}

	registry.RegisterFixer(fixers.NewInstallHookFixer(paths.ClaudeSettingsFile(), binaryPath, binaryName, log))
	registry.RegisterFixer(fixers.NewInstallPluginFixer(
		paths.OpenCodePluginDir(), binaryPath, cfg.GetValidator(), log,
	))
	registry.RegisterFixer(fixers.NewPermissionsFixer(
		append([]string{loader.GlobalConfigPath(), loader.InstallerEnvFilePath()}, loader.ProjectConfigPaths()...),
		log,
	))
	registry.RegisterFixer(fixers.NewConfigFixer(internalconfig.NewWriter()))
	registry.RegisterFixer(fixers.NewDirsFixer(storageDirs(cfg)...))
}

func storageDirs(cfg *config.Config) []string {
	files := []string{cfg.GetLog().GetFile()}

	if cfg.GetAudit().IsEnabled() {
		files = append(files, cfg.GetAudit().GetLogFile())
	}

	if cfg.GetSession().IsEnabled() {
		files = append(files, cfg.GetSession().GetStateFile())
	}

	dirs := make([]string, 0, len(files))
	for _, f := range files {
		dirs = append(dirs, filepath.Dir(paths.ExpandPathSilent(f)))
	}

	return dirs
}

// selectReporter picks the colored table for terminals and the plain
// checklist otherwise.
//
//nolint:ireturn // Reporter interface for polymorphism
func selectReporter(cmd *cobra.Command) doctor.Reporter {
	out := cmd.OutOrStdout()

	if !internalcolor.Enabled(out, noColorFlag) {
		return reporters.NewSimpleReporter(out)
	}

	return reporters.NewColoredReporter(out, reporters.TermWidth(out), internalcolor.NewTheme(true))
}

// outputTheme returns the colored theme when w accepts color.
func outputTheme(w io.Writer) internalcolor.Theme {
	return internalcolor.NewTheme(internalcolor.Enabled(w, noColorFlag))
}

func parseCategories(values []string) ([]doctor.Category, error) {
	categories := make([]doctor.Category, 0, len(values))

	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}

			c, err := doctor.ParseCategory(part)
			if err != nil {
				return nil, err
			}

			categories = append(categories, c)
		}
	}

	return categories, nil
}
