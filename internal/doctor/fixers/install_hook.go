package fixers

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/desgate/internal/doctor"
	"github.com/smykla-skalski/desgate/internal/doctor/checkers/hook"
	"github.com/smykla-skalski/desgate/internal/doctor/settings"
	"github.com/smykla-skalski/desgate/pkg/logger"
)

// InstallHookFixer registers desgate for the intercepted Claude Code events.
type InstallHookFixer struct {
	settingsPath string
	binaryPath   string
	binaryName   string
	log          logger.Logger
}

// NewInstallHookFixer creates a new InstallHookFixer. binaryPath is the
// command written into new entries; binaryName is matched against existing ones.
func NewInstallHookFixer(settingsPath, binaryPath, binaryName string, log logger.Logger) *InstallHookFixer {
	return &InstallHookFixer{
		settingsPath: settingsPath,
		binaryPath:   binaryPath,
		binaryName:   binaryName,
		log:          log,
	}
}

// ID returns the fixer identifier.
func (*InstallHookFixer) ID() string {
	return hook.FixInstallHook
}

// Description returns a human-readable description.
func (*InstallHookFixer) Description() string {
	return "Register desgate hooks in Claude Code settings"
}

// CanFix checks if this fixer can fix the given result.
func (*InstallHookFixer) CanFix(result doctor.CheckResult) bool {
	return result.NeedsFix(hook.FixInstallHook)
}

// Fix adds the missing hook entries, keeping every other settings key.
func (f *InstallHookFixer) Fix(_ context.Context) error {
	parsed, err := settings.NewSettingsParser(f.settingsPath).Parse()

	switch {
	case errors.Is(err, settings.ErrSettingsNotFound):
		parsed = &settings.ClaudeSettings{}
	case err != nil:
		return errors.Wrap(err, "failed to parse settings")
	}

	added := parsed.Register(f.binaryPath, f.binaryName)
	if added == 0 {
		return nil
	}

	data, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal settings")
	}

	if err := AtomicWriteFile(f.settingsPath, append(data, '\n'), true); err != nil {
		return err
	}

	f.log.Info("registered hooks", "settings", f.settingsPath, "added", added)

	return nil
}
