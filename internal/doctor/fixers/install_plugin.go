package fixers

import (
	"context"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/desgate/internal/doctor"
	"github.com/smykla-skalski/desgate/internal/doctor/checkers/hook"
	"github.com/smykla-skalski/desgate/internal/opencode"
	"github.com/smykla-skalski/desgate/internal/paths"
	"github.com/smykla-skalski/desgate/pkg/config"
	"github.com/smykla-skalski/desgate/pkg/logger"
)

// InstallPluginFixer writes the OpenCode plugin and its env file.
type InstallPluginFixer struct {
	pluginDir  string
	binaryPath string
	validator  *config.ValidatorConfig
	log        logger.Logger
}

// NewInstallPluginFixer creates a new InstallPluginFixer. The env file gets
// the validator root and executable when a root is configured.
func NewInstallPluginFixer(
	pluginDir, binaryPath string,
	validator *config.ValidatorConfig,
	log logger.Logger,
) *InstallPluginFixer {
	return &InstallPluginFixer{
		pluginDir:  pluginDir,
		binaryPath: binaryPath,
		validator:  validator,
		log:        log,
	}
}

// ID returns the fixer identifier.
func (*InstallPluginFixer) ID() string {
	return hook.FixInstallPlugin
}

// Description returns a human-readable description.
func (*InstallPluginFixer) Description() string {
	return "Install the desgate plugin for OpenCode"
}

// CanFix checks if this fixer can fix the given result.
func (*InstallPluginFixer) CanFix(result doctor.CheckResult) bool {
	return result.NeedsFix(hook.FixInstallPlugin)
}

// Fix writes the plugin, keeping a backup of a plugin it replaces.
func (f *InstallPluginFixer) Fix(_ context.Context) error {
	source, err := opencode.RenderPlugin(f.binaryPath)
	if err != nil {
		return err
	}

	pluginPath := filepath.Join(f.pluginDir, opencode.PluginFileName)

	if err := AtomicWriteFile(pluginPath, source, true); err != nil {
		return errors.Wrap(err, "failed to write OpenCode plugin")
	}

	f.log.Info("installed OpenCode plugin", "path", pluginPath)

	root := paths.ExpandPathSilent(f.validator.GetRoot())
	if root == "" {
		return nil
	}

	env := &opencode.Env{Root: root, Python: f.validator.GetExecutable()}

	data, err := env.Marshal()
	if err != nil {
		return err
	}

	envPath := filepath.Join(f.pluginDir, opencode.EnvFileName)

	if err := AtomicWriteFile(envPath, data, false); err != nil {
		return errors.Wrap(err, "failed to write OpenCode env file")
	}

	f.log.Info("wrote OpenCode env file", "path", envPath, "root", root)

	return nil
}
