package hook

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/smykla-skalski/desgate/internal/doctor"
	"github.com/smykla-skalski/desgate/internal/opencode"
)

// FixInstallPlugin is the fix identifier for a missing or stale OpenCode plugin.
const FixInstallPlugin = "install_opencode_plugin"

// PluginChecker checks that the OpenCode plugin forwards events to desgate.
// It is skipped when OpenCode has no config directory.
type PluginChecker struct {
	pluginDir  string
	binaryName string
}

// NewPluginChecker creates a checker for the plugin directory.
func NewPluginChecker(pluginDir, binaryName string) *PluginChecker {
	return &PluginChecker{
		pluginDir:  pluginDir,
		binaryName: binaryName,
	}
}

// Name returns the name of the check
func (*PluginChecker) Name() string {
	return "OpenCode plugin installed"
}

// Category returns the category of the check
func (*PluginChecker) Category() doctor.Category {
	return doctor.CategoryHook
}

// Check reads the plugin and its env file.
func (c *PluginChecker) Check(_ context.Context) doctor.CheckResult {
	configDir := filepath.Dir(c.pluginDir)
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		return doctor.Skip(c.Name(), "OpenCode not configured").
			WithDetails("No directory at: " + configDir)
	}

	pluginPath := filepath.Join(c.pluginDir, opencode.PluginFileName)

	source, err := os.ReadFile(pluginPath) //nolint:gosec // fixed location under the OpenCode config dir
	switch {
	case os.IsNotExist(err):
		return doctor.FailWarning(c.Name(), "Plugin not installed").
			WithDetails(
				"Expected at: "+pluginPath,
				"Install with: desgate doctor --fix",
			).
			WithFixID(FixInstallPlugin)
	case err != nil:
		return doctor.FailError(c.Name(), fmt.Sprintf("Failed to read plugin: %v", err))
	}

	if !opencode.CallsDesgate(source, c.binaryName) {
		return doctor.FailWarning(c.Name(), "Plugin does not call "+c.binaryName).
			WithDetails(
				"File: "+pluginPath,
				"Replace with: desgate doctor --fix",
			).
			WithFixID(FixInstallPlugin)
	}

	envPath := filepath.Join(c.pluginDir, opencode.EnvFileName)

	env, err := opencode.ReadEnv(envPath)
	switch {
	case os.IsNotExist(err):
		return doctor.Pass(c.Name(), "Installed").
			WithDetails("No " + opencode.EnvFileName + ", validator paths come from desgate config")
	case err != nil:
		return doctor.FailWarning(c.Name(), "Env file is invalid").
			WithDetails("File: "+envPath, fmt.Sprintf("Error: %v", err)).
			WithFixID(FixInstallPlugin)
	}

	return doctor.Pass(c.Name(), "Installed").
		WithDetails(
			"NWAVE_ROOT: "+valueOrNotSet(env.Root),
			"NWAVE_PYTHON: "+valueOrNotSet(env.Python),
		)
}

func valueOrNotSet(s string) string {
	if s == "" {
		return "not set"
	}

	return s
}
