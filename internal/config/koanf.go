// Package config provides internal configuration loading and processing.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	tomlparser "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/smykla-skalski/desgate/internal/opencode"
	"github.com/smykla-skalski/desgate/internal/paths"
	"github.com/smykla-skalski/desgate/pkg/config"
)

var (
	// ErrConfigNotFound is returned when no configuration file is found.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidPermissions is returned when config file has insecure permissions.
	ErrInvalidPermissions = errors.New("config file has insecure permissions")
)

const (
	// GlobalConfigFile is the name of the global configuration file.
	GlobalConfigFile = "config.toml"

	// GlobalConfigDir is the directory name for global configuration.
	GlobalConfigDir = ".desgate"

	// ProjectConfigDir is the directory name for project configuration.
	ProjectConfigDir = ".desgate"

	// ProjectConfigFile is the primary project configuration file name.
	ProjectConfigFile = "config.toml"

	// ProjectConfigFileAlt is the alternative project configuration file name.
	ProjectConfigFileAlt = "desgate.toml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "DESGATE_"

	// installerEnvPrefix covers the variables written by the DES plugin installer.
	installerEnvPrefix = "NWAVE_"

	// keyDelim separates koanf key paths. Host event names such as
	// "tool.execute.before" contain dots and must stay single keys.
	keyDelim = "::"
)

// listKeys are config paths whose environment values are whitespace-separated lists.
var listKeys = map[string]bool{
	"validator.args":        true,
	"bridge.governed_tools": true,
}

// KoanfLoader handles configuration loading from multiple sources using koanf.
// Precedence order (highest to lowest):
// 1. CLI Flags
// 2. Environment Variables (DESGATE_*)
// 3. Installer Environment (NWAVE_ROOT, NWAVE_PYTHON)
// 4. Installer env file (~/.config/opencode/plugins/nwave-des.env)
// 5. Project Config (.desgate/config.toml or desgate.toml)
// 6. Global Config (~/.desgate/config.toml)
// 7. Defaults
type KoanfLoader struct {
	k       *koanf.Koanf
	homeDir string
	workDir string
}

// NewKoanfLoader creates a new KoanfLoader with default directories.
func NewKoanfLoader() (*KoanfLoader, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get home directory")
	}

	workDir, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get working directory")
	}

	return NewKoanfLoaderWithDirs(homeDir, workDir)
}

// NewKoanfLoaderWithDirs creates a new KoanfLoader with custom directories (for testing).
func NewKoanfLoaderWithDirs(homeDir, workDir string) (*KoanfLoader, error) {
	return &KoanfLoader{
		k:       koanf.New(keyDelim),
		homeDir: homeDir,
		workDir: workDir,
	}, nil
}

// Load loads configuration from all sources and validates it.
func (l *KoanfLoader) Load(flags map[string]any) (*config.Config, error) {
	cfg, err := l.LoadWithoutValidation(flags)
	if err != nil {
		return nil, err
	}

	if err := NewValidator().Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return cfg, nil
}

// LoadWithoutValidation loads configuration without running validation.
// Defaults → Global TOML → Project TOML → Installer env file → Installer env →
// Env Vars → CLI Flags
func (l *KoanfLoader) LoadWithoutValidation(flags map[string]any) (*config.Config, error) {
	l.k = koanf.New(keyDelim)

	// 1. Defaults
	if err := l.k.Load(confmap.Provider(defaultsToMap(), keyDelim), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	// 2. Global config
	globalPath := l.GlobalConfigPath()
	if override, ok := flags["global_config"].(string); ok && override != "" {
		globalPath = override
	}

	if err := l.loadTOMLFile(globalPath); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load global config")
	}

	// 3. Project config
	projectPath := l.findProjectConfig()
	if override, ok := flags["config_path"].(string); ok && override != "" {
		if !fileExists(override) {
			return nil, errors.Wrapf(ErrConfigNotFound, "%s", override)
		}

		projectPath = override
	}

	if projectPath != "" {
		if err := l.loadTOMLFile(projectPath); err != nil {
			return nil, errors.Wrap(err, "failed to load project config")
		}
	}

	// 4. Installer env file, then installer environment
	if err := l.loadInstallerEnvFile(l.InstallerEnvFilePath()); err != nil {
		return nil, errors.Wrap(err, "failed to load installer env file")
	}

	installerOpt := env.Opt{
		Prefix:        installerEnvPrefix,
		TransformFunc: installerEnvTransform,
	}

	if err := l.k.Load(env.Provider(".", installerOpt), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load installer env vars")
	}

	// 5. DESGATE_* environment
	envOpt := env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envTransform,
	}

	if err := l.k.Load(env.Provider(".", envOpt), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load env vars")
	}

	// 6. CLI flags
	if flagConfig := flagsToConfig(flags); len(flagConfig) > 0 {
		if err := l.k.Load(confmap.Provider(flagConfig, keyDelim), nil); err != nil {
			return nil, errors.Wrap(err, "failed to load flags")
		}
	}

	var cfg config.Config

	if err := l.k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag:           "koanf",
		DecoderConfig: decoderConfig(&cfg),
	}); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	cfg.Validator.Root = expandHome(cfg.Validator.Root, l.homeDir)

	return &cfg, nil
}

// loadTOMLFile loads a TOML configuration file with security checks.
func (l *KoanfLoader) loadTOMLFile(path string) error {
	if err := checkWritable(path); err != nil {
		return err
	}

	return l.k.Load(file.Provider(path), tomlparser.Parser())
}

// loadInstallerEnvFile loads the JSON env file the OpenCode plugin installer
// writes, mapping its variables like the installer environment. A missing
// file is skipped.
func (l *KoanfLoader) loadInstallerEnvFile(path string) error {
	if err := checkWritable(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return err
	}

	data, err := file.Provider(path).ReadBytes()
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}

	vars, err := opencode.ParseEnv(data)
	if err != nil {
		return errors.Wrapf(err, "%s", path)
	}

	values := make(map[string]any, len(vars))

	for key, value := range vars {
		if cfgKey, v := installerEnvTransform(key, value); cfgKey != "" {
			values[cfgKey] = v
		}
	}

	return l.k.Load(confmap.Provider(values, "."), nil)
}

// checkWritable rejects world-writable files.
func checkWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if info.Mode().Perm()&0o002 != 0 {
		return errors.Wrapf(
			ErrInvalidPermissions,
			"%s is world-writable (mode: %s)",
			path,
			info.Mode().Perm(),
		)
	}

	return nil
}

// envTransform maps DESGATE_SECTION_KEY to section.key. Only the first
// underscore separates the section, so DESGATE_VALIDATOR_PATH_ENV becomes
// validator.path_env.
func envTransform(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.Replace(key, "_", ".", 1)

	if listKeys[key] {
		return key, strings.Fields(value)
	}

	return key, value
}

// installerEnvTransform maps the plugin installer's variables onto validator settings.
func installerEnvTransform(key, value string) (string, any) {
	switch key {
	case "NWAVE_ROOT":
		return "validator.root", value
	case "NWAVE_PYTHON":
		return "validator.executable", value
	default:
		return "", nil
	}
}

// flagsToConfig converts CLI flags to a configuration map.
func flagsToConfig(flags map[string]any) map[string]any {
	result := make(map[string]any)

	for key, value := range flags {
		strVal, ok := value.(string)
		if !ok || strVal == "" {
			continue
		}

		switch key {
		case "validator_root":
			ensureMapKey(result, "validator")["root"] = strVal
		case "validator_executable":
			ensureMapKey(result, "validator")["executable"] = strVal
		case "timeout":
			ensureMapKey(result, "validator")["timeout"] = strVal
		case "log_file":
			ensureMapKey(result, "log")["file"] = strVal
		}
	}

	return result
}

// ensureMapKey ensures a key exists as a map and returns it.
func ensureMapKey(cfg map[string]any, key string) map[string]any {
	if _, ok := cfg[key]; !ok {
		cfg[key] = make(map[string]any)
	}

	result, _ := cfg[key].(map[string]any)

	return result
}

// GlobalConfigPath returns the path to the global configuration file.
func (l *KoanfLoader) GlobalConfigPath() string {
	return filepath.Join(l.homeDir, GlobalConfigDir, GlobalConfigFile)
}

// InstallerEnvFilePath returns the env file written next to the OpenCode plugin.
func (l *KoanfLoader) InstallerEnvFilePath() string {
	return filepath.Join(paths.OpenCodePluginDirIn(l.homeDir), opencode.EnvFileName)
}

// ProjectConfigPaths returns the paths to check for project configuration.
func (l *KoanfLoader) ProjectConfigPaths() []string {
	return []string{
		filepath.Join(l.workDir, ProjectConfigDir, ProjectConfigFile),
		filepath.Join(l.workDir, ProjectConfigFileAlt),
	}
}

// findProjectConfig checks for project config files and returns the first found.
func (l *KoanfLoader) findProjectConfig() string {
	for _, path := range l.ProjectConfigPaths() {
		if fileExists(path) {
			return path
		}
	}

	return ""
}

// HasGlobalConfig checks if a global configuration file exists.
func (l *KoanfLoader) HasGlobalConfig() bool {
	return fileExists(l.GlobalConfigPath())
}

// FindProjectConfigPath returns the path to the project config file if one exists.
func (l *KoanfLoader) FindProjectConfigPath() string {
	return l.findProjectConfig()
}

func expandHome(path, home string) string {
	if home == "" || !strings.HasPrefix(path, "~/") {
		return path
	}

	return filepath.Join(home, path[2:])
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return !info.IsDir()
}

// mustGetwd returns the current working directory or panics.
func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		panic("failed to get working directory: " + err.Error())
	}

	return wd
}
