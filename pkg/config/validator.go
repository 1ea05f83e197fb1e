package config

import "time"

// Defaults for launching the external validator.
const (
	// DefaultValidatorExecutable is the interpreter that runs the DES engine.
	DefaultValidatorExecutable = "python3"

	// DefaultPathEnv is the search-path variable extended with the engine root.
	DefaultPathEnv = "PYTHONPATH"

	// DefaultValidatorTimeout bounds one validator run.
	DefaultValidatorTimeout = 30 * time.Second
)

// ValidatorConfig describes how the external validator process is launched.
// The hook command string is always appended as the last argument.
type ValidatorConfig struct {
	// Executable is the program to run. Default: "python3"
	Executable string `json:"executable,omitempty" koanf:"executable" toml:"executable,omitempty"`

	// Args precede the command argument, e.g. ["-m", "des.adapters.drivers.hooks.claude_code_hook_adapter"].
	// A host table may override them with its own validator_args.
	Args []string `json:"args,omitempty" koanf:"args" toml:"args,omitempty"`

	// Root is the validation engine's installation root. The child runs there.
	Root string `json:"root,omitempty" koanf:"root" toml:"root,omitempty"`

	// PathEnv is the environment variable prefixed with Root. Default: "PYTHONPATH"
	PathEnv string `json:"path_env,omitempty" koanf:"path_env" toml:"path_env,omitempty"`

	// Timeout bounds the wait for the child. Zero disables the bound. Default: "30s"
	Timeout *Duration `json:"timeout,omitempty" koanf:"timeout" toml:"timeout,omitempty"`

	// Env adds or overrides variables in the child environment.
	Env map[string]string `json:"env,omitempty" koanf:"env" toml:"env,omitempty"`
}

// GetExecutable returns the executable, defaulting to DefaultValidatorExecutable.
func (v *ValidatorConfig) GetExecutable() string {
	if v == nil || v.Executable == "" {
		return DefaultValidatorExecutable
	}

	return v.Executable
}

// GetRoot returns the engine root, empty when unset.
func (v *ValidatorConfig) GetRoot() string {
	if v == nil {
		return ""
	}

	return v.Root
}

// GetPathEnv returns the search-path variable name.
func (v *ValidatorConfig) GetPathEnv() string {
	if v == nil || v.PathEnv == "" {
		return DefaultPathEnv
	}

	return v.PathEnv
}

// GetTimeout returns the bounded wait. Zero means wait forever.
func (v *ValidatorConfig) GetTimeout() time.Duration {
	if v == nil || v.Timeout == nil {
		return DefaultValidatorTimeout
	}

	return v.Timeout.ToDuration()
}
