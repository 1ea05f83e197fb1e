// Package config provides internal configuration loading and processing.
package config

import (
	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/desgate/pkg/config"
	"github.com/smykla-skalski/desgate/pkg/hook"
)

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidProtocol is returned when a host protocol is not recognized.
	ErrInvalidProtocol = errors.New("invalid protocol")

	// ErrInvalidSink is returned when a context sink is not recognized.
	ErrInvalidSink = errors.New("invalid context sink")

	// ErrInvalidEvent is returned when a host event maps to an unknown command.
	ErrInvalidEvent = errors.New("invalid event mapping")

	// ErrInvalidPattern is returned when a governed tool pattern does not parse.
	ErrInvalidPattern = errors.New("invalid tool pattern")

	// ErrEmptyValue is returned when a required value is empty.
	ErrEmptyValue = errors.New("empty value not allowed")
)

// Validator validates configuration semantics.
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the entire configuration.
// Returns an error describing all validation failures.
func (v *Validator) Validate(cfg *config.Config) error {
	if cfg == nil {
		return errors.WithMessage(ErrInvalidConfig, "config is nil")
	}

	var validationErrors []error

	if cfg.Validator != nil {
		if err := v.validateValidatorConfig(cfg.Validator); err != nil {
			validationErrors = append(validationErrors, err)
		}
	}

	if cfg.Bridge != nil {
		if err := validatePatterns("bridge.governed_tools", cfg.Bridge.GovernedTools); err != nil {
			validationErrors = append(validationErrors, err)
		}
	}

	for name, host := range cfg.Hosts {
		if err := v.validateHostConfig(name, host); err != nil {
			validationErrors = append(validationErrors, err)
		}
	}

	if len(validationErrors) > 0 {
		return errors.WithSecondaryError(
			errors.Wrapf(
				ErrInvalidConfig,
				"validation failed with %d error(s)",
				len(validationErrors),
			),
			combineErrors(validationErrors),
		)
	}

	return nil
}

func (*Validator) validateValidatorConfig(cfg *config.ValidatorConfig) error {
	if cfg.Executable == "" {
		return errors.Wrap(ErrEmptyValue, "validator.executable")
	}

	return nil
}

// validateHostConfig validates a single host table.
func (*Validator) validateHostConfig(name string, host *config.HostConfig) error {
	if host == nil {
		return nil
	}

	switch host.Protocol {
	case "", config.ProtocolClaude, config.ProtocolExitCode:
	default:
		return errors.Wrapf(
			ErrInvalidProtocol,
			"hosts.%s.protocol must be %q or %q, got %q",
			name,
			config.ProtocolClaude,
			config.ProtocolExitCode,
			host.Protocol,
		)
	}

	switch host.ContextSink {
	case "", config.SinkInject, config.SinkLog:
	default:
		return errors.Wrapf(
			ErrInvalidSink,
			"hosts.%s.context_sink must be %q or %q, got %q",
			name,
			config.SinkInject,
			config.SinkLog,
			host.ContextSink,
		)
	}

	for event, command := range host.Events {
		if _, err := hook.ParseCommand(command); err != nil {
			return errors.Wrapf(ErrInvalidEvent, "hosts.%s.events.%s: %v", name, event, err)
		}
	}

	for field, keys := range host.Fields {
		if len(keys) == 0 {
			return errors.Wrapf(ErrEmptyValue, "hosts.%s.fields.%s", name, field)
		}
	}

	return validatePatterns("hosts."+name+".governed_tools", host.GovernedTools)
}

func validatePatterns(path string, patterns []string) error {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Wrapf(ErrInvalidPattern, "%s: %q", path, pattern)
		}
	}

	return nil
}

// combineErrors combines multiple errors into a single error.
func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	return errors.Join(errs...)
}
