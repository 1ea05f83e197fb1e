package config

import (
	"github.com/smykla-skalski/desgate/pkg/config"
)

// Default configuration constants for koanf map defaults.
const (
	defaultValidatorTimeoutStr = "30s"
	defaultSlowThresholdStr    = "5s"
	defaultSessionMaxAgeStr    = "24h"
)

// DefaultConfig returns a Config with all default values populated.
func DefaultConfig() *config.Config {
	sessionEnabled := false
	auditEnabled := true
	timeout := config.Duration(config.DefaultValidatorTimeout)

	return &config.Config{
		Version: config.CurrentConfigVersion,
		Validator: &config.ValidatorConfig{
			Executable: config.DefaultValidatorExecutable,
			PathEnv:    config.DefaultPathEnv,
			Timeout:    &timeout,
		},
		Bridge: &config.BridgeConfig{
			GovernedTools: config.DefaultGovernedTools,
			StopSentinel:  config.DefaultStopSentinel,
			SlowThreshold: config.Duration(config.DefaultSlowThreshold),
		},
		Session: &config.SessionConfig{
			Enabled:       &sessionEnabled,
			StateFile:     config.DefaultSessionStateFile,
			MaxSessionAge: config.Duration(config.DefaultMaxSessionAge),
		},
		Audit: &config.AuditConfig{
			Enabled:   &auditEnabled,
			LogFile:   config.DefaultAuditLogFile,
			MaxSizeMB: config.DefaultAuditMaxSizeMB,
		},
		Log: &config.LogConfig{File: config.DefaultLogFile},
	}
}

// defaultsToMap converts the defaults to a map for koanf loading.
func defaultsToMap() map[string]any {
	return map[string]any{
		"version": config.CurrentConfigVersion,
		"validator": map[string]any{
			"executable": config.DefaultValidatorExecutable,
			"path_env":   config.DefaultPathEnv,
			"timeout":    defaultValidatorTimeoutStr,
		},
		"bridge": map[string]any{
			"governed_tools": config.DefaultGovernedTools,
			"stop_sentinel":  config.DefaultStopSentinel,
			"slow_threshold": defaultSlowThresholdStr,
		},
		"session": map[string]any{
			"enabled":         false,
			"state_file":      config.DefaultSessionStateFile,
			"max_session_age": defaultSessionMaxAgeStr,
		},
		"audit": map[string]any{
			"enabled":     true,
			"log_file":    config.DefaultAuditLogFile,
			"max_size_mb": config.DefaultAuditMaxSizeMB,
		},
		"log": map[string]any{
			"file": config.DefaultLogFile,
		},
	}
}
