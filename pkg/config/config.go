// Package config provides configuration schema types for desgate.
package config

// CurrentConfigVersion is the latest config schema version.
const CurrentConfigVersion = 1

// Config represents the root configuration for desgate.
type Config struct {
	// Version is the config schema version. Defaults to 1 when omitted.
	Version int `json:"version,omitempty" koanf:"version" toml:"version,omitempty"`

	// Validator describes how to launch the external DES validator.
	Validator *ValidatorConfig `json:"validator,omitempty" koanf:"validator" toml:"validator,omitempty"`

	// Bridge holds policy knobs of the hook bridge itself.
	Bridge *BridgeConfig `json:"bridge,omitempty" koanf:"bridge" toml:"bridge,omitempty"`

	// Hosts adds host integrations or overrides the built-in tables by name.
	Hosts map[string]*HostConfig `json:"hosts,omitempty" koanf:"hosts" toml:"hosts,omitempty"`

	// Session contains configuration for session step tracking.
	Session *SessionConfig `json:"session,omitempty" koanf:"session" toml:"session,omitempty"`

	// Audit contains configuration for the JSONL audit trail.
	Audit *AuditConfig `json:"audit,omitempty" koanf:"audit" toml:"audit,omitempty"`

	// Log contains configuration for the diagnostic log file.
	Log *LogConfig `json:"log,omitempty" koanf:"log" toml:"log,omitempty"`
}

// GetValidator returns the validator config, never nil.
func (c *Config) GetValidator() *ValidatorConfig {
	if c == nil || c.Validator == nil {
		return &ValidatorConfig{}
	}

	return c.Validator
}

// GetBridge returns the bridge config, never nil.
func (c *Config) GetBridge() *BridgeConfig {
	if c == nil || c.Bridge == nil {
		return &BridgeConfig{}
	}

	return c.Bridge
}

// GetSession returns the session config, never nil.
func (c *Config) GetSession() *SessionConfig {
	if c == nil || c.Session == nil {
		return &SessionConfig{}
	}

	return c.Session
}

// GetAudit returns the audit config, never nil.
func (c *Config) GetAudit() *AuditConfig {
	if c == nil || c.Audit == nil {
		return &AuditConfig{}
	}

	return c.Audit
}

// GetLog returns the log config, never nil.
func (c *Config) GetLog() *LogConfig {
	if c == nil || c.Log == nil {
		return &LogConfig{}
	}

	return c.Log
}
