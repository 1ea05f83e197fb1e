package config

// Default values for the audit trail.
const (
	// DefaultAuditLogFile is the default JSONL audit log path.
	DefaultAuditLogFile = "~/.desgate/audit.jsonl"

	// DefaultAuditMaxSizeMB is the size at which the audit log rotates.
	DefaultAuditMaxSizeMB = 10
)

// AuditConfig contains configuration for the JSONL audit trail.
type AuditConfig struct {
	// Enabled controls whether audit entries are written. Default: true
	Enabled *bool `json:"enabled,omitempty" koanf:"enabled" toml:"enabled"`

	// LogFile is the JSONL file path. Default: "~/.desgate/audit.jsonl"
	LogFile string `json:"log_file,omitempty" koanf:"log_file" toml:"log_file"`

	// MaxSizeMB rotates the log once it grows past this size. Default: 10
	MaxSizeMB int `json:"max_size_mb,omitempty" koanf:"max_size_mb" toml:"max_size_mb"`
}

// IsEnabled returns true unless auditing was explicitly disabled.
func (a *AuditConfig) IsEnabled() bool {
	if a == nil || a.Enabled == nil {
		return true
	}

	return *a.Enabled
}

// GetLogFile returns the audit log path.
func (a *AuditConfig) GetLogFile() string {
	if a == nil || a.LogFile == "" {
		return DefaultAuditLogFile
	}

	return a.LogFile
}

// GetMaxSizeMB returns the rotation size in megabytes.
func (a *AuditConfig) GetMaxSizeMB() int {
	if a == nil || a.MaxSizeMB <= 0 {
		return DefaultAuditMaxSizeMB
	}

	return a.MaxSizeMB
}
