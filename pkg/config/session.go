package config

import "time"

const (
	// DefaultSessionStateFile holds the step table shared by hook processes.
	DefaultSessionStateFile = "~/.desgate/session_state.json"

	// DefaultMaxSessionAge drops sessions idle for longer than a day.
	DefaultMaxSessionAge = 24 * time.Hour
)

// SessionConfig controls DES step tracking: which steps an agent session has
// dispatched through a governed tool and which of them passed stop
// validation. Off unless enabled.
type SessionConfig struct {
	Enabled *bool `json:"enabled,omitempty" koanf:"enabled" toml:"enabled"`

	// StateFile may start with "~/". Default: "~/.desgate/session_state.json"
	StateFile string `json:"state_file,omitempty" koanf:"state_file" toml:"state_file"`

	// MaxSessionAge expires sessions by last activity. Default: "24h"
	MaxSessionAge Duration `json:"max_session_age,omitempty" koanf:"max_session_age" toml:"max_session_age"`
}

// IsEnabled reports whether tracking was switched on.
func (s *SessionConfig) IsEnabled() bool {
	return s != nil && s.Enabled != nil && *s.Enabled
}

// GetStateFile returns StateFile or DefaultSessionStateFile.
func (s *SessionConfig) GetStateFile() string {
	if s == nil || s.StateFile == "" {
		return DefaultSessionStateFile
	}

	return s.StateFile
}

// GetMaxSessionAge returns MaxSessionAge or DefaultMaxSessionAge.
func (s *SessionConfig) GetMaxSessionAge() time.Duration {
	if s == nil || s.MaxSessionAge == 0 {
		return DefaultMaxSessionAge
	}

	return s.MaxSessionAge.ToDuration()
}
