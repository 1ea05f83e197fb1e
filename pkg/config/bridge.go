package config

import "time"

const (
	// DefaultStopSentinel marks an explicit stop-validation failure inside an
	// error reason. Such errors reject the stop even though errors fail open.
	DefaultStopSentinel = "STOP HOOK VALIDATION FAILED"

	// DefaultSlowThreshold flags hook runs slower than this in the audit trail.
	DefaultSlowThreshold = 5 * time.Second
)

// DefaultGovernedTools are the tool names whose invocations are validated.
var DefaultGovernedTools = []string{"Task", "task"}

// BridgeConfig holds policy knobs of the hook bridge.
type BridgeConfig struct {
	// GovernedTools are glob patterns matched against the tool name.
	// Host tables may narrow them. Default: ["Task", "task"]
	GovernedTools []string `json:"governed_tools,omitempty" koanf:"governed_tools" toml:"governed_tools,omitempty"`

	// StopSentinel is the substring that turns a stop error into a rejection.
	// Default: "STOP HOOK VALIDATION FAILED"
	StopSentinel string `json:"stop_sentinel,omitempty" koanf:"stop_sentinel" toml:"stop_sentinel,omitempty"`

	// SlowThreshold marks slow hook runs in the audit trail. Default: "5s"
	SlowThreshold Duration `json:"slow_threshold,omitempty" koanf:"slow_threshold" toml:"slow_threshold,omitempty"`
}

// GetGovernedTools returns the governed tool patterns.
func (b *BridgeConfig) GetGovernedTools() []string {
	if b == nil || len(b.GovernedTools) == 0 {
		return DefaultGovernedTools
	}

	return b.GovernedTools
}

// GetStopSentinel returns the stop sentinel marker.
func (b *BridgeConfig) GetStopSentinel() string {
	if b == nil || b.StopSentinel == "" {
		return DefaultStopSentinel
	}

	return b.StopSentinel
}

// GetSlowThreshold returns the slow hook threshold.
func (b *BridgeConfig) GetSlowThreshold() time.Duration {
	if b == nil || b.SlowThreshold == 0 {
		return DefaultSlowThreshold
	}

	return b.SlowThreshold.ToDuration()
}
