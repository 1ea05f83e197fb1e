package config

// Host protocols understood by the hook dispatcher.
const (
	// ProtocolClaude answers with Claude Code hook JSON on stdout and exit 0.
	ProtocolClaude = "claude"

	// ProtocolExitCode answers with the reason on stderr and exit code 2.
	ProtocolExitCode = "exit-code"
)

// Context sink kinds.
const (
	// SinkInject hands additional context back to the host conversation.
	SinkInject = "inject"

	// SinkLog only logs additional context.
	SinkLog = "log"
)

// HostConfig is the declarative table describing one host integration.
// Adding a host means adding one of these; no code changes are needed as long
// as the host speaks one of the known protocols.
type HostConfig struct {
	// Protocol selects how decisions are reported back ("claude" or "exit-code").
	Protocol string `json:"protocol,omitempty" jsonschema:"enum=claude,enum=exit-code" koanf:"protocol" toml:"protocol,omitempty" yaml:"protocol"`

	// Events maps host event names to canonical commands
	// ("pre-tool-use", "post-tool-use", "stop").
	Events map[string]string `json:"events,omitempty" koanf:"events" toml:"events,omitempty" yaml:"events"`

	// Fields maps canonical request fields to host payload keys, tried in order.
	// Dotted keys address nested objects ("args.prompt").
	Fields map[string][]string `json:"fields,omitempty" koanf:"fields" toml:"fields,omitempty" yaml:"fields"`

	// GovernedTools overrides bridge.governed_tools for this host.
	GovernedTools []string `json:"governed_tools,omitempty" koanf:"governed_tools" toml:"governed_tools,omitempty" yaml:"governed_tools"`

	// ValidatorArgs overrides validator.args for this host.
	ValidatorArgs []string `json:"validator_args,omitempty" koanf:"validator_args" toml:"validator_args,omitempty" yaml:"validator_args"`

	// ContextSink selects "inject" or "log" for additional context.
	ContextSink string `json:"context_sink,omitempty" jsonschema:"enum=inject,enum=log" koanf:"context_sink" toml:"context_sink,omitempty" yaml:"context_sink"`
}

// GetContextSink returns the sink kind, defaulting to SinkLog.
func (h *HostConfig) GetContextSink() string {
	if h == nil || h.ContextSink == "" {
		return SinkLog
	}

	return h.ContextSink
}

// GetProtocol returns the protocol, defaulting to ProtocolExitCode.
func (h *HostConfig) GetProtocol() string {
	if h == nil || h.Protocol == "" {
		return ProtocolExitCode
	}

	return h.Protocol
}

// Merge returns a copy of h with every non-empty field of override applied.
// Events and Fields merge per key.
func (h *HostConfig) Merge(override *HostConfig) *HostConfig {
	merged := &HostConfig{
		Events: make(map[string]string),
		Fields: make(map[string][]string),
	}

	for _, src := range []*HostConfig{h, override} {
		if src == nil {
			continue
		}

		if src.Protocol != "" {
			merged.Protocol = src.Protocol
		}

		if src.ContextSink != "" {
			merged.ContextSink = src.ContextSink
		}

		if len(src.GovernedTools) > 0 {
			merged.GovernedTools = src.GovernedTools
		}

		if len(src.ValidatorArgs) > 0 {
			merged.ValidatorArgs = src.ValidatorArgs
		}

		for k, v := range src.Events {
			merged.Events[k] = v
		}

		for k, v := range src.Fields {
			merged.Fields[k] = v
		}
	}

	return merged
}
