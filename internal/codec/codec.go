// Package codec maps host lifecycle events onto canonical hook commands.
package codec

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/desgate/pkg/config"
	"github.com/smykla-skalski/desgate/pkg/hook"
)

var (
	// ErrNotApplicable is returned when an event is not intercepted.
	ErrNotApplicable = errors.New("event not applicable")

	// ErrUnknownHost is returned when no host table exists for a host name.
	ErrUnknownHost = errors.New("unknown host")

	// ErrEmptyInput is returned when the payload is empty.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidJSON is returned when the payload is not a JSON object.
	ErrInvalidJSON = errors.New("invalid JSON")
)

// Codec decodes host payloads using declarative host tables.
type Codec struct {
	hosts         map[string]*config.HostConfig
	governedTools []string
	workDir       string
}

// Option configures a Codec.
type Option func(*Codec)

// WithGovernedTools sets the default governed tool patterns, used by hosts
// that do not declare their own.
func WithGovernedTools(patterns []string) Option {
	return func(c *Codec) {
		if len(patterns) > 0 {
			c.governedTools = patterns
		}
	}
}

// WithWorkDir sets the fallback working directory for stop requests whose
// payload carries none.
func WithWorkDir(dir string) Option {
	return func(c *Codec) {
		c.workDir = dir
	}
}

// New creates a Codec from the built-in host tables overlaid with overrides.
func New(overrides map[string]*config.HostConfig, opts ...Option) (*Codec, error) {
	builtin, err := BuiltinHosts()
	if err != nil {
		return nil, err
	}

	c := &Codec{
		hosts:         MergeHosts(builtin, overrides),
		governedTools: config.DefaultGovernedTools,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Host returns the effective table for a host.
func (c *Codec) Host(name string) (*config.HostConfig, error) {
	host, ok := c.hosts[name]
	if !ok || host == nil {
		return nil, errors.Wrapf(ErrUnknownHost, "%q", name)
	}

	return host, nil
}

// Hosts returns the sorted names of all known hosts.
func (c *Codec) Hosts() []string {
	return slices.Sorted(maps.Keys(c.hosts))
}

// Decode maps a host event and its raw payload onto a command and request.
// Returns ErrNotApplicable for events that are not intercepted.
func (c *Codec) Decode(hostName, event string, payload []byte) (hook.Command, hook.Request, error) {
	host, err := c.Host(hostName)
	if err != nil {
		return hook.CommandUnknown, nil, err
	}

	cmd, err := c.Command(host, event)
	if err != nil {
		return hook.CommandUnknown, nil, err
	}

	if len(payload) == 0 {
		return cmd, nil, ErrEmptyInput
	}

	var raw map[string]any

	if err := json.Unmarshal(payload, &raw); err != nil {
		return cmd, nil, errors.Mark(errors.Wrap(err, "decoding payload"), ErrInvalidJSON)
	}

	if raw == nil {
		return cmd, nil, errors.Wrap(ErrInvalidJSON, "payload is not an object")
	}

	req, err := c.Normalize(host, cmd, raw)
	if err != nil {
		return cmd, nil, err
	}

	req[hook.KeyHookEventName] = event
	req[hook.KeyHost] = hostName

	return cmd, req, nil
}

// Command resolves an event name to a command.
func (*Codec) Command(host *config.HostConfig, event string) (hook.Command, error) {
	name, ok := host.Events[event]
	if !ok {
		return hook.CommandUnknown, errors.Wrapf(ErrNotApplicable, "event %q", event)
	}

	cmd, err := hook.ParseCommand(name)
	if err != nil {
		return hook.CommandUnknown, errors.Wrapf(err, "event %q", event)
	}

	return cmd, nil
}

// Normalize builds the canonical request from a decoded payload. Host keys
// consumed by a field mapping are dropped, unmapped keys pass through.
func (c *Codec) Normalize(host *config.HostConfig, cmd hook.Command, raw map[string]any) (hook.Request, error) {
	req := hook.NewRequest()

	consumed := make(map[string]bool)

	for canonical, aliases := range host.Fields {
		for _, alias := range aliases {
			if alias != canonical && !strings.Contains(alias, ".") {
				consumed[alias] = true
			}
		}

		for _, alias := range aliases {
			if v, ok := lookup(raw, alias); ok && v != nil {
				req[canonical] = v

				break
			}
		}
	}

	for k, v := range raw {
		if consumed[k] {
			continue
		}

		if _, ok := req[k]; !ok {
			req[k] = v
		}
	}

	if cmd.IsToolEvent() {
		tool := req.ToolName()
		if tool == "" {
			return nil, errors.Wrap(ErrNotApplicable, "payload carries no tool name")
		}

		governed, err := c.IsGoverned(host, tool)
		if err != nil {
			return nil, err
		}

		if !governed {
			return nil, errors.Wrapf(ErrNotApplicable, "tool %q is not governed", tool)
		}

		if _, ok := req[hook.KeyToolInput]; !ok {
			req[hook.KeyToolInput] = map[string]any{}
		}
	}

	if cmd == hook.CommandStop {
		if _, ok := req[hook.KeyStopHookActive].(bool); !ok {
			req[hook.KeyStopHookActive] = false
		}

		if req.String(hook.KeyCWD) == "" && c.workDir != "" {
			req[hook.KeyCWD] = c.workDir
		}
	}

	for _, key := range hook.RequiredKeys(cmd) {
		if _, ok := req[key]; !ok {
			req[key] = ""
		}
	}

	return req, nil
}

// IsGoverned reports whether a tool matches the host's governed patterns.
func (c *Codec) IsGoverned(host *config.HostConfig, tool string) (bool, error) {
	patterns := host.GovernedTools
	if len(patterns) == 0 {
		patterns = c.governedTools
	}

	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, tool)
		if err != nil {
			return false, errors.Wrapf(err, "governed tool pattern %q", pattern)
		}

		if ok {
			return true, nil
		}
	}

	return false, nil
}

// lookup resolves a host key. An exact match wins over a dotted path into
// nested objects.
func lookup(raw map[string]any, key string) (any, bool) {
	if v, ok := raw[key]; ok {
		return v, true
	}

	if !strings.Contains(key, ".") {
		return nil, false
	}

	var cur any = raw

	for part := range strings.SplitSeq(key, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}

		if cur, ok = obj[part]; !ok {
			return nil, false
		}
	}

	return cur, true
}
