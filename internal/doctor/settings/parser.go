// Package settings provides utilities for parsing and updating Claude Code settings files.
package settings

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	ErrSettingsNotFound = errors.New("settings file not found")
	ErrInvalidJSON      = errors.New("invalid JSON syntax")
	ErrPermissionDenied = errors.New("permission denied")
)

// DefaultHookTimeout is the hook timeout, in seconds, written for new entries.
const DefaultHookTimeout = 60

// RequiredHook is a hook event desgate must be registered for.
type RequiredHook struct {
	Event   string
	Matcher string
}

// RequiredHooks lists the Claude Code events the DES bridge intercepts.
var RequiredHooks = []RequiredHook{
	{Event: "PreToolUse", Matcher: "Task"},
	{Event: "PostToolUse", Matcher: "Task"},
	{Event: "SubagentStop"},
}

// SettingsParser parses Claude Code settings.json files.
type SettingsParser struct {
	settingsPath string
}

// ClaudeSettings represents the structure of a Claude Code settings file.
// Keys other than hooks are preserved on rewrite.
type ClaudeSettings struct {
	Hooks map[string][]HookConfig
	Other map[string]json.RawMessage
}

// HookConfig represents a hook configuration block.
type HookConfig struct {
	Matcher string              `json:"matcher,omitempty"`
	Hooks   []HookCommandConfig `json:"hooks"`
}

// HookCommandConfig represents an individual hook command configuration.
type HookCommandConfig struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"`
}

// UnmarshalJSON splits hooks from the remaining keys.
func (s *ClaudeSettings) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Hooks = make(map[string][]HookConfig)

	if hooks, ok := raw["hooks"]; ok {
		if err := json.Unmarshal(hooks, &s.Hooks); err != nil {
			return err
		}

		delete(raw, "hooks")
	}

	s.Other = raw

	return nil
}

// MarshalJSON merges hooks back with the remaining keys.
func (s ClaudeSettings) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Other)+1)

	for k, v := range s.Other {
		out[k] = v
	}

	if len(s.Hooks) > 0 {
		out["hooks"] = s.Hooks
	}

	return json.Marshal(out)
}

// NewSettingsParser creates a new settings parser for the given file path.
func NewSettingsParser(path string) *SettingsParser {
	return &SettingsParser{
		settingsPath: path,
	}
}

// Path returns the settings file path.
func (p *SettingsParser) Path() string {
	return p.settingsPath
}

// Parse reads and parses the Claude settings file.
func (p *SettingsParser) Parse() (*ClaudeSettings, error) {
	data, err := os.ReadFile(p.settingsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithMessage(ErrSettingsNotFound, p.settingsPath)
		}

		if os.IsPermission(err) {
			return nil, errors.WithMessage(ErrPermissionDenied, p.settingsPath)
		}

		return nil, errors.Wrap(err, "failed to read settings file")
	}

	if len(data) == 0 {
		return &ClaudeSettings{Hooks: make(map[string][]HookConfig)}, nil
	}

	var settings ClaudeSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, errors.WithSecondaryError(
			errors.WithMessage(ErrInvalidJSON, "in "+p.settingsPath),
			err,
		)
	}

	return &settings, nil
}

// HookCommand returns the command line registered for a Claude Code event.
func HookCommand(binary, event string) string {
	return binary + " hook claude " + event
}

// IsRegistered reports whether a command invoking binary for event is present.
func (s *ClaudeSettings) IsRegistered(binary, event string) bool {
	for _, hc := range s.Hooks[event] {
		for _, h := range hc.Hooks {
			if h.Type == "command" && strings.Contains(h.Command, binary) &&
				strings.Contains(h.Command, " hook ") {
				return true
			}
		}
	}

	return false
}

// MissingHooks returns the required hooks not registered for binary.
func (s *ClaudeSettings) MissingHooks(binary string) []RequiredHook {
	var missing []RequiredHook

	for _, rh := range RequiredHooks {
		if !s.IsRegistered(binary, rh.Event) {
			missing = append(missing, rh)
		}
	}

	return missing
}

// Register adds entries for every missing required hook. Returns the number
// of entries added.
func (s *ClaudeSettings) Register(binaryPath, binaryName string) int {
	if s.Hooks == nil {
		s.Hooks = make(map[string][]HookConfig)
	}

	missing := s.MissingHooks(binaryName)

	for _, rh := range missing {
		s.Hooks[rh.Event] = append(s.Hooks[rh.Event], HookConfig{
			Matcher: rh.Matcher,
			Hooks: []HookCommandConfig{{
				Type:    "command",
				Command: HookCommand(binaryPath, rh.Event),
				Timeout: DefaultHookTimeout,
			}},
		})
	}

	return len(missing)
}
