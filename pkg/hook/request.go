package hook

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// ErrUnknownCommand is returned when a command string does not name a hook command.
var ErrUnknownCommand = errors.New("unknown hook command")

// Canonical request field names. Every host integration maps its own payload
// keys onto these before the request reaches the validator.
const (
	KeyToolName       = "tool_name"
	KeyToolInput      = "tool_input"
	KeyToolResponse   = "tool_response"
	KeySessionID      = "session_id"
	KeyTranscriptPath = "transcript_path"
	KeyCWD            = "cwd"
	KeyStopHookActive = "stop_hook_active"
	KeyHookEventName  = "hook_event_name"
	KeyHost           = "host"
	KeyPendingSteps   = "pending_steps"
	KeyValidatedSteps = "validated_steps"
)

// RequiredKeys returns the canonical fields a request for cmd must carry.
func RequiredKeys(cmd Command) []string {
	switch cmd {
	case CommandPreToolUse, CommandPostToolUse:
		return []string{KeyToolName, KeyToolInput, KeySessionID}
	case CommandStop:
		return []string{KeySessionID, KeyTranscriptPath, KeyCWD, KeyStopHookActive}
	default:
		return nil
	}
}

// Request is the host-agnostic payload sent to the validator.
type Request map[string]any

// NewRequest returns an empty request.
func NewRequest() Request {
	return make(Request)
}

// String returns the string value stored under key, or "".
func (r Request) String(key string) string {
	s, _ := r[key].(string)

	return s
}

// Bool returns the bool value stored under key, or false.
func (r Request) Bool(key string) bool {
	b, _ := r[key].(bool)

	return b
}

// ToolInput returns the tool arguments as a map. Returns nil when the tool
// input is missing or not an object.
func (r Request) ToolInput() map[string]any {
	m, _ := r[KeyToolInput].(map[string]any)

	return m
}

// SessionID returns the session identifier.
func (r Request) SessionID() string {
	return r.String(KeySessionID)
}

// ToolName returns the governed tool identity.
func (r Request) ToolName() string {
	return r.String(KeyToolName)
}

// Encode serializes the request as a single JSON object.
func (r Request) Encode() ([]byte, error) {
	data, err := json.Marshal(map[string]any(r))
	if err != nil {
		return nil, errors.Wrap(err, "encoding request")
	}

	return data, nil
}
