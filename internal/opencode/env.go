package opencode

import (
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
)

// ErrInvalidEnv is returned when the env file is not a JSON object of strings.
var ErrInvalidEnv = errors.New("invalid OpenCode env file")

// Env holds the validator locations written next to the plugin. The file is
// a JSON object keyed by the installer variable names.
type Env struct {
	Root   string `json:"NWAVE_ROOT,omitempty"`
	Python string `json:"NWAVE_PYTHON,omitempty"`
}

// ParseEnv decodes env file content into its variables. Non-string values
// are dropped.
func ParseEnv(data []byte) (map[string]string, error) {
	var raw map[string]any

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decoding env file"), ErrInvalidEnv)
	}

	if raw == nil {
		return nil, errors.Wrap(ErrInvalidEnv, "env file is not an object")
	}

	vars := make(map[string]string, len(raw))

	for key, value := range raw {
		if s, ok := value.(string); ok && s != "" {
			vars[key] = s
		}
	}

	return vars, nil
}

// ReadEnv reads the env file at path.
func ReadEnv(path string) (*Env, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is the OpenCode plugin directory
	if err != nil {
		return nil, err
	}

	vars, err := ParseEnv(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}

	return &Env{Root: vars["NWAVE_ROOT"], Python: vars["NWAVE_PYTHON"]}, nil
}

// Marshal encodes the env file content.
func (e *Env) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encoding env file")
	}

	return append(data, '\n'), nil
}
