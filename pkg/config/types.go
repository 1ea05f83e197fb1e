package config

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
)

// ErrNegativeDuration rejects durations below zero.
var ErrNegativeDuration = errors.New("duration must be non-negative")

// durationPattern matches what time.ParseDuration accepts for non-negative values.
const durationPattern = `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`

// Duration is a non-negative time.Duration written as "30s" in config files.
// The loader also accepts a bare number of seconds.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", text)
	}

	if dur < 0 {
		return errors.Wrapf(ErrNegativeDuration, "got %s", dur)
	}

	*d = Duration(dur)

	return nil
}

// MarshalText writes the duration back in Go notation.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// ToDuration converts to time.Duration.
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}

// JSONSchema accepts a duration string or a number of seconds.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Description: "Go duration string, or a number of seconds",
		OneOf: []*jsonschema.Schema{
			{Type: "string", Pattern: durationPattern},
			{Type: "number", Minimum: json.Number("0")},
		},
		Examples: []any{"30s", "5m", 30},
	}
}
