// Package schema generates the JSON Schema for desgate config files.
package schema

import (
	"encoding/json"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"

	"github.com/smykla-skalski/desgate/pkg/config"
)

const (
	schemaURI = "https://json-schema.org/draft/2020-12/schema"
	schemaID  = "https://github.com/smykla-skalski/desgate/desgate.schema.json"
	title     = "desgate configuration"

	hostsDescription = "Host integrations keyed by host name. Built-in hosts are merged per key."
)

// Generate reflects config.Config. hostNames are the built-in host tables;
// they become examples on the hosts property so editors can offer them.
func Generate(hostNames ...string) *jsonschema.Schema {
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
	}

	s := r.Reflect(&config.Config{})
	s.Version = schemaURI
	s.ID = schemaID
	s.Title = title

	if s.Properties == nil {
		return s
	}

	if hosts, ok := s.Properties.Get("hosts"); ok && hosts != nil {
		hosts.Description = hostsDescription

		names := slices.Sorted(slices.Values(hostNames))
		for _, name := range slices.Compact(names) {
			hosts.Examples = append(hosts.Examples, map[string]any{name: map[string]any{}})
		}
	}

	return s
}

// GenerateJSON renders Generate. When indent is false the schema is a single
// line, both forms end with a newline.
func GenerateJSON(indent bool, hostNames ...string) ([]byte, error) {
	s := Generate(hostNames...)

	var (
		data []byte
		err  error
	)

	if indent {
		data, err = json.MarshalIndent(s, "", "  ")
	} else {
		data, err = json.Marshal(s)
	}

	if err != nil {
		return nil, errors.Wrap(err, "marshaling schema to JSON")
	}

	return append(data, '\n'), nil
}
