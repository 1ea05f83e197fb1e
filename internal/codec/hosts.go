package codec

import (
	_ "embed"
	"maps"
	"slices"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/smykla-skalski/desgate/pkg/config"
)

//go:embed hosts.yaml
var builtinHostsYAML []byte

// Built-in host names.
const (
	HostClaude   = "claude"
	HostOpenCode = "opencode"
)

// BuiltinHosts returns fresh copies of the embedded host tables.
func BuiltinHosts() (map[string]*config.HostConfig, error) {
	var hosts map[string]*config.HostConfig

	if err := yaml.Unmarshal(builtinHostsYAML, &hosts); err != nil {
		return nil, errors.Wrap(err, "parsing built-in host tables")
	}

	return hosts, nil
}

// MergeHosts overlays user host tables onto base. Known hosts are merged per
// key, unknown hosts are added as-is.
func MergeHosts(base, overrides map[string]*config.HostConfig) map[string]*config.HostConfig {
	merged := make(map[string]*config.HostConfig, len(base)+len(overrides))

	for _, name := range slices.Sorted(maps.Keys(base)) {
		merged[name] = base[name].Merge(overrides[name])
	}

	for name, host := range overrides {
		if _, ok := merged[name]; !ok {
			merged[name] = (*config.HostConfig)(nil).Merge(host)
		}
	}

	return merged
}
