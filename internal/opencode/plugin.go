// Package opencode renders the OpenCode plugin that forwards tool and session
// events to "desgate hook opencode", and reads the env file installed next to it.
package opencode

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/cockroachdb/errors"
)

const (
	// PluginFileName is the plugin file inside the OpenCode plugin directory.
	PluginFileName = "nwave-des-plugin.ts"

	// EnvFileName is the installer env file next to the plugin.
	EnvFileName = "nwave-des.env"
)

// hookCall is the argument list every managed plugin spawns desgate with.
var hookCall = []byte(`"hook", "opencode"`)

//go:embed plugin.ts.tmpl
var pluginSource string

var pluginTemplate = template.Must(template.New(PluginFileName).Parse(pluginSource))

// RenderPlugin returns the plugin source spawning the desgate binary at binary.
func RenderPlugin(binary string) ([]byte, error) {
	if binary == "" {
		return nil, errors.New("desgate binary path is empty")
	}

	var buf bytes.Buffer

	if err := pluginTemplate.Execute(&buf, struct{ Binary string }{Binary: binary}); err != nil {
		return nil, errors.Wrap(err, "rendering OpenCode plugin")
	}

	return buf.Bytes(), nil
}

// CallsDesgate reports whether plugin source spawns a binary named binaryName
// with the opencode hook arguments.
func CallsDesgate(source []byte, binaryName string) bool {
	return bytes.Contains(source, hookCall) && bytes.Contains(source, []byte(binaryName))
}
