package bridge

import (
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/desgate/internal/hookresponse"
	"github.com/smykla-skalski/desgate/pkg/config"
)

// Process exit codes seen by hosts.
const (
	// ExitOK lets the host continue.
	ExitOK = 0

	// ExitBlock signals a rejection to exit-code hosts.
	ExitBlock = 2
)

// Integration renders a result in a host's protocol.
type Integration interface {
	// Respond writes the host response and returns the process exit code.
	Respond(res *Result, stdout, stderr io.Writer) (int, error)
}

// IntegrationFor returns the integration for a host's protocol.
func IntegrationFor(host *config.HostConfig) Integration {
	if host.GetProtocol() == config.ProtocolClaude {
		return ClaudeIntegration{}
	}

	return ExitCodeIntegration{}
}

// ClaudeIntegration answers with JSON on stdout and always exits 0. Context
// is only injected for tool events.
type ClaudeIntegration struct{}

// Respond implements Integration.
func (ClaudeIntegration) Respond(res *Result, stdout, _ io.Writer) (int, error) {
	var resp *hookresponse.HookResponse

	switch {
	case res.Rejected():
		resp = hookresponse.Deny(res.Event, res.Command, res.Rejection.Reason)
	case res.Context != "" && res.Command.IsToolEvent():
		resp = hookresponse.Context(res.Event, res.Context)
	}

	if resp == nil {
		return ExitOK, nil
	}

	if err := json.NewEncoder(stdout).Encode(resp); err != nil {
		return ExitOK, errors.Wrap(err, "writing hook response")
	}

	return ExitOK, nil
}

// ExitCodeIntegration reports rejections as stderr text plus exit code 2.
// Used by OpenCode, whose plugin shim throws on a non-zero exit.
type ExitCodeIntegration struct{}

// Respond implements Integration.
func (ExitCodeIntegration) Respond(res *Result, _, stderr io.Writer) (int, error) {
	if !res.Rejected() {
		return ExitOK, nil
	}

	if _, err := io.WriteString(stderr, res.Rejection.Reason+"\n"); err != nil {
		return ExitBlock, errors.Wrap(err, "writing rejection")
	}

	return ExitBlock, nil
}
