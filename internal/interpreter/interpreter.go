// Package interpreter turns validator process outcomes into decisions.
package interpreter

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/desgate/pkg/hook"
	"github.com/smykla-skalski/desgate/pkg/logger"
	"github.com/smykla-skalski/desgate/pkg/stringutil"
)

// ErrProtocol is returned when validator output is not a structured response.
var ErrProtocol = errors.New("unparseable validator output")

const (
	// ReasonAdapterError prefixes Error reasons built from standard error.
	ReasonAdapterError = "DES adapter error"

	// ReasonValidationFailed is the Block reason when the validator gave none.
	ReasonValidationFailed = "DES validation failed"

	// MaxErrorText bounds how much standard error is carried into a reason.
	MaxErrorText = 1000
)

// Anomaly kinds reported through the anomaly hook.
const (
	AnomalyUnparseable      = "unparseable_output"
	AnomalyDecisionMismatch = "decision_mismatch"
)

// AnomalyFunc receives protocol anomalies. It must not block.
type AnomalyFunc func(kind, detail string)

// Interpreter combines exit status and response body into one decision.
type Interpreter struct {
	log       logger.Logger
	onAnomaly AnomalyFunc
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(i *Interpreter) {
		i.log = log
	}
}

// WithAnomalyHook registers a callback for protocol anomalies.
func WithAnomalyHook(fn AnomalyFunc) Option {
	return func(i *Interpreter) {
		i.onAnomaly = fn
	}
}

// New creates an Interpreter.
func New(opts ...Option) *Interpreter {
	i := &Interpreter{
		log:       logger.NewNoOpLogger(),
		onAnomaly: func(string, string) {},
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// Interpret maps an outcome to a decision. The exit status alone selects the
// kind; the response body only contributes text.
//
//	0     Allow
//	2     Block
//	other Error
func (i *Interpreter) Interpret(outcome *hook.Outcome) hook.Decision {
	resp, err := ParseResponse(outcome.Output)
	if err != nil {
		i.log.Error("ignoring validator output",
			"error", err,
			"exit", outcome.ExitStatus,
		)
		i.onAnomaly(AnomalyUnparseable, stringutil.Truncate(strings.TrimSpace(outcome.Output), MaxErrorText))
	}

	switch outcome.ExitStatus {
	case 0:
		if resp.Decision == hook.ResponseDecisionBlock || resp.Status == hook.ResponseStatusError {
			i.log.Info("validator exited 0 with a non-allow body, allowing",
				"decision", resp.Decision,
				"status", resp.Status,
				"reason", resp.Reason,
			)
			i.onAnomaly(AnomalyDecisionMismatch, "exit 0 with decision="+resp.Decision+" status="+resp.Status)
		}

		return hook.Allow(resp)
	case 2:
		reason := strings.TrimSpace(resp.Reason)
		if reason == "" {
			reason = ReasonValidationFailed
		}

		return hook.Block(reason, resp)
	default:
		return hook.Error(errorReason(resp, outcome.ErrorText), resp)
	}
}

// FromError turns an invocation failure into an Error decision.
func (*Interpreter) FromError(err error) hook.Decision {
	return hook.Error(ReasonAdapterError+": "+stringutil.Truncate(err.Error(), MaxErrorText), hook.Response{})
}

func errorReason(resp hook.Response, errorText string) string {
	if reason := strings.TrimSpace(resp.Reason); reason != "" {
		return reason
	}

	if text := strings.TrimSpace(errorText); text != "" {
		return ReasonAdapterError + ": " + stringutil.Truncate(text, MaxErrorText)
	}

	return ReasonAdapterError
}

// ParseResponse parses validator output. Empty output is an empty response.
// Fields of the wrong type are ignored individually; output that is not a
// JSON object yields an empty response and ErrProtocol.
func ParseResponse(output string) (hook.Response, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return hook.Response{}, nil
	}

	var fields map[string]any

	if err := json.Unmarshal([]byte(output), &fields); err != nil {
		return hook.Response{}, errors.Mark(errors.Wrapf(err, "%d bytes", len(output)), ErrProtocol)
	}

	return hook.Response{
		Decision:          stringField(fields, "decision"),
		Status:            stringField(fields, "status"),
		Reason:            stringField(fields, "reason"),
		AdditionalContext: stringField(fields, "additionalContext"),
	}, nil
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)

	return s
}
