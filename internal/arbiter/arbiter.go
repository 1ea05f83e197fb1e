// Package arbiter applies per-command fail-open and fail-closed policy to
// validator decisions.
package arbiter

import (
	"context"
	"strings"

	"github.com/smykla-skalski/desgate/pkg/config"
	"github.com/smykla-skalski/desgate/pkg/hook"
	"github.com/smykla-skalski/desgate/pkg/logger"
)

//go:generate enumer -type=Action -trimprefix=Action -transform=kebab -output=action_enumer.go
//go:generate go run github.com/smykla-skalski/desgate/tools/enumerfix action_enumer.go

// Action is the externally observable outcome of one invocation.
type Action int

const (
	// ActionProceed lets the host continue.
	ActionProceed Action = iota

	// ActionReject signals the host to reject the step.
	ActionReject

	// ActionLogOnly swallows the decision after logging it.
	ActionLogOnly
)

// Verdict is the resolved action plus what the host should see.
type Verdict struct {
	Action Action

	// Reason is the rejection message for ActionReject, the logged message
	// otherwise.
	Reason string

	// Unexpected marks decisions the validator should not have produced.
	Unexpected bool
}

// RejectionError is returned when the host must reject the step.
type RejectionError struct {
	Command hook.Command
	Kind    hook.Kind
	Reason  string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

// Resolve maps a command and decision kind onto an action.
//
//	              Allow    Block             Error
//	pre-tool-use  proceed  reject            reject
//	post-tool-use proceed  log (unexpected)  log
//	stop          proceed  reject            log, reject with sentinel
func Resolve(cmd hook.Command, decision hook.Decision, sentinel string) Verdict {
	if decision.Kind == hook.KindAllow {
		return Verdict{Action: ActionProceed}
	}

	v := Verdict{Reason: decision.Reason}

	switch cmd {
	case hook.CommandPreToolUse:
		v.Action = ActionReject
	case hook.CommandPostToolUse:
		v.Action = ActionLogOnly
		v.Unexpected = decision.Kind == hook.KindBlock
	case hook.CommandStop:
		switch {
		case decision.Kind == hook.KindBlock:
			v.Action = ActionReject
		case sentinel != "" && strings.Contains(decision.Reason, sentinel):
			v.Action = ActionReject
		default:
			v.Action = ActionLogOnly
		}
	default:
		v.Action = ActionLogOnly
		v.Unexpected = true
	}

	return v
}

// Arbiter applies verdicts: logs swallowed decisions and forwards context.
type Arbiter struct {
	sentinel string
	sink     ContextSink
	log      logger.Logger
}

// Option configures an Arbiter.
type Option func(*Arbiter)

// WithSentinel overrides the stop validation sentinel.
func WithSentinel(sentinel string) Option {
	return func(a *Arbiter) {
		if sentinel != "" {
			a.sentinel = sentinel
		}
	}
}

// WithSink sets the additional context sink.
func WithSink(sink ContextSink) Option {
	return func(a *Arbiter) {
		a.sink = sink
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(a *Arbiter) {
		a.log = log
	}
}

// New creates an Arbiter. Without a sink, additional context is logged.
func New(opts ...Option) *Arbiter {
	a := &Arbiter{
		sentinel: config.DefaultStopSentinel,
		log:      logger.NewNoOpLogger(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.sink == nil {
		a.sink = NewLogSink(a.log)
	}

	return a
}

// Sink returns the context sink in use.
func (a *Arbiter) Sink() ContextSink {
	return a.sink
}

// Arbitrate applies the policy and returns a *RejectionError when the host
// must reject the step.
func (a *Arbiter) Arbitrate(ctx context.Context, cmd hook.Command, decision hook.Decision) (Verdict, error) {
	v := Resolve(cmd, decision, a.sentinel)

	log := a.log.With("command", cmd.String(), "decision", decision.Kind.String())

	switch v.Action {
	case ActionProceed:
		if decision.AdditionalContext != "" {
			a.sink.Add(ctx, cmd, decision.AdditionalContext)
		}

		log.Debug("proceeding")

		return v, nil
	case ActionLogOnly:
		if v.Unexpected {
			log.Error("unexpected decision, ignoring", "reason", v.Reason)
		} else {
			log.Info("validation failure ignored", "reason", v.Reason)
		}

		return v, nil
	default:
		log.Info("rejecting", "reason", v.Reason)

		return v, &RejectionError{Command: cmd, Kind: decision.Kind, Reason: v.Reason}
	}
}
