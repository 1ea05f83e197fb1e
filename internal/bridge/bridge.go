// Package bridge wires host hook callbacks to the validation pipeline:
// codec, invoker, interpreter, arbiter.
package bridge

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hako/durafmt"

	"github.com/smykla-skalski/desgate/internal/arbiter"
	"github.com/smykla-skalski/desgate/internal/audit"
	"github.com/smykla-skalski/desgate/internal/codec"
	"github.com/smykla-skalski/desgate/internal/exec"
	"github.com/smykla-skalski/desgate/internal/interpreter"
	"github.com/smykla-skalski/desgate/internal/invoker"
	"github.com/smykla-skalski/desgate/internal/session"
	"github.com/smykla-skalski/desgate/pkg/config"
	"github.com/smykla-skalski/desgate/pkg/hook"
	"github.com/smykla-skalski/desgate/pkg/logger"
	"github.com/smykla-skalski/desgate/pkg/stringutil"
)

// durationDisplayUnits limits formatted durations to the two largest units.
const durationDisplayUnits = 2

// anomalyInvalidPayload is recorded when the host payload cannot be decoded.
const anomalyInvalidPayload = "invalid_payload"

// Result describes one handled host event.
type Result struct {
	Host    string
	Event   string
	Command hook.Command

	// Applicable is false when the event was not intercepted.
	Applicable bool

	Decision hook.Decision
	Verdict  arbiter.Verdict

	// Context is the additional context collected for the host.
	Context string

	// Step is the DES step key found in the request, if any.
	Step string

	Duration time.Duration

	// Rejection is set when the host must reject the step.
	Rejection *arbiter.RejectionError
}

// Rejected returns true when the host must reject the step.
func (r *Result) Rejected() bool {
	return r.Rejection != nil
}

// Bridge handles host events end to end. It holds no per-invocation state and
// is safe for concurrent use.
type Bridge struct {
	cfg     *config.Config
	codec   *codec.Codec
	runner  exec.CommandRunner
	audit   audit.Recorder
	tracker *session.Tracker
	log     logger.Logger
	now     func() time.Time
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithRunner replaces the validator process runner.
func WithRunner(runner exec.CommandRunner) Option {
	return func(b *Bridge) {
		b.runner = runner
	}
}

// WithAudit sets the audit recorder.
func WithAudit(rec audit.Recorder) Option {
	return func(b *Bridge) {
		if rec != nil {
			b.audit = rec
		}
	}
}

// WithTracker enables session step tracking.
func WithTracker(t *session.Tracker) Option {
	return func(b *Bridge) {
		b.tracker = t
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(b *Bridge) {
		if log != nil {
			b.log = log
		}
	}
}

// WithTimeFunc sets a custom time function for testing.
func WithTimeFunc(fn func() time.Time) Option {
	return func(b *Bridge) {
		if fn != nil {
			b.now = fn
		}
	}
}

// New creates a Bridge.
func New(cfg *config.Config, c *codec.Codec, opts ...Option) *Bridge {
	b := &Bridge{
		cfg:   cfg,
		codec: c,
		audit: audit.Nop{},
		log:   logger.NewNoOpLogger(),
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.runner == nil {
		b.runner = exec.NewCommandRunner(cfg.GetValidator().GetTimeout())
	}

	return b
}

// Codec returns the codec in use.
func (b *Bridge) Codec() *codec.Codec {
	return b.codec
}

// Handle runs one host event through the pipeline. The returned error is
// reserved for failures outside the hook contract (unknown host); every
// validator failure is expressed in the result.
func (b *Bridge) Handle(ctx context.Context, hostName, event string, payload []byte) (*Result, error) {
	host, err := b.codec.Host(hostName)
	if err != nil {
		return nil, err
	}

	start := b.now()
	res := &Result{Host: hostName, Event: event}
	log := b.log.With("host", hostName, "event", event)

	cmd, req, err := b.codec.Decode(hostName, event, payload)
	res.Command = cmd

	switch {
	case err == nil:
	case errors.Is(err, codec.ErrNotApplicable), errors.Is(err, codec.ErrEmptyInput):
		log.Debug("event not intercepted", "reason", err.Error())

		res.Verdict = arbiter.Verdict{Action: arbiter.ActionProceed}

		return res, nil
	case errors.Is(err, codec.ErrInvalidJSON):
		b.audit.Record(&audit.Entry{
			Event:     audit.EventProtocolAnomaly,
			Host:      hostName,
			HookEvent: event,
			Command:   cmd.String(),
			Anomaly:   anomalyInvalidPayload,
			Detail:    stringutil.Truncate(string(payload), audit.MaxCapture),
		})

		res.Applicable = true
		res.Decision = interpreter.New().FromError(errors.Wrap(err, "invalid hook payload"))

		return b.arbitrate(ctx, host, res, log, start)
	default:
		return nil, err
	}

	res.Applicable = true
	res.Step = b.stepKey(cmd, req)

	b.attachSteps(cmd, req, log)

	b.audit.Record(&audit.Entry{
		Event:     audit.EventHookInvoked,
		Host:      hostName,
		HookEvent: event,
		Command:   cmd.String(),
		Tool:      req.ToolName(),
		SessionID: req.SessionID(),
		Step:      res.Step,
	})

	res.Decision = b.decide(ctx, host, res, req, log)

	res, err = b.arbitrate(ctx, host, res, log, start)
	if err != nil {
		return nil, err
	}

	b.updateSteps(res, req, log)

	return res, nil
}

// decide invokes the validator and interprets what it produced.
func (b *Bridge) decide(
	ctx context.Context,
	host *config.HostConfig,
	res *Result,
	req hook.Request,
	log logger.Logger,
) hook.Decision {
	interp := interpreter.New(
		interpreter.WithLogger(log),
		interpreter.WithAnomalyHook(func(kind, detail string) {
			b.audit.Record(&audit.Entry{
				Event:     audit.EventProtocolAnomaly,
				Host:      res.Host,
				HookEvent: res.Event,
				Command:   res.Command.String(),
				SessionID: req.SessionID(),
				Anomaly:   kind,
				Detail:    detail,
			})
		}),
	)

	inv := invoker.New(b.cfg.GetValidator(),
		invoker.WithRunner(b.runner),
		invoker.WithArgs(host.ValidatorArgs),
		invoker.WithLogger(log),
	)

	outcome, err := inv.Invoke(ctx, res.Command, req)
	if err != nil {
		entry := &audit.Entry{
			Event:     audit.EventHookError,
			Host:      res.Host,
			HookEvent: res.Event,
			Command:   res.Command.String(),
			SessionID: req.SessionID(),
			Error:     err.Error(),
		}

		if outcome != nil {
			entry.Stderr = stringutil.Truncate(outcome.ErrorText, audit.MaxCapture)
		}

		b.audit.Record(entry)

		log.Error("validator invocation failed", "error", err.Error())

		return interp.FromError(err)
	}

	return interp.Interpret(outcome)
}

// arbitrate applies the policy for the host and records the completion.
func (b *Bridge) arbitrate(
	ctx context.Context,
	host *config.HostConfig,
	res *Result,
	log logger.Logger,
	start time.Time,
) (*Result, error) {
	sink := newSink(host, res.Command, log)

	arb := arbiter.New(
		arbiter.WithSentinel(b.cfg.GetBridge().GetStopSentinel()),
		arbiter.WithSink(sink),
		arbiter.WithLogger(log),
	)

	verdict, err := arb.Arbitrate(ctx, res.Command, res.Decision)
	res.Verdict = verdict

	var rejection *arbiter.RejectionError
	if errors.As(err, &rejection) {
		res.Rejection = rejection
	} else if err != nil {
		return nil, err
	}

	if buf, ok := sink.(*arbiter.BufferSink); ok {
		res.Context = buf.Text()
	}

	res.Duration = b.now().Sub(start)

	b.recordCompleted(res, log)

	return res, nil
}

func (b *Bridge) recordCompleted(res *Result, log logger.Logger) {
	slow := res.Duration > b.cfg.GetBridge().GetSlowThreshold()
	if slow {
		log.Info("slow hook",
			"command", res.Command.String(),
			"duration", durafmt.Parse(res.Duration).LimitFirstN(durationDisplayUnits).String(),
		)
	}

	entry := &audit.Entry{
		Event:      audit.EventHookCompleted,
		Host:       res.Host,
		HookEvent:  res.Event,
		Command:    res.Command.String(),
		Step:       res.Step,
		Decision:   res.Decision.Kind.String(),
		Action:     res.Verdict.Action.String(),
		Reason:     res.Verdict.Reason,
		DurationMS: res.Duration.Milliseconds(),
		SlowHook:   slow,
	}

	b.audit.Record(entry)
}

// stepKey extracts the DES step from a governed tool's prompt.
func (*Bridge) stepKey(cmd hook.Command, req hook.Request) string {
	if !cmd.IsToolEvent() {
		return ""
	}

	prompt, _ := req.ToolInput()["prompt"].(string)

	return codec.ParseMarkers(prompt).StepKey()
}

// attachSteps adds the tracked steps of the session to stop requests.
func (b *Bridge) attachSteps(cmd hook.Command, req hook.Request, log logger.Logger) {
	if cmd != hook.CommandStop || !b.tracker.IsEnabled() {
		return
	}

	info, err := b.tracker.Get(req.SessionID())
	if err != nil {
		log.Error("failed to read session state", "error", err.Error())

		return
	}

	pending, validated := []string{}, []string{}

	if info != nil {
		pending = append(pending, info.PendingSteps...)
		validated = append(validated, info.ValidatedSteps...)
	}

	req[hook.KeyPendingSteps] = pending
	req[hook.KeyValidatedSteps] = validated
}

// updateSteps records allowed dispatches and validated stops.
func (b *Bridge) updateSteps(res *Result, req hook.Request, log logger.Logger) {
	if !b.tracker.IsEnabled() || res.Decision.Kind != hook.KindAllow {
		return
	}

	var err error

	switch res.Command {
	case hook.CommandPreToolUse:
		err = b.tracker.RecordPending(req.SessionID(), res.Step)
	case hook.CommandStop:
		_, err = b.tracker.MarkValidated(req.SessionID())
	}

	if err != nil {
		log.Error("failed to update session state", "error", err.Error())
	}
}

// newSink picks where allow context goes. Hosts only accept injected context
// on tool events, so stop context is always logged.
func newSink(host *config.HostConfig, cmd hook.Command, log logger.Logger) arbiter.ContextSink {
	if host.GetContextSink() == config.SinkInject && cmd.IsToolEvent() {
		return arbiter.NewBufferSink()
	}

	return arbiter.NewLogSink(log)
}

// FailClosed builds the rejection for an event that arrived while desgate
// could not be set up, using only the built-in host tables. It returns nil
// unless the event is a governed pre-tool-use on a built-in host, which is
// the only command where proceeding would let an unvalidated step run.
func FailClosed(hostName, event string, payload []byte, cause error) (*Result, *config.HostConfig) {
	c, err := codec.New(nil)
	if err != nil {
		return nil, nil
	}

	host, err := c.Host(hostName)
	if err != nil {
		return nil, nil
	}

	cmd, _, err := c.Decode(hostName, event, payload)
	if cmd != hook.CommandPreToolUse || (err != nil && !errors.Is(err, codec.ErrInvalidJSON)) {
		return nil, nil
	}

	decision := interpreter.New().FromError(cause)

	return &Result{
		Host:       hostName,
		Event:      event,
		Command:    cmd,
		Applicable: true,
		Decision:   decision,
		Verdict:    arbiter.Verdict{Action: arbiter.ActionReject, Reason: decision.Reason},
		Rejection: &arbiter.RejectionError{
			Command: cmd,
			Kind:    decision.Kind,
			Reason:  decision.Reason,
		},
	}, host
}
