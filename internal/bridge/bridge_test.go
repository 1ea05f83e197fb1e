package bridge_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/smykla-skalski/desgate/internal/arbiter"
	"github.com/smykla-skalski/desgate/internal/audit"
	"github.com/smykla-skalski/desgate/internal/bridge"
	"github.com/smykla-skalski/desgate/internal/codec"
	"github.com/smykla-skalski/desgate/internal/exec"
	"github.com/smykla-skalski/desgate/internal/session"
	"github.com/smykla-skalski/desgate/pkg/config"
	"github.com/smykla-skalski/desgate/pkg/hook"
)

type recorder struct {
	mu      sync.Mutex
	entries []*audit.Entry
}

func (r *recorder) Record(e *audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, e)
}

func (r *recorder) events() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]audit.Event, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Event)
	}

	return out
}

func (r *recorder) last() *audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.entries[len(r.entries)-1]
}

const taskPrompt = `<!-- DES-PROJECT-ID: shop -->
<!-- DES-STEP-ID: 01-02 -->
implement the cart`

func claudePre(tool string) []byte {
	data, _ := json.Marshal(map[string]any{
		"session_id":      "s1",
		"hook_event_name": "PreToolUse",
		"tool_name":       tool,
		"tool_input":      map[string]any{"prompt": taskPrompt},
	})

	return data
}

func claudeStop() []byte {
	return []byte(`{"session_id":"s1","transcript_path":"/tmp/t.jsonl","cwd":"/work","stop_hook_active":false}`)
}

var _ = Describe("Bridge", func() {
	var (
		ctrl   *gomock.Controller
		runner *exec.MockCommandRunner
		rec    *recorder
		cfg    *config.Config
		b      *bridge.Bridge
		ctx    context.Context
	)

	reply := func(exit int, stdout, stderr string) {
		runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(&exec.CommandResult{
			ExitCode: exit,
			Stdout:   stdout,
			Stderr:   stderr,
		})
	}

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		runner = exec.NewMockCommandRunner(ctrl)
		rec = &recorder{}
		ctx = context.Background()
		cfg = &config.Config{
			Validator: &config.ValidatorConfig{Executable: "python3", Root: "/opt/nwave"},
		}

		c, err := codec.New(nil, codec.WithWorkDir("/work"))
		Expect(err).NotTo(HaveOccurred())

		b = bridge.New(cfg, c, bridge.WithRunner(runner), bridge.WithAudit(rec))
	})

	Describe("Handle", func() {
		It("returns an error for an unknown host", func() {
			_, err := b.Handle(ctx, "vim", "PreToolUse", claudePre("Task"))
			Expect(err).To(MatchError(codec.ErrUnknownHost))
		})

		It("does not invoke the validator for ungoverned tools", func() {
			res, err := b.Handle(ctx, codec.HostClaude, "PreToolUse", claudePre("Bash"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Applicable).To(BeFalse())
			Expect(res.Verdict.Action).To(Equal(arbiter.ActionProceed))
			Expect(rec.events()).To(BeEmpty())
		})

		It("proceeds on an empty payload", func() {
			res, err := b.Handle(ctx, codec.HostClaude, "PreToolUse", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Applicable).To(BeFalse())
			Expect(res.Rejected()).To(BeFalse())
		})

		It("passes the command and the host's adapter module to the validator", func() {
			runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, c *exec.Command) *exec.CommandResult {
					Expect(c.Args).To(Equal([]string{
						"-m", "des.adapters.drivers.hooks.claude_code_hook_adapter", "pre-tool-use",
					}))

					return &exec.CommandResult{}
				})

			res, err := b.Handle(ctx, codec.HostClaude, "PreToolUse", claudePre("Task"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Applicable).To(BeTrue())
			Expect(res.Command).To(Equal(hook.CommandPreToolUse))
			Expect(res.Step).To(Equal("shop/01-02"))
			Expect(res.Verdict.Action).To(Equal(arbiter.ActionProceed))
			Expect(rec.events()).To(Equal([]audit.Event{audit.EventHookInvoked, audit.EventHookCompleted}))
		})

		It("rejects a blocked pre-tool-use with the validator reason", func() {
			reply(2, `{"decision":"block","reason":"missing DES-STEP-ID"}`, "")

			res, err := b.Handle(ctx, codec.HostClaude, "PreToolUse", claudePre("Task"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Rejected()).To(BeTrue())
			Expect(res.Rejection.Reason).To(Equal("missing DES-STEP-ID"))
			Expect(res.Decision.Kind).To(Equal(hook.KindBlock))

			completed := rec.last()
			Expect(completed.Event).To(Equal(audit.EventHookCompleted))
			Expect(completed.Decision).To(Equal("block"))
			Expect(completed.Action).To(Equal("reject"))
		})

		It("rejects a pre-tool-use when the validator crashes", func() {
			reply(1, "", "Traceback: boom")

			res, err := b.Handle(ctx, codec.HostClaude, "PreToolUse", claudePre("Task"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Rejected()).To(BeTrue())
			Expect(res.Rejection.Reason).To(Equal("DES adapter error: Traceback: boom"))
		})

		It("rejects a pre-tool-use when the validator cannot launch", func() {
			runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(&exec.CommandResult{
				ExitCode: -1,
				Err: errors.Mark(
					errors.Wrap(errors.New("no such file or directory"), "starting python3"),
					exec.ErrLaunch,
				),
			})

			res, err := b.Handle(ctx, codec.HostClaude, "PreToolUse", claudePre("Task"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Rejected()).To(BeTrue())
			Expect(res.Rejection.Reason).To(HavePrefix("DES adapter error: "))
			Expect(res.Rejection.Reason).To(ContainSubstring("no such file or directory"))
			Expect(rec.events()).To(ContainElement(audit.EventHookError))
		})

		It("rejects a pre-tool-use when the validator times out", func() {
			runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(&exec.CommandResult{
				ExitCode: -1,
				TimedOut: true,
				Stderr:   "partial",
				Err:      exec.ErrTimeout,
			})

			res, err := b.Handle(ctx, codec.HostClaude, "PreToolUse", claudePre("Task"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Rejected()).To(BeTrue())
			Expect(res.Decision.Kind).To(Equal(hook.KindError))
		})

		It("rejects an undecodable pre-tool-use payload and records an anomaly", func() {
			res, err := b.Handle(ctx, codec.HostClaude, "PreToolUse", []byte("{not json"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Applicable).To(BeTrue())
			Expect(res.Rejected()).To(BeTrue())
			Expect(rec.events()).To(HaveExactElements(audit.EventProtocolAnomaly, audit.EventHookCompleted))
		})

		It("swallows post-tool-use failures", func() {
			reply(1, "", "boom")

			res, err := b.Handle(ctx, codec.HostClaude, "PostToolUse", claudePre("Task"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Rejected()).To(BeFalse())
			Expect(res.Verdict.Action).To(Equal(arbiter.ActionLogOnly))
		})

		It("flags a post-tool-use block as unexpected", func() {
			reply(2, `{"decision":"block","reason":"late"}`, "")

			res, err := b.Handle(ctx, codec.HostClaude, "PostToolUse", claudePre("Task"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Rejected()).To(BeFalse())
			Expect(res.Verdict.Unexpected).To(BeTrue())
		})

		It("collects additional context for inject hosts", func() {
			reply(0, `{"decision":"allow","additionalContext":"step 01-02 has 3 phases left"}`, "")

			res, err := b.Handle(ctx, codec.HostClaude, "PostToolUse", claudePre("Task"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Context).To(Equal("step 01-02 has 3 phases left"))
		})

		It("logs stop context instead of injecting it", func() {
			reply(0, `{"decision":"allow","additionalContext":"all phases done"}`, "")

			res, err := b.Handle(ctx, codec.HostClaude, "SubagentStop", claudeStop())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Command).To(Equal(hook.CommandStop))
			Expect(res.Verdict.Action).To(Equal(arbiter.ActionProceed))
			Expect(res.Context).To(BeEmpty())
		})

		It("does not collect context for log hosts", func() {
			reply(0, `{"decision":"allow","additionalContext":"hello"}`, "")

			payload := []byte(`{"tool":"task","args":{"prompt":"x"},"sessionID":"s1"}`)

			res, err := b.Handle(ctx, codec.HostOpenCode, "tool.execute.after", payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Context).To(BeEmpty())
		})

		It("records an anomaly for unparseable validator output", func() {
			reply(0, "not json at all", "")

			res, err := b.Handle(ctx, codec.HostClaude, "PreToolUse", claudePre("Task"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Verdict.Action).To(Equal(arbiter.ActionProceed))
			Expect(rec.events()).To(ContainElement(audit.EventProtocolAnomaly))
		})

		Context("stop", func() {
			It("rejects a blocked stop", func() {
				reply(2, `{"decision":"block","reason":"phases incomplete"}`, "")

				res, err := b.Handle(ctx, codec.HostClaude, "SubagentStop", claudeStop())
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Command).To(Equal(hook.CommandStop))
				Expect(res.Rejection.Reason).To(Equal("phases incomplete"))
			})

			It("rejects an error carrying the sentinel", func() {
				reply(1, `{"status":"error","reason":"STOP HOOK VALIDATION FAILED: phase 3"}`, "")

				res, err := b.Handle(ctx, codec.HostClaude, "Stop", claudeStop())
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Rejected()).To(BeTrue())
			})

			It("swallows a plain error", func() {
				reply(1, "", "ImportError")

				res, err := b.Handle(ctx, codec.HostClaude, "Stop", claudeStop())
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Rejected()).To(BeFalse())
				Expect(res.Verdict.Action).To(Equal(arbiter.ActionLogOnly))
			})

			It("honors a configured sentinel", func() {
				cfg.Bridge = &config.BridgeConfig{StopSentinel: "HALT"}
				reply(1, `{"reason":"HALT now"}`, "")

				res, err := b.Handle(ctx, codec.HostClaude, "Stop", claudeStop())
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Rejected()).To(BeTrue())
			})
		})

		It("marks slow hooks in the audit trail", func() {
			now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			c, err := codec.New(nil)
			Expect(err).NotTo(HaveOccurred())

			b = bridge.New(cfg, c,
				bridge.WithRunner(runner),
				bridge.WithAudit(rec),
				bridge.WithTimeFunc(func() time.Time {
					now = now.Add(6 * time.Second)

					return now
				}),
			)
			reply(0, "", "")

			res, err := b.Handle(ctx, codec.HostClaude, "PreToolUse", claudePre("Task"))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Duration).To(Equal(6 * time.Second))
			Expect(rec.last().SlowHook).To(BeTrue())
			Expect(rec.last().DurationMS).To(Equal(int64(6000)))
		})
	})

	Describe("session tracking", func() {
		var tracker *session.Tracker

		BeforeEach(func() {
			enabled := true
			tracker = session.NewTracker(
				&config.SessionConfig{Enabled: &enabled},
				session.WithStateFile(filepath.Join(GinkgoT().TempDir(), "state.json")),
			)

			c, err := codec.New(nil)
			Expect(err).NotTo(HaveOccurred())

			b = bridge.New(cfg, c, bridge.WithRunner(runner), bridge.WithTracker(tracker))
		})

		It("records allowed dispatches and validates them at stop", func() {
			reply(0, "", "")

			_, err := b.Handle(ctx, codec.HostClaude, "PreToolUse", claudePre("Task"))
			Expect(err).NotTo(HaveOccurred())

			info, err := tracker.Get("s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(info.PendingSteps).To(ConsistOf("shop/01-02"))

			runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, c *exec.Command) *exec.CommandResult {
					var req map[string]any
					Expect(json.Unmarshal(c.Stdin, &req)).To(Succeed())
					Expect(req).To(HaveKeyWithValue("pending_steps", ConsistOf("shop/01-02")))
					Expect(req).To(HaveKeyWithValue("validated_steps", BeEmpty()))

					return &exec.CommandResult{}
				})

			_, err = b.Handle(ctx, codec.HostClaude, "Stop", claudeStop())
			Expect(err).NotTo(HaveOccurred())

			info, err = tracker.Get("s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(info.PendingSteps).To(BeEmpty())
			Expect(info.ValidatedSteps).To(ConsistOf("shop/01-02"))
		})

		It("does not record rejected dispatches", func() {
			reply(2, "", "")

			_, err := b.Handle(ctx, codec.HostClaude, "PreToolUse", claudePre("Task"))
			Expect(err).NotTo(HaveOccurred())

			info, err := tracker.Get("s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(info).To(BeNil())
		})

		It("keeps steps pending when the stop is rejected", func() {
			reply(0, "", "")
			_, err := b.Handle(ctx, codec.HostClaude, "PreToolUse", claudePre("Task"))
			Expect(err).NotTo(HaveOccurred())

			reply(2, `{"reason":"not done"}`, "")
			_, err = b.Handle(ctx, codec.HostClaude, "Stop", claudeStop())
			Expect(err).NotTo(HaveOccurred())

			info, err := tracker.Get("s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(info.PendingSteps).To(ConsistOf("shop/01-02"))
		})
	})
})

var _ = Describe("FailClosed", func() {
	cause := errors.New("failed to load config: toml: expected value")

	It("rejects a governed pre-tool-use on a built-in host", func() {
		res, host := bridge.FailClosed(codec.HostClaude, "PreToolUse", claudePre("Task"), cause)
		Expect(res).NotTo(BeNil())
		Expect(host.GetProtocol()).To(Equal(config.ProtocolClaude))
		Expect(res.Rejected()).To(BeTrue())
		Expect(res.Command).To(Equal(hook.CommandPreToolUse))
		Expect(res.Decision.Kind).To(Equal(hook.KindError))
		Expect(res.Rejection.Reason).To(Equal("DES adapter error: " + cause.Error()))
	})

	It("rejects an undecodable pre-tool-use payload", func() {
		res, _ := bridge.FailClosed(codec.HostClaude, "PreToolUse", []byte("{not json"), cause)
		Expect(res).NotTo(BeNil())
		Expect(res.Rejected()).To(BeTrue())
	})

	DescribeTable("leaves other events to the plain error exit",
		func(hostName, event string, payload []byte) {
			res, host := bridge.FailClosed(hostName, event, payload, cause)
			Expect(res).To(BeNil())
			Expect(host).To(BeNil())
		},
		Entry("ungoverned tool", codec.HostClaude, "PreToolUse", claudePre("Bash")),
		Entry("post-tool-use", codec.HostClaude, "PostToolUse", claudePre("Task")),
		Entry("stop", codec.HostClaude, "Stop", claudeStop()),
		Entry("empty payload", codec.HostClaude, "PreToolUse", []byte{}),
		Entry("unknown host", "cursor", "beforeTool", claudePre("Task")),
	)
})
