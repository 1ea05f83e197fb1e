package arbiter_test

import (
	"bytes"
	"context"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/desgate/internal/arbiter"
	"github.com/smykla-skalski/desgate/pkg/hook"
	"github.com/smykla-skalski/desgate/pkg/logger"
)

const sentinel = "STOP HOOK VALIDATION FAILED"

var _ = Describe("Resolve", func() {
	allow := hook.Allow(hook.Response{})
	block := hook.Block("missing marker", hook.Response{})
	plainError := hook.Error("DES adapter error: traceback...", hook.Response{})
	sentinelError := hook.Error("STOP HOOK VALIDATION FAILED: step 3 incomplete", hook.Response{})

	DescribeTable("policy table",
		func(cmd hook.Command, decision hook.Decision, expected arbiter.Action) {
			Expect(arbiter.Resolve(cmd, decision, sentinel).Action).To(Equal(expected))
		},
		Entry("pre-tool-use allow", hook.CommandPreToolUse, allow, arbiter.ActionProceed),
		Entry("pre-tool-use block", hook.CommandPreToolUse, block, arbiter.ActionReject),
		Entry("pre-tool-use error", hook.CommandPreToolUse, plainError, arbiter.ActionReject),
		Entry("pre-tool-use error with sentinel", hook.CommandPreToolUse, sentinelError, arbiter.ActionReject),
		Entry("post-tool-use allow", hook.CommandPostToolUse, allow, arbiter.ActionProceed),
		Entry("post-tool-use block", hook.CommandPostToolUse, block, arbiter.ActionLogOnly),
		Entry("post-tool-use error", hook.CommandPostToolUse, plainError, arbiter.ActionLogOnly),
		Entry("post-tool-use error with sentinel", hook.CommandPostToolUse, sentinelError, arbiter.ActionLogOnly),
		Entry("stop allow", hook.CommandStop, allow, arbiter.ActionProceed),
		Entry("stop block", hook.CommandStop, block, arbiter.ActionReject),
		Entry("stop error", hook.CommandStop, plainError, arbiter.ActionLogOnly),
		Entry("stop error with sentinel", hook.CommandStop, sentinelError, arbiter.ActionReject),
		Entry("unknown command error", hook.CommandUnknown, plainError, arbiter.ActionLogOnly),
	)

	It("should flag a post-tool-use block as unexpected", func() {
		Expect(arbiter.Resolve(hook.CommandPostToolUse, block, sentinel).Unexpected).To(BeTrue())
		Expect(arbiter.Resolve(hook.CommandPostToolUse, plainError, sentinel).Unexpected).To(BeFalse())
	})

	It("should never reject a stop error without a sentinel configured", func() {
		Expect(arbiter.Resolve(hook.CommandStop, sentinelError, "").Action).To(Equal(arbiter.ActionLogOnly))
	})
})

var _ = Describe("Arbiter", func() {
	var (
		ctx  context.Context
		buf  *bytes.Buffer
		log  logger.Logger
		sink *arbiter.BufferSink
		arb  *arbiter.Arbiter
	)

	BeforeEach(func() {
		ctx = context.Background()
		buf = &bytes.Buffer{}

		log = logger.NewFileLoggerWithWriter(buf, true, false)
		sink = arbiter.NewBufferSink()
		arb = arbiter.New(arbiter.WithSink(sink), arbiter.WithLogger(log))
	})

	It("should proceed on allow", func() {
		_, err := arb.Arbitrate(ctx, hook.CommandPreToolUse, hook.Allow(hook.Response{Decision: "allow"}))
		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject a pre-tool-use block with the validator reason", func() {
		_, err := arb.Arbitrate(ctx, hook.CommandPreToolUse, hook.Block("missing marker", hook.Response{}))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(Equal("missing marker"))

		var rejection *arbiter.RejectionError
		Expect(errors.As(err, &rejection)).To(BeTrue())
		Expect(rejection.Command).To(Equal(hook.CommandPreToolUse))
		Expect(rejection.Kind).To(Equal(hook.KindBlock))
	})

	It("should log and swallow a post-tool-use error", func() {
		v, err := arb.Arbitrate(ctx, hook.CommandPostToolUse, hook.Error("DES adapter error: traceback...", hook.Response{}))
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Action).To(Equal(arbiter.ActionLogOnly))
		Expect(buf.String()).To(ContainSubstring("validation failure ignored"))
	})

	It("should log an unexpected post-tool-use block", func() {
		_, err := arb.Arbitrate(ctx, hook.CommandPostToolUse, hook.Block("odd", hook.Response{}))
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("unexpected decision"))
	})

	It("should reject a stop error carrying the sentinel", func() {
		_, err := arb.Arbitrate(ctx, hook.CommandStop, hook.Error("STOP HOOK VALIDATION FAILED: step 3 incomplete", hook.Response{}))
		Expect(err).To(MatchError("STOP HOOK VALIDATION FAILED: step 3 incomplete"))
	})

	It("should honor a custom sentinel", func() {
		custom := arbiter.New(arbiter.WithSentinel("HALT"))

		_, err := custom.Arbitrate(ctx, hook.CommandStop, hook.Error("HALT: nope", hook.Response{}))
		Expect(err).To(HaveOccurred())

		_, err = custom.Arbitrate(ctx, hook.CommandStop, hook.Error(sentinel, hook.Response{}))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("context sinks", func() {
		It("should buffer additional context on allow", func() {
			_, err := arb.Arbitrate(ctx, hook.CommandPostToolUse, hook.Allow(hook.Response{AdditionalContext: "first"}))
			Expect(err).NotTo(HaveOccurred())

			_, err = arb.Arbitrate(ctx, hook.CommandPostToolUse, hook.Allow(hook.Response{AdditionalContext: "second"}))
			Expect(err).NotTo(HaveOccurred())

			Expect(sink.Text()).To(Equal("first\n\nsecond"))
		})

		It("should not touch the sink when rejecting", func() {
			_, err := arb.Arbitrate(ctx, hook.CommandPreToolUse, hook.Block("no", hook.Response{AdditionalContext: "ctx"}))
			Expect(err).To(HaveOccurred())
			Expect(sink.Text()).To(BeEmpty())
		})

		It("should log context when no sink is configured", func() {
			logOnly := arbiter.New(arbiter.WithLogger(log))
			Expect(logOnly.Sink()).To(BeAssignableToTypeOf(&arbiter.LogSink{}))

			_, err := logOnly.Arbitrate(ctx, hook.CommandPostToolUse, hook.Allow(hook.Response{AdditionalContext: "note"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).To(ContainSubstring("additional context"))
			Expect(buf.String()).To(ContainSubstring("note"))
		})
	})
})

var _ = Describe("Action", func() {
	It("should have kebab-case names", func() {
		Expect(arbiter.ActionStrings()).To(Equal([]string{"proceed", "reject", "log-only"}))

		a, err := arbiter.ActionString("log-only")
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(arbiter.ActionLogOnly))
	})
})
