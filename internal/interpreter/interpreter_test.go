package interpreter_test

import (
	"strings"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/desgate/internal/interpreter"
	"github.com/smykla-skalski/desgate/pkg/hook"
)

var outputShapes = map[string]string{
	"empty":      "",
	"malformed":  "Traceback (most recent call last):",
	"array":      `[1,2]`,
	"allow body": `{"decision":"allow"}`,
	"block body": `{"decision":"block","reason":"from body"}`,
	"error body": `{"status":"error","reason":"from body"}`,
}

var _ = Describe("Interpreter", func() {
	var (
		interp    *interpreter.Interpreter
		anomalies []string
	)

	BeforeEach(func() {
		anomalies = nil
		interp = interpreter.New(interpreter.WithAnomalyHook(func(kind, _ string) {
			anomalies = append(anomalies, kind)
		}))
	})

	Describe("exit status table", func() {
		DescribeTable("the kind depends only on the exit status",
			func(status int, expected hook.Kind) {
				for name, output := range outputShapes {
					decision := interp.Interpret(&hook.Outcome{
						ExitStatus: status,
						Output:     output,
						ErrorText:  "stderr text",
					})
					Expect(decision.Kind).To(Equal(expected), "output shape %q", name)
				}
			},
			Entry("0 allows", 0, hook.KindAllow),
			Entry("1 errors", 1, hook.KindError),
			Entry("2 blocks", 2, hook.KindBlock),
			Entry("3 errors", 3, hook.KindError),
			Entry("137 errors", 137, hook.KindError),
			Entry("-1 errors", -1, hook.KindError),
		)
	})

	Describe("reasons", func() {
		It("should carry allow context through", func() {
			d := interp.Interpret(&hook.Outcome{
				Output: `{"decision":"allow","additionalContext":"  remember step 2  "}`,
			})
			Expect(d.Kind).To(Equal(hook.KindAllow))
			Expect(d.AdditionalContext).To(Equal("remember step 2"))
			Expect(d.Response.Decision).To(Equal("allow"))
		})

		It("should use the body reason for blocks", func() {
			d := interp.Interpret(&hook.Outcome{
				ExitStatus: 2,
				Output:     `{"decision":"block","reason":"missing marker"}`,
			})
			Expect(d.Reason).To(Equal("missing marker"))
		})

		It("should use a generic block reason", func() {
			d := interp.Interpret(&hook.Outcome{ExitStatus: 2, ErrorText: "ignored"})
			Expect(d.Reason).To(Equal(interpreter.ReasonValidationFailed))
		})

		It("should prefer the body reason for errors", func() {
			d := interp.Interpret(&hook.Outcome{
				ExitStatus: 1,
				Output:     `{"reason":"STOP HOOK VALIDATION FAILED: step 3 incomplete"}`,
				ErrorText:  "noise",
			})
			Expect(d.Reason).To(Equal("STOP HOOK VALIDATION FAILED: step 3 incomplete"))
		})

		It("should fall back to standard error", func() {
			d := interp.Interpret(&hook.Outcome{ExitStatus: 1, ErrorText: "traceback...\n"})
			Expect(d.Reason).To(Equal("DES adapter error: traceback..."))
		})

		It("should fall back to a generic error reason", func() {
			d := interp.Interpret(&hook.Outcome{ExitStatus: 42})
			Expect(d.Reason).To(Equal(interpreter.ReasonAdapterError))
		})

		DescribeTable("should treat a blank body reason as missing",
			func(status int, errorText, expected string) {
				d := interp.Interpret(&hook.Outcome{
					ExitStatus: status,
					Output:     `{"reason":"  \n\t "}`,
					ErrorText:  errorText,
				})
				Expect(d.Reason).To(Equal(expected))
			},
			Entry("block", 2, "", interpreter.ReasonValidationFailed),
			Entry("error without stderr", 1, "", interpreter.ReasonAdapterError),
			Entry("error with stderr", 1, "boom\n", "DES adapter error: boom"),
		)

		It("should trim surrounding whitespace from a body reason", func() {
			d := interp.Interpret(&hook.Outcome{
				ExitStatus: 2,
				Output:     `{"reason":"  missing marker\n"}`,
			})
			Expect(d.Reason).To(Equal("missing marker"))
		})

		It("should truncate long standard error", func() {
			d := interp.Interpret(&hook.Outcome{ExitStatus: 1, ErrorText: strings.Repeat("x", 5000)})
			Expect(d.Reason).To(HaveLen(len("DES adapter error: ") + interpreter.MaxErrorText))
		})
	})

	Describe("anomalies", func() {
		It("should report unparseable output", func() {
			interp.Interpret(&hook.Outcome{Output: "not json"})
			Expect(anomalies).To(Equal([]string{interpreter.AnomalyUnparseable}))
		})

		It("should report a block body on exit 0 and still allow", func() {
			d := interp.Interpret(&hook.Outcome{Output: `{"decision":"block","reason":"x"}`})
			Expect(d.Kind).To(Equal(hook.KindAllow))
			Expect(anomalies).To(Equal([]string{interpreter.AnomalyDecisionMismatch}))
		})

		It("should stay quiet for well-formed output", func() {
			interp.Interpret(&hook.Outcome{ExitStatus: 2, Output: `{"decision":"block"}`})
			Expect(anomalies).To(BeEmpty())
		})
	})

	Describe("FromError", func() {
		It("should build an error decision from the failure text", func() {
			d := interp.FromError(errors.New("exec: python3: not found"))
			Expect(d.Kind).To(Equal(hook.KindError))
			Expect(d.Reason).To(Equal("DES adapter error: exec: python3: not found"))
		})
	})
})

var _ = Describe("ParseResponse", func() {
	It("keeps the decoder error next to ErrProtocol", func() {
		_, err := interpreter.ParseResponse(`{"reason":`)
		Expect(errors.Is(err, interpreter.ErrProtocol)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("unexpected end of JSON input"))
	})

	DescribeTable("tolerates malformed output",
		func(output string, expectErr bool, expected hook.Response) {
			resp, err := interpreter.ParseResponse(output)
			if expectErr {
				Expect(errors.Is(err, interpreter.ErrProtocol)).To(BeTrue())
			} else {
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(resp).To(Equal(expected))
		},
		Entry("empty", "", false, hook.Response{}),
		Entry("whitespace", "  \n", false, hook.Response{}),
		Entry("null", "null", false, hook.Response{}),
		Entry("truncated", `{"decision":`, true, hook.Response{}),
		Entry("scalar", `"allow"`, true, hook.Response{}),
		Entry("wrong field types", `{"decision":1,"reason":"r"}`, false, hook.Response{Reason: "r"}),
		Entry("full", `{"decision":"block","status":"error","reason":"r","additionalContext":"c"}`, false,
			hook.Response{Decision: "block", Status: "error", Reason: "r", AdditionalContext: "c"}),
	)
})
