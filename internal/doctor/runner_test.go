package doctor_test

import (
	"bytes"
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/desgate/internal/doctor"
	"github.com/smykla-skalski/desgate/pkg/logger"
)

var _ = Describe("Runner", func() {
	var (
		registry *doctor.Registry
		reporter *recordingReporter
		out      *bytes.Buffer
		runner   *doctor.Runner
		broken   bool
		fixer    *stubFixer
	)

	BeforeEach(func() {
		broken = true
		registry = doctor.NewRegistry()
		registry.RegisterChecker(&stubChecker{name: "ok", category: doctor.CategoryConfig})
		registry.RegisterChecker(&stubChecker{
			name:     "dirs",
			category: doctor.CategoryStorage,
			result: func() doctor.CheckResult {
				if broken {
					return doctor.FailError("dirs", "missing").WithFixID("create_dirs")
				}

				return doctor.Pass("dirs", "present")
			},
		})

		fixer = &stubFixer{id: "create_dirs", fix: func() { broken = false }}
		registry.RegisterFixer(fixer)

		reporter = &recordingReporter{}
		out = &bytes.Buffer{}
		runner = doctor.NewRunner(registry, reporter, out, logger.NewNoOpLogger())
	})

	It("reports results and suggests fixes", func() {
		err := runner.Run(context.Background(), doctor.RunOptions{})
		Expect(err).To(MatchError(doctor.ErrChecksFailed))
		Expect(reporter.reports).To(HaveLen(1))
		Expect(out.String()).To(ContainSubstring("dirs: stub fix"))
		Expect(fixer.calls).To(BeZero())
	})

	It("applies fixes and re-runs checks", func() {
		err := runner.Run(context.Background(), doctor.RunOptions{AutoFix: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(fixer.calls).To(Equal(1))
		Expect(reporter.reports).To(HaveLen(2))
		Expect(reporter.reports[1][1].IsPassed()).To(BeTrue())
	})

	It("succeeds when only warnings remain", func() {
		registry = doctor.NewRegistry()
		registry.RegisterChecker(&stubChecker{
			name:     "warn",
			category: doctor.CategoryHook,
			result:   func() doctor.CheckResult { return doctor.FailWarning("warn", "meh") },
		})
		runner = doctor.NewRunner(registry, reporter, out, logger.NewNoOpLogger())

		Expect(runner.Run(context.Background(), doctor.RunOptions{})).To(Succeed())
	})

	It("filters by category", func() {
		err := runner.Run(context.Background(), doctor.RunOptions{
			Categories: []doctor.Category{doctor.CategoryConfig},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(reporter.reports[0]).To(HaveLen(1))
	})
})
