package config

import (
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/desgate/pkg/config"
)

var _ = Describe("Validator", func() {
	var validator *Validator

	BeforeEach(func() {
		validator = NewValidator()
	})

	It("should return error when config is nil", func() {
		err := validator.Validate(nil)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("config is nil"))
	})

	It("should pass validation for empty config", func() {
		Expect(validator.Validate(&config.Config{})).To(Succeed())
	})

	It("should pass validation for defaults", func() {
		Expect(validator.Validate(DefaultConfig())).To(Succeed())
	})

	It("should reject an empty executable", func() {
		err := validator.Validate(&config.Config{Validator: &config.ValidatorConfig{}})
		Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())
	})

	It("should reject malformed governed tool patterns", func() {
		err := validator.Validate(&config.Config{
			Bridge: &config.BridgeConfig{GovernedTools: []string{"Task["}},
		})
		Expect(err).To(HaveOccurred())
	})

	DescribeTable("host tables",
		func(host *config.HostConfig, valid bool) {
			err := validator.Validate(&config.Config{
				Hosts: map[string]*config.HostConfig{"h": host},
			})
			if valid {
				Expect(err).NotTo(HaveOccurred())
			} else {
				Expect(err).To(HaveOccurred())
				Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())
			}
		},
		Entry("nil host", nil, true),
		Entry("claude protocol", &config.HostConfig{Protocol: config.ProtocolClaude}, true),
		Entry("unknown protocol", &config.HostConfig{Protocol: "grpc"}, false),
		Entry("unknown sink", &config.HostConfig{ContextSink: "email"}, false),
		Entry("known event", &config.HostConfig{
			Events: map[string]string{"tool.execute.before": "pre-tool-use"},
		}, true),
		Entry("unknown event command", &config.HostConfig{
			Events: map[string]string{"tool.execute.before": "pre-flight"},
		}, false),
		Entry("empty field aliases", &config.HostConfig{
			Fields: map[string][]string{"session_id": {}},
		}, false),
		Entry("bad pattern", &config.HostConfig{GovernedTools: []string{"{a"}}, false),
	)
})
