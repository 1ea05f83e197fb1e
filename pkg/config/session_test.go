package config_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/desgate/pkg/config"
)

var _ = Describe("SessionConfig", func() {
	on, off := true, false

	DescribeTable("IsEnabled",
		func(cfg *config.SessionConfig, want bool) {
			Expect(cfg.IsEnabled()).To(Equal(want))
		},
		Entry("nil config", nil, false),
		Entry("unset", &config.SessionConfig{}, false),
		Entry("explicitly off", &config.SessionConfig{Enabled: &off}, false),
		Entry("explicitly on", &config.SessionConfig{Enabled: &on}, true),
	)

	It("falls back to defaults", func() {
		var cfg *config.SessionConfig

		Expect(cfg.GetStateFile()).To(Equal(config.DefaultSessionStateFile))
		Expect(cfg.GetMaxSessionAge()).To(Equal(config.DefaultMaxSessionAge))
	})

	It("uses configured values", func() {
		cfg := &config.SessionConfig{
			StateFile:     "/var/lib/desgate/steps.json",
			MaxSessionAge: config.Duration(90 * time.Minute),
		}

		Expect(cfg.GetStateFile()).To(Equal("/var/lib/desgate/steps.json"))
		Expect(cfg.GetMaxSessionAge()).To(Equal(90 * time.Minute))
	})
})

var _ = Describe("AuditConfig", func() {
	It("is enabled by default", func() {
		var cfg *config.AuditConfig

		Expect(cfg.IsEnabled()).To(BeTrue())
		Expect(cfg.GetLogFile()).To(Equal(config.DefaultAuditLogFile))
		Expect(cfg.GetMaxSizeMB()).To(Equal(config.DefaultAuditMaxSizeMB))
	})
})
