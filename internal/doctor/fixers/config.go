package fixers

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/desgate/internal/config"
	"github.com/smykla-skalski/desgate/internal/doctor"
	configcheck "github.com/smykla-skalski/desgate/internal/doctor/checkers/config"
)

// ConfigFixer writes a global config file populated with defaults.
type ConfigFixer struct {
	writer *config.Writer
}

// NewConfigFixer creates a new ConfigFixer.
func NewConfigFixer(writer *config.Writer) *ConfigFixer {
	return &ConfigFixer{writer: writer}
}

// ID returns the fixer identifier.
func (*ConfigFixer) ID() string {
	return configcheck.FixCreateGlobal
}

// Description returns a human-readable description.
func (*ConfigFixer) Description() string {
	return "Create global configuration with defaults"
}

// CanFix checks if this fixer can fix the given result.
func (*ConfigFixer) CanFix(result doctor.CheckResult) bool {
	return result.NeedsFix(configcheck.FixCreateGlobal)
}

// Fix writes the default config unless one already exists.
func (f *ConfigFixer) Fix(_ context.Context) error {
	if f.writer.Exists(config.ScopeGlobal) {
		return nil
	}

	if err := f.writer.Write(config.ScopeGlobal, config.DefaultConfig()); err != nil {
		return errors.Wrap(err, "failed to write global config")
	}

	return nil
}
