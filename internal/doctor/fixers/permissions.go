package fixers

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/desgate/internal/doctor"
	configcheck "github.com/smykla-skalski/desgate/internal/doctor/checkers/config"
	"github.com/smykla-skalski/desgate/pkg/logger"
)

const configPermissions = 0o600

// PermissionsFixer restricts world-writable configuration files.
type PermissionsFixer struct {
	files []string
	log   logger.Logger
}

// NewPermissionsFixer creates a fixer for the given config file candidates.
func NewPermissionsFixer(files []string, log logger.Logger) *PermissionsFixer {
	return &PermissionsFixer{files: files, log: log}
}

// ID returns the fixer identifier.
func (*PermissionsFixer) ID() string {
	return configcheck.FixConfigPermissions
}

// Description returns a human-readable description.
func (*PermissionsFixer) Description() string {
	return "Restrict configuration file permissions to 0600"
}

// CanFix checks if this fixer can fix the given result.
func (*PermissionsFixer) CanFix(result doctor.CheckResult) bool {
	return result.NeedsFix(configcheck.FixConfigPermissions)
}

// Fix removes group and world write access from existing config files.
func (f *PermissionsFixer) Fix(_ context.Context) error {
	for _, path := range f.files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		if info.Mode().Perm()&0o022 == 0 {
			continue
		}

		if err := os.Chmod(path, configPermissions); err != nil {
			return errors.Wrapf(err, "failed to chmod %s", path)
		}

		f.log.Info("fixed permissions", "path", path, "from", info.Mode().Perm().String())
	}

	return nil
}
