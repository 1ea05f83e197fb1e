package fixers

import (
	"context"

	"github.com/smykla-skalski/desgate/internal/doctor"
	"github.com/smykla-skalski/desgate/internal/doctor/checkers/storage"
	"github.com/smykla-skalski/desgate/internal/paths"
)

// DirsFixer creates missing storage directories.
type DirsFixer struct {
	dirs []string
}

// NewDirsFixer creates a new DirsFixer.
func NewDirsFixer(dirs ...string) *DirsFixer {
	return &DirsFixer{dirs: dirs}
}

// ID returns the fixer identifier.
func (*DirsFixer) ID() string {
	return storage.FixCreateDirs
}

// Description returns a human-readable description.
func (*DirsFixer) Description() string {
	return "Create log, audit and session state directories"
}

// CanFix checks if this fixer can fix the given result.
func (*DirsFixer) CanFix(result doctor.CheckResult) bool {
	return result.NeedsFix(storage.FixCreateDirs)
}

// Fix creates every configured directory.
func (f *DirsFixer) Fix(_ context.Context) error {
	for _, dir := range f.dirs {
		if err := paths.EnsureDir(dir); err != nil {
			return err
		}
	}

	return nil
}
