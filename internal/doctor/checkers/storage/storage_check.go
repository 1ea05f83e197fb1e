// Package storage provides checkers for the files desgate writes.
package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/smykla-skalski/desgate/internal/doctor"
	"github.com/smykla-skalski/desgate/internal/paths"
)

// FixCreateDirs is the fix identifier for missing directories.
const FixCreateDirs = "create_dirs"

// DirChecker checks that the directory holding a file is writable.
type DirChecker struct {
	label string
	file  string
}

// NewDirChecker creates a checker for the directory of file.
func NewDirChecker(label, file string) *DirChecker {
	return &DirChecker{label: label, file: paths.ExpandPathSilent(file)}
}

// Dir returns the directory being checked.
func (c *DirChecker) Dir() string {
	return filepath.Dir(c.file)
}

// Name returns the name of the check
func (c *DirChecker) Name() string {
	return c.label + " directory writable"
}

// Category returns the category of the check
func (*DirChecker) Category() doctor.Category {
	return doctor.CategoryStorage
}

// Check performs the directory check
func (c *DirChecker) Check(_ context.Context) doctor.CheckResult {
	dir := c.Dir()

	info, err := os.Stat(dir)
	if err != nil {
		return doctor.FailWarning(c.Name(), "Directory does not exist").
			WithDetails("Expected at: " + dir).
			WithFixID(FixCreateDirs)
	}

	if !info.IsDir() {
		return doctor.FailError(c.Name(), "Not a directory").
			WithDetails("Path: " + dir)
	}

	probe, err := os.CreateTemp(dir, ".desgate-probe-*")
	if err != nil {
		return doctor.FailError(c.Name(), "Not writable").
			WithDetails("Path: "+dir, "Error: "+err.Error())
	}

	_ = probe.Close()
	_ = os.Remove(probe.Name())

	return doctor.Pass(c.Name(), dir)
}
