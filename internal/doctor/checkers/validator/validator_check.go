// Package validator provides checkers for the external validation engine.
package validator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/smykla-skalski/desgate/internal/doctor"
	"github.com/smykla-skalski/desgate/internal/exec"
	"github.com/smykla-skalski/desgate/pkg/config"
)

// enginePackage is the directory the engine root must contain.
const enginePackage = "des"

// ExecutableChecker checks that the validator executable resolves.
type ExecutableChecker struct {
	cfg   *config.ValidatorConfig
	tools exec.ToolChecker
}

// NewExecutableChecker creates a new executable checker
func NewExecutableChecker(cfg *config.ValidatorConfig, tools exec.ToolChecker) *ExecutableChecker {
	return &ExecutableChecker{cfg: cfg, tools: tools}
}

// Name returns the name of the check
func (*ExecutableChecker) Name() string {
	return "Validator executable"
}

// Category returns the category of the check
func (*ExecutableChecker) Category() doctor.Category {
	return doctor.CategoryValidator
}

// Check performs the executable check
func (c *ExecutableChecker) Check(_ context.Context) doctor.CheckResult {
	executable := c.cfg.GetExecutable()

	path, err := c.tools.Resolve(executable, c.cfg.Root)
	if err != nil {
		return doctor.FailError(c.Name(), fmt.Sprintf("%s not found", executable)).
			WithDetails(
				err.Error(),
				"Every governed hook fails closed while the validator cannot launch",
				"Set validator.executable or NWAVE_PYTHON",
			)
	}

	return doctor.Pass(c.Name(), "Found at "+path)
}

// RootChecker checks that the engine root exists and holds the DES package.
type RootChecker struct {
	cfg *config.ValidatorConfig
}

// NewRootChecker creates a new engine root checker
func NewRootChecker(cfg *config.ValidatorConfig) *RootChecker {
	return &RootChecker{cfg: cfg}
}

// Name returns the name of the check
func (*RootChecker) Name() string {
	return "Validation engine root"
}

// Category returns the category of the check
func (*RootChecker) Category() doctor.Category {
	return doctor.CategoryValidator
}

// Check performs the engine root check
func (c *RootChecker) Check(_ context.Context) doctor.CheckResult {
	root := c.cfg.Root
	if root == "" {
		return doctor.FailWarning(c.Name(), "Not configured").
			WithDetails(
				"The validator runs in the current directory without a root",
				"Set validator.root or NWAVE_ROOT",
			)
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return doctor.FailError(c.Name(), "Directory not found").
			WithDetails("Expected at: " + root)
	}

	pkg := filepath.Join(root, enginePackage)
	if info, err := os.Stat(pkg); err != nil || !info.IsDir() {
		return doctor.FailWarning(c.Name(), enginePackage+" package not found").
			WithDetails(
				"Expected at: "+pkg,
				c.cfg.GetPathEnv()+" is prefixed with the root, imports may fail",
			)
	}

	return doctor.Pass(c.Name(), root)
}
