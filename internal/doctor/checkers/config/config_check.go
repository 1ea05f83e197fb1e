// Package config provides checkers for configuration file validation.
package config

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/desgate/internal/config"
	"github.com/smykla-skalski/desgate/internal/doctor"
)

// Fix identifiers used by config checks.
const (
	FixConfigPermissions = "fix_config_permissions"
	FixCreateGlobal      = "create_global_config"
)

// LoadChecker checks that the layered configuration loads and validates.
type LoadChecker struct {
	loader *config.KoanfLoader
}

// NewLoadChecker creates a new config load checker
func NewLoadChecker(loader *config.KoanfLoader) *LoadChecker {
	return &LoadChecker{loader: loader}
}

// Name returns the name of the check
func (*LoadChecker) Name() string {
	return "Configuration valid"
}

// Category returns the category of the check
func (*LoadChecker) Category() doctor.Category {
	return doctor.CategoryConfig
}

// Check performs the config validity check
func (c *LoadChecker) Check(_ context.Context) doctor.CheckResult {
	cfg, err := c.loader.LoadWithoutValidation(nil)
	if err != nil {
		if errors.Is(err, config.ErrInvalidPermissions) {
			return doctor.FailError(c.Name(), "Insecure file permissions").
				WithDetails(
					fmt.Sprintf("Error: %v", err),
					"Config files must not be world-writable",
				).
				WithFixID(FixConfigPermissions)
		}

		return doctor.FailError(c.Name(), "Failed to load").
			WithDetails(fmt.Sprintf("Error: %v", err))
	}

	if err := config.NewValidator().Validate(cfg); err != nil {
		return doctor.FailError(c.Name(), "Configuration validation failed").
			WithDetails(fmt.Sprintf("Error: %v", err))
	}

	return doctor.Pass(c.Name(), "Valid")
}

// GlobalChecker checks that a global config file exists.
type GlobalChecker struct {
	loader *config.KoanfLoader
}

// NewGlobalChecker creates a new global config checker
func NewGlobalChecker(loader *config.KoanfLoader) *GlobalChecker {
	return &GlobalChecker{loader: loader}
}

// Name returns the name of the check
func (*GlobalChecker) Name() string {
	return "Global config present"
}

// Category returns the category of the check
func (*GlobalChecker) Category() doctor.Category {
	return doctor.CategoryConfig
}

// Check performs the global config presence check
func (c *GlobalChecker) Check(_ context.Context) doctor.CheckResult {
	if !c.loader.HasGlobalConfig() {
		return doctor.FailWarning(c.Name(), "Not found (defaults and environment apply)").
			WithDetails(
				"Expected at: "+c.loader.GlobalConfigPath(),
				"Create with: desgate init --global",
			).
			WithFixID(FixCreateGlobal)
	}

	return doctor.Pass(c.Name(), c.loader.GlobalConfigPath())
}
