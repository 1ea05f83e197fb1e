// Package hook provides checkers for Claude settings and hook registration.
package hook

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/desgate/internal/doctor"
	"github.com/smykla-skalski/desgate/internal/doctor/settings"
)

// FixInstallHook is the fix identifier for missing registrations.
const FixInstallHook = "install_hook"

// RegistrationChecker checks that desgate is registered for every intercepted
// Claude Code event.
type RegistrationChecker struct {
	settingsPath string
	binaryName   string
}

// NewRegistrationChecker creates a checker for the given settings file
func NewRegistrationChecker(settingsPath, binaryName string) *RegistrationChecker {
	return &RegistrationChecker{
		settingsPath: settingsPath,
		binaryName:   binaryName,
	}
}

// Name returns the name of the check
func (*RegistrationChecker) Name() string {
	return "Claude Code hooks registered"
}

// Category returns the category of the check
func (*RegistrationChecker) Category() doctor.Category {
	return doctor.CategoryHook
}

// Check performs the registration check
func (c *RegistrationChecker) Check(_ context.Context) doctor.CheckResult {
	parsed, err := settings.NewSettingsParser(c.settingsPath).Parse()
	if err != nil {
		switch {
		case errors.Is(err, settings.ErrSettingsNotFound):
			return doctor.FailError(c.Name(), "Settings file not found").
				WithDetails("Expected at: " + c.settingsPath).
				WithFixID(FixInstallHook)
		case errors.Is(err, settings.ErrInvalidJSON):
			return doctor.FailError(c.Name(), "Settings file has invalid JSON syntax").
				WithDetails("File: "+c.settingsPath, fmt.Sprintf("Error: %v", err))
		default:
			return doctor.FailError(c.Name(), fmt.Sprintf("Failed to parse settings: %v", err))
		}
	}

	missing := parsed.MissingHooks(c.binaryName)
	if len(missing) > 0 {
		events := make([]string, 0, len(missing))
		for _, m := range missing {
			events = append(events, m.Event)
		}

		return doctor.FailError(c.Name(), "Missing: "+strings.Join(events, ", ")).
			WithDetails(
				"File: "+c.settingsPath,
				"Register with: desgate doctor --fix",
			).
			WithFixID(FixInstallHook)
	}

	return doctor.Pass(c.Name(), "Registered")
}
