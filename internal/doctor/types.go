// Package doctor runs health checks over a desgate installation: the
// validation engine, host hook registration, configuration and the
// on-disk state locations.
package doctor

import (
	"context"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnknownCategory is returned by ParseCategory.
var ErrUnknownCategory = errors.New("unknown check category")

// Severity of a failed check.
type Severity string

// Severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Status of a check.
type Status string

// Statuses.
const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusSkipped Status = "skipped"
)

// Category groups checks in reports and for --category filtering.
type Category string

const (
	// CategoryValidator covers the validator executable and engine root.
	CategoryValidator Category = "validator"

	// CategoryHook covers Claude Code hook registration and the OpenCode plugin.
	CategoryHook Category = "hook"

	// CategoryConfig covers loading and validating configuration files.
	CategoryConfig Category = "config"

	// CategoryStorage covers the log, audit and session state directories.
	CategoryStorage Category = "storage"
)

// Categories returns every known category in report order.
func Categories() []Category {
	return []Category{CategoryValidator, CategoryHook, CategoryConfig, CategoryStorage}
}

// ParseCategory parses a category name, case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Categories(), c) {
		return "", errors.Wrapf(ErrUnknownCategory, "%q", s)
	}

	return c, nil
}

// CheckResult is what one HealthChecker found.
type CheckResult struct {
	Name     string
	Category Category
	Severity Severity
	Status   Status
	Message  string

	// Details are shown in verbose mode.
	Details []string

	// FixID names the Fixer that can repair a failure, if any.
	FixID string
}

// HealthChecker performs one check.
type HealthChecker interface {
	Name() string
	Category() Category
	Check(ctx context.Context) CheckResult
}

// Fixer repairs what a failed check reported.
type Fixer interface {
	ID() string
	Description() string
	CanFix(result CheckResult) bool
	Fix(ctx context.Context) error
}

// Reporter prints check results.
type Reporter interface {
	Report(results []CheckResult, verbose bool)
}

// NewCheckResult creates a CheckResult with empty details.
func NewCheckResult(name string, severity Severity, status Status, message string) CheckResult {
	return CheckResult{
		Name:     name,
		Severity: severity,
		Status:   status,
		Message:  message,
		Details:  []string{},
	}
}

// Pass creates a passing result.
func Pass(name, message string) CheckResult {
	return NewCheckResult(name, SeverityInfo, StatusPass, message)
}

// FailError creates a failing result that makes doctor exit non-zero.
func FailError(name, message string) CheckResult {
	return NewCheckResult(name, SeverityError, StatusFail, message)
}

// FailWarning creates a failing result that is only reported.
func FailWarning(name, message string) CheckResult {
	return NewCheckResult(name, SeverityWarning, StatusFail, message)
}

// Skip creates a skipped result.
func Skip(name, message string) CheckResult {
	return NewCheckResult(name, SeverityInfo, StatusSkipped, message)
}

// WithDetails appends details.
func (r CheckResult) WithDetails(details ...string) CheckResult {
	r.Details = append(r.Details, details...)

	return r
}

// WithFixID links the result to a fixer.
func (r CheckResult) WithFixID(fixID string) CheckResult {
	r.FixID = fixID

	return r
}

// IsError reports a failure with error severity.
func (r CheckResult) IsError() bool {
	return r.Status == StatusFail && r.Severity == SeverityError
}

// IsWarning reports a failure with warning severity.
func (r CheckResult) IsWarning() bool {
	return r.Status == StatusFail && r.Severity == SeverityWarning
}

// IsPassed reports a passing check.
func (r CheckResult) IsPassed() bool {
	return r.Status == StatusPass
}

// IsSkipped reports a skipped check.
func (r CheckResult) IsSkipped() bool {
	return r.Status == StatusSkipped
}

// HasFix reports whether a fixer is linked.
func (r CheckResult) HasFix() bool {
	return r.FixID != ""
}

// NeedsFix reports whether r is a failure linked to the fixer fixID.
func (r CheckResult) NeedsFix(fixID string) bool {
	return r.Status == StatusFail && r.FixID == fixID
}
