// Package reporters provides output formatting for doctor check results
package reporters

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/smykla-skalski/desgate/internal/doctor"
)

// categoryOrder is the display order for categories.
var categoryOrder = doctor.Categories()

// categoryNames maps categories to display names
var categoryNames = map[doctor.Category]string{
	doctor.CategoryValidator: "Validation Engine",
	doctor.CategoryHook:      "Hook Registration",
	doctor.CategoryConfig:    "Configuration",
	doctor.CategoryStorage:   "Storage",
}

const header = "Checking desgate health..."

// SimpleReporter provides simple checklist-style output
type SimpleReporter struct {
	out io.Writer
}

// NewSimpleReporter creates a new SimpleReporter writing to out
func NewSimpleReporter(out io.Writer) *SimpleReporter {
	return &SimpleReporter{out: out}
}

// Report outputs the results in a simple checklist format
func (r *SimpleReporter) Report(results []doctor.CheckResult, verbose bool) {
	fmt.Fprintln(r.out, header)
	fmt.Fprintln(r.out)

	for _, g := range GroupResultsByCategory(results) {
		fmt.Fprintf(r.out, "%s:\n", getCategoryName(g.Category))

		for _, result := range g.Results {
			r.printResult(result, verbose)
		}

		fmt.Fprintln(r.out)
	}

	errorCount, warningCount, passedCount := countResults(results)

	fmt.Fprintf(r.out, "Summary: %d error(s), %d warning(s), %d passed\n",
		errorCount, warningCount, passedCount)
}

// getCategoryName returns the display name for a category
func getCategoryName(category doctor.Category) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}

	s := string(category)
	if len(s) == 0 {
		return "Other"
	}

	return strings.ToUpper(s[:1]) + s[1:]
}

func (r *SimpleReporter) printResult(result doctor.CheckResult, verbose bool) {
	fmt.Fprintf(r.out, "  %s %s", getStatusIcon(result), result.Name)

	if result.Message != "" {
		fmt.Fprintf(r.out, " - %s", result.Message)
	}

	fmt.Fprintln(r.out)

	if verbose {
		for _, detail := range result.Details {
			fmt.Fprintf(r.out, "     %s\n", detail)
		}
	}

	if result.HasFix() && result.Status == doctor.StatusFail {
		fmt.Fprintln(r.out, "     → Run: desgate doctor --fix")
	}
}

// getStatusIcon returns the appropriate icon for a check result
func getStatusIcon(result doctor.CheckResult) string {
	switch result.Status {
	case doctor.StatusPass:
		return "✅"
	case doctor.StatusFail:
		switch result.Severity {
		case doctor.SeverityError:
			return "❌"
		case doctor.SeverityWarning:
			return "⚠️"
		default:
			return "ℹ️"
		}
	case doctor.StatusSkipped:
		return "⊘"
	default:
		return "?"
	}
}

// countResults counts errors, warnings, and passed checks
func countResults(results []doctor.CheckResult) (errors, warnings, passed int) {
	for _, result := range results {
		switch {
		case result.IsPassed():
			passed++
		case result.IsError():
			errors++
		case result.IsWarning():
			warnings++
		}
	}

	return errors, warnings, passed
}

// sortedCategories returns categories not in categoryOrder, sorted by name.
func sortedCategories(catMap map[doctor.Category][]doctor.CheckResult) []doctor.Category {
	var rest []doctor.Category

	for cat := range catMap {
		if !slices.Contains(categoryOrder, cat) {
			rest = append(rest, cat)
		}
	}

	slices.Sort(rest)

	return rest
}
