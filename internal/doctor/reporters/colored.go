package reporters

import (
	"fmt"
	"io"

	"github.com/smykla-skalski/desgate/internal/color"
	"github.com/smykla-skalski/desgate/internal/doctor"
)

// ColoredReporter outputs a static colored table.
type ColoredReporter struct {
	out   io.Writer
	width int
	theme color.Theme
}

// NewColoredReporter creates a ColoredReporter with the given theme. width is
// the terminal width; zero lets the table size itself.
func NewColoredReporter(out io.Writer, width int, theme color.Theme) *ColoredReporter {
	return &ColoredReporter{out: out, width: width, theme: theme}
}

// Report renders results as a colored table.
func (r *ColoredReporter) Report(results []doctor.CheckResult, verbose bool) {
	fmt.Fprintln(r.out, header)
	fmt.Fprintln(r.out)

	tbl := RenderTable(results, verbose, r.width, r.theme)
	if tbl != "" {
		fmt.Fprintln(r.out, tbl)
		fmt.Fprintln(r.out)
	}

	fmt.Fprintln(r.out, RenderSummary(results, r.theme))
}
