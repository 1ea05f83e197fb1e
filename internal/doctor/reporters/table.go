package reporters

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/term"

	"github.com/smykla-skalski/desgate/internal/color"
	"github.com/smykla-skalski/desgate/internal/doctor"
	"github.com/smykla-skalski/desgate/internal/paths"
)

const (
	// cellOverhead is the border plus left and right padding of one cell.
	cellOverhead = 3

	minTableWidth   = 40
	minMessageWidth = 20
	minCheckWidth   = 5
	iconWidth       = 1

	// messageShare is the percentage of flexible width given to messages
	// when a details column is shown.
	messageShare = 60

	fixableSuffix = " (fixable)"
)

var borderRunes = []string{"╭", "╮", "╰", "╯", "│", "─", "┬", "┴", "├", "┤", "┼"}

// StatusIcon returns a single-width icon for a check result. Emoji would
// break column alignment.
func StatusIcon(result doctor.CheckResult) string {
	switch {
	case result.IsPassed():
		return "✓"
	case result.IsSkipped():
		return "-"
	case result.IsError():
		return "✗"
	case result.IsWarning():
		return "!"
	case result.Status == doctor.StatusFail:
		return "i"
	default:
		return "?"
	}
}

// StyledIcon returns StatusIcon in the theme's status color.
func StyledIcon(result doctor.CheckResult, theme color.Theme) string {
	icon := StatusIcon(result)

	switch {
	case result.IsPassed():
		return theme.Pass.Render(icon)
	case result.IsSkipped():
		return theme.Skip.Render(icon)
	case result.IsError():
		return theme.Fail.Render(icon)
	case result.Status == doctor.StatusFail:
		return theme.Warning.Render(icon)
	default:
		return icon
	}
}

// newBox creates a rounded table with a line between rows. widths are
// content widths per column; nil leaves sizing to tablewriter.
func newBox(w io.Writer, widths map[int]int, merge bool) *tablewriter.Table {
	cfg := tablewriter.NewConfigBuilder().WithTrimSpace(tw.Off)
	if merge {
		cfg = cfg.Row().Merging().WithMode(tw.MergeHorizontal).Build().Build()
	}

	cfg = cfg.Row().Formatting().WithAutoWrap(tw.WrapNormal).Build().Build()

	opts := []tablewriter.Option{
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleRounded),
			Settings: tw.Settings{
				Separators: tw.Separators{BetweenRows: tw.On},
			},
		})),
		tablewriter.WithPadding(tw.Padding{Left: " ", Right: " "}),
		tablewriter.WithConfig(cfg.Build()),
	}

	if widths != nil {
		opts = append(opts, tablewriter.WithColumnWidths(toCellWidths(widths)))
	}

	return tablewriter.NewTable(w, opts...)
}

// RenderGrid writes a plain rounded table. Used for replay decisions and
// tracked sessions.
func RenderGrid(w io.Writer, headers []string, rows [][]string, theme color.Theme) error {
	var buf bytes.Buffer

	t := newBox(&buf, nil, false)
	t.Header(headers)

	for _, row := range rows {
		if err := t.Append(row); err != nil {
			return err
		}
	}

	if err := t.Render(); err != nil {
		return err
	}

	_, err := io.WriteString(w, dimBorders(buf.String(), theme))

	return err
}

// RenderTable renders check results grouped by category. Category rows span
// all text columns. width is the terminal width, 0 when unknown.
func RenderTable(results []doctor.CheckResult, verbose bool, width int, theme color.Theme) string {
	groups := GroupResultsByCategory(results)
	if len(groups) == 0 {
		return ""
	}

	headers := []string{"", "Check", "Message"}
	if verbose {
		headers = append(headers, "Details")
	}

	widths := calcColumnWidthsFor(width, results, verbose)

	var buf bytes.Buffer

	t := newBox(&buf, widths, true)
	t.Header(headers)

	for _, g := range groups {
		category := theme.Header.Render(getCategoryName(g.Category))

		span := make([]string, len(headers))
		for i := 1; i < len(span); i++ {
			span[i] = category
		}

		_ = t.Append(span)

		sorted := slices.Clone(g.Results)
		slices.SortStableFunc(sorted, func(a, b doctor.CheckResult) int {
			return severityRank(a) - severityRank(b)
		})

		for _, r := range sorted {
			_ = t.Append(buildResultRow(r, verbose, widths, theme))
		}
	}

	_ = t.Render()

	return dimBorders(strings.TrimRight(buf.String(), "\n"), theme)
}

// buildResultRow creates the cells for one result, padded to widths when set.
// Failures with a fixer are marked fixable.
func buildResultRow(r doctor.CheckResult, verbose bool, widths map[int]int, theme color.Theme) []string {
	msg := r.Message
	if r.HasFix() && r.Status == doctor.StatusFail {
		msg += fixableSuffix
	}

	row := []string{StyledIcon(r, theme), theme.CheckName.Render(r.Name), shortenPath(msg)}

	if verbose {
		row = append(row, shortenPath(strings.Join(r.Details, "; ")))
	}

	for i := range row {
		if w, ok := widths[i]; ok {
			row[i] = padToWidth(row[i], w)
		}
	}

	return row
}

// toCellWidths adds the left and right padding to content widths.
func toCellWidths(contentWidths map[int]int) tw.Mapper[int, int] {
	const padding = 2

	m := make(tw.Mapper[int, int], len(contentWidths))
	for col, w := range contentWidths {
		m[col] = w + padding
	}

	return m
}

// padToWidth right-pads s to display width w, ignoring ANSI escapes.
func padToWidth(s string, w int) string {
	visible := runewidth.StringWidth(ansi.Strip(s))
	if visible >= w {
		return s
	}

	return s + strings.Repeat(" ", w-visible)
}

func dimBorders(s string, theme color.Theme) string {
	for _, ch := range borderRunes {
		s = strings.ReplaceAll(s, ch, theme.Muted.Render(ch))
	}

	return s
}

// RenderSummary returns the summary line. Non-zero error and warning counts
// are colored.
func RenderSummary(results []doctor.CheckResult, theme color.Theme) string {
	errs, warnings, passed := countResults(results)

	skipped := 0

	for _, r := range results {
		if r.IsSkipped() {
			skipped++
		}
	}

	parts := []string{
		countPart("%d error(s)", errs, theme.Fail),
		countPart("%d warning(s)", warnings, theme.Warning),
		theme.Pass.Render(fmt.Sprintf("%d passed", passed)),
	}

	if skipped > 0 {
		parts = append(parts, theme.Skip.Render(fmt.Sprintf("%d skipped", skipped)))
	}

	return "Summary: " + strings.Join(parts, ", ")
}

func countPart(format string, n int, style lipgloss.Style) string {
	text := fmt.Sprintf(format, n)
	if n == 0 {
		return text
	}

	return style.Render(text)
}

// GroupResultsByCategory groups results in display order. Unknown categories
// follow the known ones alphabetically.
func GroupResultsByCategory(results []doctor.CheckResult) []categoryGroup {
	byCategory := make(map[doctor.Category][]doctor.CheckResult)

	for _, r := range results {
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}

	groups := make([]categoryGroup, 0, len(byCategory))

	for _, cat := range categoryOrder {
		if rs, ok := byCategory[cat]; ok {
			groups = append(groups, categoryGroup{Category: cat, Results: rs})
			delete(byCategory, cat)
		}
	}

	for _, cat := range sortedCategories(byCategory) {
		groups = append(groups, categoryGroup{Category: cat, Results: byCategory[cat]})
	}

	return groups
}

type categoryGroup struct {
	Category doctor.Category
	Results  []doctor.CheckResult
}

// calcColumnWidthsFor splits a terminal of width w between the icon, check
// name, message and (verbose) details columns. Returns nil when w is too
// narrow for a table.
func calcColumnWidthsFor(w int, results []doctor.CheckResult, verbose bool) map[int]int {
	if w < minTableWidth {
		return nil
	}

	cols := 3
	if verbose {
		cols++
	}

	available := w - cols*cellOverhead - 1 - iconWidth
	if available < minMessageWidth+minCheckWidth {
		return nil
	}

	checkW := minCheckWidth
	for _, r := range results {
		checkW = max(checkW, runewidth.StringWidth(r.Name))
	}

	checkW = min(checkW, available-minMessageWidth)
	flex := available - checkW

	widths := map[int]int{0: iconWidth, 1: checkW, 2: flex}

	if verbose {
		widths[2] = flex * messageShare / 100 //nolint:mnd // percent
		widths[3] = flex - widths[2]
	}

	return widths
}

// TermWidth returns the width of w when it is a terminal, or 0.
func TermWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}

	if width, _, err := term.GetSize(
		int(f.Fd()), //nolint:gosec // fd fits int
	); err == nil && width > 0 {
		return width
	}

	return 0
}

// homeDir is replaced in tests.
var homeDir = paths.HomeDir()

// shortenPath replaces the home directory with ~.
func shortenPath(s string) string {
	if homeDir == "" {
		return s
	}

	return strings.ReplaceAll(s, homeDir, "~")
}

func severityRank(r doctor.CheckResult) int {
	switch {
	case r.IsError():
		return 0
	case r.IsWarning():
		return 1
	case r.IsSkipped():
		return 3 //nolint:mnd // after passes
	default:
		return 2 //nolint:mnd // after warnings
	}
}
