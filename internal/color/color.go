// Package color decides whether CLI output is colored and holds the styles
// used by doctor and replay tables.
package color

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Allowed reports whether the environment permits color. It does not look at
// the output stream.
//
// Color is disallowed by the --no-color flag, by NO_COLOR (any value, see
// https://no-color.org), by CLICOLOR=0 and by TERM=dumb.
func Allowed(noColorFlag bool) bool {
	if noColorFlag {
		return false
	}

	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}

	if os.Getenv("CLICOLOR") == "0" {
		return false
	}

	return os.Getenv("TERM") != "dumb"
}

// Forced reports whether CLICOLOR_FORCE asks for color on non-terminals.
func Forced() bool {
	v := os.Getenv("CLICOLOR_FORCE")

	return v != "" && v != "0"
}

// IsTerminal returns true if w is a terminal file.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && term.IsTerminal(int(f.Fd()))
}

// Enabled reports whether output written to w should be colored.
func Enabled(w io.Writer, noColorFlag bool) bool {
	if !Allowed(noColorFlag) {
		return false
	}

	return Forced() || IsTerminal(w)
}

// Theme holds lipgloss styles. The zero Theme renders text unchanged.
type Theme struct {
	Pass      lipgloss.Style
	Fail      lipgloss.Style
	Warning   lipgloss.Style
	Skip      lipgloss.Style
	Info      lipgloss.Style
	Header    lipgloss.Style
	CheckName lipgloss.Style
	Muted     lipgloss.Style
}

// NewTheme creates a Theme. When color is false, all styles are empty.
func NewTheme(color bool) Theme {
	if !color {
		return Theme{}
	}

	return Theme{
		Pass:      lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Fail:      lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Skip:      lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Info:      lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Header:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		CheckName: lipgloss.NewStyle().Bold(true),
		Muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Action renders an arbiter action name ("proceed", "reject", "log-only")
// in its status color. Unknown names are rendered muted.
func (t Theme) Action(action string) string {
	switch action {
	case "proceed":
		return t.Pass.Render(action)
	case "reject", "failed":
		return t.Fail.Render(action)
	case "log-only":
		return t.Warning.Render(action)
	default:
		return t.Muted.Render(action)
	}
}

// Kind renders a decision kind name ("allow", "block", "error").
func (t Theme) Kind(kind string) string {
	switch kind {
	case "allow":
		return t.Pass.Render(kind)
	case "block":
		return t.Fail.Render(kind)
	case "error":
		return t.Warning.Render(kind)
	default:
		return t.Muted.Render(kind)
	}
}
