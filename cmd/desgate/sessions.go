package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/smykla-skalski/desgate/internal/doctor/reporters"
	"github.com/smykla-skalski/desgate/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect DES step tracking state",
	Long: `Inspect and reset the per-session DES step tracking state.

Steps dispatched through a governed tool are recorded as pending and become
validated when the session's stop event is allowed.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear [session-id]",
	Short: "Clear one session, or all sessions",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionsClear,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsClearCmd)
}

func newSessionTracker() (*session.Tracker, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	return session.NewTracker(cfg.GetSession()), nil
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	tracker, err := newSessionTracker()
	if err != nil {
		return err
	}

	state, err := tracker.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if !tracker.IsEnabled() {
		fmt.Fprintln(out, "Session tracking is disabled (session.enabled = false)")
	}

	if len(state.Sessions) == 0 {
		fmt.Fprintln(out, "No tracked sessions")

		return nil
	}

	rows := make([][]string, 0, len(state.Sessions))

	for _, id := range state.SortedIDs() {
		info := state.Sessions[id]

		rows = append(rows, []string{
			id,
			listOrDash(info.PendingSteps),
			listOrDash(info.ValidatedSteps),
			strconv.Itoa(info.StopCount),
			humanize.Time(info.LastActivity),
		})
	}

	return reporters.RenderGrid(out,
		[]string{"Session", "Pending", "Validated", "Stops", "Last Activity"},
		rows,
		outputTheme(out),
	)
}

func runSessionsClear(cmd *cobra.Command, args []string) error {
	tracker, err := newSessionTracker()
	if err != nil {
		return err
	}

	var id string
	if len(args) == 1 {
		id = args[0]
	}

	removed, err := tracker.Clear(id)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d session(s)\n", removed)

	return nil
}

func listOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}

	return strings.Join(items, "\n")
}
