package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/hako/durafmt"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/smykla-skalski/desgate/internal/bridge"
	"github.com/smykla-skalski/desgate/internal/config/factory"
	"github.com/smykla-skalski/desgate/internal/doctor/reporters"
	"github.com/smykla-skalski/desgate/pkg/stringutil"
)

// maxRecordSize bounds one recorded event line.
const maxRecordSize = 4 << 20

// replayReasonWidth bounds the reason column.
const replayReasonWidth = 60

var replayJobs int

var replayCmd = &cobra.Command{
	Use:   "replay <file.jsonl>",
	Short: "Replay recorded hook events through the validator",
	Long: `Replay recorded hook events through the full pipeline and print the
resulting decisions. Each line of the input is a JSON object:

  {"host": "claude", "event": "PreToolUse", "payload": {...}}

Replays run concurrently and do not touch the audit log or session state.
Exits 1 when any event would be rejected.

Examples:
  desgate replay events.jsonl
  desgate replay --jobs 1 events.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().IntVarP(
		&replayJobs,
		"jobs",
		"j",
		runtime.NumCPU(),
		"Number of events replayed concurrently",
	)
}

// replayRecord is one recorded host event.
type replayRecord struct {
	Host    string          `json:"host"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type replayOutcome struct {
	line   int
	record replayRecord
	result *bridge.Result
	err    error
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, closeLog := newLogger(cfg)
	defer closeLog()

	records, err := readReplayFile(args[0])
	if err != nil {
		return err
	}

	workDir, _ := os.Getwd()
	f := factory.NewBridgeFactory(log, factory.WithWorkDir(workDir))

	c, err := f.CreateCodec(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to build codec")
	}

	b := bridge.New(cfg, c, bridge.WithLogger(log))

	outcomes := make([]replayOutcome, len(records))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(replayJobs, 1))

	for i, rec := range records {
		outcomes[i] = replayOutcome{line: rec.line, record: rec.replayRecord}

		g.Go(func() error {
			outcomes[i].result, outcomes[i].err = b.Handle(ctx, rec.Host, rec.Event, rec.Payload)

			return nil
		})
	}

	_ = g.Wait()

	rejected, err := renderReplay(cmd.OutOrStdout(), outcomes)
	if err != nil {
		return errors.Wrap(err, "failed to render replay results")
	}

	log.Info("replay finished", "events", len(outcomes), "rejected", rejected)

	if rejected > 0 {
		return &exitCodeError{code: ExitCodeFailure}
	}

	return nil
}

type numberedRecord struct {
	replayRecord
	line int
}

func readReplayFile(path string) ([]numberedRecord, error) {
	f, err := os.Open(path) //nolint:gosec // user-supplied replay file
	if err != nil {
		return nil, errors.Wrap(err, "failed to open replay file")
	}
	defer f.Close()

	return parseReplay(f)
}

func parseReplay(r io.Reader) ([]numberedRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxRecordSize)

	var (
		records []numberedRecord
		line    int
	)

	for scanner.Scan() {
		line++

		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		var rec replayRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}

		if rec.Host == "" || rec.Event == "" {
			return nil, errors.Newf("line %d: host and event are required", line)
		}

		records = append(records, numberedRecord{replayRecord: rec, line: line})
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read replay file")
	}

	return records, nil
}

// renderReplay prints the decision table and returns the number of
// rejections, counting events that could not be handled.
func renderReplay(w io.Writer, outcomes []replayOutcome) (int, error) {
	theme := outputTheme(w)
	rows := make([][]string, 0, len(outcomes))
	rejected := 0

	for _, o := range outcomes {
		row := []string{strconv.Itoa(o.line), o.record.Host, o.record.Event}

		switch {
		case o.err != nil:
			rejected++

			row = append(row, "-", "-", theme.Action("failed"), "-", stringutil.Truncate(o.err.Error(), replayReasonWidth))
		case !o.result.Applicable:
			row = append(row, "-", "-", theme.Action(o.result.Verdict.Action.String()), "-", "not intercepted")
		default:
			if o.result.Rejected() {
				rejected++
			}

			row = append(row,
				o.result.Command.String(),
				theme.Kind(o.result.Decision.Kind.String()),
				theme.Action(o.result.Verdict.Action.String()),
				durafmt.Parse(o.result.Duration).LimitFirstN(1).String(),
				stringutil.Truncate(o.result.Verdict.Reason, replayReasonWidth),
			)
		}

		rows = append(rows, row)
	}

	if err := reporters.RenderGrid(w,
		[]string{"Line", "Host", "Event", "Command", "Decision", "Action", "Took", "Reason"},
		rows,
		theme,
	); err != nil {
		return rejected, err
	}

	if _, err := fmt.Fprintf(w, "%d event(s), %d rejected\n", len(outcomes), rejected); err != nil {
		return rejected, errors.Wrap(err, "failed to write replay summary")
	}

	return rejected, nil
}
