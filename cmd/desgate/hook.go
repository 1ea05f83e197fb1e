package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/smykla-skalski/desgate/internal/bridge"
	"github.com/smykla-skalski/desgate/internal/config/factory"
)

var hookCmd = &cobra.Command{
	Use:   "hook <host> <event>",
	Short: "Handle one host hook event",
	Long: `Handle one hook event from an AI coding host.

The event payload is read from stdin. The response is written in the host's
protocol: Claude Code receives JSON on stdout and exit code 0, exit-code hosts
such as OpenCode receive the rejection reason on stderr and exit code 2.

Examples:
  desgate hook claude PreToolUse
  desgate hook opencode tool.execute.before`,
	Args: cobra.ExactArgs(2), //nolint:mnd // host and event
	RunE: runHook,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, args []string) error {
	hostName, event := args[0], args[1]

	payload, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return errors.Wrap(err, "failed to read hook payload")
	}

	cfg, err := loadConfig()
	if err != nil {
		return failClosed(cmd, hostName, event, payload, err)
	}

	log, closeLog := newLogger(cfg)
	defer closeLog()

	log.Info("hook invoked", "host", hostName, "event", event)

	workDir, _ := os.Getwd()

	b, err := factory.NewBridgeFactory(log, factory.WithWorkDir(workDir)).CreateBridge(cfg)
	if err != nil {
		log.Error("failed to build bridge", "error", err)

		return failClosed(cmd, hostName, event, payload, errors.Wrap(err, "failed to build bridge"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := b.Handle(ctx, hostName, event, payload)
	if err != nil {
		log.Error("hook failed", "error", err)

		return err
	}

	host, err := b.Codec().Host(hostName)
	if err != nil {
		return err
	}

	return respond(cmd, bridge.IntegrationFor(host), res)
}

// failClosed rejects a governed pre-tool-use on a built-in host when desgate
// cannot be set up. Every other event returns cause and exits 1.
func failClosed(cmd *cobra.Command, hostName, event string, payload []byte, cause error) error {
	res, host := bridge.FailClosed(hostName, event, payload, cause)
	if res == nil {
		return cause
	}

	return respond(cmd, bridge.IntegrationFor(host), res)
}

func respond(cmd *cobra.Command, integration bridge.Integration, res *bridge.Result) error {
	code, err := integration.Respond(res, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if code != ExitCodeOK {
		return &exitCodeError{code: code}
	}

	if err != nil {
		return errors.Wrap(err, "failed to write host response")
	}

	return nil
}
