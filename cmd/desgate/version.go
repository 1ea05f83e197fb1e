package main

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smykla-skalski/desgate/pkg/config"
)

const shortCommitLength = 12

// Set through -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and validator information",
	Long: `Print the desgate build and the validator command it would launch.

The validator line reflects the effective configuration of the current
directory and is omitted when that configuration does not load.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()

		if versionShort {
			fmt.Fprintln(out, version)

			return
		}

		writeBuildInfo(out)

		if cfg, err := loadConfig(); err == nil {
			writeValidatorInfo(out, cfg.GetValidator())
		}
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version")

	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")
}

func writeBuildInfo(w io.Writer) {
	rev := commit

	var modified bool

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && rev == "unknown" && s.Value != "":
				rev = s.Value[:min(shortCommitLength, len(s.Value))]
			case s.Key == "vcs.modified":
				modified = s.Value == "true"
			}
		}
	}

	if modified {
		rev += "-dirty"
	}

	fmt.Fprintf(w, "desgate %s\n", version)
	fmt.Fprintf(w, "  commit:     %s\n", rev)
	fmt.Fprintf(w, "  built:      %s\n", date)
	fmt.Fprintf(w, "  go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func writeValidatorInfo(w io.Writer, v *config.ValidatorConfig) {
	argv := append([]string{v.GetExecutable()}, v.Args...)

	fmt.Fprintf(w, "  validator:  %s <command>\n", strings.Join(argv, " "))

	if v.Root != "" {
		fmt.Fprintf(w, "  root:       %s (%s)\n", v.Root, v.GetPathEnv())
	}

	if t := v.GetTimeout(); t > 0 {
		fmt.Fprintf(w, "  timeout:    %s\n", t)
	}
}
