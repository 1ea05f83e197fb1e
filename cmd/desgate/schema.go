package main

import (
	"maps"
	"os"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/smykla-skalski/desgate/internal/codec"
	"github.com/smykla-skalski/desgate/internal/schema"
)

var (
	schemaOutput  string
	schemaCompact bool
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate JSON Schema for configuration",
	Long: `Generate a JSON Schema (Draft 2020-12) for the desgate configuration format.

Examples:
  desgate schema                           # Print to stdout
  desgate schema --output schema.json      # Write to file
  desgate schema --compact                 # Compact output`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().StringVarP(
		&schemaOutput,
		"output", "o",
		"",
		"Write schema to file instead of stdout",
	)

	schemaCmd.Flags().BoolVar(
		&schemaCompact,
		"compact",
		false,
		"Output compact JSON without indentation",
	)
}

func runSchema(cmd *cobra.Command, _ []string) error {
	data, err := schema.GenerateJSON(!schemaCompact, builtinHostNames()...)
	if err != nil {
		return errors.Wrap(err, "generating schema")
	}

	if schemaOutput != "" {
		const filePerms = 0o644

		if err := os.WriteFile(schemaOutput, data, filePerms); err != nil {
			return errors.Wrap(err, "writing schema file")
		}

		return nil
	}

	_, err = cmd.OutOrStdout().Write(data)

	return err
}

// builtinHostNames lists the embedded host tables, empty if they fail to parse.
func builtinHostNames() []string {
	hosts, err := codec.BuiltinHosts()
	if err != nil {
		return nil
	}

	return slices.Sorted(maps.Keys(hosts))
}
