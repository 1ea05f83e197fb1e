package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/smykla-skalski/desgate/internal/config"
	"github.com/smykla-skalski/desgate/internal/schema"
)

var (
	globalFlag bool
	forceFlag  bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize desgate configuration",
	Long: `Initialize a desgate configuration file populated with defaults.

By default, creates a project-local configuration file (.desgate/config.toml).
Use --global or -g to create a global configuration file (~/.desgate/config.toml).
A JSON Schema for editor completion is written next to the file.

Use --force to overwrite an existing configuration file.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(
		&globalFlag,
		"global",
		"g",
		false,
		"Initialize global configuration",
	)

	initCmd.Flags().BoolVarP(
		&forceFlag,
		"force",
		"f",
		false,
		"Overwrite existing configuration file",
	)
}

func runInit(cmd *cobra.Command, _ []string) error {
	writer := config.NewWriter()

	configPath, err := checkExistingConfig(writer)
	if err != nil {
		return err
	}

	cfg := config.DefaultConfig()

	if err := writer.WriteFile(configPath, cfg); err != nil {
		return err
	}

	data, err := schema.GenerateJSON(true, builtinHostNames()...)
	if err != nil {
		return errors.Wrap(err, "generating schema")
	}

	schemaPath := filepath.Join(filepath.Dir(configPath), config.SchemaFileName)
	if err := os.WriteFile(schemaPath, data, config.ConfigFileMode); err != nil {
		return errors.Wrapf(err, "failed to write schema file %s", schemaPath)
	}

	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "✅ Configuration written to %s\n", configPath)
	fmt.Fprintln(out, "Configuration initialized successfully!")

	return nil
}

func checkExistingConfig(writer *config.Writer) (string, error) {
	scope := config.ScopeProject
	if globalFlag {
		scope = config.ScopeGlobal
	}

	configPath := writer.Path(scope)

	if writer.Exists(scope) && !forceFlag {
		return "", errors.Errorf(
			"configuration file already exists: %s\nUse --force to overwrite",
			configPath,
		)
	}

	return configPath, nil
}
