package config

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"

	"github.com/smykla-skalski/desgate/pkg/config"
)

const (
	// ConfigFileMode keeps config files private to the user.
	ConfigFileMode = 0o600

	// ConfigDirMode is used for created config directories.
	ConfigDirMode = 0o700

	// SchemaFileName is written next to the config and referenced from it.
	SchemaFileName = "desgate.schema.json"
)

// fileHeader precedes the encoded TOML. The first line is a taplo schema
// directive.
const fileHeader = "#:schema ./" + SchemaFileName + `
# desgate configuration.
# Environment overrides: DESGATE_<SECTION>_<KEY>, NWAVE_ROOT, NWAVE_PYTHON.

`

// Scope selects which config file a Writer targets.
type Scope int

const (
	// ScopeProject is .desgate/config.toml in the working directory.
	ScopeProject Scope = iota

	// ScopeGlobal is ~/.desgate/config.toml.
	ScopeGlobal
)

// Writer writes configuration as TOML.
type Writer struct {
	homeDir string
	workDir string
}

// NewWriter creates a Writer for the user's home and working directories.
func NewWriter() *Writer {
	return &Writer{homeDir: os.Getenv("HOME"), workDir: mustGetwd()}
}

// NewWriterWithDirs creates a Writer with explicit directories.
func NewWriterWithDirs(homeDir, workDir string) *Writer {
	return &Writer{homeDir: homeDir, workDir: workDir}
}

// Path returns the config file path for scope.
func (w *Writer) Path(scope Scope) string {
	if scope == ScopeGlobal {
		return filepath.Join(w.homeDir, GlobalConfigDir, GlobalConfigFile)
	}

	return filepath.Join(w.workDir, ProjectConfigDir, ProjectConfigFile)
}

// Exists reports whether the config file for scope exists.
func (w *Writer) Exists(scope Scope) bool {
	return fileExists(w.Path(scope))
}

// Write encodes cfg to the config file for scope.
func (w *Writer) Write(scope Scope, cfg *config.Config) error {
	return w.WriteFile(w.Path(scope), cfg)
}

// WriteFile encodes cfg to path. The file is replaced by rename, so a hook
// process loading it concurrently sees either the old or the new content.
func (*Writer) WriteFile(path string, cfg *config.Config) error {
	if cfg == nil {
		return errors.Wrap(ErrInvalidConfig, "config is nil")
	}

	buf := bytes.NewBufferString(fileHeader)

	enc := toml.NewEncoder(buf)
	enc.SetIndentTables(true)

	if err := enc.Encode(cfg); err != nil {
		return errors.Wrap(err, "failed to encode config to TOML")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, ConfigDirMode); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}

	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()

		return errors.Wrapf(err, "failed to write config file %s", path)
	}

	if err := tmp.Chmod(ConfigFileMode); err != nil {
		_ = tmp.Close()

		return errors.Wrap(err, "failed to set config file mode")
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to write config file %s", path)
	}

	return errors.Wrapf(os.Rename(tmp.Name(), path), "failed to replace %s", path)
}
