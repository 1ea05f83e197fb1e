// Package paths resolves the user-level locations desgate reads and writes.
// Project-local files (.desgate/config.toml, desgate.toml) live in internal/config.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	appDirName = ".desgate"
	privateDir = 0o700
)

var openCodePluginDir = []string{".config", "opencode", "plugins"}

// ErrTildeUser rejects "~name/..." paths, which would need a user database lookup.
var ErrTildeUser = errors.New("only ~ and ~/ are supported")

// HomeDir returns the user's home directory, or "" when it is unknown.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return home
}

// underHome joins elem below the home directory, keeping a literal "~" when
// the home directory is unknown.
func underHome(elem ...string) string {
	home := HomeDir()
	if home == "" {
		home = "~"
	}

	return filepath.Join(append([]string{home}, elem...)...)
}

// AppDir returns ~/.desgate, the default home of logs, audit and session state.
func AppDir() string {
	return underHome(appDirName)
}

// ClaudeSettingsFile returns ~/.claude/settings.json, where Claude Code hooks
// are registered.
func ClaudeSettingsFile() string {
	return underHome(".claude", "settings.json")
}

// OpenCodePluginDir returns ~/.config/opencode/plugins, which OpenCode scans
// for plugins at session start.
func OpenCodePluginDir() string {
	return underHome(openCodePluginDir...)
}

// OpenCodePluginDirIn is OpenCodePluginDir below an explicit home directory.
func OpenCodePluginDirIn(home string) string {
	return filepath.Join(append([]string{home}, openCodePluginDir...)...)
}

// ExpandPath expands $VAR references and a leading ~ or ~/. Other paths are
// returned unchanged.
func ExpandPath(path string) (string, error) {
	path = os.ExpandEnv(path)

	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	rest, ok := strings.CutPrefix(path[1:], "/")
	if !ok && path != "~" {
		return "", errors.Wrapf(ErrTildeUser, "got %q", path)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}

	return filepath.Join(home, rest), nil
}

// ExpandPathSilent is ExpandPath that returns path unchanged on error.
func ExpandPathSilent(path string) string {
	if expanded, err := ExpandPath(path); err == nil {
		return expanded
	}

	return path
}

// EnsureDir creates path as a 0700 directory, tightening an existing one.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, privateDir); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", path)
	}

	if err := os.Chmod(path, privateDir); err != nil {
		return errors.Wrapf(err, "failed to set permissions on %s", path)
	}

	return nil
}
