// Package fixers repairs what doctor checks report: missing directories,
// missing global config, loose permissions and unregistered Claude Code hooks.
package fixers

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	dirPermissions     = 0o750
	newFilePermissions = 0o600
)

// backupPath names the copy kept before desgate rewrites a file it does not own.
func backupPath(path string, now time.Time) string {
	return path + ".desgate-" + strconv.FormatInt(now.Unix(), 10) + ".bak"
}

// AtomicWriteFile replaces path with data through a temp file and rename. An
// existing file keeps its mode and, with backup set, is copied aside first.
func AtomicWriteFile(path string, data []byte, backup bool) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}

	mode := os.FileMode(newFilePermissions)

	if old, err := os.ReadFile(path); err == nil {
		if info, err := os.Stat(path); err == nil {
			mode = info.Mode().Perm()
		}

		if backup {
			if err := os.WriteFile(backupPath(path, time.Now()), old, mode); err != nil {
				return errors.Wrap(err, "failed to create backup")
			}
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to read %s", path)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}

	defer func() { _ = os.Remove(tmp.Name()) }()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Chmod(mode)
	}

	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return errors.Wrap(err, "failed to write temp file")
	}

	return errors.Wrap(os.Rename(tmp.Name(), path), "failed to rename temp file")
}
