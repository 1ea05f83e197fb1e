package exec

//go:generate mockgen -source=tool.go -destination=tool_mock.go -package=exec

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ToolChecker resolves the validator executable the way the invoker will
// launch it, without running it.
type ToolChecker interface {
	// Resolve returns the absolute path of executable. Bare names are looked
	// up in PATH; relative paths are taken relative to dir, the working
	// directory of the launch.
	Resolve(executable, dir string) (string, error)
}

type toolChecker struct{}

// NewToolChecker creates a ToolChecker backed by PATH and the filesystem.
func NewToolChecker() ToolChecker {
	return toolChecker{}
}

func (toolChecker) Resolve(executable, dir string) (string, error) {
	if executable == "" {
		return "", &ToolNotFoundError{Tool: executable}
	}

	if !strings.ContainsRune(executable, os.PathSeparator) {
		path, err := exec.LookPath(executable)
		if err != nil {
			return "", &ToolNotFoundError{Tool: executable}
		}

		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}

		return path, nil
	}

	path := executable
	if !filepath.IsAbs(path) && dir != "" {
		path = filepath.Join(dir, path)
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return "", &ToolNotFoundError{Tool: executable, Path: path}
	}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	return path, nil
}

// ToolNotFoundError reports an executable that does not resolve.
type ToolNotFoundError struct {
	Tool string

	// Path is the candidate that was checked for path-like executables.
	Path string
}

func (e *ToolNotFoundError) Error() string {
	if e.Path != "" && e.Path != e.Tool {
		return "executable not found: " + e.Tool + " (checked " + e.Path + ")"
	}

	if strings.ContainsRune(e.Tool, os.PathSeparator) {
		return "executable not found: " + e.Tool
	}

	return "executable not found in PATH: " + e.Tool
}
