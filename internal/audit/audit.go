// Package audit writes the JSONL audit trail of hook invocations.
package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rogpeppe/go-internal/lockedfile"

	"github.com/smykla-skalski/desgate/internal/paths"
	"github.com/smykla-skalski/desgate/pkg/config"
	"github.com/smykla-skalski/desgate/pkg/logger"
)

const (
	auditFilePermissions = 0o600
	auditDirPermissions  = 0o700

	bytesPerMB = 1024 * 1024

	// maxBackups is how many rotated files are kept.
	maxBackups = 3

	// timestampLength is the length of the backup timestamp format (YYYYMMDD-HHMMSS).
	timestampLength = 15

	// timestampDashPos is the position of the dash in the timestamp format.
	timestampDashPos = 8

	// MaxCapture bounds captured standard error.
	MaxCapture = 1000
)

// Event names the kind of audit entry.
type Event string

const (
	EventHookInvoked     Event = "hook_invoked"
	EventHookCompleted   Event = "hook_completed"
	EventHookError       Event = "hook_error"
	EventProtocolAnomaly Event = "protocol_anomaly"
)

// Entry is one line of the audit log.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Event     Event     `json:"event"`

	Host      string `json:"host,omitempty"`
	HookEvent string `json:"hook_event,omitempty"`
	Command   string `json:"command,omitempty"`
	Tool      string `json:"tool,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Step      string `json:"step,omitempty"`

	Decision   string `json:"decision,omitempty"`
	Action     string `json:"action,omitempty"`
	Reason     string `json:"reason,omitempty"`
	ExitStatus *int   `json:"exit_status,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	SlowHook   bool   `json:"slow_hook,omitempty"`

	Error   string `json:"error,omitempty"`
	Stderr  string `json:"stderr,omitempty"`
	Anomaly string `json:"anomaly,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Recorder accepts audit entries. Implementations must not fail the caller.
type Recorder interface {
	Record(entry *Entry)
}

// Logger appends entries to a JSONL file with size-based rotation.
type Logger struct {
	mu      sync.Mutex
	config  *config.AuditConfig
	logger  logger.Logger
	logFile string
	now     func() time.Time
}

// Option configures the Logger.
type Option func(*Logger)

// WithLogger sets the diagnostic logger.
func WithLogger(log logger.Logger) Option {
	return func(a *Logger) {
		if log != nil {
			a.logger = log
		}
	}
}

// WithFile sets a custom audit log file path.
func WithFile(path string) Option {
	return func(a *Logger) {
		a.logFile = path
	}
}

// WithTimeFunc sets a custom time function for testing.
func WithTimeFunc(fn func() time.Time) Option {
	return func(a *Logger) {
		if fn != nil {
			a.now = fn
		}
	}
}

// New creates an audit Logger.
func New(cfg *config.AuditConfig, opts ...Option) *Logger {
	a := &Logger{
		config:  cfg,
		logger:  logger.NewNoOpLogger(),
		logFile: cfg.GetLogFile(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	a.logFile = paths.ExpandPathSilent(a.logFile)

	return a
}

// Record writes an entry and logs failures instead of returning them.
func (a *Logger) Record(entry *Entry) {
	if err := a.Log(entry); err != nil {
		a.logger.Error("failed to write audit entry",
			"event", string(entry.Event),
			"error", err.Error(),
		)
	}
}

// Log writes an entry, rotating the file first when it exceeds the size limit.
func (a *Logger) Log(entry *Entry) error {
	if entry == nil || !a.config.IsEnabled() {
		return nil
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = a.now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "marshaling audit entry")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.logFile), auditDirPermissions); err != nil {
		return errors.Wrap(err, "creating audit directory")
	}

	// Hook processes run concurrently, so rotation and append are serialized
	// across processes on a sibling lock file.
	unlock, err := lockedfile.MutexAt(a.lockFile()).Lock()
	if err != nil {
		return errors.Wrap(err, "locking audit file")
	}
	defer unlock()

	if err := a.rotateIfNeededLocked(); err != nil {
		a.logger.Error("failed to rotate audit log", "error", err.Error())
	}

	//nolint:gosec // G304: path is from config
	file, err := os.OpenFile(a.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, auditFilePermissions)
	if err != nil {
		return errors.Wrap(err, "opening audit file")
	}

	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			a.logger.Error("failed to close audit file", "error", closeErr.Error())
		}
	}()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, "writing audit entry")
	}

	return nil
}

// Read returns all entries in the current file. Malformed lines are skipped.
func (a *Logger) Read() ([]*Entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	file, err := os.Open(a.logFile) //nolint:gosec // G304: path is from config
	if err != nil {
		if os.IsNotExist(err) {
			return []*Entry{}, nil
		}

		return nil, errors.Wrap(err, "opening audit file")
	}

	defer func() {
		_ = file.Close()
	}()

	var entries []*Entry

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), bytesPerMB)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var entry Entry

		if err := json.Unmarshal(line, &entry); err != nil {
			a.logger.Debug("skipping malformed audit entry", "error", err.Error())

			continue
		}

		entries = append(entries, &entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scanning audit file")
	}

	return entries, nil
}

// Path returns the resolved log file path.
func (a *Logger) Path() string {
	return a.logFile
}

func (a *Logger) lockFile() string {
	return a.logFile + ".lock"
}

func (a *Logger) rotateIfNeededLocked() error {
	info, err := os.Stat(a.logFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return errors.Wrap(err, "checking audit file size")
	}

	if info.Size() < int64(a.config.GetMaxSizeMB())*bytesPerMB {
		return nil
	}

	timestamp := a.now().Format("20060102-150405")
	ext := filepath.Ext(a.logFile)
	backupPath := strings.TrimSuffix(a.logFile, ext) + "." + timestamp + ext

	if err := os.Rename(a.logFile, backupPath); err != nil {
		return errors.Wrap(err, "rotating audit file")
	}

	a.logger.Debug("rotated audit log", "to", backupPath)

	return a.cleanupBackupsLocked()
}

// cleanupBackupsLocked removes all but the newest maxBackups rotated files.
func (a *Logger) cleanupBackupsLocked() error {
	dir := filepath.Dir(a.logFile)
	ext := filepath.Ext(a.logFile)
	base := filepath.Base(strings.TrimSuffix(a.logFile, ext))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrap(err, "reading audit directory")
	}

	var backups []string

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, base+".") || !strings.HasSuffix(name, ext) {
			continue
		}

		middle := strings.TrimSuffix(strings.TrimPrefix(name, base+"."), ext)
		if len(middle) == timestampLength && middle[timestampDashPos] == '-' {
			backups = append(backups, filepath.Join(dir, name))
		}
	}

	slices.Sort(backups)
	slices.Reverse(backups)

	for i := maxBackups; i < len(backups); i++ {
		if err := os.Remove(backups[i]); err != nil {
			a.logger.Error("failed to remove old audit backup", "path", backups[i], "error", err.Error())
		}
	}

	return nil
}

// Nop discards entries.
type Nop struct{}

// Record does nothing.
func (Nop) Record(*Entry) {}
