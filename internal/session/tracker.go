package session

import (
	"slices"
	"time"

	"github.com/smykla-skalski/desgate/internal/paths"
	"github.com/smykla-skalski/desgate/pkg/config"
	"github.com/smykla-skalski/desgate/pkg/logger"
)

// File permission constants.
const (
	// stateFilePermissions is the permission mode for the state file.
	stateFilePermissions = 0o600

	// stateDirPermissions is the permission mode for the state directory.
	stateDirPermissions = 0o700
)

// Tracker records DES steps per session. Every operation reads and writes the
// state file under an exclusive lock, so concurrent hook processes see each
// other's updates.
type Tracker struct {
	config *config.SessionConfig
	logger logger.Logger

	// stateFile is the resolved path for state persistence.
	stateFile string

	// maxSessionAge is the maximum age before a session is expired.
	maxSessionAge time.Duration

	// now is a function that returns the current time.
	// Used for testing to control time.
	now func() time.Time
}

// TrackerOption configures the Tracker.
type TrackerOption func(*Tracker)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) TrackerOption {
	return func(t *Tracker) {
		if log != nil {
			t.logger = log
		}
	}
}

// WithStateFile sets a custom state file path.
func WithStateFile(path string) TrackerOption {
	return func(t *Tracker) {
		if path != "" {
			t.stateFile = path
		}
	}
}

// WithTimeFunc sets a custom time function for testing.
func WithTimeFunc(fn func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if fn != nil {
			t.now = fn
		}
	}
}

// WithMaxSessionAge sets a custom maximum session age.
func WithMaxSessionAge(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.maxSessionAge = d
		}
	}
}

// NewTracker creates a new session tracker.
func NewTracker(cfg *config.SessionConfig, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		config:        cfg,
		logger:        logger.NewNoOpLogger(),
		stateFile:     cfg.GetStateFile(),
		maxSessionAge: cfg.GetMaxSessionAge(),
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.stateFile = paths.ExpandPathSilent(t.stateFile)

	return t
}

// IsEnabled returns true if session tracking is enabled.
func (t *Tracker) IsEnabled() bool {
	if t == nil {
		return false
	}

	return t.config.IsEnabled()
}

// StateFile returns the resolved state file path.
func (t *Tracker) StateFile() string {
	return t.stateFile
}

// RecordPending adds step to the session's pending steps. Already validated
// steps are moved back to pending: a re-dispatch needs validating again.
func (t *Tracker) RecordPending(sessionID, step string) error {
	if sessionID == "" || step == "" {
		return nil
	}

	return t.update(func(state *SessionState) {
		info := t.sessionLocked(state, sessionID)

		info.ValidatedSteps = slices.DeleteFunc(info.ValidatedSteps, func(s string) bool { return s == step })

		if !slices.Contains(info.PendingSteps, step) {
			info.PendingSteps = append(info.PendingSteps, step)
		}

		t.logger.Debug("step pending",
			"session_id", sessionID,
			"step", step,
		)
	})
}

// MarkValidated moves all pending steps of a session to validated and
// returns the steps moved.
func (t *Tracker) MarkValidated(sessionID string) ([]string, error) {
	if sessionID == "" {
		return nil, nil
	}

	var moved []string

	err := t.update(func(state *SessionState) {
		info := t.sessionLocked(state, sessionID)
		info.StopCount++

		moved = info.PendingSteps

		for _, step := range moved {
			if !slices.Contains(info.ValidatedSteps, step) {
				info.ValidatedSteps = append(info.ValidatedSteps, step)
			}
		}

		info.PendingSteps = nil

		t.logger.Debug("steps validated",
			"session_id", sessionID,
			"steps", moved,
		)
	})

	return moved, err
}

// Get returns a copy of a session's info, or nil when it is unknown or expired.
func (t *Tracker) Get(sessionID string) (*SessionInfo, error) {
	state, err := t.read()
	if err != nil {
		return nil, err
	}

	info, ok := state.Sessions[sessionID]
	if !ok || t.isExpired(info) {
		return nil, nil
	}

	return info.clone(), nil
}

// List returns all live sessions.
func (t *Tracker) List() (*SessionState, error) {
	state, err := t.read()
	if err != nil {
		return nil, err
	}

	for id, info := range state.Sessions {
		if t.isExpired(info) {
			delete(state.Sessions, id)
		}
	}

	return state, nil
}

// Clear removes one session, or every session when sessionID is empty.
// Returns the number of sessions removed.
func (t *Tracker) Clear(sessionID string) (int, error) {
	var removed int

	err := t.update(func(state *SessionState) {
		if sessionID == "" {
			removed = len(state.Sessions)
			state.Sessions = make(map[string]*SessionInfo)

			return
		}

		if _, ok := state.Sessions[sessionID]; ok {
			delete(state.Sessions, sessionID)

			removed = 1
		}
	})

	return removed, err
}

// sessionLocked returns the session entry, creating or resetting it as needed.
func (t *Tracker) sessionLocked(state *SessionState, sessionID string) *SessionInfo {
	now := t.now()

	info, ok := state.Sessions[sessionID]
	if !ok || t.isExpired(info) {
		info = &SessionInfo{SessionID: sessionID}
		state.Sessions[sessionID] = info
	}

	info.LastActivity = now

	return info
}

// isExpired checks if a session has expired based on maxSessionAge. A nil
// entry counts as expired.
func (t *Tracker) isExpired(info *SessionInfo) bool {
	if info == nil {
		return true
	}

	if t.maxSessionAge <= 0 {
		return false
	}

	return t.now().Sub(info.LastActivity) > t.maxSessionAge
}
