package session

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
)

// read loads the state under a shared lock. A missing or corrupt file is an
// empty state.
func (t *Tracker) read() (*SessionState, error) {
	data, err := lockedfile.Read(t.stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return NewSessionState(), nil
		}

		return nil, errors.Wrap(err, "reading state file")
	}

	return t.decode(data), nil
}

// update applies fn to the state under an exclusive lock, prunes expired
// sessions and writes the result back.
func (t *Tracker) update(fn func(*SessionState)) error {
	if err := t.ensureFile(); err != nil {
		return err
	}

	err := lockedfile.Transform(t.stateFile, func(data []byte) ([]byte, error) {
		state := t.decode(data)

		fn(state)

		for id, info := range state.Sessions {
			if t.isExpired(info) {
				delete(state.Sessions, id)

				t.logger.Debug("expired session removed", "session_id", id)
			}
		}

		state.LastUpdated = t.now()

		return json.MarshalIndent(state, "", "  ")
	})
	if err != nil {
		return errors.Wrap(err, "updating state file")
	}

	return nil
}

func (t *Tracker) decode(data []byte) *SessionState {
	state := NewSessionState()

	if len(data) == 0 {
		return state
	}

	if err := json.Unmarshal(data, state); err != nil {
		t.logger.Debug("failed to parse state file, using fresh state",
			"path", t.stateFile,
			"error", err.Error(),
		)

		return NewSessionState()
	}

	if state.Sessions == nil {
		state.Sessions = make(map[string]*SessionInfo)
	}

	for id, info := range state.Sessions {
		if info == nil {
			delete(state.Sessions, id)

			t.logger.Debug("dropping empty session entry", "session_id", id)
		}
	}

	return state
}

// ensureFile creates the state file with owner-only permissions.
func (t *Tracker) ensureFile() error {
	if err := os.MkdirAll(filepath.Dir(t.stateFile), stateDirPermissions); err != nil {
		return errors.Wrap(err, "creating state directory")
	}

	//nolint:gosec // G304: path is from config
	f, err := os.OpenFile(t.stateFile, os.O_CREATE|os.O_RDONLY, stateFilePermissions)
	if err != nil {
		return errors.Wrap(err, "creating state file")
	}

	return f.Close()
}
