// Package session tracks which DES steps each agent session has dispatched
// and which of them passed stop validation.
package session

import (
	"slices"
	"time"
)

// SessionInfo contains the step state of a single session.
type SessionInfo struct {
	// SessionID is the host's session identifier.
	SessionID string `json:"session_id"`

	// PendingSteps were dispatched but not yet validated at a stop.
	PendingSteps []string `json:"pending_steps,omitempty"`

	// ValidatedSteps passed stop validation.
	ValidatedSteps []string `json:"validated_steps,omitempty"`

	// StopCount is the number of stop events seen.
	StopCount int `json:"stop_count"`

	// LastActivity is when the session was last touched.
	LastActivity time.Time `json:"last_activity"`
}

func (s *SessionInfo) clone() *SessionInfo {
	c := *s
	c.PendingSteps = slices.Clone(s.PendingSteps)
	c.ValidatedSteps = slices.Clone(s.ValidatedSteps)

	return &c
}

// SessionState contains state for all tracked sessions.
type SessionState struct {
	// Sessions maps session ID to session info.
	Sessions map[string]*SessionInfo `json:"sessions"`

	// LastUpdated is when the state was last modified.
	LastUpdated time.Time `json:"last_updated"`
}

// NewSessionState creates a new empty session state.
func NewSessionState() *SessionState {
	return &SessionState{
		Sessions: make(map[string]*SessionInfo),
	}
}

// SortedIDs returns session IDs ordered by most recent activity first.
func (s *SessionState) SortedIDs() []string {
	ids := make([]string, 0, len(s.Sessions))
	for id := range s.Sessions {
		ids = append(ids, id)
	}

	slices.SortFunc(ids, func(a, b string) int {
		return s.Sessions[b].LastActivity.Compare(s.Sessions[a].LastActivity)
	})

	return ids
}
