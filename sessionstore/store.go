// Package sessionstore provides per-session triage conversation state with
// transparent expiry.
//
// A session tracks progress through the fixed question/diagnosis flow. State
// is replaced wholesale on every update (last-writer-wins); stores hand out
// deep copies so callers can never alias stored state. A get-then-update on
// the same session ID from concurrent callers remains last-writer-wins.
package sessionstore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionID is used when a caller supplies no session identifier.
const DefaultSessionID = "default"

// DefaultTTL is the inactivity window after which a session expires.
const DefaultTTL = 24 * time.Hour

// SessionState holds the triage flow state for one session.
type SessionState struct {
	QuestionNumber int       `json:"question_number"` // 0 means awaiting the initial symptom
	IsComplete     bool      `json:"is_complete"`     // true once a diagnosis was produced
	InitialSymptom string    `json:"initial_symptom"` // set when the first message is classified
	Answers        []string  `json:"answers"`         // one entry per follow-up turn
	CreatedAt      time.Time `json:"created_at"`
	LastUpdatedAt  time.Time `json:"last_updated"`
}

// NewSessionState creates a fresh session state.
func NewSessionState() *SessionState {
	now := time.Now()
	return &SessionState{
		QuestionNumber: 0,
		IsComplete:     false,
		InitialSymptom: "",
		Answers:        []string{},
		CreatedAt:      now,
		LastUpdatedAt:  now,
	}
}

// Clone returns a deep copy of the state.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Answers = make([]string, len(s.Answers))
	copy(cp.Answers, s.Answers)
	return &cp
}

// ExpiredAt reports whether the state has passed its inactivity window at
// the given instant. A zero last-updated timestamp counts as expired.
func (s *SessionState) ExpiredAt(now time.Time, ttl time.Duration) bool {
	if s.LastUpdatedAt.IsZero() {
		return true
	}
	return now.After(s.LastUpdatedAt.Add(ttl))
}

// NewSessionID returns a fresh opaque session identifier for callers that
// do not supply their own.
func NewSessionID() string {
	return uuid.NewString()
}

// Store maps session identifiers to SessionState, transparently replacing
// expired state.
type Store interface {
	// Get returns the state for the session, creating a fresh one if the
	// session is absent or expired. An empty ID maps to DefaultSessionID.
	Get(ctx context.Context, sessionID string) (*SessionState, error)

	// Update replaces the stored state wholesale with a copy of newState
	// and stamps its last-updated time. Last-writer-wins; no merging.
	Update(ctx context.Context, sessionID string, newState *SessionState) error

	// Reset force-overwrites the session with a fresh state regardless of
	// expiry and returns a copy of it.
	Reset(ctx context.Context, sessionID string) (*SessionState, error)

	// ListActive returns all non-expired sessions. It does not mutate.
	ListActive(ctx context.Context) (map[string]*SessionState, error)

	// SweepExpired deletes all currently-expired sessions and returns how
	// many were removed.
	SweepExpired(ctx context.Context) (int, error)
}

// normalizeID maps an empty session ID to the default session.
func normalizeID(sessionID string) string {
	if sessionID == "" {
		return DefaultSessionID
	}
	return sessionID
}
