package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/careloop/triagekit/metrics/prometheus"
)

// MemoryStore provides an in-memory implementation of the Store interface.
// It is thread-safe and suitable for development, testing, and
// single-instance deployments. For distributed systems, use RedisStore.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*SessionState
	ttl      time.Duration

	// now is swappable for expiry tests.
	now func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryTTL sets the inactivity window. Default is 24 hours.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*SessionState),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the session state, creating a fresh one when the session is
// absent or expired. Returns a deep copy to prevent external mutations.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*SessionState, error) {
	sessionID = normalizeID(sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()

	state, exists := s.sessions[sessionID]
	if !exists || state.ExpiredAt(s.now(), s.ttl) {
		state = NewSessionState()
		s.sessions[sessionID] = state
	}

	return state.Clone(), nil
}

// Update replaces the stored state wholesale with a copy of newState and
// stamps its last-updated time.
func (s *MemoryStore) Update(ctx context.Context, sessionID string, newState *SessionState) error {
	sessionID = normalizeID(sessionID)

	stateCopy := newState.Clone()
	stateCopy.LastUpdatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = stateCopy
	return nil
}

// Reset force-overwrites the session with a fresh state.
func (s *MemoryStore) Reset(ctx context.Context, sessionID string) (*SessionState, error) {
	sessionID = normalizeID(sessionID)

	state := NewSessionState()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = state
	return state.Clone(), nil
}

// ListActive returns deep copies of all non-expired sessions.
func (s *MemoryStore) ListActive(ctx context.Context) (map[string]*SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	active := make(map[string]*SessionState)
	for id, state := range s.sessions {
		if !state.ExpiredAt(now, s.ttl) {
			active[id] = state.Clone()
		}
	}
	return active, nil
}

// SweepExpired deletes all currently-expired sessions and returns the count.
func (s *MemoryStore) SweepExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, state := range s.sessions {
		if state.ExpiredAt(now, s.ttl) {
			delete(s.sessions, id)
			removed++
		}
	}
	prometheus.RecordSessionsSwept(removed)
	return removed, nil
}
