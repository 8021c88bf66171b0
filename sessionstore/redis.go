package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/careloop/triagekit/metrics/prometheus"
)

// RedisStore provides a Redis-backed implementation of the Store interface.
// It uses JSON serialization for state storage and sets a key TTL matching
// the inactivity window, so Redis expires idle sessions on its own. The
// timestamp check in Get still applies, covering keys written without TTL.
// Suitable for multi-instance deployments.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisTTL sets the inactivity window. Default is 24 hours.
// Set to 0 to disable Redis key expiration.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithRedisPrefix sets the key prefix. Default is "triagekit".
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a new Redis-backed session store.
//
// Example:
//
//	store := NewRedisStore(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    WithRedisTTL(24 * time.Hour),
//	)
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		ttl:    DefaultTTL,
		prefix: "triagekit",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Get returns the session state, creating a fresh one when the session is
// absent, unreadable, or expired.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*SessionState, error) {
	sessionID = normalizeID(sessionID)
	key := s.sessionKey(sessionID)

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return s.storeFresh(ctx, key)
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var state SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		// Unreadable state counts as expired and is replaced.
		return s.storeFresh(ctx, key)
	}
	if s.ttl > 0 && state.ExpiredAt(time.Now(), s.ttl) {
		return s.storeFresh(ctx, key)
	}

	return &state, nil
}

// Update replaces the stored state wholesale with a copy of newState and
// stamps its last-updated time.
func (s *RedisStore) Update(ctx context.Context, sessionID string, newState *SessionState) error {
	sessionID = normalizeID(sessionID)

	stateCopy := newState.Clone()
	stateCopy.LastUpdatedAt = time.Now()

	return s.set(ctx, s.sessionKey(sessionID), stateCopy)
}

// Reset force-overwrites the session with a fresh state.
func (s *RedisStore) Reset(ctx context.Context, sessionID string) (*SessionState, error) {
	sessionID = normalizeID(sessionID)
	return s.storeFresh(ctx, s.sessionKey(sessionID))
}

// ListActive returns all non-expired sessions.
// Uses SCAN plus a pipelined GET to fetch states in a single round-trip.
func (s *RedisStore) ListActive(ctx context.Context) (map[string]*SessionState, error) {
	ids, err := s.scanSessionIDs(ctx)
	if err != nil {
		return nil, err
	}

	states, err := s.pipelinedLoadStates(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	active := make(map[string]*SessionState)
	for id, state := range states {
		if s.ttl == 0 || !state.ExpiredAt(now, s.ttl) {
			active[id] = state
		}
	}
	return active, nil
}

// SweepExpired deletes all currently-expired sessions and returns the count.
// Keys written with a TTL expire on their own; this also removes entries
// whose stored timestamp is stale or unreadable.
func (s *RedisStore) SweepExpired(ctx context.Context) (int, error) {
	ids, err := s.scanSessionIDs(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	removed := 0
	for _, id := range ids {
		key := s.sessionKey(id)
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return removed, fmt.Errorf("redis get failed: %w", err)
		}

		var state SessionState
		expired := json.Unmarshal(data, &state) != nil ||
			(s.ttl > 0 && state.ExpiredAt(now, s.ttl))
		if !expired {
			continue
		}

		if err := s.client.Del(ctx, key).Err(); err != nil {
			return removed, fmt.Errorf("redis del failed: %w", err)
		}
		removed++
	}
	prometheus.RecordSessionsSwept(removed)
	return removed, nil
}

// storeFresh writes a fresh state under key and returns it.
func (s *RedisStore) storeFresh(ctx context.Context, key string) (*SessionState, error) {
	state := NewSessionState()
	if err := s.set(ctx, key, state); err != nil {
		return nil, err
	}
	return state, nil
}

// set serializes and writes a state with the configured TTL.
func (s *RedisStore) set(ctx context.Context, key string, state *SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// scanSessionIDs scans all session keys in Redis.
func (s *RedisStore) scanSessionIDs(ctx context.Context) ([]string, error) {
	var ids []string
	pattern := s.sessionKey("*")
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if id := s.extractIDFromKey(iter.Val()); id != "" {
			ids = append(ids, id)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan failed: %w", err)
	}
	return ids, nil
}

// pipelinedLoadStates fetches multiple session states using a single
// pipelined GET. Keys that vanished or fail to parse are skipped.
func (s *RedisStore) pipelinedLoadStates(ctx context.Context, ids []string) (map[string]*SessionState, error) {
	states := make(map[string]*SessionState, len(ids))
	if len(ids) == 0 {
		return states, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.sessionKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis pipeline failed: %w", err)
	}

	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			continue
		}
		var state SessionState
		if err := json.Unmarshal(data, &state); err != nil {
			continue
		}
		states[ids[i]] = &state
	}
	return states, nil
}

// sessionKey generates the Redis key for a session.
func (s *RedisStore) sessionKey(id string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, id)
}

// extractIDFromKey extracts the session ID from a Redis key.
func (s *RedisStore) extractIDFromKey(key string) string {
	prefix := s.sessionKey("")
	if strings.HasPrefix(key, prefix) {
		return strings.TrimPrefix(key, prefix)
	}
	return ""
}
