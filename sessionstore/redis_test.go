package sessionstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, opts...), mr
}

func TestRedisStoreGetCreatesFreshSession(t *testing.T) {
	store, mr := newTestRedisStore(t)

	state, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, state.QuestionNumber)
	assert.False(t, state.IsComplete)

	// The fresh state is written back under the prefixed key.
	assert.True(t, mr.Exists("triagekit:session:s1"))
}

func TestRedisStoreUpdateAndGetRoundTrip(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	state := NewSessionState()
	state.QuestionNumber = 2
	state.InitialSymptom = "headache"
	state.Answers = []string{"two days"}
	require.NoError(t, store.Update(ctx, "s1", state))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.QuestionNumber)
	assert.Equal(t, "headache", got.InitialSymptom)
	assert.Equal(t, []string{"two days"}, got.Answers)
	assert.False(t, got.LastUpdatedAt.IsZero())
}

func TestRedisStoreEmptyIDMapsToDefault(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	state := NewSessionState()
	state.InitialSymptom = "fever"
	require.NoError(t, store.Update(ctx, "", state))

	got, err := store.Get(ctx, DefaultSessionID)
	require.NoError(t, err)
	assert.Equal(t, "fever", got.InitialSymptom)
}

func TestRedisStoreSetsKeyTTL(t *testing.T) {
	store, mr := newTestRedisStore(t)

	require.NoError(t, store.Update(context.Background(), "s1", NewSessionState()))

	ttl := mr.TTL("triagekit:session:s1")
	assert.Greater(t, ttl, 23*time.Hour)
	assert.LessOrEqual(t, ttl, 24*time.Hour)
}

func TestRedisStoreUnreadableStateReplaced(t *testing.T) {
	store, mr := newTestRedisStore(t)

	require.NoError(t, mr.Set("triagekit:session:s1", "not json"))

	got, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.QuestionNumber)
}

func TestRedisStoreStaleTimestampReplaced(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	stale := NewSessionState()
	stale.QuestionNumber = 3
	stale.LastUpdatedAt = time.Now().Add(-25 * time.Hour)
	stale.CreatedAt = stale.LastUpdatedAt

	// Write directly so Update does not re-stamp the timestamp.
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, mr.Set("triagekit:session:s1", string(data)))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.QuestionNumber)
}

func TestRedisStoreReset(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	state := NewSessionState()
	state.QuestionNumber = 4
	state.IsComplete = true
	require.NoError(t, store.Update(ctx, "s1", state))

	fresh, err := store.Reset(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.QuestionNumber)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, got.IsComplete)
}

func TestRedisStoreListActive(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, "fresh1", NewSessionState()))
	require.NoError(t, store.Update(ctx, "fresh2", NewSessionState()))

	stale := NewSessionState()
	stale.LastUpdatedAt = time.Now().Add(-25 * time.Hour)
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, mr.Set("triagekit:session:stale", string(data)))

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
	assert.Contains(t, active, "fresh1")
	assert.Contains(t, active, "fresh2")
	assert.NotContains(t, active, "stale")
}

func TestRedisStoreSweepExpired(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, "fresh", NewSessionState()))

	stale := NewSessionState()
	stale.LastUpdatedAt = time.Now().Add(-25 * time.Hour)
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, mr.Set("triagekit:session:stale", string(data)))
	require.NoError(t, mr.Set("triagekit:session:garbage", "not json"))

	removed, err := store.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.True(t, mr.Exists("triagekit:session:fresh"))
	assert.False(t, mr.Exists("triagekit:session:stale"))
	assert.False(t, mr.Exists("triagekit:session:garbage"))
}

func TestRedisStoreCustomPrefix(t *testing.T) {
	store, mr := newTestRedisStore(t, WithRedisPrefix("careloop"))

	require.NoError(t, store.Update(context.Background(), "s1", NewSessionState()))
	assert.True(t, mr.Exists("careloop:session:s1"))
}
