package repository

import (
	"context"
	"ctchen222/car-dealership/internal/session"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := context.Background()
	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	rdb := redis.NewClient(opts)
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func TestSessionRepository_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	rdb := newRedisClient(t)
	store := NewSessionRepository(rdb)

	now := time.Now().UTC().Truncate(time.Second)
	s := &session.Session{
		ID:        "abc",
		UserID:    7,
		Username:  "alice",
		Flashes:   []session.Flash{{Kind: session.FlashSuccess, Text: "hello"}},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, store.Save(ctx, s))

	ttl, err := rdb.TTL(ctx, "session:abc").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, s.Flashes, got.Flashes)
	assert.True(t, got.ExpiresAt.Equal(s.ExpiresAt))

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Get(ctx, "abc")
	assert.ErrorIs(t, err, session.ErrNotFound)

	// Deleting twice is fine.
	assert.NoError(t, store.Delete(ctx, "abc"))
}

func TestSessionRepository_GetUnknown(t *testing.T) {
	store := NewSessionRepository(newRedisClient(t))

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSessionRepository_SaveExpiredRemovesKey(t *testing.T) {
	ctx := context.Background()
	rdb := newRedisClient(t)
	store := NewSessionRepository(rdb)

	now := time.Now()
	require.NoError(t, store.Save(ctx, &session.Session{ID: "x", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.Save(ctx, &session.Session{ID: "x", CreatedAt: now, ExpiresAt: now.Add(-time.Second)}))

	n, err := rdb.Exists(ctx, "session:x").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSessionRepository_GetTreatsStaleRecordAsMissing(t *testing.T) {
	ctx := context.Background()
	rdb := newRedisClient(t)

	now := time.Now()
	writer := NewSessionRepository(rdb)
	require.NoError(t, writer.Save(ctx, &session.Session{ID: "old", CreatedAt: now, ExpiresAt: now.Add(time.Minute)}))

	// A reader whose clock is past the expiry ignores the record even if
	// Redis has not evicted it yet.
	reader := &redisSessionRepository{rdb: rdb, now: func() time.Time { return now.Add(2 * time.Minute) }}
	_, err := reader.Get(ctx, "old")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSessionRepository_CorruptPayload(t *testing.T) {
	ctx := context.Background()
	rdb := newRedisClient(t)
	require.NoError(t, rdb.Set(ctx, "session:bad", "not-json", time.Minute).Err())

	_, err := NewSessionRepository(rdb).Get(ctx, "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, session.ErrNotFound)
}
