package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreSetNXAndExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewLocalStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "k", "pending", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetNX(ctx, "k", "other", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", []byte("done"), time.Hour))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "done", got)

	now = now.Add(time.Hour)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, redis.Nil)
	assert.Zero(t, store.Len())
}

func TestLocalStoreDelAndKeys(t *testing.T) {
	store := NewLocalStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "a", "1", 0))
	require.NoError(t, store.Del(ctx, "a", "missing"))
	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, redis.Nil)

	assert.Equal(t, "motorshop:idem:clerk|POST|/api/v1/parts/p1/deduct:abc",
		store.IdempotencyKey("clerk|POST|/api/v1/parts/p1/deduct", "abc"))
}
