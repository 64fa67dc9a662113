package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := New(context.Background(), Options{Addr: mr.Addr(), Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return mr, s
}

func TestNew_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), Options{Addr: addr, Timeout: 200 * time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), addr)
}

func TestSetGet(t *testing.T) {
	_, s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "discovery:blackbox", "[]", time.Minute))

	got, err := s.Get(ctx, "discovery:blackbox")
	require.NoError(t, err)
	assert.Equal(t, "[]", got)
}

func TestGet_Miss(t *testing.T) {
	_, s := setupStore(t)

	_, err := s.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrCacheMiss), "got %v, want ErrCacheMiss", err)
}

func TestSet_Expires(t *testing.T) {
	mr, s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v", 30*time.Second))
	mr.FastForward(31 * time.Second)

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSetNX(t *testing.T) {
	mr, s := setupStore(t)
	ctx := context.Background()

	ok, err := s.SetNX(ctx, "alert:a", "1", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "first SetNX should store")

	ok, err = s.SetNX(ctx, "alert:a", "1", 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second SetNX should be rejected")

	mr.FastForward(5*time.Minute + time.Second)

	ok, err = s.SetNX(ctx, "alert:a", "1", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "SetNX after expiry should store")
}

func TestDel(t *testing.T) {
	mr, s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v", 0))
	require.NoError(t, s.Del(ctx, "k"))
	assert.False(t, mr.Exists("k"))

	// deleting a missing key is not an error
	require.NoError(t, s.Del(ctx, "k"))
}

func TestCompareAndDelete(t *testing.T) {
	mr, s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "alert:k", "token-b", time.Minute))

	deleted, err := s.CompareAndDelete(ctx, "alert:k", "token-a")
	require.NoError(t, err)
	assert.False(t, deleted, "a stale value must not delete the key")
	assert.True(t, mr.Exists("alert:k"))

	deleted, err = s.CompareAndDelete(ctx, "alert:k", "token-b")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, mr.Exists("alert:k"))

	deleted, err = s.CompareAndDelete(ctx, "alert:k", "token-b")
	require.NoError(t, err)
	assert.False(t, deleted, "missing key")
}

func TestTTL(t *testing.T) {
	_, s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
	d, err := s.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)

	_, err = s.TTL(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestOperations_FailWhenServerDown(t *testing.T) {
	mr, s := setupStore(t)
	mr.Close()
	ctx := context.Background()

	_, err := s.Get(ctx, "k")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCacheMiss), "connection errors must not look like a miss")

	assert.Error(t, s.Ping(ctx))
}

func TestDial_ConnectsLazily(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	s := Dial(Options{Addr: addr, Timeout: 200 * time.Millisecond})
	defer s.Close()
	assert.Error(t, s.Ping(context.Background()))

	require.NoError(t, mr.Restart())
	assert.NoError(t, s.Ping(context.Background()))
}
