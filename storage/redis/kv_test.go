package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestKV(t *testing.T) (*KV, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewKV(rdb), mr
}

func TestKVRoundTripWithTTL(t *testing.T) {
	ctx := context.Background()
	kv, mr := newTestKV(t)

	require.NoError(t, kv.Set(ctx, "session:abc", []byte(`{"id":"u1","role":"chef"}`), 7*24*time.Hour))
	require.Equal(t, 7*24*time.Hour, mr.TTL("session:abc"))

	b, ok, err := kv.Get(ctx, "session:abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"id":"u1","role":"chef"}`, string(b))

	mr.FastForward(7 * 24 * time.Hour)
	_, ok, err = kv.Get(ctx, "session:abc")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKVMissingKey(t *testing.T) {
	kv, _ := newTestKV(t)
	b, ok, err := kv.Get(context.Background(), "session:none")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, b)
}

func TestKVDelAndPrefix(t *testing.T) {
	ctx := context.Background()
	kv, mr := newTestKV(t)
	kv.WithPrefix("tables:")

	require.NoError(t, kv.Set(ctx, "session:x", []byte("1"), time.Minute))
	require.True(t, mr.Exists("tables:session:x"))

	require.NoError(t, kv.Del(ctx, "session:x"))
	require.False(t, mr.Exists("tables:session:x"))
	require.NoError(t, kv.Ping(ctx))
}

func TestKVStoreError(t *testing.T) {
	kv, mr := newTestKV(t)
	mr.SetError("LOADING")
	_, _, err := kv.Get(context.Background(), "session:x")
	require.Error(t, err)
}
