package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Headline string   `json:"headline"`
	Skills   []string `json:"skills"`
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisCache_RoundTrip(t *testing.T) {
	mr, rdb := newTestRedis(t)
	c := NewRedisCache(rdb, "")
	ctx := context.Background()

	var got payload
	hit, err := c.GetJSON(ctx, "resume:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.SetJSON(ctx, "resume:1", payload{Headline: "Go dev", Skills: []string{"go"}}, time.Minute))
	assert.True(t, mr.Exists(DefaultPrefix+"resume:1"))

	hit, err = c.GetJSON(ctx, "resume:1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Go dev", got.Headline)

	mr.FastForward(2 * time.Minute)
	hit, err = c.GetJSON(ctx, "resume:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCache_CorruptEntryIsMiss(t *testing.T) {
	mr, rdb := newTestRedis(t)
	c := NewRedisCache(rdb, "t:")
	require.NoError(t, mr.Set("t:k", "{not json"))

	var got payload
	hit, err := c.GetJSON(context.Background(), "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, mr.Exists("t:k"))
}

func TestRedisCache_Del(t *testing.T) {
	mr, rdb := newTestRedis(t)
	c := NewRedisCache(rdb, "t:")
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "a", 1, 0))
	require.NoError(t, c.SetJSON(ctx, "b", 2, 0))
	require.NoError(t, c.Del(ctx, "a", "b"))
	require.NoError(t, c.Del(ctx))
	assert.False(t, mr.Exists("t:a"))
	assert.False(t, mr.Exists("t:b"))
}
