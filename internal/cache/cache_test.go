package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewFromClient(rdb, zerolog.Nop()), mr
}

func TestClient_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	assert.Nil(t, c.Get(ctx, "missing"))

	c.Set(ctx, "k", []byte("v"), time.Minute)
	assert.Equal(t, []byte("v"), c.Get(ctx, "k"))

	mr.FastForward(2 * time.Minute)
	assert.Nil(t, c.Get(ctx, "k"))

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)
	c.Delete(ctx, "a", "b")
	assert.False(t, mr.Exists("a"))
	assert.False(t, mr.Exists("b"))
}

func TestClient_JSON(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	type item struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}

	c.SetJSON(ctx, "item:1", item{ID: 1, Name: "phone"}, time.Minute)

	var got item
	require.True(t, c.GetJSON(ctx, "item:1", &got))
	assert.Equal(t, item{ID: 1, Name: "phone"}, got)

	require.NoError(t, mr.Set("item:2", "{not json"))
	assert.False(t, c.GetJSON(ctx, "item:2", &got))
}

func TestClient_FailSafeWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	mr.Close()

	assert.NotPanics(t, func() {
		c.Set(ctx, "k", []byte("v"), time.Minute)
		c.Delete(ctx, "k")
	})
	assert.Nil(t, c.Get(ctx, "k"))
	assert.Error(t, c.Ping(ctx))
}

func TestClient_NilIsNoop(t *testing.T) {
	ctx := context.Background()
	var c *Client

	assert.Nil(t, c.Get(ctx, "k"))
	var dst map[string]any
	assert.False(t, c.GetJSON(ctx, "k", &dst))
	assert.NotPanics(t, func() {
		c.Set(ctx, "k", []byte("v"), time.Minute)
		c.SetJSON(ctx, "k", 1, time.Minute)
		c.Delete(ctx, "k")
	})
	assert.NoError(t, c.Close())
}
