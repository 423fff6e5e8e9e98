package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	redisclient "github.com/sooahkim/childcenter-chat/internal/infrastructure/clients/redis"
)

func TestRedisAdapter(t *testing.T) {
	ctx := context.Background()

	newAdapter := func(t *testing.T) (*RedisAdapter, *miniredis.Miniredis) {
		mr := miniredis.RunT(t)
		client := redisclient.NewClientFromAddr(mr.Addr())
		return NewRedisAdapter(client).(*RedisAdapter), mr
	}

	t.Run("round trips a value", func(t *testing.T) {
		adapter, _ := newAdapter(t)

		require.NoError(t, adapter.Set(ctx, "k", []byte("v"), 60))

		got, err := adapter.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)
	})

	t.Run("missing key is an error", func(t *testing.T) {
		adapter, _ := newAdapter(t)

		_, err := adapter.Get(ctx, "missing")
		assert.Error(t, err)
	})

	t.Run("value expires after the ttl", func(t *testing.T) {
		adapter, mr := newAdapter(t)

		require.NoError(t, adapter.Set(ctx, "k", []byte("v"), 60))
		mr.FastForward(61 * time.Second)

		_, err := adapter.Get(ctx, "k")
		assert.Error(t, err)
	})

	t.Run("delete removes the key", func(t *testing.T) {
		adapter, _ := newAdapter(t)

		require.NoError(t, adapter.Set(ctx, "k", []byte("v"), 60))
		require.NoError(t, adapter.Delete(ctx, "k"))

		_, err := adapter.Get(ctx, "k")
		assert.Error(t, err)
	})
}
