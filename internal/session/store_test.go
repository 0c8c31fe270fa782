// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/storeconsole/internal/platform/redis"
	"github.com/taibuivan/storeconsole/internal/session"
	"github.com/taibuivan/storeconsole/pkg/uuidv7"
)

// storeContract exercises behaviour every Store must share. expire moves the
// store past an entry's max-age.
func storeContract(t *testing.T, store session.Store, expire func(time.Duration)) {
	ctx := context.Background()

	t.Run("missing entry reads empty", func(t *testing.T) {
		value, err := store.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, value)
	})

	t.Run("last writer wins", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "access_token", "a1", time.Minute))
		require.NoError(t, store.Set(ctx, "access_token", "a2", time.Minute))

		value, err := store.Get(ctx, "access_token")
		require.NoError(t, err)
		assert.Equal(t, "a2", value)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "refresh_token", "r1", time.Hour))
		require.NoError(t, store.Delete(ctx, "refresh_token"))
		require.NoError(t, store.Delete(ctx, "refresh_token"), "deleting twice is fine")

		value, err := store.Get(ctx, "refresh_token")
		require.NoError(t, err)
		assert.Empty(t, value)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "a", "1", time.Hour))
		require.NoError(t, store.Set(ctx, "b", "2", time.Hour))
		require.NoError(t, store.Clear(ctx))

		for _, name := range []string{"a", "b", "access_token"} {
			value, err := store.Get(ctx, name)
			require.NoError(t, err)
			assert.Empty(t, value, name)
		}
	})

	if expire == nil {
		return
	}
	t.Run("max-age", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "short", "s", time.Minute))
		require.NoError(t, store.Set(ctx, "long", "l", time.Hour))

		expire(time.Minute)

		short, err := store.Get(ctx, "short")
		require.NoError(t, err)
		assert.Empty(t, short)

		long, err := store.Get(ctx, "long")
		require.NoError(t, err)
		assert.Equal(t, "l", long)
	})
}

func TestMemoryStore(t *testing.T) {
	clock := newClock()
	storeContract(t, session.NewMemoryStore(clock.Now), clock.Advance)
}

func TestFileStore(t *testing.T) {
	clock := newClock()
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	storeContract(t, session.NewFileStore(path, clock.Now), clock.Advance)

	t.Run("owner-only permissions", func(t *testing.T) {
		store := session.NewFileStore(path, clock.Now)
		require.NoError(t, store.Set(context.Background(), "access_token", "a1", time.Minute))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("shared between instances", func(t *testing.T) {
		writer := session.NewFileStore(path, clock.Now)
		reader := session.NewFileStore(path, clock.Now)

		require.NoError(t, writer.Set(context.Background(), "refresh_token", "r9", time.Hour))

		value, err := reader.Get(context.Background(), "refresh_token")
		require.NoError(t, err)
		assert.Equal(t, "r9", value)
	})

	t.Run("corrupt file", func(t *testing.T) {
		corrupt := filepath.Join(t.TempDir(), "session.json")
		require.NoError(t, os.WriteFile(corrupt, []byte("{"), 0o600))

		_, err := session.NewFileStore(corrupt, clock.Now).Get(context.Background(), "access_token")
		assert.Error(t, err)
	})
}

func TestRedisStore(t *testing.T) {
	redisURL := os.Getenv("CONSOLE_TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("CONSOLE_TEST_REDIS_URL not set; skipping Redis session store test")
	}

	client, err := redis.NewClient(context.Background(), redisURL, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	prefix := "console:test:" + uuidv7.New() + ":"
	store := session.NewRedisStore(client, prefix)
	t.Cleanup(func() { _ = store.Clear(context.Background()) })

	storeContract(t, store, nil)

	t.Run("max-age becomes TTL", func(t *testing.T) {
		require.NoError(t, store.Set(context.Background(), "access_token", "a1", time.Minute))

		ttl, err := client.TTL(context.Background(), prefix+"access_token").Result()
		require.NoError(t, err)
		assert.InDelta(t, time.Minute.Seconds(), ttl.Seconds(), 2)
	})

	t.Run("clear leaves other namespaces alone", func(t *testing.T) {
		foreign := "console:test:foreign:" + uuidv7.New()
		require.NoError(t, client.Set(context.Background(), foreign, "x", time.Minute).Err())
		t.Cleanup(func() { client.Del(context.Background(), foreign) })

		require.NoError(t, store.Clear(context.Background()))

		_, err := client.Get(context.Background(), foreign).Result()
		assert.NotErrorIs(t, err, goredis.Nil)
	})
}
