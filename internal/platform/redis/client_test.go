// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package redis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/storeconsole/internal/platform/redis"
)

func TestParseOptions(t *testing.T) {
	t.Run("applies pool settings", func(t *testing.T) {
		options, err := redis.ParseOptions("redis://:secret@cache.internal:6380/2")
		require.NoError(t, err)

		assert.Equal(t, "cache.internal:6380", options.Addr)
		assert.Equal(t, 2, options.DB)
		assert.Equal(t, "secret", options.Password)
		assert.Equal(t, 4, options.PoolSize)
	})

	t.Run("rejects bad scheme", func(t *testing.T) {
		_, err := redis.ParseOptions("http://cache.internal")
		assert.Error(t, err)
	})
}
