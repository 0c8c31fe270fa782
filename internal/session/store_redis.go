// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanBatch bounds how many keys one SCAN round trip returns during Clear.
const scanBatch = 100

// RedisStore implements [Store] on Redis, one key per entry, max-age as TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store namespacing its keys under prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

/*
Get retrieves an entry value.

Returns "" when the key is absent or its TTL elapsed.
*/
func (store *RedisStore) Get(ctx context.Context, name string) (string, error) {
	value, err := store.client.Get(ctx, store.prefix+name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis_session_get_failed: %w", err)
	}
	return value, nil
}

/*
Set stores an entry with maxAge as its TTL.
*/
func (store *RedisStore) Set(ctx context.Context, name, value string, maxAge time.Duration) error {
	if err := store.client.Set(ctx, store.prefix+name, value, maxAge).Err(); err != nil {
		return fmt.Errorf("redis_session_set_failed: %w", err)
	}
	return nil
}

/*
Delete removes an entry.
*/
func (store *RedisStore) Delete(ctx context.Context, name string) error {
	if err := store.client.Del(ctx, store.prefix+name).Err(); err != nil {
		return fmt.Errorf("redis_session_delete_failed: %w", err)
	}
	return nil
}

/*
Clear removes every key under the store prefix.

It walks the keyspace with SCAN rather than KEYS so a large shared Redis is not
blocked.
*/
func (store *RedisStore) Clear(ctx context.Context) error {
	iterator := store.client.Scan(ctx, 0, store.prefix+"*", scanBatch).Iterator()

	var keys []string
	for iterator.Next(ctx) {
		keys = append(keys, iterator.Val())
	}
	if err := iterator.Err(); err != nil {
		return fmt.Errorf("redis_session_scan_failed: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := store.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis_session_clear_failed: %w", err)
	}
	return nil
}
