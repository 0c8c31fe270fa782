// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"time"
)

// Store is the durable key/value storage behind a session.
//
// It behaves like a browser cookie jar: every entry has a max-age after which
// it reads as absent. The store is the single source of truth for tokens; the
// session never caches them.
//
// # Implementations
//
//   - [MemoryStore]: process-local, for tests and one-shot invocations.
//   - [FileStore]: JSON file in the user config dir (the console default).
//   - [RedisStore]: shared between console processes.
//
// Writes are last-writer-wins.
type Store interface {
	// Get returns the entry value, or "" when absent or expired.
	Get(ctx context.Context, name string) (string, error)

	// Set writes the entry with the given max-age, replacing any previous value.
	Set(ctx context.Context, name, value string, maxAge time.Duration) error

	// Delete removes the entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, name string) error

	// Clear removes every entry this store owns.
	Clear(ctx context.Context) error
}
