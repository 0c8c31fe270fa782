// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is a process-local [Store].
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty store. A nil clock means [time.Now].
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{entries: make(map[string]memoryEntry), now: now}
}

// Get implements [Store].
func (store *MemoryStore) Get(_ context.Context, name string) (string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	entry, ok := store.entries[name]
	if !ok {
		return "", nil
	}
	if !store.now().Before(entry.expiresAt) {
		delete(store.entries, name)
		return "", nil
	}
	return entry.value, nil
}

// Set implements [Store].
func (store *MemoryStore) Set(_ context.Context, name, value string, maxAge time.Duration) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.entries[name] = memoryEntry{value: value, expiresAt: store.now().Add(maxAge)}
	return nil
}

// Delete implements [Store].
func (store *MemoryStore) Delete(_ context.Context, name string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.entries, name)
	return nil
}

// Clear implements [Store].
func (store *MemoryStore) Clear(_ context.Context) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.entries = make(map[string]memoryEntry)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (store *MemoryStore) Len() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.entries)
}
