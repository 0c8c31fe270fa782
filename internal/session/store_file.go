// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type fileEntry struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type fileDocument struct {
	Entries map[string]fileEntry `json:"entries"`
}

// FileStore persists entries in a single JSON file readable only by its owner.
//
// Every operation re-reads the file, so a refresh performed by another console
// process is picked up by the next request.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileStore creates a store backed by path. The parent directory is created
// on first write. A nil clock means [time.Now].
func NewFileStore(path string, now func() time.Time) *FileStore {
	if now == nil {
		now = time.Now
	}
	return &FileStore{path: path, now: now}
}

// Path returns the backing file.
func (store *FileStore) Path() string {
	return store.path
}

// Get implements [Store].
func (store *FileStore) Get(_ context.Context, name string) (string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	document, err := store.load()
	if err != nil {
		return "", err
	}

	entry, ok := document.Entries[name]
	if !ok || !store.now().Before(entry.ExpiresAt) {
		return "", nil
	}
	return entry.Value, nil
}

// Set implements [Store].
func (store *FileStore) Set(_ context.Context, name, value string, maxAge time.Duration) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	document, err := store.load()
	if err != nil {
		return err
	}
	document.Entries[name] = fileEntry{Value: value, ExpiresAt: store.now().Add(maxAge)}
	return store.save(document)
}

// Delete implements [Store].
func (store *FileStore) Delete(_ context.Context, name string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	document, err := store.load()
	if err != nil {
		return err
	}
	if _, ok := document.Entries[name]; !ok {
		return nil
	}
	delete(document.Entries, name)
	return store.save(document)
}

// Clear implements [Store]. The file itself is removed.
func (store *FileStore) Clear(_ context.Context) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := os.Remove(store.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session_file_clear_failed: %w", err)
	}
	return nil
}

// load reads the document and drops expired entries. A missing file is empty.
func (store *FileStore) load() (*fileDocument, error) {
	document := &fileDocument{Entries: make(map[string]fileEntry)}

	raw, err := os.ReadFile(store.path)
	if errors.Is(err, fs.ErrNotExist) {
		return document, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session_file_read_failed: %w", err)
	}

	if err := json.Unmarshal(raw, document); err != nil {
		return nil, fmt.Errorf("session_file_decode_failed: %w", err)
	}
	if document.Entries == nil {
		document.Entries = make(map[string]fileEntry)
	}

	now := store.now()
	for name, entry := range document.Entries {
		if !now.Before(entry.ExpiresAt) {
			delete(document.Entries, name)
		}
	}

	return document, nil
}

// save writes the document through a temp file and rename so readers never
// observe a partial write.
func (store *FileStore) save(document *fileDocument) error {
	raw, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("session_file_encode_failed: %w", err)
	}

	dir := filepath.Dir(store.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("session_file_mkdir_failed: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("session_file_temp_failed: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("session_file_write_failed: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("session_file_chmod_failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session_file_close_failed: %w", err)
	}

	if err := os.Rename(tmpName, store.path); err != nil {
		return fmt.Errorf("session_file_rename_failed: %w", err)
	}
	return nil
}
