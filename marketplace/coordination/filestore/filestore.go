// Package filestore persists coordination snapshots as a single JSON
// document on disk. Every save rewrites the whole file through a temp file
// and rename so a crash mid-write never leaves a torn snapshot behind.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/recallpoint/lib-marketplace/marketplace/coordination"
)

const fileMode = 0o600

// Store is a file-backed coordination.Store.
type Store struct {
	path string
}

var _ coordination.Store = (*Store)(nil)

// New creates a store writing to path. The parent directory must exist.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("filestore: path is required")
	}

	return &Store{path: path}, nil
}

// Load implements coordination.Store. A missing file yields an empty
// snapshot so a fresh process starts with an empty working set.
func (store *Store) Load(_ context.Context) (*coordination.Snapshot, error) {
	payload, err := os.ReadFile(store.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &coordination.Snapshot{}, nil
		}

		return nil, fmt.Errorf("filestore: read %s: %w", store.path, err)
	}

	var snapshot coordination.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("filestore: decode %s: %w", store.path, err)
	}

	return &snapshot, nil
}

// Save implements coordination.Store.
func (store *Store) Save(_ context.Context, snapshot *coordination.Snapshot) error {
	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: encode snapshot: %w", err)
	}

	dir := filepath.Dir(store.path)

	tmp, err := os.CreateTemp(dir, filepath.Base(store.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("filestore: create temp file: %w", err)
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("filestore: write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("filestore: close temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, fileMode); err != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("filestore: chmod temp file: %w", err)
	}

	if err := os.Rename(tmpPath, store.path); err != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("filestore: replace %s: %w", store.path, err)
	}

	return nil
}
