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

	"github.com/taibuivan/lexdesk/internal/platform/sec"
)

// FileKV stores every key in a single JSON document on disk.
//
// The document is re-read on each access so that several processes (the CLI
// and the console) observe each other's writes. Writes replace the file
// atomically. When a [sec.Sealer] is configured the whole document is sealed.
type FileKV struct {
	path   string
	sealer *sec.Sealer

	mu sync.Mutex
}

// NewFileKV creates a file-backed store at path. sealer may be nil.
func NewFileKV(path string, sealer *sec.Sealer) *FileKV {
	return &FileKV{path: path, sealer: sealer}
}

// Path returns the backing file location.
func (f *FileKV) Path() string { return f.path }

// Get implements [KV].
func (f *FileKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	document, err := f.read()
	if err != nil {
		return nil, err
	}

	value, ok := document[key]
	if !ok {
		return nil, ErrNotFound
	}
	return []byte(value), nil
}

// Set implements [KV].
func (f *FileKV) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// An unreadable document is replaced rather than blocking every write.
	document, err := f.read()
	if err != nil {
		document = map[string]string{}
	}

	document[key] = string(value)
	return f.write(document)
}

// Delete implements [KV].
func (f *FileKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	document, err := f.read()
	if err != nil {
		document = map[string]string{}
	}

	if _, ok := document[key]; !ok && err == nil {
		return nil
	}

	delete(document, key)
	if len(document) == 0 {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("session: remove cache file: %w", err)
		}
		return nil
	}
	return f.write(document)
}

// read loads the document. A missing file is an empty document.
func (f *FileKV) read() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: read cache file: %w", err)
	}

	if f.sealer != nil {
		raw, err = f.sealer.Open(raw)
		if err != nil {
			return nil, fmt.Errorf("session: open cache file: %w", err)
		}
	}

	document := map[string]string{}
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("session: decode cache file: %w", err)
	}
	return document, nil
}

func (f *FileKV) write(document map[string]string) error {
	raw, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("session: encode cache file: %w", err)
	}

	if f.sealer != nil {
		raw, err = f.sealer.Seal(raw)
		if err != nil {
			return fmt.Errorf("session: seal cache file: %w", err)
		}
	}

	return writeFileAtomic(f.path, raw, 0o600)
}

// writeFileAtomic writes to a temp file in the same directory, syncs it and
// renames it over path. On rename failure the old file is removed and the
// rename retried once.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("session: create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("session: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("session: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("session: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("session: chmod temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(path)
		if retryErr := os.Rename(tmpPath, path); retryErr != nil {
			return fmt.Errorf("session: replace cache file: %v (after remove: %w)", err, retryErr)
		}
	}
	return nil
}
