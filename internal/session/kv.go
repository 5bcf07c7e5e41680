// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a [KV] when the key holds no value.
var ErrNotFound = errors.New("session: key not found")

// KV is the persisted key/value slot behind the session cache.
//
// Single-key reads and writes are atomic; nothing more is assumed.
type KV interface {
	// Get returns the stored bytes or [ErrNotFound].
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
