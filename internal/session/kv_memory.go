// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryKV keeps values in process memory. Nothing survives a restart.
type MemoryKV struct {
	cache *gocache.Cache
}

// NewMemoryKV creates an in-process store. A zero ttl keeps values forever.
func NewMemoryKV(ttl time.Duration) *MemoryKV {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &MemoryKV{cache: gocache.New(ttl, time.Minute)}
}

// Get implements [KV].
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := m.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}

	stored, _ := value.([]byte)
	return append([]byte(nil), stored...), nil
}

// Set implements [KV].
func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.cache.SetDefault(key, append([]byte(nil), value...))
	return nil
}

// Delete implements [KV].
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}
