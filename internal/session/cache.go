// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taibuivan/lexdesk/internal/profile"
)

// # Cache Keys

const (
	keyUser  = "user"
	keyToken = "token"
)

// Entry is the persisted mirror of a signed-in session.
type Entry struct {
	User  *profile.UserProfile
	Token string
}

// Cache reads and writes the session entry through a [KV].
//
// A value that cannot be decoded is reported as a miss and never as an error,
// so a corrupted cache degrades to a normal cold start.
type Cache struct {
	kv     KV
	logger *slog.Logger
}

// NewCache wraps a key/value backend.
func NewCache(kv KV, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{kv: kv, logger: logger}
}

// Load returns the cached entry, or nil when there is no usable user.
func (c *Cache) Load(ctx context.Context) *Entry {
	raw, err := c.kv.Get(ctx, keyUser)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("session_cache_read_failed", slog.Any("error", err))
		}
		return nil
	}

	user := &profile.UserProfile{}
	if err := json.Unmarshal(raw, user); err != nil || user.SubjectID == "" {
		c.logger.Warn("session_cache_corrupt", slog.Any("error", err))
		return nil
	}

	entry := &Entry{User: user}
	if token, err := c.kv.Get(ctx, keyToken); err == nil {
		entry.Token = string(token)
	}
	return entry
}

// Save writes both the user and the token. An empty token removes the key.
func (c *Cache) Save(ctx context.Context, user *profile.UserProfile, token string) error {
	if err := c.SaveUser(ctx, user); err != nil {
		return err
	}
	return c.SaveToken(ctx, token)
}

// SaveUser writes only the user profile.
func (c *Cache) SaveUser(ctx context.Context, user *profile.UserProfile) error {
	encoded, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session_cache_encode_failed: %w", err)
	}
	if err := c.kv.Set(ctx, keyUser, encoded); err != nil {
		return fmt.Errorf("session_cache_write_failed: %w", err)
	}
	return nil
}

// SaveToken writes only the credential.
func (c *Cache) SaveToken(ctx context.Context, token string) error {
	if token == "" {
		return c.kv.Delete(ctx, keyToken)
	}
	if err := c.kv.Set(ctx, keyToken, []byte(token)); err != nil {
		return fmt.Errorf("session_cache_write_failed: %w", err)
	}
	return nil
}

// Clear removes the whole entry.
func (c *Cache) Clear(ctx context.Context) error {
	return errors.Join(c.kv.Delete(ctx, keyUser), c.kv.Delete(ctx, keyToken))
}

// Ping reports whether the backend answers reads. An empty cache is healthy.
func (c *Cache) Ping(ctx context.Context) error {
	if _, err := c.kv.Get(ctx, keyUser); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("session_cache_unreachable: %w", err)
	}
	return nil
}
