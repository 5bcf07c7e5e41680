// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/lexdesk/internal/platform/sec"
	"github.com/taibuivan/lexdesk/internal/session"
)

/*
TestCache_RoundTrip saves and loads the user and token keys.
*/
func TestCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := session.NewMemoryKV(0)
	cache := session.NewCache(kv, quietLogger())

	assert.Nil(t, cache.Load(ctx))

	require.NoError(t, cache.Save(ctx, cachedUser("s-1"), "token-1"))

	raw, err := kv.Get(ctx, "user")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"subject_id":"s-1"`)
	assert.Contains(t, string(raw), `"role":"reader"`)

	entry := cache.Load(ctx)
	require.NotNil(t, entry)
	assert.Equal(t, cachedUser("s-1"), entry.User)
	assert.Equal(t, "token-1", entry.Token)

	require.NoError(t, cache.SaveToken(ctx, ""))
	assert.Empty(t, cache.Load(ctx).Token)

	require.NoError(t, cache.Clear(ctx))
	assert.Nil(t, cache.Load(ctx))
}

/*
TestCache_CorruptValueIsMiss treats unreadable entries as absent.
*/
func TestCache_CorruptValueIsMiss(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not json", "{{{"},
		{"unknown role", `{"subject_id":"s-1","role":"owner"}`},
		{"missing subject", `{"name":"Ada","role":"reader"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := session.NewMemoryKV(0)
			require.NoError(t, kv.Set(ctx, "user", []byte(tt.value)))

			assert.Nil(t, session.NewCache(kv, quietLogger()).Load(ctx))
		})
	}
}

/*
TestFileKV persists keys across instances and removes the file when empty.
*/
func TestFileKV(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	first := session.NewFileKV(path, nil)
	_, err := first.Get(ctx, "user")
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, first.Set(ctx, "user", []byte(`{"a":1}`)))
	require.NoError(t, first.Set(ctx, "token", []byte("t")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second := session.NewFileKV(path, nil)
	value, err := second.Get(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(value))

	require.NoError(t, second.Delete(ctx, "user"))
	require.NoError(t, second.Delete(ctx, "missing"))
	require.NoError(t, second.Delete(ctx, "token"))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

/*
TestFileKV_Sealed keeps the document unreadable without the secret.
*/
func TestFileKV_Sealed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	sealer, err := sec.NewSealer("a-long-cache-secret")
	require.NoError(t, err)

	kv := session.NewFileKV(path, sealer)
	require.NoError(t, kv.Set(ctx, "token", []byte("very-secret-token")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "very-secret-token")

	value, err := kv.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "very-secret-token", string(value))

	other, err := sec.NewSealer("a-different-secret")
	require.NoError(t, err)
	_, err = session.NewFileKV(path, other).Get(ctx, "token")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, session.ErrNotFound)
}

/*
TestFileKV_CorruptFile degrades to a cache miss and is replaced on write.
*/
func TestFileKV_CorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	kv := session.NewFileKV(path, nil)
	assert.Nil(t, session.NewCache(kv, quietLogger()).Load(ctx))

	require.NoError(t, kv.Set(ctx, "token", []byte("t")))
	value, err := kv.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "t", string(value))
}

/*
TestMemoryKV returns copies and reports misses.
*/
func TestMemoryKV(t *testing.T) {
	ctx := context.Background()
	kv := session.NewMemoryKV(0)

	original := []byte("value")
	require.NoError(t, kv.Set(ctx, "k", original))
	original[0] = 'X'

	value, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "value", string(value))

	require.NoError(t, kv.Delete(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

// brokenKV fails every operation.
type brokenKV struct{}

func (brokenKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk gone") }
func (brokenKV) Set(context.Context, string, []byte) error   { return errors.New("disk gone") }
func (brokenKV) Delete(context.Context, string) error        { return errors.New("disk gone") }

/*
TestCache_Ping treats an empty cache as healthy and a failing backend as not.
*/
func TestCache_Ping(t *testing.T) {
	assert.NoError(t, session.NewCache(session.NewMemoryKV(0), quietLogger()).Ping(context.Background()))
	assert.Error(t, session.NewCache(brokenKV{}, quietLogger()).Ping(context.Background()))
}
