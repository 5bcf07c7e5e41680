// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package profile

import (
	"context"
	"fmt"
	"net/http"

	"github.com/taibuivan/lexdesk/internal/platform/apiclient"
	"github.com/taibuivan/lexdesk/internal/platform/apperr"
)

const (
	pathSync = "/users/sync"
	pathMe   = "/users/me"
)

// Client is the HTTP implementation of [SyncClient] plus self-service updates.
type Client struct {
	api *apiclient.Client
}

// NewClient wraps an API transport.
func NewClient(api *apiclient.Client) *Client {
	return &Client{api: api}
}

// Sync implements [SyncClient].
//
// The hints' own token authenticates the call so that a freshly signed-in
// identity can sync before the session holds any credential.
func (c *Client) Sync(ctx context.Context, hints Hints) (*UserProfile, error) {
	if hints.SubjectID == "" {
		return nil, apperr.ValidationError("A subject identifier is required to sync a profile",
			apperr.FieldError{Field: "subject_id", Message: "is required"})
	}

	request, err := apiclient.JSON(http.MethodPost, pathSync, hints)
	if err != nil {
		return nil, err
	}
	request.Token = hints.Token

	var synced UserProfile
	if err := c.api.Do(ctx, request, &synced); err != nil {
		return nil, fmt.Errorf("profile_sync_failed: %w", err)
	}

	if synced.SubjectID == "" {
		synced.SubjectID = hints.SubjectID
	}
	synced.normalize()
	return &synced, nil
}

// UpdateProfile saves a partial edit of the caller's own profile.
//
// # Returns
//   - The updated profile as stored by the backend.
//   - [apperr.NoChanges] when the patch is empty; no request is sent.
func (c *Client) UpdateProfile(ctx context.Context, patch Patch) (*UserProfile, error) {
	if patch.Empty() {
		return nil, apperr.NoChanges()
	}

	request, err := apiclient.JSON(http.MethodPatch, pathMe, patch)
	if err != nil {
		return nil, err
	}

	var updated UserProfile
	if err := c.api.Do(ctx, request, &updated); err != nil {
		return nil, fmt.Errorf("profile_update_failed: %w", err)
	}
	updated.normalize()
	return &updated, nil
}
