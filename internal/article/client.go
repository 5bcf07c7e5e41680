// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package article

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/taibuivan/lexdesk/internal/platform/apiclient"
	"github.com/taibuivan/lexdesk/internal/platform/sec"
	"github.com/taibuivan/lexdesk/internal/platform/validate"
	"github.com/taibuivan/lexdesk/pkg/slug"
)

const (
	pathBlogs = "/blogs"

	maxTitleLen   = 300
	maxSummaryLen = 1000
)

// # Client

// Client reads and writes articles through the backend API.
type Client struct {
	api    *apiclient.Client
	logger *slog.Logger
}

// NewClient wraps an API transport.
func NewClient(api *apiclient.Client, logger *slog.Logger) *Client {
	return &Client{api: api, logger: logger}
}

/*
Create publishes a new article record.

Description: Validates the draft, derives a slug from the title when none
was given, defaults the status to draft, and posts every field as a
multipart form.

Returns:
  - *Article: The record as stored by the backend
  - error: Validation errors or an [*apperr.AppError] from the backend
*/
func (c *Client) Create(ctx context.Context, draft Article) (*Article, error) {
	if draft.Slug == "" {
		draft.Slug = slug.From(draft.Title)
	}
	if draft.Status == "" {
		draft.Status = StatusDraft
	}

	validator := &validate.Validator{}
	validator.Required(FieldTitle, draft.Title).MaxLen(FieldTitle, draft.Title, maxTitleLen)
	validator.MaxLen(FieldSummary, draft.Summary, maxSummaryLen)
	validator.Slug(FieldSlug, draft.Slug)
	validator.Custom(FieldStatus, !draft.Status.Valid(), "Unknown status")

	if err := validator.Err(); err != nil {
		return nil, err
	}

	var created Article
	if err := c.send(ctx, http.MethodPost, pathBlogs, full(draft), &created); err != nil {
		return nil, fmt.Errorf("article_create_failed: %w", err)
	}

	c.logger.Info("article_created",
		slog.String("article_id", created.ID),
		slog.String("slug", created.Slug),
	)
	return &created, nil
}

// Get fetches one article by ID.
func (c *Client) Get(ctx context.Context, id string) (*Article, error) {
	var found Article
	if err := c.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: blogPath(id)}, &found); err != nil {
		return nil, fmt.Errorf("article_get_failed: %w", err)
	}
	return &found, nil
}

// Update sends a change set computed by [Diff].
//
// An empty change set returns [ErrNoChanges] without a request.
func (c *Client) Update(ctx context.Context, id string, changes Changes) (*Article, error) {
	if changes.Empty() {
		return nil, ErrNoChanges
	}

	validator := &validate.Validator{}
	if title, ok := changes.Get(FieldTitle); ok {
		validator.Required(FieldTitle, title).MaxLen(FieldTitle, title, maxTitleLen)
	}
	if value, ok := changes.Get(FieldSlug); ok {
		validator.Slug(FieldSlug, value)
	}
	if summary, ok := changes.Get(FieldSummary); ok {
		validator.MaxLen(FieldSummary, summary, maxSummaryLen)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	var updated Article
	if err := c.send(ctx, http.MethodPatch, blogPath(id), changes, &updated); err != nil {
		return nil, fmt.Errorf("article_update_failed: %w", err)
	}

	c.logger.Info("article_updated",
		slog.String("article_id", id),
		slog.Any("fields", changes.Fields()),
	)
	return &updated, nil
}

func (c *Client) send(ctx context.Context, method, path string, changes Changes, target any) error {
	body, contentType, err := changes.Encode()
	if err != nil {
		return err
	}
	return c.api.Do(ctx, apiclient.Request{
		Method:      method,
		Path:        path,
		Body:        body,
		ContentType: contentType,
	}, target)
}

func blogPath(id string) string {
	return pathBlogs + "/" + url.PathEscape(id)
}

// # Editor

// Editor submits edits of existing articles.
type Editor struct {
	client *Client
}

// NewEditor wraps a client.
func NewEditor(client *Client) *Editor {
	return &Editor{client: client}
}

// Submit diffs the snapshots and sends only what changed, as actor.
//
// Returns [ErrNoChanges] without contacting the backend when nothing changed.
func (e *Editor) Submit(ctx context.Context, initial, current Article, actor sec.Role) (*Article, error) {
	changes, err := Diff(initial, current, actor)
	if err != nil {
		return nil, err
	}
	return e.client.Update(ctx, initial.ID, changes)
}
