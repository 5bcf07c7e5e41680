// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package article models blog articles and shapes their update requests.

Edits are sent as minimal multipart patches: only the fields that actually
changed leave the client, and any edit made by a non-admin sends the article
back to review.
*/
package article

import (
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/taibuivan/lexdesk/internal/platform/apperr"
)

// # Constants & Enums

// Status is the editorial lifecycle state of an article.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
)

// Valid reports whether s is a declared status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusPublished, StatusRejected:
		return true
	}
	return false
}

// Wire field names shared by JSON payloads and multipart forms.
const (
	FieldTitle      = "title"
	FieldSlug       = "slug"
	FieldSummary    = "summary"
	FieldContent    = "content"
	FieldCategoryID = "category_id"
	FieldCoAuthors  = "co_authors"
	FieldTags       = "tags"
	FieldCoverImage = "cover_image"
	FieldStatus     = "status"
)

// ErrNoChanges is returned when an edit would send an empty update.
var ErrNoChanges = apperr.NoChanges()

// # Domain Entities

// Article is a blog post as stored by the backend.
type Article struct {
	ID         string   `json:"id"`
	AuthorID   string   `json:"author_id,omitempty"`
	Title      string   `json:"title"`
	Slug       string   `json:"slug"`
	Summary    string   `json:"summary"`
	Content    string   `json:"content"`
	CategoryID int64    `json:"category_id"`
	CoAuthors  []string `json:"co_authors"`
	Tags       []string `json:"tags"`
	CoverImage string   `json:"cover_image"`
	Status     Status   `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// CoverUpload is a replacement cover picked in the editor. It is never
	// part of a loaded snapshot.
	CoverUpload *Upload `json:"-"`
}

// Upload is a file selected for upload.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// # Content Sanitising

// Sanitizer normalises rich-text HTML from the editor.
//
// Comparing sanitised forms keeps markup the backend would strip anyway from
// registering as an edit.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds the policy used for article bodies.
func NewSanitizer() *Sanitizer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("p", "span", "pre", "code", "blockquote")
	policy.AllowAttrs("id").Matching(bluemonday.Paragraph).OnElements("h2", "h3", "h4")
	policy.RequireNoFollowOnLinks(true)
	return &Sanitizer{policy: policy}
}

// Sanitize returns the safe form of html.
func (s *Sanitizer) Sanitize(html string) string {
	return strings.TrimSpace(s.policy.Sanitize(html))
}
