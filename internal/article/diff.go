// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package article

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/taibuivan/lexdesk/internal/platform/sec"
	"github.com/taibuivan/lexdesk/pkg/slice"
)

var (
	// defaultSanitizer is safe for concurrent use once built.
	defaultSanitizer = NewSanitizer()

	quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")
)

// # Change Sets

type change struct {
	name  string
	value string
}

// Changes is the set of fields an update will send.
type Changes struct {
	fields []change
	upload *Upload
}

// Empty reports whether nothing would be sent.
func (c Changes) Empty() bool {
	return len(c.fields) == 0 && c.upload == nil
}

// Fields lists the changed field names in wire order.
// A cover upload is reported as [FieldCoverImage].
func (c Changes) Fields() []string {
	names := slice.Map(c.fields, func(f change) string { return f.name })
	if c.upload != nil && !c.Has(FieldCoverImage) {
		names = append(names, FieldCoverImage)
	}
	return names
}

// Has reports whether name is part of the change set.
func (c Changes) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Get returns the encoded value of a changed field.
func (c Changes) Get(name string) (string, bool) {
	for _, f := range c.fields {
		if f.name == name {
			return f.value, true
		}
	}
	return "", false
}

func (c *Changes) set(name, value string) {
	for i := range c.fields {
		if c.fields[i].name == name {
			c.fields[i].value = value
			return
		}
	}
	c.fields = append(c.fields, change{name: name, value: value})
}

// Encode renders the change set as a multipart/form-data body.
//
// List fields are sent as JSON arrays so that clearing a list is expressible.
func (c Changes) Encode() (io.Reader, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, f := range c.fields {
		if err := writer.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("article: encode field %s: %w", f.name, err)
		}
	}

	if c.upload != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FieldCoverImage, quoteEscaper.Replace(c.upload.Filename)))
		contentType := c.upload.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("article: encode cover: %w", err)
		}
		if _, err := part.Write(c.upload.Data); err != nil {
			return nil, "", fmt.Errorf("article: encode cover: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("article: close form: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}

// # Diff

/*
Diff computes the minimal update that turns initial into current.

Each tracked field is compared by value; co-authors and tags are compared as
sets and content is compared in sanitised form. A new cover upload always
counts as a change.

When anything changed and actor is not elevated, status is forced to
[StatusPending] whatever current.Status says. Elevated actors send their own
status only if they changed it.

Returns [ErrNoChanges] when there is nothing to send.
*/
func Diff(initial, current Article, actor sec.Role) (Changes, error) {
	var changes Changes

	diffText(&changes, FieldTitle, initial.Title, current.Title)
	diffText(&changes, FieldSlug, initial.Slug, current.Slug)
	diffText(&changes, FieldSummary, initial.Summary, current.Summary)

	if content := defaultSanitizer.Sanitize(current.Content); defaultSanitizer.Sanitize(initial.Content) != content {
		changes.set(FieldContent, content)
	}

	if initial.CategoryID != current.CategoryID {
		changes.set(FieldCategoryID, formatCategory(current.CategoryID))
	}

	diffSet(&changes, FieldCoAuthors, initial.CoAuthors, current.CoAuthors)
	diffSet(&changes, FieldTags, initial.Tags, current.Tags)
	diffText(&changes, FieldCoverImage, initial.CoverImage, current.CoverImage)

	if current.CoverUpload != nil {
		changes.upload = current.CoverUpload
	}

	if initial.Status != current.Status {
		changes.set(FieldStatus, string(current.Status))
	}

	if changes.Empty() {
		return Changes{}, ErrNoChanges
	}

	if !actor.Elevated() {
		changes.set(FieldStatus, string(StatusPending))
	}

	return changes, nil
}

// full returns every field of a, as sent when creating an article.
func full(a Article) Changes {
	changes := Changes{upload: a.CoverUpload}
	changes.set(FieldTitle, strings.TrimSpace(a.Title))
	changes.set(FieldSlug, a.Slug)
	changes.set(FieldSummary, strings.TrimSpace(a.Summary))
	changes.set(FieldContent, defaultSanitizer.Sanitize(a.Content))
	changes.set(FieldCategoryID, formatCategory(a.CategoryID))
	changes.set(FieldCoAuthors, encodeList(clean(a.CoAuthors)))
	changes.set(FieldTags, encodeList(clean(a.Tags)))
	if a.CoverImage != "" {
		changes.set(FieldCoverImage, a.CoverImage)
	}
	changes.set(FieldStatus, string(a.Status))
	return changes
}

func diffText(changes *Changes, name, before, after string) {
	after = strings.TrimSpace(after)
	if strings.TrimSpace(before) != after {
		changes.set(name, after)
	}
}

func diffSet(changes *Changes, name string, before, after []string) {
	after = clean(after)
	if !slice.SameSet(clean(before), after) {
		changes.set(name, encodeList(after))
	}
}

// clean trims entries and drops blanks.
func clean(values []string) []string {
	trimmed := slice.Map(values, strings.TrimSpace)
	return slice.Filter(trimmed, func(v string) bool { return v != "" })
}

func encodeList(values []string) string {
	if values == nil {
		values = []string{}
	}
	encoded, _ := json.Marshal(values)
	return string(encoded)
}

func formatCategory(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
