// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package slug_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/lexdesk/pkg/slug"
)

/*
TestFrom verifies folding of accents, punctuation and special letters.
*/
func TestFrom(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Công ty A v. B (2024)", "cong-ty-a-v-b-2024"},
		{"Điều 5 § Hợp đồng", "dieu-5-hop-dong"},
		{"  Mergers & Acquisitions  ", "mergers-and-acquisitions"},
		{"Straße", "strasse"},
		{"---", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, slug.From(tt.title))
		})
	}
}

/*
TestFrom_Truncates verifies long titles are cut on a word boundary.
*/
func TestFrom_Truncates(t *testing.T) {
	got := slug.From(strings.Repeat("liability ", 20))
	assert.LessOrEqual(t, len(got), slug.MaxLen)
	assert.False(t, strings.HasSuffix(got, "-"))
	for _, word := range strings.Split(got, "-") {
		assert.Equal(t, "liability", word)
	}
}
