// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slug turns article titles into ASCII URL slugs.
//
// Legal titles carry section signs, accented party names and punctuation
// ("Công ty A v. B (2024)"); all of it folds down to lowercase ASCII words
// joined by hyphens.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLen caps generated slugs so they stay readable in URLs.
const MaxLen = 96

var (
	separators = regexp.MustCompile(`[^a-z0-9]+`)

	// Letters NFD cannot decompose into a base letter plus a mark.
	folds = strings.NewReplacer("đ", "d", "Đ", "d", "ø", "o", "Ø", "o", "ß", "ss", "æ", "ae", "Æ", "ae", "&", " and ")
)

// From converts an arbitrary Unicode title into a slug.
//
// The result is empty when the title has no letters or digits.
func From(title string) string {
	folded := folds.Replace(title)

	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(stripMarks, folded)
	if err != nil {
		result = folded
	}

	result = separators.ReplaceAllString(strings.ToLower(result), "-")
	result = strings.Trim(result, "-")

	if len(result) > MaxLen {
		result = strings.TrimRight(result[:MaxLen], "-")
		if cut := strings.LastIndex(result, "-"); cut > MaxLen/2 {
			result = result[:cut]
		}
	}

	return result
}
