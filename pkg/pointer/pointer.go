// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package pointer holds generic helpers for optional values.

Partial updates model "not sent" as a nil pointer, so the same two operations
show up everywhere a patch is built or merged:

  - To: Takes the address of a literal.
  - Fallback: Reads an optional value, keeping the current one when absent.
*/
package pointer

// To returns a pointer to v.
func To[T any](v T) *T {
	return &v
}

// Fallback dereferences p, or returns current when p is nil.
func Fallback[T any](p *T, current T) T {
	if p == nil {
		return current
	}
	return *p
}
