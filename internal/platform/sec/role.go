// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"encoding/json"
	"fmt"
	"strings"
)

// # User Roles

// Role represents the authorization level granted to an account.
//
// The set is closed: the zero value is not a valid role and [ParseRole] rejects
// anything outside the three declared constants.
type Role uint8

const (
	// Default role for every new account. Readers may apply to become authors.
	RoleReader Role = iota + 1

	// Can write and edit their own articles. Edits go back to review.
	RoleAuthor

	// Unrestricted access, including publishing and role changes.
	RoleAdmin
)

// Roles lists every valid role in ascending privilege order.
var Roles = []Role{RoleReader, RoleAuthor, RoleAdmin}

// String returns the wire form of the role ("reader", "author", "admin").
func (r Role) String() string {
	switch r {
	case RoleReader:
		return "reader"
	case RoleAuthor:
		return "author"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return r >= RoleReader && r <= RoleAdmin
}

// Elevated reports whether the role bypasses the editorial review workflow.
func (r Role) Elevated() bool {
	return r == RoleAdmin
}

// In reports whether r is contained in the given set.
func (r Role) In(set ...Role) bool {
	for _, candidate := range set {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts the wire form into a [Role]. Matching is case-insensitive.
func ParseRole(value string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "reader":
		return RoleReader, nil
	case "author":
		return RoleAuthor, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("sec: unknown role %q", value)
	}
}

// # Serialization

// MarshalJSON encodes the role as its wire string.
func (r Role) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("sec: cannot encode invalid role %d", uint8(r))
	}
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes the wire string, rejecting unknown roles.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("sec: role must be a string: %w", err)
	}

	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}

	*r = parsed
	return nil
}
