// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid generates the correlation IDs carried by console requests.

Version 7 values sort by creation time, so log lines for one burst of requests
stay grouped when sorted by request ID.
*/
package uuid

import "github.com/google/uuid"

// New returns a UUIDv7 string.
//
// If the time-ordered generator fails, a random v4 value is returned instead;
// a correlation ID never justifies failing a request.
func New() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// Valid reports whether value parses as a UUID of any version.
func Valid(value string) bool {
	return uuid.Validate(value) == nil
}
