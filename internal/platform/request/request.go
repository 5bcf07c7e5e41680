// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from console HTTP requests.

It abstracts away the router's parameter extraction and common body decoding
patterns, ensuring consistent error handling and type safety.
*/
package request

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/lexdesk/internal/platform/apperr"
	"github.com/taibuivan/lexdesk/internal/platform/ctxutil"
	"github.com/taibuivan/lexdesk/internal/platform/validate"
	"github.com/taibuivan/lexdesk/internal/profile"
)

// maxBodyBytes caps JSON bodies accepted by the console.
const maxBodyBytes = 1 << 20

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(request.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
RequiredUser returns the signed-in user admitted by the access gate.

Returns:
  - *profile.UserProfile: The current user
  - error: apperr.Unauthorized if the request is anonymous
*/
func RequiredUser(request *http.Request) (*profile.UserProfile, error) {
	user := ctxutil.GetUser(request.Context())
	if user == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return user, nil
}
