// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package console

import (
	"net/http"

	"github.com/taibuivan/lexdesk/internal/platform/ctxutil"
	"github.com/taibuivan/lexdesk/internal/platform/respond"
	"github.com/taibuivan/lexdesk/internal/profile"
)

// viewPayload describes which screen the client should show.
type viewPayload struct {
	View string               `json:"view"`
	User *profile.UserProfile `json:"user,omitempty"`
}

// anonymous serves public entry points to signed-out users.
func anonymous(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, viewPayload{View: "login"})
}

// landing serves a gated screen for the admitted user.
func landing(view string) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		respond.OK(writer, viewPayload{View: view, User: ctxutil.GetUser(request.Context())})
	}
}
