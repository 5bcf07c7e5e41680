// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/lexdesk/internal/identity"
	"github.com/taibuivan/lexdesk/internal/platform/ctxutil"
	"github.com/taibuivan/lexdesk/internal/platform/request"
	"github.com/taibuivan/lexdesk/internal/platform/respond"
	"github.com/taibuivan/lexdesk/internal/platform/validate"
	"github.com/taibuivan/lexdesk/internal/profile"
)

// ProfileUpdater saves self-service profile edits on the backend.
type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, patch profile.Patch) (*profile.UserProfile, error)
}

// # Handler Implementation

// Handler exposes the store over the local console.
type Handler struct {
	store    *Store
	profiles ProfileUpdater
}

// NewHandler constructs a session [Handler].
func NewHandler(store *Store, profiles ProfileUpdater) *Handler {
	return &Handler{store: store, profiles: profiles}
}

// Routes returns the session endpoints. signedIn guards the routes that need
// a current user.
func (handler *Handler) Routes(signedIn func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.getState)
	router.Post("/login", handler.login)
	router.Post("/signup", handler.signup)
	router.Post("/logout", handler.logout)

	router.With(signedIn).Patch("/profile", handler.updateProfile)

	return router
}

// stateView is the wire form of [State].
type stateView struct {
	User    *profile.UserProfile `json:"user"`
	Loading bool                 `json:"loading"`
	Phase   string               `json:"phase"`
}

func viewOf(state State) stateView {
	return stateView{User: state.User, Loading: state.Loading, Phase: state.Phase.String()}
}

// # Session Endpoints

/*
GET /session.

Description: Returns the current session snapshot.

Response:
  - 200: {user, loading, phase}
*/
func (handler *Handler) getState(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, viewOf(handler.store.State()))
}

/*
POST /session/login.

Description: Signs in with email and password and syncs the profile.

Request (Body):
  - email: string
  - password: string

Response:
  - 200: UserProfile
  - 401: Invalid credentials
  - 422: Validation errors
*/
func (handler *Handler) login(writer http.ResponseWriter, httpRequest *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := request.DecodeJSON(httpRequest, &input); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}
	if err := validate.Credentials(input.Email, input.Password); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	user, err := handler.store.Login(httpRequest.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, httpRequest, identity.Describe(err))
		return
	}

	respond.OK(writer, user)
}

/*
POST /session/signup.

Description: Creates a provider account and its backend profile.

Request (Body):
  - name: string
  - email: string
  - password: string

Response:
  - 201: UserProfile
  - 409: Email already in use
  - 422: Validation errors
*/
func (handler *Handler) signup(writer http.ResponseWriter, httpRequest *http.Request) {
	var input struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := request.DecodeJSON(httpRequest, &input); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}
	if err := validate.Signup(input.Name, input.Email, input.Password); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	user, err := handler.store.Register(httpRequest.Context(), input.Name, input.Email, input.Password)
	if err != nil {
		respond.Error(writer, httpRequest, identity.Describe(err))
		return
	}

	respond.Created(writer, user)
}

/*
POST /session/logout.

Description: Ends the session. The local session is always cleared, so a
provider failure is logged but still answered with 204.

Response:
  - 204: No Content
*/
func (handler *Handler) logout(writer http.ResponseWriter, httpRequest *http.Request) {
	if err := handler.store.Logout(httpRequest.Context()); err != nil {
		ctxutil.GetLogger(httpRequest.Context()).WarnContext(httpRequest.Context(), "console_logout_provider_failed",
			slog.Any("error", err),
		)
	}
	respond.NoContent(writer)
}

/*
PATCH /session/profile.

Description: Saves profile edits on the backend, then mirrors the stored
profile into the session.

Request (Body):
  - Patch JSON object

Response:
  - 200: UserProfile
  - 200: NO_CHANGES when the patch is empty
*/
func (handler *Handler) updateProfile(writer http.ResponseWriter, httpRequest *http.Request) {
	var patch profile.Patch
	if err := request.DecodeJSON(httpRequest, &patch); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	// Roles are granted by the backend, never self-assigned.
	patch.Role = nil

	ctx := httpRequest.Context()

	stored, err := handler.profiles.UpdateProfile(ctx, patch)
	if err != nil {
		respond.Error(writer, httpRequest, identity.Describe(err))
		return
	}

	updated, err := handler.store.UpdateLocalProfile(ctx, stored.Editable())
	if err != nil {
		respond.Error(writer, httpRequest, identity.Describe(err))
		return
	}

	respond.OK(writer, updated)
}
