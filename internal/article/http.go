// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package article

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/lexdesk/internal/platform/request"
	"github.com/taibuivan/lexdesk/internal/platform/respond"
)

// # Handler Implementation

// Handler exposes article authoring on the local console.
//
// Every route expects the access gate to have admitted an author or admin.
type Handler struct {
	client *Client
	editor *Editor
}

// NewHandler constructs an article [Handler].
func NewHandler(client *Client) *Handler {
	return &Handler{client: client, editor: NewEditor(client)}
}

// Routes returns the article endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/", handler.createArticle)
	router.Get("/{id}", handler.getArticle)
	router.Patch("/{id}", handler.updateArticle)

	return router
}

// # Article Endpoints

/*
POST /articles.

Description: Creates a draft. The slug is derived from the title when absent.

Request (Body):
  - Article JSON object

Response:
  - 201: Article
  - 422: Validation errors
*/
func (handler *Handler) createArticle(writer http.ResponseWriter, httpRequest *http.Request) {
	if _, err := request.RequiredUser(httpRequest); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	var draft Article
	if err := request.DecodeJSON(httpRequest, &draft); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	created, err := handler.client.Create(httpRequest.Context(), draft)
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.Created(writer, created)
}

/*
GET /articles/{id}.

Response:
  - 200: Article
  - 404: Article not found
*/
func (handler *Handler) getArticle(writer http.ResponseWriter, httpRequest *http.Request) {
	found, err := handler.client.Get(httpRequest.Context(), request.Param(httpRequest, "id"))
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, found)
}

/*
PATCH /articles/{id}.

Description: Accepts the full edited article, diffs it against the stored
one and sends only the changed fields. Edits by authors go back to review.

Request (Body):
  - Article JSON object (the complete edited snapshot)

Response:
  - 200: Article
  - 200: The stored Article unchanged when nothing differs
*/
func (handler *Handler) updateArticle(writer http.ResponseWriter, httpRequest *http.Request) {
	actor, err := request.RequiredUser(httpRequest)
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	var current Article
	if err := request.DecodeJSON(httpRequest, &current); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	ctx := httpRequest.Context()

	initial, err := handler.client.Get(ctx, request.Param(httpRequest, "id"))
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	updated, err := handler.editor.Submit(ctx, *initial, current, actor.Role)
	if errors.Is(err, ErrNoChanges) {
		respond.OK(writer, initial)
		return
	}
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, updated)
}
