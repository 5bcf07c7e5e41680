// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gate

import (
	"log/slog"
	"net/http"

	"github.com/taibuivan/lexdesk/internal/platform/constants"
	"github.com/taibuivan/lexdesk/internal/platform/ctxutil"
	"github.com/taibuivan/lexdesk/internal/platform/respond"
	"github.com/taibuivan/lexdesk/internal/platform/sec"
	"github.com/taibuivan/lexdesk/internal/session"
)

// Source exposes the session state the gate projects.
type Source interface {
	State() session.State
}

// Recorder counts gate decisions.
type Recorder interface {
	ObserveDecision(outcome string)
}

// Guard turns decisions into chi-compatible middleware.
type Guard struct {
	source   Source
	recorder Recorder
}

// New creates a [Guard] reading from source. recorder may be nil.
func New(source Source, recorder Recorder) *Guard {
	return &Guard{source: source, recorder: recorder}
}

// Require admits signed-in users holding one of roles.
//
// The admitted user is stored on the request context.
func (g *Guard) Require(roles ...sec.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			state := g.source.State()
			g.apply(writer, request, next, state, Decide(state.User, state.Loading, roles...))
		})
	}
}

// PublicOnly serves anonymous users and redirects signed-in ones.
func (g *Guard) PublicOnly() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			state := g.source.State()
			g.apply(writer, request, next, state, DecidePublic(state.User, state.Loading))
		})
	}
}

// Require is shorthand for New(source, nil).Require(roles...).
func Require(source Source, roles ...sec.Role) func(http.Handler) http.Handler {
	return New(source, nil).Require(roles...)
}

// PublicOnly is shorthand for New(source, nil).PublicOnly().
func PublicOnly(source Source) func(http.Handler) http.Handler {
	return New(source, nil).PublicOnly()
}

func (g *Guard) apply(writer http.ResponseWriter, request *http.Request, next http.Handler, state session.State, decision Decision) {
	if g.recorder != nil {
		g.recorder.ObserveDecision(decision.Outcome.String())
	}

	switch decision.Outcome {
	case Loading:
		// Clients poll until the session settles.
		respond.JSON(writer, http.StatusAccepted, map[string]string{constants.FieldStatus: "loading"})

	case Redirect:
		ctxutil.GetLogger(request.Context()).DebugContext(request.Context(), "gate_redirect",
			slog.String("location", decision.Location),
		)
		respond.Redirect(writer, request, decision.Location)

	default:
		ctx := request.Context()
		if state.User != nil {
			ctx = ctxutil.WithUser(ctx, state.User)
		}
		next.ServeHTTP(writer, request.WithContext(ctx))
	}
}
