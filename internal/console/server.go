// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package console wires the router, middleware chain and handlers of the local
console into a runnable [http.Server].

Architecture:

  - This package is the composition root for the HTTP surface (chi router).
  - Every route except probes and metrics passes through the access gate.
  - Only this package and cmd/lexdesk import net/http server primitives.
*/
package console

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/lexdesk/internal/article"
	"github.com/taibuivan/lexdesk/internal/gate"
	"github.com/taibuivan/lexdesk/internal/platform/config"
	"github.com/taibuivan/lexdesk/internal/platform/constants"
	"github.com/taibuivan/lexdesk/internal/platform/middleware"
	"github.com/taibuivan/lexdesk/internal/platform/sec"
	"github.com/taibuivan/lexdesk/internal/session"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups the handler sets mounted by [NewServer].
type Handlers struct {
	// Liveness is the /health handler.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler.
	Readiness http.HandlerFunc

	// Metrics serves the Prometheus exposition format.
	Metrics http.Handler

	// Session handles login, signup, logout and profile edits.
	Session *session.Handler

	// Articles handles article authoring.
	Articles *article.Handler
}

// Observer receives per-request metrics. It may be nil.
type Observer = middleware.RequestObserver

// # Server Initialization

// NewServer builds the router with the full middleware chain and the
// role-gated route table.
func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger, guard *gate.Guard, observer Observer, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log, observer))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(ctx, constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst))
	r.Use(middleware.PanicRecovery())
	r.Use(middleware.CORS(cfg, middleware.SplitOrigins(cfg.ExtraOrigins)))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	// # Session
	r.Mount("/session", h.Session.Routes(guard.Require()))

	// # Gated Views
	r.With(guard.PublicOnly()).Get(constants.RouteLogin, anonymous)
	r.With(guard.Require()).Get(constants.RouteHome, landing("home"))
	r.With(guard.Require(sec.RoleReader)).Get(constants.RouteApplicationStatus, landing("application_status"))
	r.With(guard.Require(sec.RoleAuthor, sec.RoleAdmin)).Get(constants.RouteAuthorDashboard, landing("author_dashboard"))
	r.With(guard.Require(sec.RoleAdmin)).Get(constants.RouteAdminDashboard, landing("admin_dashboard"))

	// # Authoring
	r.With(guard.Require(sec.RoleAuthor, sec.RoleAdmin)).Mount("/articles", h.Articles.Routes())

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              "127.0.0.1:" + cfg.ConsolePort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("console_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
