// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package console_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/lexdesk/internal/article"
	"github.com/taibuivan/lexdesk/internal/console"
	"github.com/taibuivan/lexdesk/internal/gate"
	"github.com/taibuivan/lexdesk/internal/identity"
	"github.com/taibuivan/lexdesk/internal/platform/apiclient"
	"github.com/taibuivan/lexdesk/internal/platform/config"
	"github.com/taibuivan/lexdesk/internal/platform/metrics"
	"github.com/taibuivan/lexdesk/internal/platform/sec"
	"github.com/taibuivan/lexdesk/internal/profile"
	"github.com/taibuivan/lexdesk/internal/session"
)

// # Fakes

type stubProvider struct {
	*identity.Emitter
}

func (p stubProvider) SignInWithPassword(_ context.Context, email, _ string) (*identity.Identity, error) {
	signedIn := &identity.Identity{SubjectID: "subject-" + email, Email: email, Token: "token"}
	p.Emit(signedIn)
	return signedIn.Clone(), nil
}

func (p stubProvider) CreateAccount(ctx context.Context, email, password, _ string) (*identity.Identity, error) {
	return p.SignInWithPassword(ctx, email, password)
}

func (p stubProvider) SignOut(context.Context) error {
	p.Emit(nil)
	return nil
}

func (p stubProvider) Refresh(context.Context) (*identity.Identity, error) {
	return p.Current(), nil
}

// stubProfiles grants the author role to every subject.
type stubProfiles struct{}

func (stubProfiles) Sync(_ context.Context, hints profile.Hints) (*profile.UserProfile, error) {
	return &profile.UserProfile{ID: "user-1", SubjectID: hints.SubjectID, Email: hints.Email, Role: sec.RoleAuthor}, nil
}

func (stubProfiles) UpdateProfile(context.Context, profile.Patch) (*profile.UserProfile, error) {
	return nil, errors.New("not used")
}

// # Harness

func newConsole(t *testing.T, deps console.HealthDependencies) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	store, err := session.Create(context.Background(), session.Options{
		Provider: stubProvider{identity.NewEmitter()},
		Profiles: stubProfiles{},
		Cache:    session.NewCache(session.NewMemoryKV(0), logger),
		Logger:   logger,
		Recorder: collector,
	})
	require.NoError(t, err)
	require.NoError(t, store.Start())
	t.Cleanup(store.Dispose)

	backend := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(backend.Close)
	articles := article.NewClient(apiclient.New(backend.URL, nil, store.Token), logger)

	liveness, readiness := console.NewHealthHandlers(deps, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{ConsolePort: "0", Environment: "test"}
	server := console.NewServer(ctx, cfg, logger, gate.New(store, collector), collector, console.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   metrics.Handler(registry),
		Session:   session.NewHandler(store, stubProfiles{}),
		Articles:  article.NewHandler(articles),
	})
	return server.Handler()
}

func do(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(method, path, strings.NewReader(body)))
	return recorder
}

// # Tests

/*
TestConsole_Probes verifies liveness and readiness reporting.
*/
func TestConsole_Probes(t *testing.T) {
	healthy := newConsole(t, console.HealthDependencies{
		CheckCache: func(context.Context) error { return nil },
	})
	assert.Equal(t, http.StatusOK, do(healthy, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(healthy, http.MethodGet, "/ready", "").Code)

	degraded := newConsole(t, console.HealthDependencies{
		CheckCache: func(context.Context) error { return errors.New("redis down") },
	})
	recorder := do(degraded, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"status":"degraded"`)
}

/*
TestConsole_GatedRoutes walks a sign-in and the role-based redirects.
*/
func TestConsole_GatedRoutes(t *testing.T) {
	handler := newConsole(t, console.HealthDependencies{})

	login := do(handler, http.MethodGet, "/login", "")
	assert.Equal(t, http.StatusOK, login.Code)
	assert.Contains(t, login.Body.String(), `"view":"login"`)

	anonymous := do(handler, http.MethodGet, "/dashboard/admin", "")
	assert.Equal(t, http.StatusSeeOther, anonymous.Code)
	assert.Equal(t, "/login", anonymous.Header().Get("Location"))

	signedIn := do(handler, http.MethodPost, "/session/login", `{"email":"ada@example.com","password":"secret-1"}`)
	require.Equal(t, http.StatusOK, signedIn.Code)

	author := do(handler, http.MethodGet, "/dashboard/author", "")
	assert.Equal(t, http.StatusOK, author.Code)
	assert.Contains(t, author.Body.String(), `"view":"author_dashboard"`)

	admin := do(handler, http.MethodGet, "/dashboard/admin", "")
	assert.Equal(t, http.StatusSeeOther, admin.Code)
	assert.Equal(t, "/dashboard/author", admin.Header().Get("Location"))

	public := do(handler, http.MethodGet, "/login", "")
	assert.Equal(t, http.StatusSeeOther, public.Code)
	assert.Equal(t, "/dashboard/author", public.Header().Get("Location"))

	assert.Equal(t, http.StatusNoContent, do(handler, http.MethodPost, "/session/logout", "").Code)
	assert.Equal(t, http.StatusSeeOther, do(handler, http.MethodGet, "/dashboard/author", "").Code)
}

/*
TestConsole_Metrics verifies the exposition endpoint carries gate decisions.
*/
func TestConsole_Metrics(t *testing.T) {
	handler := newConsole(t, console.HealthDependencies{})
	do(handler, http.MethodGet, "/dashboard/admin", "")

	recorder := do(handler, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `lexdesk_gate_decisions_total{outcome="redirect"} 1`)
	assert.Contains(t, recorder.Body.String(), "lexdesk_console_requests_total")
}
