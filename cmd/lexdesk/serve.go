// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/taibuivan/lexdesk/internal/article"
	"github.com/taibuivan/lexdesk/internal/console"
	"github.com/taibuivan/lexdesk/internal/gate"
	"github.com/taibuivan/lexdesk/internal/platform/constants"
	"github.com/taibuivan/lexdesk/internal/platform/metrics"
	"github.com/taibuivan/lexdesk/internal/session"
)

func newServeCommand(opts *options) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local console on 127.0.0.1",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if port != "" {
					a.cfg.ConsolePort = port
				}
				return serve(ctx, a)
			})
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Console port (env CONSOLE_PORT)")
	return cmd
}

// serve runs the console until ctx is cancelled, then shuts down gracefully.
func serve(ctx context.Context, a *app) error {
	log := a.log

	// Keep the ID token valid for as long as the console runs.
	go a.provider.KeepFresh(ctx, constants.TokenRefreshLead)

	liveness, readiness := console.NewHealthHandlers(console.HealthDependencies{
		CheckCache: a.pingCache,
		CheckSession: func(context.Context) error {
			if a.store.State().Loading {
				return errors.New("session is still loading")
			}
			return nil
		},
	}, log)

	server := console.NewServer(ctx, a.cfg, log, gate.New(a.store, a.metrics), a.metrics, console.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   metrics.Handler(a.registry),
		Session:   session.NewHandler(a.store, a.profiles),
		Articles:  article.NewHandler(a.articles),
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until a signal cancels ctx or the listener fails.
	select {
	case <-ctx.Done():
		log.Info("shutdown_signal_received")
	case err := <-serverErr:
		log.Error("console_listen_failed", slog.Any("error", err))
		return err
	}

	log.Info("console_shutting_down", slog.Duration("timeout", constants.ShutdownTimeout))
	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		return err
	}

	log.Info("console_stopped")
	return nil
}
