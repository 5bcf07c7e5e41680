// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command lexdesk is the command-line client and local console of the Lexdesk
// legal-blog CMS.
//
// # Startup Sequence
//
//  1. Initialize structured logger (stderr, so stdout stays scriptable).
//  2. Load configuration from environment variables and .env.
//  3. Open the session cache (file, memory or Redis).
//  4. Resume the identity provider session and start the session store.
//  5. Run the requested command.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/taibuivan/lexdesk/internal/identity"
	"github.com/taibuivan/lexdesk/internal/platform/apperr"
	"github.com/taibuivan/lexdesk/internal/platform/constants"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		report(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// report prints err for a human. Provider and application errors use their
// user-facing message; anything else is a local failure printed verbatim.
func report(out io.Writer, err error) {
	var providerErr *identity.ProviderError
	if !errors.As(err, &providerErr) && !apperr.IsAppError(err) {
		fmt.Fprintln(out, "error:", err)
		return
	}

	described := identity.Describe(err)
	fmt.Fprintln(out, "error:", described.Message)
	for _, detail := range described.Details {
		fmt.Fprintf(out, "  %s: %s\n", detail.Field, detail.Message)
	}
}

// options are the persistent flags shared by every command.
type options struct {
	output string
	debug  bool
}

func newRootCommand() *cobra.Command {
	opts := &options{output: envOr("LEXDESK_OUT", "text")}

	root := &cobra.Command{
		Use:           constants.AppName,
		Short:         "Sign in to Lexdesk and manage your session",
		Version:       constants.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if opts.output != "text" && opts.output != "json" {
				return fmt.Errorf("--out must be text or json, got %q", opts.output)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.output, "out", opts.output, "Output format: text|json (env LEXDESK_OUT)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newLoginCommand(opts),
		newSignupCommand(opts),
		newLogoutCommand(opts),
		newWhoamiCommand(opts),
		newProfileCommand(opts),
		newServeCommand(opts),
	)
	return root
}

// newLogger builds the JSON logger tagged with the app name.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", constants.AppName))
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
