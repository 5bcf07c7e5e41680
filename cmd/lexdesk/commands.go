// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taibuivan/lexdesk/internal/platform/validate"
	"github.com/taibuivan/lexdesk/internal/profile"
	"github.com/taibuivan/lexdesk/internal/session"
)

// # Output

// printUser renders a profile in the selected format.
func printUser(out io.Writer, format string, user *profile.UserProfile) error {
	if format == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(user)
	}

	name := user.Name
	if name == "" {
		name = user.Email
	}
	_, err := fmt.Fprintf(out, "%s <%s> (%s)\n", name, user.Email, user.Role)
	return err
}

// readPassword takes the password from the flag, LEXDESK_PASSWORD, or the
// first line of stdin, in that order.
func readPassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if fromEnv := os.Getenv("LEXDESK_PASSWORD"); fromEnv != "" {
		return fromEnv, nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// withApp bootstraps the app around a command body.
func withApp(cmd *cobra.Command, opts *options, body func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := bootstrap(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()
	return body(ctx, a)
}

// # Session Commands

func newLoginCommand(opts *options) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			if err := validate.Credentials(email, secret); err != nil {
				return err
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				user, err := a.store.Login(ctx, email, secret)
				if err != nil {
					return err
				}
				return printUser(cmd.OutOrStdout(), opts.output, user)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (env LEXDESK_PASSWORD, or prompted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSignupCommand(opts *options) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and its profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			if err := validate.Signup(name, email, secret); err != nil {
				return err
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				user, err := a.store.Register(ctx, name, email, secret)
				if err != nil {
					return err
				}
				return printUser(cmd.OutOrStdout(), opts.output, user)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (env LEXDESK_PASSWORD, or prompted)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the local session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.store.Logout(ctx); err != nil {
					a.log.Warn("logout_provider_failed", slog.Any("error", err))
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return err
			})
		},
	}
}

func newWhoamiCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.store.Wait(ctx); err != nil {
					return err
				}

				state := a.store.State()
				if state.User == nil {
					return session.ErrNoSession
				}
				return printUser(cmd.OutOrStdout(), opts.output, state.User)
			})
		},
	}
}

func newProfileCommand(opts *options) *cobra.Command {
	var (
		name, username, photo string
		bio, phone, title     string
	)

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update your profile details",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var patch profile.Patch
			flags := cmd.Flags()
			for flag, target := range map[string]**string{
				"name":        &patch.Name,
				"username":    &patch.Username,
				"photo":       &patch.ProfilePhoto,
				"bio":         &patch.Bio,
				"phone":       &patch.Phone,
				"designation": &patch.Designation,
			} {
				if flags.Changed(flag) {
					value, _ := flags.GetString(flag)
					*target = &value
				}
			}

			validator := &validate.Validator{}
			if patch.ProfilePhoto != nil {
				validator.URL("photo", *patch.ProfilePhoto)
			}
			if patch.Name != nil {
				validator.Required("name", *patch.Name).MaxLen("name", *patch.Name, 120)
			}
			if err := validator.Err(); err != nil {
				return err
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.store.Wait(ctx); err != nil {
					return err
				}
				if a.store.State().User == nil {
					return session.ErrNoSession
				}

				stored, err := a.profiles.UpdateProfile(ctx, patch)
				if err != nil {
					return err
				}

				user, err := a.store.UpdateLocalProfile(ctx, stored.Editable())
				if err != nil {
					return err
				}
				return printUser(cmd.OutOrStdout(), opts.output, user)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&username, "username", "", "Public username")
	cmd.Flags().StringVar(&photo, "photo", "", "Profile photo URL")
	cmd.Flags().StringVar(&bio, "bio", "", "Short biography")
	cmd.Flags().StringVar(&phone, "phone", "", "Contact phone")
	cmd.Flags().StringVar(&title, "designation", "", "Professional title")
	return cmd
}
