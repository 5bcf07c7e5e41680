// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package gate decides whether a route renders, waits, or redirects.

Decisions are pure projections of the session state; nothing here mutates the
session. Every protected and public route of the console goes through
[Guard.Require] or [Guard.PublicOnly].
*/
package gate

import (
	"github.com/taibuivan/lexdesk/internal/platform/constants"
	"github.com/taibuivan/lexdesk/internal/platform/sec"
	"github.com/taibuivan/lexdesk/internal/profile"
)

// # Decision Table

// Outcome is the kind of decision made for a route.
type Outcome uint8

const (
	// Render means the route may be shown to the current user.
	Render Outcome = iota + 1

	// Loading means the session has not settled yet.
	Loading

	// Redirect means the user must be sent to [Decision.Location].
	Redirect
)

// String returns the label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Loading:
		return "loading"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the result of evaluating a route against the session.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Decide evaluates a protected route.
//
// An empty required set admits any signed-in user.
func Decide(user *profile.UserProfile, loading bool, required ...sec.Role) Decision {
	if loading {
		return Decision{Outcome: Loading}
	}

	if user == nil {
		return Decision{Outcome: Redirect, Location: constants.RouteLogin}
	}

	if len(required) == 0 || user.Role.In(required...) {
		return Decision{Outcome: Render}
	}

	return Decision{Outcome: Redirect, Location: Fallback(user.Role)}
}

// DecidePublic evaluates a public entry point such as the login page.
//
// Anonymous users see the page; signed-in users go to their landing page.
func DecidePublic(user *profile.UserProfile, loading bool) Decision {
	if loading {
		return Decision{Outcome: Loading}
	}

	if user == nil {
		return Decision{Outcome: Render}
	}

	return Decision{Outcome: Redirect, Location: Landing(user.Role)}
}

// Fallback is where a user lacking the required role is sent.
func Fallback(role sec.Role) string {
	switch role {
	case sec.RoleReader:
		return constants.RouteApplicationStatus
	case sec.RoleAuthor:
		return constants.RouteAuthorDashboard
	default:
		return constants.RouteHome
	}
}

// Landing is the default destination for a signed-in user.
func Landing(role sec.Role) string {
	switch role {
	case sec.RoleAdmin:
		return constants.RouteAdminDashboard
	case sec.RoleAuthor:
		return constants.RouteAuthorDashboard
	default:
		return constants.RouteHome
	}
}
