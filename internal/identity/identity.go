// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package identity models the hosted identity provider as seen by the client.

It defines the signed-in [Identity], the cancellable event stream that reports
identity changes, and the [Provider] calls (password sign-in, account creation,
sign-out, token refresh) the session layer relies on.

# Architecture

  - Events: a single global stream; every subscriber receives the current
    identity at subscribe time and then every change.
  - Provider: explicit calls that raise [*ProviderError] values with stable codes.
  - RESTProvider: the production client, backed by [Emitter].

The provider's own protocol is intentionally thin; only the contract the
session layer depends on is modelled here.
*/
package identity

import "context"

// # Domain Entities

// Identity is the provider-owned description of the signed-in subject.
//
// A nil *Identity means "signed out".
type Identity struct {
	// SubjectID is the stable provider identifier. It is the only field used
	// to correlate an identity with a backend profile.
	SubjectID   string `json:"subject_id"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`

	// Token is the provider ID token, presented as a bearer credential to the backend.
	Token string `json:"-"`
}

// Clone returns a copy of the identity, preserving nil.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	clone := *i
	return &clone
}

// # Event Stream

// Listener receives identity changes. A nil identity means signed out.
type Listener func(identity *Identity)

// Subscription is a cancellable registration on an [Events] stream.
type Subscription interface {
	// Unsubscribe stops delivery. It is safe to call more than once.
	Unsubscribe()
}

// Events is the identity change stream.
type Events interface {
	// Subscribe registers listener and immediately delivers the current identity.
	Subscribe(listener Listener) Subscription
}

// # Provider Calls

// Provider is the set of explicit calls made against the identity provider.
//
// Every method returns a [*ProviderError] for provider-reported failures.
type Provider interface {
	Events

	// SignInWithPassword authenticates with email and password.
	SignInWithPassword(ctx context.Context, email, password string) (*Identity, error)

	// CreateAccount registers a new email/password account and signs it in.
	CreateAccount(ctx context.Context, email, password, displayName string) (*Identity, error)

	// SignOut ends the provider session. Subscribers observe a nil identity
	// even when the remote call fails.
	SignOut(ctx context.Context) error

	// Refresh exchanges the refresh credential for a new ID token.
	Refresh(ctx context.Context) (*Identity, error)
}
