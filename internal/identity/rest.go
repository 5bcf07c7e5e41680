// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/lexdesk/internal/platform/sec"
)

// # REST Provider

const (
	defaultProviderTimeout = 15 * time.Second
	persistTimeout         = 3 * time.Second
	maxProviderBody        = 1 << 20

	pathSignIn  = "/v1/accounts:signInWithPassword"
	pathSignUp  = "/v1/accounts:signUp"
	pathSignOut = "/v1/accounts:signOut"
	pathRefresh = "/v1/token"
)

// RESTConfig configures a [RESTProvider].
type RESTConfig struct {
	// BaseURL is the provider root, e.g. "https://identity.example.com".
	BaseURL string
	// APIKey is the public project key sent as the "key" query parameter.
	APIKey string
	// Verifier validates ID tokens before they are trusted.
	Verifier *sec.TokenVerifier
	// HTTPClient defaults to a client with a 15s timeout.
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Persistence keeps the provider credentials across restarts. Optional.
	Persistence Persistence
}

// Persistence is the key/value slot the provider stores its credentials in.
type Persistence interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// persistKey is the slot holding the provider's own credentials.
const persistKey = "identity"

// persistedCredentials is the JSON stored under [persistKey].
type persistedCredentials struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
}

// RESTProvider talks to a hosted email/password identity provider over HTTPS
// and publishes every identity change through an [Emitter].
type RESTProvider struct {
	baseURL  string
	apiKey   string
	verifier *sec.TokenVerifier
	client   *http.Client
	logger   *slog.Logger
	emitter  *Emitter
	persist  Persistence

	mu           sync.Mutex
	refreshToken string
	expiresAt    time.Time
}

// NewRESTProvider constructs a provider client.
func NewRESTProvider(cfg RESTConfig) (*RESTProvider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("identity: base URL is required")
	}
	if cfg.Verifier == nil {
		return nil, errors.New("identity: token verifier is required")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultProviderTimeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RESTProvider{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		verifier: cfg.Verifier,
		client:   client,
		logger:   logger,
		emitter:  NewEmitter(),
		persist:  cfg.Persistence,
	}, nil
}

// Subscribe implements [Events].
func (p *RESTProvider) Subscribe(listener Listener) Subscription {
	return p.emitter.Subscribe(listener)
}

// Restore reinstates a previously persisted session without a network call.
//
// The ID token must still verify; otherwise the provider stays signed out.
// Call Restore before subscribers attach so that they see the restored
// identity as the initial state.
func (p *RESTProvider) Restore(idToken, refreshToken string) error {
	identity, expiresAt, err := p.identityFromToken(idToken, nil)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.refreshToken = refreshToken
	p.expiresAt = expiresAt
	p.mu.Unlock()

	p.emitter.Emit(identity)
	return nil
}

// Resume restores the credentials saved by a previous process.
//
// An expired ID token is exchanged through the refresh token. When nothing
// usable is stored the provider stays signed out and Resume returns nil.
func (p *RESTProvider) Resume(ctx context.Context) error {
	if p.persist == nil {
		return nil
	}

	raw, err := p.persist.Get(ctx, persistKey)
	if err != nil || len(raw) == 0 {
		return nil
	}

	var saved persistedCredentials
	if err := json.Unmarshal(raw, &saved); err != nil {
		p.logger.Warn("identity_persisted_credentials_corrupt", slog.Any("error", err))
		p.forget(ctx)
		return nil
	}

	if err := p.Restore(saved.IDToken, saved.RefreshToken); err == nil {
		return nil
	}

	if saved.RefreshToken == "" {
		p.forget(ctx)
		return nil
	}

	p.mu.Lock()
	p.refreshToken = saved.RefreshToken
	p.mu.Unlock()

	if _, err := p.Refresh(ctx); err != nil {
		p.mu.Lock()
		p.refreshToken = ""
		p.mu.Unlock()
		if IsCode(err, CodeRequiresRecentLogin) || IsCode(err, CodeUserDisabled) {
			p.forget(ctx)
			return nil
		}
		return err
	}
	return nil
}

// remember saves the current credentials when persistence is configured.
func (p *RESTProvider) remember(idToken, refreshToken string) {
	if p.persist == nil {
		return
	}

	encoded, err := json.Marshal(persistedCredentials{IDToken: idToken, RefreshToken: refreshToken})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := p.persist.Set(ctx, persistKey, encoded); err != nil {
		p.logger.Warn("identity_persist_failed", slog.Any("error", err))
	}
}

// forget removes the saved credentials.
func (p *RESTProvider) forget(ctx context.Context) {
	if p.persist == nil {
		return
	}
	if err := p.persist.Delete(context.WithoutCancel(ctx), persistKey); err != nil {
		p.logger.Warn("identity_forget_failed", slog.Any("error", err))
	}
}

// RefreshToken returns the current refresh credential, if any.
func (p *RESTProvider) RefreshToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshToken
}

// tokenResponse is the provider's answer to sign-in, sign-up and refresh.
type tokenResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`

	// Refresh responses use snake_case.
	IDTokenAlt      string `json:"id_token"`
	RefreshTokenAlt string `json:"refresh_token"`
}

func (r *tokenResponse) normalize() {
	if r.IDToken == "" {
		r.IDToken = r.IDTokenAlt
	}
	if r.RefreshToken == "" {
		r.RefreshToken = r.RefreshTokenAlt
	}
}

// SignInWithPassword implements [Provider].
func (p *RESTProvider) SignInWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	var response tokenResponse
	err := p.post(ctx, pathSignIn, map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &response)
	if err != nil {
		return nil, err
	}

	return p.establish(&response)
}

// CreateAccount implements [Provider].
func (p *RESTProvider) CreateAccount(ctx context.Context, email, password, displayName string) (*Identity, error) {
	var response tokenResponse
	err := p.post(ctx, pathSignUp, map[string]any{
		"email":             email,
		"password":          password,
		"displayName":       displayName,
		"returnSecureToken": true,
	}, &response)
	if err != nil {
		return nil, err
	}

	if response.DisplayName == "" {
		response.DisplayName = displayName
	}
	return p.establish(&response)
}

// Refresh implements [Provider].
func (p *RESTProvider) Refresh(ctx context.Context) (*Identity, error) {
	refreshToken := p.RefreshToken()
	if refreshToken == "" {
		return nil, &ProviderError{Code: CodeRequiresRecentLogin, Reason: "no refresh token"}
	}

	var response tokenResponse
	err := p.post(ctx, pathRefresh, map[string]any{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	}, &response)
	if err != nil {
		return nil, err
	}

	return p.establish(&response)
}

// SignOut implements [Provider].
//
// The refresh token is revoked remotely on a best-effort basis; the local
// session is dropped and a nil identity emitted regardless of the outcome.
func (p *RESTProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	refreshToken := p.refreshToken
	p.refreshToken = ""
	p.expiresAt = time.Time{}
	p.mu.Unlock()

	var remoteErr error
	if refreshToken != "" {
		remoteErr = p.post(ctx, pathSignOut, map[string]any{"refreshToken": refreshToken}, nil)
	}

	p.forget(ctx)
	p.emitter.Emit(nil)
	return remoteErr
}

// KeepFresh refreshes the ID token shortly before it expires until ctx ends.
//
// A refresh rejected by the provider signs the user out; transient failures
// are retried on the next tick.
func (p *RESTProvider) KeepFresh(ctx context.Context, lead time.Duration) {
	const retryDelay = 30 * time.Second

	for {
		p.mu.Lock()
		expiresAt := p.expiresAt
		p.mu.Unlock()

		wait := retryDelay
		if !expiresAt.IsZero() {
			wait = time.Until(expiresAt.Add(-lead))
			if wait < time.Second {
				wait = time.Second
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if p.RefreshToken() == "" {
			continue
		}

		if _, err := p.Refresh(ctx); err != nil {
			if IsCode(err, CodeRequiresRecentLogin) || IsCode(err, CodeUserDisabled) {
				p.logger.Warn("identity_refresh_rejected", slog.Any("error", err))
				_ = p.SignOut(ctx)
				continue
			}
			p.logger.Warn("identity_refresh_failed", slog.Any("error", err))
		}
	}
}

// establish verifies the returned token, records the session and emits it.
func (p *RESTProvider) establish(response *tokenResponse) (*Identity, error) {
	response.normalize()

	identity, expiresAt, err := p.identityFromToken(response.IDToken, response)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if response.RefreshToken != "" {
		p.refreshToken = response.RefreshToken
	}
	p.expiresAt = expiresAt
	refreshToken := p.refreshToken
	p.mu.Unlock()

	p.remember(response.IDToken, refreshToken)
	p.emitter.Emit(identity)
	return identity.Clone(), nil
}

// identityFromToken builds an [Identity] from a verified ID token, falling
// back to response fields for hints the token does not carry.
func (p *RESTProvider) identityFromToken(idToken string, response *tokenResponse) (*Identity, time.Time, error) {
	claims, err := p.verifier.Verify(idToken)
	if err != nil {
		return nil, time.Time{}, &ProviderError{Code: CodeRequiresRecentLogin, Reason: "id token rejected", Cause: err}
	}

	identity := &Identity{
		SubjectID:   claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
		PhotoURL:    claims.Picture,
		Token:       idToken,
	}

	if response != nil {
		if response.LocalID != "" && response.LocalID != claims.Subject {
			return nil, time.Time{}, &ProviderError{Code: CodeUnknown, Reason: "token subject does not match account"}
		}
		if identity.DisplayName == "" {
			identity.DisplayName = response.DisplayName
		}
		if identity.Email == "" {
			identity.Email = response.Email
		}
		if identity.PhotoURL == "" {
			identity.PhotoURL = response.PhotoURL
		}
	}

	return identity, claims.ExpiresAtTime(), nil
}

// # Transport

// providerErrorBody is the provider failure envelope.
type providerErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *RESTProvider) post(ctx context.Context, path string, payload any, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("identity: encode request: %w", err)
	}

	endpoint := p.baseURL + path
	if p.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(p.apiKey)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("identity: build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := p.client.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ProviderError{Code: CodeNetworkFailure, Reason: "request failed", Cause: err}
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(response.Body, maxProviderBody))
	if err != nil {
		return &ProviderError{Code: CodeNetworkFailure, Reason: "read response", Cause: err}
	}

	if response.StatusCode >= http.StatusBadRequest {
		var failure providerErrorBody
		if jsonErr := json.Unmarshal(raw, &failure); jsonErr != nil || failure.Error.Message == "" {
			if response.StatusCode == http.StatusTooManyRequests {
				return &ProviderError{Code: CodeTooManyRequests, Reason: response.Status}
			}
			return &ProviderError{Code: CodeUnknown, Reason: response.Status}
		}
		return &ProviderError{Code: codeFromReason(failure.Error.Message), Reason: failure.Error.Message}
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return &ProviderError{Code: CodeUnknown, Reason: "malformed response", Cause: err}
	}
	return nil
}
