// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and the closed role model.
//
// # Architecture
//
// This package isolates security-sensitive code (ID-token verification, sealed
// storage) from the session logic. The identity provider client depends on
// [TokenVerifier] to turn an opaque ID token into a trusted subject.
package sec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims represents the payload of an ID token issued by the identity provider.
//
// # Why custom claims?
//
// The provider embeds basic profile hints (name, email, picture) next to the
// subject so that a sign-in event can be turned into profile-sync hints
// without another round trip.
type IdentityClaims struct {
	jwt.RegisteredClaims

	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// ExpiresAtTime returns the token expiry, or the zero time when the claim is absent.
func (c *IdentityClaims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// TokenVerifier checks ID-token signatures and validity.
type TokenVerifier struct {
	keyFunc  jwt.Keyfunc
	issuer   string
	audience string
}

// VerifierOption customises a [TokenVerifier].
type VerifierOption func(*TokenVerifier)

// WithIssuer requires the 'iss' claim to match.
func WithIssuer(issuer string) VerifierOption {
	return func(v *TokenVerifier) { v.issuer = issuer }
}

// WithAudience requires the 'aud' claim to contain audience.
func WithAudience(audience string) VerifierOption {
	return func(v *TokenVerifier) { v.audience = audience }
}

// NewHMACVerifier creates a verifier for HS256 tokens signed with secret.
func NewHMACVerifier(secret []byte, options ...VerifierOption) (*TokenVerifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("sec: hmac secret must not be empty")
	}

	verifier := &TokenVerifier{
		keyFunc: func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		},
	}
	for _, option := range options {
		option(verifier)
	}
	return verifier, nil
}

// NewRSAVerifier creates a verifier for RS256 tokens.
// It reads the PEM-encoded public key from the provided filesystem path.
func NewRSAVerifier(publicKeyPath string, options ...VerifierOption) (*TokenVerifier, error) {
	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read public key from %s: %w", publicKeyPath, err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse public key: %w", err)
	}

	return newRSAVerifier(publicKey, options...), nil
}

func newRSAVerifier(publicKey *rsa.PublicKey, options ...VerifierOption) *TokenVerifier {
	verifier := &TokenVerifier{
		keyFunc: func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
			}
			return publicKey, nil
		},
	}
	for _, option := range options {
		option(verifier)
	}
	return verifier
}

// Verify checks the signature and validity of an ID token and returns its claims.
func (verifier *TokenVerifier) Verify(tokenString string) (*IdentityClaims, error) {
	parserOptions := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if verifier.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(verifier.issuer))
	}
	if verifier.audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(verifier.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, verifier.keyFunc, parserOptions...)
	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return nil, errors.New("sec: invalid token claims")
	}

	if claims.Subject == "" {
		return nil, errors.New("sec: token has no subject")
	}

	return claims, nil
}
