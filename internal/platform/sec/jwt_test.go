// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/lexdesk/internal/platform/sec"
)

var testSecret = []byte("test-identity-secret")

func signToken(t *testing.T, claims sec.IdentityClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

/*
TestTokenVerifier_Valid verifies that profile hints survive the round trip.
*/
func TestTokenVerifier_Valid(t *testing.T) {
	verifier, err := sec.NewHMACVerifier(testSecret, sec.WithIssuer("idp.test"))
	require.NoError(t, err)

	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signToken(t, sec.IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "subject-1",
			Issuer:    "idp.test",
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
		Name:  "Ada Counsel",
		Email: "ada@example.com",
	})

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "subject-1", claims.Subject)
	assert.Equal(t, "Ada Counsel", claims.Name)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.True(t, claims.ExpiresAtTime().Equal(expiry))
}

/*
TestTokenVerifier_Rejects covers expired, foreign and subject-less tokens.
*/
func TestTokenVerifier_Rejects(t *testing.T) {
	verifier, err := sec.NewHMACVerifier(testSecret, sec.WithIssuer("idp.test"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		claims sec.IdentityClaims
	}{
		{"expired", sec.IdentityClaims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: "s", Issuer: "idp.test", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}},
		{"wrong_issuer", sec.IdentityClaims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: "s", Issuer: "other", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}}},
		{"missing_subject", sec.IdentityClaims{RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "idp.test", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}}},
		{"missing_expiry", sec.IdentityClaims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: "s", Issuer: "idp.test",
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(signToken(t, tt.claims))
			assert.Error(t, err)
		})
	}

	_, err = verifier.Verify("not-a-jwt")
	assert.Error(t, err)

	_, err = sec.NewHMACVerifier(nil)
	assert.Error(t, err)
}
