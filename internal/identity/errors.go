// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/taibuivan/lexdesk/internal/platform/apperr"
)

// # Provider Error Codes

// ErrorCode is a stable, provider-independent failure code.
type ErrorCode string

const (
	CodeInvalidCredential   ErrorCode = "invalid-credential"
	CodeWeakPassword        ErrorCode = "weak-password"
	CodeEmailInUse          ErrorCode = "email-already-in-use"
	CodeTooManyRequests     ErrorCode = "too-many-requests"
	CodeRequiresRecentLogin ErrorCode = "requires-recent-login"
	CodeNetworkFailure      ErrorCode = "network-request-failed"
	CodePopupClosed         ErrorCode = "popup-closed-by-user"
	CodeUserDisabled        ErrorCode = "user-disabled"
	CodeUnknown             ErrorCode = "unknown"
)

// ProviderError is returned by [Provider] calls for provider-reported failures.
type ProviderError struct {
	Code ErrorCode
	// Reason is the raw provider message, kept for logs only.
	Reason string
	Cause  error
}

func (e *ProviderError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("identity: %s", e.Code)
	}
	return fmt.Sprintf("identity: %s: %s", e.Code, e.Reason)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// IsCode reports whether err is a [*ProviderError] with the given code.
func IsCode(err error, code ErrorCode) bool {
	var providerErr *ProviderError
	return errors.As(err, &providerErr) && providerErr.Code == code
}

// reasonCodes maps raw provider reasons onto stable codes.
var reasonCodes = map[string]ErrorCode{
	"INVALID_LOGIN_CREDENTIALS":      CodeInvalidCredential,
	"INVALID_PASSWORD":               CodeInvalidCredential,
	"EMAIL_NOT_FOUND":                CodeInvalidCredential,
	"INVALID_EMAIL":                  CodeInvalidCredential,
	"INVALID_REFRESH_TOKEN":          CodeRequiresRecentLogin,
	"TOKEN_EXPIRED":                  CodeRequiresRecentLogin,
	"CREDENTIAL_TOO_OLD_LOGIN_AGAIN": CodeRequiresRecentLogin,
	"WEAK_PASSWORD":                  CodeWeakPassword,
	"EMAIL_EXISTS":                   CodeEmailInUse,
	"TOO_MANY_ATTEMPTS_TRY_LATER":    CodeTooManyRequests,
	"USER_DISABLED":                  CodeUserDisabled,
	"POPUP_CLOSED_BY_USER":           CodePopupClosed,
}

// codeFromReason resolves a provider reason such as
// "WEAK_PASSWORD : Password should be at least 6 characters".
func codeFromReason(reason string) ErrorCode {
	key := strings.TrimSpace(reason)
	if head, _, found := strings.Cut(key, " "); found {
		key = head
	}
	if code, ok := reasonCodes[key]; ok {
		return code
	}
	return CodeUnknown
}

// # User-Facing Messages

var codeMessages = map[ErrorCode]*apperr.AppError{
	CodeInvalidCredential:   {Code: apperr.CodeUnauthorized, Message: "Invalid email or password", HTTPStatus: http.StatusUnauthorized},
	CodeWeakPassword:        {Code: apperr.CodeValidation, Message: "Password is too weak. Use at least 6 characters", HTTPStatus: http.StatusBadRequest},
	CodeEmailInUse:          {Code: apperr.CodeConflict, Message: "An account with this email already exists", HTTPStatus: http.StatusConflict},
	CodeTooManyRequests:     {Code: apperr.CodeRateLimited, Message: "Too many attempts. Please wait a moment and try again", HTTPStatus: http.StatusTooManyRequests},
	CodeRequiresRecentLogin: {Code: apperr.CodeUnauthorized, Message: "Please sign in again to continue", HTTPStatus: http.StatusUnauthorized},
	CodeNetworkFailure:      {Code: apperr.CodeServiceUnavailable, Message: "Network error. Check your connection and try again", HTTPStatus: http.StatusServiceUnavailable},
	CodePopupClosed:         {Code: apperr.CodeUnauthorized, Message: "The sign-in window was closed before finishing", HTTPStatus: http.StatusUnauthorized},
	CodeUserDisabled:        {Code: apperr.CodeForbidden, Message: "This account has been disabled", HTTPStatus: http.StatusForbidden},
	CodeUnknown:             {Code: apperr.CodeUnauthorized, Message: "Authentication failed. Please try again", HTTPStatus: http.StatusUnauthorized},
}

// Describe converts any error returned by the session layer into a
// human-readable [*apperr.AppError].
//
// Provider errors map to fixed messages, application errors pass through,
// deadlines become timeouts and everything else is an internal error.
func Describe(err error) *apperr.AppError {
	if err == nil {
		return nil
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		template, ok := codeMessages[providerErr.Code]
		if !ok {
			template = codeMessages[CodeUnknown]
		}
		return template.WithCause(err)
	}

	if appErr := apperr.As(err); appErr != nil {
		return appErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Timeout("The server took too long to respond", err)
	}

	return apperr.Internal(err)
}
