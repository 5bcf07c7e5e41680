// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apiclient is the thin transport used to reach the backend REST API.

The backend wraps successful payloads as {"data": ...} and failures as
{"error": "...", "code": "..."}; this package unwraps both so that callers only
deal with typed values and [*apperr.AppError].
*/
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/taibuivan/lexdesk/internal/platform/apperr"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodySize    = 4 << 20
)

// TokenSource returns the bearer credential for the next request.
// An empty string sends the request anonymously.
type TokenSource func() string

// Client issues authenticated requests against the backend API.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenSource
}

// New creates a Client. A nil httpClient gets a 15s default timeout.
func New(baseURL string, httpClient *http.Client, token TokenSource) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		token:   token,
	}
}

// Request describes a single API call.
type Request struct {
	Method      string
	Path        string
	Body        io.Reader
	ContentType string
	// Token overrides the client's TokenSource when set.
	Token string
}

// JSON builds a Request with a JSON-encoded body.
func JSON(method, path string, payload any) (Request, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Request{}, fmt.Errorf("apiclient: encode payload: %w", err)
	}
	return Request{
		Method:      method,
		Path:        path,
		Body:        bytes.NewReader(encoded),
		ContentType: "application/json",
	}, nil
}

// Do executes the request and decodes the "data" member into target.
//
// Non-2xx answers are returned as [*apperr.AppError]; a nil target discards
// the payload.
func (c *Client) Do(ctx context.Context, request Request, target any) error {
	httpRequest, err := http.NewRequestWithContext(ctx, request.Method, c.baseURL+request.Path, request.Body)
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}

	httpRequest.Header.Set("Accept", "application/json")
	if request.ContentType != "" {
		httpRequest.Header.Set("Content-Type", request.ContentType)
	}

	token := request.Token
	if token == "" {
		token = c.token()
	}
	if token != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := c.http.Do(httpRequest)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("apiclient: %s %s: %w", request.Method, request.Path, ctxErr)
		}
		var netTimeout interface{ Timeout() bool }
		if errors.As(err, &netTimeout) && netTimeout.Timeout() {
			return apperr.Timeout("The server took too long to respond", err)
		}
		return apperr.ServiceUnavailable("The server is unreachable").WithCause(err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(response.Body, maxBodySize))
	if err != nil {
		return apperr.Upstream("The server response could not be read", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return apperr.Decode(response.StatusCode, raw)
	}

	if target == nil || len(raw) == 0 {
		return nil
	}

	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.Data) == 0 {
		return apperr.Upstream("The server sent an unexpected response", fmt.Errorf("apiclient: missing data envelope: %v", err))
	}

	if err := json.Unmarshal(envelope.Data, target); err != nil {
		return apperr.Upstream("The server sent an unexpected response", err)
	}

	return nil
}
