// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apiclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/lexdesk/internal/platform/apiclient"
	"github.com/taibuivan/lexdesk/internal/platform/apperr"
)

/*
TestClient_Do_Success unwraps the data envelope and sends the bearer token.
*/
func TestClient_Do_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "Bearer token-1", request.Header.Get("Authorization"))
		assert.Equal(t, "application/json", request.Header.Get("Content-Type"))
		_, _ = writer.Write([]byte(`{"data":{"name":"Ada"}}`))
	}))
	defer server.Close()

	client := apiclient.New(server.URL+"/", nil, func() string { return "token-1" })

	request, err := apiclient.JSON(http.MethodPost, "/users/sync", map[string]string{"name": "Ada"})
	require.NoError(t, err)

	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, client.Do(context.Background(), request, &out))
	assert.Equal(t, "Ada", out.Name)
}

/*
TestClient_Do_ErrorEnvelope returns backend failures as AppError.
*/
func TestClient_Do_ErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = writer.Write([]byte(`{"error":"Email is invalid","code":"VALIDATION_ERROR"}`))
	}))
	defer server.Close()

	client := apiclient.New(server.URL, nil, nil)
	err := client.Do(context.Background(), apiclient.Request{Method: http.MethodGet, Path: "/x"}, nil)

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperr.CodeValidation, appErr.Code)
	assert.Equal(t, "Email is invalid", appErr.Message)
}

/*
TestClient_Do_MissingEnvelope refuses payloads without a data member.
*/
func TestClient_Do_MissingEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte(`{"name":"Ada"}`))
	}))
	defer server.Close()

	client := apiclient.New(server.URL, nil, nil)
	var out map[string]any
	err := client.Do(context.Background(), apiclient.Request{Method: http.MethodGet, Path: "/x"}, &out)
	assert.True(t, apperr.HasCode(err, apperr.CodeUpstream))
}

/*
TestClient_Do_Deadline surfaces context deadlines unchanged.
*/
func TestClient_Do_Deadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		select {
		case <-request.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := apiclient.New(server.URL, nil, nil)
	err := client.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: "/slow"}, nil)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
