//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

package model

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionJSON = `{
  "id": "chatcmpl-test",
  "object": "chat.completion",
  "model": "test-model",
  "choices": [{"index": 0, "finish_reason": "stop",
    "message": {"role": "assistant", "content": "Final Diagnosis: appendicitis"}}],
  "usage": {"prompt_tokens": 42, "completion_tokens": 7, "total_tokens": 49}
}`

func newTestClient(url string, opt ...Option) *Client {
	opts := append([]Option{
		WithBaseURL(url),
		WithAPIKey("test-key"),
		WithBackoff(time.Millisecond, 2*time.Millisecond),
	}, opt...)
	return New("test-model", opts...)
}

// TestGenerateReturnsContentAndUsage verifies a successful completion.
func TestGenerateReturnsContentAndUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionJSON))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).Generate(context.Background(), []Message{
		System("You are a medical assistant."),
		User("Diagnose."),
	})
	require.NoError(t, err)
	assert.Equal(t, "Final Diagnosis: appendicitis", resp.Content)
	assert.Equal(t, int64(42), resp.PromptTokens)
	assert.Equal(t, int64(7), resp.CompletionTokens)
}

// TestGenerateRetriesServerErrors verifies 5xx responses are retried
// until a success arrives.
func TestGenerateRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionJSON))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).Generate(context.Background(), []Message{User("hi")})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "Final Diagnosis: appendicitis", resp.Content)
}

// TestGenerateExhaustsRetries verifies the attempt cap and the wrapped
// final error.
func TestGenerateExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, WithMaxAttempts(2)).Generate(context.Background(), []Message{User("hi")})
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Contains(t, err.Error(), "exhausted retries")
}

// TestGenerateDoesNotRetryClientErrors verifies a 400 fails immediately.
func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error": {"message": "bad request"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), []Message{User("hi")})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
