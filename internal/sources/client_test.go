// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitrina-io/vitrina/internal/config"
)

func testClientConfig(baseURL string) config.ClientConfig {
	return config.ClientConfig{
		Enabled:                 true,
		BaseURL:                 baseURL,
		Timeout:                 2 * time.Second,
		RetryMaxAttempts:        3,
		RetryInitialInterval:    time.Millisecond,
		BreakerFailureThreshold: 5,
		BreakerOpenTimeout:      100 * time.Millisecond,
	}
}

func TestGetJSONSendsAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cfg := testClientConfig(srv.URL)
	cfg.APIKey = "secret"
	c := newHTTPClient("test", cfg, zerolog.Nop())

	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.getJSON(context.Background(), "/v1/ping", nil, &out); err != nil {
		t.Fatalf("getJSON: %v", err)
	}
	if !out.OK {
		t.Error("response not decoded")
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want Bearer secret", gotAuth)
	}
}

func TestGetJSONRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newHTTPClient("test", testClientConfig(srv.URL), zerolog.Nop())

	var out struct{}
	if err := c.getJSON(context.Background(), "/v1/ping", nil, &out); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestGetJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newHTTPClient("test", testClientConfig(srv.URL), zerolog.Nop())

	var out struct{}
	if err := c.getJSON(context.Background(), "/v1/ping", nil, &out); err == nil {
		t.Fatal("expected error for 400 response")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", calls.Load())
	}
}

func TestGetJSONExhaustsRetryBudget(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newHTTPClient("test", testClientConfig(srv.URL), zerolog.Nop())

	var out struct{}
	if err := c.getJSON(context.Background(), "/v1/ping", nil, &out); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3 attempts", calls.Load())
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testClientConfig(srv.URL)
	cfg.RetryMaxAttempts = 1
	cfg.BreakerFailureThreshold = 2
	c := newHTTPClient("test", cfg, zerolog.Nop())

	var out struct{}
	for i := 0; i < 3; i++ {
		//nolint:errcheck // Failures are the point here
		c.getJSON(context.Background(), "/v1/ping", nil, &out)
	}

	if state := c.BreakerState(); state != "open" {
		t.Errorf("breaker state = %s, want open", state)
	}
}

func TestGetJSONContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	c := newHTTPClient("test", testClientConfig(srv.URL), zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var out struct{}
	if err := c.getJSON(ctx, "/v1/ping", nil, &out); err == nil {
		t.Error("expected error from canceled context")
	}
}
