// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/vitrina-io/vitrina/internal/config"
	"github.com/vitrina-io/vitrina/internal/metrics"
)

// ErrNotFound is returned for upstream 404 responses.
var ErrNotFound = errors.New("upstream resource not found")

// httpClient is the shared transport for all upstream clients: one
// circuit breaker per upstream, bounded retry per call.
type httpClient struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  zerolog.Logger

	retryMaxAttempts     int
	retryInitialInterval time.Duration
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func newHTTPClient(name string, cfg config.ClientConfig, logger zerolog.Logger) *httpClient {
	clientLogger := logger.With().Str("component", "sources").Str("upstream", name).Logger()

	settings := gobreaker.Settings{
		Name:    name,
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.BreakerFailureThreshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetBreakerState(name, to.String())
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			clientLogger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msgf("circuit breaker %s changed state", name)
		},
	}

	return &httpClient{
		name:                 name,
		baseURL:              cfg.BaseURL,
		apiKey:               cfg.APIKey,
		client:               &http.Client{Timeout: cfg.Timeout},
		breaker:              gobreaker.NewCircuitBreaker[[]byte](settings),
		logger:               clientLogger,
		retryMaxAttempts:     cfg.RetryMaxAttempts,
		retryInitialInterval: cfg.RetryInitialInterval,
	}
}

// getJSON performs a GET against path, decoding the response into out.
// The call goes through the circuit breaker; transient failures retry
// with exponential backoff until the context or the attempt budget runs
// out.
func (c *httpClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.fetchWithRetry(ctx, reqURL)
	})
	metrics.SourceRequestDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SourceErrors.WithLabelValues(c.name).Inc()
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.name, err)
	}
	return nil
}

// fetchWithRetry executes the request with bounded exponential backoff.
// 4xx responses are permanent; network errors and 5xx responses retry.
func (c *httpClient) fetchWithRetry(ctx context.Context, reqURL string) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInitialInterval

	attempts := uint64(0)
	if c.retryMaxAttempts > 1 {
		attempts = uint64(c.retryMaxAttempts - 1)
	}

	var body []byte
	operation := func() error {
		var err error
		body, err = c.fetchOnce(ctx, reqURL)
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, attempts), ctx))
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *httpClient) fetchOnce(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%s: create request: %w", c.name, err))
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: read response: %w", c.name, err)
		}
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(fmt.Errorf("%s: %w", c.name, ErrNotFound))
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%s: upstream status %d", c.name, resp.StatusCode)
	default:
		return nil, backoff.Permanent(fmt.Errorf("%s: upstream status %d", c.name, resp.StatusCode))
	}
}

// BreakerState returns the circuit breaker state for monitoring.
func (c *httpClient) BreakerState() string {
	return c.breaker.State().String()
}
