// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/vitrina-io/vitrina/internal/config"
	"github.com/vitrina-io/vitrina/internal/metrics"
	"github.com/vitrina-io/vitrina/internal/recommend"
)

// ContentClient queries the content-similarity service for products
// similar to an anchor product.
type ContentClient struct {
	http *httpClient
}

// NewContentClient creates a content source client.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewContentClient(cfg config.ClientConfig, logger zerolog.Logger) *ContentClient {
	return &ContentClient{http: newHTTPClient("content", cfg, logger)}
}

// contentResponse is the similarity service's wire format.
type contentResponse struct {
	Candidates []struct {
		ProductID string  `json:"product_id"`
		Score     float64 `json:"score"`
	} `json:"candidates"`
}

// Query returns up to n similarity candidates for the anchor product.
func (c *ContentClient) Query(ctx context.Context, productID string, n int) ([]recommend.CandidateScore, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(n))

	var resp contentResponse
	path := "/v1/similar/" + url.PathEscape(productID)
	if err := c.http.getJSON(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("content query for %s: %w", productID, err)
	}

	scores := make([]recommend.CandidateScore, 0, len(resp.Candidates))
	for _, cand := range resp.Candidates {
		scores = append(scores, recommend.CandidateScore{
			ProductID: cand.ProductID,
			Score:     cand.Score,
			Source:    recommend.SourceContent,
		})
	}
	metrics.SourceCandidatesReturned.WithLabelValues("content").Add(float64(len(scores)))
	return scores, nil
}

// BreakerState returns the circuit breaker state for monitoring.
func (c *ContentClient) BreakerState() string {
	return c.http.BreakerState()
}

// Verify interface implementation at compile time
var _ recommend.ContentCandidateSource = (*ContentClient)(nil)
