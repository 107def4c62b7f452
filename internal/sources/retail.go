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

// RetailClient queries the retail recommendation API for collaborative
// candidates based on user behavior.
type RetailClient struct {
	http *httpClient
}

// NewRetailClient creates a retail source client.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRetailClient(cfg config.ClientConfig, logger zerolog.Logger) *RetailClient {
	return &RetailClient{http: newHTTPClient("retail", cfg, logger)}
}

// retailResponse is the retail API's wire format.
type retailResponse struct {
	Recommendations []struct {
		ProductID string  `json:"product_id"`
		Score     float64 `json:"score"`
	} `json:"recommendations"`
}

// Query returns up to n collaborative candidates for the user. productID
// may be empty for purely user-based retrieval.
func (c *RetailClient) Query(ctx context.Context, userID, productID string, n int) ([]recommend.CandidateScore, error) {
	query := url.Values{}
	query.Set("user_id", userID)
	query.Set("limit", strconv.Itoa(n))
	if productID != "" {
		query.Set("product_id", productID)
	}

	var resp retailResponse
	if err := c.http.getJSON(ctx, "/v1/recommendations", query, &resp); err != nil {
		return nil, fmt.Errorf("retail query for %s: %w", userID, err)
	}

	scores := make([]recommend.CandidateScore, 0, len(resp.Recommendations))
	for _, rec := range resp.Recommendations {
		scores = append(scores, recommend.CandidateScore{
			ProductID: rec.ProductID,
			Score:     rec.Score,
			Source:    recommend.SourceRetail,
		})
	}
	metrics.SourceCandidatesReturned.WithLabelValues("retail").Add(float64(len(scores)))
	return scores, nil
}

// BreakerState returns the circuit breaker state for monitoring.
func (c *RetailClient) BreakerState() string {
	return c.http.BreakerState()
}

// Verify interface implementation at compile time
var _ recommend.RetailCandidateSource = (*RetailClient)(nil)
