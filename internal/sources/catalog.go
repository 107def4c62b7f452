// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/vitrina-io/vitrina/internal/config"
	"github.com/vitrina-io/vitrina/internal/recommend"
)

// CatalogClient talks to the storefront catalog API. It serves two
// roles: authoritative product resolution for the cache, and the
// product pool the fallback chain samples from.
type CatalogClient struct {
	http *httpClient
}

// NewCatalogClient creates a catalog client.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCatalogClient(cfg config.ClientConfig, logger zerolog.Logger) *CatalogClient {
	return &CatalogClient{http: newHTTPClient("catalog", cfg, logger)}
}

// catalogProduct is the catalog API's product wire format.
type catalogProduct struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Price        float64        `json:"price"`
	Category     string         `json:"category"`
	ImageURL     string         `json:"image_url"`
	Tags         []string       `json:"tags"`
	VariantCount int            `json:"variant_count"`
	Attributes   map[string]any `json:"attributes"`
}

func (p catalogProduct) toProduct() recommend.Product {
	return recommend.Product{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		Price:        p.Price,
		Category:     p.Category,
		ImageURL:     p.ImageURL,
		Tags:         p.Tags,
		VariantCount: p.VariantCount,
		Raw:          p.Attributes,
	}
}

// Resolve fetches one product by ID. A catalog 404 maps to
// recommend.ErrProductNotFound.
func (c *CatalogClient) Resolve(ctx context.Context, id string) (recommend.Product, error) {
	var resp struct {
		Product catalogProduct `json:"product"`
	}

	path := "/v1/products/" + url.PathEscape(id)
	if err := c.http.getJSON(ctx, path, nil, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return recommend.Product{}, recommend.ErrProductNotFound
		}
		return recommend.Product{}, fmt.Errorf("resolve product %s: %w", id, err)
	}
	return resp.Product.toProduct(), nil
}

// Products returns the available product pool.
func (c *CatalogClient) Products(ctx context.Context) ([]recommend.Product, error) {
	var resp struct {
		Products []catalogProduct `json:"products"`
	}

	if err := c.http.getJSON(ctx, "/v1/products", nil, &resp); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	products := make([]recommend.Product, 0, len(resp.Products))
	for _, p := range resp.Products {
		products = append(products, p.toProduct())
	}
	return products, nil
}

// ProductIDs returns just the IDs of the available pool, for preloads.
func (c *CatalogClient) ProductIDs(ctx context.Context) ([]string, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids, nil
}

// BreakerState returns the circuit breaker state for monitoring.
func (c *CatalogClient) BreakerState() string {
	return c.http.BreakerState()
}

// Verify interface implementations at compile time
var (
	_ recommend.ProductResolver = (*CatalogClient)(nil)
	_ recommend.CatalogSource   = (*CatalogClient)(nil)
)
