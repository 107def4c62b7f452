// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package recommend

import (
	"context"
	"errors"
	"time"
)

// Product is the unit of recommendation. Instances are immutable once
// created; a re-fetch after cache expiry produces a new value rather than
// mutating an existing one.
type Product struct {
	// ID is the stable product identity.
	ID string `json:"id"`

	// Title is the display title.
	Title string `json:"title"`

	// Description is the free-text product description.
	Description string `json:"description"`

	// Price is the price in the currency-less base unit.
	Price float64 `json:"price"`

	// Category is the product category. Empty means uncategorized.
	Category string `json:"category,omitempty"`

	// ImageURL is the primary image URL, if any.
	ImageURL string `json:"image_url,omitempty"`

	// Tags is a slice of free-form tag names.
	Tags []string `json:"tags,omitempty"`

	// VariantCount is the number of purchasable variants.
	VariantCount int `json:"variant_count,omitempty"`

	// Raw is the opaque attribute bag from the upstream catalog.
	Raw map[string]any `json:"raw,omitempty"`
}

// Source identifies which candidate source produced a score.
type Source int

const (
	// SourceContent is the embedding-similarity candidate source.
	SourceContent Source = iota
	// SourceRetail is the collaborative retail-API candidate source.
	SourceRetail
)

// String returns a human-readable source name.
func (s Source) String() string {
	switch s {
	case SourceContent:
		return "content"
	case SourceRetail:
		return "retail"
	default:
		return "unknown"
	}
}

// CandidateScore is one entry of a ranked candidate list. Produced
// transiently per request and never persisted.
type CandidateScore struct {
	ProductID string  `json:"product_id"`
	Score     float64 `json:"score"`
	Source    Source  `json:"source"`
}

// InteractionEvent is a read-only record from the external event log.
type InteractionEvent struct {
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// Strategy names the path that produced a recommended item.
type Strategy string

const (
	// StrategyBlended is the primary path: weighted merge of the two
	// candidate sources.
	StrategyBlended Strategy = "blended"
	// StrategyQueryDriven samples from the category detected in free text.
	StrategyQueryDriven Strategy = "query_driven"
	// StrategyPersonalized allocates across the user's historical categories.
	StrategyPersonalized Strategy = "personalized"
	// StrategyPopular ranks by the popularity heuristic.
	StrategyPopular Strategy = "popular"
	// StrategyDiverse spreads picks across categories.
	StrategyDiverse Strategy = "diverse"
)

// Request describes one recommendation request.
type Request struct {
	// UserID identifies the requesting user. Required.
	UserID string `json:"user_id"`

	// ProductID is the anchor product for similarity, if any.
	ProductID string `json:"product_id,omitempty"`

	// QueryText is free text from the caller, used for category detection.
	QueryText string `json:"query_text,omitempty"`

	// N is the number of recommendations requested. Must be > 0; defaulted
	// and capped by the service from config.
	N int `json:"n,omitempty"`

	// ContentWeight is the blend weight w in [0,1]: w goes to the content
	// source, 1-w to the retail source.
	ContentWeight float64 `json:"content_weight"`

	// ExcludeProductIDs are IDs already shown in the current session.
	ExcludeProductIDs []string `json:"exclude_product_ids,omitempty"`

	// RequestID is a unique identifier for tracing.
	RequestID string `json:"request_id,omitempty"`
}

// RecommendedProduct is one entry of a recommendation result.
type RecommendedProduct struct {
	Product Product `json:"product"`

	// FinalScore is the combined score for blended results, or the
	// heuristic score for fallback results.
	FinalScore float64 `json:"final_score"`

	// Strategy is the path that produced this entry.
	Strategy Strategy `json:"strategy"`

	// Incomplete marks a stub whose full product data could not be
	// resolved. The stub still counts toward the requested n.
	Incomplete bool `json:"incomplete,omitempty"`
}

// Result is an ordered recommendation list. Invariants: no duplicate
// product IDs, length <= requested n.
type Result struct {
	Items []RecommendedProduct `json:"items"`

	// Metadata carries timing and diagnostic information.
	Metadata ResultMetadata `json:"metadata"`
}

// ResultMetadata carries timing and diagnostic information for one result.
type ResultMetadata struct {
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`

	// Strategy is the dominant strategy of the result (the strategy of the
	// highest-priority path that contributed items).
	Strategy Strategy `json:"strategy"`

	// Sources lists the candidate sources that contributed scores.
	Sources []string `json:"sources,omitempty"`

	// Excluded is the size of the combined exclusion set.
	Excluded int `json:"excluded"`

	// LatencyMS is the total request latency in milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	// Timestamp is when the result was generated.
	Timestamp time.Time `json:"timestamp"`
}

// ErrProductNotFound is returned by ProductResolver implementations when a
// product genuinely does not exist upstream.
var ErrProductNotFound = errors.New("product not found")

// LookupState classifies the outcome of an enrichment lookup.
type LookupState int

const (
	// LookupHit means full product data is available.
	LookupHit LookupState = iota
	// LookupMiss means neither cache nor resolver produced the product.
	LookupMiss
	// LookupResolverError means the resolver failed with a transport or
	// backend error; the product may still exist.
	LookupResolverError
)

// String returns a human-readable state name.
func (s LookupState) String() string {
	switch s {
	case LookupHit:
		return "hit"
	case LookupMiss:
		return "miss"
	case LookupResolverError:
		return "resolver_error"
	default:
		return "unknown"
	}
}

// Lookup is the tagged result of an enrichment lookup. Callers branch on
// State instead of interpreting errors.
type Lookup struct {
	Product Product
	State   LookupState

	// Err carries the resolver cause when State is LookupResolverError.
	Err error
}

// ProductResolver fetches authoritative product data on cache miss.
// Implementations return ErrProductNotFound for products that do not exist.
type ProductResolver interface {
	Resolve(ctx context.Context, id string) (Product, error)
}

// ProductEnricher resolves product IDs to full product data, typically
// through the cache-aside product cache.
type ProductEnricher interface {
	Get(ctx context.Context, id string) Lookup
}

// ContentCandidateSource produces embedding-similarity candidates for an
// anchor product.
type ContentCandidateSource interface {
	Query(ctx context.Context, productID string, n int) ([]CandidateScore, error)
}

// RetailCandidateSource produces collaborative candidates from the retail
// API. productID may be empty for purely user-based retrieval.
type RetailCandidateSource interface {
	Query(ctx context.Context, userID, productID string, n int) ([]CandidateScore, error)
}

// InteractionEventSource reads the user interaction event log.
type InteractionEventSource interface {
	EventsFor(ctx context.Context, userID string) ([]InteractionEvent, error)
}

// CatalogSource lists the currently available products. The fallback chain
// samples from this pool.
type CatalogSource interface {
	Products(ctx context.Context) ([]Product, error)
}
