// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package recommend

import (
	"context"

	"github.com/rs/zerolog"
)

// ExclusionTracker computes the set of product IDs a result must not
// contain: the user's historical interactions plus the IDs the caller has
// already shown this session. The set is recomputed per request and never
// cached, so session excludes are always fresh.
type ExclusionTracker struct {
	events InteractionEventSource
	logger zerolog.Logger
}

// NewExclusionTracker creates a tracker over the given event source.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewExclusionTracker(events InteractionEventSource, logger zerolog.Logger) *ExclusionTracker {
	return &ExclusionTracker{
		events: events,
		logger: logger.With().Str("component", "exclusion").Logger(),
	}
}

// ComputeExclusions returns historical product IDs unioned with the
// session excludes. Exclusion is best-effort: an unavailable event source
// or a user without history yields only the session excludes.
func (t *ExclusionTracker) ComputeExclusions(ctx context.Context, userID string, sessionExcludes []string) map[string]struct{} {
	history := t.History(ctx, userID)

	exclude := make(map[string]struct{}, len(history)+len(sessionExcludes))
	for _, ev := range history {
		exclude[ev.ProductID] = struct{}{}
	}
	for _, id := range sessionExcludes {
		exclude[id] = struct{}{}
	}
	return exclude
}

// History returns the user's interaction events, or nil when the source is
// unavailable or the user has none.
func (t *ExclusionTracker) History(ctx context.Context, userID string) []InteractionEvent {
	if t.events == nil || userID == "" {
		return nil
	}

	events, err := t.events.EventsFor(ctx, userID)
	if err != nil {
		t.logger.Warn().
			Err(err).
			Str("user_id", userID).
			Msg("event source unavailable, proceeding without history")
		return nil
	}
	return events
}
