// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // DuckDB driver
	"github.com/rs/zerolog"

	"github.com/vitrina-io/vitrina/internal/metrics"
	"github.com/vitrina-io/vitrina/internal/recommend"
)

const schema = `
CREATE TABLE IF NOT EXISTS interactions (
	user_id    VARCHAR NOT NULL,
	product_id VARCHAR NOT NULL,
	event_type VARCHAR NOT NULL,
	ts         TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions (user_id);
`

// Store is the DuckDB-backed interaction event log. Safe for concurrent
// use; DuckDB serializes writers internally.
type Store struct {
	db           *sql.DB
	historyLimit int
	logger       zerolog.Logger
}

// Open opens (or creates) the event log at path. An empty path opens an
// in-memory database, useful in tests.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(path string, historyLimit int, logger zerolog.Logger) (*Store, error) {
	if historyLimit <= 0 {
		historyLimit = 500
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb at %q: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{
		db:           db,
		historyLimit: historyLimit,
		logger:       logger.With().Str("component", "events").Logger(),
	}, nil
}

// Append records one interaction. Events without user or product ID are
// rejected; a zero timestamp is stamped with the current time.
//
//nolint:gocritic // hugeParam: event passed by value for immutability
func (s *Store) Append(ctx context.Context, ev recommend.InteractionEvent) error {
	if ev.UserID == "" || ev.ProductID == "" {
		return fmt.Errorf("interaction event requires user_id and product_id")
	}
	if ev.EventType == "" {
		ev.EventType = "view"
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions (user_id, product_id, event_type, ts) VALUES (?, ?, ?, ?)`,
		ev.UserID, ev.ProductID, ev.EventType, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

// EventsFor returns the user's interactions, most recent first, capped by
// the configured history limit.
func (s *Store) EventsFor(ctx context.Context, userID string) ([]recommend.InteractionEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, product_id, event_type, ts
		 FROM interactions WHERE user_id = ?
		 ORDER BY ts DESC LIMIT ?`,
		userID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("query interactions for %s: %w", userID, err)
	}
	defer rows.Close()

	var events []recommend.InteractionEvent
	for rows.Next() {
		var ev recommend.InteractionEvent
		if err := rows.Scan(&ev.UserID, &ev.ProductID, &ev.EventType, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return events, nil
}

// Count returns the total number of stored interactions.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interactions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count interactions: %w", err)
	}
	return count, nil
}

// Prune removes interactions older than the cutoff and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM interactions WHERE ts < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune interactions: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune row count: %w", err)
	}
	if removed > 0 {
		metrics.InteractionsPruned.Add(float64(removed))
		s.logger.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("pruned interactions")
	}
	return removed, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Verify interface implementation at compile time
var _ recommend.InteractionEventSource = (*Store)(nil)
