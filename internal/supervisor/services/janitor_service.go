// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// JanitorService runs a maintenance task on a fixed interval, used for
// cache store garbage collection and interaction log pruning. Task
// failures are logged, not fatal: a broken maintenance pass should not
// take the service down or trigger supervisor backoff.
type JanitorService struct {
	name     string
	interval time.Duration
	task     func(ctx context.Context) error
	logger   zerolog.Logger
}

// NewJanitorService creates a periodic task service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewJanitorService(name string, interval time.Duration, task func(ctx context.Context) error, logger zerolog.Logger) *JanitorService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &JanitorService{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger.With().Str("component", "janitor").Str("task", name).Logger(),
	}
}

// Serve implements suture.Service.
func (j *JanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := j.task(ctx); err != nil {
				j.logger.Warn().Err(err).Msg("maintenance task failed")
			}
		}
	}
}

// String implements fmt.Stringer for suture's log messages.
func (j *JanitorService) String() string {
	return j.name
}
