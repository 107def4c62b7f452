// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package services

import (
	"context"
	"errors"
	"fmt"
)

// ConsumerRunner matches the interaction consumer's lifecycle, allowing
// tests to substitute a mock.
type ConsumerRunner interface {
	Run(ctx context.Context) error
	Close() error
}

// ConsumerService wraps the NATS interaction consumer as a supervised
// service. Run blocks until the context is canceled; subscription
// failures surface as service errors so suture restarts the consumer
// with backoff.
type ConsumerService struct {
	consumer ConsumerRunner
}

// NewConsumerService creates a consumer service wrapper.
func NewConsumerService(consumer ConsumerRunner) *ConsumerService {
	return &ConsumerService{consumer: consumer}
}

// Serve implements suture.Service.
func (s *ConsumerService) Serve(ctx context.Context) error {
	err := s.consumer.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("interaction consumer failed: %w", err)
	}
	return err
}

// String implements fmt.Stringer for suture's log messages.
func (s *ConsumerService) String() string {
	return "interaction-consumer"
}
