// Vitrina - Storefront Product Recommendation Service
// Copyright 2026 Vitrina Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrina-io/vitrina

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/vitrina-io/vitrina/internal/config"
	"github.com/vitrina-io/vitrina/internal/metrics"
	"github.com/vitrina-io/vitrina/internal/recommend"
)

// interactionMessage is the storefront's interaction wire format.
type interactionMessage struct {
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// Consumer subscribes to the storefront interaction topic and appends
// events to the store. Malformed messages are acked and dropped so one
// bad producer cannot wedge the subscription.
type Consumer struct {
	cfg        config.NATSConfig
	store      *Store
	subscriber message.Subscriber
	logger     zerolog.Logger
}

// NewConsumer creates a NATS consumer writing into store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewConsumer(cfg config.NATSConfig, store *Store, logger zerolog.Logger) (*Consumer, error) {
	consumerLogger := logger.With().Str("component", "consumer").Logger()
	wmLogger := newWatermillLogger(consumerLogger)

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				consumerLogger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			consumerLogger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled: true,
		},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create subscriber: %w", err)
	}

	return &Consumer{
		cfg:        cfg,
		store:      store,
		subscriber: sub,
		logger:     consumerLogger,
	}, nil
}

// Run consumes messages until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.cfg.Topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.cfg.Topic, err)
	}
	c.logger.Info().Str("topic", c.cfg.Topic).Msg("interaction consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.handle(ctx, msg)
		}
	}
}

// handle processes one message. Store failures nack for redelivery;
// malformed payloads ack and drop.
func (c *Consumer) handle(ctx context.Context, msg *message.Message) {
	var im interactionMessage
	if err := json.Unmarshal(msg.Payload, &im); err != nil {
		c.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed interaction")
		metrics.RecordInteraction("malformed")
		msg.Ack()
		return
	}

	ev := recommend.InteractionEvent{
		UserID:    im.UserID,
		ProductID: im.ProductID,
		EventType: im.EventType,
		Timestamp: im.Timestamp,
	}
	if err := c.store.Append(ctx, ev); err != nil {
		if ev.UserID == "" || ev.ProductID == "" {
			// Invalid event, redelivery cannot fix it.
			c.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping invalid interaction")
			metrics.RecordInteraction("invalid")
			msg.Ack()
			return
		}
		c.logger.Error().Err(err).Str("message_uuid", msg.UUID).Msg("append failed, nacking")
		metrics.RecordInteraction("retried")
		msg.Nack()
		return
	}
	metrics.RecordInteraction("stored")
	msg.Ack()
}

// Close shuts down the subscription.
func (c *Consumer) Close() error {
	return c.subscriber.Close()
}

// watermillLogger adapts zerolog to watermill.LoggerAdapter.
type watermillLogger struct {
	logger zerolog.Logger
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func newWatermillLogger(logger zerolog.Logger) watermill.LoggerAdapter {
	return &watermillLogger{logger: logger}
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(l.logger.Error().Err(err), fields).Msg(msg)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(l.logger.Info(), fields).Msg(msg)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(l.logger.Debug(), fields).Msg(msg)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(l.logger.Trace(), fields).Msg(msg)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &watermillLogger{logger: ctx.Logger()}
}

func (l *watermillLogger) event(ev *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	return ev
}
