package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"commerce-service/internal/events"
	"commerce-service/internal/metrics"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// ProductCacheInvalidator drops cached product entries.
type ProductCacheInvalidator interface {
	DeleteProducts(ctx context.Context, ids ...string) error
}

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer evicts cached products whose stock moved because of an order event.
type Consumer struct {
	reader MessageReader
	cache  ProductCacheInvalidator
}

func NewConsumer(reader MessageReader, cache ProductCacheInvalidator) *Consumer {
	return &Consumer{reader: reader, cache: cache}
}

// Run reads until ctx is cancelled, then closes the reader.
func (c *Consumer) Run(ctx context.Context) {
	defer func() {
		if err := c.reader.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing order event reader")
		}
	}()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			log.Error().Err(err).Msg("Error reading message")
			continue
		}
		c.processMessage(ctx, msg)
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) {
	eventType, orderID, err := events.ParseKey(string(msg.Key))
	if err != nil {
		log.Error().Err(err).Msg("Skipping message with unexpected key")
		return
	}
	metrics.EventsConsumed.WithLabelValues(eventType).Inc()

	switch eventType {
	case events.OrderCreated, events.OrderCancelled, events.OrderFailed:
		var ev events.OrderEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.Error().Err(err).Msgf("Error unmarshalling order event %s", orderID)
			return
		}
		ids := make([]string, 0, len(ev.Items))
		for _, item := range ev.Items {
			ids = append(ids, item.ProductID)
		}
		if err := c.cache.DeleteProducts(ctx, ids...); err != nil {
			log.Error().Err(err).Msgf("Error evicting products of order %s", orderID)
		}
	case events.OrderStatusChanged:
		// stock untouched
	default:
		log.Warn().Msgf("Unknown order event type: %s", eventType)
	}
}
