package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"commerce-service/internal/entity"
	"commerce-service/internal/metrics"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

const (
	OrderCreated       = "created"
	OrderCancelled     = "cancelled"
	OrderFailed        = "failed"
	OrderStatusChanged = "status_changed"
)

type OrderEvent struct {
	Type        string             `json:"type"`
	OrderID     string             `json:"orderId"`
	UserID      string             `json:"userId"`
	Status      entity.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal    `json:"totalAmount"`
	Items       []OrderEventItem   `json:"items"`
	OccurredAt  time.Time          `json:"occurredAt"`
}

type OrderEventItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func NewOrderEvent(eventType string, order *entity.Order) OrderEvent {
	ev := OrderEvent{
		Type:        eventType,
		OrderID:     order.ID,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Items:       []OrderEventItem{},
		OccurredAt:  time.Now().UTC(),
	}
	for _, item := range order.Items {
		if item.ProductID == nil {
			continue
		}
		ev.Items = append(ev.Items, OrderEventItem{ProductID: *item.ProductID, Quantity: item.Quantity})
	}
	return ev
}

// Key returns "order.<type>.<orderID>".
func Key(eventType, orderID string) string {
	return fmt.Sprintf("order.%s.%s", eventType, orderID)
}

// ParseKey splits a key produced by Key.
func ParseKey(key string) (eventType, orderID string, err error) {
	parts := strings.SplitN(key, ".", 3)
	if len(parts) != 3 || parts[0] != "order" || parts[1] == "" {
		return "", "", fmt.Errorf("events: malformed key %q", key)
	}
	return parts[1], parts[2], nil
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Publisher struct {
	writer  MessageWriter
	breaker *gobreaker.CircuitBreaker
	service string
}

func NewPublisher(writer MessageWriter, service string) *Publisher {
	const name = "kafka-order-events"
	metrics.CircuitBreakerState.WithLabelValues(service, name).Set(0)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(cbName string, from gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(service, cbName).Set(stateValue(to))
			logger.Warn().Str("circuit", cbName).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})

	return &Publisher{writer: writer, breaker: breaker, service: service}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	}
	return 0
}

// PublishOrderEvent writes the event through the circuit breaker. An open
// breaker fails fast instead of waiting on the brokers.
func (p *Publisher) PublishOrderEvent(ctx context.Context, eventType string, order *entity.Order) error {
	payload, err := json.Marshal(NewOrderEvent(eventType, order))
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(Key(eventType, order.ID)),
		Value: payload,
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		metrics.CircuitBreakerFailures.WithLabelValues(p.service, p.breaker.Name()).Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("publish %s: circuit breaker %s is open: %w", eventType, p.breaker.Name(), err)
		}
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

func (p *Publisher) State() gobreaker.State {
	return p.breaker.State()
}
