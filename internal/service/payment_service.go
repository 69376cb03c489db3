package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"
)

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// PaymentEvent is the subset of the provider's webhook body we read.
type PaymentEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

type PaymentService struct {
	orders    *OrderService
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

func NewPaymentService(orders *OrderService, secret string, tolerance time.Duration) *PaymentService {
	return &PaymentService{orders: orders, secret: []byte(secret), tolerance: tolerance, now: time.Now}
}

// SignPayload builds a signature header value "t=<unix>,v1=<hex>" over "<unix>.<payload>".
func SignPayload(secret, payload []byte, ts time.Time) string {
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), computeSignature(secret, payload, ts.Unix()))
}

func computeSignature(secret, payload []byte, ts int64) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature accepts the header when any v1 entry matches and the
// timestamp is within tolerance of now.
func (s *PaymentService) VerifySignature(payload []byte, header string) error {
	var ts int64
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return apperror.ErrInvalidSignature.WithMessagef("malformed signature timestamp")
			}
			ts = n
		case "v1":
			signatures = append(signatures, v)
		}
	}
	if ts == 0 || len(signatures) == 0 {
		return apperror.ErrInvalidSignature.WithMessagef("signature header is missing timestamp or signature")
	}

	age := s.now().Sub(time.Unix(ts, 0))
	if age > s.tolerance || age < -s.tolerance {
		return apperror.ErrInvalidSignature.WithMessagef("signature timestamp outside tolerance")
	}

	expected := computeSignature(s.secret, payload, ts)
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return apperror.ErrInvalidSignature
}

// HandleWebhook verifies and applies a payment event. Events of other
// types, or without an order id, are acknowledged and ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if err := s.VerifySignature(payload, signature); err != nil {
		logger.Warn().Err(err).Msg("Rejected payment webhook")
		return err
	}

	var event PaymentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return apperror.ErrInvalidInput.WithMessagef("malformed webhook payload")
	}

	var status entity.OrderStatus
	switch event.Type {
	case EventPaymentSucceeded:
		status = entity.OrderStatusProcessing
	case EventPaymentFailed:
		status = entity.OrderStatusFailed
	default:
		logger.Info().Msgf("Ignoring payment event %s of type %s", event.ID, event.Type)
		return nil
	}

	orderID := event.Data.Object.Metadata["order_id"]
	if orderID == "" {
		logger.Warn().Msgf("Payment event %s carries no order_id", event.ID)
		return nil
	}

	order, err := s.orders.UpdateAfterPayment(ctx, orderID, event.Data.Object.ID, status)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindBadRequest || apperror.KindOf(err) == apperror.KindNotFound {
			// the provider retries on any non-2xx, and these will never succeed
			logger.Warn().Err(err).Msgf("Payment event %s not applied to order %s", event.ID, orderID)
			return nil
		}
		return err
	}
	logger.Info().Msgf("Order %s is %s after payment event %s", order.ID, order.Status, event.ID)
	return nil
}
