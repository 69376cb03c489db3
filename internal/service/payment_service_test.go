package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "whsec_test"

func paymentPayload(eventType, orderID, intentID string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"evt_1","type":%q,"data":{"object":{"id":%q,"metadata":{"order_id":%q}}}}`,
		eventType, intentID, orderID))
}

func newPaymentFixture(t *testing.T) (*fixture, *PaymentService, time.Time) {
	t.Helper()
	f := newFixture(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	payments := NewPaymentService(f.orders, webhookSecret, 5*time.Minute)
	payments.now = func() time.Time { return now }
	return f, payments, now
}

func TestVerifySignature(t *testing.T) {
	_, payments, now := newPaymentFixture(t)
	payload := []byte(`{"id":"evt_1"}`)

	tests := []struct {
		name   string
		header string
		ok     bool
	}{
		{"valid", SignPayload([]byte(webhookSecret), payload, now), true},
		{"within tolerance", SignPayload([]byte(webhookSecret), payload, now.Add(-4*time.Minute)), true},
		{"one of several signatures", fmt.Sprintf("t=%d,v1=deadbeef,v1=%s", now.Unix(),
			computeSignature([]byte(webhookSecret), payload, now.Unix())), true},
		{"stale", SignPayload([]byte(webhookSecret), payload, now.Add(-6*time.Minute)), false},
		{"from the future", SignPayload([]byte(webhookSecret), payload, now.Add(6*time.Minute)), false},
		{"wrong secret", SignPayload([]byte("other"), payload, now), false},
		{"missing signature", fmt.Sprintf("t=%d", now.Unix()), false},
		{"malformed timestamp", "t=abc,v1=00", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := payments.VerifySignature(payload, tt.header)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperror.ErrInvalidSignature)
			assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))
		})
	}
}

func TestHandleWebhook_TamperedPayload(t *testing.T) {
	_, payments, now := newPaymentFixture(t)
	signed := paymentPayload(EventPaymentSucceeded, "o1", "pi_1")
	header := SignPayload([]byte(webhookSecret), signed, now)

	err := payments.HandleWebhook(context.Background(), paymentPayload(EventPaymentSucceeded, "o2", "pi_1"), header)
	assert.ErrorIs(t, err, apperror.ErrInvalidSignature)
}

func TestHandleWebhook_PaymentSucceeded(t *testing.T) {
	ctx := context.Background()
	f, payments, now := newPaymentFixture(t)
	a := f.product(t, "A", "5.00", 10)
	f.addToCart(t, "u1", a.ID, 2)
	order := f.checkout(t, "u1")

	payload := paymentPayload(EventPaymentSucceeded, order.ID, "pi_9")
	require.NoError(t, payments.HandleWebhook(ctx, payload, SignPayload([]byte(webhookSecret), payload, now)))

	got, err := f.store.Orders().GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusProcessing, got.Status)
	require.NotNil(t, got.PaymentRef)
	assert.Equal(t, "pi_9", *got.PaymentRef)
	assert.Equal(t, 8, f.stock(t, a.ID))

	// a redelivery changes nothing
	require.NoError(t, payments.HandleWebhook(ctx, payload, SignPayload([]byte(webhookSecret), payload, now)))
	got, err = f.store.Orders().GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusProcessing, got.Status)
}

func TestHandleWebhook_PaymentFailedRestocks(t *testing.T) {
	ctx := context.Background()
	f, payments, now := newPaymentFixture(t)
	a := f.product(t, "A", "5.00", 10)
	f.addToCart(t, "u1", a.ID, 3)
	order := f.checkout(t, "u1")

	payload := paymentPayload(EventPaymentFailed, order.ID, "pi_9")
	require.NoError(t, payments.HandleWebhook(ctx, payload, SignPayload([]byte(webhookSecret), payload, now)))

	got, err := f.store.Orders().GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusFailed, got.Status)
	assert.Equal(t, 10, f.stock(t, a.ID))
}

func TestHandleWebhook_AcknowledgesUnusableEvents(t *testing.T) {
	ctx := context.Background()
	f, payments, now := newPaymentFixture(t)
	a := f.product(t, "A", "5.00", 10)
	f.addToCart(t, "u1", a.ID, 1)
	order := f.checkout(t, "u1")
	_, err := f.orders.Cancel(ctx, order.ID, Actor{UserID: "u1", Role: entity.RoleUser})
	require.NoError(t, err)

	for name, payload := range map[string][]byte{
		"unknown type":   paymentPayload("charge.refunded", order.ID, "pi_1"),
		"no order id":    paymentPayload(EventPaymentSucceeded, "", "pi_1"),
		"unknown order":  paymentPayload(EventPaymentSucceeded, "missing", "pi_1"),
		"terminal order": paymentPayload(EventPaymentSucceeded, order.ID, "pi_1"),
	} {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, payments.HandleWebhook(ctx, payload, SignPayload([]byte(webhookSecret), payload, now)))
		})
	}

	got, err := f.store.Orders().GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCancelled, got.Status)
	assert.Equal(t, 10, f.stock(t, a.ID))
}

func TestHandleWebhook_MalformedPayload(t *testing.T) {
	_, payments, now := newPaymentFixture(t)
	payload := []byte(`not json`)

	err := payments.HandleWebhook(context.Background(), payload, SignPayload([]byte(webhookSecret), payload, now))
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}
