package api

import (
	"io"
	"net/http"

	"commerce-service/internal/apperror"
	"commerce-service/internal/service"

	"github.com/labstack/echo/v4"
)

const (
	signatureHeader = "Payment-Signature"
	maxWebhookBody  = 1 << 20
)

type PaymentHandler struct {
	payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Webhook receives payment provider events --> POST /payments/webhooks
// The signature covers the raw body, so it is read before any decoding.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return respondError(c, apperror.ErrInvalidInput.WithMessagef("unreadable webhook body"))
	}

	if err := h.payments.HandleWebhook(c.Request().Context(), payload, c.Request().Header.Get(signatureHeader)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
