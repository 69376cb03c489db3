package api

import (
	"net/http"
	"strings"
	"time"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"
	"commerce-service/internal/repository"
	"commerce-service/internal/service"

	"github.com/labstack/echo/v4"
)

const dateLayout = "2006-01-02"

type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createOrderRequest struct {
	ShippingAddress entity.Address  `json:"shippingAddress"`
	BillingAddress  *entity.Address `json:"billingAddress" validate:"omitempty"`
	PaymentMethodID string          `json:"paymentMethodId" validate:"max=255"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING PROCESSING SHIPPED DELIVERED CANCELLED FAILED"`
}

type listOrdersRequest struct {
	Page      int    `query:"page" validate:"omitempty,min=1"`
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=100"`
	UserID    string `query:"userId"`
	Status    string `query:"status" validate:"omitempty,oneof=PENDING PROCESSING SHIPPED DELIVERED CANCELLED FAILED"`
	StartDate string `query:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `query:"endDate" validate:"omitempty,datetime=2006-01-02"`
	SortBy    string `query:"sortBy" validate:"omitempty,oneof=order_date total_amount status created_at"`
	Order     string `query:"order" validate:"omitempty,oneof=ASC DESC asc desc"`
}

func (r listOrdersRequest) filter() (repository.OrderFilter, error) {
	f := repository.OrderFilter{
		Page:   repository.Page{Page: r.Page, Limit: r.Limit},
		UserID: r.UserID,
		Status: entity.OrderStatus(r.Status),
		SortBy: r.SortBy,
		Order:  repository.SortOrder(strings.ToUpper(r.Order)),
	}
	if r.StartDate != "" {
		start, err := time.Parse(dateLayout, r.StartDate)
		if err != nil {
			return f, apperror.ErrInvalidInput.WithMessagef("startDate must be YYYY-MM-DD")
		}
		f.StartDate = &start
	}
	if r.EndDate != "" {
		end, err := time.Parse(dateLayout, r.EndDate)
		if err != nil {
			return f, apperror.ErrInvalidInput.WithMessagef("endDate must be YYYY-MM-DD")
		}
		f.EndDate = &end
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return f, apperror.ErrInvalidInput.WithMessagef("endDate must not be before startDate")
	}
	return f, nil
}

// Create checks out the caller's cart --> POST /orders
func (h *OrderHandler) Create(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	var req createOrderRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	order, err := h.orders.CreateOrder(c.Request().Context(), actor.UserID, service.CreateOrderInput{
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethodID: req.PaymentMethodID,
		IdempotencyKey:  c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// ListMine --> GET /orders
func (h *OrderHandler) ListMine(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	filter, err := h.bindFilter(c)
	if err != nil {
		return respondError(c, err)
	}

	page, err := h.orders.ListUserOrders(c.Request().Context(), actor.UserID, filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// ListAll --> GET /orders/all (admin)
func (h *OrderHandler) ListAll(c echo.Context) error {
	filter, err := h.bindFilter(c)
	if err != nil {
		return respondError(c, err)
	}

	page, err := h.orders.ListAllOrders(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *OrderHandler) bindFilter(c echo.Context) (repository.OrderFilter, error) {
	var req listOrdersRequest
	if err := bind(c, &req); err != nil {
		return repository.OrderFilter{}, err
	}
	return req.filter()
}

// Get --> GET /orders/:id
func (h *OrderHandler) Get(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	order, err := h.orders.GetOrder(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// UpdateStatus --> PATCH /orders/:id/status (admin)
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	var req updateOrderStatusRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	order, err := h.orders.UpdateStatus(c.Request().Context(), c.Param("id"), entity.OrderStatus(req.Status))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// Cancel --> PATCH /orders/:id/cancel
func (h *OrderHandler) Cancel(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	order, err := h.orders.Cancel(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}
