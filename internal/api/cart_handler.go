package api

import (
	"net/http"

	"commerce-service/internal/service"

	"github.com/labstack/echo/v4"
)

type CartHandler struct {
	carts *service.CartService
}

func NewCartHandler(carts *service.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type addCartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// Get --> GET /cart
func (h *CartHandler) Get(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	cart, err := h.carts.GetCart(c.Request().Context(), actor.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}

// AddItem --> POST /cart/items
func (h *CartHandler) AddItem(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	var req addCartItemRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	cart, err := h.carts.AddItem(c.Request().Context(), actor.UserID, req.ProductID, req.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, cart)
}

// UpdateItem --> PATCH /cart/items/:itemId
func (h *CartHandler) UpdateItem(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	var req updateCartItemRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	cart, err := h.carts.UpdateItem(c.Request().Context(), actor.UserID, c.Param("itemId"), req.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}

// RemoveItem --> DELETE /cart/items/:itemId
func (h *CartHandler) RemoveItem(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	cart, err := h.carts.RemoveItem(c.Request().Context(), actor.UserID, c.Param("itemId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}

// Clear --> DELETE /cart
func (h *CartHandler) Clear(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.carts.Clear(c.Request().Context(), actor.UserID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "cart cleared"})
}
