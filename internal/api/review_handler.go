package api

import (
	"net/http"

	"commerce-service/internal/repository"
	"commerce-service/internal/service"

	"github.com/labstack/echo/v4"
)

type ReviewHandler struct {
	reviews *service.ReviewService
}

func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

type createReviewRequest struct {
	ProductID string `json:"productId" validate:"required,max=36"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"max=2000"`
}

type patchReviewRequest struct {
	Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

type listReviewsRequest struct {
	Page      int    `query:"page" validate:"omitempty,min=1"`
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=50"`
	ProductID string `query:"productId" validate:"max=36"`
	UserID    string `query:"userId" validate:"max=36"`
	MinRating int    `query:"minRating" validate:"omitempty,min=1,max=5"`
}

type pageRequest struct {
	Page  int `query:"page" validate:"omitempty,min=1"`
	Limit int `query:"limit" validate:"omitempty,min=1,max=50"`
}

// Create --> POST /reviews
func (h *ReviewHandler) Create(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	var req createReviewRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	review, err := h.reviews.Create(c.Request().Context(), actor.UserID, service.ReviewInput{
		ProductID: req.ProductID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, review)
}

// List --> GET /reviews?page=&limit=&productId=&userId=&minRating=
func (h *ReviewHandler) List(c echo.Context) error {
	var req listReviewsRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	page, err := h.reviews.List(c.Request().Context(), repository.ReviewFilter{
		Page:      repository.Page{Page: req.Page, Limit: req.Limit},
		ProductID: req.ProductID,
		UserID:    req.UserID,
		MinRating: req.MinRating,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *ReviewHandler) Get(c echo.Context) error {
	review, err := h.reviews.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, review)
}

// ListForProduct --> GET /products/:id/reviews
func (h *ReviewHandler) ListForProduct(c echo.Context) error {
	var req pageRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	page, err := h.reviews.ListForProduct(c.Request().Context(), c.Param("id"),
		repository.Page{Page: req.Page, Limit: req.Limit})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Average --> GET /products/:id/reviews/average
func (h *ReviewHandler) Average(c echo.Context) error {
	summary, err := h.reviews.Average(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// Update is limited to the author --> PATCH /reviews/:id
func (h *ReviewHandler) Update(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	var req patchReviewRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	review, err := h.reviews.Update(c.Request().Context(), actor, c.Param("id"), service.ReviewPatch{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, review)
}

// Delete --> DELETE /reviews/:id
func (h *ReviewHandler) Delete(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.reviews.Delete(c.Request().Context(), actor, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "review deleted"})
}
