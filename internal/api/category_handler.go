package api

import (
	"net/http"

	"commerce-service/internal/service"

	"github.com/labstack/echo/v4"
)

type CategoryHandler struct {
	categories *service.CategoryService
}

func NewCategoryHandler(categories *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

type categoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
	Slug        string `json:"slug" validate:"max=120"`
}

type patchCategoryRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
	Slug        *string `json:"slug" validate:"omitempty,min=1,max=120"`
}

// List --> GET /categories
func (h *CategoryHandler) List(c echo.Context) error {
	categories, err := h.categories.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, categories)
}

// Get --> GET /categories/:id
func (h *CategoryHandler) Get(c echo.Context) error {
	category, err := h.categories.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, category)
}

// GetBySlug --> GET /categories/slug/:slug
func (h *CategoryHandler) GetBySlug(c echo.Context) error {
	category, err := h.categories.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) Create(c echo.Context) error {
	var req categoryRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	category, err := h.categories.Create(c.Request().Context(), service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Slug:        req.Slug,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, category)
}

func (h *CategoryHandler) Update(c echo.Context) error {
	var req patchCategoryRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	category, err := h.categories.Update(c.Request().Context(), c.Param("id"), service.CategoryPatch{
		Name:        req.Name,
		Description: req.Description,
		Slug:        req.Slug,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, category)
}

// Delete leaves the category's products uncategorized --> DELETE /categories/:id
func (h *CategoryHandler) Delete(c echo.Context) error {
	if err := h.categories.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "category deleted"})
}
