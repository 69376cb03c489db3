package api

import (
	"net/http"
	"strings"

	"commerce-service/internal/apperror"
	"commerce-service/internal/repository"
	"commerce-service/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	products *service.ProductService
}

// NewProductHandler creates a new instance of ProductHandler
func NewProductHandler(products *service.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

type listProductsRequest struct {
	Page     int    `query:"page" validate:"omitempty,min=1"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Search   string `query:"search" validate:"max=255"`
	Category string `query:"categoryId" validate:"max=36"`
	MinPrice string `query:"minPrice" validate:"omitempty,numeric"`
	MaxPrice string `query:"maxPrice" validate:"omitempty,numeric"`
	SortBy   string `query:"sortBy" validate:"omitempty,oneof=name price created_at stock_quantity"`
	Order    string `query:"order" validate:"omitempty,oneof=ASC DESC asc desc"`
}

type createProductRequest struct {
	Name          string           `json:"name" validate:"required,max=255"`
	Description   string           `json:"description"`
	Price         *decimal.Decimal `json:"price" validate:"required"`
	StockQuantity int              `json:"stockQuantity" validate:"min=0"`
	SKU           string           `json:"sku" validate:"required,max=100"`
	ImageURL      string           `json:"imageUrl" validate:"omitempty,url"`
	CategoryID    string           `json:"categoryId" validate:"max=36"`
}

type updateProductRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	SKU         *string          `json:"sku" validate:"omitempty,min=1,max=100"`
	ImageURL    *string          `json:"imageUrl" validate:"omitempty,url"`
	// an empty categoryId removes the product from its category
	CategoryID *string `json:"categoryId" validate:"omitempty,max=36"`
}

type adjustStockRequest struct {
	Delta *int `json:"delta" validate:"required"`
}

func optionalDecimal(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperror.ErrInvalidInput.WithMessagef("%q is not a number", raw)
	}
	return &d, nil
}

// List --> GET /products?page=&limit=&categoryId=&search=&minPrice=&maxPrice=&sortBy=&order=
func (h *ProductHandler) List(c echo.Context) error {
	var req listProductsRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	minPrice, err := optionalDecimal(req.MinPrice)
	if err != nil {
		return respondError(c, err)
	}
	maxPrice, err := optionalDecimal(req.MaxPrice)
	if err != nil {
		return respondError(c, err)
	}

	page, err := h.products.List(c.Request().Context(), repository.ProductFilter{
		Page:       repository.Page{Page: req.Page, Limit: req.Limit},
		CategoryID: req.Category,
		Search:     req.Search,
		MinPrice:   minPrice,
		MaxPrice:   maxPrice,
		SortBy:     req.SortBy,
		Order:      repository.SortOrder(strings.ToUpper(req.Order)),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Get retrieves a product by ID --> GET /products/:id
func (h *ProductHandler) Get(c echo.Context) error {
	product, err := h.products.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) Create(c echo.Context) error {
	var req createProductRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	product, err := h.products.Create(c.Request().Context(), service.CreateProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         *req.Price,
		StockQuantity: req.StockQuantity,
		SKU:           req.SKU,
		ImageURL:      req.ImageURL,
		CategoryID:    req.CategoryID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) Update(c echo.Context) error {
	var req updateProductRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	product, err := h.products.Update(c.Request().Context(), c.Param("id"), service.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		SKU:         req.SKU,
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	if err := h.products.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "product deleted"})
}

// AdjustStock restocks or writes off units --> PATCH /products/:id/stock
func (h *ProductHandler) AdjustStock(c echo.Context) error {
	var req adjustStockRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	product, err := h.products.AdjustStock(c.Request().Context(), c.Param("id"), *req.Delta)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}
