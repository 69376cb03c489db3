package service

import (
	"context"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"
	"commerce-service/internal/repository"

	"github.com/shopspring/decimal"
)

type ProductService struct {
	store  repository.Store
	ledger *InventoryLedger
	cache  ProductCache
}

// NewProductService creates a new instance of ProductService. cache may be nil.
func NewProductService(store repository.Store, ledger *InventoryLedger, cache ProductCache) *ProductService {
	return &ProductService{store: store, ledger: ledger, cache: cache}
}

type CreateProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	SKU           string
	ImageURL      string
	// CategoryID is optional; a non-empty value must name an existing category.
	CategoryID string
}

// UpdateProductInput changes only the non-nil fields. Stock is changed through AdjustStock.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	SKU         *string
	ImageURL    *string
	// CategoryID set to "" detaches the product from its category.
	CategoryID *string
}

func (s *ProductService) Create(ctx context.Context, input CreateProductInput) (*entity.Product, error) {
	if input.Price.IsNegative() {
		return nil, apperror.ErrInvalidInput.WithMessagef("price must not be negative")
	}
	if input.StockQuantity < 0 {
		return nil, apperror.ErrInvalidInput.WithMessagef("stock quantity must not be negative")
	}

	product := &entity.Product{
		Name:          input.Name,
		Description:   input.Description,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		SKU:           input.SKU,
		ImageURL:      input.ImageURL,
		CategoryID:    optionalID(input.CategoryID),
	}
	if err := s.store.Products().CreateProduct(ctx, product); err != nil {
		return nil, s.fail(err, "Error creating product %s", input.SKU)
	}
	return product, nil
}

// Get reads through the product cache.
func (s *ProductService) Get(ctx context.Context, id string) (*entity.Product, error) {
	if s.cache != nil {
		cached, err := s.cache.GetProduct(ctx, id)
		if err != nil {
			logger.Error().Err(err).Msgf("Error getting product %s from cache", id)
		} else if cached != nil {
			return cached, nil
		}
	}

	product, err := s.store.Products().GetProduct(ctx, id)
	if err != nil {
		return nil, s.fail(err, "Error getting product by ID %s", id)
	}

	if s.cache != nil {
		if err := s.cache.SetProduct(ctx, product); err != nil {
			logger.Error().Err(err).Msgf("Error setting product %s in cache", id)
		}
	}
	return product, nil
}

func (s *ProductService) List(ctx context.Context, filter repository.ProductFilter) (Page[entity.Product], error) {
	filter = filter.Normalize()
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return Page[entity.Product]{}, apperror.ErrInvalidInput.WithMessagef("minPrice must not exceed maxPrice")
	}
	products, total, err := s.store.Products().ListProducts(ctx, filter)
	if err != nil {
		return Page[entity.Product]{}, s.fail(err, "Error listing products")
	}
	return newPage(products, total, filter.Page.Page, filter.Limit), nil
}

func (s *ProductService) Update(ctx context.Context, id string, input UpdateProductInput) (*entity.Product, error) {
	var product *entity.Product
	err := s.store.ExecTx(ctx, func(tx repository.Scope) error {
		current, err := tx.Products().GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if input.Name != nil {
			current.Name = *input.Name
		}
		if input.Description != nil {
			current.Description = *input.Description
		}
		if input.Price != nil {
			if input.Price.IsNegative() {
				return apperror.ErrInvalidInput.WithMessagef("price must not be negative")
			}
			current.Price = *input.Price
		}
		if input.SKU != nil {
			current.SKU = *input.SKU
		}
		if input.ImageURL != nil {
			current.ImageURL = *input.ImageURL
		}
		if input.CategoryID != nil {
			current.CategoryID = optionalID(*input.CategoryID)
		}
		if err := tx.Products().UpdateProduct(ctx, current); err != nil {
			return err
		}
		product = current
		return nil
	})
	if err != nil {
		return nil, s.fail(err, "Error updating product %s", id)
	}
	s.evict(ctx, id)
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.store.Products().DeleteProduct(ctx, id); err != nil {
		return s.fail(err, "Error deleting product %s", id)
	}
	s.evict(ctx, id)
	return nil
}

// AdjustStock restocks (positive delta) or writes off (negative delta) units.
func (s *ProductService) AdjustStock(ctx context.Context, id string, delta int) (*entity.Product, error) {
	var product *entity.Product
	err := s.store.ExecTx(ctx, func(tx repository.Scope) error {
		p, err := s.ledger.AdjustStock(ctx, tx.Products(), id, delta)
		product = p
		return err
	})
	if err != nil {
		return nil, s.fail(err, "Error adjusting stock of product %s", id)
	}
	s.evict(ctx, id)
	return product, nil
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func (s *ProductService) evict(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteProducts(ctx, id); err != nil {
		logger.Error().Err(err).Msgf("Error deleting product %s from cache", id)
	}
}

func (s *ProductService) fail(err error, format string, args ...interface{}) error {
	if apperror.IsKnown(err) {
		return err
	}
	logger.Error().Err(err).Msgf(format, args...)
	return apperror.Internal(err)
}
