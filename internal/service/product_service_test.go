package service

import (
	"context"
	"testing"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"
	"commerce-service/internal/repository"
	"commerce-service/internal/repository/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	products map[string]entity.Product
	hits     int
	evicted  []string
}

func (c *mapCache) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, nil
	}
	c.hits++
	return &p, nil
}

func (c *mapCache) SetProduct(ctx context.Context, product *entity.Product) error {
	c.products[product.ID] = *product
	return nil
}

func (c *mapCache) DeleteProducts(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		delete(c.products, id)
	}
	c.evicted = append(c.evicted, ids...)
	return nil
}

func newCachedProducts() (*ProductService, *mapCache) {
	cache := &mapCache{products: map[string]entity.Product{}}
	return NewProductService(memstore.New(), NewInventoryLedger(), cache), cache
}

func TestProduct_ReadThroughCache(t *testing.T) {
	ctx := context.Background()
	products, cache := newCachedProducts()
	created, err := products.Create(ctx, CreateProductInput{Name: "Lamp", SKU: "L-1", Price: decimal.RequireFromString("12.00"), StockQuantity: 2})
	require.NoError(t, err)

	_, err = products.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Zero(t, cache.hits)
	got, err := products.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, "Lamp", got.Name)

	name := "Desk lamp"
	_, err = products.Update(ctx, created.ID, UpdateProductInput{Name: &name})
	require.NoError(t, err)
	assert.Contains(t, cache.evicted, created.ID)

	got, err = products.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Desk lamp", got.Name)
}

func TestProduct_CreateValidation(t *testing.T) {
	ctx := context.Background()
	products, _ := newCachedProducts()

	_, err := products.Create(ctx, CreateProductInput{Name: "X", SKU: "X", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	_, err = products.Create(ctx, CreateProductInput{Name: "X", SKU: "X", Price: decimal.NewFromInt(1), StockQuantity: -1})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = products.Create(ctx, CreateProductInput{Name: "X", SKU: "X", Price: decimal.NewFromInt(1)})
	require.NoError(t, err)
	_, err = products.Create(ctx, CreateProductInput{Name: "Y", SKU: "X", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, apperror.ErrSKUTaken)
}

func TestProduct_AdjustStock(t *testing.T) {
	ctx := context.Background()
	products, cache := newCachedProducts()
	created, err := products.Create(ctx, CreateProductInput{Name: "Mug", SKU: "M-1", Price: decimal.NewFromInt(4), StockQuantity: 2})
	require.NoError(t, err)

	p, err := products.AdjustStock(ctx, created.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 7, p.StockQuantity)

	_, err = products.AdjustStock(ctx, created.ID, -8)
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "available: 7, requested: 8")

	p, err = products.AdjustStock(ctx, created.ID, -7)
	require.NoError(t, err)
	assert.Zero(t, p.StockQuantity)
	assert.Contains(t, cache.evicted, created.ID)

	_, err = products.AdjustStock(ctx, "missing", 1)
	assert.ErrorIs(t, err, apperror.ErrProductNotFound)
}

func TestProduct_ListFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	products, _ := newCachedProducts()
	for _, in := range []CreateProductInput{
		{Name: "Red chair", SKU: "C-R", Price: decimal.RequireFromString("40.00")},
		{Name: "Blue chair", SKU: "C-B", Price: decimal.RequireFromString("55.00")},
		{Name: "Table", SKU: "T-1", Price: decimal.RequireFromString("120.00")},
	} {
		_, err := products.Create(ctx, in)
		require.NoError(t, err)
	}

	lo, hi := decimal.RequireFromString("10"), decimal.RequireFromString("100")
	page, err := products.List(ctx, repository.ProductFilter{
		Search: "CHAIR", MinPrice: &lo, MaxPrice: &hi, SortBy: "price", Order: repository.SortAsc,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "Red chair", page.Data[0].Name)
	assert.Equal(t, "Blue chair", page.Data[1].Name)

	page, err = products.List(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, "Table", page.Data[0].Name)
	assert.Equal(t, 10, page.Limit)

	_, err = products.List(ctx, repository.ProductFilter{MinPrice: &hi, MaxPrice: &lo})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestProduct_Delete(t *testing.T) {
	ctx := context.Background()
	products, cache := newCachedProducts()
	created, err := products.Create(ctx, CreateProductInput{Name: "Mug", SKU: "M-1", Price: decimal.NewFromInt(4)})
	require.NoError(t, err)

	require.NoError(t, products.Delete(ctx, created.ID))
	assert.Contains(t, cache.evicted, created.ID)

	_, err = products.Get(ctx, created.ID)
	assert.ErrorIs(t, err, apperror.ErrProductNotFound)
	assert.ErrorIs(t, products.Delete(ctx, created.ID), apperror.ErrProductNotFound)
}

func TestProduct_Category(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	products := NewProductService(store, NewInventoryLedger(), nil)
	category, err := NewCategoryService(store, nil).Create(ctx, CategoryInput{Name: "Lighting"})
	require.NoError(t, err)

	_, err = products.Create(ctx, CreateProductInput{Name: "Lamp", SKU: "L-1", Price: decimal.NewFromInt(9), CategoryID: "nope"})
	assert.ErrorIs(t, err, apperror.ErrCategoryNotFound)

	lamp, err := products.Create(ctx, CreateProductInput{Name: "Lamp", SKU: "L-1", Price: decimal.NewFromInt(9), CategoryID: category.ID})
	require.NoError(t, err)
	require.NotNil(t, lamp.CategoryID)
	_, err = products.Create(ctx, CreateProductInput{Name: "Mug", SKU: "M-1", Price: decimal.NewFromInt(4)})
	require.NoError(t, err)

	page, err := products.List(ctx, repository.ProductFilter{CategoryID: category.ID})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, lamp.ID, page.Data[0].ID)

	none := ""
	updated, err := products.Update(ctx, lamp.ID, UpdateProductInput{CategoryID: &none})
	require.NoError(t, err)
	assert.Nil(t, updated.CategoryID)
}
