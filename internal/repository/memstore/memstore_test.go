package memstore

import (
	"context"
	"errors"
	"testing"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"
	"commerce-service/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, s *Store, sku string, price string, stock int) *entity.Product {
	t.Helper()
	p := &entity.Product{Name: "Product " + sku, SKU: sku, Price: decimal.RequireFromString(price), StockQuantity: stock}
	require.NoError(t, s.Products().CreateProduct(context.Background(), p))
	return p
}

func TestExecTx_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, "A", "5.00", 10)

	boom := errors.New("boom")
	err := s.ExecTx(ctx, func(tx repository.Scope) error {
		_, err := tx.Products().AdjustStock(ctx, p.ID, -4)
		require.NoError(t, err)
		require.NoError(t, tx.Orders().CreateOrder(ctx, &entity.Order{UserID: "u1", Status: entity.OrderStatusPending}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Products().GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.StockQuantity)

	_, total, err := s.Orders().ListOrders(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestExecTx_CommitPublishesWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, "A", "5.00", 10)

	err := s.ExecTx(ctx, func(tx repository.Scope) error {
		_, err := tx.Products().AdjustStock(ctx, p.ID, -4)
		return err
	})
	require.NoError(t, err)

	got, err := s.Products().GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.StockQuantity)
}

func TestAdjustStock_FloorAtZero(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, "A", "5.00", 2)

	_, err := s.Products().AdjustStock(ctx, p.ID, -3)
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)

	got, err := s.Products().AdjustStock(ctx, p.ID, -2)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockQuantity)

	_, err = s.Products().AdjustStock(ctx, "missing", 1)
	assert.ErrorIs(t, err, apperror.ErrProductNotFound)
}

func TestDeleteProduct_NullsOrderItemReference(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, "A", "5.00", 2)
	productID := p.ID

	order := &entity.Order{UserID: "u1", Status: entity.OrderStatusPending, Items: []entity.OrderItem{
		{ProductID: &productID, ProductNameSnapshot: p.Name, Quantity: 1, PriceAtTimeOfOrder: p.Price},
	}}
	require.NoError(t, s.Orders().CreateOrder(ctx, order))
	require.NoError(t, s.Products().DeleteProduct(ctx, p.ID))

	got, err := s.Orders().GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Nil(t, got.Items[0].ProductID)
	assert.Equal(t, p.Name, got.Items[0].ProductNameSnapshot)
}

func TestCartItems_KeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := seedProduct(t, s, "A", "1.00", 5)
	b := seedProduct(t, s, "B", "2.00", 5)

	cart, err := s.Carts().GetOrCreateCart(ctx, "u1")
	require.NoError(t, err)
	for _, p := range []*entity.Product{b, a} {
		require.NoError(t, s.Carts().SaveCartItem(ctx, &entity.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: 1, PriceAtTimeOfAddition: p.Price}))
	}

	items, err := s.Carts().ListCartItems(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].ProductID)
	assert.Equal(t, a.ID, items[1].ProductID)
	assert.Equal(t, b.Name, items[0].ProductName)

	empty, err := s.Carts().ListCartItems(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpdateOrderStatus_CompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := New()
	order := &entity.Order{UserID: "u1", Status: entity.OrderStatusPending}
	require.NoError(t, s.Orders().CreateOrder(ctx, order))

	ok, err := s.Orders().UpdateOrderStatus(ctx, order.ID, entity.OrderStatusPending, entity.OrderStatusCancelled, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Orders().UpdateOrderStatus(ctx, order.ID, entity.OrderStatusPending, entity.OrderStatusCancelled, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListProducts_FiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedProduct(t, s, "A", "5.00", 1)
	seedProduct(t, s, "B", "15.00", 1)
	seedProduct(t, s, "C", "25.00", 1)

	min := decimal.RequireFromString("10")
	list, total, err := s.Products().ListProducts(ctx, repository.ProductFilter{
		MinPrice: &min, SortBy: "price", Order: repository.SortAsc,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, "B", list[0].SKU)
	assert.Equal(t, "C", list[1].SKU)
}

func TestDeleteCartItems_KeepsUnlistedItems(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := seedProduct(t, s, "A", "1.00", 5)
	b := seedProduct(t, s, "B", "1.00", 5)

	cart, err := s.Carts().GetOrCreateCart(ctx, "u1")
	require.NoError(t, err)
	first := &entity.CartItem{CartID: cart.ID, ProductID: a.ID, Quantity: 1}
	second := &entity.CartItem{CartID: cart.ID, ProductID: b.ID, Quantity: 1}
	require.NoError(t, s.Carts().SaveCartItem(ctx, first))
	require.NoError(t, s.Carts().SaveCartItem(ctx, second))

	require.NoError(t, s.Carts().DeleteCartItems(ctx, "u1", []string{first.ID}))
	require.NoError(t, s.Carts().DeleteCartItems(ctx, "u2", []string{second.ID}))

	items, err := s.Carts().ListCartItems(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, second.ID, items[0].ID)
}

func TestDeleteCategory_DetachesProducts(t *testing.T) {
	ctx := context.Background()
	s := New()
	category := &entity.Category{Name: "Lighting", Slug: "lighting"}
	require.NoError(t, s.Categories().CreateCategory(ctx, category))

	p := &entity.Product{Name: "Lamp", SKU: "L-1", Price: decimal.RequireFromString("9.99"), CategoryID: &category.ID}
	require.NoError(t, s.Products().CreateProduct(ctx, p))
	seedProduct(t, s, "B", "1.00", 1)

	list, total, err := s.Products().ListProducts(ctx, repository.ProductFilter{CategoryID: category.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, p.ID, list[0].ID)

	require.NoError(t, s.Categories().DeleteCategory(ctx, category.ID))

	got, err := s.Products().GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
}

func TestCreateProduct_UnknownCategory(t *testing.T) {
	missing := "missing"
	p := &entity.Product{Name: "Lamp", SKU: "L-1", Price: decimal.RequireFromString("9.99"), CategoryID: &missing}
	err := New().Products().CreateProduct(context.Background(), p)
	assert.ErrorIs(t, err, apperror.ErrCategoryNotFound)
}

func TestCreateCategory_DuplicateSlug(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Categories().CreateCategory(ctx, &entity.Category{Name: "Lighting", Slug: "lighting"}))
	err := s.Categories().CreateCategory(ctx, &entity.Category{Name: "Lights", Slug: "lighting"})
	assert.ErrorIs(t, err, apperror.ErrCategoryTaken)
}

func TestReviews_OnePerUserAndSummary(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, "A", "5.00", 1)

	require.NoError(t, s.Reviews().CreateReview(ctx, &entity.Review{UserID: "u1", ProductID: p.ID, Rating: 5}))
	require.NoError(t, s.Reviews().CreateReview(ctx, &entity.Review{UserID: "u2", ProductID: p.ID, Rating: 4}))
	require.NoError(t, s.Reviews().CreateReview(ctx, &entity.Review{UserID: "u3", ProductID: p.ID, Rating: 4}))
	err := s.Reviews().CreateReview(ctx, &entity.Review{UserID: "u1", ProductID: p.ID, Rating: 1})
	assert.ErrorIs(t, err, apperror.ErrAlreadyReviewed)

	summary, err := s.Reviews().RatingSummary(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.ReviewCount)
	require.NotNil(t, summary.AverageRating)
	assert.Equal(t, 4.33, *summary.AverageRating)

	list, total, err := s.Reviews().ListReviews(ctx, repository.ReviewFilter{ProductID: p.ID, MinRating: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "u1", list[0].UserID)

	require.NoError(t, s.Products().DeleteProduct(ctx, p.ID))
	_, total, err = s.Reviews().ListReviews(ctx, repository.ReviewFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, "A", "5.00", 1)
	buyer := &entity.User{Email: "buyer@example.com", Role: entity.RoleUser}
	browser := &entity.User{Email: "browser@example.com", Role: entity.RoleUser}
	require.NoError(t, s.Users().CreateUser(ctx, buyer))
	require.NoError(t, s.Users().CreateUser(ctx, browser))
	require.NoError(t, s.Orders().CreateOrder(ctx, &entity.Order{UserID: buyer.ID, Status: entity.OrderStatusPending}))
	require.NoError(t, s.Reviews().CreateReview(ctx, &entity.Review{UserID: browser.ID, ProductID: p.ID, Rating: 3}))
	_, err := s.Carts().GetOrCreateCart(ctx, browser.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Users().DeleteUser(ctx, buyer.ID), apperror.ErrUserHasOrders)

	require.NoError(t, s.Users().DeleteUser(ctx, browser.ID))
	_, err = s.Users().GetUserByID(ctx, browser.ID)
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)
	_, err = s.Carts().GetCart(ctx, browser.ID)
	assert.ErrorIs(t, err, apperror.ErrCartNotFound)
	summary, err := s.Reviews().RatingSummary(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, summary.ReviewCount)

	assert.ErrorIs(t, s.Users().DeleteUser(ctx, browser.ID), apperror.ErrUserNotFound)
}

func TestUpdateUser_EmailTaken(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := &entity.User{Email: "a@example.com"}
	b := &entity.User{Email: "b@example.com"}
	require.NoError(t, s.Users().CreateUser(ctx, a))
	require.NoError(t, s.Users().CreateUser(ctx, b))

	b.Email = "A@example.com"
	assert.ErrorIs(t, s.Users().UpdateUser(ctx, b), apperror.ErrEmailTaken)

	list, total, err := s.Users().ListUsers(ctx, repository.Page{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, list, 1)
	assert.Equal(t, "b@example.com", list[0].Email)
}
