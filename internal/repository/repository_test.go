package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db), mock
}

func productRow(id string, stock int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "description", "price", "stock_quantity", "sku", "image_url", "category_id", "created_at", "updated_at"}).
		AddRow(id, "Desk Lamp", "warm light", "24.99", stock, "LAMP-1", nil, nil, now, now)
}

func TestProductRepository_AdjustStock(t *testing.T) {
	ctx := context.Background()

	t.Run("decrement applies", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectExec(`UPDATE products SET stock_quantity = stock_quantity \+ \?`).
			WithArgs(-2, sqlmock.AnyArg(), "p1", -2).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT .* FROM products WHERE id = \?`).WithArgs("p1").WillReturnRows(productRow("p1", 3))

		product, err := store.Products().AdjustStock(ctx, "p1", -2)
		require.NoError(t, err)
		assert.Equal(t, 3, product.StockQuantity)
		assert.True(t, product.Price.Equal(decimal.RequireFromString("24.99")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient stock leaves row untouched", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectExec(`UPDATE products SET stock_quantity`).
			WithArgs(-5, sqlmock.AnyArg(), "p1", -5).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT .* FROM products WHERE id = \?`).WithArgs("p1").WillReturnRows(productRow("p1", 1))

		_, err := store.Products().AdjustStock(ctx, "p1", -5)
		assert.ErrorIs(t, err, apperror.ErrInsufficientStock)
		assert.Contains(t, err.Error(), "available: 1, requested: 5")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing product", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectExec(`UPDATE products SET stock_quantity`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT .* FROM products WHERE id = \?`).WithArgs("nope").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := store.Products().AdjustStock(ctx, "nope", 1)
		assert.ErrorIs(t, err, apperror.ErrProductNotFound)
	})
}

func TestProductRepository_CreateDuplicateSKU(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO products`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'LAMP-1' for key 'sku'"})

	err := store.Products().CreateProduct(context.Background(), &entity.Product{Name: "Lamp", SKU: "LAMP-1"})
	assert.ErrorIs(t, err, apperror.ErrSKUTaken)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestOrderRepository_CreateOrderBatchInsertsItems(t *testing.T) {
	store, mock := newMock(t)
	productID := "p1"
	order := &entity.Order{
		UserID:      "u1",
		Status:      entity.OrderStatusPending,
		TotalAmount: decimal.RequireFromString("30.00"),
		Items: []entity.OrderItem{
			{ProductID: &productID, ProductNameSnapshot: "Lamp", Quantity: 2, PriceAtTimeOfOrder: decimal.RequireFromString("10.00")},
			{ProductNameSnapshot: "Gone", Quantity: 1, PriceAtTimeOfOrder: decimal.RequireFromString("10.00")},
		},
	}

	mock.ExpectExec(`INSERT INTO orders`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO order_items \(id, order_id, position, .* VALUES \(\?, \?, \?, \?, \?, \?, \?\),\(\?, \?, \?, \?, \?, \?, \?\)$`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 0, productID, "Lamp", 2, sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), 1, nil, "Gone", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, store.Orders().CreateOrder(context.Background(), order))
	assert.NotEmpty(t, order.ID)
	for _, item := range order.Items {
		assert.Equal(t, order.ID, item.OrderID)
		assert.NotEmpty(t, item.ID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateOrderStatusIsCompareAndSet(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(`UPDATE orders SET status = \?.* WHERE id = \? AND status = \?`).
		WithArgs(entity.OrderStatusCancelled, sqlmock.AnyArg(), sqlmock.AnyArg(), "o1", entity.OrderStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.Orders().UpdateOrderStatus(context.Background(), "o1", entity.OrderStatusPending, entity.OrderStatusCancelled, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ExecTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit on success", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE ci FROM cart_items`).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		err := store.ExecTx(ctx, func(tx Scope) error {
			return tx.Carts().ClearCart(ctx, "u1")
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback returns the callback error", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := store.ExecTx(ctx, func(tx Scope) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_ListByCategory(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products WHERE category_id = \?`).WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	rows := productRow("p1", 4)
	mock.ExpectQuery(`SELECT .* FROM products WHERE category_id = \? ORDER BY created_at DESC LIMIT \? OFFSET \?`).
		WithArgs("c1", DefaultPageLimit, 0).WillReturnRows(rows)

	list, total, err := store.Products().ListProducts(context.Background(), ProductFilter{CategoryID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].CategoryID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_UpdateUnknownCategory(t *testing.T) {
	store, mock := newMock(t)
	categoryID := "c-missing"
	mock.ExpectExec(`UPDATE products SET .*category_id = \?`).
		WithArgs("Lamp", "", sqlmock.AnyArg(), "L-1", nil, categoryID, sqlmock.AnyArg(), "p1").
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})

	err := store.Products().UpdateProduct(context.Background(), &entity.Product{ID: "p1", Name: "Lamp", SKU: "L-1", CategoryID: &categoryID})
	assert.ErrorIs(t, err, apperror.ErrCategoryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_DeleteCartItemsOnlyListed(t *testing.T) {
	ctx := context.Background()
	store, mock := newMock(t)
	mock.ExpectExec(`DELETE ci FROM cart_items ci JOIN carts c ON c.id = ci.cart_id WHERE c.user_id = \? AND ci.id IN \(\?, \?\)`).
		WithArgs("u1", "i1", "i2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, store.Carts().DeleteCartItems(ctx, "u1", []string{"i1", "i2"}))
	require.NoError(t, store.Carts().DeleteCartItems(ctx, "u1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate name", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectExec(`INSERT INTO categories`).
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'Lighting' for key 'name'"})

		err := store.Categories().CreateCategory(ctx, &entity.Category{Name: "Lighting", Slug: "lighting"})
		assert.ErrorIs(t, err, apperror.ErrCategoryTaken)
	})

	t.Run("by slug", func(t *testing.T) {
		store, mock := newMock(t)
		now := time.Now()
		mock.ExpectQuery(`SELECT .* FROM categories WHERE slug = \?`).WithArgs("lighting").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "slug", "created_at", "updated_at"}).
				AddRow("c1", "Lighting", nil, "lighting", now, now))

		category, err := store.Categories().GetCategoryBySlug(ctx, "lighting")
		require.NoError(t, err)
		assert.Equal(t, "c1", category.ID)
		assert.Empty(t, category.Description)
	})

	t.Run("delete missing", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectExec(`DELETE FROM categories WHERE id = \?`).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.Categories().DeleteCategory(ctx, "c1")
		assert.ErrorIs(t, err, apperror.ErrCategoryNotFound)
	})
}

func TestReviewRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("second review by the same user", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectExec(`INSERT INTO reviews`).
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'uq_reviews_user_product'"})

		err := store.Reviews().CreateReview(ctx, &entity.Review{UserID: "u1", ProductID: "p1", Rating: 4})
		assert.ErrorIs(t, err, apperror.ErrAlreadyReviewed)
	})

	t.Run("summary rounds the average", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectQuery(`SELECT COALESCE\(SUM\(rating\), 0\), COUNT\(\*\) FROM reviews WHERE product_id = \?`).
			WithArgs("p1").WillReturnRows(sqlmock.NewRows([]string{"sum", "count"}).AddRow(13, 3))

		summary, err := store.Reviews().RatingSummary(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 3, summary.ReviewCount)
		require.NotNil(t, summary.AverageRating)
		assert.Equal(t, 4.33, *summary.AverageRating)
	})

	t.Run("list caps the page size", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM reviews WHERE product_id = \? AND rating >= \?`).WithArgs("p1", 4).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`ORDER BY created_at DESC, id LIMIT \? OFFSET \?`).WithArgs("p1", 4, MaxReviewLimit, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		list, total, err := store.Reviews().ListReviews(ctx, ReviewFilter{ProductID: "p1", MinRating: 4, Page: Page{Limit: 100}})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, list)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_DeleteUserWithOrders(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(`DELETE FROM users WHERE id = \?`).WithArgs("u1").
		WillReturnError(&mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"})

	err := store.Users().DeleteUser(context.Background(), "u1")
	assert.ErrorIs(t, err, apperror.ErrUserHasOrders)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestOrderFilter_Normalize(t *testing.T) {
	end := time.Date(2024, 3, 9, 15, 30, 0, 0, time.UTC)
	f := OrderFilter{SortBy: "password", Order: "sideways", EndDate: &end, Page: Page{Page: 0, Limit: 500}}.Normalize()

	assert.Equal(t, "order_date", f.SortBy)
	assert.Equal(t, SortDesc, f.Order)
	assert.Equal(t, 1, f.Page.Page)
	assert.Equal(t, MaxPageLimit, f.Limit)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), *f.EndExclusive())
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}
