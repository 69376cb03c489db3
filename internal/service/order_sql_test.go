package service

import (
	"context"
	"testing"
	"time"

	"commerce-service/internal/apperror"
	"commerce-service/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqlProductRow(id, name string, stock int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "description", "price", "stock_quantity", "sku", "image_url", "category_id", "created_at", "updated_at"}).
		AddRow(id, name, "", "3.00", stock, "SKU-"+id, nil, nil, now, now)
}

func sqlCartRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "cart_id", "product_id", "name", "quantity", "price_at_time_of_addition", "created_at"}).
		AddRow("i-b", "c1", "p-b", "Bolt", 2, "3.00", now).
		AddRow("i-a", "c1", "p-a", "Anchor", 1, "3.00", now.Add(time.Second))
}

// A conditional stock update that changes no row must abort the whole checkout.
func TestCreateOrder_SQLStoreRollsBackWhenStockUpdateMisses(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := repository.NewSQLStore(db)
	orders := NewOrderService(store, NewCartService(store), NewInventoryLedger(), nil, nil)

	const cartQuery = `SELECT ci.id, ci.cart_id, ci.product_id, p.name, .* WHERE c.user_id = \? ORDER BY ci.created_at, ci.id`
	mock.ExpectQuery(cartQuery).WithArgs("u1").WillReturnRows(sqlCartRows())
	mock.ExpectBegin()
	mock.ExpectQuery(cartQuery).WithArgs("u1").WillReturnRows(sqlCartRows())

	// rows are locked in product id order, not cart order
	mock.ExpectQuery(`SELECT .* FROM products WHERE id = \? FOR UPDATE`).WithArgs("p-a").
		WillReturnRows(sqlProductRow("p-a", "Anchor", 5))
	mock.ExpectExec(`UPDATE products SET stock_quantity = stock_quantity \+ \?, updated_at = \? WHERE id = \? AND stock_quantity \+ \? >= 0`).
		WithArgs(-1, sqlmock.AnyArg(), "p-a", -1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .* FROM products WHERE id = \?$`).WithArgs("p-a").
		WillReturnRows(sqlProductRow("p-a", "Anchor", 4))

	mock.ExpectQuery(`SELECT .* FROM products WHERE id = \? FOR UPDATE`).WithArgs("p-b").
		WillReturnRows(sqlProductRow("p-b", "Bolt", 2))
	mock.ExpectExec(`UPDATE products SET stock_quantity = stock_quantity \+ \?`).
		WithArgs(-2, sqlmock.AnyArg(), "p-b", -2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM products WHERE id = \?$`).WithArgs("p-b").
		WillReturnRows(sqlProductRow("p-b", "Bolt", 1))
	mock.ExpectRollback()

	_, err = orders.CreateOrder(context.Background(), "u1", CreateOrderInput{ShippingAddress: testAddress})
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "available: 1, requested: 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}
