package migrations

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoMigrateCreatesTablesInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for _, name := range []string{"users", "categories", "products", "carts", "cart_items", "orders", "order_items", "reviews", "todos"} {
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS ` + name + ` \(`).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, AutoMigrate(3, db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAutoMigrateKeepsOrderItemPosition(t *testing.T) {
	for _, table := range tables {
		if table.name == "order_items" {
			assert.Contains(t, table.query, "position INT NOT NULL")
			assert.Contains(t, table.query, "idx_order_items_position (order_id, position)")
			return
		}
	}
	t.Fatal("order_items table missing")
}

func TestAutoMigrateRetries(t *testing.T) {
	retryDelay = time.Millisecond
	t.Cleanup(func() { retryDelay = time.Second })

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnError(errors.New("connection refused"))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS categories`).WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS categories`).WillReturnError(errors.New("lock wait timeout"))

	err = AutoMigrate(1, db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate categories")
	assert.NoError(t, mock.ExpectationsWereMet())
}
