package migrations

import (
	"database/sql"
	"fmt"
	"time"
)

// tables are created in dependency order.
var tables = []struct {
	name  string
	query string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id CHAR(36) PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			first_name VARCHAR(100) NOT NULL DEFAULT '',
			last_name VARCHAR(100) NOT NULL DEFAULT '',
			role VARCHAR(20) NOT NULL DEFAULT 'user',
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL
		);
	`},
	{"categories", `
		CREATE TABLE IF NOT EXISTS categories (
			id CHAR(36) PRIMARY KEY,
			name VARCHAR(100) NOT NULL UNIQUE,
			description TEXT,
			slug VARCHAR(120) NOT NULL UNIQUE,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL
		);
	`},
	{"products", `
		CREATE TABLE IF NOT EXISTS products (
			id CHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			price DECIMAL(10,2) NOT NULL,
			stock_quantity INT NOT NULL DEFAULT 0,
			sku VARCHAR(100) NOT NULL UNIQUE,
			image_url VARCHAR(1024),
			category_id CHAR(36) NULL,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			CONSTRAINT chk_products_stock CHECK (stock_quantity >= 0),
			INDEX idx_products_name (name),
			INDEX idx_products_category (category_id),
			FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE SET NULL
		);
	`},
	{"carts", `
		CREATE TABLE IF NOT EXISTS carts (
			id CHAR(36) PRIMARY KEY,
			user_id CHAR(36) NOT NULL UNIQUE,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);
	`},
	{"cart_items", `
		CREATE TABLE IF NOT EXISTS cart_items (
			id CHAR(36) PRIMARY KEY,
			cart_id CHAR(36) NOT NULL,
			product_id CHAR(36) NOT NULL,
			quantity INT NOT NULL,
			price_at_time_of_addition DECIMAL(10,2) NOT NULL,
			created_at DATETIME(6) NOT NULL,
			UNIQUE KEY uq_cart_items_product (cart_id, product_id),
			FOREIGN KEY (cart_id) REFERENCES carts(id) ON DELETE CASCADE,
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE
		);
	`},
	{"orders", `
		CREATE TABLE IF NOT EXISTS orders (
			id CHAR(36) PRIMARY KEY,
			user_id CHAR(36) NOT NULL,
			status VARCHAR(20) NOT NULL,
			total_amount DECIMAL(12,2) NOT NULL,
			shipping_address JSON NOT NULL,
			billing_address JSON NOT NULL,
			payment_intent_id VARCHAR(255),
			order_date DATETIME(6) NOT NULL,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			INDEX idx_orders_user_date (user_id, order_date),
			INDEX idx_orders_status (status),
			FOREIGN KEY (user_id) REFERENCES users(id)
		);
	`},
	{"order_items", `
		CREATE TABLE IF NOT EXISTS order_items (
			id CHAR(36) PRIMARY KEY,
			order_id CHAR(36) NOT NULL,
			position INT NOT NULL DEFAULT 0,
			product_id CHAR(36) NULL,
			product_name_snapshot VARCHAR(255) NOT NULL,
			quantity INT NOT NULL,
			price_at_time_of_order DECIMAL(10,2) NOT NULL,
			INDEX idx_order_items_position (order_id, position),
			FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE SET NULL
		);
	`},
	{"reviews", `
		CREATE TABLE IF NOT EXISTS reviews (
			id CHAR(36) PRIMARY KEY,
			user_id CHAR(36) NOT NULL,
			product_id CHAR(36) NOT NULL,
			rating TINYINT NOT NULL,
			comment TEXT,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			CONSTRAINT chk_reviews_rating CHECK (rating BETWEEN 1 AND 5),
			UNIQUE KEY uq_reviews_user_product (user_id, product_id),
			INDEX idx_reviews_product (product_id, created_at),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE
		);
	`},
	{"todos", `
		CREATE TABLE IF NOT EXISTS todos (
			id CHAR(36) PRIMARY KEY,
			user_id CHAR(36) NOT NULL,
			title VARCHAR(255) NOT NULL,
			description TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'OPEN',
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			INDEX idx_todos_user (user_id, created_at),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);
	`},
}

// retryDelay is a variable so tests can shorten it.
var retryDelay = time.Second

// AutoMigrate creates every table that does not exist yet, retrying each
// statement up to retries more times before giving up.
func AutoMigrate(retries int, db *sql.DB) error {
	for _, table := range tables {
		if err := execWithRetry(db, retries, table.query); err != nil {
			return fmt.Errorf("migrate %s: %w", table.name, err)
		}
	}
	return nil
}

func execWithRetry(db *sql.DB, retries int, query string) error {
	_, err := db.Exec(query)
	for i := 0; err != nil && i < retries; i++ {
		time.Sleep(retryDelay)
		_, err = db.Exec(query)
	}
	return err
}
