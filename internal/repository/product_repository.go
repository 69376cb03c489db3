package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"

	"github.com/google/uuid"
)

type ProductRepository struct {
	db DBTX
}

func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, description, price, stock_quantity, sku, image_url, category_id, created_at, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (*entity.Product, error) {
	p := &entity.Product{}
	var imageURL, categoryID sql.NullString
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity, &p.SKU, &imageURL, &categoryID,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ImageURL = imageURL.String
	if categoryID.Valid {
		p.CategoryID = &categoryID.String
	}
	return p, nil
}

func (r *ProductRepository) CreateProduct(ctx context.Context, product *entity.Product) error {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	product.CreatedAt, product.UpdatedAt = now, now

	query := `INSERT INTO products (` + productColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, product.ID, product.Name, product.Description, product.Price,
		product.StockQuantity, product.SKU, nullString(product.ImageURL), nullStringPtr(product.CategoryID),
		product.CreatedAt, product.UpdatedAt)
	return productWriteError(err)
}

func (r *ProductRepository) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	return r.getProduct(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
}

func (r *ProductRepository) GetProductForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.getProduct(ctx, `SELECT `+productColumns+` FROM products WHERE id = ? FOR UPDATE`, id)
}

func (r *ProductRepository) getProduct(ctx context.Context, query, id string) (*entity.Product, error) {
	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrProductNotFound.WithMessagef("product with id %s not found", id)
	}
	return product, err
}

func (r *ProductRepository) ListProducts(ctx context.Context, filter ProductFilter) ([]entity.Product, int, error) {
	filter = filter.Normalize()

	var where []string
	var args []interface{}
	if filter.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.Search != "" {
		where = append(where, "(name LIKE ? OR description LIKE ?)")
		like := "%" + filter.Search + "%"
		args = append(args, like, like)
	}
	if filter.MinPrice != nil {
		where = append(where, "price >= ?")
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		where = append(where, "price <= ?")
		args = append(args, *filter.MaxPrice)
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY %s %s LIMIT ? OFFSET ?`,
		productColumns, whereSQL, productSortColumns[filter.SortBy], filter.Order)
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := []entity.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

func (r *ProductRepository) UpdateProduct(ctx context.Context, product *entity.Product) error {
	product.UpdatedAt = time.Now().UTC()

	query := `UPDATE products SET name = ?, description = ?, price = ?, sku = ?, image_url = ?, category_id = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, product.Name, product.Description, product.Price, product.SKU,
		nullString(product.ImageURL), nullStringPtr(product.CategoryID), product.UpdatedAt, product.ID)
	if err := productWriteError(err); err != nil {
		return err
	}
	return expectAffected(res, apperror.ErrProductNotFound.WithMessagef("product with id %s not found", product.ID))
}

func (r *ProductRepository) DeleteProduct(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res, apperror.ErrProductNotFound.WithMessagef("product with id %s not found", id))
}

// AdjustStock issues a single conditional update so concurrent decrements
// cannot oversell. When no row changes it re-reads to tell a missing
// product apart from a short one.
func (r *ProductRepository) AdjustStock(ctx context.Context, id string, delta int) (*entity.Product, error) {
	query := `UPDATE products SET stock_quantity = stock_quantity + ?, updated_at = ? WHERE id = ? AND stock_quantity + ? >= 0`
	res, err := r.db.ExecContext(ctx, query, delta, time.Now().UTC(), id, delta)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	product, err := r.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if affected == 0 && delta != 0 {
		return nil, apperror.ErrInsufficientStock.WithMessagef(
			"insufficient stock for product %s, available: %d, requested: %d", product.Name, product.StockQuantity, -delta)
	}
	return product, nil
}

func expectAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return nullString(*s)
}

// productWriteError maps constraint failures on insert or update.
func productWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case isDuplicateEntry(err):
		return apperror.ErrSKUTaken.Wrap(err)
	case isForeignKeyViolation(err):
		return apperror.ErrCategoryNotFound.Wrap(err)
	}
	return err
}
