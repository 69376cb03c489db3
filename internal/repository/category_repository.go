package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"

	"github.com/google/uuid"
)

type CategoryRepository struct {
	db DBTX
}

func NewCategoryRepository(db DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `id, name, description, slug, created_at, updated_at`

func scanCategory(row interface{ Scan(...interface{}) error }) (*entity.Category, error) {
	c := &entity.Category{}
	var description sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &description, &c.Slug, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Description = description.String
	return c, nil
}

func (r *CategoryRepository) CreateCategory(ctx context.Context, category *entity.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	category.CreatedAt, category.UpdatedAt = now, now

	query := `INSERT INTO categories (` + categoryColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, category.ID, category.Name, nullString(category.Description),
		category.Slug, category.CreatedAt, category.UpdatedAt)
	if err != nil && isDuplicateEntry(err) {
		return apperror.ErrCategoryTaken.Wrap(err)
	}
	return err
}

func (r *CategoryRepository) GetCategory(ctx context.Context, id string) (*entity.Category, error) {
	category, err := scanCategory(r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrCategoryNotFound.WithMessagef("category with id %s not found", id)
	}
	return category, err
}

func (r *CategoryRepository) GetCategoryBySlug(ctx context.Context, slug string) (*entity.Category, error) {
	category, err := scanCategory(r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE slug = ?`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrCategoryNotFound.WithMessagef("category with slug %s not found", slug)
	}
	return category, err
}

func (r *CategoryRepository) ListCategories(ctx context.Context) ([]entity.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []entity.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) UpdateCategory(ctx context.Context, category *entity.Category) error {
	category.UpdatedAt = time.Now().UTC()
	query := `UPDATE categories SET name = ?, description = ?, slug = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, category.Name, nullString(category.Description), category.Slug,
		category.UpdatedAt, category.ID)
	if err != nil {
		if isDuplicateEntry(err) {
			return apperror.ErrCategoryTaken.Wrap(err)
		}
		return err
	}
	return expectAffected(res, apperror.ErrCategoryNotFound.WithMessagef("category with id %s not found", category.ID))
}

// DeleteCategory relies on the foreign key to null out products.category_id.
func (r *CategoryRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res, apperror.ErrCategoryNotFound.WithMessagef("category with id %s not found", id))
}
