package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"

	"github.com/google/uuid"
)

type ReviewRepository struct {
	db DBTX
}

func NewReviewRepository(db DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewColumns = `id, user_id, product_id, rating, comment, created_at, updated_at`

func scanReview(row interface{ Scan(...interface{}) error }) (*entity.Review, error) {
	rv := &entity.Review{}
	var comment sql.NullString
	if err := row.Scan(&rv.ID, &rv.UserID, &rv.ProductID, &rv.Rating, &comment, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
		return nil, err
	}
	rv.Comment = comment.String
	return rv, nil
}

func (r *ReviewRepository) CreateReview(ctx context.Context, review *entity.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	review.CreatedAt, review.UpdatedAt = now, now

	query := `INSERT INTO reviews (` + reviewColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, review.ID, review.UserID, review.ProductID, review.Rating,
		nullString(review.Comment), review.CreatedAt, review.UpdatedAt)
	switch {
	case err == nil:
		return nil
	case isDuplicateEntry(err):
		return apperror.ErrAlreadyReviewed.Wrap(err)
	case isForeignKeyViolation(err):
		return apperror.ErrProductNotFound.WithMessagef("product with id %s not found", review.ProductID).Wrap(err)
	}
	return err
}

func (r *ReviewRepository) GetReview(ctx context.Context, id string) (*entity.Review, error) {
	review, err := scanReview(r.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrReviewNotFound.WithMessagef("review with id %s not found", id)
	}
	return review, err
}

// ListReviews returns the newest reviews first.
func (r *ReviewRepository) ListReviews(ctx context.Context, filter ReviewFilter) ([]entity.Review, int, error) {
	filter = filter.Normalize()

	var where []string
	var args []interface{}
	if filter.ProductID != "" {
		where = append(where, "product_id = ?")
		args = append(args, filter.ProductID)
	}
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.MinRating > 0 {
		where = append(where, "rating >= ?")
		args = append(args, filter.MinRating)
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + reviewColumns + ` FROM reviews` + whereSQL + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reviews := []entity.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		reviews = append(reviews, *rv)
	}
	return reviews, total, rows.Err()
}

func (r *ReviewRepository) UpdateReview(ctx context.Context, review *entity.Review) error {
	review.UpdatedAt = time.Now().UTC()
	query := `UPDATE reviews SET rating = ?, comment = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, review.Rating, nullString(review.Comment), review.UpdatedAt, review.ID)
	if err != nil {
		return err
	}
	return expectAffected(res, apperror.ErrReviewNotFound.WithMessagef("review with id %s not found", review.ID))
}

func (r *ReviewRepository) DeleteReview(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res, apperror.ErrReviewNotFound.WithMessagef("review with id %s not found", id))
}

func (r *ReviewRepository) RatingSummary(ctx context.Context, productID string) (entity.RatingSummary, error) {
	var sum, count int
	query := `SELECT COALESCE(SUM(rating), 0), COUNT(*) FROM reviews WHERE product_id = ?`
	if err := r.db.QueryRowContext(ctx, query, productID).Scan(&sum, &count); err != nil {
		return entity.RatingSummary{}, err
	}
	return entity.NewRatingSummary(productID, sum, count), nil
}
