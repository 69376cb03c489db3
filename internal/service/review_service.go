package service

import (
	"context"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"
	"commerce-service/internal/repository"
)

type ReviewService struct {
	store repository.Store
}

func NewReviewService(store repository.Store) *ReviewService {
	return &ReviewService{store: store}
}

type ReviewInput struct {
	ProductID string
	Rating    int
	Comment   string
}

type ReviewPatch struct {
	Rating  *int
	Comment *string
}

func checkRating(rating int) error {
	if rating < entity.MinRating || rating > entity.MaxRating {
		return apperror.ErrInvalidInput.WithMessagef("rating must be between %d and %d", entity.MinRating, entity.MaxRating)
	}
	return nil
}

// Create records the caller's single review of a product.
func (s *ReviewService) Create(ctx context.Context, userID string, input ReviewInput) (*entity.Review, error) {
	if err := checkRating(input.Rating); err != nil {
		return nil, err
	}
	review := &entity.Review{UserID: userID, ProductID: input.ProductID, Rating: input.Rating, Comment: input.Comment}
	err := s.store.ExecTx(ctx, func(tx repository.Scope) error {
		if _, err := tx.Products().GetProduct(ctx, input.ProductID); err != nil {
			return err
		}
		return tx.Reviews().CreateReview(ctx, review)
	})
	if err != nil {
		return nil, failf(err, "Error creating review of product %s", input.ProductID)
	}
	return review, nil
}

func (s *ReviewService) Get(ctx context.Context, id string) (*entity.Review, error) {
	review, err := s.store.Reviews().GetReview(ctx, id)
	if err != nil {
		return nil, failf(err, "Error getting review %s", id)
	}
	return review, nil
}

func (s *ReviewService) List(ctx context.Context, filter repository.ReviewFilter) (Page[entity.Review], error) {
	filter = filter.Normalize()
	if filter.MinRating != 0 {
		if err := checkRating(filter.MinRating); err != nil {
			return Page[entity.Review]{}, err
		}
	}
	reviews, total, err := s.store.Reviews().ListReviews(ctx, filter)
	if err != nil {
		return Page[entity.Review]{}, failf(err, "Error listing reviews")
	}
	return newPage(reviews, total, filter.Page.Page, filter.Limit), nil
}

// ListForProduct fails with PRODUCT_NOT_FOUND for unknown products instead of returning an empty page.
func (s *ReviewService) ListForProduct(ctx context.Context, productID string, page repository.Page) (Page[entity.Review], error) {
	if _, err := s.store.Products().GetProduct(ctx, productID); err != nil {
		return Page[entity.Review]{}, failf(err, "Error getting product %s", productID)
	}
	return s.List(ctx, repository.ReviewFilter{Page: page, ProductID: productID})
}

// Update is limited to the review's author.
func (s *ReviewService) Update(ctx context.Context, actor Actor, id string, patch ReviewPatch) (*entity.Review, error) {
	if patch.Rating != nil {
		if err := checkRating(*patch.Rating); err != nil {
			return nil, err
		}
	}
	var review *entity.Review
	err := s.store.ExecTx(ctx, func(tx repository.Scope) error {
		current, err := tx.Reviews().GetReview(ctx, id)
		if err != nil {
			return err
		}
		if current.UserID != actor.UserID {
			return apperror.ErrForbidden.WithMessagef("you can only edit your own reviews")
		}
		if patch.Rating != nil {
			current.Rating = *patch.Rating
		}
		if patch.Comment != nil {
			current.Comment = *patch.Comment
		}
		if err := tx.Reviews().UpdateReview(ctx, current); err != nil {
			return err
		}
		review = current
		return nil
	})
	if err != nil {
		return nil, failf(err, "Error updating review %s", id)
	}
	return review, nil
}

// Delete is allowed for the author and for admins.
func (s *ReviewService) Delete(ctx context.Context, actor Actor, id string) error {
	err := s.store.ExecTx(ctx, func(tx repository.Scope) error {
		current, err := tx.Reviews().GetReview(ctx, id)
		if err != nil {
			return err
		}
		if current.UserID != actor.UserID && !actor.IsAdmin() {
			return apperror.ErrForbidden.WithMessagef("you can only delete your own reviews")
		}
		return tx.Reviews().DeleteReview(ctx, id)
	})
	if err != nil {
		return failf(err, "Error deleting review %s", id)
	}
	return nil
}

func (s *ReviewService) Average(ctx context.Context, productID string) (entity.RatingSummary, error) {
	if _, err := s.store.Products().GetProduct(ctx, productID); err != nil {
		return entity.RatingSummary{}, failf(err, "Error getting product %s", productID)
	}
	summary, err := s.store.Reviews().RatingSummary(ctx, productID)
	if err != nil {
		return entity.RatingSummary{}, failf(err, "Error computing rating of product %s", productID)
	}
	return summary, nil
}
