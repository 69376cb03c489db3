package service

import (
	"context"
	"regexp"
	"strings"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"
	"commerce-service/internal/repository"
)

type CategoryService struct {
	store repository.Store
	cache ProductCache
}

// NewCategoryService creates a new instance of CategoryService. cache may be nil.
func NewCategoryService(store repository.Store, cache ProductCache) *CategoryService {
	return &CategoryService{store: store, cache: cache}
}

type CategoryInput struct {
	Name        string
	Description string
	// Slug defaults to one derived from Name.
	Slug string
}

type CategoryPatch struct {
	Name        *string
	Description *string
	Slug        *string
}

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	slugSplitter = regexp.MustCompile(`[^a-z0-9]+`)
)

func slugify(name string) string {
	return strings.Trim(slugSplitter.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func checkCategory(c *entity.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return apperror.ErrInvalidInput.WithMessagef("category name is required")
	}
	if c.Slug == "" {
		c.Slug = slugify(c.Name)
	}
	if !slugPattern.MatchString(c.Slug) {
		return apperror.ErrInvalidInput.WithMessagef("slug %q must be lowercase letters and digits joined by hyphens", c.Slug)
	}
	return nil
}

func (s *CategoryService) Create(ctx context.Context, input CategoryInput) (*entity.Category, error) {
	category := &entity.Category{Name: input.Name, Description: input.Description, Slug: input.Slug}
	if err := checkCategory(category); err != nil {
		return nil, err
	}
	if err := s.store.Categories().CreateCategory(ctx, category); err != nil {
		return nil, failf(err, "Error creating category %s", category.Slug)
	}
	return category, nil
}

func (s *CategoryService) Get(ctx context.Context, id string) (*entity.Category, error) {
	category, err := s.store.Categories().GetCategory(ctx, id)
	if err != nil {
		return nil, failf(err, "Error getting category %s", id)
	}
	return category, nil
}

func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*entity.Category, error) {
	category, err := s.store.Categories().GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, failf(err, "Error getting category by slug %s", slug)
	}
	return category, nil
}

func (s *CategoryService) List(ctx context.Context) ([]entity.Category, error) {
	categories, err := s.store.Categories().ListCategories(ctx)
	if err != nil {
		return nil, failf(err, "Error listing categories")
	}
	return categories, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, patch CategoryPatch) (*entity.Category, error) {
	var category *entity.Category
	err := s.store.ExecTx(ctx, func(tx repository.Scope) error {
		current, err := tx.Categories().GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			current.Name = *patch.Name
		}
		if patch.Description != nil {
			current.Description = *patch.Description
		}
		if patch.Slug != nil {
			current.Slug = *patch.Slug
		}
		if err := checkCategory(current); err != nil {
			return err
		}
		if err := tx.Categories().UpdateCategory(ctx, current); err != nil {
			return err
		}
		category = current
		return nil
	})
	if err != nil {
		return nil, failf(err, "Error updating category %s", id)
	}
	return category, nil
}

// Delete removes the category and evicts the cached copies of the products
// that pointed at it.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	var detached []string
	err := s.store.ExecTx(ctx, func(tx repository.Scope) error {
		filter := repository.ProductFilter{CategoryID: id, Page: repository.Page{Page: 1, Limit: repository.MaxPageLimit}}
		for {
			products, total, err := tx.Products().ListProducts(ctx, filter)
			if err != nil {
				return err
			}
			for _, p := range products {
				detached = append(detached, p.ID)
			}
			if filter.Offset()+len(products) >= total || len(products) == 0 {
				break
			}
			filter.Page.Page++
		}
		return tx.Categories().DeleteCategory(ctx, id)
	})
	if err != nil {
		return failf(err, "Error deleting category %s", id)
	}
	if s.cache != nil && len(detached) > 0 {
		if err := s.cache.DeleteProducts(ctx, detached...); err != nil {
			logger.Error().Err(err).Msgf("Error evicting products of category %s", id)
		}
	}
	return nil
}

// failf logs unexpected errors and hides them behind an internal error.
func failf(err error, format string, args ...interface{}) error {
	if apperror.IsKnown(err) {
		return err
	}
	logger.Error().Err(err).Msgf(format, args...)
	return apperror.Internal(err)
}
