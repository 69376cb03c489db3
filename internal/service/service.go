package service

import (
	"context"
	"os"
	"time"

	"commerce-service/internal/entity"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// OrderEventPublisher is satisfied by *events.Publisher.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, eventType string, order *entity.Order) error
}

// IdempotencyGuard is satisfied by *cache.Cache.
type IdempotencyGuard interface {
	ClaimIdempotencyKey(ctx context.Context, key string) (bool, error)
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

// ProductCache is satisfied by *cache.Cache.
type ProductCache interface {
	GetProduct(ctx context.Context, id string) (*entity.Product, error)
	SetProduct(ctx context.Context, product *entity.Product) error
	DeleteProducts(ctx context.Context, ids ...string) error
}

// SessionStore keeps the single valid refresh token per user. Satisfied by *cache.Cache.
type SessionStore interface {
	SaveRefreshToken(ctx context.Context, userID, token string, ttl time.Duration) error
	RefreshToken(ctx context.Context, userID string) (string, error)
	DeleteRefreshToken(ctx context.Context, userID string) error
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   entity.Role
}

func (a Actor) IsAdmin() bool { return entity.HasRole(entity.RoleAdmin, a.Role) }

// Page is one slice of a listing.
type Page[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

func newPage[T any](data []T, total, page, limit int) Page[T] {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Page[T]{Data: data, Total: total, Page: page, Limit: limit, TotalPages: pages}
}
