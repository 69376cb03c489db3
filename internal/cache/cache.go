package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"commerce-service/internal/entity"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

const idempotencyTTL = 24 * time.Hour

// Cache wraps redis for product lookups, idempotency keys and refresh-token sessions.
type Cache struct {
	rdb        *redis.Client
	productTTL time.Duration
}

func New(rdb *redis.Client, productTTL time.Duration) *Cache {
	return &Cache{rdb: rdb, productTTL: productTTL}
}

func productKey(id string) string { return fmt.Sprintf("product:%s", id) }

func idempotencyKey(key string) string { return fmt.Sprintf("idempotent-key:%s", key) }

func refreshTokenKey(userID string) string { return fmt.Sprintf("refresh-token:%s", userID) }

// GetProduct returns nil without error on a cache miss.
func (c *Cache) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	raw, err := c.rdb.Get(ctx, productKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var product entity.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		logger.Error().Err(err).Msgf("Error unmarshalling cached product %s", id)
		return nil, nil
	}
	return &product, nil
}

func (c *Cache) SetProduct(ctx context.Context, product *entity.Product) error {
	return c.rdb.Set(ctx, productKey(product.ID), *product, c.productTTL).Err()
}

func (c *Cache) DeleteProducts(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// ClaimIdempotencyKey reports false when the key was already claimed within the last 24 hours.
func (c *Cache) ClaimIdempotencyKey(ctx context.Context, key string) (bool, error) {
	return c.rdb.SetNX(ctx, idempotencyKey(key), "exists", idempotencyTTL).Result()
}

func (c *Cache) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, idempotencyKey(key)).Err()
}

func (c *Cache) SaveRefreshToken(ctx context.Context, userID, token string, ttl time.Duration) error {
	return c.rdb.Set(ctx, refreshTokenKey(userID), token, ttl).Err()
}

// RefreshToken returns "" when the user has no live session.
func (c *Cache) RefreshToken(ctx context.Context, userID string) (string, error) {
	token, err := c.rdb.Get(ctx, refreshTokenKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

func (c *Cache) DeleteRefreshToken(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, refreshTokenKey(userID)).Err()
}
