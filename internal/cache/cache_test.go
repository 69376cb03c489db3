package cache

import (
	"context"
	"testing"
	"time"

	"commerce-service/internal/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, time.Minute), mr
}

func TestCache_ProductRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	miss, err := c.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, miss)

	product := &entity.Product{ID: "p1", Name: "Lamp", Price: decimal.RequireFromString("12.30"), StockQuantity: 7}
	require.NoError(t, c.SetProduct(ctx, product))
	assert.True(t, mr.Exists("product:p1"))
	assert.Equal(t, time.Minute, mr.TTL("product:p1"))

	hit, err := c.GetProduct(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, 7, hit.StockQuantity)
	assert.True(t, hit.Price.Equal(product.Price))

	require.NoError(t, c.DeleteProducts(ctx, "p1", "p2"))
	assert.False(t, mr.Exists("product:p1"))
}

func TestCache_CorruptProductIsAMiss(t *testing.T) {
	c, mr := newCache(t)
	require.NoError(t, mr.Set("product:p1", "{not json"))

	got, err := c.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_IdempotencyKey(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	ok, err := c.ClaimIdempotencyKey(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.ClaimIdempotencyKey(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 24*time.Hour, mr.TTL("idempotent-key:abc"))

	require.NoError(t, c.ReleaseIdempotencyKey(ctx, "abc"))
	ok, err = c.ClaimIdempotencyKey(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCache_RefreshTokens(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	token, err := c.RefreshToken(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, c.SaveRefreshToken(ctx, "u1", "tok", time.Hour))
	token, err = c.RefreshToken(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	mr.FastForward(2 * time.Hour)
	token, err = c.RefreshToken(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, c.SaveRefreshToken(ctx, "u1", "tok2", time.Hour))
	require.NoError(t, c.DeleteRefreshToken(ctx, "u1"))
	token, err = c.RefreshToken(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, token)
}
