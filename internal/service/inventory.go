package service

import (
	"context"

	"commerce-service/internal/entity"
	"commerce-service/internal/metrics"
	"commerce-service/internal/repository"
)

// InventoryLedger is the only writer of product stock. Callers pass the
// product store of their open transaction so the adjustment commits or
// rolls back with everything else they do.
type InventoryLedger struct{}

func NewInventoryLedger() *InventoryLedger {
	return &InventoryLedger{}
}

// AdjustStock adds delta units. A negative delta fails with
// ErrInsufficientStock rather than taking the stock below zero.
func (l *InventoryLedger) AdjustStock(ctx context.Context, products repository.ProductStore, productID string, delta int) (*entity.Product, error) {
	product, err := products.AdjustStock(ctx, productID, delta)
	if err != nil {
		logger.Warn().Err(err).Msgf("Stock adjustment of %d rejected for product %s", delta, productID)
		return nil, err
	}
	metrics.RecordStockAdjustment(delta)
	return product, nil
}
