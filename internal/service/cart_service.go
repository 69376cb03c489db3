package service

import (
	"context"
	"errors"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"
	"commerce-service/internal/repository"
)

type CartService struct {
	store repository.Store
}

func NewCartService(store repository.Store) *CartService {
	return &CartService{store: store}
}

// CartView is a cart with its computed total.
type CartView struct {
	*entity.Cart
	Total string `json:"total"`
}

func newCartView(cart *entity.Cart) *CartView {
	return &CartView{Cart: cart, Total: cart.Total().StringFixed(2)}
}

// GetCart returns an empty cart when the user never added anything.
func (s *CartService) GetCart(ctx context.Context, userID string) (*CartView, error) {
	cart, err := s.store.Carts().GetCart(ctx, userID)
	if errors.Is(err, apperror.ErrCartNotFound) {
		return newCartView(&entity.Cart{UserID: userID, Items: []entity.CartItem{}}), nil
	}
	if err != nil {
		logger.Error().Err(err).Msgf("Error getting cart for user %s", userID)
		return nil, apperror.Internal(err)
	}
	return newCartView(cart), nil
}

// AddItem merges quantities when the product is already in the cart.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, apperror.ErrInvalidInput.WithMessagef("quantity must be at least 1")
	}

	err := s.store.ExecTx(ctx, func(tx repository.Scope) error {
		product, err := tx.Products().GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		cart, err := tx.Carts().GetOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}

		item := &entity.CartItem{CartID: cart.ID, ProductID: product.ID}
		for _, existing := range cart.Items {
			if existing.ProductID == product.ID {
				e := existing
				item = &e
				break
			}
		}
		item.Quantity += quantity
		if product.StockQuantity < item.Quantity {
			return apperror.ErrInsufficientStock.WithMessagef(
				"insufficient stock for product %s, available: %d, requested: %d", product.Name, product.StockQuantity, item.Quantity)
		}
		item.PriceAtTimeOfAddition = product.Price
		return tx.Carts().SaveCartItem(ctx, item)
	})
	if err != nil {
		return nil, s.fail(err, "Error adding product %s to cart of user %s", productID, userID)
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, apperror.ErrInvalidInput.WithMessagef("quantity must be at least 1")
	}

	err := s.store.ExecTx(ctx, func(tx repository.Scope) error {
		cart, err := tx.Carts().GetCart(ctx, userID)
		if err != nil {
			if errors.Is(err, apperror.ErrCartNotFound) {
				return apperror.ErrCartItemNotFound.WithMessagef("cart item with id %s not found in your cart", itemID)
			}
			return err
		}
		var item *entity.CartItem
		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				item = &cart.Items[i]
				break
			}
		}
		if item == nil {
			return apperror.ErrCartItemNotFound.WithMessagef("cart item with id %s not found in your cart", itemID)
		}

		product, err := tx.Products().GetProduct(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if product.StockQuantity < quantity {
			return apperror.ErrInsufficientStock.WithMessagef(
				"insufficient stock for product %s, available: %d, requested: %d", product.Name, product.StockQuantity, quantity)
		}
		item.Quantity = quantity
		return tx.Carts().SaveCartItem(ctx, item)
	})
	if err != nil {
		return nil, s.fail(err, "Error updating cart item %s of user %s", itemID, userID)
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) (*CartView, error) {
	if err := s.store.Carts().DeleteCartItem(ctx, userID, itemID); err != nil {
		return nil, s.fail(err, "Error removing cart item %s of user %s", itemID, userID)
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) Clear(ctx context.Context, userID string) error {
	if err := s.store.Carts().ClearCart(ctx, userID); err != nil {
		return s.fail(err, "Error clearing cart of user %s", userID)
	}
	return nil
}

// Snapshot returns the user's cart lines oldest first. It takes no locks;
// checkout re-reads every product inside its own transaction.
func (s *CartService) Snapshot(ctx context.Context, userID string) ([]entity.CartLine, error) {
	return snapshot(ctx, s.store.Carts(), userID)
}

// snapshot reads the lines through carts, which may be bound to a transaction.
func snapshot(ctx context.Context, carts repository.CartStore, userID string) ([]entity.CartLine, error) {
	items, err := carts.ListCartItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines := make([]entity.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, entity.CartLine{
			ItemID:    item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.PriceAtTimeOfAddition,
		})
	}
	return lines, nil
}

func (s *CartService) fail(err error, format string, args ...interface{}) error {
	if apperror.IsKnown(err) {
		return err
	}
	logger.Error().Err(err).Msgf(format, args...)
	return apperror.Internal(err)
}
