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

type CartRepository struct {
	db DBTX
}

func NewCartRepository(db DBTX) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) GetCart(ctx context.Context, userID string) (*entity.Cart, error) {
	cart := &entity.Cart{}
	err := r.db.QueryRowContext(ctx, `SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = ?`, userID).
		Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}

	items, err := r.ListCartItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return cart, nil
}

func (r *CartRepository) GetOrCreateCart(ctx context.Context, userID string) (*entity.Cart, error) {
	cart, err := r.GetCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, apperror.ErrCartNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	cart = &entity.Cart{ID: uuid.NewString(), UserID: userID, Items: []entity.CartItem{}, CreatedAt: now, UpdatedAt: now}
	_, err = r.db.ExecContext(ctx, `INSERT INTO carts (id, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		cart.ID, cart.UserID, cart.CreatedAt, cart.UpdatedAt)
	if err != nil {
		// another request created it first
		if isDuplicateEntry(err) {
			return r.GetCart(ctx, userID)
		}
		return nil, err
	}
	return cart, nil
}

func (r *CartRepository) ListCartItems(ctx context.Context, userID string) ([]entity.CartItem, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, p.name, ci.quantity, ci.price_at_time_of_addition, ci.created_at
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		JOIN products p ON p.id = ci.product_id
		WHERE c.user_id = ?
		ORDER BY ci.created_at, ci.id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []entity.CartItem{}
	for rows.Next() {
		item := entity.CartItem{}
		err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.ProductName, &item.Quantity,
			&item.PriceAtTimeOfAddition, &item.CreatedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SaveCartItem inserts the item when it has no id yet and updates its quantity and price otherwise.
func (r *CartRepository) SaveCartItem(ctx context.Context, item *entity.CartItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
		item.CreatedAt = time.Now().UTC()
		query := `INSERT INTO cart_items (id, cart_id, product_id, quantity, price_at_time_of_addition, created_at) VALUES (?, ?, ?, ?, ?, ?)`
		_, err := r.db.ExecContext(ctx, query, item.ID, item.CartID, item.ProductID, item.Quantity,
			item.PriceAtTimeOfAddition, item.CreatedAt)
		return err
	}

	query := `UPDATE cart_items SET quantity = ?, price_at_time_of_addition = ? WHERE id = ? AND cart_id = ?`
	res, err := r.db.ExecContext(ctx, query, item.Quantity, item.PriceAtTimeOfAddition, item.ID, item.CartID)
	if err != nil {
		return err
	}
	return expectAffected(res, apperror.ErrCartItemNotFound)
}

func (r *CartRepository) DeleteCartItem(ctx context.Context, userID, itemID string) error {
	query := `DELETE ci FROM cart_items ci JOIN carts c ON c.id = ci.cart_id WHERE ci.id = ? AND c.user_id = ?`
	res, err := r.db.ExecContext(ctx, query, itemID, userID)
	if err != nil {
		return err
	}
	return expectAffected(res, apperror.ErrCartItemNotFound.WithMessagef("cart item with id %s not found in your cart", itemID))
}

func (r *CartRepository) DeleteCartItems(ctx context.Context, userID string, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	query := `DELETE ci FROM cart_items ci JOIN carts c ON c.id = ci.cart_id WHERE c.user_id = ? AND ci.id IN (` + placeholders(len(itemIDs)) + `)`
	args := make([]interface{}, 0, len(itemIDs)+1)
	args = append(args, userID)
	for _, id := range itemIDs {
		args = append(args, id)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *CartRepository) ClearCart(ctx context.Context, userID string) error {
	query := `DELETE ci FROM cart_items ci JOIN carts c ON c.id = ci.cart_id WHERE c.user_id = ?`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}
