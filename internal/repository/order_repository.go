package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"commerce-service/internal/apperror"
	"commerce-service/internal/entity"

	"github.com/google/uuid"
)

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, user_id, status, total_amount, shipping_address, billing_address, payment_intent_id, order_date, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (*entity.Order, error) {
	o := &entity.Order{}
	var paymentRef sql.NullString
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.ShippingAddress, &o.BillingAddress,
		&paymentRef, &o.OrderDate, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if paymentRef.Valid {
		o.PaymentRef = &paymentRef.String
	}
	o.Items = []entity.OrderItem{}
	return o, nil
}

// CreateOrder inserts the order row and all of its items in one batch statement.
func (r *OrderRepository) CreateOrder(ctx context.Context, order *entity.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	order.CreatedAt, order.UpdatedAt = now, now
	if order.OrderDate.IsZero() {
		order.OrderDate = now
	}

	orderQuery := `INSERT INTO orders (` + orderColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, orderQuery, order.ID, order.UserID, order.Status, order.TotalAmount,
		order.ShippingAddress, order.BillingAddress, stringPtr(order.PaymentRef), order.OrderDate, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return err
	}

	if len(order.Items) == 0 {
		return nil
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, position, product_id, product_name_snapshot, quantity, price_at_time_of_order)
		VALUES `

	var values []interface{}
	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.OrderID = order.ID
		itemQuery += "(?, ?, ?, ?, ?, ?, ?),"
		values = append(values, item.ID, item.OrderID, i, stringPtr(item.ProductID), item.ProductNameSnapshot,
			item.Quantity, item.PriceAtTimeOfOrder)
	}
	itemQuery = itemQuery[:len(itemQuery)-1]

	_, err = r.db.ExecContext(ctx, itemQuery, values...)
	return err
}

func (r *OrderRepository) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
}

func (r *OrderRepository) GetOrderForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ? FOR UPDATE`, id)
}

func (r *OrderRepository) getOrder(ctx context.Context, query, id string) (*entity.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrOrderNotFound.WithMessagef("order with id %s not found", id)
	}
	if err != nil {
		return nil, err
	}

	orders := []entity.Order{*order}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *OrderRepository) ListOrders(ctx context.Context, filter OrderFilter) ([]entity.Order, int, error) {
	filter = filter.Normalize()

	var where []string
	var args []interface{}
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.StartDate != nil {
		where = append(where, "order_date >= ?")
		args = append(args, *filter.StartDate)
	}
	if end := filter.EndExclusive(); end != nil {
		where = append(where, "order_date < ?")
		args = append(args, *end)
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY %s %s LIMIT ? OFFSET ?`,
		orderColumns, whereSQL, orderSortColumns[filter.SortBy], filter.Order)
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := []entity.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// loadItems fills Items for every order with a single IN query, keeping
// the order in which the items were placed.
func (r *OrderRepository) loadItems(ctx context.Context, orders []entity.Order) error {
	if len(orders) == 0 {
		return nil
	}

	index := make(map[string]int, len(orders))
	args := make([]interface{}, 0, len(orders))
	for i, o := range orders {
		index[o.ID] = i
		args = append(args, o.ID)
	}

	query := `SELECT id, order_id, product_id, product_name_snapshot, quantity, price_at_time_of_order
		FROM order_items WHERE order_id IN (` + placeholders(len(orders)) + `) ORDER BY order_id, position`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		item := entity.OrderItem{}
		var productID sql.NullString
		err := rows.Scan(&item.ID, &item.OrderID, &productID, &item.ProductNameSnapshot, &item.Quantity, &item.PriceAtTimeOfOrder)
		if err != nil {
			return err
		}
		if productID.Valid {
			item.ProductID = &productID.String
		}
		if i, ok := index[item.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	return rows.Err()
}

func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, id string, from, to entity.OrderStatus, paymentRef *string) (bool, error) {
	query := `UPDATE orders SET status = ?, payment_intent_id = COALESCE(?, payment_intent_id), updated_at = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, query, to, stringPtr(paymentRef), time.Now().UTC(), id, from)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func stringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
