package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusFailed     OrderStatus = "FAILED"
)

// forward progression of a live order; CANCELLED and FAILED sit outside it
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:    1,
	OrderStatusProcessing: 2,
	OrderStatusShipped:    3,
	OrderStatusDelivered:  4,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further status change is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusFailed
}

// Cancellable reports whether a customer may still cancel an order in this status.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusProcessing
}

// ReleasesStock reports whether reaching s hands the reserved units back to inventory.
func (s OrderStatus) ReleasesStock() bool {
	return s == OrderStatusCancelled || s == OrderStatusFailed
}

// CanTransitionTo reports whether an order in status s may move to next.
// Staying in the same status is not a transition and returns false.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next || s.IsTerminal() || !next.Valid() {
		return false
	}
	if next.ReleasesStock() {
		return true
	}
	return orderStatusRank[next] > orderStatusRank[s]
}

// Address is stored as a JSON document on the order row.
type Address struct {
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *Address) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	case nil:
		*a = Address{}
		return nil
	}
	return errors.New("entity: unsupported address column type")
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Status          OrderStatus     `json:"status"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress Address         `json:"shippingAddress"`
	BillingAddress  Address         `json:"billingAddress"`
	PaymentRef      *string         `json:"paymentIntentId,omitempty"`
	OrderDate       time.Time       `json:"orderDate"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Items           []OrderItem     `json:"items"`
}

// OrderItem is immutable once written. ProductID becomes nil when the
// product is deleted; the name and price snapshots stay.
type OrderItem struct {
	ID                  string          `json:"id"`
	OrderID             string          `json:"orderId"`
	ProductID           *string         `json:"productId"`
	ProductNameSnapshot string          `json:"productNameSnapshot"`
	Quantity            int             `json:"quantity"`
	PriceAtTimeOfOrder  decimal.Decimal `json:"priceAtTimeOfOrder"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.PriceAtTimeOfOrder.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemsTotal sums price times quantity over every line item.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}
