package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type CartItem struct {
	ID                    string          `json:"id"`
	CartID                string          `json:"cartId"`
	ProductID             string          `json:"productId"`
	ProductName           string          `json:"productName,omitempty"`
	Quantity              int             `json:"quantity"`
	PriceAtTimeOfAddition decimal.Decimal `json:"priceAtTimeOfAddition"`
	CreatedAt             time.Time       `json:"createdAt"`
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.PriceAtTimeOfAddition.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// CartLine is a read-only view of one cart item used to seed an order.
type CartLine struct {
	ItemID    string
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}
