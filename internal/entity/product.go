package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	SKU           string          `json:"sku"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	CategoryID    *string         `json:"categoryId"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// MarshalBinary lets the product be written to redis directly.
func (p Product) MarshalBinary() ([]byte, error) {
	return json.Marshal(p)
}
