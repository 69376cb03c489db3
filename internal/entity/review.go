package entity

import (
	"math"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is one user's rating of one product. A user reviews a product at most once.
type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type RatingSummary struct {
	ProductID string `json:"productId"`
	// AverageRating is nil while the product has no reviews.
	AverageRating *float64 `json:"averageRating"`
	ReviewCount   int      `json:"reviewCount"`
}

// NewRatingSummary rounds the average to two decimals.
func NewRatingSummary(productID string, sum, count int) RatingSummary {
	summary := RatingSummary{ProductID: productID, ReviewCount: count}
	if count > 0 {
		avg := math.Round(float64(sum)/float64(count)*100) / 100
		summary.AverageRating = &avg
	}
	return summary
}
