package entity

import (
	"time"
)

// Product is a tracked listing. CurrentPrice always reflects the most recent
// successful extraction and is never older than the newest PriceHistory row
// for the same product.
type Product struct {
	ID           string
	UserID       string
	URL          string
	Title        string
	ImageURL     string
	CurrentPrice float64
	TargetPrice  float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BelowTarget reports whether the given price breaches the alert threshold.
func (p *Product) BelowTarget(price float64) bool {
	return price <= p.TargetPrice
}
