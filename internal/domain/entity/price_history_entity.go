package entity

import (
	"time"
)

// PriceHistory is an append-only observation log. One row is written per
// detected price change, including the initial reading at ingestion. Rows are
// never mutated or deleted.
type PriceHistory struct {
	ID        int64
	ProductID string
	Price     float64
	CheckedAt time.Time
}
