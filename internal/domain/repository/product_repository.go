package repository

import (
	"context"

	"github.com/cric2000/Amazon-price-tracker/internal/domain/entity"
)

// ProductRepository defines the persistence boundary for tracked products and
// their price history.
type ProductRepository interface {
	Create(ctx context.Context, p *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	ListAll(ctx context.Context) ([]entity.Product, error)
	ListByUser(ctx context.Context, userID string) ([]entity.Product, error)
	UpdateCurrentPrice(ctx context.Context, id string, price float64) error
	UpdateTargetPrice(ctx context.Context, id string, price float64) error
	Delete(ctx context.Context, id string) error

	AppendHistory(ctx context.Context, h *entity.PriceHistory) error
	// HistoryByProduct returns observations newest first. limit <= 0 returns
	// the full history.
	HistoryByProduct(ctx context.Context, productID string, limit int) ([]entity.PriceHistory, error)
}
