package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cric2000/Amazon-price-tracker/internal/domain/entity"
	"github.com/cric2000/Amazon-price-tracker/internal/domain/repository"
)

const productColumns = `id, user_id, url, title, COALESCE(image_url, ''), current_price, target_price, created_at, updated_at`

type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) Create(ctx context.Context, p *entity.Product) error {
	var imageURL any
	if p.ImageURL != "" {
		imageURL = p.ImageURL
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO products (user_id, url, title, image_url, current_price, target_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, p.UserID, p.URL, p.Title, imageURL, p.CurrentPrice, p.TargetPrice)

	return row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	p := &entity.Product{}
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err := scanProduct(row, p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *ProductRepository) ListAll(ctx context.Context) ([]entity.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (r *ProductRepository) ListByUser(ctx context.Context, userID string) ([]entity.Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+` FROM products WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (r *ProductRepository) UpdateCurrentPrice(ctx context.Context, id string, price float64) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE products SET current_price = $1, updated_at = $2 WHERE id = $3
	`, price, time.Now(), id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) UpdateTargetPrice(ctx context.Context, id string, price float64) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE products SET target_price = $1, updated_at = $2 WHERE id = $3
	`, price, time.Now(), id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) AppendHistory(ctx context.Context, h *entity.PriceHistory) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO price_history (product_id, price)
		VALUES ($1, $2)
		RETURNING id, checked_at
	`, h.ProductID, h.Price)
	return row.Scan(&h.ID, &h.CheckedAt)
}

func (r *ProductRepository) HistoryByProduct(ctx context.Context, productID string, limit int) ([]entity.PriceHistory, error) {
	query := `
		SELECT id, product_id, price, checked_at
		FROM price_history
		WHERE product_id = $1
		ORDER BY checked_at DESC
	`
	args := []any{productID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.PriceHistory
	for rows.Next() {
		var h entity.PriceHistory
		if err := rows.Scan(&h.ID, &h.ProductID, &h.Price, &h.CheckedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row, p *entity.Product) error {
	return row.Scan(&p.ID, &p.UserID, &p.URL, &p.Title, &p.ImageURL,
		&p.CurrentPrice, &p.TargetPrice, &p.CreatedAt, &p.UpdatedAt)
}

func collectProducts(rows pgx.Rows) ([]entity.Product, error) {
	var out []entity.Product
	for rows.Next() {
		var p entity.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var _ repository.ProductRepository = (*ProductRepository)(nil)
