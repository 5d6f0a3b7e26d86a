package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/cric2000/Amazon-price-tracker/config"
	"github.com/cric2000/Amazon-price-tracker/pkg/helpers"
)

// seed inserts a demo account and one tracked product so the dashboard has
// something to show on a fresh database.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	email := "demo@example.com"
	password := "password123"
	name := "Demo User"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var userID string
	err = db.QueryRow(`
		INSERT INTO users (email, password_hash, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, email, hash, name).Scan(&userID)
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s password=%s\n", userID, email, password)

	url := "https://www.amazon.in/dp/B09B8V1LZ3"
	var productID string
	err = db.QueryRow(`
		INSERT INTO products (user_id, url, title, current_price, target_price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, url) DO UPDATE SET target_price = EXCLUDED.target_price
		RETURNING id
	`, userID, url, "Echo Dot (4th Gen)", 4499.0, 3499.0).Scan(&productID)
	if err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}

	if _, err := db.Exec(`
		INSERT INTO price_history (product_id, price) VALUES ($1, $2)
	`, productID, 4499.0); err != nil {
		log.Fatalf("failed to seed price history: %v", err)
	}
	fmt.Printf("seeded product: id=%s url=%s\n", productID, url)
}
