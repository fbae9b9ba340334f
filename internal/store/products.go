package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/zaloga/internal/model"
)

// CreateProduct adds a catalog product.
func CreateProduct(ctx context.Context, db *sql.DB, title, asin, brand string) (*model.Product, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, model.Validationf("product title is required")
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO products (title, asin, brand) VALUES (?, ?, ?)`,
		title, strings.TrimSpace(asin), strings.TrimSpace(brand),
	)
	if err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting product id: %w", err)
	}

	return GetProduct(ctx, db, id)
}

// GetProduct returns a product by ID.
func GetProduct(ctx context.Context, db *sql.DB, id int64) (*model.Product, error) {
	p := &model.Product{}
	err := db.QueryRowContext(ctx,
		`SELECT id, title, asin, brand, created_at FROM products WHERE id = ?`, id,
	).Scan(&p.ID, &p.Title, &p.ASIN, &p.Brand, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}
	return p, nil
}

// ListProducts returns all products ordered by title.
func ListProducts(ctx context.Context, db *sql.DB) ([]model.Product, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, title, asin, brand, created_at FROM products ORDER BY title, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.ASIN, &p.Brand, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
