package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/MahirRamani/consumer-store/internal/domain"

	"github.com/jackc/pgx/v5"
)

type ProductListFilter struct {
	Search          string
	CategoryID      *int64
	IncludeInactive bool
	Limit           int
	Offset          int
}

type ProductCreateInput struct {
	Name              string
	CategoryID        int64
	Price             domain.Money
	Stock             int
	LowStockThreshold int
	Barcode           *string
	Description       *string
}

type ProductPatchInput struct {
	Name              *string
	CategoryID        *int64
	Price             *domain.Money
	LowStockThreshold *int
	Barcode           *string
	Description       *string
	IsActive          *bool
}

const productColumns = `
	p.id,
	p.name,
	p.category_id,
	c.name,
	p.price,
	p.stock,
	p.low_stock_threshold,
	p.barcode,
	p.description,
	p.is_active,
	p.created_at,
	p.updated_at
`

const productFrom = `
	FROM products p
	JOIN categories c ON c.id = p.category_id
`

func (r *Repository) ListProducts(ctx context.Context, filter ProductListFilter) ([]domain.Product, error) {
	limit := normalizeLimit(filter.Limit)
	offset := normalizeOffset(filter.Offset)
	search := strings.TrimSpace(filter.Search)

	query := `
		SELECT ` + productColumns + productFrom + `
		WHERE ($1 = '' OR p.name ILIKE '%' || $1 || '%' OR p.barcode = $1)
	`
	args := []any{search}
	argIndex := 2
	if !filter.IncludeInactive {
		query += " AND p.is_active = TRUE"
	}
	if filter.CategoryID != nil {
		query += fmt.Sprintf(" AND p.category_id = $%d", argIndex)
		args = append(args, *filter.CategoryID)
		argIndex++
	}
	query += fmt.Sprintf(" ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, limit)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func (r *Repository) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+productColumns+productFrom+`
		WHERE p.id = $1
	`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return &product, nil
}

func (r *Repository) CreateProduct(ctx context.Context, input ProductCreateInput) (domain.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.Product{}, fmt.Errorf("name is required")
	}
	if input.CategoryID <= 0 {
		return domain.Product{}, fmt.Errorf("category_id is required")
	}
	if input.Price < 0 {
		return domain.Product{}, fmt.Errorf("price cannot be negative")
	}
	if input.Stock < 0 {
		return domain.Product{}, fmt.Errorf("stock cannot be negative")
	}
	if input.LowStockThreshold < 0 {
		return domain.Product{}, fmt.Errorf("low_stock_threshold cannot be negative")
	}

	var id int64
	if err := r.pool.QueryRow(ctx, `
		INSERT INTO products (name, category_id, price, stock, low_stock_threshold, barcode, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, name, input.CategoryID, int64(input.Price), input.Stock,
		input.LowStockThreshold, input.Barcode, input.Description,
	).Scan(&id); err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}

	product, err := r.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (r *Repository) PatchProduct(ctx context.Context, id int64, input ProductPatchInput) (*domain.Product, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin patch product tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT `+productColumns+productFrom+`
		WHERE p.id = $1
		FOR UPDATE OF p
	`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load product for patch: %w", err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("name cannot be empty")
		}
		product.Name = name
	}
	if input.CategoryID != nil {
		if *input.CategoryID <= 0 {
			return nil, fmt.Errorf("invalid category_id")
		}
		product.CategoryID = *input.CategoryID
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, fmt.Errorf("price cannot be negative")
		}
		product.Price = *input.Price
	}
	if input.LowStockThreshold != nil {
		if *input.LowStockThreshold < 0 {
			return nil, fmt.Errorf("low_stock_threshold cannot be negative")
		}
		product.LowStockThreshold = *input.LowStockThreshold
	}
	if input.Barcode != nil {
		product.Barcode = input.Barcode
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if _, err := tx.Exec(ctx, `
		UPDATE products
		SET
			name = $2,
			category_id = $3,
			price = $4,
			low_stock_threshold = $5,
			barcode = $6,
			description = $7,
			is_active = $8,
			updated_at = NOW()
		WHERE id = $1
	`,
		id,
		product.Name,
		product.CategoryID,
		int64(product.Price),
		product.LowStockThreshold,
		product.Barcode,
		product.Description,
		product.IsActive,
	); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit patch product tx: %w", err)
	}
	return r.GetProductByID(ctx, id)
}

func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LowStockProducts lists active products at or below their own threshold.
// The threshold alerts, it never blocks a sale.
func (r *Repository) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ` + productColumns + productFrom + `
		WHERE p.is_active = TRUE AND p.stock <= p.low_stock_threshold
		ORDER BY p.stock ASC, p.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list low stock products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate low stock products: %w", err)
	}
	return products, nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		product     domain.Product
		price       int64
		barcode     sql.NullString
		description sql.NullString
	)
	if err := row.Scan(
		&product.ID,
		&product.Name,
		&product.CategoryID,
		&product.CategoryName,
		&price,
		&product.Stock,
		&product.LowStockThreshold,
		&barcode,
		&description,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return domain.Product{}, err
	}
	product.Price = domain.Money(price)
	if barcode.Valid {
		value := barcode.String
		product.Barcode = &value
	}
	if description.Valid {
		value := description.String
		product.Description = &value
	}
	return product, nil
}
