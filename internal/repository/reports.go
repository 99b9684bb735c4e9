package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MahirRamani/consumer-store/internal/domain"
)

// WeeklySales returns items sold per day over the trailing seven days,
// including zero rows for days without sales. productID <= 0 means all
// products.
func (r *Repository) WeeklySales(ctx context.Context, productID int64) ([]domain.DailySales, error) {
	rows, err := r.pool.Query(ctx, `
		WITH days AS (
			SELECT generate_series(
				CURRENT_DATE - INTERVAL '6 days',
				CURRENT_DATE,
				INTERVAL '1 day'
			)::date AS day
		),
		sold AS (
			SELECT
				t.created_at::date AS day,
				SUM(i.quantity)::int AS items
			FROM transactions t
			JOIN transaction_items i ON i.transaction_id = t.id
			WHERE
				t.status = 'completed'
				AND t.created_at >= CURRENT_DATE - INTERVAL '6 days'
				AND ($1::bigint <= 0 OR i.product_id = $1)
			GROUP BY 1
		)
		SELECT
			TO_CHAR(d.day, 'YYYY-MM-DD'),
			TO_CHAR(d.day, 'Dy'),
			COALESCE(s.items, 0)::int
		FROM days d
		LEFT JOIN sold s ON s.day = d.day
		ORDER BY d.day ASC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("weekly sales query: %w", err)
	}
	defer rows.Close()

	list := make([]domain.DailySales, 0, 7)
	for rows.Next() {
		var row domain.DailySales
		if err := rows.Scan(&row.Date, &row.Day, &row.Items); err != nil {
			return nil, fmt.Errorf("scan weekly sales: %w", err)
		}
		list = append(list, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weekly sales: %w", err)
	}
	return list, nil
}

// ProductSalesSummary lists the best-selling products over the last N days
// with quantity and revenue. days <= 0 means all time.
func (r *Repository) ProductSalesSummary(ctx context.Context, days, limit int) ([]domain.ProductSales, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 200 {
		limit = 200
	}

	rows, err := r.pool.Query(ctx, `
		SELECT
			i.product_id,
			COALESCE(p.name, ''),
			SUM(i.quantity)::int AS quantity,
			SUM(i.quantity * i.unit_price) AS revenue
		FROM transactions t
		JOIN transaction_items i ON i.transaction_id = t.id
		LEFT JOIN products p ON p.id = i.product_id
		WHERE
			t.status = 'completed'
			AND ($1::int <= 0 OR t.created_at >= NOW() - ($1 * INTERVAL '1 day'))
		GROUP BY i.product_id, p.name
		ORDER BY quantity DESC, p.name ASC
		LIMIT $2
	`, days, limit)
	if err != nil {
		return nil, fmt.Errorf("product sales query: %w", err)
	}
	defer rows.Close()

	list := make([]domain.ProductSales, 0, limit)
	for rows.Next() {
		var (
			row     domain.ProductSales
			revenue int64
		)
		if err := rows.Scan(&row.ProductID, &row.Name, &row.Quantity, &revenue); err != nil {
			return nil, fmt.Errorf("scan product sales: %w", err)
		}
		row.Revenue = domain.Money(revenue)
		list = append(list, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product sales: %w", err)
	}
	return list, nil
}

// SoldItems lists the distinct products that appear in completed
// transactions, for chart filter dropdowns.
func (r *Repository) SoldItems(ctx context.Context) ([]domain.SoldItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT i.product_id, p.name
		FROM transactions t
		JOIN transaction_items i ON i.transaction_id = t.id
		JOIN products p ON p.id = i.product_id
		WHERE t.status = 'completed'
		ORDER BY p.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("sold items query: %w", err)
	}
	defer rows.Close()

	items := make([]domain.SoldItem, 0)
	for rows.Next() {
		var item domain.SoldItem
		if err := rows.Scan(&item.ProductID, &item.Name); err != nil {
			return nil, fmt.Errorf("scan sold item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sold items: %w", err)
	}
	return items, nil
}

// RecentStockUpdates lists restocks from the last three days joined with the
// current product state, newest first, capped at twenty entries.
func (r *Repository) RecentStockUpdates(ctx context.Context) ([]domain.StockUpdate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			l.id,
			l.product_id,
			p.name,
			c.name,
			p.price,
			p.stock,
			l.quantity_change,
			l.previous_stock,
			l.new_stock,
			COALESCE(NULLIF(l.reason, ''), 'Stock replenishment'),
			l.user_id,
			l.created_at
		FROM inventory_logs l
		JOIN products p ON p.id = l.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE
			l.action = 'restock'
			AND l.quantity_change > 0
			AND l.created_at >= NOW() - INTERVAL '3 days'
		ORDER BY l.created_at DESC
		LIMIT 20
	`)
	if err != nil {
		return nil, fmt.Errorf("recent stock updates query: %w", err)
	}
	defer rows.Close()

	updates := make([]domain.StockUpdate, 0, 20)
	for rows.Next() {
		var (
			row    domain.StockUpdate
			price  int64
			userID sql.NullInt64
		)
		if err := rows.Scan(
			&row.ID,
			&row.ProductID,
			&row.ProductName,
			&row.Category,
			&price,
			&row.CurrentStock,
			&row.QuantityAdded,
			&row.PreviousStock,
			&row.NewStock,
			&row.Reason,
			&userID,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan recent stock update: %w", err)
		}
		row.Price = domain.Money(price)
		if userID.Valid {
			value := userID.Int64
			row.UserID = &value
		}
		updates = append(updates, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent stock updates: %w", err)
	}
	return updates, nil
}

// RecentProducts returns the latest catalog additions.
func (r *Repository) RecentProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 5
	}
	if limit > 100 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+productFrom+`
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent products query: %w", err)
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
		return nil, fmt.Errorf("iterate recent products: %w", err)
	}
	return products, nil
}
