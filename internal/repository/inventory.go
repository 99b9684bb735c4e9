package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MahirRamani/consumer-store/internal/domain"

	"github.com/jackc/pgx/v5"
)

type InventoryLogFilter struct {
	Action    string
	ProductID *int64
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

type StockAdjustInput struct {
	ProductID int64
	Change    int
	Action    string
	Reason    string
	UserID    *int64
}

// AdjustStock is the restock/adjustment path: it mutates product stock
// directly and appends the matching inventory log entry in one transaction.
// It shares the log shape with the settlement engine but is a distinct,
// simpler code path; the resulting stock must never be negative.
func (r *Repository) AdjustStock(ctx context.Context, input StockAdjustInput) (*domain.InventoryLog, error) {
	if input.Action != domain.LogActionRestock && input.Action != domain.LogActionAdjustment {
		return nil, fmt.Errorf("invalid action %q", input.Action)
	}
	if input.Change == 0 {
		return nil, fmt.Errorf("change cannot be zero")
	}
	if input.Action == domain.LogActionRestock && input.Change < 0 {
		return nil, fmt.Errorf("restock change must be positive")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin stock adjust tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		name  string
		stock int
	)
	err = tx.QueryRow(ctx, `
		SELECT name, stock
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, input.ProductID).Scan(&name, &stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock product %d for adjustment: %w", input.ProductID, err)
	}

	newStock := stock + input.Change
	if newStock < 0 {
		return nil, fmt.Errorf("adjustment would make stock negative for %s", name)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE products
		SET stock = $2, updated_at = NOW()
		WHERE id = $1
	`, input.ProductID, newStock); err != nil {
		return nil, fmt.Errorf("update stock for product %d: %w", input.ProductID, err)
	}

	entry := domain.InventoryLog{
		ProductID:      input.ProductID,
		ProductName:    name,
		Action:         input.Action,
		QuantityChange: input.Change,
		PreviousStock:  stock,
		NewStock:       newStock,
		Reason:         input.Reason,
		UserID:         input.UserID,
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO inventory_logs (
			product_id,
			action,
			quantity_change,
			previous_stock,
			new_stock,
			reason,
			user_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`,
		entry.ProductID,
		entry.Action,
		entry.QuantityChange,
		entry.PreviousStock,
		entry.NewStock,
		entry.Reason,
		entry.UserID,
	).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return nil, fmt.Errorf("append adjustment log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit stock adjust tx: %w", err)
	}
	return &entry, nil
}

func (r *Repository) ListInventoryLogs(ctx context.Context, filter InventoryLogFilter) ([]domain.InventoryLog, error) {
	limit := normalizeLimit(filter.Limit)
	offset := normalizeOffset(filter.Offset)

	query := `
		SELECT
			l.id,
			l.product_id,
			p.name,
			l.action,
			l.quantity_change,
			l.previous_stock,
			l.new_stock,
			l.reason,
			l.user_id,
			l.created_at
		FROM inventory_logs l
		JOIN products p ON p.id = l.product_id
		WHERE ($1 = '' OR l.action = $1)
	`
	args := []any{filter.Action}
	argIndex := 2
	if filter.ProductID != nil {
		query += fmt.Sprintf(" AND l.product_id = $%d", argIndex)
		args = append(args, *filter.ProductID)
		argIndex++
	}
	if filter.From != nil {
		query += fmt.Sprintf(" AND l.created_at >= $%d", argIndex)
		args = append(args, *filter.From)
		argIndex++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND l.created_at <= $%d", argIndex)
		args = append(args, *filter.To)
		argIndex++
	}
	query += fmt.Sprintf(" ORDER BY l.id DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory logs: %w", err)
	}
	defer rows.Close()

	logs := make([]domain.InventoryLog, 0, limit)
	for rows.Next() {
		entry, err := scanInventoryLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory logs: %w", err)
	}
	return logs, nil
}

func scanInventoryLog(row pgx.Row) (domain.InventoryLog, error) {
	var (
		entry  domain.InventoryLog
		userID sql.NullInt64
	)
	if err := row.Scan(
		&entry.ID,
		&entry.ProductID,
		&entry.ProductName,
		&entry.Action,
		&entry.QuantityChange,
		&entry.PreviousStock,
		&entry.NewStock,
		&entry.Reason,
		&userID,
		&entry.CreatedAt,
	); err != nil {
		return domain.InventoryLog{}, fmt.Errorf("scan inventory log: %w", err)
	}
	if userID.Valid {
		value := userID.Int64
		entry.UserID = &value
	}
	return entry, nil
}
