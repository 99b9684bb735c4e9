package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MahirRamani/consumer-store/internal/domain"
	"github.com/MahirRamani/consumer-store/internal/settle"

	"github.com/jackc/pgx/v5"
)

// InTx implements settle.Store. All reads inside fn take row locks, so the
// whole settlement serializes against concurrent settlements touching the
// same student or products; a non-nil error from fn rolls everything back.
func (r *Repository) InTx(ctx context.Context, fn func(tx settle.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin settlement tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&settlementTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit settlement tx: %w", err)
	}
	return nil
}

type settlementTx struct {
	tx pgx.Tx
}

func (s *settlementTx) StudentForUpdate(ctx context.Context, ref string) (*domain.Student, error) {
	ref = strings.TrimSpace(ref)

	if id, parseErr := strconv.ParseInt(ref, 10, 64); parseErr == nil && id > 0 {
		row := s.tx.QueryRow(ctx, `
			SELECT `+studentColumns+`
			FROM students
			WHERE id = $1
			FOR UPDATE
		`, id)
		student, err := scanStudent(row)
		if err == nil {
			return &student, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("lock student %d: %w", id, err)
		}
	}

	row := s.tx.QueryRow(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE roll_number = $1
		FOR UPDATE
	`, ref)
	student, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, settle.ErrNotFound
		}
		return nil, fmt.Errorf("lock student by roll number %q: %w", ref, err)
	}
	return &student, nil
}

func (s *settlementTx) ProductForUpdate(ctx context.Context, productID int64) (*domain.Product, error) {
	var (
		product     domain.Product
		price       int64
		barcode     sql.NullString
		description sql.NullString
	)
	err := s.tx.QueryRow(ctx, `
		SELECT
			id,
			name,
			category_id,
			price,
			stock,
			low_stock_threshold,
			barcode,
			description,
			is_active,
			created_at,
			updated_at
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, productID).Scan(
		&product.ID,
		&product.Name,
		&product.CategoryID,
		&price,
		&product.Stock,
		&product.LowStockThreshold,
		&barcode,
		&description,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, settle.ErrNotFound
		}
		return nil, fmt.Errorf("lock product %d: %w", productID, err)
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
	return &product, nil
}

func (s *settlementTx) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	if err := s.tx.QueryRow(ctx, `
		INSERT INTO transactions (reference, student_id, seller_id, total_amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`,
		txn.Reference,
		txn.StudentID,
		txn.SellerID,
		int64(txn.TotalAmount),
		txn.Status,
	).Scan(&txn.ID, &txn.CreatedAt); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	for _, item := range txn.Items {
		if _, err := s.tx.Exec(ctx, `
			INSERT INTO transaction_items (transaction_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
		`, txn.ID, item.ProductID, item.Quantity, int64(item.UnitPrice)); err != nil {
			return fmt.Errorf("insert transaction item: %w", err)
		}
	}
	return nil
}

func (s *settlementTx) DebitStudent(ctx context.Context, studentID int64, amount domain.Money) error {
	cmd, err := s.tx.Exec(ctx, `
		UPDATE students
		SET balance = balance - $2
		WHERE id = $1
	`, studentID, int64(amount))
	if err != nil {
		return fmt.Errorf("debit student %d: %w", studentID, err)
	}
	if cmd.RowsAffected() == 0 {
		return settle.ErrNotFound
	}
	return nil
}

func (s *settlementTx) SetProductStock(ctx context.Context, productID int64, stock int) error {
	cmd, err := s.tx.Exec(ctx, `
		UPDATE products
		SET stock = $2, updated_at = NOW()
		WHERE id = $1
	`, productID, stock)
	if err != nil {
		return fmt.Errorf("set stock for product %d: %w", productID, err)
	}
	if cmd.RowsAffected() == 0 {
		return settle.ErrNotFound
	}
	return nil
}

func (s *settlementTx) AppendInventoryLog(ctx context.Context, entry *domain.InventoryLog) error {
	if err := s.tx.QueryRow(ctx, `
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
		return fmt.Errorf("append inventory log: %w", err)
	}
	return nil
}
