package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MahirRamani/consumer-store/internal/domain"

	"github.com/jackc/pgx/v5"
)

type TransactionListFilter struct {
	Search string
	Status string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

const transactionColumns = `
	t.id,
	t.reference,
	t.student_id,
	t.seller_id,
	t.total_amount,
	t.status,
	t.created_at,
	s.name,
	s.roll_number
`

func (r *Repository) ListTransactions(ctx context.Context, filter TransactionListFilter) ([]domain.Transaction, error) {
	limit := normalizeLimit(filter.Limit)
	offset := normalizeOffset(filter.Offset)
	search := strings.TrimSpace(filter.Search)

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions t
		JOIN students s ON s.id = t.student_id
		WHERE ($1 = ''
			OR s.name ILIKE '%' || $1 || '%'
			OR s.roll_number ILIKE '%' || $1 || '%'
			OR t.reference ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR t.status = $2)
	`
	args := []any{search, strings.TrimSpace(filter.Status)}
	argIndex := 3
	if filter.From != nil {
		query += fmt.Sprintf(" AND t.created_at >= $%d", argIndex)
		args = append(args, *filter.From)
		argIndex++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND t.created_at <= $%d", argIndex)
		args = append(args, *filter.To)
		argIndex++
	}
	query += fmt.Sprintf(" ORDER BY t.id DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0, limit)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	for i := range transactions {
		items, err := r.GetTransactionItems(ctx, transactions[i].ID)
		if err != nil {
			return nil, err
		}
		transactions[i].Items = items
	}
	return transactions, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		JOIN students s ON s.id = t.student_id
		WHERE t.id = $1
	`, id)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get transaction %d: %w", id, err)
	}

	items, err := r.GetTransactionItems(ctx, id)
	if err != nil {
		return nil, err
	}
	txn.Items = items
	return &txn, nil
}

func (r *Repository) GetTransactionItems(ctx context.Context, transactionID int64) ([]domain.TransactionItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			i.product_id,
			COALESCE(p.name, ''),
			i.quantity,
			i.unit_price
		FROM transaction_items i
		LEFT JOIN products p ON p.id = i.product_id
		WHERE i.transaction_id = $1
		ORDER BY i.id ASC
	`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("get transaction items %d: %w", transactionID, err)
	}
	defer rows.Close()

	items := make([]domain.TransactionItem, 0)
	for rows.Next() {
		var (
			item  domain.TransactionItem
			price int64
		)
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &price); err != nil {
			return nil, fmt.Errorf("scan transaction item: %w", err)
		}
		item.UnitPrice = domain.Money(price)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction items: %w", err)
	}
	return items, nil
}

// GetTransactionStats returns the completed-sale count and revenue total.
func (r *Repository) GetTransactionStats(ctx context.Context) (int, domain.Money, error) {
	var (
		count   int
		revenue int64
	)
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)::int, COALESCE(SUM(total_amount), 0)
		FROM transactions
		WHERE status = 'completed'
	`).Scan(&count, &revenue); err != nil {
		return 0, 0, fmt.Errorf("transaction stats: %w", err)
	}
	return count, domain.Money(revenue), nil
}

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var (
		txn    domain.Transaction
		amount int64
		name   string
		roll   string
	)
	if err := row.Scan(
		&txn.ID,
		&txn.Reference,
		&txn.StudentID,
		&txn.SellerID,
		&amount,
		&txn.Status,
		&txn.CreatedAt,
		&name,
		&roll,
	); err != nil {
		return domain.Transaction{}, err
	}
	txn.TotalAmount = domain.Money(amount)
	txn.StudentName = &name
	txn.RollNumber = &roll
	return txn, nil
}
