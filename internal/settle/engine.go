// Package settle implements the transaction settlement engine: given a
// student and a cart of line items it either commits a consistent sale
// (balance debit, stock decrements, audit log entries) or rejects the whole
// operation with no partial effect. All checks and mutations run inside a
// single store transaction, so two concurrent settlements against the same
// student or product serialize on the row locks instead of both passing
// validation against a stale snapshot.
package settle

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/MahirRamani/consumer-store/internal/domain"
)

// LineItem is one requested (product, quantity, price) tuple. UnitPrice is
// the price captured by the client at cart-build time; the engine trusts it
// and does not re-price from the catalog.
type LineItem struct {
	ProductID int64
	Quantity  int
	UnitPrice domain.Money
}

// Tx is the view of the store inside one settlement transaction. The row
// returned by a ForUpdate lookup stays locked until the transaction ends.
type Tx interface {
	// StudentForUpdate resolves a student by primary id, falling back to
	// roll number, and locks the row. Returns ErrNotFound when neither key
	// resolves.
	StudentForUpdate(ctx context.Context, ref string) (*domain.Student, error)
	// ProductForUpdate loads and locks a product. Returns ErrNotFound when
	// the product does not exist.
	ProductForUpdate(ctx context.Context, productID int64) (*domain.Product, error)
	// InsertTransaction persists the record and its items, filling in the
	// assigned ID and CreatedAt.
	InsertTransaction(ctx context.Context, txn *domain.Transaction) error
	DebitStudent(ctx context.Context, studentID int64, amount domain.Money) error
	SetProductStock(ctx context.Context, productID int64, stock int) error
	AppendInventoryLog(ctx context.Context, entry *domain.InventoryLog) error
}

// Store opens atomic settlement transactions. A non-nil error from fn must
// roll back every mutation made through the Tx.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Settle validates and applies a sale for the given student reference.
// sellerID is the acting principal; callers without an authenticated user
// pass domain.SystemSellerID. On success the persisted transaction record is
// returned; on any failure nothing is mutated.
func (e *Engine) Settle(
	ctx context.Context,
	studentRef string,
	sellerID int64,
	items []LineItem,
) (*domain.Transaction, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}

	var txn *domain.Transaction
	err := e.store.InTx(ctx, func(tx Tx) error {
		student, err := tx.StudentForUpdate(ctx, studentRef)
		if errors.Is(err, ErrNotFound) {
			return ErrStudentNotFound
		}
		if err != nil {
			return fmt.Errorf("load student %q: %w", studentRef, err)
		}

		// Duplicate lines for the same product are merged so the stock
		// check, decrement and audit entry happen once per distinct product.
		// Products are locked in ascending id order to avoid deadlocks
		// between concurrent settlements.
		merged := mergeLines(items)
		products := make(map[int64]*domain.Product, len(merged))
		for _, m := range merged {
			product, err := tx.ProductForUpdate(ctx, m.ProductID)
			if errors.Is(err, ErrNotFound) {
				return &ProductNotFoundError{ProductID: m.ProductID}
			}
			if err != nil {
				return fmt.Errorf("load product %d: %w", m.ProductID, err)
			}
			if product.Stock < m.Quantity {
				return &InsufficientStockError{
					ProductID: product.ID,
					Name:      product.Name,
					Stock:     product.Stock,
					Requested: m.Quantity,
				}
			}
			products[m.ProductID] = product
		}

		var total domain.Money
		for _, item := range items {
			total += item.UnitPrice * domain.Money(item.Quantity)
		}
		if student.Balance < total {
			return ErrInsufficientBalance
		}

		record := &domain.Transaction{
			Reference:   "TXN-" + uuid.NewString(),
			StudentID:   student.ID,
			SellerID:    sellerID,
			Items:       recordItems(items),
			TotalAmount: total,
			Status:      domain.TransactionCompleted,
		}
		if err := tx.InsertTransaction(ctx, record); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		if err := tx.DebitStudent(ctx, student.ID, total); err != nil {
			return fmt.Errorf("debit student %d: %w", student.ID, err)
		}

		for _, m := range merged {
			product := products[m.ProductID]
			newStock := product.Stock - m.Quantity
			if err := tx.SetProductStock(ctx, product.ID, newStock); err != nil {
				return fmt.Errorf("update stock for product %d: %w", product.ID, err)
			}
			seller := sellerID
			if err := tx.AppendInventoryLog(ctx, &domain.InventoryLog{
				ProductID:      product.ID,
				Action:         domain.LogActionSale,
				QuantityChange: -m.Quantity,
				PreviousStock:  product.Stock,
				NewStock:       newStock,
				Reason:         fmt.Sprintf("Sale - Transaction #%d", record.ID),
				UserID:         &seller,
			}); err != nil {
				return fmt.Errorf("append inventory log for product %d: %w", product.ID, err)
			}
		}

		txn = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func validateItems(items []LineItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidInput)
	}
	for _, item := range items {
		if item.ProductID <= 0 {
			return fmt.Errorf("%w: invalid product id %d", ErrInvalidInput, item.ProductID)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive for product %d", ErrInvalidInput, item.ProductID)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("%w: price cannot be negative for product %d", ErrInvalidInput, item.ProductID)
		}
	}
	return nil
}

type mergedLine struct {
	ProductID int64
	Quantity  int
}

func mergeLines(items []LineItem) []mergedLine {
	quantities := make(map[int64]int, len(items))
	for _, item := range items {
		quantities[item.ProductID] += item.Quantity
	}
	merged := make([]mergedLine, 0, len(quantities))
	for id, qty := range quantities {
		merged = append(merged, mergedLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged
}

func recordItems(items []LineItem) []domain.TransactionItem {
	result := make([]domain.TransactionItem, 0, len(items))
	for _, item := range items {
		result = append(result, domain.TransactionItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return result
}
