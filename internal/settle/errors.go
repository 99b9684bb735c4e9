package settle

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Store implementations when a lookup misses.
// The engine translates it into the entity-specific error below.
var ErrNotFound = errors.New("not found")

var (
	ErrStudentNotFound     = errors.New("student not found")
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidInput marks malformed settlement requests rejected before any
	// storage access.
	ErrInvalidInput = errors.New("invalid settlement input")
)

type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

type InsufficientStockError struct {
	ProductID int64
	Name      string
	Stock     int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.Name)
}
