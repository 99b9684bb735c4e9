package settle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MahirRamani/consumer-store/internal/domain"
)

// memStore is an in-memory Store with the same contract as the pgx
// implementation: transactions are serialized and a failed one leaves no
// trace. failOn lets tests inject a persistence fault mid-commit.
type memStore struct {
	mu       sync.Mutex
	students map[int64]domain.Student
	products map[int64]domain.Product
	txns     []domain.Transaction
	logs     []domain.InventoryLog
	nextID   int64

	failOn string
}

func newMemStore() *memStore {
	return &memStore{
		students: map[int64]domain.Student{},
		products: map[int64]domain.Product{},
		nextID:   1,
	}
}

func (s *memStore) addStudent(st domain.Student) { s.students[st.ID] = st }
func (s *memStore) addProduct(p domain.Product)  { s.products[p.ID] = p }

func (s *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.clone()
	if err := fn(&memTx{store: s}); err != nil {
		s.students = snapshot.students
		s.products = snapshot.products
		s.txns = snapshot.txns
		s.logs = snapshot.logs
		s.nextID = snapshot.nextID
		return err
	}
	return nil
}

func (s *memStore) clone() *memStore {
	c := &memStore{
		students: make(map[int64]domain.Student, len(s.students)),
		products: make(map[int64]domain.Product, len(s.products)),
		txns:     append([]domain.Transaction(nil), s.txns...),
		logs:     append([]domain.InventoryLog(nil), s.logs...),
		nextID:   s.nextID,
	}
	for id, st := range s.students {
		c.students[id] = st
	}
	for id, p := range s.products {
		c.products[id] = p
	}
	return c
}

type memTx struct {
	store *memStore
}

func (t *memTx) StudentForUpdate(_ context.Context, ref string) (*domain.Student, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if st, ok := t.store.students[id]; ok {
			copied := st
			return &copied, nil
		}
	}
	for _, st := range t.store.students {
		if st.RollNumber == ref {
			copied := st
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) ProductForUpdate(_ context.Context, productID int64) (*domain.Product, error) {
	p, ok := t.store.products[productID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := p
	return &copied, nil
}

func (t *memTx) InsertTransaction(_ context.Context, txn *domain.Transaction) error {
	if t.store.failOn == "insert" {
		return errors.New("injected insert failure")
	}
	txn.ID = t.store.nextID
	t.store.nextID++
	txn.CreatedAt = time.Now()
	t.store.txns = append(t.store.txns, *txn)
	return nil
}

func (t *memTx) DebitStudent(_ context.Context, studentID int64, amount domain.Money) error {
	st := t.store.students[studentID]
	st.Balance -= amount
	t.store.students[studentID] = st
	return nil
}

func (t *memTx) SetProductStock(_ context.Context, productID int64, stock int) error {
	if stock < 0 {
		return fmt.Errorf("stock constraint violated for product %d", productID)
	}
	p := t.store.products[productID]
	p.Stock = stock
	t.store.products[productID] = p
	return nil
}

func (t *memTx) AppendInventoryLog(_ context.Context, entry *domain.InventoryLog) error {
	if t.store.failOn == "log" {
		return errors.New("injected log failure")
	}
	entry.ID = t.store.nextID
	t.store.nextID++
	entry.CreatedAt = time.Now()
	t.store.logs = append(t.store.logs, *entry)
	return nil
}

func seedStore() *memStore {
	store := newMemStore()
	store.addStudent(domain.Student{
		ID: 7, Name: "Asha Patel", RollNumber: "R-104", Balance: 50000,
		Status: domain.StudentStatusActive,
	})
	store.addProduct(domain.Product{ID: 1, Name: "Notebook", Price: 5000, Stock: 10})
	store.addProduct(domain.Product{ID: 2, Name: "Pen Set", Price: 10000, Stock: 4})
	return store
}

func TestSettleSuccess(t *testing.T) {
	store := seedStore()
	engine := NewEngine(store)

	// Balance 500.00, cart = 2x50.00 + 1x100.00.
	txn, err := engine.Settle(context.Background(), "7", domain.SystemSellerID, []LineItem{
		{ProductID: 1, Quantity: 2, UnitPrice: 5000},
		{ProductID: 2, Quantity: 1, UnitPrice: 10000},
	})
	require.NoError(t, err)
	require.NotNil(t, txn)

	require.Equal(t, domain.Money(20000), txn.TotalAmount)
	require.Equal(t, domain.TransactionCompleted, txn.Status)
	require.Equal(t, int64(7), txn.StudentID)
	require.Equal(t, domain.SystemSellerID, txn.SellerID)
	require.NotEmpty(t, txn.Reference)
	require.Len(t, txn.Items, 2)

	require.Equal(t, domain.Money(30000), store.students[7].Balance)
	require.Equal(t, 8, store.products[1].Stock)
	require.Equal(t, 3, store.products[2].Stock)

	require.Len(t, store.logs, 2)
	for _, entry := range store.logs {
		require.Equal(t, domain.LogActionSale, entry.Action)
		require.Equal(t, entry.PreviousStock+entry.QuantityChange, entry.NewStock)
		require.Equal(t, fmt.Sprintf("Sale - Transaction #%d", txn.ID), entry.Reason)
	}
	require.Equal(t, -2, store.logs[0].QuantityChange)
	require.Equal(t, -1, store.logs[1].QuantityChange)
}

func TestSettleByRollNumber(t *testing.T) {
	// Resolution by roll number behaves the same as resolution by id.
	store := seedStore()
	engine := NewEngine(store)

	txn, err := engine.Settle(context.Background(), "R-104", domain.SystemSellerID, []LineItem{
		{ProductID: 1, Quantity: 1, UnitPrice: 5000},
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), txn.StudentID)
	require.Equal(t, domain.Money(45000), store.students[7].Balance)
}

func TestSettleInsufficientStock(t *testing.T) {
	// Stock 1, quantity 2 requested.
	store := seedStore()
	store.addProduct(domain.Product{ID: 3, Name: "Eraser", Price: 500, Stock: 1})
	engine := NewEngine(store)
	before := store.clone()

	_, err := engine.Settle(context.Background(), "7", domain.SystemSellerID, []LineItem{
		{ProductID: 3, Quantity: 2, UnitPrice: 500},
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, "Eraser", stockErr.Name)
	require.Equal(t, int64(3), stockErr.ProductID)
	requireUnchanged(t, before, store)
}

func TestSettleInsufficientBalance(t *testing.T) {
	// Balance too low, stock sufficient everywhere. Proves the balance
	// check happens after stock checks but before any mutation.
	store := seedStore()
	store.addStudent(domain.Student{ID: 9, Name: "Ravi", RollNumber: "R-200", Balance: 1000})
	engine := NewEngine(store)
	before := store.clone()

	_, err := engine.Settle(context.Background(), "9", domain.SystemSellerID, []LineItem{
		{ProductID: 1, Quantity: 2, UnitPrice: 5000},
		{ProductID: 2, Quantity: 1, UnitPrice: 10000},
	})
	require.ErrorIs(t, err, ErrInsufficientBalance)
	requireUnchanged(t, before, store)
}

func TestSettleStudentNotFound(t *testing.T) {
	store := seedStore()
	engine := NewEngine(store)

	_, err := engine.Settle(context.Background(), "no-such-roll", domain.SystemSellerID, []LineItem{
		{ProductID: 1, Quantity: 1, UnitPrice: 5000},
	})
	require.ErrorIs(t, err, ErrStudentNotFound)
	require.Empty(t, store.txns)
}

func TestSettleProductNotFound(t *testing.T) {
	store := seedStore()
	engine := NewEngine(store)
	before := store.clone()

	_, err := engine.Settle(context.Background(), "7", domain.SystemSellerID, []LineItem{
		{ProductID: 1, Quantity: 1, UnitPrice: 5000},
		{ProductID: 999, Quantity: 1, UnitPrice: 100},
	})

	var notFound *ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, int64(999), notFound.ProductID)
	requireUnchanged(t, before, store)
}

func TestSettleRejectionIsIdempotent(t *testing.T) {
	store := seedStore()
	store.addProduct(domain.Product{ID: 3, Name: "Eraser", Price: 500, Stock: 1})
	engine := NewEngine(store)
	before := store.clone()

	items := []LineItem{{ProductID: 3, Quantity: 2, UnitPrice: 500}}
	_, firstErr := engine.Settle(context.Background(), "7", domain.SystemSellerID, items)
	_, secondErr := engine.Settle(context.Background(), "7", domain.SystemSellerID, items)

	require.Error(t, firstErr)
	require.Equal(t, firstErr.Error(), secondErr.Error())
	requireUnchanged(t, before, store)
}

func TestSettleInputValidation(t *testing.T) {
	store := seedStore()
	engine := NewEngine(store)

	tests := []struct {
		name  string
		items []LineItem
	}{
		{name: "empty cart", items: nil},
		{name: "zero quantity", items: []LineItem{{ProductID: 1, Quantity: 0, UnitPrice: 100}}},
		{name: "negative quantity", items: []LineItem{{ProductID: 1, Quantity: -2, UnitPrice: 100}}},
		{name: "negative price", items: []LineItem{{ProductID: 1, Quantity: 1, UnitPrice: -1}}},
		{name: "bad product id", items: []LineItem{{ProductID: 0, Quantity: 1, UnitPrice: 100}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Settle(context.Background(), "7", domain.SystemSellerID, tt.items)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	require.Empty(t, store.txns)
	require.Empty(t, store.logs)
}

func TestSettleMergesDuplicateLines(t *testing.T) {
	store := seedStore()
	engine := NewEngine(store)

	txn, err := engine.Settle(context.Background(), "7", domain.SystemSellerID, []LineItem{
		{ProductID: 1, Quantity: 2, UnitPrice: 5000},
		{ProductID: 1, Quantity: 3, UnitPrice: 5000},
	})
	require.NoError(t, err)

	// Submitted lines are preserved, but stock moves once and exactly one
	// audit entry covers the distinct product.
	require.Len(t, txn.Items, 2)
	require.Equal(t, domain.Money(25000), txn.TotalAmount)
	require.Equal(t, 5, store.products[1].Stock)
	require.Len(t, store.logs, 1)
	require.Equal(t, -5, store.logs[0].QuantityChange)
	require.Equal(t, 10, store.logs[0].PreviousStock)
	require.Equal(t, 5, store.logs[0].NewStock)
}

func TestSettleDuplicateLinesExceedingStock(t *testing.T) {
	store := seedStore()
	engine := NewEngine(store)
	before := store.clone()

	// 3+2 of a product with stock 4: each line alone fits, the merged
	// quantity does not.
	_, err := engine.Settle(context.Background(), "7", domain.SystemSellerID, []LineItem{
		{ProductID: 2, Quantity: 3, UnitPrice: 10000},
		{ProductID: 2, Quantity: 2, UnitPrice: 10000},
	})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	requireUnchanged(t, before, store)
}

func TestSettleRollsBackOnCommitFailure(t *testing.T) {
	store := seedStore()
	store.failOn = "log"
	engine := NewEngine(store)
	before := store.clone()

	_, err := engine.Settle(context.Background(), "7", domain.SystemSellerID, []LineItem{
		{ProductID: 1, Quantity: 1, UnitPrice: 5000},
	})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInsufficientBalance)
	requireUnchanged(t, before, store)
}

func TestSettleConcurrentLastUnit(t *testing.T) {
	// Two settlements race for the last unit; exactly one wins and stock
	// never goes negative.
	store := seedStore()
	store.addProduct(domain.Product{ID: 5, Name: "Juice", Price: 2000, Stock: 1})
	store.addStudent(domain.Student{ID: 11, Name: "Meera", RollNumber: "R-301", Balance: 10000})
	engine := NewEngine(store)

	items := []LineItem{{ProductID: 5, Quantity: 1, UnitPrice: 2000}}
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, ref := range []string{"7", "11"} {
		wg.Add(1)
		go func(ref string) {
			defer wg.Done()
			_, err := engine.Settle(context.Background(), ref, domain.SystemSellerID, items)
			errs <- err
		}(ref)
	}
	wg.Wait()
	close(errs)

	var failures, successes int
	for err := range errs {
		if err == nil {
			successes++
			continue
		}
		failures++
		var stockErr *InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, failures)
	require.Equal(t, 0, store.products[5].Stock)
	require.Len(t, store.logs, 1)
}

func TestSettleConservation(t *testing.T) {
	store := seedStore()
	engine := NewEngine(store)

	stockBefore := map[int64]int{}
	for id, p := range store.products {
		stockBefore[id] = p.Stock
	}

	carts := [][]LineItem{
		{{ProductID: 1, Quantity: 2, UnitPrice: 5000}},
		{{ProductID: 1, Quantity: 1, UnitPrice: 5000}, {ProductID: 2, Quantity: 2, UnitPrice: 10000}},
		{{ProductID: 2, Quantity: 1, UnitPrice: 10000}},
	}
	totalSold := 0
	for _, cart := range carts {
		_, err := engine.Settle(context.Background(), "7", domain.SystemSellerID, cart)
		require.NoError(t, err)
		for _, item := range cart {
			totalSold += item.Quantity
		}
	}

	stockDelta := 0
	for id, p := range store.products {
		stockDelta += stockBefore[id] - p.Stock
	}
	require.Equal(t, totalSold, stockDelta)

	logDelta := 0
	for _, entry := range store.logs {
		logDelta -= entry.QuantityChange
		require.Equal(t, entry.PreviousStock+entry.QuantityChange, entry.NewStock)
	}
	require.Equal(t, totalSold, logDelta)
}

func requireUnchanged(t *testing.T, before, after *memStore) {
	t.Helper()
	require.Equal(t, before.students, after.students)
	require.Equal(t, before.products, after.products)
	require.Equal(t, before.txns, after.txns)
	require.Equal(t, before.logs, after.logs)
}
