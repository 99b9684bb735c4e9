package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/MahirRamani/consumer-store/internal/domain"
	"github.com/MahirRamani/consumer-store/internal/service"
	"github.com/MahirRamani/consumer-store/internal/settle"
)

// fakeStore backs the settlement engine with plain maps. It serves handler
// tests only; the engine's own tests cover rollback and concurrency.
type fakeStore struct {
	students map[int64]*domain.Student
	products map[int64]*domain.Product
	failTx   bool
}

type fakeTx struct {
	store *fakeStore
}

func (s *fakeStore) InTx(_ context.Context, fn func(tx settle.Tx) error) error {
	if s.failTx {
		return fmt.Errorf("connection refused")
	}
	return fn(&fakeTx{store: s})
}

func (t *fakeTx) StudentForUpdate(_ context.Context, ref string) (*domain.Student, error) {
	for _, student := range t.store.students {
		if fmt.Sprint(student.ID) == ref || student.RollNumber == ref {
			copied := *student
			return &copied, nil
		}
	}
	return nil, settle.ErrNotFound
}

func (t *fakeTx) ProductForUpdate(_ context.Context, productID int64) (*domain.Product, error) {
	product, ok := t.store.products[productID]
	if !ok {
		return nil, settle.ErrNotFound
	}
	copied := *product
	return &copied, nil
}

func (t *fakeTx) InsertTransaction(_ context.Context, txn *domain.Transaction) error {
	txn.ID = 1
	txn.CreatedAt = time.Now()
	return nil
}

func (t *fakeTx) DebitStudent(_ context.Context, studentID int64, amount domain.Money) error {
	t.store.students[studentID].Balance -= amount
	return nil
}

func (t *fakeTx) SetProductStock(_ context.Context, productID int64, stock int) error {
	t.store.products[productID].Stock = stock
	return nil
}

func (t *fakeTx) AppendInventoryLog(_ context.Context, entry *domain.InventoryLog) error {
	entry.ID = 1
	entry.CreatedAt = time.Now()
	return nil
}

func newTestRouter(store *fakeStore) http.Handler {
	svc := service.New(nil, settle.NewEngine(store))
	return NewRouter(NewHandler(svc), zerolog.Nop())
}

func defaultStore() *fakeStore {
	return &fakeStore{
		students: map[int64]*domain.Student{
			1: {ID: 1, Name: "Asha Patel", RollNumber: "R-104", Balance: 50000, Status: domain.StudentStatusActive},
		},
		products: map[int64]*domain.Product{
			10: {ID: 10, Name: "Notebook", Price: 5000, Stock: 4, IsActive: true},
		},
	}
}

func postTransaction(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload["error"]
}

func TestCreateTransactionSuccess(t *testing.T) {
	router := newTestRouter(defaultStore())

	rec := postTransaction(t, router, `{
		"student_id": 1,
		"items": [{"product_id": 10, "quantity": 2, "unit_price": "50.00"}]
	}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var txn domain.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txn))
	require.Equal(t, domain.Money(10000), txn.TotalAmount)
	require.Equal(t, domain.TransactionCompleted, txn.Status)
	require.True(t, strings.HasPrefix(txn.Reference, "TXN-"))
}

func TestCreateTransactionStudentNotFound(t *testing.T) {
	router := newTestRouter(defaultStore())

	rec := postTransaction(t, router, `{
		"student_id": 99,
		"items": [{"product_id": 10, "quantity": 1, "unit_price": "50.00"}]
	}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "student not found", errorMessage(t, rec))
}

func TestCreateTransactionProductNotFound(t *testing.T) {
	router := newTestRouter(defaultStore())

	rec := postTransaction(t, router, `{
		"student_id": 1,
		"items": [{"product_id": 77, "quantity": 1, "unit_price": "50.00"}]
	}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, errorMessage(t, rec), "product 77")
}

func TestCreateTransactionInsufficientStock(t *testing.T) {
	router := newTestRouter(defaultStore())

	rec := postTransaction(t, router, `{
		"student_id": 1,
		"items": [{"product_id": 10, "quantity": 9, "unit_price": "50.00"}]
	}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	msg := errorMessage(t, rec)
	require.Contains(t, msg, "Notebook")
	require.Contains(t, msg, "4 available")
	require.Contains(t, msg, "9 requested")
}

func TestCreateTransactionInsufficientBalance(t *testing.T) {
	store := defaultStore()
	store.students[1].Balance = 100
	router := newTestRouter(store)

	rec := postTransaction(t, router, `{
		"student_id": 1,
		"items": [{"product_id": 10, "quantity": 1, "unit_price": "50.00"}]
	}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "insufficient balance", errorMessage(t, rec))
}

func TestCreateTransactionInvalidPayload(t *testing.T) {
	router := newTestRouter(defaultStore())

	cases := map[string]string{
		"empty items":   `{"student_id": 1, "items": []}`,
		"zero quantity": `{"student_id": 1, "items": [{"product_id": 10, "quantity": 0, "unit_price": "50.00"}]}`,
		"missing ref":   `{"items": [{"product_id": 10, "quantity": 1, "unit_price": "50.00"}]}`,
		"broken json":   `{"student_id": `,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := postTransaction(t, router, body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateTransactionStorageFailure(t *testing.T) {
	store := defaultStore()
	store.failTx = true
	router := newTestRouter(store)

	rec := postTransaction(t, router, `{
		"student_id": 1,
		"items": [{"product_id": 10, "quantity": 1, "unit_price": "50.00"}]
	}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "failed to process transaction", errorMessage(t, rec))
}

func TestCreateTransactionByRollNumber(t *testing.T) {
	router := newTestRouter(defaultStore())

	rec := postTransaction(t, router, `{
		"student_ref": "R-104",
		"items": [{"product_id": 10, "quantity": 1, "unit_price": "50.00"}]
	}`)

	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestAdjustBalanceRequiresReasonForDeduction(t *testing.T) {
	router := newTestRouter(defaultStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/students/1/balance", strings.NewReader(`{"amount": "-50.00"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, errorMessage(t, rec), "reason")
}

func TestAdjustBalanceRejectsZeroAmount(t *testing.T) {
	router := newTestRouter(defaultStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/students/1/balance", strings.NewReader(`{"amount": "0"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, errorMessage(t, rec), "non-zero")
}

func TestAdjustBalanceRequestDecodesReason(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/students/1/balance", strings.NewReader(`{"amount": "-50.00", "reason": "lost meal card"}`))
	req.Header.Set("Content-Type", "application/json")

	var body adjustBalanceRequest
	require.NoError(t, decodeJSON(req, &body))
	require.Equal(t, domain.Money(-5000), body.Amount)
	require.Equal(t, "lost meal card", body.Reason)
}

func TestDashboardRoutesRegistered(t *testing.T) {
	router := newTestRouter(defaultStore())

	paths := []string{
		"/api/v1/dashboard/weekly-sales",
		"/api/v1/dashboard/product-sales",
		"/api/v1/dashboard/sold-items",
		"/api/v1/dashboard/recent-products",
		"/api/v1/dashboard/recent-stock-updates",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.NotEqual(t, http.StatusNotFound, rec.Code, path)
		require.NotEqual(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(defaultStore())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
