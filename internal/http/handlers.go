package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MahirRamani/consumer-store/internal/domain"
	"github.com/MahirRamani/consumer-store/internal/excel"
	"github.com/MahirRamani/consumer-store/internal/repository"
	"github.com/MahirRamani/consumer-store/internal/service"
	"github.com/MahirRamani/consumer-store/internal/settle"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type createTransactionRequest struct {
	StudentID  *int64             `json:"student_id"`
	StudentRef string             `json:"student_ref"`
	SellerID   *int64             `json:"seller_id"`
	Items      []service.SaleItem `json:"items"`
}

// CreateTransaction settles a sale. Rejections map to 404 when the student
// or a product is unknown, 400 when stock or balance is insufficient or the
// payload is malformed, and 500 only for storage failures.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	studentRef := strings.TrimSpace(req.StudentRef)
	if req.StudentID != nil {
		studentRef = strconv.FormatInt(*req.StudentID, 10)
	}

	txn, err := h.svc.Settle(r.Context(), studentRef, req.SellerID, req.Items)
	if err != nil {
		var productNotFound *settle.ProductNotFoundError
		var insufficientStock *settle.InsufficientStockError
		switch {
		case errors.Is(err, settle.ErrStudentNotFound):
			writeError(w, http.StatusNotFound, "student not found")
		case errors.As(err, &productNotFound):
			writeError(w, http.StatusNotFound, productNotFound.Error())
		case errors.As(err, &insufficientStock):
			writeError(w, http.StatusBadRequest, fmt.Sprintf(
				"insufficient stock for %s: %d available, %d requested",
				insufficientStock.Name,
				insufficientStock.Stock,
				insufficientStock.Requested,
			))
		case errors.Is(err, settle.ErrInsufficientBalance):
			writeError(w, http.StatusBadRequest, "insufficient balance")
		case errors.Is(err, settle.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to process transaction")
		}
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := parseOptionalInt(query.Get("limit"), 200)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := parseOptionalInt(query.Get("offset"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	from, err := parseOptionalTime(query.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date")
		return
	}
	to, err := parseOptionalTime(query.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date")
		return
	}

	items, err := h.svc.ListTransactions(r.Context(), query.Get("search"), query.Get("status"), from, to, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	txn, err := h.svc.GetTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (h *Handler) TransactionStats(w http.ResponseWriter, r *http.Request) {
	count, total, err := h.svc.TransactionStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":        count,
		"total_amount": total,
	})
}

func (h *Handler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, err := parseOptionalTime(query.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date")
		return
	}
	to, err := parseOptionalTime(query.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date")
		return
	}

	items, err := h.svc.ListTransactions(r.Context(), query.Get("search"), query.Get("status"), from, to, 10000, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	file, err := excel.BuildTransactionsReport(items)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeWorkbook(w, file, "transactions.xlsx")
}

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := parseOptionalInt(query.Get("limit"), 200)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := parseOptionalInt(query.Get("offset"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.svc.ListStudents(r.Context(), query.Get("search"), query.Get("status"), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := parseID(raw)
	if err != nil {
		// Non-numeric references resolve through the roll number.
		student, rollErr := h.svc.GetStudentByRollNumber(r.Context(), raw)
		if rollErr != nil {
			if errors.Is(rollErr, repository.ErrNotFound) {
				writeError(w, http.StatusNotFound, "student not found")
				return
			}
			writeError(w, http.StatusInternalServerError, rollErr.Error())
			return
		}
		writeJSON(w, http.StatusOK, student)
		return
	}

	student, err := h.svc.GetStudent(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "student not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, student)
}

type createStudentRequest struct {
	Name       string       `json:"name"`
	RollNumber string       `json:"roll_number"`
	Standard   string       `json:"standard"`
	Year       int          `json:"year"`
	Balance    domain.Money `json:"balance"`
}

func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.svc.CreateStudent(r.Context(), repository.StudentCreateInput{
		Name:       req.Name,
		RollNumber: req.RollNumber,
		Standard:   req.Standard,
		Year:       req.Year,
		Balance:    req.Balance,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type patchStudentRequest struct {
	Name     *string `json:"name"`
	Standard *string `json:"standard"`
	Year     *int    `json:"year"`
	Status   *string `json:"status"`
}

func (h *Handler) PatchStudent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req patchStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := h.svc.PatchStudent(r.Context(), id, repository.StudentPatchInput{
		Name:     req.Name,
		Standard: req.Standard,
		Year:     req.Year,
		Status:   req.Status,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "student not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type adjustBalanceRequest struct {
	Amount domain.Money `json:"amount"`
	Reason string       `json:"reason"`
}

func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req adjustBalanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := h.svc.AdjustBalance(r.Context(), id, req.Amount, req.Reason)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "student not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.DeleteStudent(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "student not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ImportStudentsExcel(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	rows, err := excel.ParseStudentRoster(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, updated, err := h.svc.ImportStudents(r.Context(), rows)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"file_name":  header.Filename,
		"total_rows": len(rows),
		"created":    created,
		"updated":    updated,
	})
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

type categoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.svc.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := h.svc.UpdateCategory(r.Context(), id, req.Name, req.Description)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.DeleteCategory(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := parseOptionalInt(query.Get("limit"), 200)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := parseOptionalInt(query.Get("offset"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	categoryID, err := parseOptionalInt64(query.Get("category_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	includeInactive := false
	if raw := strings.TrimSpace(query.Get("include_inactive")); raw != "" {
		value, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "include_inactive must be true or false")
			return
		}
		includeInactive = value
	}

	items, err := h.svc.ListProducts(r.Context(), query.Get("search"), categoryID, includeInactive, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	product, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, product)
}

type createProductRequest struct {
	Name              string       `json:"name"`
	CategoryID        int64        `json:"category_id"`
	Price             domain.Money `json:"price"`
	Stock             int          `json:"stock"`
	LowStockThreshold int          `json:"low_stock_threshold"`
	Barcode           *string      `json:"barcode"`
	Description       *string      `json:"description"`
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.svc.CreateProduct(r.Context(), repository.ProductCreateInput{
		Name:              req.Name,
		CategoryID:        req.CategoryID,
		Price:             req.Price,
		Stock:             req.Stock,
		LowStockThreshold: req.LowStockThreshold,
		Barcode:           req.Barcode,
		Description:       req.Description,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type patchProductRequest struct {
	Name              *string       `json:"name"`
	CategoryID        *int64        `json:"category_id"`
	Price             *domain.Money `json:"price"`
	LowStockThreshold *int          `json:"low_stock_threshold"`
	Barcode           *string       `json:"barcode"`
	Description       *string       `json:"description"`
	IsActive          *bool         `json:"is_active"`
}

func (h *Handler) PatchProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req patchProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := h.svc.PatchProduct(r.Context(), id, repository.ProductPatchInput{
		Name:              req.Name,
		CategoryID:        req.CategoryID,
		Price:             req.Price,
		LowStockThreshold: req.LowStockThreshold,
		Barcode:           req.Barcode,
		Description:       req.Description,
		IsActive:          req.IsActive,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) LowStockProducts(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.LowStockProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

type adjustStockRequest struct {
	Change int    `json:"change"`
	Action string `json:"action"`
	Reason string `json:"reason"`
	UserID *int64 `json:"user_id"`
}

func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req adjustStockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := h.svc.AdjustStock(r.Context(), repository.StockAdjustInput{
		ProductID: id,
		Change:    req.Change,
		Action:    req.Action,
		Reason:    req.Reason,
		UserID:    req.UserID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) ListInventoryLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := inventoryLogFilterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.svc.ListInventoryLogs(r.Context(), *filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) ExportInventoryLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := inventoryLogFilterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.Limit = 10000
	filter.Offset = 0
	items, err := h.svc.ListInventoryLogs(r.Context(), *filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	file, err := excel.BuildInventoryLogReport(items)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeWorkbook(w, file, "inventory-logs.xlsx")
}

func (h *Handler) WeeklySales(w http.ResponseWriter, r *http.Request) {
	var productID int64
	if raw := strings.TrimSpace(r.URL.Query().Get("product_id")); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		productID = id
	}
	items, err := h.svc.WeeklySales(r.Context(), productID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) ProductSales(w http.ResponseWriter, r *http.Request) {
	days, err := parseOptionalInt(r.URL.Query().Get("days"), 30)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseOptionalInt(r.URL.Query().Get("limit"), 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.svc.ProductSalesSummary(r.Context(), days, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) SoldItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.SoldItems(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) RecentProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := parseOptionalInt(r.URL.Query().Get("limit"), 5)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.svc.RecentProducts(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) RecentStockUpdates(w http.ResponseWriter, r *http.Request) {
	updates, err := h.svc.RecentStockUpdates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": updates, "count": len(updates)})
}

func inventoryLogFilterFromQuery(r *http.Request) (*repository.InventoryLogFilter, error) {
	query := r.URL.Query()
	limit, err := parseOptionalInt(query.Get("limit"), 200)
	if err != nil {
		return nil, err
	}
	offset, err := parseOptionalInt(query.Get("offset"), 0)
	if err != nil {
		return nil, err
	}
	productID, err := parseOptionalInt64(query.Get("product_id"))
	if err != nil {
		return nil, err
	}
	from, err := parseOptionalTime(query.Get("from"))
	if err != nil {
		return nil, fmt.Errorf("invalid from date")
	}
	to, err := parseOptionalTime(query.Get("to"))
	if err != nil {
		return nil, fmt.Errorf("invalid to date")
	}
	return &repository.InventoryLogFilter{
		Action:    query.Get("action"),
		ProductID: productID,
		From:      from,
		To:        to,
		Limit:     limit,
		Offset:    offset,
	}, nil
}

func writeWorkbook(w http.ResponseWriter, file *excelize.File, filename string) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_ = file.Write(w)
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func parseOptionalInt(raw string, defaultValue int) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %s", raw)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("value cannot be negative")
	}
	return parsed, nil
}

func parseOptionalTime(raw string) (*time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			if layout == "2006-01-02" {
				utc := parsed.UTC()
				return &utc, nil
			}
			return &parsed, nil
		}
	}
	return nil, fmt.Errorf("invalid time")
}

func parseOptionalInt64(raw string) (*int64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		return nil, fmt.Errorf("invalid id value: %s", raw)
	}
	return &parsed, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
