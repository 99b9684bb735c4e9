package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MahirRamani/consumer-store/internal/domain"
	"github.com/MahirRamani/consumer-store/internal/repository"
	"github.com/MahirRamani/consumer-store/internal/settle"
)

type Service struct {
	repo   *repository.Repository
	engine *settle.Engine
}

func New(repo *repository.Repository, engine *settle.Engine) *Service {
	return &Service{repo: repo, engine: engine}
}

// SaleItem is one cart line as submitted by the client.
type SaleItem struct {
	ProductID int64        `json:"product_id"`
	Quantity  int          `json:"quantity"`
	UnitPrice domain.Money `json:"unit_price"`
}

// Settle runs the whole sale through the settlement engine. sellerID may be
// nil when no authenticated user is attached to the request.
func (s *Service) Settle(
	ctx context.Context,
	studentRef string,
	sellerID *int64,
	items []SaleItem,
) (*domain.Transaction, error) {
	studentRef = strings.TrimSpace(studentRef)
	if studentRef == "" {
		return nil, fmt.Errorf("%w: student reference is required", settle.ErrInvalidInput)
	}

	seller := domain.SystemSellerID
	if sellerID != nil {
		seller = *sellerID
	}

	lines := make([]settle.LineItem, len(items))
	for i, item := range items {
		lines[i] = settle.LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	return s.engine.Settle(ctx, studentRef, seller, lines)
}

func (s *Service) ListStudents(ctx context.Context, search, status string, limit, offset int) ([]domain.Student, error) {
	return s.repo.ListStudents(ctx, repository.StudentListFilter{
		Search: search,
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
}

func (s *Service) GetStudent(ctx context.Context, id int64) (*domain.Student, error) {
	return s.repo.GetStudentByID(ctx, id)
}

func (s *Service) GetStudentByRollNumber(ctx context.Context, rollNumber string) (*domain.Student, error) {
	return s.repo.GetStudentByRollNumber(ctx, strings.TrimSpace(rollNumber))
}

func (s *Service) CreateStudent(ctx context.Context, input repository.StudentCreateInput) (domain.Student, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.RollNumber = strings.TrimSpace(input.RollNumber)
	if input.Name == "" {
		return domain.Student{}, fmt.Errorf("name is required")
	}
	if input.RollNumber == "" {
		return domain.Student{}, fmt.Errorf("roll_number is required")
	}
	return s.repo.CreateStudent(ctx, input)
}

func (s *Service) PatchStudent(ctx context.Context, id int64, input repository.StudentPatchInput) (*domain.Student, error) {
	return s.repo.PatchStudent(ctx, id, input)
}

func (s *Service) AdjustBalance(ctx context.Context, id int64, amount domain.Money, reason string) (*domain.Student, error) {
	if amount == 0 {
		return nil, fmt.Errorf("amount must be non-zero")
	}
	reason = strings.TrimSpace(reason)
	if amount < 0 && reason == "" {
		return nil, fmt.Errorf("reason is required for deductions")
	}
	return s.repo.AdjustBalance(ctx, id, amount, reason)
}

func (s *Service) DeleteStudent(ctx context.Context, id int64) error {
	return s.repo.DeleteStudent(ctx, id)
}

// ImportStudents upserts roster rows keyed by roll number. Returns the
// number of rows created and updated.
func (s *Service) ImportStudents(ctx context.Context, rows []domain.StudentImportRow) (int, int, error) {
	if len(rows) == 0 {
		return 0, 0, fmt.Errorf("import file has no data rows")
	}
	return s.repo.UpsertStudentRows(ctx, rows)
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, name string, description *string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, fmt.Errorf("name is required")
	}
	return s.repo.CreateCategory(ctx, name, normalizeNullable(description))
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, name string, description *string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	return s.repo.UpdateCategory(ctx, id, name, normalizeNullable(description))
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	return s.repo.DeleteCategory(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, search string, categoryID *int64, includeInactive bool, limit, offset int) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, repository.ProductListFilter{
		Search:          search,
		CategoryID:      categoryID,
		IncludeInactive: includeInactive,
		Limit:           limit,
		Offset:          offset,
	})
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.repo.GetProductByID(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, input repository.ProductCreateInput) (domain.Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return domain.Product{}, fmt.Errorf("name is required")
	}
	if input.CategoryID <= 0 {
		return domain.Product{}, fmt.Errorf("category_id is required")
	}
	if input.Price < 0 {
		return domain.Product{}, fmt.Errorf("price must not be negative")
	}
	if input.Stock < 0 {
		return domain.Product{}, fmt.Errorf("stock must not be negative")
	}
	return s.repo.CreateProduct(ctx, input)
}

func (s *Service) PatchProduct(ctx context.Context, id int64, input repository.ProductPatchInput) (*domain.Product, error) {
	if input.Price != nil && *input.Price < 0 {
		return nil, fmt.Errorf("price must not be negative")
	}
	return s.repo.PatchProduct(ctx, id, input)
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.repo.DeleteProduct(ctx, id)
}

func (s *Service) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.LowStockProducts(ctx)
}

func (s *Service) AdjustStock(ctx context.Context, input repository.StockAdjustInput) (*domain.InventoryLog, error) {
	input.Reason = strings.TrimSpace(input.Reason)
	return s.repo.AdjustStock(ctx, input)
}

func (s *Service) ListInventoryLogs(ctx context.Context, filter repository.InventoryLogFilter) ([]domain.InventoryLog, error) {
	filter.Action = strings.TrimSpace(filter.Action)
	return s.repo.ListInventoryLogs(ctx, filter)
}

func (s *Service) ListTransactions(
	ctx context.Context,
	search, status string,
	from, to *time.Time,
	limit, offset int,
) ([]domain.Transaction, error) {
	return s.repo.ListTransactions(ctx, repository.TransactionListFilter{
		Search: strings.TrimSpace(search),
		Status: strings.TrimSpace(status),
		From:   from,
		To:     to,
		Limit:  limit,
		Offset: offset,
	})
}

func (s *Service) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) TransactionStats(ctx context.Context) (int, domain.Money, error) {
	return s.repo.GetTransactionStats(ctx)
}

func (s *Service) WeeklySales(ctx context.Context, productID int64) ([]domain.DailySales, error) {
	return s.repo.WeeklySales(ctx, productID)
}

func (s *Service) ProductSalesSummary(ctx context.Context, days, limit int) ([]domain.ProductSales, error) {
	return s.repo.ProductSalesSummary(ctx, days, limit)
}

func (s *Service) SoldItems(ctx context.Context) ([]domain.SoldItem, error) {
	return s.repo.SoldItems(ctx)
}

func (s *Service) RecentProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	return s.repo.RecentProducts(ctx, limit)
}

func (s *Service) RecentStockUpdates(ctx context.Context) ([]domain.StockUpdate, error) {
	return s.repo.RecentStockUpdates(ctx)
}

func normalizeNullable(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
