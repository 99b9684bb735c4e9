package domain

import "time"

const (
	StudentStatusActive   = "active"
	StudentStatusTerminal = "terminal"
)

const (
	TransactionCompleted = "completed"
	TransactionFailed    = "failed"
	TransactionRefunded  = "refunded"
)

const (
	LogActionSale       = "sale"
	LogActionRestock    = "restock"
	LogActionAdjustment = "adjustment"
)

// SystemSellerID is the fixed principal recorded on sales when no caller
// identity is supplied. Authentication is out of scope; the boundary layer
// defaults to this value, never the settlement engine.
const SystemSellerID int64 = 1

type Student struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	RollNumber string    `json:"roll_number"`
	Standard   string    `json:"standard"`
	Year       int       `json:"year"`
	Balance    Money     `json:"balance"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Product struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	CategoryID        int64     `json:"category_id"`
	CategoryName      string    `json:"category,omitempty"`
	Price             Money     `json:"price"`
	Stock             int       `json:"stock"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	Barcode           *string   `json:"barcode,omitempty"`
	Description       *string   `json:"description,omitempty"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Transaction struct {
	ID          int64             `json:"id"`
	Reference   string            `json:"reference"`
	StudentID   int64             `json:"student_id"`
	SellerID    int64             `json:"seller_id"`
	Items       []TransactionItem `json:"items"`
	TotalAmount Money             `json:"total_amount"`
	Status      string            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`

	// Populated on list/detail reads, never stored on the transaction row.
	StudentName *string `json:"student_name,omitempty"`
	RollNumber  *string `json:"student_roll_number,omitempty"`
}

type TransactionItem struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"product_name,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice Money  `json:"unit_price"`
}

type InventoryLog struct {
	ID             int64     `json:"id"`
	ProductID      int64     `json:"product_id"`
	ProductName    string    `json:"product_name,omitempty"`
	Action         string    `json:"action"`
	QuantityChange int       `json:"quantity_change"`
	PreviousStock  int       `json:"previous_stock"`
	NewStock       int       `json:"new_stock"`
	Reason         string    `json:"reason"`
	UserID         *int64    `json:"user_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type DailySales struct {
	Date  string `json:"date"`
	Day   string `json:"day"`
	Items int    `json:"items"`
}

type ProductSales struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Revenue   Money  `json:"revenue"`
}

type SoldItem struct {
	ProductID int64  `json:"id"`
	Name      string `json:"name"`
}

// StockUpdate is a restock log entry joined with the current product state,
// for the dashboard's recent-restocks panel.
type StockUpdate struct {
	ID            int64     `json:"id"`
	ProductID     int64     `json:"product_id"`
	ProductName   string    `json:"product_name"`
	Category      string    `json:"category"`
	Price         Money     `json:"price"`
	CurrentStock  int       `json:"current_stock"`
	QuantityAdded int       `json:"quantity_added"`
	PreviousStock int       `json:"previous_stock"`
	NewStock      int       `json:"new_stock"`
	Reason        string    `json:"reason"`
	UserID        *int64    `json:"user_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type StudentImportRow struct {
	Name       string `json:"name"`
	RollNumber string `json:"roll_number"`
	Standard   string `json:"standard"`
	Year       int    `json:"year"`
	Balance    Money  `json:"balance"`
}
