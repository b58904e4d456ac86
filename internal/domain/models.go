package domain

import "time"

type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	SKU           string    `json:"sku"`
	Price         int64     `json:"price"`
	SupplierPrice int64     `json:"supplier_price,omitempty"`
	Stock         int       `json:"stock"`
	Supplier      string    `json:"supplier"`
	CreatedAt     time.Time `json:"created_at"`
}

type ProductCreateRequest struct {
	Name          string `json:"name"`
	SKU           string `json:"sku"`
	Price         int64  `json:"price"`
	SupplierPrice int64  `json:"supplier_price"`
	Stock         int    `json:"stock"`
	Supplier      string `json:"supplier"`
}

type ProductUpdateRequest struct {
	Name          *string `json:"name,omitempty"`
	SKU           *string `json:"sku,omitempty"`
	Price         *int64  `json:"price,omitempty"`
	SupplierPrice *int64  `json:"supplier_price,omitempty"`
	Stock         *int    `json:"stock,omitempty"`
	Supplier      *string `json:"supplier,omitempty"`
}

type CartLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

type TransactionLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

type Transaction struct {
	ID            string            `json:"id"`
	CustomerName  string            `json:"customer_name"`
	PaymentMethod string            `json:"payment_method"`
	CashReceived  int64             `json:"cash_received,omitempty"`
	Change        int64             `json:"change,omitempty"`
	Total         int64             `json:"total"`
	Status        string            `json:"status"`
	Lines         []TransactionLine `json:"lines"`
	CreatedAt     time.Time         `json:"created_at"`
}

type Purchase struct {
	ID           string            `json:"id"`
	SupplierName string            `json:"supplier_name"`
	Total        int64             `json:"total"`
	Status       string            `json:"status"`
	Lines        []TransactionLine `json:"lines"`
	CreatedAt    time.Time         `json:"created_at"`
}

type Expense struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}

type ExpenseCreateRequest struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

// CapitalEntry is one immutable line of the capital ledger. Entries are
// only ever appended; corrections are made with offsetting entries.
type CapitalEntry struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type CapitalMutationRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type CapitalBalanceResponse struct {
	Balance int64 `json:"balance"`
}

type CheckoutRequest struct {
	CustomerName  string `json:"customer_name"`
	PaymentMethod string `json:"payment_method"`
	CashReceived  int64  `json:"cash_received"`
}

type CheckoutResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
	Total         int64  `json:"total"`
	CashReceived  int64  `json:"cash_received,omitempty"`
	Change        int64  `json:"change,omitempty"`
	ItemCount     int    `json:"item_count"`
	CreatedAt     string `json:"created_at"`
}

// PurchaseRequest carries the purchase confirmation. The payment method
// is validated but not persisted; purchase records track the supplier
// and totals only.
type PurchaseRequest struct {
	SupplierName  string `json:"supplier_name"`
	PaymentMethod string `json:"payment_method"`
}

type PurchaseResponse struct {
	PurchaseID string `json:"purchase_id"`
	Status     string `json:"status"`
	Total      int64  `json:"total"`
	ItemCount  int    `json:"item_count"`
	CreatedAt  string `json:"created_at"`
}

type CartLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CartResponse struct {
	Mode     string     `json:"mode"`
	Lines    []CartLine `json:"lines"`
	Subtotal int64      `json:"subtotal"`
}

type MonthlySales struct {
	Month string `json:"month"`
	Total int64  `json:"total"`
}

type SalesReport struct {
	SalesTotal    int64          `json:"sales_total"`
	ExpensesTotal int64          `json:"expenses_total"`
	Profit        int64          `json:"profit"`
	TotalProducts int            `json:"total_products"`
	LowStock      []Product      `json:"low_stock"`
	Monthly       []MonthlySales `json:"monthly"`
	GeneratedAt   string         `json:"generated_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type ReceiptRequest struct {
	TransactionID string `json:"transaction_id"`
}

type ReceiptResponse struct {
	TransactionID string `json:"transaction_id"`
	EscposBase64  string `json:"escpos_base64"`
	PreviewText   string `json:"preview_text"`
}

type PrinterDevice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PrintResult struct {
	DeviceID   string `json:"device_id"`
	Printed    bool   `json:"printed"`
	DurationMS int64  `json:"duration_ms"`
}

const (
	PaymentCash     = "cash"
	PaymentTransfer = "transfer"
)

const (
	TxStatusCompleted = "completed"
)

const (
	CapitalInitial    = "initial"
	CapitalAddition   = "addition"
	CapitalSale       = "sale"
	CapitalWithdrawal = "withdrawal"
	CapitalPurchase   = "purchase"
	CapitalExpense    = "expense"
)

const (
	CartModeSale     = "sale"
	CartModePurchase = "purchase"
)

// CapitalSign reports the balance contribution direction of a capital
// entry type: +1 inflow, -1 outflow, 0 unknown type.
func CapitalSign(entryType string) int64 {
	switch entryType {
	case CapitalInitial, CapitalAddition, CapitalSale:
		return 1
	case CapitalWithdrawal, CapitalPurchase, CapitalExpense:
		return -1
	default:
		return 0
	}
}

// LowStockThreshold marks products that should show up in the restock
// section of the sales report.
const LowStockThreshold = 5
