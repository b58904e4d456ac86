package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tokopos/backend/internal/domain"
	"tokopos/backend/internal/ledger"
	"tokopos/backend/internal/printer"
	"tokopos/backend/internal/session"
	"tokopos/backend/internal/store"
	"tokopos/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo   store.Repository
	ledger *ledger.Ledger
	carts  *session.Manager
	log    *logrus.Logger
}

func New(repo store.Repository, capital *ledger.Ledger, carts *session.Manager, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if carts == nil {
		carts = session.NewManager()
	}

	return &Service{
		repo:   repo,
		ledger: capital,
		carts:  carts,
		log:    log,
	}
}

// Seed bootstraps the demo catalog and the opening capital entry. It
// only writes when the catalog is empty, so it can run on every start.
func (s *Service) Seed(ctx context.Context) error {
	count, err := s.repo.CountProducts(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, p := range []domain.Product{
		{Name: "Kemeja Putih", SKU: "SKU001", Price: 150000, SupplierPrice: 95000, Stock: 25, Supplier: "Supplier A"},
		{Name: "Celana Jeans", SKU: "SKU002", Price: 299000, SupplierPrice: 210000, Stock: 15, Supplier: "Supplier A"},
		{Name: "Sepatu Sneakers", SKU: "SKU003", Price: 450000, SupplierPrice: 320000, Stock: 10, Supplier: "Supplier B"},
		{Name: "Hoodie Hitam", SKU: "SKU004", Price: 350000, SupplierPrice: 245000, Stock: 20, Supplier: "Supplier B"},
		{Name: "Topi Baseball", SKU: "SKU005", Price: 75000, SupplierPrice: 45000, Stock: 30, Supplier: "Supplier C"},
	} {
		p.ID = xid.New("prd")
		p.CreatedAt = now
		if _, err := s.repo.CreateProduct(ctx, p); err != nil {
			return err
		}
	}

	entries, err := s.repo.ListCapitalEntries(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		if _, err := s.ledger.Append(ctx, domain.CapitalInitial, 5000000, "Modal awal"); err != nil {
			return err
		}
	}

	s.log.Info("seeded demo catalog and opening capital")
	return nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("%w: admin role required", store.ErrForbidden)
	}

	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Supplier = strings.TrimSpace(req.Supplier)

	if req.Name == "" || req.SKU == "" {
		return domain.Product{}, fmt.Errorf("%w: name and sku are required", store.ErrValidation)
	}
	if req.Price < 1 || req.SupplierPrice < 0 || req.Stock < 0 {
		return domain.Product{}, fmt.Errorf("%w: price must be positive", store.ErrValidation)
	}

	product := domain.Product{
		ID:            xid.New("prd"),
		Name:          req.Name,
		SKU:           req.SKU,
		Price:         req.Price,
		SupplierPrice: req.SupplierPrice,
		Stock:         req.Stock,
		Supplier:      req.Supplier,
		CreatedAt:     time.Now().UTC(),
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("%w: admin role required", store.ErrForbidden)
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	next := *existing
	if req.Name != nil {
		next.Name = strings.TrimSpace(*req.Name)
	}
	if req.SKU != nil {
		next.SKU = strings.ToUpper(strings.TrimSpace(*req.SKU))
	}
	if req.Price != nil {
		next.Price = *req.Price
	}
	if req.SupplierPrice != nil {
		next.SupplierPrice = *req.SupplierPrice
	}
	if req.Stock != nil {
		next.Stock = *req.Stock
	}
	if req.Supplier != nil {
		next.Supplier = strings.TrimSpace(*req.Supplier)
	}

	if next.Name == "" || next.SKU == "" || next.Price < 1 || next.Stock < 0 {
		return domain.Product{}, fmt.Errorf("%w: invalid product fields", store.ErrValidation)
	}

	updated, err := s.repo.UpdateProduct(ctx, next)
	if err != nil {
		return domain.Product{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("%w: admin role required", store.ErrForbidden)
	}
	return s.repo.DeleteProduct(ctx, id)
}

func (s *Service) cartFor(ctx context.Context, mode string) (*session.Cart, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("authenticated actor required")
	}
	if mode != domain.CartModeSale && mode != domain.CartModePurchase {
		return nil, fmt.Errorf("%w: unknown cart mode %q", store.ErrValidation, mode)
	}
	return s.carts.Get(actor.Username, mode), nil
}

func (s *Service) GetCart(ctx context.Context, mode string) (domain.CartResponse, error) {
	cart, err := s.cartFor(ctx, mode)
	if err != nil {
		return domain.CartResponse{}, err
	}
	return cartResponse(mode, cart), nil
}

func (s *Service) AddCartLine(ctx context.Context, mode string, req domain.CartLineRequest) (domain.CartResponse, error) {
	cart, err := s.cartFor(ctx, mode)
	if err != nil {
		return domain.CartResponse{}, err
	}

	product, err := s.repo.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return domain.CartResponse{}, err
	}
	if err := cart.AddLine(*product, req.Quantity); err != nil {
		return domain.CartResponse{}, err
	}
	return cartResponse(mode, cart), nil
}

func (s *Service) SetCartQuantity(ctx context.Context, mode string, req domain.CartLineRequest) (domain.CartResponse, error) {
	cart, err := s.cartFor(ctx, mode)
	if err != nil {
		return domain.CartResponse{}, err
	}

	product, err := s.repo.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return domain.CartResponse{}, err
	}
	if err := cart.SetQuantity(*product, req.Quantity); err != nil {
		return domain.CartResponse{}, err
	}
	return cartResponse(mode, cart), nil
}

func (s *Service) RemoveCartLine(ctx context.Context, mode string, productID string) (domain.CartResponse, error) {
	cart, err := s.cartFor(ctx, mode)
	if err != nil {
		return domain.CartResponse{}, err
	}
	if err := cart.RemoveLine(productID); err != nil {
		return domain.CartResponse{}, err
	}
	return cartResponse(mode, cart), nil
}

func (s *Service) ClearCart(ctx context.Context, mode string) error {
	cart, err := s.cartFor(ctx, mode)
	if err != nil {
		return err
	}
	cart.Clear()
	return nil
}

// Checkout commits the operator's sale cart. The commit order is fixed:
// the transaction record first, then per-line stock adjustments, then
// exactly one ledger entry, then the cart reset. A stock adjustment
// failure after the record is persisted does not roll the record back;
// the line is logged and skipped.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	cart, err := s.cartFor(ctx, domain.CartModeSale)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if req.CustomerName == "" {
		return domain.CheckoutResponse{}, fmt.Errorf("%w: customer name is required", store.ErrValidation)
	}
	if req.PaymentMethod != domain.PaymentCash && req.PaymentMethod != domain.PaymentTransfer {
		return domain.CheckoutResponse{}, fmt.Errorf("%w: payment method must be cash or transfer", store.ErrValidation)
	}
	if cart.Empty() {
		return domain.CheckoutResponse{}, fmt.Errorf("%w: cart is empty", store.ErrValidation)
	}

	lines := cart.Lines()
	// The total is recomputed from the cart here; a client-sent total is
	// never trusted.
	total := cart.Subtotal()

	var cashReceived, change int64
	if req.PaymentMethod == domain.PaymentCash {
		if req.CashReceived < total {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: received %d, total %d", store.ErrInsufficientPayment, req.CashReceived, total)
		}
		cashReceived = req.CashReceived
		change = req.CashReceived - total
	}

	tx := domain.Transaction{
		ID:            xid.New("trx"),
		CustomerName:  req.CustomerName,
		PaymentMethod: req.PaymentMethod,
		CashReceived:  cashReceived,
		Change:        change,
		Total:         total,
		Status:        domain.TxStatusCompleted,
		Lines:         toTransactionLines(lines),
		CreatedAt:     time.Now().UTC(),
	}

	created, err := s.repo.CreateTransaction(ctx, tx)
	if err != nil {
		return domain.CheckoutResponse{}, fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}

	for _, line := range created.Lines {
		if err := s.repo.AdjustStock(ctx, line.ProductID, -line.Quantity); err != nil {
			s.log.WithFields(logrus.Fields{
				"transaction_id": created.ID,
				"product_id":     line.ProductID,
			}).WithError(err).Warn("stock adjustment skipped")
		}
	}

	description := fmt.Sprintf("Penjualan #%s (%s)", created.ID, paymentLabel(created.PaymentMethod))
	if _, err := s.ledger.Append(ctx, domain.CapitalSale, created.Total, description); err != nil {
		s.log.WithField("transaction_id", created.ID).WithError(err).Error("capital entry append failed")
	}

	cart.Clear()

	return domain.CheckoutResponse{
		TransactionID: created.ID,
		Status:        created.Status,
		PaymentMethod: created.PaymentMethod,
		Total:         created.Total,
		CashReceived:  created.CashReceived,
		Change:        created.Change,
		ItemCount:     len(created.Lines),
		CreatedAt:     created.CreatedAt.Format(time.RFC3339),
	}, nil
}

// RecordPurchase commits the operator's purchase cart. The capital
// check happens before any write; a purchase larger than the current
// balance is rejected outright.
func (s *Service) RecordPurchase(ctx context.Context, req domain.PurchaseRequest) (domain.PurchaseResponse, error) {
	cart, err := s.cartFor(ctx, domain.CartModePurchase)
	if err != nil {
		return domain.PurchaseResponse{}, err
	}

	req.SupplierName = strings.TrimSpace(req.SupplierName)
	if req.SupplierName == "" {
		return domain.PurchaseResponse{}, fmt.Errorf("%w: supplier name is required", store.ErrValidation)
	}
	if req.PaymentMethod != domain.PaymentCash && req.PaymentMethod != domain.PaymentTransfer {
		return domain.PurchaseResponse{}, fmt.Errorf("%w: payment method must be cash or transfer", store.ErrValidation)
	}
	if cart.Empty() {
		return domain.PurchaseResponse{}, fmt.Errorf("%w: cart is empty", store.ErrValidation)
	}

	lines := cart.Lines()
	total := cart.Subtotal()

	balance, err := s.ledger.Balance(ctx)
	if err != nil {
		return domain.PurchaseResponse{}, err
	}
	if total > balance {
		return domain.PurchaseResponse{}, fmt.Errorf("%w: need %d, have %d", store.ErrInsufficientCapital, total, balance)
	}

	purchase := domain.Purchase{
		ID:           xid.New("pur"),
		SupplierName: req.SupplierName,
		Total:        total,
		Status:       domain.TxStatusCompleted,
		Lines:        toTransactionLines(lines),
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.repo.CreatePurchase(ctx, purchase)
	if err != nil {
		return domain.PurchaseResponse{}, fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}

	for _, line := range created.Lines {
		if err := s.repo.AdjustStock(ctx, line.ProductID, line.Quantity); err != nil {
			s.log.WithFields(logrus.Fields{
				"purchase_id": created.ID,
				"product_id":  line.ProductID,
			}).WithError(err).Warn("stock adjustment skipped")
		}
	}

	description := fmt.Sprintf("Pembelian dari %s", created.SupplierName)
	if _, err := s.ledger.Append(ctx, domain.CapitalPurchase, created.Total, description); err != nil {
		s.log.WithField("purchase_id", created.ID).WithError(err).Error("capital entry append failed")
	}

	cart.Clear()

	return domain.PurchaseResponse{
		PurchaseID: created.ID,
		Status:     created.Status,
		Total:      created.Total,
		ItemCount:  len(created.Lines),
		CreatedAt:  created.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (s *Service) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	return s.repo.ListTransactions(ctx)
}

func (s *Service) ListPurchases(ctx context.Context) ([]domain.Purchase, error) {
	return s.repo.ListPurchases(ctx)
}

func (s *Service) AddExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	req.Category = strings.TrimSpace(req.Category)
	req.Description = strings.TrimSpace(req.Description)

	if req.Category == "" {
		return domain.Expense{}, fmt.Errorf("%w: category is required", store.ErrValidation)
	}
	if req.Amount <= 0 {
		return domain.Expense{}, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}

	expense := domain.Expense{
		ID:          xid.New("exp"),
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		CreatedAt:   time.Now().UTC(),
	}

	created, err := s.repo.CreateExpense(ctx, expense)
	if err != nil {
		return domain.Expense{}, fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}

	description := fmt.Sprintf("Pengeluaran: %s - %s", created.Category, created.Description)
	if _, err := s.ledger.Append(ctx, domain.CapitalExpense, created.Amount, description); err != nil {
		s.log.WithField("expense_id", created.ID).WithError(err).Error("capital entry append failed")
	}

	return *created, nil
}

func (s *Service) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	return s.repo.ListExpenses(ctx)
}

func (s *Service) AddCapital(ctx context.Context, req domain.CapitalMutationRequest) (domain.CapitalEntry, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Penambahan modal"
	}
	entry, err := s.ledger.Append(ctx, domain.CapitalAddition, req.Amount, description)
	if err != nil {
		return domain.CapitalEntry{}, err
	}
	return *entry, nil
}

func (s *Service) WithdrawCapital(ctx context.Context, req domain.CapitalMutationRequest) (domain.CapitalEntry, error) {
	if req.Amount <= 0 {
		return domain.CapitalEntry{}, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}

	balance, err := s.ledger.Balance(ctx)
	if err != nil {
		return domain.CapitalEntry{}, err
	}
	if req.Amount > balance {
		return domain.CapitalEntry{}, fmt.Errorf("%w: need %d, have %d", store.ErrInsufficientCapital, req.Amount, balance)
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Penarikan modal"
	}
	entry, err := s.ledger.Append(ctx, domain.CapitalWithdrawal, req.Amount, description)
	if err != nil {
		return domain.CapitalEntry{}, err
	}
	return *entry, nil
}

func (s *Service) CapitalEntries(ctx context.Context) ([]domain.CapitalEntry, error) {
	return s.ledger.Entries(ctx)
}

func (s *Service) CapitalBalance(ctx context.Context) (int64, error) {
	return s.ledger.Balance(ctx)
}

var monthLabels = []string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}

// SalesReport aggregates completed sales, expenses and the stock state
// into the dashboard numbers: totals, profit, low-stock products and
// per-month sales of the current year.
func (s *Service) SalesReport(ctx context.Context) (domain.SalesReport, error) {
	transactions, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return domain.SalesReport{}, err
	}
	expenses, err := s.repo.ListExpenses(ctx)
	if err != nil {
		return domain.SalesReport{}, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.SalesReport{}, err
	}

	now := time.Now().UTC()
	monthly := make([]domain.MonthlySales, len(monthLabels))
	for i, label := range monthLabels {
		monthly[i] = domain.MonthlySales{Month: label}
	}

	var salesTotal int64
	for _, tx := range transactions {
		if tx.Status != domain.TxStatusCompleted {
			continue
		}
		salesTotal += tx.Total
		if tx.CreatedAt.Year() == now.Year() {
			monthly[int(tx.CreatedAt.Month())-1].Total += tx.Total
		}
	}

	var expensesTotal int64
	for _, e := range expenses {
		expensesTotal += e.Amount
	}

	lowStock := make([]domain.Product, 0)
	for _, p := range products {
		if p.Stock <= domain.LowStockThreshold {
			lowStock = append(lowStock, p)
		}
	}

	return domain.SalesReport{
		SalesTotal:    salesTotal,
		ExpensesTotal: expensesTotal,
		Profit:        salesTotal - expensesTotal,
		TotalProducts: len(products),
		LowStock:      lowStock,
		Monthly:       monthly,
		GeneratedAt:   now.Format(time.RFC3339),
	}, nil
}

// BuildReceipt renders the ESC/POS payload for a completed transaction.
func (s *Service) BuildReceipt(ctx context.Context, req domain.ReceiptRequest) (domain.ReceiptResponse, error) {
	tx, err := s.repo.GetTransactionByID(ctx, strings.TrimSpace(req.TransactionID))
	if err != nil {
		return domain.ReceiptResponse{}, err
	}

	payload, preview := printer.RenderReceipt(*tx)
	return domain.ReceiptResponse{
		TransactionID: tx.ID,
		EscposBase64:  payload,
		PreviewText:   preview,
	}, nil
}

func toTransactionLines(lines []domain.CartLine) []domain.TransactionLine {
	result := make([]domain.TransactionLine, 0, len(lines))
	for _, line := range lines {
		result = append(result, domain.TransactionLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.Price,
			Quantity:  line.Quantity,
		})
	}
	return result
}

func paymentLabel(method string) string {
	if method == domain.PaymentTransfer {
		return "Transfer"
	}
	return "Tunai"
}

func cartResponse(mode string, cart *session.Cart) domain.CartResponse {
	return domain.CartResponse{
		Mode:     mode,
		Lines:    cart.Lines(),
		Subtotal: cart.Subtotal(),
	}
}
