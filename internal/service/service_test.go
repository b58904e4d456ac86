package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"tokopos/backend/internal/cache"
	"tokopos/backend/internal/domain"
	"tokopos/backend/internal/ledger"
	"tokopos/backend/internal/session"
	"tokopos/backend/internal/store"
	"tokopos/backend/internal/store/memory"
)

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded()
	capital := ledger.New(repo, cache.NoopBalanceCache{})
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(repo, capital, session.NewManager(), log), repo
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "kasir", Role: "cashier"})
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func productBySKU(t *testing.T, svc *Service, sku string) domain.Product {
	t.Helper()
	products, err := svc.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	for _, p := range products {
		if p.SKU == sku {
			return p
		}
	}
	t.Fatalf("product %s not found", sku)
	return domain.Product{}
}

func addToCart(t *testing.T, ctx context.Context, svc *Service, mode, productID string, qty int) {
	t.Helper()
	if _, err := svc.AddCartLine(ctx, mode, domain.CartLineRequest{ProductID: productID, Quantity: qty}); err != nil {
		t.Fatalf("AddCartLine: %v", err)
	}
}

func TestCheckoutCashHappyPath(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	kemeja := productBySKU(t, svc, "SKU001")
	celana := productBySKU(t, svc, "SKU002")
	addToCart(t, ctx, svc, domain.CartModeSale, kemeja.ID, 1)
	addToCart(t, ctx, svc, domain.CartModeSale, celana.ID, 1)

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		CustomerName:  "Budi",
		PaymentMethod: domain.PaymentCash,
		CashReceived:  450000,
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if resp.Total != 449000 {
		t.Fatalf("total = %d, want 449000", resp.Total)
	}
	if resp.Change != 1000 {
		t.Fatalf("change = %d, want 1000", resp.Change)
	}
	if resp.Status != domain.TxStatusCompleted {
		t.Fatalf("status = %q, want %q", resp.Status, domain.TxStatusCompleted)
	}

	if got := productBySKU(t, svc, "SKU001").Stock; got != 24 {
		t.Fatalf("SKU001 stock = %d, want 24", got)
	}
	if got := productBySKU(t, svc, "SKU002").Stock; got != 14 {
		t.Fatalf("SKU002 stock = %d, want 14", got)
	}

	balance, err := svc.CapitalBalance(ctx)
	if err != nil {
		t.Fatalf("CapitalBalance: %v", err)
	}
	if balance != 5449000 {
		t.Fatalf("balance = %d, want 5449000", balance)
	}

	entries, err := svc.CapitalEntries(ctx)
	if err != nil {
		t.Fatalf("CapitalEntries: %v", err)
	}
	last := entries[len(entries)-1]
	if last.Type != domain.CapitalSale {
		t.Fatalf("last entry type = %q, want %q", last.Type, domain.CapitalSale)
	}
	want := "Penjualan #" + resp.TransactionID + " (Tunai)"
	if last.Description != want {
		t.Fatalf("description = %q, want %q", last.Description, want)
	}

	cart, err := svc.GetCart(ctx, domain.CartModeSale)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(cart.Lines) != 0 {
		t.Fatalf("cart not cleared, %d lines left", len(cart.Lines))
	}
}

func TestCheckoutTransferSkipsCashFields(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	topi := productBySKU(t, svc, "SKU005")
	addToCart(t, ctx, svc, domain.CartModeSale, topi.ID, 2)

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		CustomerName:  "Sari",
		PaymentMethod: domain.PaymentTransfer,
		CashReceived:  999999,
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if resp.Total != 150000 {
		t.Fatalf("total = %d, want 150000", resp.Total)
	}
	if resp.CashReceived != 0 || resp.Change != 0 {
		t.Fatalf("transfer must not carry cash fields, got received=%d change=%d", resp.CashReceived, resp.Change)
	}

	entries, _ := svc.CapitalEntries(ctx)
	last := entries[len(entries)-1]
	if !strings.HasSuffix(last.Description, "(Transfer)") {
		t.Fatalf("description = %q, want Transfer label", last.Description)
	}
}

func TestCheckoutInsufficientCashRejected(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	kemeja := productBySKU(t, svc, "SKU001")
	addToCart(t, ctx, svc, domain.CartModeSale, kemeja.ID, 1)

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		CustomerName:  "Budi",
		PaymentMethod: domain.PaymentCash,
		CashReceived:  100000,
	})
	if !errors.Is(err, store.ErrInsufficientPayment) {
		t.Fatalf("err = %v, want ErrInsufficientPayment", err)
	}

	// Nothing may be written and the cart must survive the rejection.
	txs, _ := svc.ListTransactions(ctx)
	if len(txs) != 0 {
		t.Fatalf("transactions written on rejected checkout: %d", len(txs))
	}
	if got := productBySKU(t, svc, "SKU001").Stock; got != 25 {
		t.Fatalf("stock changed on rejected checkout: %d", got)
	}
	cart, _ := svc.GetCart(ctx, domain.CartModeSale)
	if len(cart.Lines) != 1 {
		t.Fatalf("cart lost on rejected checkout")
	}
}

func TestCheckoutValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()
	kemeja := productBySKU(t, svc, "SKU001")

	cases := []struct {
		name string
		prep func()
		req  domain.CheckoutRequest
	}{
		{
			name: "empty cart",
			req:  domain.CheckoutRequest{CustomerName: "Budi", PaymentMethod: domain.PaymentCash, CashReceived: 500000},
		},
		{
			name: "blank customer",
			prep: func() { addToCart(t, ctx, svc, domain.CartModeSale, kemeja.ID, 1) },
			req:  domain.CheckoutRequest{CustomerName: "   ", PaymentMethod: domain.PaymentCash, CashReceived: 500000},
		},
		{
			name: "unknown payment method",
			req:  domain.CheckoutRequest{CustomerName: "Budi", PaymentMethod: "credit", CashReceived: 500000},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.prep != nil {
				tc.prep()
			}
			_, err := svc.Checkout(ctx, tc.req)
			if !errors.Is(err, store.ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestCheckoutSurvivesMissingProduct(t *testing.T) {
	svc, repo := newTestService()
	ctx := cashierCtx()

	topi := productBySKU(t, svc, "SKU005")
	addToCart(t, ctx, svc, domain.CartModeSale, topi.ID, 1)

	// The product disappears between the cart add and the commit. The
	// stock adjustment is skipped but the sale still completes.
	if err := repo.DeleteProduct(ctx, topi.ID); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		CustomerName:  "Budi",
		PaymentMethod: domain.PaymentCash,
		CashReceived:  75000,
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	tx, err := repo.GetTransactionByID(ctx, resp.TransactionID)
	if err != nil {
		t.Fatalf("GetTransactionByID: %v", err)
	}
	if tx.Total != 75000 {
		t.Fatalf("total = %d, want 75000", tx.Total)
	}
	entries, _ := svc.CapitalEntries(ctx)
	if entries[len(entries)-1].Type != domain.CapitalSale {
		t.Fatalf("sale entry missing after skipped stock adjustment")
	}
}

func TestStockAdjustmentFloorsAtZero(t *testing.T) {
	svc, repo := newTestService()
	ctx := cashierCtx()

	sepatu := productBySKU(t, svc, "SKU003")
	addToCart(t, ctx, svc, domain.CartModeSale, sepatu.ID, 10)

	// Stock drops behind the cart's back; the sale still commits and the
	// stock stays at zero instead of going negative.
	if err := repo.AdjustStock(ctx, sepatu.ID, -6); err != nil {
		t.Fatalf("AdjustStock: %v", err)
	}

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		CustomerName:  "Budi",
		PaymentMethod: domain.PaymentTransfer,
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if got := productBySKU(t, svc, "SKU003").Stock; got != 0 {
		t.Fatalf("stock = %d, want 0", got)
	}
}

func TestRecordPurchaseHappyPath(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	kemeja := productBySKU(t, svc, "SKU001")
	addToCart(t, ctx, svc, domain.CartModePurchase, kemeja.ID, 10)

	resp, err := svc.RecordPurchase(ctx, domain.PurchaseRequest{SupplierName: "Supplier A", PaymentMethod: domain.PaymentCash})
	if err != nil {
		t.Fatalf("RecordPurchase: %v", err)
	}
	if resp.Total != 950000 {
		t.Fatalf("total = %d, want 950000 (supplier price)", resp.Total)
	}

	if got := productBySKU(t, svc, "SKU001").Stock; got != 35 {
		t.Fatalf("stock = %d, want 35", got)
	}

	balance, _ := svc.CapitalBalance(ctx)
	if balance != 4050000 {
		t.Fatalf("balance = %d, want 4050000", balance)
	}

	entries, _ := svc.CapitalEntries(ctx)
	last := entries[len(entries)-1]
	if last.Type != domain.CapitalPurchase || last.Description != "Pembelian dari Supplier A" {
		t.Fatalf("unexpected ledger entry %q %q", last.Type, last.Description)
	}
}

func TestRecordPurchaseInsufficientCapital(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	// 16 pairs at supplier price 320000 is 5120000, above the opening
	// 5000000. Purchase mode has no stock ceiling so the cart accepts it.
	sepatu := productBySKU(t, svc, "SKU003")
	addToCart(t, ctx, svc, domain.CartModePurchase, sepatu.ID, 16)

	_, err := svc.RecordPurchase(ctx, domain.PurchaseRequest{SupplierName: "Supplier B", PaymentMethod: domain.PaymentTransfer})
	if !errors.Is(err, store.ErrInsufficientCapital) {
		t.Fatalf("err = %v, want ErrInsufficientCapital", err)
	}

	purchases, _ := svc.ListPurchases(ctx)
	if len(purchases) != 0 {
		t.Fatalf("purchase written despite capital rejection")
	}
	if got := productBySKU(t, svc, "SKU003").Stock; got != 10 {
		t.Fatalf("stock changed despite capital rejection: %d", got)
	}
	entries, _ := svc.CapitalEntries(ctx)
	if len(entries) != 1 {
		t.Fatalf("ledger grew despite capital rejection: %d entries", len(entries))
	}
	cart, _ := svc.GetCart(ctx, domain.CartModePurchase)
	if len(cart.Lines) != 1 {
		t.Fatalf("cart lost on rejected purchase")
	}
}

func TestRecordPurchaseRequiresPaymentMethod(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	kemeja := productBySKU(t, svc, "SKU001")
	addToCart(t, ctx, svc, domain.CartModePurchase, kemeja.ID, 2)

	for _, method := range []string{"", "credit"} {
		_, err := svc.RecordPurchase(ctx, domain.PurchaseRequest{SupplierName: "Supplier A", PaymentMethod: method})
		if !errors.Is(err, store.ErrValidation) {
			t.Fatalf("method %q: err = %v, want ErrValidation", method, err)
		}
	}

	purchases, _ := svc.ListPurchases(ctx)
	if len(purchases) != 0 {
		t.Fatalf("purchase written despite missing payment method")
	}
	if got := productBySKU(t, svc, "SKU001").Stock; got != 25 {
		t.Fatalf("stock changed despite missing payment method: %d", got)
	}
	entries, _ := svc.CapitalEntries(ctx)
	if len(entries) != 1 {
		t.Fatalf("ledger grew despite missing payment method: %d entries", len(entries))
	}
	cart, _ := svc.GetCart(ctx, domain.CartModePurchase)
	if len(cart.Lines) != 1 {
		t.Fatalf("cart lost on rejected purchase")
	}
}

func TestSaleCartRejectsQuantityAboveStock(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	sepatu := productBySKU(t, svc, "SKU003")
	_, err := svc.AddCartLine(ctx, domain.CartModeSale, domain.CartLineRequest{ProductID: sepatu.ID, Quantity: 11})
	if !errors.Is(err, store.ErrStockLimit) {
		t.Fatalf("err = %v, want ErrStockLimit", err)
	}
	cart, _ := svc.GetCart(ctx, domain.CartModeSale)
	if len(cart.Lines) != 0 {
		t.Fatalf("cart changed on rejected add")
	}
}

func TestCartRequiresActor(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.GetCart(context.Background(), domain.CartModeSale)
	if err == nil {
		t.Fatal("expected error without actor")
	}
}

func TestCartRejectsUnknownMode(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.GetCart(cashierCtx(), "wholesale")
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestAddExpenseAppendsLedgerEntry(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	expense, err := svc.AddExpense(ctx, domain.ExpenseCreateRequest{
		Category:    "Listrik",
		Description: "Tagihan bulanan",
		Amount:      200000,
	})
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if expense.ID == "" {
		t.Fatal("expense id empty")
	}

	balance, _ := svc.CapitalBalance(ctx)
	if balance != 4800000 {
		t.Fatalf("balance = %d, want 4800000", balance)
	}
	entries, _ := svc.CapitalEntries(ctx)
	last := entries[len(entries)-1]
	if last.Description != "Pengeluaran: Listrik - Tagihan bulanan" {
		t.Fatalf("description = %q", last.Description)
	}
}

func TestAddExpenseValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	if _, err := svc.AddExpense(ctx, domain.ExpenseCreateRequest{Category: "", Amount: 1000}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("blank category: err = %v, want ErrValidation", err)
	}
	if _, err := svc.AddExpense(ctx, domain.ExpenseCreateRequest{Category: "Sewa", Amount: 0}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("zero amount: err = %v, want ErrValidation", err)
	}
}

func TestCapitalAddAndWithdraw(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminCtx()

	if _, err := svc.AddCapital(ctx, domain.CapitalMutationRequest{Amount: 1000000}); err != nil {
		t.Fatalf("AddCapital: %v", err)
	}
	entry, err := svc.WithdrawCapital(ctx, domain.CapitalMutationRequest{Amount: 500000})
	if err != nil {
		t.Fatalf("WithdrawCapital: %v", err)
	}
	if entry.Description != "Penarikan modal" {
		t.Fatalf("default description = %q", entry.Description)
	}

	balance, _ := svc.CapitalBalance(ctx)
	if balance != 5500000 {
		t.Fatalf("balance = %d, want 5500000", balance)
	}

	_, err = svc.WithdrawCapital(ctx, domain.CapitalMutationRequest{Amount: 9000000})
	if !errors.Is(err, store.ErrInsufficientCapital) {
		t.Fatalf("err = %v, want ErrInsufficientCapital", err)
	}
}

func TestProductCRUDRequiresAdmin(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateProduct(cashierCtx(), domain.ProductCreateRequest{Name: "Jaket", SKU: "SKU006", Price: 200000})
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("cashier create: err = %v, want ErrForbidden", err)
	}

	name := "X"
	if _, err := svc.UpdateProduct(cashierCtx(), "prd-any", domain.ProductUpdateRequest{Name: &name}); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("cashier update: err = %v, want ErrForbidden", err)
	}
	if err := svc.DeleteProduct(cashierCtx(), "prd-any"); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("cashier delete: err = %v, want ErrForbidden", err)
	}

	created, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name: " Jaket Denim ", SKU: "sku006", Price: 200000, SupplierPrice: 140000, Stock: 8, Supplier: "Supplier C",
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if created.Name != "Jaket Denim" || created.SKU != "SKU006" {
		t.Fatalf("normalization failed: %q %q", created.Name, created.SKU)
	}

	newStock := 3
	updated, err := svc.UpdateProduct(adminCtx(), created.ID, domain.ProductUpdateRequest{Stock: &newStock})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if updated.Stock != 3 || updated.Name != "Jaket Denim" {
		t.Fatalf("partial update broke fields: %+v", updated)
	}

	if err := svc.DeleteProduct(adminCtx(), created.ID); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	if _, err := svc.GetProduct(adminCtx(), created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	repo := memory.New()
	capital := ledger.New(repo, cache.NoopBalanceCache{})
	log := logrus.New()
	log.SetOutput(io.Discard)
	svc := New(repo, capital, session.NewManager(), log)
	ctx := context.Background()

	if err := svc.Seed(ctx); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := svc.Seed(ctx); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	products, _ := svc.ListProducts(ctx)
	if len(products) != 5 {
		t.Fatalf("products = %d, want 5", len(products))
	}
	balance, _ := svc.CapitalBalance(ctx)
	if balance != 5000000 {
		t.Fatalf("balance = %d, want 5000000", balance)
	}
	entries, _ := svc.CapitalEntries(ctx)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
}

func TestSalesReport(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	sepatu := productBySKU(t, svc, "SKU003")
	addToCart(t, ctx, svc, domain.CartModeSale, sepatu.ID, 6)
	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{
		CustomerName:  "Budi",
		PaymentMethod: domain.PaymentTransfer,
	}); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if _, err := svc.AddExpense(ctx, domain.ExpenseCreateRequest{Category: "Sewa", Description: "Kios", Amount: 700000}); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	report, err := svc.SalesReport(ctx)
	if err != nil {
		t.Fatalf("SalesReport: %v", err)
	}
	if report.SalesTotal != 2700000 {
		t.Fatalf("sales total = %d, want 2700000", report.SalesTotal)
	}
	if report.ExpensesTotal != 700000 {
		t.Fatalf("expenses total = %d, want 700000", report.ExpensesTotal)
	}
	if report.Profit != 2000000 {
		t.Fatalf("profit = %d, want 2000000", report.Profit)
	}
	if report.TotalProducts != 5 {
		t.Fatalf("total products = %d, want 5", report.TotalProducts)
	}
	if len(report.Monthly) != 12 {
		t.Fatalf("monthly buckets = %d, want 12", len(report.Monthly))
	}
	if report.Monthly[0].Month != "Jan" || report.Monthly[11].Month != "Des" {
		t.Fatalf("month labels wrong: %q .. %q", report.Monthly[0].Month, report.Monthly[11].Month)
	}

	// Selling 6 sneakers leaves stock at 4, inside the low-stock band.
	found := false
	for _, p := range report.LowStock {
		if p.SKU == "SKU003" {
			found = true
		}
	}
	if !found {
		t.Fatal("SKU003 missing from low stock")
	}

	var monthlySum int64
	for _, m := range report.Monthly {
		monthlySum += m.Total
	}
	if monthlySum != 2700000 {
		t.Fatalf("monthly sum = %d, want 2700000", monthlySum)
	}
}

func TestBuildReceipt(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	topi := productBySKU(t, svc, "SKU005")
	addToCart(t, ctx, svc, domain.CartModeSale, topi.ID, 2)
	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		CustomerName:  "Budi",
		PaymentMethod: domain.PaymentCash,
		CashReceived:  200000,
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	receipt, err := svc.BuildReceipt(ctx, domain.ReceiptRequest{TransactionID: resp.TransactionID})
	if err != nil {
		t.Fatalf("BuildReceipt: %v", err)
	}
	if receipt.EscposBase64 == "" {
		t.Fatal("empty escpos payload")
	}
	if !strings.Contains(receipt.PreviewText, "Topi Baseball") {
		t.Fatalf("preview missing item: %q", receipt.PreviewText)
	}
	if !strings.Contains(receipt.PreviewText, "Budi") {
		t.Fatalf("preview missing customer: %q", receipt.PreviewText)
	}

	_, err = svc.BuildReceipt(ctx, domain.ReceiptRequest{TransactionID: "trx-missing"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
