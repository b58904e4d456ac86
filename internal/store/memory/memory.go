package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tokopos/backend/internal/domain"
	"tokopos/backend/internal/store"
	"tokopos/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	transactions    map[string]domain.Transaction
	purchases       map[string]domain.Purchase
	expenses        map[string]domain.Expense
	capital         []domain.CapitalEntry
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// New returns an empty store with only user accounts seeded. Catalog and
// capital seeding happens at the service layer so postgres and memory
// stores bootstrap the same way.
func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		transactions:    make(map[string]domain.Transaction),
		purchases:       make(map[string]domain.Purchase),
		expenses:        make(map[string]domain.Expense),
		capital:         make([]domain.CapitalEntry, 0, 64),
		usersByUsername: seedUsers(),
	}
}

// NewSeeded returns a store preloaded with the demo catalog and the
// opening capital entry.
func NewSeeded() *Store {
	s := New()
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
		s.products[p.ID] = p
	}
	s.capital = append(s.capital, domain.CapitalEntry{
		ID:          xid.New("cap"),
		Type:        domain.CapitalInitial,
		Amount:      5000000,
		Description: "Modal awal",
		CreatedAt:   now,
	})
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.SKU == b.SKU {
			return cmpString(a.ID, b.ID)
		}
		return cmpString(a.SKU, b.SKU)
	})
	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrValidation
	}
	s.products[product.ID] = product
	return &product, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.products[product.ID] = product
	return &product, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) CountProducts(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products), nil
}

func (s *Store) AdjustStock(_ context.Context, productID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return store.ErrNotFound
	}
	next := p.Stock + delta
	if next < 0 {
		next = 0
	}
	p.Stock = next
	s.products[productID] = p
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[tx.ID]; exists {
		return nil, store.ErrValidation
	}
	s.transactions[tx.ID] = cloneTransaction(tx)
	result := cloneTransaction(tx)
	return &result, nil
}

func (s *Store) GetTransactionByID(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	result := cloneTransaction(tx)
	return &result, nil
}

func (s *Store) ListTransactions(_ context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		result = append(result, cloneTransaction(tx))
	}
	slices.SortFunc(result, func(a, b domain.Transaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return result, nil
}

func (s *Store) CreatePurchase(_ context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.purchases[purchase.ID]; exists {
		return nil, store.ErrValidation
	}
	s.purchases[purchase.ID] = clonePurchase(purchase)
	result := clonePurchase(purchase)
	return &result, nil
}

func (s *Store) ListPurchases(_ context.Context) ([]domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Purchase, 0, len(s.purchases))
	for _, p := range s.purchases {
		result = append(result, clonePurchase(p))
	}
	slices.SortFunc(result, func(a, b domain.Purchase) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return result, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expenses[expense.ID]; exists {
		return nil, store.ErrValidation
	}
	s.expenses[expense.ID] = expense
	return &expense, nil
}

func (s *Store) ListExpenses(_ context.Context) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		result = append(result, e)
	}
	slices.SortFunc(result, func(a, b domain.Expense) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return result, nil
}

func (s *Store) AppendCapitalEntry(_ context.Context, entry domain.CapitalEntry) (*domain.CapitalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if domain.CapitalSign(entry.Type) == 0 || entry.Amount <= 0 {
		return nil, store.ErrValidation
	}
	s.capital = append(s.capital, entry)
	return &entry, nil
}

func (s *Store) ListCapitalEntries(_ context.Context) ([]domain.CapitalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CapitalEntry, len(s.capital))
	copy(result, s.capital)
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrValidation
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	u.Password = password
	s.usersByUsername[username] = u
	return nil
}

func cmpString(a string, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cloneTransaction(src domain.Transaction) domain.Transaction {
	dst := src
	dst.Lines = make([]domain.TransactionLine, len(src.Lines))
	copy(dst.Lines, src.Lines)
	return dst
}

func clonePurchase(src domain.Purchase) domain.Purchase {
	dst := src
	dst.Lines = make([]domain.TransactionLine, len(src.Lines))
	copy(dst.Lines, src.Lines)
	return dst
}
