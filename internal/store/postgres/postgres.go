package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tokopos/backend/internal/domain"
	"tokopos/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, sku, price, supplier_price, stock, supplier, created_at
		FROM products
		ORDER BY sku, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.SupplierPrice, &p.Stock, &p.Supplier, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, sku, price, supplier_price, stock, supplier, created_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.SupplierPrice, &p.Stock, &p.Supplier, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	if len(ids) == 0 {
		return map[string]domain.Product{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, sku, price, supplier_price, stock, supplier, created_at
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.SupplierPrice, &p.Stock, &p.Supplier, &p.CreatedAt); err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Price < 1 {
		return nil, store.ErrValidation
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, sku, price, supplier_price, stock, supplier, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, product.ID, product.Name, product.SKU, product.Price, product.SupplierPrice, product.Stock, product.Supplier, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Price < 1 {
		return nil, store.ErrValidation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, sku = $3, price = $4, supplier_price = $5, stock = $6, supplier = $7
		WHERE id = $1
	`, product.ID, product.Name, product.SKU, product.Price, product.SupplierPrice, product.Stock, product.Supplier)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CountProducts(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM products`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) AdjustStock(ctx context.Context, productID string, delta int) error {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = pgTx.Rollback() }()

	var stock int
	err = pgTx.QueryRowContext(ctx, `
		SELECT stock FROM products WHERE id = $1 FOR UPDATE
	`, productID).Scan(&stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}

	next := stock + delta
	if next < 0 {
		next = 0
	}
	if _, err := pgTx.ExecContext(ctx, `
		UPDATE products SET stock = $2 WHERE id = $1
	`, productID, next); err != nil {
		return err
	}

	return pgTx.Commit()
}

func (s *Store) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if tx.ID == "" || len(tx.Lines) == 0 {
		return nil, store.ErrValidation
	}

	linesJSON, err := json.Marshal(tx.Lines)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, customer_name, payment_method, cash_received, change, total, status, lines, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, tx.ID, tx.CustomerName, tx.PaymentMethod, tx.CashReceived, tx.Change, tx.Total, tx.Status, linesJSON, tx.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	created := tx
	return &created, nil
}

func (s *Store) GetTransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var tx domain.Transaction
	var linesJSON []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, customer_name, payment_method, cash_received, change, total, status, lines, created_at
		FROM transactions
		WHERE id = $1
	`, id).Scan(&tx.ID, &tx.CustomerName, &tx.PaymentMethod, &tx.CashReceived, &tx.Change, &tx.Total, &tx.Status, &linesJSON, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(linesJSON, &tx.Lines); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *Store) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_name, payment_method, cash_received, change, total, status, lines, created_at
		FROM transactions
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Transaction, 0, 64)
	for rows.Next() {
		var tx domain.Transaction
		var linesJSON []byte
		if err := rows.Scan(&tx.ID, &tx.CustomerName, &tx.PaymentMethod, &tx.CashReceived, &tx.Change, &tx.Total, &tx.Status, &linesJSON, &tx.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(linesJSON, &tx.Lines); err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Store) CreatePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	if purchase.ID == "" || len(purchase.Lines) == 0 {
		return nil, store.ErrValidation
	}

	linesJSON, err := json.Marshal(purchase.Lines)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO purchases (id, supplier_name, total, status, lines, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, purchase.ID, purchase.SupplierName, purchase.Total, purchase.Status, linesJSON, purchase.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	created := purchase
	return &created, nil
}

func (s *Store) ListPurchases(ctx context.Context) ([]domain.Purchase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, supplier_name, total, status, lines, created_at
		FROM purchases
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Purchase, 0, 32)
	for rows.Next() {
		var p domain.Purchase
		var linesJSON []byte
		if err := rows.Scan(&p.ID, &p.SupplierName, &p.Total, &p.Status, &linesJSON, &p.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(linesJSON, &p.Lines); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.ID == "" || expense.Amount < 1 {
		return nil, store.ErrValidation
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, category, description, amount, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, expense.ID, expense.Category, expense.Description, expense.Amount, expense.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, description, amount, created_at
		FROM expenses
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Expense, 0, 32)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.Category, &e.Description, &e.Amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// AppendCapitalEntry inserts one ledger row. The capital table has no
// UPDATE or DELETE path anywhere in this package.
func (s *Store) AppendCapitalEntry(ctx context.Context, entry domain.CapitalEntry) (*domain.CapitalEntry, error) {
	if domain.CapitalSign(entry.Type) == 0 || entry.Amount <= 0 {
		return nil, store.ErrValidation
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO capital_entries (id, type, amount, description, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, entry.ID, entry.Type, entry.Amount, entry.Description, entry.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	created := entry
	return &created, nil
}

func (s *Store) ListCapitalEntries(ctx context.Context) ([]domain.CapitalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, amount, description, created_at
		FROM capital_entries
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.CapitalEntry, 0, 64)
	for rows.Next() {
		var e domain.CapitalEntry
		if err := rows.Scan(&e.ID, &e.Type, &e.Amount, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrValidation
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
