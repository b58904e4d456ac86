package store

import (
	"context"
	"errors"

	"tokopos/backend/internal/domain"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrStockLimit          = errors.New("quantity exceeds available stock")
	ErrInsufficientCapital = errors.New("insufficient capital")
	ErrInsufficientPayment = errors.New("cash received is less than total")
	ErrPersistence         = errors.New("persistence failed")
	ErrForbidden           = errors.New("forbidden")
)

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	CountProducts(ctx context.Context) (int, error)

	// AdjustStock applies a signed delta to a product's stock, flooring the
	// result at zero. A missing product returns ErrNotFound and must not
	// affect other products.
	AdjustStock(ctx context.Context, productID string, delta int) error

	CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)

	CreatePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error)
	ListPurchases(ctx context.Context) ([]domain.Purchase, error)

	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	ListExpenses(ctx context.Context) ([]domain.Expense, error)

	// AppendCapitalEntry is the only write the capital ledger supports.
	AppendCapitalEntry(ctx context.Context, entry domain.CapitalEntry) (*domain.CapitalEntry, error)
	ListCapitalEntries(ctx context.Context) ([]domain.CapitalEntry, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
