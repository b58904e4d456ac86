package ledger

import (
	"context"
	"strings"
	"sync"
	"time"

	"tokopos/backend/internal/cache"
	"tokopos/backend/internal/domain"
	"tokopos/backend/internal/store"
	"tokopos/backend/internal/xid"
)

const balanceCacheKey = "capital:balance"
const balanceCacheTTL = 5 * time.Minute

// Ledger is the append-only capital log. The balance is never stored as
// a mutable field: it is a fold over the entries, kept warm with an
// incremental in-process counter and an optional shared cache. On cold
// load the full log is folded once.
type Ledger struct {
	repo  store.Repository
	cache cache.BalanceCache

	mu      sync.Mutex
	loaded  bool
	balance int64
}

func New(repo store.Repository, balanceCache cache.BalanceCache) *Ledger {
	if balanceCache == nil {
		balanceCache = cache.NoopBalanceCache{}
	}
	return &Ledger{repo: repo, cache: balanceCache}
}

// Append validates and persists one entry. There is no update and no
// delete; a wrong entry is corrected with an offsetting entry.
func (l *Ledger) Append(ctx context.Context, entryType string, amount int64, description string) (*domain.CapitalEntry, error) {
	if domain.CapitalSign(entryType) == 0 {
		return nil, store.ErrValidation
	}
	if amount <= 0 {
		return nil, store.ErrValidation
	}

	entry := domain.CapitalEntry{
		ID:          xid.New("cap"),
		Type:        entryType,
		Amount:      amount,
		Description: strings.TrimSpace(description),
		CreatedAt:   time.Now().UTC(),
	}

	created, err := l.repo.AppendCapitalEntry(ctx, entry)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	if l.loaded {
		l.balance += domain.CapitalSign(created.Type) * created.Amount
	}
	l.mu.Unlock()

	// Shared cache is invalidated rather than updated so concurrent
	// processes re-fold instead of racing on increments.
	_ = l.cache.Invalidate(ctx, balanceCacheKey)

	return created, nil
}

// Balance returns the current capital balance.
func (l *Ledger) Balance(ctx context.Context) (int64, error) {
	l.mu.Lock()
	if l.loaded {
		balance := l.balance
		l.mu.Unlock()
		return balance, nil
	}
	l.mu.Unlock()

	if cached, ok, err := l.cache.Get(ctx, balanceCacheKey); err == nil && ok {
		l.mu.Lock()
		l.balance = cached
		l.loaded = true
		l.mu.Unlock()
		return cached, nil
	}

	entries, err := l.repo.ListCapitalEntries(ctx)
	if err != nil {
		return 0, err
	}
	balance := Fold(entries)

	l.mu.Lock()
	l.balance = balance
	l.loaded = true
	l.mu.Unlock()

	_ = l.cache.Set(ctx, balanceCacheKey, balance, balanceCacheTTL)

	return balance, nil
}

// Entries returns the full log, oldest first.
func (l *Ledger) Entries(ctx context.Context) ([]domain.CapitalEntry, error) {
	return l.repo.ListCapitalEntries(ctx)
}

// Fold computes the signed sum over a slice of entries. Unknown types
// contribute nothing; they cannot enter through Append.
func Fold(entries []domain.CapitalEntry) int64 {
	var balance int64
	for _, e := range entries {
		balance += domain.CapitalSign(e.Type) * e.Amount
	}
	return balance
}
