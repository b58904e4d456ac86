package cache

import (
	"context"
	"time"
)

// BalanceCache fronts the capital balance fold. Implementations must
// treat a miss as "fold the ledger", never as zero.
type BalanceCache interface {
	Get(ctx context.Context, key string) (int64, bool, error)
	Set(ctx context.Context, key string, balance int64, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type NoopBalanceCache struct{}

func (NoopBalanceCache) Get(_ context.Context, _ string) (int64, bool, error) {
	return 0, false, nil
}

func (NoopBalanceCache) Set(_ context.Context, _ string, _ int64, _ time.Duration) error {
	return nil
}

func (NoopBalanceCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
