package service

import (
	"context" // Blocking calls take a context

	"stock_simulator/internal/quote" // Quote type
)

// Quoter looks up the current price of a symbol.
//
//go:generate mockgen -package=service_test -destination=mock_deps_test.go -source=deps.go
type Quoter interface {
	GetQuote(ctx context.Context, symbol string) (*quote.Quote, error)
}

// Notifier confirms a completed purchase to the account holder.
type Notifier interface {
	NotifyPurchase(ctx context.Context, symbol string, quantity int64) error
}

// Locker serializes work on one key. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}
