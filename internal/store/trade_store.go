package store

import (
	"context" // Request scoped cancellation

	"stock_simulator/internal/domain" // Importing domain models

	"github.com/pkg/errors" // Error helpers
	"gorm.io/gorm"          // GORM ORM library
)

// Page selects one page of a listing
type Page struct {
	Page     int // 1-based page number
	PageSize int // Rows per page
}

// Offset returns the number of rows to skip
func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// TotalPages returns how many pages total rows span
func (p Page) TotalPages(total int64) int {
	return (int(total) + p.PageSize - 1) / p.PageSize
}

// TradeFilter narrows a trade listing; zero values match everything
type TradeFilter struct {
	AccountID uint   // Owning account
	Type      string // Trade type
	From      int64  // Earliest created_at in milliseconds
	To        int64  // Latest created_at in milliseconds
}

// RecordTrade appends an entry to the trade ledger
func (s *AccountStore) RecordTrade(ctx context.Context, trade *domain.Trade) error {
	err := s.db.WithContext(ctx).Create(trade).Error
	return errors.Wrapf(err, "record %s trade for account %d", trade.Type, trade.AccountID)
}

// ListTrades returns one page of trades, newest first, and the total count
func (s *AccountStore) ListTrades(ctx context.Context, filter TradeFilter, page Page) ([]domain.Trade, int64, error) {
	query := s.db.WithContext(ctx).Model(&domain.Trade{}) // Start building the query
	if filter.AccountID != 0 {
		query = query.Where("account_id = ?", filter.AccountID) // Filter by account
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type) // Filter by trade type
	}
	if filter.From != 0 {
		query = query.Where("created_at >= ?", filter.From) // Filter by start date
	}
	if filter.To != 0 {
		query = query.Where("created_at <= ?", filter.To) // Filter by end date
	}
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count trades")
	}
	var trades []domain.Trade
	if err := query.Order("created_at desc, id desc").Offset(page.Offset()).Limit(page.PageSize).Find(&trades).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list trades")
	}
	return trades, total, nil
}

// ListAccounts returns one page of accounts with their holdings and the total count
func (s *AccountStore) ListAccounts(ctx context.Context, page Page) ([]domain.Account, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.Account{}).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count accounts")
	}
	var accounts []domain.Account
	err := s.db.WithContext(ctx).
		Preload("Holdings", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("id").Offset(page.Offset()).Limit(page.PageSize).Find(&accounts).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "list accounts")
	}
	return accounts, total, nil
}
