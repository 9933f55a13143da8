package store

import (
	"context" // Request scoped cancellation

	"stock_simulator/internal/domain" // Importing domain models

	"github.com/pkg/errors"         // Error helpers
	"github.com/shopspring/decimal" // Exact decimal money
	"gorm.io/gorm"                  // GORM ORM library
)

// AccountStore persists accounts, their holdings and the trade ledger
type AccountStore struct {
	db *gorm.DB // Either the root handle or a transaction
}

// NewAccountStore returns a store backed by db
func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

// WithTx runs fn against a store bound to a single transaction.
// Returning an error from fn rolls everything back.
func (s *AccountStore) WithTx(ctx context.Context, fn func(tx *AccountStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&AccountStore{db: tx}) // Same methods, transactional handle
	})
}

// CreateAccount inserts a new account with the default balance and no holdings
func (s *AccountStore) CreateAccount(ctx context.Context, email, passwordHash string) (*domain.Account, error) {
	email = domain.NormalizeEmail(email) // Case-insensitive policy
	existing, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	// Reject duplicates before hitting the unique index
	if existing != nil {
		return nil, domain.ErrDuplicateEmail
	}
	account := domain.Account{
		Email:        email,                     // Normalized email
		PasswordHash: passwordHash,              // Bcrypt hash
		CashBalance:  domain.DefaultCashBalance, // Starting cash
		Role:         domain.RoleUser,           // Regular trader
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		// Lost a race with a concurrent registration
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, errors.Wrap(err, "create account")
	}
	return &account, nil
}

// FindByEmail returns the account for email, or nil when none exists
func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var account domain.Account
	err := s.db.WithContext(ctx).Where("email = ?", domain.NormalizeEmail(email)).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // No such account
	}
	if err != nil {
		return nil, errors.Wrap(err, "find account by email")
	}
	return &account, nil
}

// FindByID returns the account with its holdings, or nil when none exists
func (s *AccountStore) FindByID(ctx context.Context, id uint) (*domain.Account, error) {
	var account domain.Account
	err := s.db.WithContext(ctx).
		Preload("Holdings", func(db *gorm.DB) *gorm.DB { return db.Order("id") }). // Holdings in insertion order
		First(&account, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // No such account
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find account %d", id)
	}
	return &account, nil
}

// UpdateBalance overwrites the cash balance
func (s *AccountStore) UpdateBalance(ctx context.Context, id uint, newBalance decimal.Decimal) error {
	err := s.db.WithContext(ctx).Model(&domain.Account{}).Where("id = ?", id).
		Update("cash_balance", newBalance).Error
	return errors.Wrapf(err, "update balance of account %d", id)
}

// DebitBalance subtracts amount only if the balance covers it.
// The check and the write are one statement, so concurrent debits cannot overdraw.
func (s *AccountStore) DebitBalance(ctx context.Context, id uint, amount decimal.Decimal) error {
	res := s.db.WithContext(ctx).Model(&domain.Account{}).
		Where("id = ? AND cash_balance >= ?", id, amount).
		Update("cash_balance", gorm.Expr("ROUND(cash_balance - ?, 4)", amount)) // Keep 4 places on REAL-backed drivers
	if res.Error != nil {
		return errors.Wrapf(res.Error, "debit account %d", id)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// Nothing matched: either the account is gone or it cannot afford the debit
	found, err := s.exists(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrAccountNotFound
	}
	return domain.ErrInsufficientFunds
}

// CreditBalance adds amount to the cash balance
func (s *AccountStore) CreditBalance(ctx context.Context, id uint, amount decimal.Decimal) error {
	res := s.db.WithContext(ctx).Model(&domain.Account{}).Where("id = ?", id).
		Update("cash_balance", gorm.Expr("ROUND(cash_balance + ?, 4)", amount)) // Keep 4 places on REAL-backed drivers
	return errors.Wrapf(res.Error, "credit account %d", id)
}

// AddHolding appends a holding to the account
func (s *AccountStore) AddHolding(ctx context.Context, id uint, symbol string, quantity int64) (*domain.Holding, error) {
	holding := domain.Holding{AccountID: id, Symbol: symbol, Quantity: quantity}
	if err := s.db.WithContext(ctx).Create(&holding).Error; err != nil {
		return nil, errors.Wrapf(err, "add holding to account %d", id)
	}
	return &holding, nil
}

// ListHoldings returns the account's holdings in insertion order
func (s *AccountStore) ListHoldings(ctx context.Context, id uint) ([]domain.Holding, error) {
	var holdings []domain.Holding
	err := s.db.WithContext(ctx).Where("account_id = ?", id).Order("id").Find(&holdings).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list holdings of account %d", id)
	}
	return holdings, nil
}

// ClearHoldings deletes every holding of the account and reports how many were removed
func (s *AccountStore) ClearHoldings(ctx context.Context, id uint) (int64, error) {
	res := s.db.WithContext(ctx).Where("account_id = ?", id).Delete(&domain.Holding{})
	if res.Error != nil {
		return 0, errors.Wrapf(res.Error, "clear holdings of account %d", id)
	}
	return res.RowsAffected, nil
}

// DeleteHoldings deletes the listed holdings of the account and reports how many were removed
func (s *AccountStore) DeleteHoldings(ctx context.Context, id uint, holdingIDs []uint) (int64, error) {
	if len(holdingIDs) == 0 {
		return 0, nil // Nothing to delete
	}
	res := s.db.WithContext(ctx).Where("account_id = ? AND id IN ?", id, holdingIDs).Delete(&domain.Holding{})
	if res.Error != nil {
		return 0, errors.Wrapf(res.Error, "delete holdings of account %d", id)
	}
	return res.RowsAffected, nil
}

// exists reports whether an account row with id is present
func (s *AccountStore) exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.Account{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, errors.Wrapf(err, "look up account %d", id)
	}
	return count > 0, nil
}
