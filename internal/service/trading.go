// Package service holds the trading rules: registration, login, buying,
// liquidating and resetting a simulated cash account.
package service

import (
	"context" // Request scoped cancellation
	"strconv" // Lock key formatting
	"sync"    // Pending notifications
	"time"    // Log timestamps

	"stock_simulator/internal/domain" // Importing domain models
	"stock_simulator/internal/quote"  // Quote type
	"stock_simulator/internal/store"  // Account store

	"github.com/go-playground/validator/v10" // Email validation
	"github.com/pkg/errors"                  // Error wrapping
	"github.com/shopspring/decimal"          // Exact decimal money
	"github.com/sirupsen/logrus"             // Logging library
	"golang.org/x/crypto/bcrypt"             // Password hashing
)

const (
	minPasswordLen = 8  // Shortest accepted password
	maxPasswordLen = 72 // bcrypt ignores anything longer
)

// costBasisFactor models every holding as bought at 90% of today's price.
// No purchase price is stored, so liquidation profit is a flat 10% of the current value.
var costBasisFactor = decimal.RequireFromString("0.9")

// BuyResult describes a completed purchase.
type BuyResult struct {
	Holding domain.Holding  `json:"holding"`      // New holding row
	Price   decimal.Decimal `json:"price"`        // Price per share
	Cost    decimal.Decimal `json:"cost"`         // Amount debited
	Balance decimal.Decimal `json:"cash_balance"` // Balance after the debit
}

// SoldHolding is one line of a liquidation.
type SoldHolding struct {
	Symbol   string          `json:"symbol"`   // Stock symbol
	Quantity int64           `json:"quantity"` // Shares sold
	Price    decimal.Decimal `json:"price"`    // Current price used
	Profit   decimal.Decimal `json:"profit"`   // Credited profit
}

// LiquidationResult describes a completed liquidate-all.
type LiquidationResult struct {
	Sold    []SoldHolding   `json:"sold"`         // Sold holdings, never null
	Profit  decimal.Decimal `json:"profit"`       // Total credited profit
	Balance decimal.Decimal `json:"cash_balance"` // Balance after the credit
}

// TradingService applies the trading rules on top of the account store.
type TradingService struct {
	store    *store.AccountStore // Persistence
	quotes   Quoter              // Price lookups
	notifier Notifier            // Purchase emails, optional
	locker   Locker              // Per-account serialization

	validate   *validator.Validate // Input validation
	bcryptCost int                 // Password hashing cost
	dummyHash  []byte              // Compared when the email is unknown

	pending sync.WaitGroup // in-flight purchase notifications
}

// Option configures a TradingService.
type Option func(*TradingService)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *TradingService) {
		s.bcryptCost = cost
	}
}

// NewTradingService wires the service to its collaborators.
func NewTradingService(accounts *store.AccountStore, quotes Quoter, notifier Notifier, locker Locker, options ...Option) (*TradingService, error) {
	s := &TradingService{
		store:      accounts,           // Account store
		quotes:     quotes,             // Quote source
		notifier:   notifier,           // Mailer
		locker:     locker,             // Account locks
		validate:   validator.New(),    // Shared validator
		bcryptCost: bcrypt.DefaultCost, // Default hashing cost
	}
	for _, option := range options {
		option(s) // Apply overrides
	}
	// Compared against when the email is unknown, so both failure paths cost one bcrypt run.
	hash, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.bcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "prepare dummy hash")
	}
	s.dummyHash = hash
	return s, nil
}

// Register creates an account with the default balance.
func (s *TradingService) Register(ctx context.Context, email, password string) (*domain.Account, error) {
	email = domain.NormalizeEmail(email) // Trim and lowercase
	if err := s.validate.Var(email, "required,email,max=255"); err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return nil, domain.ErrInvalidPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost) // Hash the password
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	account, err := s.store.CreateAccount(ctx, email, string(hash))
	if err != nil {
		return nil, err // Duplicate email or storage failure
	}
	logrus.WithFields(logrus.Fields{
		"account_id": account.ID,    // New account ID
		"email":      account.Email, // Normalized email
	}).Info("Account registered")
	return account, nil
}

// Authenticate checks credentials. Unknown email and wrong password both yield ErrInvalidCredentials.
func (s *TradingService) Authenticate(ctx context.Context, email, password string) (*domain.Account, error) {
	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password)) // Same work as a real check
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return account, nil
}

// Account returns the account with its holdings.
func (s *TradingService) Account(ctx context.Context, accountID uint) (*domain.Account, error) {
	account, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound // Deleted since the session started
	}
	return account, nil
}

// Quote looks up a symbol for the stock search page.
func (s *TradingService) Quote(ctx context.Context, symbol string) (*quote.Quote, error) {
	return s.quotes.GetQuote(ctx, symbol)
}

// UpdateInitialCapital overwrites the balance and discards every holding without crediting it.
func (s *TradingService) UpdateInitialCapital(ctx context.Context, accountID uint, newBalance decimal.Decimal) (*domain.Account, error) {
	if newBalance.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}
	newBalance = newBalance.Round(4) // Column precision

	unlock, err := s.lockAccount(ctx, accountID) // Serialize with buys and liquidations
	if err != nil {
		return nil, err
	}
	defer unlock()

	var discarded int64 // Holdings dropped without credit
	err = s.store.WithTx(ctx, func(tx *store.AccountStore) error {
		account, err := tx.FindByID(ctx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return domain.ErrAccountNotFound
		}
		if err := tx.UpdateBalance(ctx, accountID, newBalance); err != nil {
			return err
		}
		if discarded, err = tx.ClearHoldings(ctx, accountID); err != nil {
			return err
		}
		return tx.RecordTrade(ctx, &domain.Trade{AccountID: accountID, Type: domain.TradeReset, Amount: newBalance})
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"account_id":         accountID,                       // Account ID
		"balance":            newBalance.String(),             // New balance
		"discarded_holdings": discarded,                       // Holdings dropped
		"type":               domain.TradeReset,               // Transaction type
		"timestamp":          time.Now().Format(time.RFC3339), // Timestamp
	}).Info("Initial capital reset")
	return s.Account(ctx, accountID)
}

// Buy purchases quantity shares of symbol at the current quote if the balance covers the cost.
func (s *TradingService) Buy(ctx context.Context, accountID uint, symbol string, quantity int64) (*BuyResult, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	unlock, err := s.lockAccount(ctx, accountID) // One trade per account at a time
	if err != nil {
		return nil, err
	}
	defer unlock()

	q, err := s.quotes.GetQuote(ctx, symbol) // Current price
	if err != nil {
		return nil, err
	}
	cost := q.Current.Mul(decimal.NewFromInt(quantity)).Round(4) // Total cost

	var holding *domain.Holding
	err = s.store.WithTx(ctx, func(tx *store.AccountStore) error {
		if err := tx.DebitBalance(ctx, accountID, cost); err != nil {
			return err // Insufficient funds rolls back here
		}
		var err error
		if holding, err = tx.AddHolding(ctx, accountID, q.Symbol, quantity); err != nil {
			return err
		}
		return tx.RecordTrade(ctx, &domain.Trade{
			AccountID: accountID,       // Account ID
			Type:      domain.TradeBuy, // Transaction type
			Symbol:    q.Symbol,        // Stock symbol
			Quantity:  quantity,        // Shares bought
			Price:     q.Current,       // Price per share
			Amount:    cost,            // Amount debited
		})
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"account_id": accountID,                       // Account ID
		"symbol":     q.Symbol,                        // Stock symbol
		"quantity":   quantity,                        // Shares bought
		"price":      q.Current.String(),              // Price per share
		"cost":       cost.String(),                   // Amount debited
		"type":       domain.TradeBuy,                 // Transaction type
		"timestamp":  time.Now().Format(time.RFC3339), // Timestamp
	}).Info("Buy transaction")

	s.notifyPurchase(q.Symbol, quantity) // Fire and forget

	account, err := s.Account(ctx, accountID) // Fresh balance
	if err != nil {
		return nil, err
	}
	return &BuyResult{Holding: *holding, Price: q.Current, Cost: cost, Balance: account.CashBalance}, nil
}

// LiquidateAll sells every holding at the current quote using the flat 10% profit model
// and clears the holdings. With nothing held it changes nothing.
func (s *TradingService) LiquidateAll(ctx context.Context, accountID uint) (*LiquidationResult, error) {
	unlock, err := s.lockAccount(ctx, accountID) // One trade per account at a time
	if err != nil {
		return nil, err
	}
	defer unlock()

	account, err := s.Account(ctx, accountID) // Current holdings
	if err != nil {
		return nil, err
	}
	result := &LiquidationResult{Sold: []SoldHolding{}, Profit: decimal.Zero, Balance: account.CashBalance}
	if len(account.Holdings) == 0 {
		return result, nil // Nothing to sell
	}

	// Price everything before touching the store; any failed lookup aborts the whole sale.
	prices := make(map[string]decimal.Decimal, len(account.Holdings)) // One lookup per symbol
	ids := make([]uint, 0, len(account.Holdings))                     // Holdings being sold
	for _, h := range account.Holdings {
		price, ok := prices[h.Symbol]
		if !ok {
			q, err := s.quotes.GetQuote(ctx, h.Symbol)
			if err != nil {
				return nil, err
			}
			price = q.Current
			prices[h.Symbol] = price // Reuse for repeated symbols
		}
		profit := liquidationProfit(price, h.Quantity)
		result.Sold = append(result.Sold, SoldHolding{Symbol: h.Symbol, Quantity: h.Quantity, Price: price, Profit: profit})
		result.Profit = result.Profit.Add(profit)
		ids = append(ids, h.ID)
	}

	err = s.store.WithTx(ctx, func(tx *store.AccountStore) error {
		deleted, err := tx.DeleteHoldings(ctx, accountID, ids)
		if err != nil {
			return err
		}
		if deleted != int64(len(ids)) { // Someone else removed a holding
			return errors.Wrapf(domain.ErrAccountBusy, "holdings of account %d changed during liquidation", accountID)
		}
		if err := tx.CreditBalance(ctx, accountID, result.Profit); err != nil {
			return err
		}
		for _, sold := range result.Sold {
			if err := tx.RecordTrade(ctx, &domain.Trade{
				AccountID: accountID,             // Account ID
				Type:      domain.TradeLiquidate, // Transaction type
				Symbol:    sold.Symbol,           // Stock symbol
				Quantity:  sold.Quantity,         // Shares sold
				Price:     sold.Price,            // Price per share
				Amount:    sold.Profit,           // Amount credited
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Balance = account.CashBalance.Add(result.Profit) // Balance after the credit
	logrus.WithFields(logrus.Fields{
		"account_id": accountID,                       // Account ID
		"holdings":   len(ids),                        // Holdings sold
		"profit":     result.Profit.StringFixed(2),    // Total profit
		"type":       domain.TradeLiquidate,           // Transaction type
		"timestamp":  time.Now().Format(time.RFC3339), // Timestamp
	}).Info("Liquidate transaction")
	return result, nil
}

// Trades returns one page of the account's trade history.
func (s *TradingService) Trades(ctx context.Context, accountID uint, page store.Page) ([]domain.Trade, int64, error) {
	return s.store.ListTrades(ctx, store.TradeFilter{AccountID: accountID}, page)
}

// AllTrades returns one page of trades across accounts.
func (s *TradingService) AllTrades(ctx context.Context, filter store.TradeFilter, page store.Page) ([]domain.Trade, int64, error) {
	return s.store.ListTrades(ctx, filter, page)
}

// Accounts returns one page of accounts.
func (s *TradingService) Accounts(ctx context.Context, page store.Page) ([]domain.Account, int64, error) {
	return s.store.ListAccounts(ctx, page)
}

// Wait blocks until queued purchase notifications have finished.
func (s *TradingService) Wait() {
	s.pending.Wait()
}

// liquidationProfit is (price - price*0.9) * quantity.
func liquidationProfit(price decimal.Decimal, quantity int64) decimal.Decimal {
	return price.Sub(price.Mul(costBasisFactor)).Mul(decimal.NewFromInt(quantity)).Round(4)
}

// lockAccount takes the per-account lock shared by every balance change
func (s *TradingService) lockAccount(ctx context.Context, accountID uint) (func(), error) {
	return s.locker.Lock(ctx, "account:"+strconv.FormatUint(uint64(accountID), 10))
}

// notifyPurchase sends the confirmation in the background. The purchase is already
// committed, so a failed send is only logged.
func (s *TradingService) notifyPurchase(symbol string, quantity int64) {
	if s.notifier == nil {
		return // Mail not configured
	}
	s.pending.Add(1) // Tracked for graceful shutdown
	go func() {
		defer s.pending.Done()
		if err := s.notifier.NotifyPurchase(context.Background(), symbol, quantity); err != nil {
			logrus.WithFields(logrus.Fields{
				"symbol":   symbol,      // Stock symbol
				"quantity": quantity,    // Shares bought
				"error":    err.Error(), // Error message
			}).Error("Purchase notification failed")
		}
	}()
}
