package domain

import "github.com/shopspring/decimal" // Exact decimal money

// Trade types
const (
	TradeBuy       = "buy"       // Shares bought
	TradeLiquidate = "liquidate" // Holding sold during liquidate-all
	TradeReset     = "reset"     // Balance overwritten from settings
)

// Trade Model, an append-only ledger of account activity
type Trade struct {
	ID        uint            `gorm:"primaryKey" json:"id"`                         // Primary key
	AccountID uint            `gorm:"index;not null" json:"account_id"`             // Foreign key to Account
	Account   *Account        `gorm:"constraint:OnDelete:CASCADE;" json:"-"`        // Owning account
	Type      string          `gorm:"size:16;index;not null" json:"type"`           // Trade type: buy, liquidate, reset
	Symbol    string          `gorm:"size:32" json:"symbol,omitempty"`              // Ticker symbol, empty for reset
	Quantity  int64           `json:"quantity,omitempty"`                           // Shares involved
	Price     decimal.Decimal `gorm:"type:decimal(20,4)" json:"price"`              // Quote used
	Amount    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`    // Cash moved or new balance
	CreatedAt int64           `gorm:"autoCreateTime:milli;index" json:"created_at"` // Timestamp of creation in milliseconds
}
