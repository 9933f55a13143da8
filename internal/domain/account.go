package domain

import (
	"strings" // Email normalization
	"time"    // Timestamps

	"github.com/shopspring/decimal" // Exact decimal money
)

// DefaultCashBalance is the virtual cash every new account starts with
var DefaultCashBalance = decimal.NewFromInt(10000)

// Account roles
const (
	RoleUser  = "user"  // Regular trader
	RoleAdmin = "admin" // Operator with access to admin listings
)

// Account Model
type Account struct {
	ID           uint            `gorm:"primaryKey" json:"id"`                                                    // Primary key
	Email        string          `gorm:"size:255;uniqueIndex;not null" json:"email"`                              // Unique, lower-cased email
	PasswordHash string          `gorm:"not null" json:"-"`                                                       // Bcrypt hash, never serialized
	CashBalance  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:10000" json:"cash_balance"`           // Virtual cash
	Role         string          `gorm:"size:16;default:user" json:"role"`                                        // Role: user or admin
	Holdings     []Holding       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"holdings,omitempty"` // Owned holdings
	CreatedAt    time.Time       `json:"created_at"`                                                              // Creation time
	UpdatedAt    time.Time       `json:"updated_at"`                                                              // Last update time
}

// IsAdmin reports whether the account may use operator routes
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// NormalizeEmail applies the case-insensitive email policy used for storage and lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
