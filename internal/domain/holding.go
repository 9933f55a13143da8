package domain

import "time" // Timestamps

// Holding Model
type Holding struct {
	ID        uint      `gorm:"primaryKey" json:"id"`             // Primary key, gives insertion order
	AccountID uint      `gorm:"index;not null" json:"account_id"` // Foreign key to Account
	Symbol    string    `gorm:"size:32;not null" json:"symbol"`   // Ticker symbol
	Quantity  int64     `gorm:"not null" json:"quantity"`         // Number of shares, always > 0
	CreatedAt time.Time `json:"created_at"`                       // Purchase time
}
