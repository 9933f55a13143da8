package db

import (
	"stock_simulator/internal/domain" // Importing domain models

	"github.com/pkg/errors"      // Error helpers
	"github.com/sirupsen/logrus" // Structured logging
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// SeedAdmin creates an operator account when no accounts exist yet.
// It returns false when the table already had rows.
func SeedAdmin(db *gorm.DB, email, password string) (bool, error) {
	var count int64
	if err := db.Model(&domain.Account{}).Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "count accounts")
	}
	if count > 0 {
		return false, nil // Already populated
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, errors.Wrap(err, "hash seed password")
	}
	admin := domain.Account{
		Email:        domain.NormalizeEmail(email), // Same policy as registration
		PasswordHash: string(hash),                 // Hashed password
		CashBalance:  domain.DefaultCashBalance,    // Default balance
		Role:         domain.RoleAdmin,             // Operator role
	}
	if err := db.Create(&admin).Error; err != nil {
		return false, errors.Wrap(err, "create seed account")
	}
	logrus.WithFields(logrus.Fields{
		"account_id": admin.ID,    // Seeded account ID
		"email":      admin.Email, // Seeded email
	}).Info("Seeded admin account")
	return true, nil
}
