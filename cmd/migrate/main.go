package main

import (
	"stock_simulator/internal/config" // Custom import path (Config)
	"stock_simulator/internal/db"     // Custom import path (Database)
	"stock_simulator/internal/utils"  // Logger

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	utils.SetupLogger(utils.LogOptions{Level: cfg.LogLevel})

	if err := cfg.ValidateDatabase(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	gdb, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}
	logrus.Info("Migration completed")

	// Optional operator account on an empty database
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		return
	}
	created, err := db.SeedAdmin(gdb, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	if err != nil {
		logrus.Fatalf("seeding admin failed: %v", err)
	}
	if !created {
		logrus.Info("Accounts already exist, admin seed skipped")
	}
}
