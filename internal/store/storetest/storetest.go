// Package storetest builds throwaway account stores for tests.
package storetest

import (
	"path/filepath"
	"testing"

	"stock_simulator/internal/config"
	"stock_simulator/internal/db"
	"stock_simulator/internal/store"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// New returns a store over a fresh, migrated sqlite database in t's temp dir.
func New(t testing.TB) (*store.AccountStore, *gorm.DB) {
	t.Helper()
	cfg := &config.Config{DBDriver: config.DriverSQLite, DBPath: filepath.Join(t.TempDir(), "stocks.db")}
	gdb, err := db.Open(cfg.DBDriver, cfg.DSN())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return store.NewAccountStore(gdb), gdb
}
