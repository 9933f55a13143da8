package db

import (
	"time" // Slow query threshold

	"stock_simulator/internal/config" // Driver names

	"github.com/glebarez/sqlite" // Pure Go SQLite driver for GORM
	"github.com/pkg/errors"      // Error helpers
	"github.com/sirupsen/logrus" // Query warnings go to the app log
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/logger"        // GORM logger levels
)

// Open connects to the database selected by driver
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.DriverMySQL:
		dialector = mysql.Open(dsn) // MySQL connection
	case config.DriverSQLite:
		dialector = sqlite.Open(dsn) // Embedded SQLite file
	default:
		return nil, errors.Errorf("unsupported database driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,                                    // Map unique violations to gorm.ErrDuplicatedKey
		Logger:         newGormLogger(logrus.StandardLogger()), // Only slow queries and errors
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to DB")
	}
	return db, nil
}

// newGormLogger reports slow queries and real errors; lookups that find nothing are expected
func newGormLogger(w logger.Writer) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond, // Slow query threshold
		LogLevel:                  logger.Warn,            // Warnings and errors only
		IgnoreRecordNotFoundError: true,                   // Missing rows are not errors here
		Colorful:                  false,                  // Plain text for log files
	})
}
