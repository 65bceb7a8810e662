package database

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/verustcode/materiality/pkg/logger"
)

// SQLiteDriver opens the database with the pure-Go SQLite driver
type SQLiteDriver struct {
	// BusyTimeout is applied as PRAGMA busy_timeout
	BusyTimeout time.Duration
}

// Name returns the driver name
func (d *SQLiteDriver) Name() string {
	return "sqlite"
}

// Open returns the SQLite dialector for a file path
func (d *SQLiteDriver) Open(path string) (gorm.Dialector, error) {
	return sqlite.Open(path), nil
}

// PreMigrationConfig serializes writers on a single connection and enables WAL
// so readers in other processes do not block the server.
func (d *SQLiteDriver) PreMigrationConfig(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", d.BusyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if err := db.Exec(p).Error; err != nil {
			logger.Warn("SQLite pragma failed", zap.String("pragma", p), zap.Error(err))
		}
	}
	return nil
}

// PostMigrationConfig enables foreign key constraints so session deletes cascade
func (d *SQLiteDriver) PostMigrationConfig(db *gorm.DB) error {
	return db.Exec("PRAGMA foreign_keys = ON").Error
}
