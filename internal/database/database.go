// Package database opens the embedded SQLite database that holds wizard
// sessions, their selections and the report run history.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/verustcode/materiality/internal/model"
	"github.com/verustcode/materiality/pkg/errors"
	"github.com/verustcode/materiality/pkg/logger"
)

// DefaultDBPath is used when the configuration leaves database.path empty.
const DefaultDBPath = "./data/materiality.db"

// DefaultBusyTimeout is how long a connection waits for a lock held by another
// process, such as an offline render reading while the server writes.
const DefaultBusyTimeout = 5 * time.Second

// Options controls how the database is opened
type Options struct {
	Path        string
	BusyTimeout time.Duration
	// LogSQL writes every statement to the debug log
	LogSQL bool
}

var (
	db   *gorm.DB
	once sync.Once
)

// InitWithPath opens the database at path with default options.
func InitWithPath(path string) error {
	return Open(Options{Path: path})
}

// Open opens the database file and migrates the schema. Only the first call
// takes effect.
func Open(opts Options) error {
	if opts.Path == "" {
		opts.Path = DefaultDBPath
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultBusyTimeout
	}

	var openErr error
	once.Do(func() {
		db, openErr = open(&SQLiteDriver{BusyTimeout: opts.BusyTimeout}, opts)
		if openErr != nil {
			db = nil
		}
	})
	return openErr
}

func open(driver Driver, opts Options) (*gorm.DB, error) {
	logger.Info("Opening database", zap.String("path", opts.Path), zap.String("driver", driver.Name()))

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to create database directory", err)
	}

	dialector, err := driver.Open(opts.Path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to open database", err)
	}
	conn, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(opts.LogSQL)})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to connect to database", err)
	}

	// foreign keys stay off until the schema is migrated
	if err := driver.PreMigrationConfig(conn); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to configure connection", err)
	}
	models := model.AllModels()
	if err := conn.AutoMigrate(models...); err != nil {
		logger.Error("Database migration failed", zap.Error(err))
		return nil, errors.Wrap(errors.ErrCodeDBMigration, "failed to run database migrations", err)
	}
	if err := driver.PostMigrationConfig(conn); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to configure migrated schema", err)
	}

	logger.Info("Database ready", zap.Int("models", len(models)))
	return conn, nil
}

// newGormLogger routes gorm output through zap; statements are logged only with logSQL
func newGormLogger(logSQL bool) gormlogger.Interface {
	level := gormlogger.Silent
	if logSQL {
		level = gormlogger.Info
	}
	return gormlogger.New(zapWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	logger.Named("gorm").Debug(fmt.Sprintf(format, args...))
}

// Get returns the database instance.
// Panics if the database hasn't been opened.
func Get() *gorm.DB {
	if db == nil {
		panic("database not initialized, call Open first")
	}
	return db
}

// Close closes the database connection
func Close() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	logger.Info("Closing database connection")
	return sqlDB.Close()
}

// ResetForTesting drops the connection so a test can open another file.
func ResetForTesting() {
	if db != nil {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
		db = nil
	}
	once = sync.Once{}
}

// HealthCheck pings the database
func HealthCheck() error {
	if db == nil {
		return errors.New(errors.ErrCodeDBConnection, "database not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to get database connection", err)
	}
	return sqlDB.Ping()
}
