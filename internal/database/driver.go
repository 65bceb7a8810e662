package database

import "gorm.io/gorm"

// Driver opens a relational database for GORM. Only SQLite is implemented.
type Driver interface {
	// Name returns the driver name (e.g., "sqlite")
	Name() string

	// Open returns a GORM dialector for the DSN
	Open(dsn string) (gorm.Dialector, error)

	// PreMigrationConfig applies connection settings before migration.
	// Foreign key constraints must stay disabled here.
	PreMigrationConfig(db *gorm.DB) error

	// PostMigrationConfig applies settings that need the migrated schema
	PostMigrationConfig(db *gorm.DB) error
}
