// Package store provides the data access layer for wizard sessions, their
// selections and the report run history.
package store

import "gorm.io/gorm"

// Store aggregates all data store interfaces.
type Store interface {
	Session() SessionStore
	Selection() SelectionStore
	ReportRun() ReportRunStore

	// DB returns the underlying database connection for advanced operations.
	// Use sparingly - prefer using specific store methods.
	DB() *gorm.DB

	// Transaction executes operations within a database transaction.
	Transaction(fn func(Store) error) error
}

// gormStore implements Store interface using GORM.
type gormStore struct {
	db             *gorm.DB
	sessionStore   SessionStore
	selectionStore SelectionStore
	reportRunStore ReportRunStore
}

// NewStore creates a new Store instance with GORM backend.
func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:             db,
		sessionStore:   newSessionStore(db),
		selectionStore: newSelectionStore(db),
		reportRunStore: newReportRunStore(db),
	}
}

func (s *gormStore) Session() SessionStore {
	return s.sessionStore
}

func (s *gormStore) Selection() SelectionStore {
	return s.selectionStore
}

func (s *gormStore) ReportRun() ReportRunStore {
	return s.reportRunStore
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Transaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
