package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/verustcode/materiality/internal/database"
	"github.com/verustcode/materiality/internal/model"
	"github.com/verustcode/materiality/pkg/idgen"
)

// SetupTestDB creates a SQLite database file in a temp dir for testing.
// It returns a Store instance and a cleanup function.
// The cleanup function should be called with defer in tests.
func SetupTestDB(t *testing.T) (Store, func()) {
	t.Helper()
	database.ResetForTesting()

	tmpPath := filepath.Join(t.TempDir(), "test.db")
	if err := database.InitWithPath(tmpPath); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	cleanup := func() {
		database.Close()
		database.ResetForTesting()
	}
	return NewStore(database.Get()), cleanup
}

// CreateTestSession creates a session with default values.
// Fields can be overridden by passing a function that modifies the session.
func CreateTestSession(t *testing.T, store Store, overrides ...func(*model.Session)) *model.Session {
	t.Helper()
	session := &model.Session{
		ID:           idgen.NewSessionID(),
		ReportType:   "Institutional",
		Institution:  "Bank",
		LastActiveAt: time.Now(),
	}
	for _, override := range overrides {
		override(session)
	}

	if err := store.Session().Create(session); err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}
	return session
}
