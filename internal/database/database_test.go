package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/materiality/internal/model"
)

func initTestDB(t *testing.T) string {
	t.Helper()
	ResetForTesting()
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")
	require.NoError(t, InitWithPath(dbPath))
	t.Cleanup(func() {
		Close()
		ResetForTesting()
	})
	return dbPath
}

func TestSQLiteOptimizations(t *testing.T) {
	initTestDB(t)
	db := Get()

	var journalMode string
	require.NoError(t, db.Raw("PRAGMA journal_mode").Scan(&journalMode).Error)
	assert.Equal(t, "wal", journalMode)

	var synchronous int
	require.NoError(t, db.Raw("PRAGMA synchronous").Scan(&synchronous).Error)
	assert.Equal(t, 1, synchronous, "synchronous should be NORMAL")

	var foreignKeys int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&foreignKeys).Error)
	assert.Equal(t, 1, foreignKeys)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestMigrationCreatesTables(t *testing.T) {
	initTestDB(t)
	db := Get()

	for _, m := range model.AllModels() {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}
	assert.True(t, db.Migrator().HasIndex(&model.SelectionRecord{}, "idx_selection_order"))
}

func TestInitWithPath_OnlyOnce(t *testing.T) {
	initTestDB(t)
	first := Get()

	// a second call is a no-op even with another path
	require.NoError(t, InitWithPath(filepath.Join(t.TempDir(), "other.db")))
	assert.Same(t, first, Get())
}

func TestHealthCheck(t *testing.T) {
	ResetForTesting()
	assert.Error(t, HealthCheck())

	initTestDB(t)
	assert.NoError(t, HealthCheck())
}

func TestGetPanicsBeforeInit(t *testing.T) {
	ResetForTesting()
	assert.Panics(t, func() { Get() })
}

func TestOpen_BusyTimeout(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want int
	}{
		{"default", 0, int(DefaultBusyTimeout.Milliseconds())},
		{"configured", 1500 * time.Millisecond, 1500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetForTesting()
			t.Cleanup(ResetForTesting)
			require.NoError(t, Open(Options{
				Path:        filepath.Join(t.TempDir(), "busy.db"),
				BusyTimeout: tt.in,
			}))

			var got int
			require.NoError(t, Get().Raw("PRAGMA busy_timeout").Scan(&got).Error)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen_LogSQL(t *testing.T) {
	ResetForTesting()
	t.Cleanup(ResetForTesting)
	require.NoError(t, Open(Options{Path: filepath.Join(t.TempDir(), "log.db"), LogSQL: true}))

	// statements still run with the zap-backed logger attached
	require.NoError(t, Get().Create(&model.Session{ID: "s1", ReportType: "Sector", Institution: "N/A"}).Error)

	var count int64
	require.NoError(t, Get().Model(&model.Session{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestNewGormLogger_Levels(t *testing.T) {
	assert.NotNil(t, newGormLogger(false))
	assert.NotNil(t, newGormLogger(true))
}
