package store

import (
	"testing"
	"time"

	"github.com/verustcode/materiality/internal/model"
)

func TestNewSessionCleanupService_Defaults(t *testing.T) {
	svc := NewSessionCleanupService(nil, "", 0)
	if svc.schedule != DefaultSessionCleanupSchedule {
		t.Errorf("schedule = %q", svc.schedule)
	}
	if svc.retentionDays != DefaultSessionRetentionDays {
		t.Errorf("retentionDays = %d", svc.retentionDays)
	}

	svc.SetRetentionDays(7)
	if svc.retentionDays != 7 {
		t.Errorf("SetRetentionDays(7) = %d", svc.retentionDays)
	}
	svc.SetRetentionDays(-1)
	if svc.retentionDays != DefaultSessionRetentionDays {
		t.Errorf("SetRetentionDays(-1) = %d", svc.retentionDays)
	}
}

func TestSessionCleanupService_Cleanup(t *testing.T) {
	store, cleanup := SetupTestDB(t)
	defer cleanup()

	now := time.Now()
	CreateTestSession(t, store, func(s *model.Session) { s.LastActiveAt = now.AddDate(0, 0, -10) })
	keep := CreateTestSession(t, store, func(s *model.Session) { s.LastActiveAt = now })

	svc := NewSessionCleanupService(store.Session(), "", 7)
	deleted, err := svc.Cleanup()
	if err != nil {
		t.Fatalf("Cleanup() failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Cleanup() deleted %d, want 1", deleted)
	}
	if _, err := store.Session().GetByID(keep.ID); err != nil {
		t.Errorf("active session removed: %v", err)
	}
}

func TestSessionCleanupService_InvalidSchedule(t *testing.T) {
	svc := NewSessionCleanupService(nil, "not a cron", 1)
	if err := svc.Start(); err == nil {
		t.Error("Start() should reject an invalid schedule")
	}
}
