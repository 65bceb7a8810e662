package store

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/verustcode/materiality/internal/model"
	"github.com/verustcode/materiality/internal/selection"
)

func TestSessionStore_CreateAndGet(t *testing.T) {
	store, cleanup := SetupTestDB(t)
	defer cleanup()

	session := &model.Session{ID: "sess-001", ReportType: "Sector", Institution: "N/A"}
	if err := store.Session().Create(session); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if session.LastActiveAt.IsZero() {
		t.Error("Create() should set LastActiveAt")
	}

	got, err := store.Session().GetByID("sess-001")
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.ReportType != "Sector" || got.Institution != "N/A" {
		t.Errorf("GetByID() = %+v", got)
	}

	_, err = store.Session().GetByID("missing")
	if err != gorm.ErrRecordNotFound {
		t.Errorf("Expected gorm.ErrRecordNotFound, got %v", err)
	}
}

func TestSessionStore_Touch(t *testing.T) {
	store, cleanup := SetupTestDB(t)
	defer cleanup()

	old := time.Now().Add(-48 * time.Hour)
	session := CreateTestSession(t, store, func(s *model.Session) { s.LastActiveAt = old })

	if err := store.Session().Touch(session.ID); err != nil {
		t.Fatalf("Touch() failed: %v", err)
	}
	got, _ := store.Session().GetByID(session.ID)
	if !got.LastActiveAt.After(old) {
		t.Errorf("Touch() did not move LastActiveAt: %v", got.LastActiveAt)
	}

	if err := store.Session().Touch("missing"); err != gorm.ErrRecordNotFound {
		t.Errorf("Touch() on missing session = %v, want ErrRecordNotFound", err)
	}
}

func TestSessionStore_List(t *testing.T) {
	store, cleanup := SetupTestDB(t)
	defer cleanup()

	now := time.Now()
	CreateTestSession(t, store, func(s *model.Session) { s.ID = "older"; s.LastActiveAt = now.Add(-time.Hour) })
	CreateTestSession(t, store, func(s *model.Session) { s.ID = "newer"; s.LastActiveAt = now })

	sessions, total, err := store.Session().List(10, 0)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if total != 2 || len(sessions) != 2 {
		t.Fatalf("List() returned %d of %d, want 2 of 2", len(sessions), total)
	}
	if sessions[0].ID != "newer" {
		t.Errorf("List() should order by activity, got %s first", sessions[0].ID)
	}
}

func TestSessionStore_DeleteCascades(t *testing.T) {
	store, cleanup := SetupTestDB(t)
	defer cleanup()

	session := CreateTestSession(t, store)
	recs := []selection.Record{{Report: selection.ReportInstitutional, ID: "a", Exposure: "Real Estate", Label: "Low"}}
	if err := store.Selection().ReplaceCategory(session.ID, "Real Estate", recs); err != nil {
		t.Fatalf("ReplaceCategory() failed: %v", err)
	}
	if err := store.ReportRun().Create(&model.ReportRun{ID: "run-1", SessionID: session.ID, ReportType: "Institutional", Status: model.ReportRunStatusCompleted}); err != nil {
		t.Fatalf("Create run failed: %v", err)
	}

	if err := store.Session().Delete(session.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	var count int64
	store.DB().Model(&model.SelectionRecord{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected selections deleted, %d left", count)
	}
	store.DB().Model(&model.ReportRun{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected report runs deleted, %d left", count)
	}
	if _, err := store.Session().GetByID(session.ID); err != gorm.ErrRecordNotFound {
		t.Errorf("Expected session deleted, got %v", err)
	}
}

func TestSessionStore_DeleteInactiveSince(t *testing.T) {
	store, cleanup := SetupTestDB(t)
	defer cleanup()

	now := time.Now()
	stale := CreateTestSession(t, store, func(s *model.Session) { s.LastActiveAt = now.AddDate(0, 0, -40) })
	fresh := CreateTestSession(t, store, func(s *model.Session) { s.LastActiveAt = now.AddDate(0, 0, -1) })

	deleted, err := store.Session().DeleteInactiveSince(now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("DeleteInactiveSince() failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteInactiveSince() deleted %d, want 1", deleted)
	}
	if _, err := store.Session().GetByID(stale.ID); err != gorm.ErrRecordNotFound {
		t.Errorf("stale session should be gone, got %v", err)
	}
	if _, err := store.Session().GetByID(fresh.ID); err != nil {
		t.Errorf("fresh session should remain, got %v", err)
	}

	deleted, err = store.Session().DeleteInactiveSince(now.AddDate(0, 0, -30))
	if err != nil || deleted != 0 {
		t.Errorf("second pass = %d, %v; want 0, nil", deleted, err)
	}
}

func TestStore_Transaction(t *testing.T) {
	store, cleanup := SetupTestDB(t)
	defer cleanup()

	err := store.Transaction(func(tx Store) error {
		if err := tx.Session().Create(&model.Session{ID: "tx-1", ReportType: "Scenario", Institution: "N/A"}); err != nil {
			return err
		}
		return gorm.ErrInvalidData
	})
	if err != gorm.ErrInvalidData {
		t.Fatalf("Transaction() = %v, want ErrInvalidData", err)
	}
	if _, err := store.Session().GetByID("tx-1"); err != gorm.ErrRecordNotFound {
		t.Errorf("rolled back session should not exist, got %v", err)
	}
}
