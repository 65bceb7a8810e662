package store

import (
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/verustcode/materiality/internal/model"
	"github.com/verustcode/materiality/internal/selection"
)

// SelectionStore persists the answer set of a session.
type SelectionStore interface {
	// ReplaceCategory overwrites one category. A category submitted before keeps
	// its original position among the categories.
	ReplaceCategory(sessionID, category string, records []selection.Record) error

	// Load rebuilds the answer set in submission order
	Load(sessionID string) (*selection.Selections, error)

	// List returns the stored rows in submission order
	List(sessionID string) ([]model.SelectionRecord, error)

	// Clear removes every category of the session (wizard restart)
	Clear(sessionID string) error
}

type selectionStore struct {
	db *gorm.DB
}

func newSelectionStore(db *gorm.DB) SelectionStore {
	return &selectionStore{db: db}
}

func (s *selectionStore) ReplaceCategory(sessionID, category string, records []selection.Record) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing []model.SelectionRecord
		if err := tx.Where("session_id = ? AND category = ?", sessionID, category).
			Limit(1).Find(&existing).Error; err != nil {
			return err
		}

		index := 0
		if len(existing) > 0 {
			index = existing[0].CategoryIndex
		} else {
			var max sql.NullInt64
			if err := tx.Model(&model.SelectionRecord{}).Where("session_id = ?", sessionID).
				Select("MAX(category_index)").Row().Scan(&max); err != nil {
				return err
			}
			if max.Valid {
				index = int(max.Int64) + 1
			}
		}

		if err := tx.Where("session_id = ? AND category = ?", sessionID, category).
			Delete(&model.SelectionRecord{}).Error; err != nil {
			return err
		}

		if len(records) > 0 {
			rows := make([]model.SelectionRecord, 0, len(records))
			for i, r := range records {
				rows = append(rows, fromRecord(sessionID, category, index, i, r))
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		return tx.Model(&model.Session{}).Where("id = ?", sessionID).
			Update("last_active_at", time.Now()).Error
	})
}

func (s *selectionStore) List(sessionID string) ([]model.SelectionRecord, error) {
	var rows []model.SelectionRecord
	err := s.db.Where("session_id = ?", sessionID).
		Order("category_index ASC").Order("position ASC").
		Find(&rows).Error
	return rows, err
}

func (s *selectionStore) Load(sessionID string) (*selection.Selections, error) {
	rows, err := s.List(sessionID)
	if err != nil {
		return nil, err
	}

	sel := selection.New()
	var category string
	var batch []selection.Record
	for _, row := range rows {
		if row.Category != category && batch != nil {
			sel.Set(category, batch)
			batch = nil
		}
		category = row.Category
		batch = append(batch, toRecord(row))
	}
	if batch != nil {
		sel.Set(category, batch)
	}
	return sel, nil
}

func (s *selectionStore) Clear(sessionID string) error {
	return s.db.Where("session_id = ?", sessionID).Delete(&model.SelectionRecord{}).Error
}

func fromRecord(sessionID, category string, index, position int, r selection.Record) model.SelectionRecord {
	return model.SelectionRecord{
		SessionID:     sessionID,
		Category:      category,
		CategoryIndex: index,
		Position:      position,
		ReportType:    string(r.Report),
		RecordID:      r.ID,
		Institution:   r.Institution,
		Exposure:      r.Exposure,
		Sector:        r.Sector,
		Type:          r.Type,
		Label:         r.Label,
		Value:         r.Value,
	}
}

func toRecord(row model.SelectionRecord) selection.Record {
	return selection.Record{
		Report:      selection.ReportType(row.ReportType),
		ID:          row.RecordID,
		Institution: row.Institution,
		Exposure:    row.Exposure,
		Sector:      row.Sector,
		Type:        row.Type,
		Label:       row.Label,
		Value:       row.Value,
	}
}
