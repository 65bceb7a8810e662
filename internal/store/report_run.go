package store

import (
	"gorm.io/gorm"

	"github.com/verustcode/materiality/internal/model"
)

// ReportRunStore records report generations.
type ReportRunStore interface {
	Create(run *model.ReportRun) error
	GetByID(id string) (*model.ReportRun, error)
	ListBySession(sessionID string, limit, offset int) ([]model.ReportRun, int64, error)
	CountByStatus(status model.ReportRunStatus) (int64, error)
}

type reportRunStore struct {
	db *gorm.DB
}

func newReportRunStore(db *gorm.DB) ReportRunStore {
	return &reportRunStore{db: db}
}

func (s *reportRunStore) Create(run *model.ReportRun) error {
	return s.db.Create(run).Error
}

func (s *reportRunStore) GetByID(id string) (*model.ReportRun, error) {
	var run model.ReportRun
	if err := s.db.First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *reportRunStore) ListBySession(sessionID string, limit, offset int) ([]model.ReportRun, int64, error) {
	var runs []model.ReportRun
	var total int64

	query := s.db.Model(&model.ReportRun{}).Where("session_id = ?", sessionID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&runs).Error
	return runs, total, err
}

func (s *reportRunStore) CountByStatus(status model.ReportRunStatus) (int64, error) {
	var count int64
	err := s.db.Model(&model.ReportRun{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
