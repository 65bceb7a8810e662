package store

import (
	"time"

	"gorm.io/gorm"

	"github.com/verustcode/materiality/internal/model"
)

// SessionStore defines operations for wizard sessions.
type SessionStore interface {
	Create(session *model.Session) error
	GetByID(id string) (*model.Session, error)
	List(limit, offset int) ([]model.Session, int64, error)

	// Touch marks the session as active now
	Touch(id string) error

	// Delete removes the session with its selections and report runs
	Delete(id string) error

	// DeleteInactiveSince removes sessions idle since before cutoff
	DeleteInactiveSince(cutoff time.Time) (int64, error)
}

type sessionStore struct {
	db *gorm.DB
}

func newSessionStore(db *gorm.DB) SessionStore {
	return &sessionStore{db: db}
}

func (s *sessionStore) Create(session *model.Session) error {
	if session.LastActiveAt.IsZero() {
		session.LastActiveAt = time.Now()
	}
	return s.db.Create(session).Error
}

func (s *sessionStore) GetByID(id string) (*model.Session, error) {
	var session model.Session
	if err := s.db.First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *sessionStore) List(limit, offset int) ([]model.Session, int64, error) {
	var sessions []model.Session
	var total int64

	query := s.db.Model(&model.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("last_active_at DESC").Limit(limit).Offset(offset).Find(&sessions).Error
	return sessions, total, err
}

func (s *sessionStore) Touch(id string) error {
	res := s.db.Model(&model.Session{}).Where("id = ?", id).Update("last_active_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *sessionStore) Delete(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return deleteSessions(tx, []string{id})
	})
}

func (s *sessionStore) DeleteInactiveSince(cutoff time.Time) (int64, error) {
	var ids []string
	if err := s.db.Model(&model.Session{}).Where("last_active_at < ?", cutoff).Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return deleteSessions(tx, ids)
	})
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// deleteSessions removes sessions and every row that references them.
func deleteSessions(tx *gorm.DB, ids []string) error {
	if err := tx.Where("session_id IN ?", ids).Delete(&model.SelectionRecord{}).Error; err != nil {
		return err
	}
	if err := tx.Where("session_id IN ?", ids).Delete(&model.ReportRun{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&model.Session{}).Error
}
