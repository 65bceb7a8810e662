package store

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/verustcode/materiality/pkg/logger"
)

const (
	// DefaultSessionRetentionDays is the default number of idle days before a session is deleted
	DefaultSessionRetentionDays = 30
	// DefaultSessionCleanupSchedule runs the cleanup daily at 3 AM
	DefaultSessionCleanupSchedule = "0 3 * * *"
)

// SessionCleanupService periodically deletes idle wizard sessions
type SessionCleanupService struct {
	store         SessionStore
	cron          *cron.Cron
	schedule      string
	retentionDays int
	entryID       cron.EntryID
	mu            sync.RWMutex
}

// NewSessionCleanupService creates a new session cleanup service
func NewSessionCleanupService(store SessionStore, schedule string, retentionDays int) *SessionCleanupService {
	if retentionDays <= 0 {
		retentionDays = DefaultSessionRetentionDays
	}
	if schedule == "" {
		schedule = DefaultSessionCleanupSchedule
	}
	return &SessionCleanupService{
		store:         store,
		cron:          cron.New(),
		schedule:      schedule,
		retentionDays: retentionDays,
	}
}

// Start schedules the cleanup and runs one pass in the background
func (s *SessionCleanupService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, err := s.cron.AddFunc(s.schedule, func() { s.Cleanup() })
	if err != nil {
		logger.Error("Failed to schedule session cleanup", zap.String("schedule", s.schedule), zap.Error(err))
		return err
	}
	s.entryID = entryID
	s.cron.Start()

	logger.Info("Session cleanup service started",
		zap.String("schedule", s.schedule),
		zap.Int("retention_days", s.retentionDays),
	)

	go s.Cleanup()
	return nil
}

// Stop stops the cleanup service gracefully
func (s *SessionCleanupService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		logger.Info("Session cleanup service stopped")
	}
}

// Cleanup deletes sessions idle longer than the retention period
func (s *SessionCleanupService) Cleanup() (int64, error) {
	s.mu.RLock()
	days := s.retentionDays
	s.mu.RUnlock()

	startTime := time.Now()
	cutoff := startTime.AddDate(0, 0, -days)
	deleted, err := s.store.DeleteInactiveSince(cutoff)
	if err != nil {
		logger.Error("Failed to cleanup idle sessions",
			zap.Int("retention_days", days),
			zap.Error(err),
		)
		return 0, err
	}

	logger.Info("Session cleanup completed",
		zap.Int64("deleted_count", deleted),
		zap.Int("retention_days", days),
		zap.Duration("duration", time.Since(startTime)),
	)
	return deleted, nil
}

// SetRetentionDays updates the retention period (takes effect on next cleanup)
func (s *SessionCleanupService) SetRetentionDays(days int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if days <= 0 {
		days = DefaultSessionRetentionDays
	}
	s.retentionDays = days
}
