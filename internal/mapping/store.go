package mapping

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/verustcode/materiality/pkg/errors"
	"github.com/verustcode/materiality/pkg/logger"
	"github.com/verustcode/materiality/pkg/telemetry"
)

// Load reads the workbook (or its JSON export) at path into Tables.
// Errors are AppErrors: ErrCodeMappingNotFound when the file is absent,
// ErrCodeMappingInvalid otherwise.
func Load(path string) (*Tables, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeMappingNotFound, "mapping file not found: "+path)
		}
		return nil, errors.Wrap(errors.ErrCodeMappingInvalid, "cannot stat mapping file "+path, err)
	}

	t, err := load(path)
	if err != nil {
		logger.Debug("Mapping load failed", zap.String("path", path), zap.String("trace", eris.ToString(err, true)))
		return nil, errors.Wrap(errors.ErrCodeMappingInvalid, "invalid mapping file "+path, err)
	}
	return t, nil
}

func load(path string) (*Tables, error) {
	wb, err := ReadWorkbook(path)
	if err != nil {
		return nil, eris.Wrapf(err, "mapping: read %s", path)
	}
	t, err := FromWorkbook(wb)
	if err != nil {
		return nil, eris.Wrapf(err, "mapping: build tables from %s", path)
	}
	t.Source = path
	return t, nil
}

// Store holds the current Tables snapshot. Readers get a whole snapshot;
// reloads build a new one and swap it in, never mutating the old.
type Store struct {
	path    string
	current atomic.Pointer[Tables]

	reloadMu sync.Mutex

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
}

// Open loads the tables at path into a new Store.
func Open(path string) (*Store, error) {
	t, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.current.Store(t)
	logger.Info("Mapping tables loaded",
		zap.String("path", path),
		zap.Int("exposures", len(t.Exposures)),
		zap.Int("scenarios", len(t.Scenarios)),
		zap.Int("output_structure", len(t.OutputStructure)),
	)
	return s, nil
}

// NewStaticStore wraps already-built tables; Reload is a no-op without a path.
func NewStaticStore(t *Tables) *Store {
	s := &Store{}
	s.current.Store(t)
	return s
}

// Tables returns the current snapshot.
func (s *Store) Tables() *Tables {
	return s.current.Load()
}

// Path returns the backing file, empty for static stores.
func (s *Store) Path() string { return s.path }

// Reload loads the backing file again and swaps the snapshot on success.
// On failure the previous snapshot stays in place.
func (s *Store) Reload(ctx context.Context) (*Tables, error) {
	if s.path == "" {
		return s.Tables(), nil
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "mapping.Reload")
	defer span.End()

	t, err := Load(s.path)
	telemetry.GetMetrics().RecordMappingReload(ctx, err == nil)
	if err != nil {
		telemetry.SetSpanError(span, err)
		logger.Warn("Mapping reload failed, keeping previous tables", zap.String("path", s.path), zap.Error(err))
		return nil, err
	}

	s.current.Store(t)
	telemetry.SetSpanOK(span)
	logger.Info("Mapping tables reloaded",
		zap.String("path", s.path),
		zap.Int("exposures", len(t.Exposures)),
		zap.Int("scenarios", len(t.Scenarios)),
	)
	return t, nil
}

// StartReloader schedules Reload on a cron expression. An empty schedule disables it.
func (s *Store) StartReloader(schedule string) error {
	if schedule == "" || s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		s.cron = cron.New()
	}
	entryID, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_, _ = s.Reload(ctx)
	})
	if err != nil {
		logger.Error("Failed to schedule mapping reload", zap.String("schedule", schedule), zap.Error(err))
		return err
	}
	s.entryID = entryID
	s.cron.Start()

	logger.Info("Mapping reloader started", zap.String("schedule", schedule))
	return nil
}

// Stop stops the reloader and waits for a running reload to finish.
func (s *Store) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
		logger.Info("Mapping reloader stopped")
	}
}
