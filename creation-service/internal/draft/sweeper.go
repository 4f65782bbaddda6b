package draft

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StaleDraftDeleter удаляет приватные черновики, не обновлявшиеся с указанного момента.
type StaleDraftDeleter interface {
	DeleteDraftsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// OrphanSweeper по расписанию удаляет брошенные черновики,
// которые не удалось удалить при Discard.
type OrphanSweeper struct {
	cron    *cron.Cron
	repo    StaleDraftDeleter
	maxAge  time.Duration
	timeout time.Duration
	logger  *zap.Logger
}

// NewOrphanSweeper создает планировщик. schedule - стандартное cron-выражение из пяти полей.
func NewOrphanSweeper(repo StaleDraftDeleter, schedule string, maxAge time.Duration, logger *zap.Logger) (*OrphanSweeper, error) {
	s := &OrphanSweeper{
		cron:    cron.New(),
		repo:    repo,
		maxAge:  maxAge,
		timeout: time.Minute,
		logger:  logger.Named("OrphanSweeper"),
	}
	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.Sweep(ctx, time.Now()); err != nil {
			s.logger.Error("Orphan draft sweep failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start запускает планировщик в фоне.
func (s *OrphanSweeper) Start() {
	s.logger.Info("Starting orphan draft sweeper", zap.Duration("maxAge", s.maxAge))
	s.cron.Start()
}

// Stop останавливает планировщик и ждет завершения текущего прохода.
func (s *OrphanSweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Orphan draft sweeper stopped")
}

// Sweep выполняет один проход.
func (s *OrphanSweeper) Sweep(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-s.maxAge)
	deleted, err := s.repo.DeleteDraftsOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale drafts: %w", err)
	}
	orphanDraftsDeleted.Add(float64(deleted))
	if deleted > 0 {
		s.logger.Info("Removed abandoned drafts", zap.Int64("count", deleted), zap.Time("cutoff", cutoff))
	}
	return deleted, nil
}
