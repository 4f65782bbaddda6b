package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service держит мастера пользователей в памяти.
type Service struct {
	mu      sync.Mutex
	wizards map[uuid.UUID]*Wizard
	cfg     Config
	deps    Dependencies
	logger  *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// NewService создает реестр мастеров.
func NewService(cfg Config, deps Dependencies, logger *zap.Logger) *Service {
	return &Service{
		wizards: make(map[uuid.UUID]*Wizard),
		cfg:     cfg,
		deps:    deps,
		logger:  logger.Named("WizardService"),
	}
}

// For возвращает мастер пользователя, создавая его при первом обращении.
func (s *Service) For(userID uuid.UUID) *Wizard {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wizards[userID]
	if !ok {
		w = New(userID, s.cfg, s.deps, s.logger)
		s.wizards[userID] = w
		activeWizards.Inc()
	}
	return w
}

// EvictIdle выгружает мастера без активности дольше maxIdle, сохранив отложенные правки.
// Мастера с идущей генерацией не выгружаются.
func (s *Service) EvictIdle(ctx context.Context, now time.Time, maxIdle time.Duration) int {
	s.mu.Lock()
	var idle []uuid.UUID
	for id, w := range s.wizards {
		if now.Sub(w.LastActive()) > maxIdle && !w.Busy() {
			idle = append(idle, id)
		}
	}
	evicted := make([]*Wizard, 0, len(idle))
	for _, id := range idle {
		evicted = append(evicted, s.wizards[id])
		delete(s.wizards, id)
	}
	s.mu.Unlock()

	for _, w := range evicted {
		if err := w.Flush(ctx); err != nil {
			s.logger.Warn("Failed to flush evicted wizard", zap.String("userID", w.userID.String()), zap.Error(err))
		}
		activeWizards.Dec()
	}
	if len(evicted) > 0 {
		s.logger.Info("Evicted idle wizards", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// StartJanitor периодически выгружает простаивающие мастера.
func (s *Service) StartJanitor(interval, maxIdle time.Duration) {
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case now := <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				s.EvictIdle(ctx, now, maxIdle)
				cancel()
			}
		}
	}()
}

// Shutdown останавливает фоновую выгрузку и сохраняет отложенные правки всех мастеров.
func (s *Service) Shutdown(ctx context.Context) {
	if s.stop != nil {
		close(s.stop)
		<-s.done
	}
	s.mu.Lock()
	all := make([]*Wizard, 0, len(s.wizards))
	for _, w := range s.wizards {
		all = append(all, w)
	}
	s.mu.Unlock()

	for _, w := range all {
		if err := w.Flush(ctx); err != nil {
			s.logger.Warn("Failed to flush wizard on shutdown", zap.String("userID", w.userID.String()), zap.Error(err))
		}
	}
	s.logger.Info("Wizard service stopped", zap.Int("wizards", len(all)))
}
