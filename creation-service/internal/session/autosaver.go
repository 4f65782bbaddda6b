package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const backgroundSaveTimeout = 5 * time.Second

// Autosaver сохраняет снимок сразу после переходов и с задержкой после правок текста,
// чтобы серия нажатий давала одну запись.
type Autosaver struct {
	store  Store
	userID uuid.UUID
	delay  time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending func() (Snapshot, bool)
}

// NewAutosaver создает автосохранение для одного пользователя.
func NewAutosaver(store Store, userID uuid.UUID, delay time.Duration, logger *zap.Logger) *Autosaver {
	return &Autosaver{
		store:  store,
		userID: userID,
		delay:  delay,
		logger: logger.Named("Autosaver").With(zap.String("userID", userID.String())),
	}
}

// Schedule откладывает сохранение. Повторный вызов до срабатывания сдвигает таймер.
// snapshot вызывается в момент записи; false означает, что сохранять нечего.
func (a *Autosaver) Schedule(snapshot func() (Snapshot, bool)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = snapshot
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.fire)
}

// SaveNow отменяет отложенную запись и сохраняет снимок немедленно.
func (a *Autosaver) SaveNow(ctx context.Context, snap Snapshot) error {
	a.cancelPending()
	return a.store.Save(ctx, a.userID, snap)
}

// Flush немедленно выполняет отложенную запись, если она есть.
func (a *Autosaver) Flush(ctx context.Context) error {
	snapshot := a.cancelPending()
	if snapshot == nil {
		return nil
	}
	snap, ok := snapshot()
	if !ok {
		return nil
	}
	return a.store.Save(ctx, a.userID, snap)
}

// Stop отменяет отложенную запись без сохранения.
func (a *Autosaver) Stop() {
	a.cancelPending()
}

func (a *Autosaver) cancelPending() func() (Snapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	p := a.pending
	a.pending = nil
	return p
}

func (a *Autosaver) fire() {
	snapshot := a.cancelPending()
	if snapshot == nil {
		return
	}
	snap, ok := snapshot()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), backgroundSaveTimeout)
	defer cancel()
	if err := a.store.Save(ctx, a.userID, snap); err != nil {
		a.logger.Error("Debounced wizard save failed", zap.Error(err))
		return
	}
	a.logger.Debug("Debounced wizard save completed", zap.Int64("revision", snap.Revision))
}
