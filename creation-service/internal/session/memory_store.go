package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore - хранилище в памяти процесса. Используется в тестах и при запуске без Redis.
// Снимки хранятся в сериализованном виде, чтобы Load проходил ту же проверку, что и RedisStore.
type MemoryStore struct {
	mu     sync.Mutex
	data   map[uuid.UUID][]byte
	maxAge time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewMemoryStore создает хранилище в памяти. now может быть nil.
func NewMemoryStore(maxAge time.Duration, now func() time.Time, logger *zap.Logger) *MemoryStore {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		data:   make(map[uuid.UUID][]byte),
		maxAge: maxAge,
		now:    now,
		logger: logger.Named("MemorySessionStore"),
	}
}

func (m *MemoryStore) Save(_ context.Context, userID uuid.UUID, snap Snapshot) error {
	raw, err := Encode(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.data[userID]; ok {
		if old, decErr := Decode(prev); decErr == nil && old.Revision > snap.Revision {
			m.logger.Warn("Overwriting newer wizard session revision",
				zap.String("userID", userID.String()),
				zap.Int64("storedRevision", old.Revision),
				zap.Int64("revision", snap.Revision),
			)
		}
	}
	m.data[userID] = raw
	return nil
}

func (m *MemoryStore) Load(_ context.Context, userID uuid.UUID) (*Snapshot, error) {
	m.mu.Lock()
	raw, ok := m.data[userID]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	snap, err := Decode(raw)
	if err != nil {
		m.logger.Warn("Stored wizard session is unusable, treating as absent", zap.String("userID", userID.String()), zap.Error(err))
		return nil, nil
	}
	if !snap.Fresh(m.now(), m.maxAge) {
		return nil, nil
	}
	return snap, nil
}

func (m *MemoryStore) Discard(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	delete(m.data, userID)
	m.mu.Unlock()
	return nil
}

// PutRaw кладет произвольные байты под ключ пользователя (для проверки поврежденных снимков).
func (m *MemoryStore) PutRaw(userID uuid.UUID, raw []byte) {
	m.mu.Lock()
	m.data[userID] = raw
	m.mu.Unlock()
}
