package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix       = "wizard_session:"
	maxSaveAttempts = 3
)

var _ Store = (*RedisStore)(nil)

// RedisStore хранит снимок под ключом wizard_session:{userID} с TTL, равным порогу свежести.
type RedisStore struct {
	client *redis.Client
	maxAge time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewRedisStore создает хранилище сессий мастера в Redis.
func NewRedisStore(client *redis.Client, maxAge time.Duration, logger *zap.Logger) *RedisStore {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &RedisStore{
		client: client,
		maxAge: maxAge,
		now:    time.Now,
		logger: logger.Named("RedisSessionStore"),
	}
}

func sessionKey(userID uuid.UUID) string {
	return keyPrefix + userID.String()
}

// Save записывает снимок (last write wins).
// Если в хранилище уже лежит более новая ревизия (другая вкладка), пишется предупреждение.
func (r *RedisStore) Save(ctx context.Context, userID uuid.UUID, snap Snapshot) error {
	key := sessionKey(userID)
	data, err := Encode(snap)
	if err != nil {
		return fmt.Errorf("failed to encode wizard session: %w", err)
	}
	log := r.logger.With(zap.String("userID", userID.String()), zap.Int64("revision", snap.Revision))

	txf := func(tx *redis.Tx) error {
		existing, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			if prev, decErr := Decode(existing); decErr == nil && prev.Revision > snap.Revision {
				log.Warn("Overwriting newer wizard session revision",
					zap.Int64("storedRevision", prev.Revision),
				)
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.maxAge)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		err = r.client.Watch(ctx, txf, key)
		if err == nil {
			log.Debug("Wizard session saved", zap.String("step", string(snap.CurrentStep)))
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
		log.Debug("Wizard session key changed during save, retrying", zap.Int("attempt", attempt))
	}
	log.Error("Failed to save wizard session to redis", zap.Error(err))
	return fmt.Errorf("failed to save wizard session: %w", err)
}

// Load возвращает снимок или nil, если он отсутствует, поврежден, другой версии или устарел.
func (r *RedisStore) Load(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
	key := sessionKey(userID)
	log := r.logger.With(zap.String("userID", userID.String()))

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		log.Error("Failed to load wizard session from redis", zap.Error(err))
		return nil, fmt.Errorf("failed to load wizard session: %w", err)
	}

	snap, err := Decode(raw)
	if err != nil {
		log.Warn("Stored wizard session is unusable, treating as absent", zap.Error(err))
		return nil, nil
	}
	if !snap.Fresh(r.now(), r.maxAge) {
		log.Info("Stored wizard session is stale, treating as absent", zap.Time("savedAt", snap.SavedAt))
		return nil, nil
	}
	return snap, nil
}

// Discard удаляет снимок безусловно.
func (r *RedisStore) Discard(ctx context.Context, userID uuid.UUID) error {
	if err := r.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		r.logger.Error("Failed to discard wizard session", zap.String("userID", userID.String()), zap.Error(err))
		return fmt.Errorf("failed to discard wizard session: %w", err)
	}
	return nil
}
