package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxAge - порог свежести сохраненного мастера.
const DefaultMaxAge = 24 * time.Hour

// Store хранит один снимок мастера на пользователя.
// Load возвращает nil без ошибки, если снимок отсутствует, поврежден или устарел.
type Store interface {
	Save(ctx context.Context, userID uuid.UUID, snap Snapshot) error
	Load(ctx context.Context, userID uuid.UUID) (*Snapshot, error)
	Discard(ctx context.Context, userID uuid.UUID) error
}
