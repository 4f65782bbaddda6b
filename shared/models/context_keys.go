package models

import (
	"context"

	"github.com/google/uuid"
)

// contextKey - приватный тип для ключей контекста, чтобы избежать коллизий.
type contextKey string

const (
	// UserContextKey используется как ключ для хранения UserID в контексте запроса.
	UserContextKey contextKey = "userID"
	// CorrelationContextKey хранит correlation ID запроса (X-Request-ID).
	CorrelationContextKey contextKey = "correlationID"
)

// WithUserID возвращает контекст с установленным UserID.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserContextKey, userID)
}

// GetUserIDFromContext извлекает UserID из контекста.
// Возвращает uuid.Nil и false, если пользователь не аутентифицирован.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

// WithCorrelationID сохраняет correlation ID в контексте.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationContextKey, id)
}

// CorrelationIDFromContext возвращает correlation ID из контекста или генерирует новый.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationContextKey).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
