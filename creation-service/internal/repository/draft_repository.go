package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nicepods-server/creation-service/internal/draft"
	"nicepods-server/creation-service/internal/models"
	"nicepods-server/shared/interfaces"
	sharedModels "nicepods-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var (
	_ draft.Repository        = (*PgDraftRepository)(nil)
	_ draft.StaleDraftDeleter = (*PgDraftRepository)(nil)
)

const (
	insertDraftQuery = `
        INSERT INTO podcast_drafts (user_id, title, script_text, sources, creation_data)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	// creation_data не затирается при правке текста.
	updateDraftQuery = `
        UPDATE podcast_drafts
        SET title = $3, script_text = $4, sources = $5,
            creation_data = COALESCE($6, creation_data), updated_at = NOW()
        WHERE id = $1 AND user_id = $2`

	getDraftQuery = `
        SELECT id, user_id, title, script_text, sources, creation_data, created_at, updated_at
        FROM podcast_drafts
        WHERE id = $1 AND user_id = $2`

	deleteDraftQuery      = `DELETE FROM podcast_drafts WHERE id = $1 AND user_id = $2`
	deleteStaleDraftQuery = `DELETE FROM podcast_drafts WHERE updated_at < $1`
)

// PgDraftRepository хранит приватные черновики в PostgreSQL.
type PgDraftRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgDraftRepository создает репозиторий черновиков.
func NewPgDraftRepository(db interfaces.DBTX, logger *zap.Logger) *PgDraftRepository {
	return &PgDraftRepository{db: db, logger: logger.Named("PgDraftRepo")}
}

// CreateDraft вставляет черновик и заполняет rec.ID и временные метки.
func (r *PgDraftRepository) CreateDraft(ctx context.Context, rec *models.DraftRecord) error {
	sources := rec.Sources
	if sources == nil {
		sources = []models.ResearchSource{}
	}
	err := r.db.QueryRow(ctx, insertDraftQuery,
		rec.UserID, rec.Title, rec.Script, sources, nullableJSON(rec.Inputs),
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create draft", zap.String("userID", rec.UserID.String()), zap.Error(err))
		return fmt.Errorf("failed to create draft: %w", err)
	}
	r.logger.Debug("Draft created", zap.String("draftID", rec.ID.String()), zap.String("userID", rec.UserID.String()))
	return nil
}

// UpdateDraft обновляет текст черновика. Пустой rec.Inputs сохраняет прежние входные данные.
func (r *PgDraftRepository) UpdateDraft(ctx context.Context, rec *models.DraftRecord) error {
	sources := rec.Sources
	if sources == nil {
		sources = []models.ResearchSource{}
	}
	tag, err := r.db.Exec(ctx, updateDraftQuery,
		rec.ID, rec.UserID, rec.Title, rec.Script, sources, nullableJSON(rec.Inputs),
	)
	if err != nil {
		r.logger.Error("Failed to update draft", zap.String("draftID", rec.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to update draft %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return sharedModels.ErrDraftNotFound
	}
	return nil
}

// GetDraft возвращает черновик пользователя.
func (r *PgDraftRepository) GetDraft(ctx context.Context, userID, draftID uuid.UUID) (*models.DraftRecord, error) {
	var rec models.DraftRecord
	if err := pgxscan.Get(ctx, r.db, &rec, getDraftQuery, draftID, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sharedModels.ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to get draft %s: %w", draftID, err)
	}
	return &rec, nil
}

// DeleteDraft удаляет черновик. Отсутствие записи не считается ошибкой.
func (r *PgDraftRepository) DeleteDraft(ctx context.Context, userID, draftID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, deleteDraftQuery, draftID, userID)
	if err != nil {
		r.logger.Error("Failed to delete draft", zap.String("draftID", draftID.String()), zap.Error(err))
		return fmt.Errorf("failed to delete draft %s: %w", draftID, err)
	}
	r.logger.Debug("Draft deleted", zap.String("draftID", draftID.String()), zap.Int64("rows", tag.RowsAffected()))
	return nil
}

// DeleteDraftsOlderThan удаляет черновики, не обновлявшиеся с cutoff.
func (r *PgDraftRepository) DeleteDraftsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, deleteStaleDraftQuery, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete drafts older than %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

// nullableJSON превращает пустой срез в NULL, чтобы сработал COALESCE.
func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
