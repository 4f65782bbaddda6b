package repository

import (
	"context"
	"fmt"

	"nicepods-server/creation-service/internal/models"
	"nicepods-server/creation-service/internal/promotion"
	"nicepods-server/shared/interfaces"

	"github.com/georgysavva/scany/v2/pgxscan"
	"go.uber.org/zap"
)

var _ promotion.ProductionStore = (*PgProductionRepository)(nil)

const promoteDraftQuery = `
    SELECT success, message, new_record_id
    FROM promote_draft_to_production($1, $2, $3, $4, $5::jsonb, $6, $7, $8)`

// PgProductionRepository вызывает атомарную процедуру переноса черновика.
type PgProductionRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgProductionRepository создает репозиторий production-записей.
func NewPgProductionRepository(db interfaces.DBTX, logger *zap.Logger) *PgProductionRepository {
	return &PgProductionRepository{db: db, logger: logger.Named("PgProductionRepo")}
}

// PromoteDraft возвращает структурированный результат процедуры. Ошибка - только сбой вызова.
func (r *PgProductionRepository) PromoteDraft(ctx context.Context, req models.PromotionRequest) (*models.PromotionOutcome, error) {
	sources := req.Sources
	if sources == nil {
		sources = []models.ResearchSource{}
	}
	var outcome models.PromotionOutcome
	err := pgxscan.Get(ctx, r.db, &outcome, promoteDraftQuery,
		req.DraftID, req.UserID, req.Title, req.Script, sources,
		req.VoiceGender, req.VoiceStyle, req.VoicePace,
	)
	if err != nil {
		r.logger.Error("promote_draft_to_production call failed", zap.String("draftID", req.DraftID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to promote draft %s: %w", req.DraftID, err)
	}
	return &outcome, nil
}
