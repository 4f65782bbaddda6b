package promotion

import (
	"context"
	"errors"
	"fmt"

	"nicepods-server/creation-service/internal/models"
	sharedModels "nicepods-server/shared/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Сообщения для пользователя. Текст ошибок хранилища наружу не попадает.
const (
	msgAuthRequired       = "authentication required"
	msgCollectionInvalid  = "collection details are invalid"
	msgCollectionEmpty    = "add at least one podcast to the collection"
	msgCollectionFailed   = "could not create the collection, please try again"
	msgCollectionCreated  = "collection created"
	msgPromotionInvalid   = "podcast details are incomplete"
	msgPromotionFailed    = "could not publish the podcast, please try again"
	msgPromotionSucceeded = "podcast submitted for production"
)

// CollectionStore - операции хранилища для коллекций.
type CollectionStore interface {
	InsertCollection(ctx context.Context, ownerID uuid.UUID, header models.CollectionHeader) (uuid.UUID, error)
	InsertCollectionItems(ctx context.Context, collectionID uuid.UUID, podIDs []int64) error
	DeleteCollection(ctx context.Context, collectionID uuid.UUID) error
}

// ProductionStore - атомарная процедура переноса черновика в production.
type ProductionStore interface {
	PromoteDraft(ctx context.Context, req models.PromotionRequest) (*models.PromotionOutcome, error)
}

// CacheInvalidator - сигнал об устаревших представлениях.
type CacheInvalidator interface {
	PublishCacheInvalidation(ctx context.Context, payload models.CacheInvalidationPayload) error
}

// ProductionTaskPublisher ставит задачу фонового производства.
type ProductionTaskPublisher interface {
	PublishProductionTask(ctx context.Context, payload models.ProductionTaskPayload) error
}

// Coordinator выполняет двухфазные передачи с компенсацией.
type Coordinator struct {
	collections CollectionStore
	production  ProductionStore
	invalidator CacheInvalidator
	tasks       ProductionTaskPublisher
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewCoordinator создает координатор.
func NewCoordinator(
	collections CollectionStore,
	production ProductionStore,
	invalidator CacheInvalidator,
	tasks ProductionTaskPublisher,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		collections: collections,
		production:  production,
		invalidator: invalidator,
		tasks:       tasks,
		validate:    validator.New(),
		logger:      logger.Named("PromotionCoordinator"),
	}
}

// StaleViews - представления, которые надо обновить после публикации пользователем.
func StaleViews(userID uuid.UUID) []string {
	return []string{
		"/profile/" + userID.String(),
		"/dashboard",
		"/podcasts",
	}
}

// CreateCollection создает коллекцию с элементами.
// Коллекция без элементов в хранилище не остается: при сбое второй фазы заголовок удаляется.
func (c *Coordinator) CreateCollection(ctx context.Context, header models.CollectionHeader, podIDs []int64) sharedModels.ActionResult {
	userID, ok := sharedModels.GetUserIDFromContext(ctx)
	if !ok {
		return sharedModels.Failed(msgAuthRequired)
	}
	correlationID := sharedModels.CorrelationIDFromContext(ctx)
	log := c.logger.With(zap.String("userID", userID.String()), zap.String("correlationID", correlationID))

	// Проверка всего payload до любой записи.
	if err := c.validate.Struct(header); err != nil {
		log.Debug("Collection header rejected", zap.Error(err))
		return sharedModels.Failed(msgCollectionInvalid)
	}
	if len(podIDs) == 0 {
		return sharedModels.Failed(msgCollectionEmpty)
	}

	// Фаза 1: заголовок.
	collectionID, err := c.collections.InsertCollection(ctx, userID, header)
	if err != nil {
		log.Error("Failed to insert collection header", zap.Error(err))
		promotionsTotal.WithLabelValues("collection", "error").Inc()
		return sharedModels.Failed(msgCollectionFailed)
	}
	log = log.With(zap.String("collectionID", collectionID.String()))

	// Фаза 2: элементы. Начинается только после подтвержденного ID.
	if err := c.collections.InsertCollectionItems(ctx, collectionID, podIDs); err != nil {
		log.Error("Failed to attach collection items, compensating", zap.Error(err), zap.Int("items", len(podIDs)))
		compensationsTotal.WithLabelValues("attempted").Inc()
		if delErr := c.collections.DeleteCollection(context.WithoutCancel(ctx), collectionID); delErr != nil {
			compensationsTotal.WithLabelValues("failed").Inc()
			log.Error("Compensation failed: collection header left without items", zap.Error(delErr))
		}
		promotionsTotal.WithLabelValues("collection", "error").Inc()
		return sharedModels.Failed(msgCollectionFailed)
	}

	c.invalidate(ctx, userID, correlationID, "collection_created")
	promotionsTotal.WithLabelValues("collection", "success").Inc()
	log.Info("Collection created", zap.Int("items", len(podIDs)))
	return sharedModels.Succeeded(msgCollectionCreated, map[string]interface{}{
		"collection_id": collectionID,
	})
}

// PromoteDraft передает черновик атомарной процедуре хранилища и обрабатывает ее результат.
// При неудаче черновик не трогается, чтобы пользователь мог повторить.
func (c *Coordinator) PromoteDraft(ctx context.Context, req models.PromotionRequest) sharedModels.ActionResult {
	userID, ok := sharedModels.GetUserIDFromContext(ctx)
	if !ok {
		return sharedModels.Failed(msgAuthRequired)
	}
	req.UserID = userID
	correlationID := sharedModels.CorrelationIDFromContext(ctx)
	log := c.logger.With(
		zap.String("userID", userID.String()),
		zap.String("draftID", req.DraftID.String()),
		zap.String("correlationID", correlationID),
	)

	if err := c.validate.Struct(req); err != nil {
		log.Debug("Promotion request rejected", zap.Error(err))
		return sharedModels.Failed(msgPromotionInvalid)
	}

	outcome, err := c.production.PromoteDraft(ctx, req)
	if err == nil && outcome == nil {
		err = errors.New("promotion procedure returned no result")
	}
	if err != nil {
		log.Error("Draft promotion call failed", zap.Error(err))
		promotionsTotal.WithLabelValues("draft", "error").Inc()
		return sharedModels.Failed(msgPromotionFailed)
	}
	if !outcome.Success || outcome.NewRecordID == nil {
		log.Warn("Draft promotion rejected by store", zap.String("storeMessage", outcome.Message))
		promotionsTotal.WithLabelValues("draft", "rejected").Inc()
		return sharedModels.Failed(msgPromotionFailed)
	}

	podID := *outcome.NewRecordID
	log = log.With(zap.Int64("podID", podID))

	c.invalidate(ctx, userID, correlationID, "draft_promoted")

	task := models.ProductionTaskPayload{
		TaskID:      uuid.NewString(),
		UserID:      userID.String(),
		PodID:       podID,
		VoiceGender: req.VoiceGender,
		VoiceStyle:  req.VoiceStyle,
		VoicePace:   req.VoicePace,
		ForceAudio:  req.ForceAudio,
	}
	if err := c.tasks.PublishProductionTask(ctx, task); err != nil {
		// Запись уже в каталоге, задачу переотправит фоновый процесс хранилища.
		log.Error("Failed to publish production task", zap.String("taskID", task.TaskID), zap.Error(err))
	}

	promotionsTotal.WithLabelValues("draft", "success").Inc()
	log.Info("Draft promoted to production")
	return sharedModels.Succeeded(msgPromotionSucceeded, map[string]interface{}{
		"pod_id": podID,
	})
}

func (c *Coordinator) invalidate(ctx context.Context, userID uuid.UUID, correlationID, reason string) {
	payload := models.CacheInvalidationPayload{
		Paths:         StaleViews(userID),
		Reason:        reason,
		UserID:        userID.String(),
		CorrelationID: correlationID,
	}
	if err := c.invalidator.PublishCacheInvalidation(context.WithoutCancel(ctx), payload); err != nil {
		c.logger.Warn("Cache invalidation signal failed",
			zap.String("correlationID", correlationID),
			zap.Strings("paths", payload.Paths),
			zap.Error(fmt.Errorf("invalidate %s: %w", reason, err)),
		)
	}
}
