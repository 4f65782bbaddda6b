package handler

import (
	"context"
	"errors"
	"net/http"

	"nicepods-server/creation-service/internal/flow"
	"nicepods-server/creation-service/internal/models"
	"nicepods-server/creation-service/internal/wizard"
	sharedMiddleware "nicepods-server/shared/middleware"
	sharedModels "nicepods-server/shared/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// APIError представляет стандартизированный ответ об ошибке.
type APIError struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// WizardRegistry выдает мастер пользователя.
type WizardRegistry interface {
	For(userID uuid.UUID) *wizard.Wizard
}

// CollectionCreator создает коллекции опубликованных подкастов.
type CollectionCreator interface {
	CreateCollection(ctx context.Context, header models.CollectionHeader, podIDs []int64) sharedModels.ActionResult
}

// CreationHandler обрабатывает HTTP запросы мастера создания и коллекций.
type CreationHandler struct {
	wizards     WizardRegistry
	collections CollectionCreator
	verifier    sharedMiddleware.TokenVerifier
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewCreationHandler создает новый CreationHandler.
func NewCreationHandler(wizards WizardRegistry, collections CollectionCreator, verifier sharedMiddleware.TokenVerifier, logger *zap.Logger) *CreationHandler {
	return &CreationHandler{
		wizards:     wizards,
		collections: collections,
		verifier:    verifier,
		validate:    validator.New(),
		logger:      logger.Named("CreationHandler"),
	}
}

// RegisterRoutes регистрирует маршруты сервиса.
func (h *CreationHandler) RegisterRoutes(r gin.IRouter) {
	authMiddleware := sharedMiddleware.GinAuth(h.verifier, h.logger)

	// Браузерный WebSocket не умеет передавать заголовки, токен приходит в query.
	r.GET("/wizard/progress/ws", h.streamProgress)

	wizardGroup := r.Group("/wizard", authMiddleware)
	{
		wizardGroup.GET("", h.getWizard)
		wizardGroup.DELETE("", h.resetWizard)

		wizardGroup.GET("/recovery", h.probeRecovery)
		wizardGroup.POST("/recovery/resume", h.resumeRecovery)
		wizardGroup.POST("/recovery/discard", h.discardRecovery)

		wizardGroup.POST("/intent", h.selectIntent)
		wizardGroup.PATCH("/fields", h.setFields)
		wizardGroup.POST("/advance", h.advance)
		wizardGroup.POST("/back", h.goBack)
		wizardGroup.POST("/jump", h.jump)

		wizardGroup.GET("/progress", h.getProgress)

		wizardGroup.PUT("/draft", h.editDraft)
		wizardGroup.GET("/draft/preview", h.previewDraft)
		wizardGroup.POST("/submit", h.submit)
	}

	r.POST("/collections", authMiddleware, h.createCollection)
}

// --- Вспомогательные функции --- //

// getUserID извлекает userID, положенный GinAuth. При отсутствии прерывает запрос.
func getUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := sharedModels.GetUserIDFromContext(c.Request.Context())
	if !ok || userID == uuid.Nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{Message: "Unauthorized"})
		return uuid.Nil, false
	}
	return userID, true
}

func (h *CreationHandler) wizardFor(c *gin.Context) (*wizard.Wizard, bool) {
	userID, ok := getUserID(c)
	if !ok {
		return nil, false
	}
	return h.wizards.For(userID), true
}

func handleServiceError(c *gin.Context, err error, logger *zap.Logger) {
	var statusCode int
	apiErr := APIError{Message: err.Error()}

	var validationErrs flow.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		statusCode = http.StatusUnprocessableEntity
		apiErr = APIError{Message: "Step is incomplete", Fields: make(map[string]string, len(validationErrs))}
		for field, msg := range validationErrs {
			apiErr.Fields[string(field)] = msg
		}
	case errors.Is(err, sharedModels.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		apiErr = APIError{Message: "Unauthorized"}
	case errors.Is(err, sharedModels.ErrNoPendingSession), errors.Is(err, sharedModels.ErrDraftNotFound), errors.Is(err, sharedModels.ErrNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, sharedModels.ErrGenerationInProgress), errors.Is(err, sharedModels.ErrInvalidDraftState):
		statusCode = http.StatusConflict
	case errors.Is(err, sharedModels.ErrStepUnavailable), errors.Is(err, sharedModels.ErrIntentNotSelected):
		statusCode = http.StatusConflict
	case errors.Is(err, sharedModels.ErrBadRequest), errors.Is(err, sharedModels.ErrInvalidInput), errors.Is(err, sharedModels.ErrEmptyCollection):
		statusCode = http.StatusBadRequest
	default:
		statusCode = http.StatusInternalServerError
		apiErr = APIError{Message: "Internal server error"}
	}

	if statusCode >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("path", c.Request.URL.Path),
			zap.String("correlationID", sharedModels.CorrelationIDFromContext(c.Request.Context())), zap.Error(err))
	} else {
		logger.Debug("Request rejected", zap.Int("status", statusCode), zap.Error(err))
	}
	c.AbortWithStatusJSON(statusCode, apiErr)
}

// writeActionResult отдает ActionResult: неуспех граничной операции - 422 с тем же телом.
func writeActionResult(c *gin.Context, result sharedModels.ActionResult, successStatus int) {
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(successStatus, result)
}
