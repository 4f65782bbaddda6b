package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"nicepods-server/creation-service/internal/models"
	sharedModels "nicepods-server/shared/models"
	"nicepods-server/shared/utils"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxNarrativeOptions = 4

var (
	draftTemperature     = 0.7
	narrativeTemperature = 0.9
)

// Service строит промпты, вызывает модель и разбирает ее ответ.
// Реализует генератор черновиков и генератор вариантов повествования.
type Service struct {
	client   AIClient
	budget   *TokenBudget
	validate *validator.Validate
	logger   *zap.Logger
}

// NewService создает сервис генерации.
func NewService(client AIClient, budget *TokenBudget, logger *zap.Logger) *Service {
	return &Service{
		client:   client,
		budget:   budget,
		validate: validator.New(),
		logger:   logger.Named("GenerationService"),
	}
}

type draftResponse struct {
	Title   string                  `json:"title"`
	Script  string                  `json:"script"`
	Sources []models.ResearchSource `json:"sources"`
}

type narrativeResponse struct {
	Narratives []models.NarrativeOption `json:"narratives"`
}

// GenerateDraft генерирует заголовок, сценарий и список источников.
func (s *Service) GenerateDraft(ctx context.Context, in models.DraftInputs) (*models.DraftContent, error) {
	system, user := draftPrompts(in)
	raw, err := s.call(ctx, system, user, GenerationParams{Temperature: &draftTemperature})
	if err != nil {
		return nil, err
	}

	var resp draftResponse
	if err := decodeModelJSON(raw, &resp); err != nil {
		s.logger.Warn("Unparseable draft response", zap.String("response", utils.StringShort(raw, 200)), zap.Error(err))
		return nil, err
	}

	return &models.DraftContent{
		Title:   strings.TrimSpace(resp.Title),
		Script:  strings.TrimSpace(resp.Script),
		Sources: s.cleanSources(resp.Sources),
	}, nil
}

// GenerateNarrativeOptions предлагает варианты повествования, связывающие две темы.
// Пустой результат не считается ошибкой.
func (s *Service) GenerateNarrativeOptions(ctx context.Context, req models.NarrativeRequest) ([]models.NarrativeOption, error) {
	system, user := narrativePrompts(req)
	raw, err := s.call(ctx, system, user, GenerationParams{Temperature: &narrativeTemperature})
	if err != nil {
		return nil, err
	}

	var resp narrativeResponse
	if err := decodeModelJSON(raw, &resp); err != nil {
		// Модель иногда отвечает голым массивом.
		var list []models.NarrativeOption
		if errArr := decodeModelJSON(raw, &list); errArr != nil {
			s.logger.Warn("Unparseable narrative response", zap.String("response", utils.StringShort(raw, 200)), zap.Error(err))
			return nil, err
		}
		resp.Narratives = list
	}

	options := make([]models.NarrativeOption, 0, len(resp.Narratives))
	for _, opt := range resp.Narratives {
		opt.Title = strings.TrimSpace(opt.Title)
		opt.Thesis = strings.TrimSpace(opt.Thesis)
		if opt.Title == "" {
			continue
		}
		options = append(options, opt)
		if len(options) == maxNarrativeOptions {
			break
		}
	}
	return options, nil
}

func (s *Service) call(ctx context.Context, system, user string, params GenerationParams) (string, error) {
	userID := "anonymous"
	if id, ok := sharedModels.GetUserIDFromContext(ctx); ok {
		userID = id.String()
	}
	if s.budget != nil {
		user = s.budget.Fit(system, user)
	}
	text, _, err := s.client.GenerateText(ctx, userID, system, user, params)
	if err != nil {
		return "", err
	}
	return text, nil
}

// cleanSources отбрасывает источники, не прошедшие валидацию, остальные передает без изменений.
func (s *Service) cleanSources(in []models.ResearchSource) []models.ResearchSource {
	out := make([]models.ResearchSource, 0, len(in))
	for _, src := range in {
		if src.Origin == "" {
			src.Origin = models.OriginWeb
		}
		if err := s.validate.Struct(src); err != nil {
			droppedSourcesTotal.Inc()
			s.logger.Debug("Dropping invalid research source", zap.String("title", src.Title), zap.Error(err))
			continue
		}
		out = append(out, src)
	}
	return out
}

func decodeModelJSON(raw string, v interface{}) error {
	payload := utils.ExtractJSON(raw)
	if payload == "" {
		return fmt.Errorf("%w: response contains no JSON", ErrAIGenerationFailed)
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", ErrAIGenerationFailed, err)
	}
	return nil
}
