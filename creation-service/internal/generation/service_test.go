package generation_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"nicepods-server/creation-service/internal/generation"
	"nicepods-server/creation-service/internal/mocks"
	"nicepods-server/creation-service/internal/models"
	sharedModels "nicepods-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func learnInputs() models.DraftInputs {
	return models.DraftInputs{Intent: "learn", Topic: "Черные дыры", Duration: "5 min", Depth: "medium", DeepResearch: true}
}

func TestGenerateDraft(t *testing.T) {
	client := mocks.NewMockAIClient(t)
	svc := generation.NewService(client, nil, zap.NewNop())
	userID := uuid.New()
	ctx := sharedModels.WithUserID(context.Background(), userID)

	raw := "Конечно!\n```json\n" + `{
  "title": "  Горизонт событий ",
  "script": "Представьте себе...",
  "sources": [
    {"title": "NASA", "url": "https://nasa.example/bh", "origin": "web"},
    {"title": "Заметка", "url": "", "origin": "vault"},
    {"title": "Лекция", "url": "https://vault.example/1"}
  ]
}` + "\n```"

	client.On("GenerateText", mock.Anything, userID.String(),
		mock.MatchedBy(func(system string) bool { return strings.Contains(system, "Research thoroughly") }),
		mock.MatchedBy(func(user string) bool { return strings.Contains(user, "Topic: Черные дыры") }),
		mock.Anything,
	).Return(raw, generation.UsageInfo{PromptTokens: 120}, nil).Once()

	got, err := svc.GenerateDraft(ctx, learnInputs())
	require.NoError(t, err)
	assert.Equal(t, "Горизонт событий", got.Title)
	assert.Equal(t, "Представьте себе...", got.Script)
	require.Len(t, got.Sources, 2)
	assert.Equal(t, models.OriginWeb, got.Sources[1].Origin)
}

func TestGenerateDraftErrors(t *testing.T) {
	t.Run("client error", func(t *testing.T) {
		client := mocks.NewMockAIClient(t)
		svc := generation.NewService(client, nil, zap.NewNop())
		client.On("GenerateText", mock.Anything, "anonymous", mock.Anything, mock.Anything, mock.Anything).
			Return("", generation.UsageInfo{}, generation.ErrAIGenerationFailed).Once()

		_, err := svc.GenerateDraft(context.Background(), learnInputs())
		assert.ErrorIs(t, err, generation.ErrAIGenerationFailed)
	})

	t.Run("no json", func(t *testing.T) {
		client := mocks.NewMockAIClient(t)
		svc := generation.NewService(client, nil, zap.NewNop())
		client.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("I cannot help with that", generation.UsageInfo{}, nil).Once()

		_, err := svc.GenerateDraft(context.Background(), learnInputs())
		assert.True(t, errors.Is(err, generation.ErrAIGenerationFailed))
	})
}

func TestGenerateNarrativeOptions(t *testing.T) {
	req := models.NarrativeRequest{TopicA: "Джаз", TopicB: "Математика", Catalyst: "импровизация"}

	t.Run("object response is trimmed and capped", func(t *testing.T) {
		client := mocks.NewMockAIClient(t)
		svc := generation.NewService(client, nil, zap.NewNop())
		client.On("GenerateText", mock.Anything, mock.Anything, mock.Anything,
			mock.MatchedBy(func(user string) bool { return strings.Contains(user, "Catalyst: импровизация") }),
			mock.Anything,
		).Return(`{"narratives":[{"title":"Ритм","thesis":"a"},{"title":" ","thesis":"skip"},{"title":"2"},{"title":"3"},{"title":"4"},{"title":"5"}]}`,
			generation.UsageInfo{}, nil).Once()

		opts, err := svc.GenerateNarrativeOptions(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, opts, 4)
		assert.Equal(t, "Ритм", opts[0].Title)
	})

	t.Run("bare array", func(t *testing.T) {
		client := mocks.NewMockAIClient(t)
		svc := generation.NewService(client, nil, zap.NewNop())
		client.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(`Here: [{"title":"Один","thesis":"x"}]`, generation.UsageInfo{}, nil).Once()

		opts, err := svc.GenerateNarrativeOptions(context.Background(), req)
		require.NoError(t, err)
		assert.Len(t, opts, 1)
	})

	t.Run("empty list is not an error", func(t *testing.T) {
		client := mocks.NewMockAIClient(t)
		svc := generation.NewService(client, nil, zap.NewNop())
		client.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(`{"narratives":[]}`, generation.UsageInfo{}, nil).Once()

		opts, err := svc.GenerateNarrativeOptions(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, opts)
	})
}
