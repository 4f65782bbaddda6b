package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrAIGenerationFailed - ошибка при обращении к модели.
var ErrAIGenerationFailed = errors.New("ai text generation failed")

// ClientConfig - параметры подключения к провайдеру модели.
type ClientConfig struct {
	Type    string // openai | ollama
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GenerationParams - параметры сэмплирования. nil означает значение провайдера по умолчанию.
type GenerationParams struct {
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
}

// UsageInfo - расход токенов одного запроса.
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
}

// AIClient - интерфейс для текстовой модели.
type AIClient interface {
	GenerateText(ctx context.Context, userID, systemPrompt, userInput string, params GenerationParams) (string, UsageInfo, error)
	Model() string
}

// NewAIClient создает клиента выбранного провайдера.
func NewAIClient(cfg ClientConfig, logger *zap.Logger) (AIClient, error) {
	log := logger.Named("AIClient")
	switch strings.ToLower(cfg.Type) {
	case "openai":
		openaiConfig := openaigo.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			openaiConfig.BaseURL = cfg.BaseURL
		}
		openaiConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
		log.Info("OpenAI client created", zap.String("baseURL", cfg.BaseURL), zap.String("model", cfg.Model))
		return &openAIClient{
			client: openaigo.NewClientWithConfig(openaiConfig),
			model:  cfg.Model,
			logger: log,
		}, nil
	case "ollama":
		baseURL := strings.TrimSuffix(strings.TrimSuffix(cfg.BaseURL, "/"), "/v1")
		parsedURL, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama base url %q: %w", baseURL, err)
		}
		log.Info("Ollama client created", zap.String("baseURL", baseURL), zap.String("model", cfg.Model))
		return &ollamaClient{
			client: api.NewClient(parsedURL, &http.Client{Timeout: cfg.Timeout}),
			model:  cfg.Model,
			logger: log,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported AI client type: %q", cfg.Type)
	}
}

// --- OpenAI ---

type openAIClient struct {
	client *openaigo.Client
	model  string
	logger *zap.Logger
}

func (c *openAIClient) Model() string { return c.model }

func (c *openAIClient) GenerateText(ctx context.Context, userID, systemPrompt, userInput string, params GenerationParams) (string, UsageInfo, error) {
	var usage UsageInfo
	if strings.TrimSpace(systemPrompt) == "" {
		aiRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", usage, fmt.Errorf("%w: empty system prompt", ErrAIGenerationFailed)
	}

	messages := []openaigo.ChatCompletionMessage{{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt}}
	if userInput != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{Role: openaigo.ChatMessageRoleUser, Content: userInput})
	}

	req := openaigo.ChatCompletionRequest{Model: c.model, Messages: messages}
	if params.Temperature != nil {
		req.Temperature = float32(*params.Temperature)
	}
	if params.TopP != nil {
		req.TopP = float32(*params.TopP)
	}
	if params.MaxTokens != nil {
		req.MaxTokens = *params.MaxTokens
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)
	log := c.logger.With(zap.String("userID", userID), zap.Duration("duration", duration))

	if err != nil {
		log.Error("AI request failed", zap.Error(err))
		aiRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", usage, fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		log.Warn("AI returned empty response")
		aiRequestsTotal.WithLabelValues(c.model, "error_empty_response").Inc()
		return "", usage, fmt.Errorf("%w: empty response", ErrAIGenerationFailed)
	}

	usage = UsageInfo{PromptTokens: resp.Usage.PromptTokens, CompletionTokens: resp.Usage.CompletionTokens}
	observeSuccess(c.model, duration, usage)
	log.Debug("AI response received",
		zap.Int("chars", len(resp.Choices[0].Message.Content)),
		zap.Int("promptTokens", usage.PromptTokens),
		zap.Int("completionTokens", usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, usage, nil
}

// --- Ollama ---

type ollamaClient struct {
	client *api.Client
	model  string
	logger *zap.Logger
}

func (c *ollamaClient) Model() string { return c.model }

func (c *ollamaClient) GenerateText(ctx context.Context, userID, systemPrompt, userInput string, params GenerationParams) (string, UsageInfo, error) {
	var usage UsageInfo
	if strings.TrimSpace(systemPrompt) == "" {
		aiRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", usage, fmt.Errorf("%w: empty system prompt", ErrAIGenerationFailed)
	}

	messages := []api.Message{{Role: "system", Content: systemPrompt}}
	if userInput != "" {
		messages = append(messages, api.Message{Role: "user", Content: userInput})
	}

	options := map[string]interface{}{}
	if params.Temperature != nil {
		options["temperature"] = *params.Temperature
	}
	if params.TopP != nil {
		options["top_p"] = *params.TopP
	}
	if params.MaxTokens != nil {
		options["num_predict"] = *params.MaxTokens
	}
	stream := false

	start := time.Now()
	var resp api.ChatResponse
	err := c.client.Chat(ctx, &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(start)
	log := c.logger.With(zap.String("userID", userID), zap.Duration("duration", duration))

	if err != nil {
		log.Error("Ollama request failed", zap.Error(err))
		aiRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", usage, fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}
	if resp.Message.Content == "" {
		log.Warn("Ollama returned empty response")
		aiRequestsTotal.WithLabelValues(c.model, "error_empty_response").Inc()
		return "", usage, fmt.Errorf("%w: empty response", ErrAIGenerationFailed)
	}

	usage = UsageInfo{PromptTokens: resp.PromptEvalCount, CompletionTokens: resp.EvalCount}
	observeSuccess(c.model, duration, usage)
	return resp.Message.Content, usage, nil
}
