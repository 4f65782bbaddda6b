package generation

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

const fallbackEncoding = "cl100k_base"

// TokenBudget ограничивает размер пользовательского ввода в промпте.
type TokenBudget struct {
	max int
	enc *tiktoken.Tiktoken
}

// NewTokenBudget подбирает токенайзер под модель. Для моделей, неизвестных tiktoken
// (например, локальных в Ollama), используется cl100k_base. Если токенайзер недоступен,
// количество токенов оценивается по длине текста.
func NewTokenBudget(model string, max int, logger *zap.Logger) *TokenBudget {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
	}
	if err != nil {
		logger.Warn("Tokenizer unavailable, falling back to length estimate", zap.String("model", model), zap.Error(err))
		enc = nil
	}
	return &TokenBudget{max: max, enc: enc}
}

// Count возвращает число токенов в тексте.
func (b *TokenBudget) Count(text string) int {
	if b.enc == nil {
		return (len([]rune(text)) + 3) / 4
	}
	return len(b.enc.Encode(text, nil, nil))
}

// Truncate обрезает текст до limit токенов. limit <= 0 - без ограничения.
func (b *TokenBudget) Truncate(text string, limit int) string {
	if limit <= 0 || b.Count(text) <= limit {
		return text
	}
	if b.enc == nil {
		r := []rune(text)
		if n := limit * 4; n < len(r) {
			return string(r[:n])
		}
		return text
	}
	return dropBrokenRunes(b.enc.Decode(b.enc.Encode(text, nil, nil)[:limit]))
}

// dropBrokenRunes убирает байты руны, разрезанной границей токена.
// BPE режет кириллицу посреди символа, а в промпт должен уйти валидный UTF-8.
func dropBrokenRunes(s string) string {
	return strings.ToValidUTF8(s, "")
}

// Fit обрезает пользовательский ввод так, чтобы вместе с системным промптом он уложился в бюджет.
func (b *TokenBudget) Fit(systemPrompt, userInput string) string {
	if b.max <= 0 {
		return userInput
	}
	remaining := b.max - b.Count(systemPrompt)
	if remaining < 1 {
		remaining = 1
	}
	return b.Truncate(userInput, remaining)
}
