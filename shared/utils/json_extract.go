package utils

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSON достает JSON-документ из ответа модели: сначала из блока ```json```,
// затем между первой открывающей и последней закрывающей скобкой.
// Возвращает пустую строку, если валидного JSON нет.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if json.Valid([]byte(raw)) {
		return raw
	}

	for _, m := range fencedBlockRegex.FindAllStringSubmatch(raw, -1) {
		if candidate := strings.TrimSpace(m[1]); json.Valid([]byte(candidate)) {
			return candidate
		}
	}

	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(raw, pair[0])
		end := strings.LastIndex(raw, pair[1])
		if start == -1 || end <= start {
			continue
		}
		if candidate := raw[start : end+1]; json.Valid([]byte(candidate)) {
			return candidate
		}
	}
	return ""
}

// StringShort обрезает строку до maxLen рун, добавляя многоточие.
func StringShort(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}
