package utils_test

import (
	"testing"

	"nicepods-server/shared/utils"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"fenced", "Вот ответ:\n```json\n{\"title\":\"x\"}\n```\nГотово", `{"title":"x"}`},
		{"fenced without tag", "```\n[1,2]\n```", `[1,2]`},
		{"surrounded by prose", `Sure! {"title":"y","script":"z"} Hope it helps`, `{"title":"y","script":"z"}`},
		{"array in prose", `options: [{"title":"a"}] end`, `[{"title":"a"}]`},
		{"nothing", "no json here", ""},
		{"broken", `{"title": "x"`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, utils.ExtractJSON(tt.raw))
		})
	}
}

func TestStringShort(t *testing.T) {
	assert.Equal(t, "abc", utils.StringShort("abc", 5))
	assert.Equal(t, "Прив...", utils.StringShort("Привет, мир", 7))
	assert.Equal(t, "...", utils.StringShort("abcdef", 2))
}
