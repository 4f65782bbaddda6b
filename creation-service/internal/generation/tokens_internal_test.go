package generation

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTokenBudgetEstimate(t *testing.T) {
	b := &TokenBudget{max: 10}

	assert.Equal(t, 2, b.Count("abcdefgh"))
	assert.Equal(t, "abcdefgh", b.Truncate("abcdefghijkl", 2))
	assert.Equal(t, "short", b.Truncate("short", 0))

	// Системный промпт занимает 8 токенов, на ввод остается 2.
	system := string(make([]rune, 32))
	assert.Equal(t, "abcdefgh", b.Fit(system, "abcdefghijklmnop"))

	unlimited := &TokenBudget{}
	assert.Equal(t, "abcdefghijklmnop", unlimited.Fit(system, "abcdefghijklmnop"))
}

func TestDropBrokenRunes(t *testing.T) {
	word := "Привет"
	// Каждая кириллическая буква занимает два байта, срез на нечетном байте режет "р".
	cut := word[:3]
	assert.False(t, utf8.ValidString(cut))

	fixed := dropBrokenRunes(cut)
	assert.True(t, utf8.ValidString(fixed))
	assert.Equal(t, "П", fixed)

	assert.Equal(t, word, dropBrokenRunes(word))
	assert.Equal(t, "ok", dropBrokenRunes("ok\xff"))
}
