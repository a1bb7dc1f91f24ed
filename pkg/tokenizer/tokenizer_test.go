package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 1, CountTokens(""))
	assert.Equal(t, 1, CountTokens("hello"))
	assert.Equal(t, 4, CountTokens("one two three"))
	assert.Equal(t, 8, CountTokens("one two three four five six"))
}

func TestCountTokensIgnoresExtraWhitespace(t *testing.T) {
	assert.Equal(t, CountTokens("a b c"), CountTokens("  a\t b \n c  "))
}

func TestCountTokensScalesWithLength(t *testing.T) {
	short := CountTokens(strings.Repeat("word ", 10))
	long := CountTokens(strings.Repeat("word ", 100))
	assert.Greater(t, long, short)
}
