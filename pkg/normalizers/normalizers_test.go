package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "trims and lowercases",
			input:    "  John SMITH  ",
			expected: "john smith",
		},
		{
			name:     "already canonical",
			input:    "jane doe",
			expected: "jane doe",
		},
		{
			name:     "internal spacing preserved",
			input:    "Mary  Anne",
			expected: "mary  anne",
		},
		{
			name:     "punctuation preserved",
			input:    "O'Brien",
			expected: "o'brien",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			input:    "   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestNormalizeCasino(t *testing.T) {
	assert.Equal(t, "lucky star", NormalizeCasino(" Lucky Star "))
	assert.Equal(t, NormalizeCasino("LUCKY STAR"), NormalizeCasino("lucky star"))
	assert.Equal(t, "", NormalizeCasino("  "))
}

func TestApply(t *testing.T) {
	t.Run("known normalizer", func(t *testing.T) {
		assert.Equal(t, "abc", Apply(" ABC ", "nname"))
	})

	t.Run("unknown normalizer returns value unchanged", func(t *testing.T) {
		assert.Equal(t, " ABC ", Apply(" ABC ", "does-not-exist"))
	})
}

func TestApplyChain(t *testing.T) {
	assert.Equal(t, "abc", ApplyChain("  ABC", "trim", "lowercase"))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "07700900123", NormalizePhone("+0 7700 900-123"))
	assert.Equal(t, "", NormalizePhone("no digits"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail(" User@Example.COM "))
}
