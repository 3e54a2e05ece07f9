package matching

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		{
			name: "identical",
			a:    "smith", b: "smith",
			expected: 100,
		},
		{
			name: "identical after normalization",
			a:    "  SMITH ", b: "smith",
			expected: 100,
		},
		{
			name: "both empty",
			a:    "", b: "",
			expected: 100,
		},
		{
			name: "one empty",
			a:    "smith", b: "",
			expected: 0,
		},
		{
			name: "single substitution",
			a:    "smith", b: "smyth",
			expected: 80,
		},
		{
			name: "completely different",
			a:    "anna", b: "zzzz",
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, scorer.Ratio(tt.a, tt.b))
		})
	}
}

func TestRatioRange(t *testing.T) {
	scorer := NewScorer()
	pairs := [][2]string{
		{"john", "jon"},
		{"elizabeth", "liz"},
		{"a", "abcdefghij"},
		{"o'brien", "obrien"},
		// A single edit in a name longer than 100 runes must still register.
		{strings.Repeat("a", 150), strings.Repeat("a", 149) + "b"},
	}
	for _, p := range pairs {
		score := scorer.Ratio(p[0], p[1])
		assert.GreaterOrEqual(t, score, 0)
		assert.Less(t, score, 100, "distinct values must score below 100: %q vs %q", p[0], p[1])
	}
}

func TestCompareNames(t *testing.T) {
	scorer := NewScorer()

	t.Run("exact when both fields identical", func(t *testing.T) {
		c := scorer.CompareNames("John", "Smith", "john", "SMITH")
		assert.True(t, c.Exact)
		assert.False(t, c.Altered)
		assert.Equal(t, 100, c.CombinedScore())
	})

	t.Run("altered when one field differs", func(t *testing.T) {
		c := scorer.CompareNames("John", "Smith", "John", "Smyth")
		assert.False(t, c.Exact)
		assert.True(t, c.Altered)
		assert.Equal(t, 100, c.FirstScore)
		assert.Equal(t, 80, c.LastScore)
	})

	t.Run("combined score takes the weaker field", func(t *testing.T) {
		c := scorer.CompareNames("John", "Smith", "Jon", "Smith")
		assert.Equal(t, c.FirstScore, c.CombinedScore())
	})

	t.Run("exact and altered are mutually exclusive", func(t *testing.T) {
		c := scorer.CompareNames("a", "b", "a", "b")
		assert.NotEqual(t, c.Exact, c.Altered)
	})
}
