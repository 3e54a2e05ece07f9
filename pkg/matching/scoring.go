package matching

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/Ramsey-B/thistle/pkg/normalizers"
)

// Scorer compares player name fields. Scores are integer percentages so 100
// means identical after normalization and anything below 100 counts as an
// alteration.
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Ratio returns a 0-100 similarity score between two raw name values. Both
// sides are normalized before comparison. Two empty values score 100.
func (s *Scorer) Ratio(a, b string) int {
	a = normalizers.NormalizeName(a)
	b = normalizers.NormalizeName(b)

	if a == b {
		return 100
	}

	maxLen := utf8.RuneCountInString(a)
	if l := utf8.RuneCountInString(b); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 100
	}

	// Penalty rounds up so distinct values always score below 100, no matter
	// how long the strings are.
	distance := levenshtein.ComputeDistance(a, b)
	score := 100 - (100*distance+maxLen-1)/maxLen
	if score < 0 {
		score = 0
	}
	return score
}

// NameComparison is the result of comparing both name fields of a record pair.
type NameComparison struct {
	FirstScore int
	LastScore  int
	// Exact means both fields are identical after normalization.
	Exact bool
	// Altered means at least one field differs after normalization.
	Altered bool
}

// CompareNames scores first and last name between two records. Exact and
// Altered are mutually exclusive for any pair.
func (s *Scorer) CompareNames(firstA, lastA, firstB, lastB string) NameComparison {
	fn := s.Ratio(firstA, firstB)
	ln := s.Ratio(lastA, lastB)

	exact := fn == 100 && ln == 100
	return NameComparison{
		FirstScore: fn,
		LastScore:  ln,
		Exact:      exact,
		Altered:    !exact,
	}
}

// CombinedScore folds the two field scores into one number for reporting.
// The weaker field dominates since that is where the alteration lives.
func (c NameComparison) CombinedScore() int {
	if c.FirstScore < c.LastScore {
		return c.FirstScore
	}
	return c.LastScore
}
