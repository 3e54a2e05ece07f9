package matching

import (
	"context"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/dob"
	"github.com/Ramsey-B/thistle/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func record(playerID, first, last, dobStr, casino string) models.PlayerRecord {
	return models.PlayerRecord{
		PlayerID:  playerID,
		FirstName: first,
		LastName:  last,
		DOB:       dobStr,
		Casino:    casino,
	}
}

func TestClassify(t *testing.T) {
	engine := NewEngine(testLogger(), EngineConfig{})

	tests := []struct {
		name      string
		nameExact bool
		relation  dob.Relation
		rule      string
		matched   bool
	}{
		{
			name:      "altered name exact dob",
			nameExact: false,
			relation:  dob.Exact,
			rule:      models.MatchRuleAlteredNameExactDOB,
			matched:   true,
		},
		{
			name:      "same name near dob",
			nameExact: true,
			relation:  dob.Near,
			rule:      models.MatchRuleSameNameNearDOB,
			matched:   true,
		},
		{
			name:      "altered name near dob",
			nameExact: false,
			relation:  dob.Near,
			rule:      models.MatchRuleAlteredNameNearDOB,
			matched:   true,
		},
		{
			name:      "true duplicate does not match",
			nameExact: true,
			relation:  dob.Exact,
			matched:   false,
		},
		{
			name:      "same name unrelated dob",
			nameExact: true,
			relation:  dob.Unrelated,
			matched:   false,
		},
		{
			name:      "altered name unrelated dob",
			nameExact: false,
			relation:  dob.Unrelated,
			matched:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, matched := engine.Classify(tt.nameExact, tt.relation)
			assert.Equal(t, tt.matched, matched)
			assert.Equal(t, tt.rule, rule)
		})
	}
}

func TestClassifyTrueDuplicateFlagging(t *testing.T) {
	engine := NewEngine(testLogger(), EngineConfig{FlagTrueDuplicates: true})

	rule, matched := engine.Classify(true, dob.Exact)
	require.True(t, matched)
	assert.Equal(t, models.MatchRuleSameNameSameDOB, rule)

	// Flag only affects the exact pair, not the other rules
	rule, matched = engine.Classify(true, dob.Near)
	require.True(t, matched)
	assert.Equal(t, models.MatchRuleSameNameNearDOB, rule)
}

func TestScreen(t *testing.T) {
	engine := NewEngine(testLogger(), EngineConfig{})
	ctx := context.Background()

	t.Run("altered name exact dob", func(t *testing.T) {
		report := engine.Screen(ctx,
			[]models.PlayerRecord{record("n1", "Jon", "Smith", "1990-05-15", "Lucky Star")},
			[]models.PlayerRecord{record("e1", "John", "Smith", "1990-05-15", "Lucky Star")},
		)

		require.Equal(t, 1, report.Count())
		pair := report.Pairs[0]
		assert.Equal(t, models.MatchRuleAlteredNameExactDOB, pair.MatchRule)
		assert.Equal(t, "n1", pair.Incoming.PlayerID)
		assert.Equal(t, "e1", pair.Existing.PlayerID)
		assert.Equal(t, "Lucky Star", pair.Casino)
		assert.Less(t, pair.NameScore, 100)
	})

	t.Run("same name near dob across month boundary", func(t *testing.T) {
		report := engine.Screen(ctx,
			[]models.PlayerRecord{record("n1", "Jane", "Doe", "1990-06-01", "Lucky Star")},
			[]models.PlayerRecord{record("e1", "Jane", "Doe", "1990-05-31", "Lucky Star")},
		)

		require.Equal(t, 1, report.Count())
		assert.Equal(t, models.MatchRuleSameNameNearDOB, report.Pairs[0].MatchRule)
	})

	t.Run("altered name year slip", func(t *testing.T) {
		report := engine.Screen(ctx,
			[]models.PlayerRecord{record("n1", "Jane", "Does", "1989-07-04", "Lucky Star")},
			[]models.PlayerRecord{record("e1", "Jane", "Doe", "1990-07-04", "Lucky Star")},
		)

		require.Equal(t, 1, report.Count())
		assert.Equal(t, models.MatchRuleAlteredNameNearDOB, report.Pairs[0].MatchRule)
	})

	t.Run("month slip is near but two months is not", func(t *testing.T) {
		register := []models.PlayerRecord{record("e1", "Jane", "Doe", "1990-03-15", "Lucky Star")}

		report := engine.Screen(ctx,
			[]models.PlayerRecord{record("n1", "Jane", "Doe", "1990-04-15", "Lucky Star")}, register)
		require.Equal(t, 1, report.Count())

		report = engine.Screen(ctx,
			[]models.PlayerRecord{record("n2", "Jane", "Doe", "1990-05-15", "Lucky Star")}, register)
		assert.Equal(t, 0, report.Count())
	})

	t.Run("single edit in a long name is still an alteration", func(t *testing.T) {
		long := strings.Repeat("x", 150)
		report := engine.Screen(ctx,
			[]models.PlayerRecord{record("n1", "Jane", long[:149]+"y", "1990-05-15", "Lucky Star")},
			[]models.PlayerRecord{record("e1", "Jane", long, "1990-05-15", "Lucky Star")},
		)

		require.Equal(t, 1, report.Count())
		assert.Equal(t, models.MatchRuleAlteredNameExactDOB, report.Pairs[0].MatchRule)
	})

	t.Run("true duplicates are not flagged by default", func(t *testing.T) {
		report := engine.Screen(ctx,
			[]models.PlayerRecord{record("n1", "John", "Smith", "1990-05-15", "Lucky Star")},
			[]models.PlayerRecord{record("e1", "John", "Smith", "1990-05-15", "Lucky Star")},
		)

		assert.Equal(t, 0, report.Count())
	})

	t.Run("different casinos never compare", func(t *testing.T) {
		report := engine.Screen(ctx,
			[]models.PlayerRecord{record("n1", "Jon", "Smith", "1990-05-15", "Lucky Star")},
			[]models.PlayerRecord{record("e1", "John", "Smith", "1990-05-15", "Golden Palm")},
		)

		assert.Equal(t, 0, report.Count())
	})

	t.Run("casino comparison ignores case and whitespace", func(t *testing.T) {
		report := engine.Screen(ctx,
			[]models.PlayerRecord{record("n1", "Jon", "Smith", "1990-05-15", " LUCKY STAR ")},
			[]models.PlayerRecord{record("e1", "John", "Smith", "1990-05-15", "lucky star")},
		)

		assert.Equal(t, 1, report.Count())
	})

	t.Run("unparseable dob never matches", func(t *testing.T) {
		report := engine.Screen(ctx,
			[]models.PlayerRecord{record("n1", "Jon", "Smith", "not a date", "Lucky Star")},
			[]models.PlayerRecord{record("e1", "John", "Smith", "1990-05-15", "Lucky Star")},
		)

		assert.Equal(t, 0, report.Count())
	})

	t.Run("one incoming record can match multiple register records", func(t *testing.T) {
		report := engine.Screen(ctx,
			[]models.PlayerRecord{record("n1", "Jon", "Smith", "1990-05-15", "Lucky Star")},
			[]models.PlayerRecord{
				record("e1", "John", "Smith", "1990-05-15", "Lucky Star"),
				record("e2", "Johnny", "Smith", "1990-05-16", "Lucky Star"),
			},
		)

		require.Equal(t, 2, report.Count())
		assert.Equal(t, models.MatchRuleAlteredNameExactDOB, report.Pairs[0].MatchRule)
		assert.Equal(t, models.MatchRuleAlteredNameNearDOB, report.Pairs[1].MatchRule)
	})

	t.Run("report order follows input order", func(t *testing.T) {
		incoming := []models.PlayerRecord{
			record("n1", "Jon", "Smith", "1990-05-15", "Lucky Star"),
			record("n2", "Janet", "Doe", "1985-01-01", "Lucky Star"),
		}
		register := []models.PlayerRecord{
			record("e1", "John", "Smith", "1990-05-15", "Lucky Star"),
			record("e2", "Jane", "Doe", "1985-01-01", "Lucky Star"),
		}

		first := engine.Screen(ctx, incoming, register)
		second := engine.Screen(ctx, incoming, register)

		require.Equal(t, 2, first.Count())
		assert.Equal(t, "n1", first.Pairs[0].Incoming.PlayerID)
		assert.Equal(t, "n2", first.Pairs[1].Incoming.PlayerID)
		assert.Equal(t, first.Pairs, second.Pairs)
	})

	t.Run("empty register yields no matches", func(t *testing.T) {
		report := engine.Screen(ctx,
			[]models.PlayerRecord{record("n1", "Jon", "Smith", "1990-05-15", "Lucky Star")},
			nil,
		)

		assert.Equal(t, 0, report.Count())
	})

	t.Run("empty casino values block together", func(t *testing.T) {
		report := engine.Screen(ctx,
			[]models.PlayerRecord{record("n1", "Jon", "Smith", "1990-05-15", "")},
			[]models.PlayerRecord{record("e1", "John", "Smith", "1990-05-15", "  ")},
		)

		assert.Equal(t, 1, report.Count())
	})
}
