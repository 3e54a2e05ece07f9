// Package matching implements the identity circumvention screening engine.
package matching

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/dob"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/normalizers"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// EngineConfig contains configuration for the screening engine
type EngineConfig struct {
	// FlagTrueDuplicates reports pairs with the same name and same DOB. Off by
	// default: an identical pair is a duplicate registration, not someone
	// working around an exclusion.
	FlagTrueDuplicates bool
}

// Engine classifies incoming player records against a register of existing
// records. It is pure in-memory logic; persistence lives in the service.
type Engine struct {
	logger ectologger.Logger
	scorer *Scorer
	config EngineConfig
}

// NewEngine creates a new screening engine
func NewEngine(logger ectologger.Logger, config EngineConfig) *Engine {
	return &Engine{
		logger: logger,
		scorer: NewScorer(),
		config: config,
	}
}

// Pair is one flagged incoming/existing record pair.
type Pair struct {
	Incoming  models.PlayerRecord
	Existing  models.PlayerRecord
	Casino    string
	MatchRule string
	NameScore int
}

// Report is the ordered outcome of screening a batch. Pairs appear in input
// order: by incoming record first, then by register record within it, so the
// same inputs always produce the same report.
type Report struct {
	Pairs []Pair
}

// Count returns the number of flagged pairs.
func (r *Report) Count() int {
	return len(r.Pairs)
}

// Screen compares every incoming record against every register record at the
// same casino and reports the pairs that look like circumvention attempts.
// One incoming record can be flagged against multiple register records.
func (e *Engine) Screen(ctx context.Context, incoming []models.PlayerRecord, register []models.PlayerRecord) *Report {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.Screen")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"incoming_count": len(incoming),
		"register_count": len(register),
	})
	log.Debug("Screening batch against register")

	// Group the register by normalized casino. Records never compare across
	// casinos, so this bounds the pairwise work to each casino's population.
	blocks := make(map[string][]models.PlayerRecord)
	for _, rec := range register {
		key := normalizers.NormalizeCasino(rec.Casino)
		blocks[key] = append(blocks[key], rec)
	}

	report := &Report{}
	for _, n := range incoming {
		key := normalizers.NormalizeCasino(n.Casino)
		newDOB := dob.Parse(n.DOB)

		for _, existing := range blocks[key] {
			names := e.scorer.CompareNames(n.FirstName, n.LastName, existing.FirstName, existing.LastName)
			relation := dob.Compare(newDOB, dob.Parse(existing.DOB))

			rule, matched := e.Classify(names.Exact, relation)
			if !matched {
				continue
			}

			report.Pairs = append(report.Pairs, Pair{
				Incoming:  n,
				Existing:  existing,
				Casino:    n.Casino,
				MatchRule: rule,
				NameScore: names.CombinedScore(),
			})
		}
	}

	log.WithFields(map[string]any{"match_count": report.Count()}).Debug("Screening complete")
	return report
}

// Classify applies the screening rules in priority order and returns the
// label of the first rule that fires. The second return is false when the
// pair is not suspicious.
//
// A near DOB includes an exact DOB; altered-name pairs with the exact date
// are still caught by the first rule, which outranks it.
func (e *Engine) Classify(nameExact bool, relation dob.Relation) (string, bool) {
	nameAltered := !nameExact
	dobExact := relation == dob.Exact
	dobNear := relation == dob.Exact || relation == dob.Near

	// Same name, same DOB is the same registration twice, not circumvention.
	if nameExact && dobExact {
		if e.config.FlagTrueDuplicates {
			return models.MatchRuleSameNameSameDOB, true
		}
		return "", false
	}

	switch {
	case nameAltered && dobExact:
		return models.MatchRuleAlteredNameExactDOB, true
	case nameExact && dobNear:
		return models.MatchRuleSameNameNearDOB, true
	case nameAltered && dobNear:
		return models.MatchRuleAlteredNameNearDOB, true
	}

	return "", false
}
