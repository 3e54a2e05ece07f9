package graph

import (
	"context"
	"strconv"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// LinkConfirmedIdentity records an operator-confirmed circumvention match as
// a SAME_PERSON_AS edge between the two player nodes. MERGE keeps repeated
// confirmations idempotent.
func (c *Client) LinkConfirmedIdentity(ctx context.Context, match *models.ScreeningMatch, confirmedBy string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Client.LinkConfirmedIdentity")
	defer span.End()

	cypher := `
		MERGE (a:Player {tenant_id: $tenant_id, player_id: $new_player_id})
		ON CREATE SET a.first_name = $new_first_name, a.last_name = $new_last_name, a.dob = $new_dob
		MERGE (b:Player {tenant_id: $tenant_id, player_id: $existing_player_id})
		ON CREATE SET b.first_name = $existing_first_name, b.last_name = $existing_last_name, b.dob = $existing_dob
		MERGE (a)-[r:SAME_PERSON_AS]->(b)
		SET r.match_rule = $match_rule,
			r.casino = $casino,
			r.screening_run_id = $screening_run_id,
			r.confirmed_by = $confirmed_by
	`

	params := map[string]any{
		"tenant_id":           match.TenantID,
		"new_player_id":       match.NewPlayerID,
		"new_first_name":      match.NewFirstName,
		"new_last_name":       match.NewLastName,
		"new_dob":             match.NewDOB,
		"existing_player_id":  match.ExistingPlayerID,
		"existing_first_name": match.ExistingFirst,
		"existing_last_name":  match.ExistingLast,
		"existing_dob":        match.ExistingDOB,
		"match_rule":          match.MatchRule,
		"casino":              match.Casino,
		"screening_run_id":    match.ScreeningRunID,
		"confirmed_by":        confirmedBy,
	}

	_, err := c.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, cypher, params)
		return nil, err
	})
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"match_id": match.ID,
		}).Error("Failed to link confirmed identity")
		return err
	}

	return nil
}

// LinkedIdentity is one player connected to another through confirmed matches.
type LinkedIdentity struct {
	PlayerID  string `json:"player_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DOB       string `json:"dob"`
	Depth     int    `json:"depth"`
}

// LinkedIdentities returns every player reachable from the given player
// through SAME_PERSON_AS edges, up to maxDepth hops. Operators use this to
// see the full cluster of identities behind one confirmed match.
func (c *Client) LinkedIdentities(ctx context.Context, tenantID, playerID string, maxDepth int) ([]LinkedIdentity, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Client.LinkedIdentities")
	defer span.End()

	if maxDepth < 1 || maxDepth > 10 {
		maxDepth = 5
	}

	cypher := `
		MATCH (a:Player {tenant_id: $tenant_id, player_id: $player_id})
		MATCH path = (a)-[:SAME_PERSON_AS*1..` + strconv.Itoa(maxDepth) + `]-(b:Player)
		WHERE b.tenant_id = $tenant_id AND b.player_id <> $player_id
		RETURN DISTINCT b.player_id AS player_id,
			b.first_name AS first_name,
			b.last_name AS last_name,
			b.dob AS dob,
			min(length(path)) AS depth
		ORDER BY depth, player_id
	`

	params := map[string]any{
		"tenant_id": tenantID,
		"player_id": playerID,
	}

	result, err := c.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}

		var linked []LinkedIdentity
		for res.Next(ctx) {
			rec := res.Record()
			linked = append(linked, LinkedIdentity{
				PlayerID:  stringValue(rec, "player_id"),
				FirstName: stringValue(rec, "first_name"),
				LastName:  stringValue(rec, "last_name"),
				DOB:       stringValue(rec, "dob"),
				Depth:     intValue(rec, "depth"),
			})
		}
		return linked, res.Err()
	})
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"player_id": playerID,
		}).Error("Failed to load linked identities")
		return nil, err
	}

	linked, _ := result.([]LinkedIdentity)
	return linked, nil
}

func stringValue(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func intValue(rec *neo4j.Record, key string) int {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	n, _ := v.(int64)
	return int(n)
}
