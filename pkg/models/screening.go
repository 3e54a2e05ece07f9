package models

import (
	"time"
)

// Match rule labels, in priority order. The first rule that applies to a
// record pair names the match.
const (
	MatchRuleAlteredNameExactDOB = "Altered name + Exact DOB"
	MatchRuleSameNameNearDOB     = "Same name + Near DOB"
	MatchRuleAlteredNameNearDOB  = "Altered name + Near DOB"

	// Only emitted when true-duplicate flagging is enabled. By default a pair
	// with the same name and same DOB is treated as the same registration,
	// not circumvention.
	MatchRuleSameNameSameDOB = "Same name + Same DOB"
)

// ScreeningRunStatus constants
const (
	ScreeningRunStatusPending   = "pending"
	ScreeningRunStatusCompleted = "completed"
	ScreeningRunStatusCommitted = "committed"
)

// ScreeningMatchStatus constants
const (
	ScreeningMatchStatusPending   = "pending"
	ScreeningMatchStatusConfirmed = "confirmed"
	ScreeningMatchStatusDismissed = "dismissed"
)

// ScreeningRun is one screening of an incoming batch against the register.
type ScreeningRun struct {
	ID            string `json:"id" db:"id"`
	TenantID      string `json:"tenant_id" db:"tenant_id"`
	SourceName    string `json:"source_name" db:"source_name"`
	Status        string `json:"status" db:"status"`
	RecordCount   int    `json:"record_count" db:"record_count"`
	RejectedCount int    `json:"rejected_count" db:"rejected_count"`
	// Rejected holds the rows ingest refused, stored with the run. Responses
	// surface them separately so the run body stays flat.
	Rejected       []RejectedRecord `json:"-" db:"-"`
	MatchCount     int              `json:"match_count" db:"match_count"`
	CommittedCount int              `json:"committed_count" db:"committed_count"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
	CommittedAt    *time.Time       `json:"committed_at,omitempty" db:"committed_at"`
}

// ScreeningMatch is a flagged pair between an incoming record and a register
// record at the same casino. Position preserves the order matches were found
// in so reports are reproducible.
type ScreeningMatch struct {
	ID               string     `json:"id" db:"id"`
	TenantID         string     `json:"tenant_id" db:"tenant_id"`
	ScreeningRunID   string     `json:"screening_run_id" db:"screening_run_id"`
	Position         int        `json:"position" db:"position"`
	Casino           string     `json:"casino" db:"casino"`
	MatchRule        string     `json:"match_rule" db:"match_rule"`
	NewPlayerID      string     `json:"new_player_id" db:"new_player_id"`
	NewFirstName     string     `json:"new_first_name" db:"new_first_name"`
	NewLastName      string     `json:"new_last_name" db:"new_last_name"`
	NewDOB           string     `json:"new_dob" db:"new_dob"`
	ExistingPlayerID string     `json:"existing_player_id" db:"existing_player_id"`
	ExistingFirst    string     `json:"existing_first_name" db:"existing_first_name"`
	ExistingLast     string     `json:"existing_last_name" db:"existing_last_name"`
	ExistingDOB      string     `json:"existing_dob" db:"existing_dob"`
	NameScore        int        `json:"name_score" db:"name_score"`
	Status           string     `json:"status" db:"status"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy       *string    `json:"resolved_by,omitempty" db:"resolved_by"`
}

// RejectedRecord is an input row that failed validation during ingest. It is
// reported back to the caller and excluded from screening.
type RejectedRecord struct {
	Line   int          `json:"line"`
	Reason string       `json:"reason"`
	Record PlayerRecord `json:"record"`
}

// CreateScreeningRequest starts a screening run over an inline batch of
// records. File uploads use the multipart form variant instead.
type CreateScreeningRequest struct {
	SourceName string         `json:"source_name"`
	Records    []PlayerRecord `json:"records" validate:"required,min=1,dive"`
}

// ScreeningRunResponse is the response for creating or fetching a run.
type ScreeningRunResponse struct {
	Run      ScreeningRun     `json:"run"`
	Rejected []RejectedRecord `json:"rejected,omitempty"`
}

// ScreeningRunListResponse is the response for listing a tenant's runs
type ScreeningRunListResponse struct {
	Items      []ScreeningRun `json:"items"`
	TotalCount int            `json:"total_count"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
}

// ScreeningMatchListResponse is the response for listing a run's matches
type ScreeningMatchListResponse struct {
	Items      []ScreeningMatch `json:"items"`
	TotalCount int              `json:"total_count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
}

// ResolveMatchRequest records an operator decision on a flagged match.
type ResolveMatchRequest struct {
	ResolvedBy string `json:"resolved_by" validate:"required"`
	Note       string `json:"note"`
}

// CommitScreeningResponse reports the outcome of committing a run's records
// to the register.
type CommitScreeningResponse struct {
	Run       ScreeningRun `json:"run"`
	Committed int          `json:"committed"`
	Skipped   int          `json:"skipped"`
}
