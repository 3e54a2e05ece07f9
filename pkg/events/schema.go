package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of event
type EventType string

const (
	// Run lifecycle events
	EventTypeScreeningCompleted EventType = "screening.completed"
	EventTypeScreeningCommitted EventType = "screening.committed"

	// Match events
	EventTypeScreeningMatch         EventType = "screening.match"
	EventTypeScreeningMatchResolved EventType = "screening.match.resolved"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	TenantID      string    `json:"tenant_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// ScreeningCompletedEvent is emitted when a screening run finishes
type ScreeningCompletedEvent struct {
	BaseEvent
	RunID         string `json:"run_id"`
	SourceName    string `json:"source_name,omitempty"`
	RecordCount   int    `json:"record_count"`
	RejectedCount int    `json:"rejected_count"`
	MatchCount    int    `json:"match_count"`
}

// ScreeningCommittedEvent is emitted when a run's records are appended to the register
type ScreeningCommittedEvent struct {
	BaseEvent
	RunID          string `json:"run_id"`
	CommittedCount int    `json:"committed_count"`
	SkippedCount   int    `json:"skipped_count"`
}

// ScreeningMatchEvent is emitted for each pair a screening run flags
type ScreeningMatchEvent struct {
	BaseEvent
	RunID            string `json:"run_id"`
	MatchID          string `json:"match_id"`
	MatchRule        string `json:"match_rule"`
	Casino           string `json:"casino,omitempty"`
	NewPlayerID      string `json:"new_player_id"`
	ExistingPlayerID string `json:"existing_player_id"`
	NameScore        int    `json:"name_score"`
}

// ScreeningMatchResolvedEvent is emitted when an operator confirms or dismisses a flagged pair
type ScreeningMatchResolvedEvent struct {
	BaseEvent
	RunID            string `json:"run_id"`
	MatchID          string `json:"match_id"`
	Status           string `json:"status"`
	ResolvedBy       string `json:"resolved_by"`
	MatchRule        string `json:"match_rule"`
	NewPlayerID      string `json:"new_player_id"`
	ExistingPlayerID string `json:"existing_player_id"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType, tenantID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		TenantID:      tenantID,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
