// Package events handles event emission for screening lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/kafka"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes screening lifecycle events
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitScreeningCompleted emits an event when a screening run finishes
func (e *Emitter) EmitScreeningCompleted(ctx context.Context, run *models.ScreeningRun) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitScreeningCompleted")
	defer span.End()

	data, _ := json.Marshal(ScreeningCompletedEvent{
		BaseEvent:     NewBaseEvent(EventTypeScreeningCompleted, run.TenantID),
		RunID:         run.ID,
		SourceName:    run.SourceName,
		RecordCount:   run.RecordCount,
		RejectedCount: run.RejectedCount,
		MatchCount:    run.MatchCount,
	})

	event := &kafka.ScreeningEvent{
		EventType:      string(EventTypeScreeningCompleted),
		TenantID:       run.TenantID,
		ScreeningRunID: run.ID,
		Data:           data,
	}

	if err := e.producer.PublishScreeningEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit screening.completed event")
		return err
	}

	return nil
}

// EmitMatches emits one event per flagged pair in a run
func (e *Emitter) EmitMatches(ctx context.Context, matches []*models.ScreeningMatch) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMatches")
	defer span.End()

	if len(matches) == 0 {
		return nil
	}

	events := make([]*kafka.ScreeningEvent, 0, len(matches))
	for _, m := range matches {
		data, _ := json.Marshal(ScreeningMatchEvent{
			BaseEvent:        NewBaseEvent(EventTypeScreeningMatch, m.TenantID),
			RunID:            m.ScreeningRunID,
			MatchID:          m.ID,
			MatchRule:        m.MatchRule,
			Casino:           m.Casino,
			NewPlayerID:      m.NewPlayerID,
			ExistingPlayerID: m.ExistingPlayerID,
			NameScore:        m.NameScore,
		})

		events = append(events, &kafka.ScreeningEvent{
			EventType:      string(EventTypeScreeningMatch),
			TenantID:       m.TenantID,
			ScreeningRunID: m.ScreeningRunID,
			MatchID:        m.ID,
			Data:           data,
		})
	}

	if err := e.producer.PublishScreeningEvents(ctx, events); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit screening.match events")
		return err
	}

	return nil
}

// EmitScreeningCommitted emits an event when a run's records are appended to
// the register
func (e *Emitter) EmitScreeningCommitted(ctx context.Context, run *models.ScreeningRun, committed int) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitScreeningCommitted")
	defer span.End()

	data, _ := json.Marshal(ScreeningCommittedEvent{
		BaseEvent:      NewBaseEvent(EventTypeScreeningCommitted, run.TenantID),
		RunID:          run.ID,
		CommittedCount: committed,
		SkippedCount:   run.RecordCount - committed,
	})

	event := &kafka.ScreeningEvent{
		EventType:      string(EventTypeScreeningCommitted),
		TenantID:       run.TenantID,
		ScreeningRunID: run.ID,
		Data:           data,
	}

	if err := e.producer.PublishScreeningEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit screening.committed event")
		return err
	}

	return nil
}

// EmitMatchResolved emits an event when an operator confirms or dismisses a
// flagged match
func (e *Emitter) EmitMatchResolved(ctx context.Context, match *models.ScreeningMatch, status, resolvedBy string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMatchResolved")
	defer span.End()

	data, _ := json.Marshal(ScreeningMatchResolvedEvent{
		BaseEvent:        NewBaseEvent(EventTypeScreeningMatchResolved, match.TenantID),
		RunID:            match.ScreeningRunID,
		MatchID:          match.ID,
		Status:           status,
		ResolvedBy:       resolvedBy,
		MatchRule:        match.MatchRule,
		NewPlayerID:      match.NewPlayerID,
		ExistingPlayerID: match.ExistingPlayerID,
	})

	event := &kafka.ScreeningEvent{
		EventType:      string(EventTypeScreeningMatchResolved),
		TenantID:       match.TenantID,
		ScreeningRunID: match.ScreeningRunID,
		MatchID:        match.ID,
		Data:           data,
	}

	if err := e.producer.PublishScreeningEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit screening.match.resolved event")
		return err
	}

	return nil
}
