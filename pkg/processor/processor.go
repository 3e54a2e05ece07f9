// Package processor handles player registration batches arriving over the
// intake topic and feeds them into the screening pipeline.
package processor

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/ingest"
	"github.com/Ramsey-B/thistle/pkg/kafka"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// Processor consumes intake messages and starts screening runs
type Processor struct {
	logger    ectologger.Logger
	screening *matching.Service
}

// NewProcessor creates a new intake message processor
func NewProcessor(logger ectologger.Logger, screening *matching.Service) *Processor {
	return &Processor{
		logger:    logger,
		screening: screening,
	}
}

// ProcessMessage handles an incoming Kafka message. Malformed messages are
// skipped so the consumer keeps moving; persistence failures are returned so
// the message is retried.
func (p *Processor) ProcessMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.ProcessMessage")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"key":    msg.Key,
		"topic":  msg.Topic,
		"offset": msg.Offset,
	})

	if msg.IntakeMessage == nil {
		if err := msg.ParseIntakeMessage(); err != nil {
			log.WithError(err).Error("Failed to parse intake message, skipping")
			return nil
		}
	}

	tenantID := msg.GetTenantID()
	if tenantID == "" {
		log.Error("Missing tenant_id in message, skipping")
		return nil
	}

	records := msg.GetRecords()
	if len(records) == 0 {
		log.Warn("Intake message contains no records, skipping")
		return nil
	}

	sourceName := msg.GetSourceName()
	log = log.WithFields(map[string]any{
		"tenant_id":    tenantID,
		"source_name":  sourceName,
		"record_count": len(records),
	})

	result := ingest.ValidateRecords(records)
	if len(result.Records) == 0 {
		log.WithFields(map[string]any{
			"rejected_count": len(result.Rejected),
		}).Warn("Every record in intake message failed validation, skipping")
		return nil
	}

	run, err := p.screening.StartScreening(ctx, tenantID, sourceName, result.Records, result.Rejected)
	if err != nil {
		log.WithError(err).Error("Failed to start screening for intake message")
		return err
	}

	log.WithFields(map[string]any{
		"run_id":         run.ID,
		"match_count":    run.MatchCount,
		"rejected_count": run.RejectedCount,
	}).Info("Intake batch screened")

	return nil
}
