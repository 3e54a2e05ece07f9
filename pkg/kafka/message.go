package kafka

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Trace context (extracted from Kafka headers)
	TraceParent string
	TraceState  string

	// Parsed content
	IntakeMessage *models.IntakeMessage
}

// ParseIntakeMessage parses the message value as a registration batch
func (m *IncomingMessage) ParseIntakeMessage() error {
	var msg models.IntakeMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return err
	}
	m.IntakeMessage = &msg
	return nil
}

// GetTenantID returns the tenant ID from the intake message
func (m *IncomingMessage) GetTenantID() string {
	if m.IntakeMessage != nil && m.IntakeMessage.TenantID != "" {
		return m.IntakeMessage.TenantID
	}
	// Fallback to header
	return m.Headers["tenant_id"]
}

// GetSourceName returns the source name for the batch. Falls back to the
// message key so runs started from bare batches are still attributable.
func (m *IncomingMessage) GetSourceName() string {
	if m.IntakeMessage != nil && m.IntakeMessage.SourceName != "" {
		return m.IntakeMessage.SourceName
	}
	return m.Key
}

// GetRecords returns the batch's player records
func (m *IncomingMessage) GetRecords() []models.PlayerRecord {
	if m.IntakeMessage != nil {
		return m.IntakeMessage.Records
	}
	return nil
}
