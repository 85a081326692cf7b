package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status represents the processing state of an outbox event
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// OutboxEvent is written in the same transaction as the state change it
// announces and published to Redis afterwards by the processor.
type OutboxEvent struct {
	ID            uuid.UUID
	EventType     string
	AggregateType string
	AggregateID   string
	Payload       []byte
	Status        Status
	RetryCount    int
	Error         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ProcessedAt   *time.Time
}

// New builds a pending event with a JSON payload.
func New(eventType, aggregateType string, aggregateID uuid.UUID, payload any, at time.Time) (*OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID.String(),
		Payload:       data,
		Status:        StatusPending,
		CreatedAt:     at,
		UpdatedAt:     at,
	}, nil
}
