package events

import (
	"encoding/json"
	"time"
)

type Envelope struct {
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// Notification is the payload handed to the mailer: who receives what, and
// the facts needed to render it. Formatting happens outside this service.
type Notification struct {
	Kind         string   `json:"kind"`
	Recipients   []string `json:"recipients"`
	ElectionID   string   `json:"election_id"`
	ElectionName string   `json:"election_name"`
	ElectionSlug string   `json:"election_slug"`
	Link         string   `json:"link"`
	Receipt      any      `json:"receipt,omitempty"`
}

// TallyUpdate tells realtime viewers to refetch the presented tally.
type TallyUpdate struct {
	ElectionID string    `json:"election_id"`
	At         time.Time `json:"at"`
}
