// Package messaging delivers drained domain events to external brokers.
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/event"
)

const (
	Source        = "user-service"
	SchemaVersion = "1"
)

// messageNamespace seeds deterministic message ids, so a retried publish of the
// same event carries the same id and consumers can deduplicate.
var messageNamespace = uuid.MustParse("6f1c1c3e-8d51-4c2a-9a57-3f0f4b7c2e10")

// Envelope is the wire format shared by every broker.
type Envelope struct {
	ID          string          `json:"id"`
	Type        event.Type      `json:"type"`
	Source      string          `json:"source"`
	Version     string          `json:"version"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
}

func NewEnvelope(e event.Event) (Envelope, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", e.EventType(), err)
	}
	return Envelope{
		ID:          MessageID(e),
		Type:        e.EventType(),
		Source:      Source,
		Version:     SchemaVersion,
		AggregateID: e.AggregateID(),
		OccurredAt:  e.OccurredAt().UTC(),
		Payload:     payload,
	}, nil
}

// MessageID derives a UUIDv5 from aggregate id, event type and timestamp.
func MessageID(e event.Event) string {
	key := e.AggregateID() + "|" + string(e.EventType()) + "|" + e.OccurredAt().UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(messageNamespace, []byte(key)).String()
}

func (env Envelope) Marshal() ([]byte, error) {
	return json.Marshal(env)
}
