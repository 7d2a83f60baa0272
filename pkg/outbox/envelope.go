package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/wishlist-backend/pkg/db/models"
	"github.com/angelmondragon/wishlist-backend/pkg/enums"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Login  string    `json:"login,omitempty"`
}

// Envelope is the JSON stored in outbox_events.payload and sent verbatim as
// the message body. Version describes the shape of Data.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// Event is what producers hand to Emit.
type Event struct {
	Type        enums.OutboxEventType
	Aggregate   enums.OutboxAggregateType
	AggregateID uuid.UUID
	Actor       *ActorRef
	Data        any
	Version     int
	OccurredAt  time.Time
}

// Open decodes a stored payload. Rows without an event id are rejected.
func Open(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.EventID == "" {
		return Envelope{}, errors.New("envelope has no event id")
	}
	return env, nil
}

// seal validates the event and renders the row to insert. Defaults: version 1
// and the current time.
func seal(event Event, now time.Time) (models.OutboxEvent, Envelope, error) {
	if !event.Type.IsValid() {
		return models.OutboxEvent{}, Envelope{}, fmt.Errorf("unknown event type %q", event.Type)
	}
	if !event.Aggregate.IsValid() {
		return models.OutboxEvent{}, Envelope{}, fmt.Errorf("unknown aggregate type %q", event.Aggregate)
	}
	data, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, Envelope{}, fmt.Errorf("encoding %s data: %w", event.Type, err)
	}

	env := Envelope{
		Version:    max(event.Version, 1),
		EventID:    uuid.NewString(),
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       data,
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = now
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return models.OutboxEvent{}, Envelope{}, fmt.Errorf("encoding envelope: %w", err)
	}
	return models.OutboxEvent{
		EventType:     event.Type,
		AggregateType: event.Aggregate,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}, env, nil
}
