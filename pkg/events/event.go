package events

import (
	"context"
	"time"
)

// Event types. Published under the "rag." subject prefix.
const (
	TypeQueryAnswered  = "query.answered"
	TypeIndexRebuilt   = "index.rebuilt"
	TypeIndexRequested = "index.requested"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the dotted event code, e.g. "query.answered".
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Publisher sends events to the bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. Used when NATS is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewQueryAnswered summarizes one processed query. Query text and answers stay out of the payload.
func NewQueryAnswered(sessionID, language, queryType, outcome string, confidence float64, contextUsed int, elapsed time.Duration) BaseEvent {
	return BaseEvent{
		Type: TypeQueryAnswered,
		Data: map[string]interface{}{
			"session_id":    sessionID,
			"language":      language,
			"query_type":    queryType,
			"outcome":       outcome,
			"confidence":    confidence,
			"context_used":  contextUsed,
			"response_time": elapsed.Seconds(),
		},
		OccurredAt: time.Now(),
	}
}

func NewIndexRebuilt(source string, chunks, failed int, elapsed time.Duration) BaseEvent {
	return BaseEvent{
		Type: TypeIndexRebuilt,
		Data: map[string]interface{}{
			"source":   source,
			"chunks":   chunks,
			"failed":   failed,
			"duration": elapsed.Seconds(),
		},
		OccurredAt: time.Now(),
	}
}

func NewIndexRequested(requestedBy string) BaseEvent {
	return BaseEvent{
		Type:       TypeIndexRequested,
		Data:       map[string]interface{}{"requested_by": requestedBy},
		OccurredAt: time.Now(),
	}
}
