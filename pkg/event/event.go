package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChangeEvent is the envelope delivered on the NATS subjects, the JetStream
// stream, the gRPC change feed and the SSE endpoint.
type ChangeEvent struct {
	EventType  string          `json:"event_type"`
	Topic      string          `json:"topic"`
	EntityID   string          `json:"entity_id"`
	SessionID  string          `json:"session_id,omitempty"`
	TableID    string          `json:"table_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// New builds an event with payload encoded as JSON.
func New(topic, eventType, entityID string, payload any) (ChangeEvent, error) {
	evt := ChangeEvent{
		EventType:  eventType,
		Topic:      topic,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return ChangeEvent{}, fmt.Errorf("cannot encode %s payload: %w", eventType, err)
		}
		evt.Payload = raw
	}

	return evt, nil
}

// Subject is the NATS subject an event is published on.
func (e ChangeEvent) Subject() string {
	return e.Topic
}

// Decode parses a published event.
func Decode(data []byte) (ChangeEvent, error) {
	var evt ChangeEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return ChangeEvent{}, fmt.Errorf("cannot decode change event: %w", err)
	}
	return evt, nil
}
