package feed

import (
	"context"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/dinein/pkg"
	"github.com/appetiteclub/dinein/pkg/event"
)

// Notifier receives every state change made by the engine.
type Notifier interface {
	Notify(ctx context.Context, evt event.ChangeEvent)
}

// Nop discards events.
type Nop struct{}

func (Nop) Notify(context.Context, event.ChangeEvent) {}

// Hub broadcasts events in process and, when a publisher is configured,
// forwards them to NATS. Publishing failures are logged; they never fail the
// operation that produced the event.
type Hub struct {
	broadcaster *Broadcaster
	publisher   events.Publisher
	logger      apt.Logger
}

func NewHub(b *Broadcaster, publisher events.Publisher, logger apt.Logger) *Hub {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Hub{
		broadcaster: b,
		publisher:   publisher,
		logger:      logger,
	}
}

func (h *Hub) Notify(ctx context.Context, evt event.ChangeEvent) {
	if h.broadcaster != nil {
		h.broadcaster.Broadcast(evt)
	}

	if h.publisher == nil {
		return
	}
	if err := pkg.PublishEvent(ctx, h.publisher, evt); err != nil {
		h.logger.Error("cannot publish change event", "event_type", evt.EventType, "error", err)
	}
}

// Emit builds an event and hands it to n. Encoding failures are logged and
// dropped.
func Emit(ctx context.Context, n Notifier, logger apt.Logger, topic, eventType, entityID, sessionID, tableID string, payload any) {
	if n == nil {
		return
	}

	evt, err := event.New(topic, eventType, entityID, payload)
	if err != nil {
		if logger != nil {
			logger.Error("cannot build change event", "event_type", eventType, "error", err)
		}
		return
	}
	evt.SessionID = sessionID
	evt.TableID = tableID

	n.Notify(ctx, evt)
}
