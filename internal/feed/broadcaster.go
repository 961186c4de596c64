package feed

import (
	"strings"
	"sync"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/dinein/pkg/event"
	"github.com/google/uuid"
)

const DefaultBuffer = 100

// Filter selects the events a subscriber wants. An empty filter accepts
// everything.
type Filter struct {
	Topics    []string
	SessionID string
	TableID   string
}

func (f Filter) Match(evt event.ChangeEvent) bool {
	if len(f.Topics) > 0 {
		found := false
		for _, t := range f.Topics {
			if t == evt.Topic {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.SessionID != "" && evt.SessionID != f.SessionID {
		return false
	}
	if f.TableID != "" && evt.TableID != f.TableID {
		return false
	}
	return true
}

// ParseTopics splits a comma separated topic list. Short names such as
// "kitchen" expand to "dinein.kitchen".
func ParseTopics(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !strings.Contains(t, ".") {
			t = "dinein." + t
		}
		out = append(out, t)
	}
	return out
}

type subscriber struct {
	ch     chan event.ChangeEvent
	filter Filter
}

// Broadcaster fans change events out to in-process subscribers. Sends never
// block: a subscriber whose buffer is full misses the event and is expected
// to resynchronize by polling.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	buffer      int
	logger      apt.Logger
}

func NewBroadcaster(buffer int, logger apt.Logger) *Broadcaster {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster{
		subscribers: make(map[string]*subscriber),
		buffer:      buffer,
		logger:      logger,
	}
}

// Subscribe registers a subscriber and returns its id and channel. The channel
// is closed by Unsubscribe.
func (b *Broadcaster) Subscribe(filter Filter) (string, <-chan event.ChangeEvent) {
	id := uuid.NewString()
	sub := &subscriber{
		ch:     make(chan event.ChangeEvent, b.buffer),
		filter: filter,
	}

	b.mu.Lock()
	b.subscribers[id] = sub
	b.mu.Unlock()

	b.logger.Debug("feed subscriber added", "subscriber_id", id)
	return id, sub.ch
}

func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	sub, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	if ok {
		close(sub.ch)
		b.logger.Debug("feed subscriber removed", "subscriber_id", id)
	}
}

func (b *Broadcaster) Broadcast(evt event.ChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		if !sub.filter.Match(evt) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			b.logger.Info("subscriber channel full, dropping event", "subscriber_id", id, "event_type", evt.EventType)
		}
	}
}

// Count returns the number of active subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
