package kitchen

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/appetiteclub/dinein/internal/order"
	"github.com/appetiteclub/dinein/internal/store"
	"github.com/appetiteclub/dinein/pkg/enums/itemstatus"
)

const idPrefix = "kitchen-"

// Ticket is one batch of line items dispatched to the kitchen. Items are
// copies of the session items and share their ids.
type Ticket struct {
	ID          string           `json:"id"`
	SessionID   string           `json:"sessionId"`
	TableNumber int              `json:"tableNumber"`
	Items       []order.LineItem `json:"items"`
	CreatedAt   time.Time        `json:"createdAt"`
	IsUpdate    bool             `json:"isUpdate"`
}

// KeyOf maps a ticket id such as kitchen-<sessionId>-<batch> to its store
// key kitchen:<sessionId>-<batch>.
func KeyOf(ticketID string) string {
	if strings.HasPrefix(ticketID, store.KitchenPrefix) {
		return ticketID
	}
	return store.KitchenPrefix + strings.TrimPrefix(ticketID, idPrefix)
}

func newTicket(s *order.Session, batch []order.LineItem, token int64, isUpdate bool) *Ticket {
	items := make([]order.LineItem, len(batch))
	copy(items, batch)
	for i := range items {
		items[i].Sent = true
	}

	return &Ticket{
		ID:          fmt.Sprintf("%s%s-%d", idPrefix, s.ID, token),
		SessionID:   s.ID,
		TableNumber: s.TableNumber,
		Items:       items,
		CreatedAt:   time.Now().UTC(),
		IsUpdate:    isUpdate,
	}
}

func (t *Ticket) Has(itemID string) bool {
	for _, it := range t.Items {
		if it.ID == itemID {
			return true
		}
	}
	return false
}

// Ready reports whether every item reads ready. An empty ticket counts as
// ready.
func (t *Ticket) Ready() bool {
	for _, it := range t.Items {
		if it.Status != itemstatus.Statuses.Ready.Code() {
			return false
		}
	}
	return true
}

// setStatus sets status on itemID, or on every item when itemID is empty,
// and reports whether anything changed.
func (t *Ticket) setStatus(itemID, status string) bool {
	changed := false
	for i := range t.Items {
		if itemID != "" && t.Items[i].ID != itemID {
			continue
		}
		if t.Items[i].Status != status {
			t.Items[i].Status = status
			changed = true
		}
	}
	return changed
}

// project copies the session's item statuses into the ticket. Items the
// session no longer holds keep their current status.
func (t *Ticket) project(s *order.Session) bool {
	changed := false
	for i := range t.Items {
		j := s.ItemIndex(t.Items[i].ID)
		if j < 0 {
			continue
		}
		if t.Items[i].Status != s.Items[j].Status {
			t.Items[i].Status = s.Items[j].Status
			changed = true
		}
	}
	return changed
}

// batchClock issues strictly increasing nanosecond tokens so two batches of
// one session never share a key.
type batchClock struct {
	last atomic.Int64
}

func (c *batchClock) next() int64 {
	for {
		now := time.Now().UnixNano()
		last := c.last.Load()
		if now <= last {
			now = last + 1
		}
		if c.last.CompareAndSwap(last, now) {
			return now
		}
	}
}

func encode(t *Ticket) ([]byte, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("cannot encode ticket %s: %w", t.ID, err)
	}
	return raw, nil
}
