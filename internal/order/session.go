package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/dinein/internal/core"
	"github.com/appetiteclub/dinein/internal/store"
	"github.com/appetiteclub/dinein/pkg/enums/itemstatus"
	"github.com/google/uuid"
)

const (
	PaymentPending = "pending"
	PaymentSuccess = "success"
)

// LineItem is one ordered quantity of a menu entry. Price is the unit price
// captured when the line was ordered.
type LineItem struct {
	ID         string  `json:"id"`
	MenuItemID string  `json:"menuItemId,omitempty"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	Status     string  `json:"status"`
	Sent       bool    `json:"sent"`
	Notes      string  `json:"notes,omitempty"`
}

// Session is the open order of one table visit.
type Session struct {
	ID            string     `json:"id"`
	TableID       string     `json:"tableId"`
	TableNumber   int        `json:"tableNumber"`
	Items         []LineItem `json:"items"`
	TotalAmount   float64    `json:"totalAmount"`
	PaymentStatus string     `json:"paymentStatus"`
	OrderSent     bool       `json:"orderSent"`
	CreatedAt     time.Time  `json:"createdAt"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	AmountPaid    *float64   `json:"amountPaid,omitempty"`
}

// LineInput is a requested order line.
type LineInput struct {
	MenuItemID string  `json:"menuItemId"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	Notes      string  `json:"notes"`
}

func Key(id string) string {
	return store.SessionPrefix + id
}

func NewSessionID() string {
	return "session-" + uuid.NewString()
}

func NewItemID() string {
	return "item-" + uuid.NewString()
}

func NewSession(tableID string, tableNumber int) *Session {
	return &Session{
		ID:            NewSessionID(),
		TableID:       tableID,
		TableNumber:   tableNumber,
		Items:         []LineItem{},
		PaymentStatus: PaymentPending,
		CreatedAt:     time.Now().UTC(),
	}
}

func (s *Session) Paid() bool {
	return s.PaymentStatus == PaymentSuccess
}

// Recompute sets TotalAmount to the sum of price times quantity.
func (s *Session) Recompute() {
	var total float64
	for _, it := range s.Items {
		total += it.Price * float64(it.Quantity)
	}
	s.TotalAmount = total
}

func (s *Session) ItemIndex(itemID string) int {
	for i := range s.Items {
		if s.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// Unsent returns the items not yet included in any kitchen ticket.
func (s *Session) Unsent() []LineItem {
	var out []LineItem
	for _, it := range s.Items {
		if !it.Sent {
			out = append(out, it)
		}
	}
	return out
}

// MarkSent flags the given item ids as dispatched, or every item when ids is
// empty.
func (s *Session) MarkSent(ids ...string) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for i := range s.Items {
		if _, ok := want[s.Items[i].ID]; ok || len(ids) == 0 {
			s.Items[i].Sent = true
		}
	}
}

// SetItemStatus writes status into the matching item and reports whether it
// changed.
func (s *Session) SetItemStatus(itemID, status string) bool {
	i := s.ItemIndex(itemID)
	if i < 0 || s.Items[i].Status == status {
		return false
	}
	s.Items[i].Status = status
	return true
}

func (s *Session) Clone() *Session {
	c := *s
	c.Items = append([]LineItem(nil), s.Items...)
	return &c
}

func (in LineInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("order line name is required: %w", core.ErrInvalidInput)
	}
	if in.Quantity < 1 {
		return fmt.Errorf("order line %q quantity must be at least 1: %w", in.Name, core.ErrInvalidInput)
	}
	if in.Price < 0 {
		return fmt.Errorf("order line %q price cannot be negative: %w", in.Name, core.ErrInvalidInput)
	}
	return nil
}

func (in LineInput) item() LineItem {
	return LineItem{
		ID:         NewItemID(),
		MenuItemID: in.MenuItemID,
		Name:       strings.TrimSpace(in.Name),
		Price:      in.Price,
		Quantity:   in.Quantity,
		Status:     itemstatus.Statuses.Pending.Code(),
		Notes:      in.Notes,
	}
}
