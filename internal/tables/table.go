package tables

import (
	"fmt"

	"github.com/appetiteclub/dinein/internal/store"
	"github.com/appetiteclub/dinein/pkg/enums/tablestatus"
)

// Table is a physical seating unit.
type Table struct {
	ID        string  `json:"id"`
	Number    int     `json:"number"`
	Capacity  int     `json:"capacity"`
	Status    string  `json:"status"`
	SessionID *string `json:"sessionId"`
}

// IDFor returns the stable id of the table with the given number.
func IDFor(number int) string {
	return fmt.Sprintf("table-%d", number)
}

// Key returns the store key of a table id.
func Key(id string) string {
	return store.TablePrefix + id
}

func NewTable(number, capacity int) *Table {
	return &Table{
		ID:       IDFor(number),
		Number:   number,
		Capacity: capacity,
		Status:   tablestatus.Statuses.Empty.Code(),
	}
}

func (t *Table) status() tablestatus.Status {
	if s := tablestatus.ByName(t.Status); s != nil {
		return *s
	}
	return tablestatus.Statuses.Empty
}

// HasSession reports whether the table references a session.
func (t *Table) HasSession() bool {
	return t.SessionID != nil && *t.SessionID != ""
}

// CurrentSession returns the referenced session id or "".
func (t *Table) CurrentSession() string {
	if !t.HasSession() {
		return ""
	}
	return *t.SessionID
}

// Attach points the table at sessionID with the given status.
func (t *Table) Attach(sessionID string, status tablestatus.Status) {
	id := sessionID
	t.SessionID = &id
	t.Status = status.Code()
}

// Reset returns the table to empty with no session.
func (t *Table) Reset() {
	t.SessionID = nil
	t.Status = tablestatus.Statuses.Empty.Code()
}

// Inconsistent reports a table whose status requires a session it does not
// reference.
func (t *Table) Inconsistent() bool {
	return t.status().HoldsSession() && !t.HasSession()
}

func (t *Table) clone() *Table {
	c := *t
	if t.SessionID != nil {
		id := *t.SessionID
		c.SessionID = &id
	}
	return &c
}

func (t *Table) equal(o *Table) bool {
	return t.Number == o.Number &&
		t.Capacity == o.Capacity &&
		t.Status == o.Status &&
		t.CurrentSession() == o.CurrentSession()
}
