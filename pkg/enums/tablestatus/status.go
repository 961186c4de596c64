package tablestatus

import "strings"

// Status is the lifecycle state of a table.
type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	parts := strings.Split(s.Name, "_")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

// HoldsSession reports whether a table in this state must reference a session.
func (s Status) HoldsSession() bool {
	switch s {
	case Statuses.Occupied, Statuses.PaymentPending, Statuses.PaymentConfirmed:
		return true
	}
	return false
}

// Startable reports whether a session may be opened from this state.
func (s Status) Startable() bool {
	return s == Statuses.Empty || s == Statuses.Reserved
}

type Enum struct {
	Empty            Status
	Reserved         Status
	Occupied         Status
	PaymentPending   Status
	PaymentConfirmed Status
}

var Statuses = Enum{
	Empty:            Status{Name: "empty"},
	Reserved:         Status{Name: "reserved"},
	Occupied:         Status{Name: "occupied"},
	PaymentPending:   Status{Name: "payment_pending"},
	PaymentConfirmed: Status{Name: "payment_confirmed"},
}

var All = []Status{
	Statuses.Empty,
	Statuses.Reserved,
	Statuses.Occupied,
	Statuses.PaymentPending,
	Statuses.PaymentConfirmed,
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}
