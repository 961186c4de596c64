package event

const (
	// TablesTopic carries table registry changes.
	TablesTopic = "dinein.tables"

	EventTableAdded         = "table.added"
	EventTableRemoved       = "table.removed"
	EventTableStatusChanged = "table.status.changed"
)

// TableStatusChanged is the payload of EventTableStatusChanged.
type TableStatusChanged struct {
	TableID        string  `json:"table_id"`
	Number         int     `json:"number"`
	Status         string  `json:"status"`
	PreviousStatus string  `json:"previous_status,omitempty"`
	SessionID      *string `json:"session_id"`
	Reason         string  `json:"reason,omitempty"`
}
