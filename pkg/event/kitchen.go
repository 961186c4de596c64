package event

const (
	// KitchenTopic carries kitchen ticket changes.
	KitchenTopic = "dinein.kitchen"

	EventKitchenTicketCreated = "kitchen.ticket.created"
	EventKitchenTicketUpdated = "kitchen.ticket.updated"
	EventKitchenTicketDeleted = "kitchen.ticket.deleted"
	EventKitchenItemStatus    = "kitchen.item.status_changed"
)

// KitchenItemStatusChanged is the payload of EventKitchenItemStatus.
type KitchenItemStatusChanged struct {
	TicketID       string   `json:"ticket_id"`
	SessionID      string   `json:"session_id"`
	ItemID         string   `json:"item_id,omitempty"`
	Status         string   `json:"status"`
	TicketsTouched []string `json:"tickets_touched"`
}
