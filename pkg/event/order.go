package event

const (
	// SessionsTopic carries order session changes. The payload is the session
	// snapshot after the change.
	SessionsTopic = "dinein.sessions"

	EventSessionCreated   = "session.created"
	EventSessionUpdated   = "session.updated"
	EventSessionPaid      = "session.paid"
	EventSessionConfirmed = "session.confirmed"
	EventSessionClosed    = "session.closed"

	// HistoryTopic carries archived sessions.
	HistoryTopic = "dinein.history"

	EventHistoryArchived = "history.archived"

	// MenuTopic carries menu catalog changes.
	MenuTopic = "dinein.menu"

	EventMenuItemChanged = "menu.item.changed"
	EventMenuItemDeleted = "menu.item.deleted"
)
