package app

import (
	"context"

	"github.com/appetiteclub/dinein/pkg/event"
)

// snapshot renders current tables, sessions and tickets as change events so
// a new feed subscriber starts from a complete picture.
func (a *App) snapshot(ctx context.Context) ([]event.ChangeEvent, error) {
	var out []event.ChangeEvent

	tbls, err := a.Tables.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tbls {
		evt, err := event.New(event.TablesTopic, event.EventTableStatusChanged, t.ID, event.TableStatusChanged{
			TableID:   t.ID,
			Number:    t.Number,
			Status:    t.Status,
			SessionID: t.SessionID,
			Reason:    "snapshot",
		})
		if err != nil {
			return nil, err
		}
		evt.TableID = t.ID
		evt.SessionID = t.CurrentSession()
		out = append(out, evt)
	}

	sessions, err := a.Ledger.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range sessions {
		evt, err := event.New(event.SessionsTopic, event.EventSessionUpdated, s.ID, s)
		if err != nil {
			return nil, err
		}
		evt.SessionID = s.ID
		evt.TableID = s.TableID
		out = append(out, evt)
	}

	tickets, err := a.Kitchen.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, tk := range tickets {
		evt, err := event.New(event.KitchenTopic, event.EventKitchenTicketCreated, tk.ID, tk)
		if err != nil {
			return nil, err
		}
		evt.SessionID = tk.SessionID
		out = append(out, evt)
	}

	return out, nil
}
