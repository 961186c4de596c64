package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/dinein/internal/core"
	"github.com/appetiteclub/dinein/internal/kitchen"
	"github.com/appetiteclub/dinein/internal/order"
	"github.com/appetiteclub/dinein/internal/tables"
	"github.com/appetiteclub/dinein/pkg/enums/tablestatus"
	"github.com/appetiteclub/dinein/pkg/event"
)

// KitchenDispatcher sends session items to the kitchen.
type KitchenDispatcher interface {
	Dispatch(ctx context.Context, sessionID string) (*kitchen.Ticket, error)
	DispatchOnPayment(ctx context.Context, sessionID string) (*kitchen.Ticket, error)
}

type GateDeps struct {
	Ledger  *order.Ledger
	Tables  *tables.Registry
	Kitchen KitchenDispatcher
}

// Gate settles sessions. Once paid a session no longer accepts item
// changes.
type Gate struct {
	ledger  *order.Ledger
	tables  *tables.Registry
	kitchen KitchenDispatcher
	logger  apt.Logger
}

func NewGate(deps GateDeps, logger apt.Logger) *Gate {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Gate{
		ledger:  deps.Ledger,
		tables:  deps.Tables,
		kitchen: deps.Kitchen,
		logger:  logger,
	}
}

// Pay records a successful payment, moves the table to payment_confirmed
// and makes sure the kitchen received the order. The amount is recorded as
// given; a mismatch with the total is only logged.
func (g *Gate) Pay(ctx context.Context, sessionID string, amount float64, method string) (*order.Session, error) {
	method = strings.TrimSpace(method)

	s, err := g.ledger.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var paid *order.Session
	settle := func() error {
		unlock := g.ledger.Lock(sessionID)
		defer unlock()

		cur, err := g.ledger.Get(ctx, sessionID)
		if err != nil {
			return err
		}
		if cur.Paid() {
			return fmt.Errorf("session %s is already paid: %w", sessionID, core.ErrConflict)
		}
		if method == "" {
			return fmt.Errorf("paymentMethod is required: %w", core.ErrInvalidInput)
		}

		now := time.Now().UTC()
		cur.PaymentStatus = order.PaymentSuccess
		cur.PaidAt = &now
		cur.PaymentMethod = method
		cur.AmountPaid = &amount
		cur.Recompute()
		if math.Abs(cur.TotalAmount-amount) > 0.005 {
			g.logger.Info("payment amount differs from session total", "session_id", sessionID, "amount", amount, "total", cur.TotalAmount)
		}

		if err := g.ledger.Save(ctx, cur, event.EventSessionPaid); err != nil {
			return err
		}
		paid = cur
		return nil
	}

	err = g.onTable(ctx, s.TableID, "payment confirmed", settle, func(t *tables.Table) {
		g.moveTable(t, sessionID, tablestatus.Statuses.PaymentConfirmed)
	})
	if err != nil {
		return nil, err
	}

	g.logger.Info("payment processed", "session_id", sessionID, "method", method, "amount", amount)

	if _, err := g.kitchen.DispatchOnPayment(ctx, sessionID); err != nil {
		// The payment stands; the order can still be sent with confirm-order.
		g.logger.Error("cannot dispatch paid session", "session_id", sessionID, "error", err)
		return paid, nil
	}
	return g.current(ctx, paid), nil
}

// ConfirmPayLater sends the pending items to the kitchen and marks the table
// payment_pending. A paid session keeps its payment_confirmed table.
func (g *Gate) ConfirmPayLater(ctx context.Context, sessionID string) (*order.Session, error) {
	s, err := g.ledger.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !s.Paid() {
		err = g.onTable(ctx, s.TableID, "order confirmed", nil, func(t *tables.Table) {
			g.moveTable(t, sessionID, tablestatus.Statuses.PaymentPending)
		})
		if err != nil {
			return nil, err
		}
	}

	ticket, err := g.kitchen.Dispatch(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if ticket != nil {
		g.logger.Info("order confirmed", "session_id", sessionID, "ticket_id", ticket.ID)
	}
	return g.current(ctx, s), nil
}

// onTable runs before and then move under the table lock. A session whose
// table is gone is still settled.
func (g *Gate) onTable(ctx context.Context, tableID, reason string, before func() error, move func(t *tables.Table)) error {
	if _, err := g.tables.Get(ctx, tableID); errors.Is(err, core.ErrNotFound) {
		g.logger.Info("session table not found", "table_id", tableID)
		if before != nil {
			return before()
		}
		return nil
	} else if err != nil {
		return err
	}

	_, err := g.tables.Update(ctx, tableID, reason, func(t *tables.Table) error {
		if before != nil {
			if err := before(); err != nil {
				return err
			}
		}
		move(t)
		return nil
	})
	return err
}

func (g *Gate) moveTable(t *tables.Table, sessionID string, status tablestatus.Status) {
	if held := t.CurrentSession(); held != "" && held != sessionID {
		g.logger.Info("table holds another session, status left unchanged", "table_id", t.ID, "table_session", held, "session_id", sessionID)
		return
	}
	t.Attach(sessionID, status)
}

func (g *Gate) current(ctx context.Context, fallback *order.Session) *order.Session {
	s, err := g.ledger.Find(ctx, fallback.ID)
	if err != nil || s == nil {
		return fallback
	}
	return s
}
