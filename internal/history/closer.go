package history

import (
	"context"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/dinein/internal/order"
)

// TicketRemover deletes the kitchen tickets of a session.
type TicketRemover interface {
	DeleteTickets(ctx context.Context, sessionID string) (int, error)
}

// Closer ends a session when its table is completed: the session is
// archived and removed, then its kitchen tickets are deleted. The registry
// calls it with the table lock held.
type Closer struct {
	archiver *Archiver
	ledger   *order.Ledger
	kitchen  TicketRemover
	logger   apt.Logger
}

func NewCloser(archiver *Archiver, ledger *order.Ledger, kitchen TicketRemover, logger apt.Logger) *Closer {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Closer{
		archiver: archiver,
		ledger:   ledger,
		kitchen:  kitchen,
		logger:   logger,
	}
}

func (c *Closer) CloseSession(ctx context.Context, sessionID string) error {
	if err := c.archive(ctx, sessionID); err != nil {
		return err
	}

	// The remover takes the session lock itself.
	if c.kitchen == nil {
		return nil
	}
	n, err := c.kitchen.DeleteTickets(ctx, sessionID)
	if err != nil {
		return err
	}
	c.logger.Info("session closed", "session_id", sessionID, "tickets_deleted", n)
	return nil
}

func (c *Closer) archive(ctx context.Context, sessionID string) error {
	unlock := c.ledger.Lock(sessionID)
	defer unlock()

	s, err := c.ledger.Find(ctx, sessionID)
	if err != nil {
		return err
	}
	if s == nil {
		c.logger.Info("table referenced a missing session, nothing to archive", "session_id", sessionID)
		return nil
	}

	if _, err := c.archiver.Archive(ctx, s); err != nil {
		return err
	}
	return c.ledger.Delete(ctx, s)
}
