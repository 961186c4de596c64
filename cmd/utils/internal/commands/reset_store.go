package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/dinein/internal/store"
)

// ResetStore wipes the configured backend - USE WITH CAUTION. Mongo drops the
// whole database; other drivers delete every key under the engine prefixes.
func ResetStore(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	backend, err := store.Open(ctx, config, logger)
	if err != nil {
		return err
	}
	defer backend.Stop(context.Background())

	logger.Infof("DANGER: wiping the %s store, this cannot be undone", backend.Driver)

	if backend.Mongo != nil {
		return backend.Mongo.DropDatabase(ctx)
	}

	n, err := store.Clear(ctx, backend.Store)
	if err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	logger.Info("Store cleared", "keys", n)
	return nil
}
