package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/dinein/internal/app"
)

// SeedDemo applies the demo seeds to the configured store. With force=true
// every seed runs again regardless of the tracker.
func SeedDemo(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	a, err := app.New(ctx, config, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if config.GetBoolOrFalse("force") {
		logger.Info("Forcing demo seeds")
		if err := a.Seeder.Force(ctx); err != nil {
			return fmt.Errorf("force seeds: %w", err)
		}
	} else if err := a.Seeder.Apply(ctx); err != nil {
		return fmt.Errorf("apply seeds: %w", err)
	}

	status, err := a.Seeder.Status(ctx)
	if err != nil {
		return err
	}
	logger.Info("Demo data ready", "tables", status.TableCount, "menu", status.MenuCount, "users", status.UserCount)
	return nil
}
