package commands

import (
	"context"
	"encoding/json"
	"io"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/dinein/internal/app"
)

// ExportHistory writes every archived session to out as indented JSON,
// newest first. limit=N caps the number of records.
func ExportHistory(ctx context.Context, config *apt.Config, logger apt.Logger, out io.Writer) error {
	a, err := app.New(ctx, config, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.Archiver.List(ctx, config.GetIntOrDef("limit", 0))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
