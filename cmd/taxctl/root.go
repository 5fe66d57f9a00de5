package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/baladia/taxe/internal/config"
	"github.com/baladia/taxe/internal/database"
	"github.com/baladia/taxe/internal/logger"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "taxctl",
		Short:         "Property tax operator tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newMigrateCmd(), newQuoteCmd(), newImportCmd())
	return cmd
}

// connect loads the configuration and opens the database pool.
func connect(ctx context.Context) (*config.Config, *database.Database, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	log := logger.NewWithOptions(logger.Options{Env: cfg.Server.Env, Level: cfg.Log.Level})
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return cfg, db, log, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
