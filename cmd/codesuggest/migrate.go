package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/codesuggest/internal/db"
	"github.com/gyeh/codesuggest/internal/exitcode"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := setup()
	ctx := context.Background()

	pool := connect(ctx, log)
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, log); err != nil {
		log.Error().Err(err).Msg("migration failed")
		os.Exit(exitcode.CatalogError)
	}

	log.Info().Msg("all migrations applied successfully")
	return nil
}
