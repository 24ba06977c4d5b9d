package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/gyeh/codesuggest/internal/catalog"
	"github.com/gyeh/codesuggest/internal/config"
	"github.com/gyeh/codesuggest/internal/exitcode"
	"github.com/gyeh/codesuggest/internal/model"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write catalog items to a Parquet file",
	RunE:  runExport,
}

func init() {
	addCatalogFlags(exportCmd)
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output Parquet path (required)")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	log := setup()
	ctx := context.Background()

	var pool *pgxpool.Pool
	if cfg.Catalog.Source == config.SourcePostgres {
		pool = connect(ctx, log)
		defer pool.Close()
	}

	store := catalog.NewStore(catalogSourceFor(log, pool), log)
	versions := store.Reload(ctx)
	if versions.Items == model.UnknownVersion {
		log.Error().Msg("catalog items unavailable, nothing to export")
		os.Exit(exitcode.CatalogError)
	}

	n, err := catalog.ExportParquet(exportOut, store.Bundle())
	if err != nil {
		log.Error().Err(err).Str("out", exportOut).Msg("export failed")
		os.Exit(exitcode.CatalogError)
	}

	fmt.Printf("Wrote %d items (version %s) to %s\n", n, versions.Items, exportOut)
	return nil
}
