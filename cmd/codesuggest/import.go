package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/codesuggest/internal/exitcode"
	"github.com/gyeh/codesuggest/internal/ingest"
)

var importOpts ingest.Options

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a catalog (items + rules) into the database as a new version",
	RunE:  runImport,
}

func init() {
	f := importCmd.Flags()
	f.StringVar(&importOpts.ItemsPath, "items", "", "Path to catalog items file (required)")
	f.StringVar(&importOpts.RulesPath, "rules", "", "Path to rules file (required)")
	f.BoolVar(&importOpts.Activate, "activate", true, "Make the imported version active")
	f.BoolVar(&importOpts.Force, "force", false, "Re-import even if the document hash is already active")
	f.BoolVar(&importOpts.KeepOld, "keep-old", false, "Keep inactive versions instead of pruning them")
	f.BoolVar(&importOpts.Strict, "strict", false, "Reject unknown rule kinds")
	_ = importCmd.MarkFlagRequired("items")
	_ = importCmd.MarkFlagRequired("rules")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	itemsPath, rulesPath = importOpts.ItemsPath, importOpts.RulesPath
	log := setup()
	ctx := context.Background()

	if err := cfg.ValidateCatalogFiles(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	pool := connect(ctx, log)
	defer pool.Close()

	summary, err := ingest.Run(ctx, pool, log, importOpts)
	if err != nil {
		var pe *ingest.PipelineError
		if errors.As(err, &pe) {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("import failed")
			switch pe.Phase {
			case "preflight":
				os.Exit(exitcode.ValidationError)
			case "stage":
				os.Exit(exitcode.CopyError)
			default:
				os.Exit(exitcode.CatalogError)
			}
		}
		log.Error().Err(err).Msg("import failed")
		os.Exit(exitcode.CatalogError)
	}

	if summary.Skipped {
		fmt.Printf("Import skipped: document %s already active as version %d\n",
			summary.DocumentSHA256[:12], summary.VersionID)
		return nil
	}
	fmt.Printf("Import complete: version %d (items %s, rules %s), %d items, %d rules (%.1fs)\n",
		summary.VersionID, summary.Versions.Items, summary.Versions.Rules,
		summary.ItemsStaged, summary.RulesInserted, summary.DurationTotal.Seconds())
	return nil
}
