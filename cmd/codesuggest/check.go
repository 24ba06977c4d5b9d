package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/gyeh/codesuggest/internal/catalog"
	"github.com/gyeh/codesuggest/internal/config"
	"github.com/gyeh/codesuggest/internal/exitcode"
	"github.com/gyeh/codesuggest/internal/model"
)

var checkStrict bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Dry-run validation and stats of a catalog (no writes)",
	RunE:  runCheck,
}

func init() {
	addCatalogFlags(checkCmd)
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Treat unknown rule kinds as errors")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	log := setup()
	ctx := context.Background()

	var pool *pgxpool.Pool
	if cfg.Catalog.Source == config.SourcePostgres {
		pool = connect(ctx, log)
		defer pool.Close()
	}
	src := catalogSourceFor(log, pool)

	ld := src.Load(ctx)
	if ld.ItemsErr != nil {
		log.Error().Err(ld.ItemsErr).Msg("failed to load items")
		os.Exit(exitcode.ValidationError)
	}
	if ld.RulesErr != nil {
		log.Error().Err(ld.RulesErr).Msg("failed to load rules")
		os.Exit(exitcode.ValidationError)
	}

	rep := catalog.Inspect(ld.Items, ld.Rules, model.Versions{Items: ld.ItemsVersion, Rules: ld.RulesVersion})

	fmt.Println("=== codesuggest check ===")
	fmt.Printf("Source:        %s\n", src)
	fmt.Printf("Items version: %s\n", rep.Versions.Items)
	fmt.Printf("Rules version: %s\n", rep.Versions.Rules)
	fmt.Printf("Items:         %d\n", rep.Items)
	fmt.Printf("Rules:         %d (%d hard)\n", rep.Rules, rep.HardRules)
	fmt.Println()
	fmt.Println("Rule kinds:")
	for _, k := range rep.SortedKinds() {
		marker := ""
		if !k.Known() {
			marker = "  (unknown)"
		}
		fmt.Printf("  %-24s %d%s\n", k, rep.KindCounts[k], marker)
	}

	printList("Duplicate item codes", rep.DuplicateCodes)
	printList("Duplicate rule ids", rep.DuplicateRuleIDs)
	printList("Rules with empty applies_to", rep.EmptyAppliesTo)
	if len(rep.DanglingCodes) > 0 {
		ids := make([]string, 0, len(rep.DanglingCodes))
		for id := range rep.DanglingCodes {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		fmt.Println("\nRules referencing unknown codes:")
		for _, id := range ids {
			fmt.Printf("  %-24s %s\n", id, strings.Join(rep.DanglingCodes[id], ", "))
		}
	}

	if !rep.OK(checkStrict) {
		fmt.Println("\nValidation: FAILED")
		os.Exit(exitcode.ValidationError)
	}
	fmt.Println("\nValidation: OK")
	return nil
}

func printList(title string, vals []string) {
	if len(vals) == 0 {
		return
	}
	fmt.Printf("\n%s: %s\n", title, strings.Join(vals, ", "))
}
