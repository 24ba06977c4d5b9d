package main

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gyeh/codesuggest/internal/catalog"
	"github.com/gyeh/codesuggest/internal/config"
	"github.com/gyeh/codesuggest/internal/db"
	"github.com/gyeh/codesuggest/internal/exitcode"
	"github.com/gyeh/codesuggest/internal/logging"
)

var (
	cfg        config.Config
	configPath string

	// Catalog flags shared by several commands. They override the config file.
	itemsPath     string
	rulesPath     string
	catalogSource string
)

var rootCmd = &cobra.Command{
	Use:   "codesuggest",
	Short: "Billing code suggestions from clinical notes",
	Long:  "Extracts structured facts from free-text clinical notes, retrieves candidate billing items from a versioned catalog, checks eligibility rules, and ranks suggestions with calibrated confidence.",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("CODESUGGEST_DB_URL"), "Postgres connection string (or set CODESUGGEST_DB_URL)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&cfg.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&configPath, "config", "", "Path to YAML config file")
}

func addCatalogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&itemsPath, "items", "", "Path to catalog items file (YAML, JSON or Parquet)")
	f.StringVar(&rulesPath, "rules", "", "Path to rules file (YAML or JSON)")
	f.StringVar(&catalogSource, "source", "", "Catalog source: file or postgres")
}

// setup loads the config file, overlays command-line flags and any
// command-specific overrides, and returns the logger. Invalid configuration
// exits the process.
func setup(overrides ...func(*config.Config)) zerolog.Logger {
	logLevel := cfg.LogLevel
	if configPath != "" {
		if err := cfg.LoadFromFile(configPath); err != nil {
			log := logging.Setup(cfg.LogFormat, logLevel)
			log.Error().Err(err).Str("config", configPath).Msg("config load failed")
			os.Exit(exitcode.UsageError)
		}
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if itemsPath != "" {
		cfg.Catalog.ItemsPath = itemsPath
	}
	if rulesPath != "" {
		cfg.Catalog.RulesPath = rulesPath
	}
	if catalogSource != "" {
		cfg.Catalog.Source = catalogSource
	}
	for _, o := range overrides {
		o(&cfg)
	}
	cfg.ApplyDefaults()

	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	if err := cfg.ValidateWithDSN(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	return log
}

// connect opens the pool, exiting on failure.
func connect(ctx context.Context, log zerolog.Logger) *pgxpool.Pool {
	if cfg.DSN == "" {
		log.Error().Msg("--dsn or CODESUGGEST_DB_URL is required")
		os.Exit(exitcode.UsageError)
	}
	pool, err := db.NewPool(ctx, cfg.DSN, 0)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	return pool
}

// catalogSourceFor builds the configured catalog source. pool may be nil for
// file sources.
func catalogSourceFor(log zerolog.Logger, pool *pgxpool.Pool) catalog.Source {
	if cfg.Catalog.Source == config.SourcePostgres {
		return &catalog.PGSource{Pool: pool}
	}
	if err := cfg.ValidateCatalogFiles(); err != nil {
		log.Error().Err(err).Msg("catalog files unavailable")
		os.Exit(exitcode.UsageError)
	}
	return &catalog.FileSource{ItemsPath: cfg.Catalog.ItemsPath, RulesPath: cfg.Catalog.RulesPath}
}
