package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	embedsql "github.com/gyeh/codesuggest/internal/sql"
)

// Finalize activates the version, deactivates the previously active one,
// and runs ANALYZE. With activate=false the version is only marked staged.
func Finalize(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, versionID int64, activate bool) (time.Duration, error) {
	start := time.Now()

	if activate {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return 0, fmt.Errorf("finalize begin: %w", err)
		}
		defer tx.Rollback(ctx)

		// Deactivate the current version first: the partial unique index
		// allows one active row.
		tag, err := tx.Exec(ctx, embedsql.DeactivateOlderVersions, versionID)
		if err != nil {
			return 0, fmt.Errorf("deactivate older versions: %w", err)
		}
		log.Info().Int64("deactivated", tag.RowsAffected()).Msg("older versions deactivated")

		if _, err := tx.Exec(ctx, embedsql.ActivateVersion, versionID); err != nil {
			return 0, fmt.Errorf("activate version: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return 0, fmt.Errorf("finalize commit: %w", err)
		}
		log.Info().Int64("version_id", versionID).Msg("version activated")
	}

	if _, err := pool.Exec(ctx, "ANALYZE catalog.items"); err != nil {
		return 0, fmt.Errorf("analyze items: %w", err)
	}
	if _, err := pool.Exec(ctx, "ANALYZE catalog.rules"); err != nil {
		return 0, fmt.Errorf("analyze rules: %w", err)
	}
	log.Info().Msg("ANALYZE complete")

	return time.Since(start), nil
}
