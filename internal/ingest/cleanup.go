package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	embedsql "github.com/gyeh/codesuggest/internal/sql"
)

// Cleanup deletes every inactive version other than keepID. Items and rules
// go with them through ON DELETE CASCADE.
func Cleanup(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, keepID int64) (int64, error) {
	start := time.Now()

	tag, err := pool.Exec(ctx, embedsql.DeleteInactiveVersions, keepID)
	if err != nil {
		return 0, fmt.Errorf("delete inactive versions: %w", err)
	}

	log.Info().
		Int64("versions_deleted", tag.RowsAffected()).
		Dur("duration", time.Since(start)).
		Msg("version cleanup complete")

	return tag.RowsAffected(), nil
}
