package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var auditColumns = []string{
	"request_id",
	"received_at",
	"note_sha256",
	"top_k",
	"request",
	"response",
	"duration_ms",
	"items_version",
	"rules_version",
}

// PGWriter copies record batches into audit.suggest_requests.
type PGWriter struct {
	pool        *pgxpool.Pool
	includeNote bool
}

// NewPGWriter creates a PGWriter. The audit schema must already be migrated.
func NewPGWriter(pool *pgxpool.Pool, includeNote bool) *PGWriter {
	return &PGWriter{pool: pool, includeNote: includeNote}
}

// Write implements Writer.
func (w *PGWriter) Write(ctx context.Context, recs []Record) error {
	rows := make([][]any, 0, len(recs))
	for i := range recs {
		row, err := pgRow(&recs[i], w.includeNote)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	n, err := w.pool.CopyFrom(ctx, pgx.Identifier{"audit", "suggest_requests"}, auditColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy audit records: %w", err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copy audit records: wrote %d of %d", n, len(rows))
	}
	return nil
}

// Close implements Writer. The pool is owned by the caller.
func (w *PGWriter) Close() error { return nil }

func pgRow(rec *Record, includeNote bool) ([]any, error) {
	id, err := uuid.Parse(rec.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request id %q: %w", rec.RequestID, err)
	}
	req, err := rec.RequestJSON(includeNote)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	resp, err := json.Marshal(rec.Response)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	return []any{
		id,
		rec.ReceivedAt,
		rec.NoteSHA256(),
		int32(rec.TopK),
		req,
		resp,
		float64(rec.Duration.Microseconds()) / 1000,
		rec.Response.Meta.ItemsVersion,
		rec.Response.Meta.RulesVersion,
	}, nil
}
