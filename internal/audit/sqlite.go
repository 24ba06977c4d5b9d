package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS suggest_requests (
	request_id    TEXT PRIMARY KEY,
	received_at   TEXT NOT NULL,
	note_sha256   TEXT NOT NULL,
	top_k         INTEGER NOT NULL,
	request_json  TEXT NOT NULL,
	response_json TEXT NOT NULL,
	duration_ms   REAL NOT NULL,
	items_version TEXT,
	rules_version TEXT
);
`

// SQLiteWriter stores records in a local SQLite database.
type SQLiteWriter struct {
	db          *sql.DB
	includeNote bool
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string, includeNote bool) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteWriter{db: db, includeNote: includeNote}, nil
}

// DB returns the underlying database.
func (w *SQLiteWriter) DB() *sql.DB {
	return w.db
}

// Write implements Writer. The batch is inserted in one transaction.
func (w *SQLiteWriter) Write(ctx context.Context, recs []Record) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO suggest_requests
		 (request_id, received_at, note_sha256, top_k, request_json, response_json, duration_ms, items_version, rules_version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range recs {
		rec := &recs[i]
		req, err := rec.RequestJSON(w.includeNote)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		resp, err := json.Marshal(rec.Response)
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			rec.RequestID,
			rec.ReceivedAt.UTC().Format(time.RFC3339Nano),
			rec.NoteSHA256(),
			rec.TopK,
			string(req),
			string(resp),
			float64(rec.Duration.Microseconds())/1000,
			rec.Response.Meta.ItemsVersion,
			rec.Response.Meta.RulesVersion,
		)
		if err != nil {
			return fmt.Errorf("insert record %s: %w", rec.RequestID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close implements Writer.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
