// Package audit records served suggestions out of band. Recording never
// blocks or fails the request that produced it.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gyeh/codesuggest/internal/model"
	"github.com/gyeh/codesuggest/internal/normalize"
)

// Record is one audited suggest call.
type Record struct {
	RequestID  string
	ReceivedAt time.Time
	Note       string
	TopK       int
	Response   model.SuggestResponse
	Duration   time.Duration
}

// NoteSHA256 returns the hex SHA-256 of the note text.
func (r *Record) NoteSHA256() string {
	return normalize.ContentHash([]byte(r.Note))
}

// RequestJSON renders the request payload. The note text is only included
// when includeNote is set; otherwise its length stands in for it.
func (r *Record) RequestJSON(includeNote bool) ([]byte, error) {
	req := map[string]any{
		"top_k":       r.TopK,
		"note_length": len(r.Note),
	}
	if includeNote {
		req["note"] = r.Note
	}
	return json.Marshal(req)
}

// Sink accepts records without blocking.
type Sink interface {
	Record(rec Record)
}

// Writer persists batches of records.
type Writer interface {
	Write(ctx context.Context, recs []Record) error
	Close() error
}

// Discard is a Sink that drops every record.
type Discard struct{}

// Record implements Sink.
func (Discard) Record(Record) {}
