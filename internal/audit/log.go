package audit

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// LogWriter writes one structured log line per record.
type LogWriter struct {
	log zerolog.Logger
}

// NewLogWriter creates a LogWriter.
func NewLogWriter(log zerolog.Logger) *LogWriter {
	return &LogWriter{log: log.With().Str("component", "audit").Logger()}
}

// Write implements Writer.
func (w *LogWriter) Write(ctx context.Context, recs []Record) error {
	for i := range recs {
		rec := &recs[i]
		codes := make([]string, len(rec.Response.Items))
		for j, it := range rec.Response.Items {
			codes[j] = it.Code
		}
		w.log.Info().
			Str("request_id", rec.RequestID).
			Str("note_sha256", rec.NoteSHA256()).
			Int("top_k", rec.TopK).
			Str("codes", strings.Join(codes, ",")).
			Str("items_version", rec.Response.Meta.ItemsVersion).
			Str("rules_version", rec.Response.Meta.RulesVersion).
			Strs("pipeline_flags", rec.Response.Meta.PipelineFlags).
			Dur("duration", rec.Duration).
			Msg("suggest audited")
	}
	return nil
}

// Close implements Writer.
func (w *LogWriter) Close() error { return nil }
