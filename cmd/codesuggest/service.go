package main

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/gyeh/codesuggest/internal/audit"
	"github.com/gyeh/codesuggest/internal/catalog"
	"github.com/gyeh/codesuggest/internal/config"
	"github.com/gyeh/codesuggest/internal/exitcode"
	"github.com/gyeh/codesuggest/internal/metrics"
	"github.com/gyeh/codesuggest/internal/retrieval"
	"github.com/gyeh/codesuggest/internal/rules"
	"github.com/gyeh/codesuggest/internal/suggest"
)

// pipeline is the assembled suggestion service and the resources it owns.
type pipeline struct {
	service *suggest.Service
	store   *catalog.Store
	sink    *audit.AsyncSink // nil when auditing is off
	pool    *pgxpool.Pool    // nil unless Postgres is configured
}

// buildPipeline wires the catalog store, retriever, evaluator, metrics and
// audit sink from cfg. reg may be nil. Failures exit the process.
func buildPipeline(ctx context.Context, log zerolog.Logger, reg prometheus.Registerer, auditSink string) *pipeline {
	p := &pipeline{}
	if cfg.Catalog.Source == config.SourcePostgres || auditSink == config.AuditPostgres {
		p.pool = connect(ctx, log)
	}

	p.store = catalog.NewStore(catalogSourceFor(log, p.pool), log)
	p.store.Reload(ctx)

	var searcher retrieval.Searcher
	if cfg.Semantic.Enabled {
		searcher = retrieval.NewHTTPSearcher(cfg.Semantic.URL, cfg.Semantic.APIKey, cfg.Semantic.Timeout)
	}
	retriever := retrieval.New(retrieval.Options{
		RerankWeight:       cfg.Retrieval.RerankWeight,
		SemanticTimeout:    cfg.Semantic.Timeout,
		SemanticCandidates: cfg.Semantic.Candidates,
	}, searcher, log)

	rec := metrics.NewRecorder(reg)

	var sink audit.Sink
	if w := auditWriter(log, p.pool, auditSink); w != nil {
		p.sink = audit.NewAsyncSink(w, audit.AsyncOptions{
			Buffer:        cfg.Audit.Buffer,
			BatchSize:     cfg.Audit.BatchSize,
			FlushInterval: cfg.Audit.FlushInterval,
			OnEvent:       rec.Inc,
		}, log)
		sink = p.sink
	}

	p.service = suggest.New(p.store, retriever, rules.Evaluator{Strict: cfg.Rules.StrictUnknownKinds}, sink, rec, suggest.Options{
		DefaultTopK:            cfg.Suggest.DefaultTopK,
		MaxEvidence:            cfg.Suggest.MaxEvidence,
		LowConfidenceThreshold: cfg.Suggest.LowConfidenceThreshold,
	}, log)
	return p
}

func auditWriter(log zerolog.Logger, pool *pgxpool.Pool, kind string) audit.Writer {
	switch kind {
	case config.AuditLog:
		return audit.NewLogWriter(log)
	case config.AuditPostgres:
		return audit.NewPGWriter(pool, cfg.Audit.IncludeNote)
	case config.AuditSQLite:
		w, err := audit.OpenSQLite(cfg.Audit.SQLitePath, cfg.Audit.IncludeNote)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.Audit.SQLitePath).Msg("audit database unavailable")
			os.Exit(exitcode.UsageError)
		}
		return w
	}
	return nil
}

// close drains the audit sink and releases the pool.
func (p *pipeline) close(ctx context.Context, log zerolog.Logger) {
	if p.sink != nil {
		if err := p.sink.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("audit sink did not drain")
		}
	}
	if p.pool != nil {
		p.pool.Close()
	}
}
