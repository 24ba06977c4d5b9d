// Package ingest imports a catalog document (items + rules) into Postgres as
// a new version and activates it.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/codesuggest/internal/model"
)

// PipelineError wraps an error with the phase where it occurred.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Options controls one import run.
type Options struct {
	ItemsPath string
	RulesPath string
	// Force re-imports a document whose hash is already active.
	Force bool
	// Activate makes the imported version the active one.
	Activate bool
	// KeepOld skips pruning of inactive versions.
	KeepOld bool
	// Strict rejects documents containing unknown rule kinds.
	Strict bool
}

// Run executes the full import pipeline: preflight → stage → finalize →
// cleanup.
func Run(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, opts Options) (*model.ImportSummary, error) {
	totalStart := time.Now()

	// Phase 1: Preflight
	log.Info().Str("items", opts.ItemsPath).Str("rules", opts.RulesPath).Msg("starting preflight")
	pf, err := Preflight(ctx, pool, log, opts)
	if err != nil {
		return nil, &PipelineError{Phase: "preflight", Err: err}
	}

	summary := &model.ImportSummary{
		ItemsPath:      opts.ItemsPath,
		RulesPath:      opts.RulesPath,
		DocumentSHA256: pf.DocumentSHA256,
		VersionID:      pf.VersionID,
		ImportBatchID:  pf.ImportBatchID.String(),
		Versions:       pf.Versions,
		ItemsRead:      int64(len(pf.Items)),
	}

	if pf.AlreadyLoaded {
		log.Info().
			Int64("version_id", pf.VersionID).
			Str("sha256", pf.DocumentSHA256).
			Msg("catalog already imported, skipping (use --force to re-import)")
		summary.Skipped = true
		summary.DurationTotal = time.Since(totalStart)
		return summary, nil
	}

	// Phase 2: Stage
	log.Info().Msg("starting staging")
	if err := UpdateStatus(ctx, pool, pf.VersionID, "staging"); err != nil {
		return nil, &PipelineError{Phase: "stage", Err: err}
	}

	stageResult, err := Stage(ctx, pool, log, pf)
	if err != nil {
		_ = UpdateStatus(ctx, pool, pf.VersionID, "failed")
		return nil, &PipelineError{Phase: "stage", Err: err}
	}

	if err := UpdateStatus(ctx, pool, pf.VersionID, "staged"); err != nil {
		return nil, &PipelineError{Phase: "stage", Err: err}
	}

	// Phase 3: Finalize
	log.Info().Msg("finalizing")
	finalizeDur, err := Finalize(ctx, pool, log, pf.VersionID, opts.Activate)
	if err != nil {
		_ = UpdateStatus(ctx, pool, pf.VersionID, "failed")
		return nil, &PipelineError{Phase: "finalize", Err: err}
	}

	// Phase 4: Prune inactive versions
	var pruned int64
	if !opts.KeepOld && opts.Activate {
		log.Info().Msg("pruning inactive versions")
		pruned, err = Cleanup(ctx, pool, log, pf.VersionID)
		if err != nil {
			log.Warn().Err(err).Msg("version cleanup failed (non-fatal)")
		}
	}

	summary.ItemsStaged = stageResult.ItemsStaged
	summary.ItemsRejected = stageResult.ItemsRejected
	summary.RulesInserted = stageResult.RulesInserted
	summary.VersionsPruned = pruned
	summary.DurationStage = stageResult.Duration
	summary.DurationFinalize = finalizeDur
	summary.DurationTotal = time.Since(totalStart)

	log.Info().
		Int64("items_read", summary.ItemsRead).
		Int64("items_staged", summary.ItemsStaged).
		Int64("items_rejected", summary.ItemsRejected).
		Int64("rules_inserted", summary.RulesInserted).
		Int64("versions_pruned", summary.VersionsPruned).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("import pipeline complete")

	return summary, nil
}
