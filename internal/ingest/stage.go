package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/codesuggest/internal/db"
	"github.com/gyeh/codesuggest/internal/model"
	embedsql "github.com/gyeh/codesuggest/internal/sql"
)

const copyBufferSize = 1024

// StageResult holds metrics from the staging phase.
type StageResult struct {
	ItemsStaged   int64
	ItemsRejected int64
	RulesInserted int64
	Duration      time.Duration
}

// Stage replaces the version's items and rules in one transaction. Items are
// COPY-loaded via a channel-backed CopyFromSource; rules are sent as one
// batch.
func Stage(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, pf *PreflightResult) (*StageResult, error) {
	start := time.Now()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("stage begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, embedsql.DeleteVersionItems, pf.VersionID); err != nil {
		return nil, fmt.Errorf("clear version items: %w", err)
	}
	if _, err := tx.Exec(ctx, embedsql.DeleteVersionRules, pf.VersionID); err != nil {
		return nil, fmt.Errorf("clear version rules: %w", err)
	}

	ch := make(chan *model.StagedItem, copyBufferSize)
	errCh := make(chan error, 1)
	var itemsRejected int64

	// Producer goroutine: filter → bind to version → push to channel
	go func() {
		defer close(ch)
		var pos int32
		for i := range pf.Items {
			it := pf.Items[i]
			if strings.TrimSpace(it.Title) == "" {
				itemsRejected++
				log.Warn().Str("code", it.Code).Msg("item rejected: empty title")
				continue
			}
			pos++
			select {
			case ch <- &model.StagedItem{VersionID: pf.VersionID, Position: pos, Item: it}:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		errCh <- nil
	}()

	// Consumer: COPY from channel into catalog.items
	source := db.NewChannelSource(ch)
	itemsStaged, err := tx.CopyFrom(ctx,
		pgx.Identifier{"catalog", "items"},
		model.ItemColumns(),
		source,
	)
	if err != nil {
		// Unblock the producer before waiting on it.
		for range ch {
		}
	}

	// Wait for producer to finish
	prodErr := <-errCh
	if prodErr != nil {
		return nil, fmt.Errorf("stage producer: %w", prodErr)
	}
	if err != nil {
		return nil, fmt.Errorf("stage copy: %w", err)
	}

	rulesInserted, err := insertRules(ctx, tx, pf.VersionID, pf.Rules)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("stage commit: %w", err)
	}

	dur := time.Since(start)
	log.Info().
		Int64("items_staged", itemsStaged).
		Int64("items_rejected", itemsRejected).
		Int64("rules_inserted", rulesInserted).
		Str("duration", dur.String()).
		Msg("staging complete")

	return &StageResult{
		ItemsStaged:   itemsStaged,
		ItemsRejected: itemsRejected,
		RulesInserted: rulesInserted,
		Duration:      dur,
	}, nil
}

func insertRules(ctx context.Context, tx pgx.Tx, versionID int64, rules []model.RuleEntry) (int64, error) {
	if len(rules) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for i, r := range rules {
		params, err := json.Marshal(r.Params)
		if err != nil {
			return 0, fmt.Errorf("encode parameters of rule %s: %w", r.ID, err)
		}
		appliesTo := r.AppliesTo
		if appliesTo == nil {
			appliesTo = []string{}
		}
		batch.Queue(embedsql.InsertRule, versionID, int32(i+1), r.ID, string(r.Kind), appliesTo, params, r.Hard)
	}

	br := tx.SendBatch(ctx, batch)
	var inserted int64
	for _, r := range rules {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return 0, fmt.Errorf("insert rule %s: %w", r.ID, err)
		}
		inserted += tag.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("insert rules: %w", err)
	}
	return inserted, nil
}

// UpdateStatus updates the catalog version status.
func UpdateStatus(ctx context.Context, pool *pgxpool.Pool, versionID int64, status string) error {
	_, err := pool.Exec(ctx, embedsql.UpdateVersionStatus, versionID, status)
	return err
}
