package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/codesuggest/internal/model"
	"github.com/gyeh/codesuggest/internal/normalize"
	embedsql "github.com/gyeh/codesuggest/internal/sql"
)

// ErrNoActiveVersion is returned when the database holds no active catalog
// version.
var ErrNoActiveVersion = errors.New("no active catalog version")

// PGSource loads the active imported catalog version from Postgres.
type PGSource struct {
	Pool *pgxpool.Pool
}

func (s *PGSource) String() string {
	return "postgres"
}

// Load implements Source. Items and rules are read in one repeatable-read
// transaction so both come from the same active version.
func (s *PGSource) Load(ctx context.Context) Loaded {
	var ld Loaded

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		err = fmt.Errorf("begin catalog read: %w", err)
		ld.ItemsErr, ld.RulesErr = err, err
		return ld
	}
	defer tx.Rollback(ctx)

	var versionID int64
	err = tx.QueryRow(ctx, embedsql.SelectActiveVersion).Scan(&versionID, &ld.ItemsVersion, &ld.RulesVersion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrNoActiveVersion
		} else {
			err = fmt.Errorf("select active version: %w", err)
		}
		ld.ItemsErr, ld.RulesErr = err, err
		return ld
	}

	ld.Items, ld.ItemsErr = loadItems(ctx, tx)
	ld.Rules, ld.RulesErr = loadRules(ctx, tx)
	return ld
}

func loadItems(ctx context.Context, tx pgx.Tx) ([]model.CatalogItem, error) {
	rows, err := tx.Query(ctx, embedsql.SelectActiveItems)
	if err != nil {
		return nil, fmt.Errorf("select active items: %w", err)
	}
	defer rows.Close()

	var items []model.CatalogItem
	for rows.Next() {
		var (
			it                          model.CatalogItem
			desc, elig, restr, category *string
			feeCents                    *int64
		)
		if err := rows.Scan(&it.Code, &it.Title, &desc, &elig, &restr, &category, &feeCents); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		if desc != nil {
			it.Description = *desc
		}
		if category != nil {
			it.Category = *category
		}
		it.Eligibility = normalize.SplitLines(elig)
		it.Restrictions = normalize.SplitLines(restr)
		it.ScheduleFee = normalize.CentsToDollars(feeCents)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func loadRules(ctx context.Context, tx pgx.Tx) ([]model.RuleEntry, error) {
	rows, err := tx.Query(ctx, embedsql.SelectActiveRules)
	if err != nil {
		return nil, fmt.Errorf("select active rules: %w", err)
	}
	defer rows.Close()

	var rules []model.RuleEntry
	for rows.Next() {
		var (
			r      model.RuleEntry
			kind   string
			params []byte
		)
		if err := rows.Scan(&r.ID, &kind, &r.AppliesTo, &params, &r.Hard); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.Kind = model.RuleKind(kind)
		if len(params) > 0 {
			if err := json.Unmarshal(params, &r.Params); err != nil {
				return nil, fmt.Errorf("decode parameters of rule %s: %w", r.ID, err)
			}
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return rules, nil
}
