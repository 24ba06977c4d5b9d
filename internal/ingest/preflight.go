package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/codesuggest/internal/catalog"
	"github.com/gyeh/codesuggest/internal/model"
	"github.com/gyeh/codesuggest/internal/normalize"
	embedsql "github.com/gyeh/codesuggest/internal/sql"
)

// PreflightResult holds all context resolved during the preflight phase.
type PreflightResult struct {
	// DocumentSHA256 identifies the (items, rules) pair: a hash over both
	// file hashes.
	DocumentSHA256 string
	// Versions are the declared (or hash-derived) collection versions.
	Versions model.Versions
	// VersionID is the catalog.versions primary key, inserted or looked up
	// by document hash.
	VersionID int64
	// ImportBatchID uniquely identifies this import run.
	ImportBatchID uuid.UUID
	// Items and Rules are the parsed, normalized document contents.
	Items []model.CatalogItem
	Rules []model.RuleEntry
	// AlreadyLoaded is true when the document hash is already the active
	// version and force mode is off.
	AlreadyLoaded bool
}

// Preflight hashes and parses both documents, validates them, and registers
// the version.
func Preflight(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, opts Options) (*PreflightResult, error) {
	start := time.Now()

	itemsSHA, err := normalize.FileHash(opts.ItemsPath)
	if err != nil {
		return nil, fmt.Errorf("preflight hash items: %w", err)
	}
	rulesSHA, err := normalize.FileHash(opts.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("preflight hash rules: %w", err)
	}
	sha := normalize.ContentHash([]byte(itemsSHA), []byte(rulesSHA))

	items, itemsVersion, err := catalog.ReadItemsFile(opts.ItemsPath)
	if err != nil {
		return nil, fmt.Errorf("preflight parse: %w", err)
	}
	rules, rulesVersion, err := catalog.ReadRulesFile(opts.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("preflight parse: %w", err)
	}
	versions := model.Versions{Items: itemsVersion, Rules: rulesVersion}

	if err := validate(catalog.Inspect(items, rules, versions), opts.Strict); err != nil {
		return nil, fmt.Errorf("preflight validate: %w", err)
	}

	log.Info().
		Str("sha256", sha).
		Str("items_version", versions.Items).
		Str("rules_version", versions.Rules).
		Int("items", len(items)).
		Int("rules", len(rules)).
		Dur("duration", time.Since(start)).
		Msg("preflight complete")

	batchID := uuid.New()
	versionID, alreadyLoaded, err := registerVersion(ctx, pool, versions, sha, batchID, opts.Force)
	if err != nil {
		return nil, fmt.Errorf("preflight register version: %w", err)
	}

	return &PreflightResult{
		DocumentSHA256: sha,
		Versions:       versions,
		VersionID:      versionID,
		ImportBatchID:  batchID,
		Items:          items,
		Rules:          rules,
		AlreadyLoaded:  alreadyLoaded,
	}, nil
}

func validate(rep *catalog.Report, strict bool) error {
	var problems []string
	if len(rep.DuplicateCodes) > 0 {
		problems = append(problems, "duplicate item codes "+strings.Join(rep.DuplicateCodes, ", "))
	}
	if len(rep.DuplicateRuleIDs) > 0 {
		problems = append(problems, "duplicate rule ids "+strings.Join(rep.DuplicateRuleIDs, ", "))
	}
	ids := make([]string, 0, len(rep.DanglingCodes))
	for id := range rep.DanglingCodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		problems = append(problems, fmt.Sprintf("rule %s references unknown codes %s", id, strings.Join(rep.DanglingCodes[id], ", ")))
	}
	if strict && len(rep.UnknownKinds) > 0 {
		problems = append(problems, "unknown rule kinds "+strings.Join(rep.UnknownKinds, ", "))
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(problems, "; "))
}

func registerVersion(ctx context.Context, pool *pgxpool.Pool, v model.Versions, sha string, batchID uuid.UUID, force bool) (int64, bool, error) {
	var versionID int64
	err := pool.QueryRow(ctx, embedsql.RegisterVersion, v.Items, v.Rules, sha, batchID).Scan(&versionID)
	if err == nil {
		return versionID, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("register version: %w", err)
	}

	// Already exists (ON CONFLICT DO NOTHING returned no rows)
	var status string
	if err := pool.QueryRow(ctx, embedsql.LookupVersion, sha).Scan(&versionID, &status); err != nil {
		return 0, false, fmt.Errorf("lookup existing version: %w", err)
	}
	if !force && status == "active" {
		return versionID, true, nil
	}

	// Reset status for re-import
	if err := UpdateStatus(ctx, pool, versionID, "pending"); err != nil {
		return 0, false, fmt.Errorf("reset version status: %w", err)
	}
	return versionID, false, nil
}
