package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/codesuggest/internal/model"
)

// Loaded is what a Source read. Each collection succeeds or fails on its own.
type Loaded struct {
	Items        []model.CatalogItem
	ItemsVersion string
	ItemsErr     error

	Rules        []model.RuleEntry
	RulesVersion string
	RulesErr     error
}

// Source reads catalog items and rules from backing storage.
type Source interface {
	Load(ctx context.Context) Loaded
	String() string
}

// Store serves the current catalog bundle and swaps in new ones on Reload.
type Store struct {
	source Source
	log    zerolog.Logger

	current atomic.Pointer[Bundle]

	mu       sync.Mutex // serializes reloads
	onReload []func(*Bundle)
}

// NewStore creates a store holding an empty bundle. Call Reload to load
// the source.
func NewStore(source Source, log zerolog.Logger) *Store {
	s := &Store{
		source: source,
		log:    log.With().Str("component", "catalog").Logger(),
	}
	s.current.Store(Empty())
	return s
}

// Bundle returns the current snapshot. It never returns nil.
func (s *Store) Bundle() *Bundle {
	return s.current.Load()
}

// OnReload registers fn to be called with every newly published bundle.
func (s *Store) OnReload(fn func(*Bundle)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReload = append(s.onReload, fn)
}

// Reload re-reads the source and publishes a new bundle. A collection that
// fails to load degrades to empty with version "unknown"; Reload itself
// never fails.
func (s *Store) Reload(ctx context.Context) model.Versions {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	ld := s.source.Load(ctx)

	versions := model.Versions{Items: ld.ItemsVersion, Rules: ld.RulesVersion}
	items, rules := ld.Items, ld.Rules
	if ld.ItemsErr != nil {
		s.log.Warn().Err(ld.ItemsErr).Str("source", s.source.String()).Msg("catalog items unavailable, serving empty item set")
		items, versions.Items = nil, model.UnknownVersion
	}
	if ld.RulesErr != nil {
		s.log.Warn().Err(ld.RulesErr).Str("source", s.source.String()).Msg("catalog rules unavailable, serving empty rule set")
		rules, versions.Rules = nil, model.UnknownVersion
	}
	if versions.Items == "" {
		versions.Items = model.UnknownVersion
	}
	if versions.Rules == "" {
		versions.Rules = model.UnknownVersion
	}

	if rep := Inspect(items, rules, versions); !rep.OK(false) || len(rep.UnknownKinds) > 0 {
		s.log.Warn().
			Strs("duplicate_codes", rep.DuplicateCodes).
			Strs("duplicate_rule_ids", rep.DuplicateRuleIDs).
			Strs("unknown_kinds", rep.UnknownKinds).
			Int("rules_with_dangling_codes", len(rep.DanglingCodes)).
			Msg("catalog has inconsistencies")
	}

	b := NewBundle(items, rules, versions, time.Now().UTC())
	s.current.Store(b)

	s.log.Info().
		Str("items_version", versions.Items).
		Str("rules_version", versions.Rules).
		Int("items", len(b.Items)).
		Int("rules", len(b.Rules)).
		Dur("duration", time.Since(start)).
		Msg("catalog reloaded")

	for _, fn := range s.onReload {
		fn(b)
	}
	return versions
}
