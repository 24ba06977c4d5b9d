// Package catalog holds the versioned knowledge base of billable items and
// eligibility rules.
//
// A Bundle is an immutable snapshot. Store publishes bundles through a single
// atomic pointer swap, so concurrent readers always see one complete
// {items, rules, versions} triple.
package catalog

import (
	"time"

	"github.com/gyeh/codesuggest/internal/model"
)

// Bundle is one immutable catalog snapshot. Callers must not modify the
// slices it exposes.
type Bundle struct {
	Items    []model.CatalogItem
	Rules    []model.RuleEntry
	Versions model.Versions
	LoadedAt time.Time

	byCode      map[string]int
	rulesByCode map[string][]int
}

// NewBundle builds a bundle and its lookup indexes. Duplicate item codes and
// rule ids keep their first occurrence.
func NewBundle(items []model.CatalogItem, rules []model.RuleEntry, versions model.Versions, loadedAt time.Time) *Bundle {
	b := &Bundle{
		Versions:    versions,
		LoadedAt:    loadedAt,
		byCode:      make(map[string]int, len(items)),
		rulesByCode: make(map[string][]int),
	}

	b.Items = make([]model.CatalogItem, 0, len(items))
	for _, it := range items {
		if _, dup := b.byCode[it.Code]; dup {
			continue
		}
		b.byCode[it.Code] = len(b.Items)
		b.Items = append(b.Items, it)
	}

	seen := make(map[string]bool, len(rules))
	b.Rules = make([]model.RuleEntry, 0, len(rules))
	for _, r := range rules {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		idx := len(b.Rules)
		b.Rules = append(b.Rules, r)
		for _, code := range r.AppliesTo {
			b.rulesByCode[code] = append(b.rulesByCode[code], idx)
		}
	}
	return b
}

// Empty returns a bundle with no items or rules and unknown versions.
func Empty() *Bundle {
	return NewBundle(nil, nil, model.Versions{Items: model.UnknownVersion, Rules: model.UnknownVersion}, time.Time{})
}

// Item returns the item with the given code, or ok=false.
func (b *Bundle) Item(code string) (model.CatalogItem, bool) {
	i, ok := b.byCode[code]
	if !ok {
		return model.CatalogItem{}, false
	}
	return b.Items[i], true
}

// RulesFor returns the rules whose applies_to contains code, in rule-book order.
func (b *Bundle) RulesFor(code string) []model.RuleEntry {
	idx := b.rulesByCode[code]
	if len(idx) == 0 {
		return nil
	}
	out := make([]model.RuleEntry, len(idx))
	for i, j := range idx {
		out[i] = b.Rules[j]
	}
	return out
}
