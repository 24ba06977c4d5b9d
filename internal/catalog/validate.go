package catalog

import (
	"sort"

	"github.com/gyeh/codesuggest/internal/model"
)

// Report summarizes a catalog for the check command and reload logging.
type Report struct {
	Versions         model.Versions
	Items            int
	Rules            int
	KindCounts       map[model.RuleKind]int
	HardRules        int
	DuplicateCodes   []string
	DuplicateRuleIDs []string
	UnknownKinds     []string
	EmptyAppliesTo   []string

	// DanglingCodes maps rule id to applies_to codes with no matching item.
	DanglingCodes map[string][]string
}

// OK reports whether the catalog has no structural problems. Unknown kinds
// only count as problems when strict is set.
func (r *Report) OK(strict bool) bool {
	if len(r.DuplicateCodes) > 0 || len(r.DuplicateRuleIDs) > 0 || len(r.DanglingCodes) > 0 {
		return false
	}
	return !strict || len(r.UnknownKinds) == 0
}

// Inspect builds a Report over raw, not yet deduplicated, items and rules.
func Inspect(items []model.CatalogItem, rules []model.RuleEntry, versions model.Versions) *Report {
	r := &Report{
		Versions:      versions,
		Items:         len(items),
		Rules:         len(rules),
		KindCounts:    make(map[model.RuleKind]int),
		DanglingCodes: make(map[string][]string),
	}

	codes := make(map[string]bool, len(items))
	for _, it := range items {
		if codes[it.Code] {
			r.DuplicateCodes = append(r.DuplicateCodes, it.Code)
			continue
		}
		codes[it.Code] = true
	}

	ids := make(map[string]bool, len(rules))
	unknown := make(map[string]bool)
	for _, rule := range rules {
		if ids[rule.ID] {
			r.DuplicateRuleIDs = append(r.DuplicateRuleIDs, rule.ID)
		}
		ids[rule.ID] = true

		r.KindCounts[rule.Kind]++
		if rule.Hard {
			r.HardRules++
		}
		if !rule.Kind.Known() && !unknown[string(rule.Kind)] {
			unknown[string(rule.Kind)] = true
			r.UnknownKinds = append(r.UnknownKinds, string(rule.Kind))
		}
		if len(rule.AppliesTo) == 0 {
			r.EmptyAppliesTo = append(r.EmptyAppliesTo, rule.ID)
		}
		// Items version unknown means there is nothing to check against.
		if versions.Items == model.UnknownVersion {
			continue
		}
		for _, c := range rule.AppliesTo {
			if !codes[c] {
				r.DanglingCodes[rule.ID] = append(r.DanglingCodes[rule.ID], c)
			}
		}
	}
	sort.Strings(r.UnknownKinds)
	return r
}

// SortedKinds returns the kinds present in the report in a stable order:
// known kinds first in canonical order, then unknown kinds alphabetically.
func (r *Report) SortedKinds() []model.RuleKind {
	var out []model.RuleKind
	for _, k := range model.AllRuleKinds {
		if r.KindCounts[k] > 0 {
			out = append(out, k)
		}
	}
	for _, k := range r.UnknownKinds {
		out = append(out, model.RuleKind(k))
	}
	return out
}
