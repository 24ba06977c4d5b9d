package rules

import (
	"fmt"
	"strings"

	"github.com/gyeh/codesuggest/internal/model"
)

// CheckSelection enforces the selection-time kinds over a set of chosen
// codes. Codes must already be normalized. Conflicts are returned in rule
// order, with codes in selection order.
func CheckSelection(codes []string, rules []model.RuleEntry) []model.Conflict {
	selected := make(map[string]bool, len(codes))
	for _, c := range codes {
		selected[c] = true
	}

	var out []model.Conflict
	for i := range rules {
		r := &rules[i]
		switch r.Kind {
		case model.KindForbidWith:
			if c, ok := forbidWith(r, codes, selected); ok {
				out = append(out, c)
			}
		case model.KindSameDayExclusive:
			if c, ok := sameDayExclusive(r, codes); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// forbidWith conflicts when a selected code the rule applies to is combined
// with any selected code from the forbidden list.
func forbidWith(r *model.RuleEntry, codes []string, selected map[string]bool) (model.Conflict, bool) {
	var owners, forbidden []string
	for _, c := range codes {
		if r.AppliesToCode(c) {
			owners = append(owners, c)
		}
	}
	if len(owners) == 0 {
		return model.Conflict{}, false
	}
	for _, c := range r.Params.Codes {
		if selected[c] && !contains(owners, c) {
			forbidden = append(forbidden, c)
		}
	}
	if len(forbidden) == 0 {
		return model.Conflict{}, false
	}
	return model.Conflict{
		RuleID: r.ID,
		Kind:   r.Kind,
		Codes:  append(owners, forbidden...),
		Hard:   r.Hard,
		Reason: fmt.Sprintf("%s cannot be claimed with %s", strings.Join(owners, ", "), strings.Join(forbidden, ", ")),
	}, true
}

// sameDayExclusive conflicts when two or more selected codes fall in the
// rule's exclusive group: parameters.codes, or applies_to when unset.
func sameDayExclusive(r *model.RuleEntry, codes []string) (model.Conflict, bool) {
	group := r.Params.Codes
	if len(group) == 0 {
		group = r.AppliesTo
	}
	var hit []string
	for _, c := range codes {
		if contains(group, c) && !contains(hit, c) {
			hit = append(hit, c)
		}
	}
	if len(hit) < 2 {
		return model.Conflict{}, false
	}
	return model.Conflict{
		RuleID: r.ID,
		Kind:   r.Kind,
		Codes:  hit,
		Hard:   r.Hard,
		Reason: fmt.Sprintf("only one of %s may be claimed on the same day", strings.Join(hit, ", ")),
	}, true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
