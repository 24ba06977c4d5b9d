package suggest

import (
	"github.com/gyeh/codesuggest/internal/model"
	"github.com/gyeh/codesuggest/internal/normalize"
	"github.com/gyeh/codesuggest/internal/rules"
)

// SelectionResult is the outcome of validating a chosen set of codes.
type SelectionResult struct {
	Codes     []string         `json:"codes"`
	Unknown   []string         `json:"unknown_codes,omitempty"`
	Conflicts []model.Conflict `json:"conflicts"`
	// Valid is false when any hard conflict was found.
	Valid    bool           `json:"valid"`
	Versions model.Versions `json:"versions"`
}

// ValidateSelection checks the selection-time rules (forbid_with,
// same_day_exclusive) over codes against the current catalog.
func (s *Service) ValidateSelection(codes []string) SelectionResult {
	b := s.store.Bundle()
	norm := normalize.NormalizeCodes(codes)

	res := SelectionResult{
		Codes:     norm,
		Conflicts: rules.CheckSelection(norm, b.Rules),
		Valid:     true,
		Versions:  b.Versions,
	}
	if res.Codes == nil {
		res.Codes = []string{}
	}
	if res.Conflicts == nil {
		res.Conflicts = []model.Conflict{}
	}
	for _, c := range norm {
		if _, ok := b.Item(c); !ok {
			res.Unknown = append(res.Unknown, c)
		}
	}
	for _, c := range res.Conflicts {
		if c.Hard {
			res.Valid = false
		}
	}
	return res
}
