package normalize

import (
	"github.com/gyeh/codesuggest/internal/model"
)

// Item cleans a catalog item loaded from any source. Returns ok=false when
// the item has no usable code.
func Item(it model.CatalogItem) (model.CatalogItem, bool) {
	it.Code = NormalizeCode(it.Code)
	if it.Code == "" {
		return model.CatalogItem{}, false
	}
	it.Title = Clause(it.Title)
	it.Description = Clause(it.Description)
	it.Eligibility = Clauses(it.Eligibility)
	it.Restrictions = Clauses(it.Restrictions)
	it.Category = Clause(it.Category)
	return it, true
}

// Rule cleans a rule entry: codes are normalized so that applies_to matches
// normalized item codes.
func Rule(r model.RuleEntry) model.RuleEntry {
	r.AppliesTo = NormalizeCodes(r.AppliesTo)
	r.Params.Codes = NormalizeCodes(r.Params.Codes)
	return r
}

// FromItemRow converts a Parquet-read CatalogItemRow into a normalized CatalogItem.
func FromItemRow(row *model.CatalogItemRow) (model.CatalogItem, bool) {
	return Item(model.CatalogItem{
		Code:         row.Code,
		Title:        row.Title,
		Description:  derefStr(row.Description),
		Eligibility:  SplitLines(row.Eligibility),
		Restrictions: SplitLines(row.Restrictions),
		Category:     derefStr(row.Category),
		ScheduleFee:  row.ScheduleFee,
	})
}

// ToItemRow converts a CatalogItem into its Parquet row form.
func ToItemRow(it model.CatalogItem, version string) model.CatalogItemRow {
	return model.CatalogItemRow{
		Code:         it.Code,
		Title:        it.Title,
		Description:  optStr(it.Description),
		Eligibility:  JoinLines(it.Eligibility),
		Restrictions: JoinLines(it.Restrictions),
		Category:     optStr(it.Category),
		ScheduleFee:  it.ScheduleFee,
		Version:      optStr(version),
	}
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
