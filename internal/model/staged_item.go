package model

import "math"

// StagedItem is a catalog item bound to the imported version it belongs to,
// in the shape COPY expects.
type StagedItem struct {
	VersionID int64
	Position  int32
	Item      CatalogItem
}

// CopyValues returns the row values in the same order as ItemColumns(),
// suitable for pgx CopyFromSource.
func (s *StagedItem) CopyValues() []any {
	var fee *int64
	if s.Item.ScheduleFee != nil {
		c := int64(math.Round(*s.Item.ScheduleFee * 100))
		fee = &c
	}
	return []any{
		s.VersionID,
		s.Position,
		s.Item.Code,
		s.Item.Title,
		nullIfEmpty(s.Item.Description),
		joinClauses(s.Item.Eligibility),
		joinClauses(s.Item.Restrictions),
		nullIfEmpty(s.Item.Category),
		fee,
	}
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func joinClauses(c []string) *string {
	if len(c) == 0 {
		return nil
	}
	out := c[0]
	for _, s := range c[1:] {
		out += "\n" + s
	}
	return &out
}
