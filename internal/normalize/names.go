package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var multiSpace = regexp.MustCompile(`\s+`)

// Text applies NFKC folding (full-width to ASCII, compatibility forms),
// lowercases, collapses whitespace, and trims.
func Text(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	return strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
}

// Clause trims a free-text catalog clause and collapses inner whitespace
// without changing case.
func Clause(s string) string {
	s = strings.TrimSpace(norm.NFKC.String(s))
	return multiSpace.ReplaceAllString(s, " ")
}

// Clauses cleans each clause and drops empties.
func Clauses(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, c := range in {
		if c = Clause(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// SplitLines splits a newline-joined clause list.
func SplitLines(s *string) []string {
	if s == nil {
		return nil
	}
	return Clauses(strings.Split(*s, "\n"))
}

// JoinLines is the inverse of SplitLines. Returns nil for an empty list.
func JoinLines(clauses []string) *string {
	if len(clauses) == 0 {
		return nil
	}
	s := strings.Join(clauses, "\n")
	return &s
}
