package normalize

import (
	"regexp"
	"strings"
)

var nonCodeChars = regexp.MustCompile(`[^A-Za-z0-9.\-]`)

// NormalizeCode trims whitespace, uppercases, and strips characters that never
// appear in item codes. Returns "" if nothing is left.
func NormalizeCode(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return ""
	}
	s = strings.ToUpper(s)
	return nonCodeChars.ReplaceAllString(s, "")
}

// NormalizeCodes normalizes every code and drops empties and duplicates,
// preserving first-seen order.
func NormalizeCodes(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		n := NormalizeCode(c)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
