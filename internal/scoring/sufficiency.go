package scoring

import (
	"regexp"
	"strings"

	"github.com/gyeh/codesuggest/internal/model"
	"github.com/gyeh/codesuggest/internal/normalize"
)

// cue maps an eligibility keyword to the evidence tag it requires.
type cue struct {
	tag string
	re  *regexp.Regexp
}

var cues = []cue{
	{model.TagDuration, regexp.MustCompile(`\bminutes?\b|\bmins?\b`)},
	{model.TagLocation, regexp.MustCompile(`\bface[\s-]to[\s-]face\b|\bclinic\b`)},
	{model.TagMode, regexp.MustCompile(`\bvideo\b|\btelehealth\b|\bphone\b`)},
	{model.TagReferral, regexp.MustCompile(`\breferral\b`)},
	{model.TagReport, regexp.MustCompile(`\breport\b|\binterpretation\b`)},
	{model.TagHoursBucket, regexp.MustCompile(`\bafter[\s-]?hours\b|\bpublic holiday\b`)},
	{model.TagAge, regexp.MustCompile(`\bchild(?:ren)?\b|\byears?\b|\bage\b`)},
}

// RequiredTags returns the evidence tags an item's eligibility clauses call
// for, in cue order.
func RequiredTags(item model.CatalogItem) []string {
	text := normalize.Text(strings.Join(item.Eligibility, " \n "))
	if text == "" {
		return nil
	}
	var tags []string
	for _, c := range cues {
		if c.re.MatchString(text) {
			tags = append(tags, c.tag)
		}
	}
	return tags
}

// Sufficiency is the share of required evidence tags present in the
// episode, or 1 when the item requires none.
func Sufficiency(item model.CatalogItem, ep *model.Episode) float64 {
	required := RequiredTags(item)
	if len(required) == 0 {
		return 1
	}
	have := ep.EvidenceTags()
	n := 0
	for _, t := range required {
		if have[t] {
			n++
		}
	}
	return float64(n) / float64(len(required))
}
