package scoring

import (
	"fmt"
	"strings"

	"github.com/gyeh/codesuggest/internal/model"
	"github.com/gyeh/codesuggest/internal/rules"
)

// Separator joins reasoning clauses.
const Separator = " · "

// Explain renders the facts found in the episode followed by rule outcome
// summaries. It is descriptive only.
func Explain(ep *model.Episode, ev *rules.Evaluation) string {
	var parts []string
	if ep.DurationMin != nil {
		parts = append(parts, fmt.Sprintf("%d min", *ep.DurationMin))
	}
	if ep.TelehealthMode != "" {
		parts = append(parts, string(ep.TelehealthMode))
	}
	if ep.Location != "" {
		parts = append(parts, string(ep.Location))
	}
	if ep.HoursBucket != "" && ep.HoursBucket != model.HoursBusiness {
		parts = append(parts, string(ep.HoursBucket))
	}
	if ep.AgeYears != nil {
		parts = append(parts, fmt.Sprintf("age %d", *ep.AgeYears))
	}
	if ep.ReferralPresent {
		parts = append(parts, "referral")
	}
	if ep.ReportPresent {
		parts = append(parts, "report")
	}
	for _, neg := range ep.Negations {
		parts = append(parts, strings.ReplaceAll(neg, "_", " "))
	}

	if ok := ev.Passed(); len(ok) > 0 {
		parts = append(parts, "rules ok: "+strings.Join(ok, ", "))
	}
	if failed := ev.Failed(); len(failed) > 0 {
		parts = append(parts, "rules failed: "+strings.Join(failed, ", "))
	}
	return strings.Join(parts, Separator)
}
