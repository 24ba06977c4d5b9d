// Package rules evaluates catalog eligibility rules against an episode.
//
// Per-item evaluation covers every kind except the selection-time kinds
// (forbid_with, same_day_exclusive), which pass here and are enforced by
// CheckSelection over a chosen set of codes.
package rules

import (
	"fmt"
	"strings"

	"github.com/gyeh/codesuggest/internal/model"
)

// MarginDuration is the Margins key for surplus minutes over a duration
// minimum.
const MarginDuration = "duration"

const (
	becauseSelectionTime = "checked at selection time"
	becauseNotApplicable = "n/a"
)

// Evaluation is the outcome of evaluating one item's rules.
type Evaluation struct {
	Results     []model.RuleResult
	Margins     map[string]float64
	AnyHardFail bool
	// SoftPassed and SoftTotal count soft rules that were actually checked.
	// Deferred and not-applicable results are excluded.
	SoftPassed int
	SoftTotal  int
}

// SoftPassRatio returns SoftPassed/SoftTotal, or 1 when no soft rule was
// checked.
func (e *Evaluation) SoftPassRatio() float64 {
	if e.SoftTotal == 0 {
		return 1
	}
	return float64(e.SoftPassed) / float64(e.SoftTotal)
}

// Failed returns the ids of failed rules in evaluation order.
func (e *Evaluation) Failed() []string {
	var ids []string
	for _, r := range e.Results {
		if !r.Pass {
			ids = append(ids, r.RuleID)
		}
	}
	return ids
}

// Passed returns the ids of passed rules in evaluation order.
func (e *Evaluation) Passed() []string {
	var ids []string
	for _, r := range e.Results {
		if r.Pass {
			ids = append(ids, r.RuleID)
		}
	}
	return ids
}

// Evaluator evaluates rules. In strict mode unknown rule kinds fail instead
// of passing as not applicable.
type Evaluator struct {
	Strict bool
}

// Evaluate checks every rule whose applies_to contains item.Code, in the
// order given.
func (e Evaluator) Evaluate(item model.CatalogItem, ep *model.Episode, rules []model.RuleEntry) Evaluation {
	ev := Evaluation{Margins: make(map[string]float64)}
	for i := range rules {
		r := &rules[i]
		if !r.AppliesToCode(item.Code) {
			continue
		}

		pass, because, counted := e.evaluate(r, ep, ev.Margins)
		ev.Results = append(ev.Results, model.RuleResult{
			RuleID:  r.ID,
			Pass:    pass,
			Hard:    r.Hard,
			Because: because,
		})

		if r.Hard {
			if !pass {
				ev.AnyHardFail = true
			}
			continue
		}
		if counted {
			ev.SoftTotal++
			if pass {
				ev.SoftPassed++
			}
		}
	}
	return ev
}

// evaluate returns pass, the justification, and whether the result counts
// toward the soft pass ratio.
func (e Evaluator) evaluate(r *model.RuleEntry, ep *model.Episode, margins map[string]float64) (bool, string, bool) {
	switch r.Kind {
	case model.KindMinDurationByLevel:
		return minDuration(r.Params, ep, margins)
	case model.KindEligibilityRequired:
		pass, because := eligibility(r.Params, ep)
		return pass, because, true
	case model.KindLocationMustBe:
		pass, because := locationMustBe(r.Params, ep)
		return pass, because, true
	case model.KindRequireReport:
		pass, because := requireReport(r.Params, ep)
		return pass, because, true
	case model.KindForbidWith, model.KindSameDayExclusive:
		return true, becauseSelectionTime, false
	}
	if e.Strict {
		return false, fmt.Sprintf("unknown rule kind %q", r.Kind), true
	}
	return true, becauseNotApplicable, false
}

func minDuration(p model.RuleParams, ep *model.Episode, margins map[string]float64) (bool, string, bool) {
	if p.Min == nil {
		return true, becauseNotApplicable, false
	}
	if ep.DurationMin == nil {
		return false, fmt.Sprintf("duration missing (need >= %d)", *p.Min), true
	}
	d := *ep.DurationMin
	if d < *p.Min {
		return false, fmt.Sprintf("duration %d < %d", d, *p.Min), true
	}
	margin := float64(d - *p.Min)
	if prev, ok := margins[MarginDuration]; !ok || margin < prev {
		margins[MarginDuration] = margin
	}
	return true, fmt.Sprintf("duration %d >= %d", d, *p.Min), true
}

func locationMustBe(p model.RuleParams, ep *model.Episode) (bool, string) {
	if len(p.Location) == 0 {
		return true, becauseNotApplicable
	}
	if ep.Location == "" {
		return false, fmt.Sprintf("location missing (need %s)", p.Location)
	}
	if p.Location.Contains(string(ep.Location)) {
		return true, fmt.Sprintf("location %s", ep.Location)
	}
	return false, fmt.Sprintf("location %s != %s", ep.Location, p.Location)
}

func requireReport(p model.RuleParams, ep *model.Episode) (bool, string) {
	if ep.ReportPresent {
		return true, "report present"
	}
	if len(p.Procedures) == 0 {
		return false, "report missing"
	}
	var missing []string
	for _, name := range p.Procedures {
		if proc, ok := ep.Procedure(name); !ok || !proc.WithReport {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return true, "report with " + strings.Join(p.Procedures, ", ")
	}
	return false, "no report for " + strings.Join(missing, ", ")
}
