// Package scoring turns retrieval similarity and rule outcomes into a
// calibrated confidence, and renders the short rationale shown with each
// suggestion.
package scoring

import (
	"math"

	"github.com/gyeh/codesuggest/internal/rules"
)

// Tuning constants of the confidence formula.
const (
	marginScaleMin    = 60.0
	maxMarginBonus    = 0.2
	hardFailCap       = 0.3
	softFloor         = 0.7
	sufficiencyFloor  = 0.7
	logisticSteepness = 4.0
	logisticMidpoint  = 0.5
)

// LowConfidenceThreshold is the confidence below which a response carries a
// low-confidence message.
const LowConfidenceThreshold = 0.5

// LowConfidenceMessage is attached to responses whose best item scored
// below LowConfidenceThreshold.
const LowConfidenceMessage = "low confidence: no suggestion reached 0.50, review the note before billing"

// Inputs are the per-item quantities the confidence is computed from.
type Inputs struct {
	BaseSimilarity  float64
	Margins         map[string]float64
	AnyHardFail     bool
	SoftPassRatio   float64
	Sufficiency     float64
	ConflictPenalty float64
}

// FromEvaluation fills the rule-derived inputs from ev.
func FromEvaluation(baseSim, sufficiency float64, ev *rules.Evaluation) Inputs {
	return Inputs{
		BaseSimilarity: baseSim,
		Margins:        ev.Margins,
		AnyHardFail:    ev.AnyHardFail,
		SoftPassRatio:  ev.SoftPassRatio(),
		Sufficiency:    sufficiency,
	}
}

// Raw returns the pre-calibration score in [0,1].
func Raw(in Inputs) float64 {
	bonus := 0.0
	if m, ok := in.Margins[rules.MarginDuration]; ok {
		bonus = clamp(m/marginScaleMin*maxMarginBonus, 0, maxMarginBonus)
	}
	s := clamp(in.BaseSimilarity+bonus, 0, 1)
	if in.AnyHardFail {
		s = math.Min(s, hardFailCap)
	}
	s *= softFloor + (1-softFloor)*clamp(in.SoftPassRatio, 0, 1)
	s *= sufficiencyFloor + (1-sufficiencyFloor)*clamp(in.Sufficiency, 0, 1)
	s *= 1 - clamp(in.ConflictPenalty, 0, 1)
	return s
}

// Confidence maps the raw score through a logistic centred on 0.5.
func Confidence(in Inputs) float64 {
	return Calibrate(Raw(in))
}

// Calibrate is the logistic recentring applied to raw scores.
func Calibrate(score float64) float64 {
	return clamp(1/(1+math.Exp(-logisticSteepness*(score-logisticMidpoint))), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
