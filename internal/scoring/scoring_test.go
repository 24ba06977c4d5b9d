package scoring

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/gyeh/codesuggest/internal/extract"
	"github.com/gyeh/codesuggest/internal/model"
	"github.com/gyeh/codesuggest/internal/rules"
)

func TestConfidence_Bounds(t *testing.T) {
	for _, base := range []float64{-1, 0, 0.1, 0.5, 0.9, 1, 3, math.NaN()} {
		for _, hard := range []bool{false, true} {
			for _, ratio := range []float64{0, 0.5, 1} {
				c := Confidence(Inputs{BaseSimilarity: base, AnyHardFail: hard, SoftPassRatio: ratio, Sufficiency: ratio,
					Margins: map[string]float64{rules.MarginDuration: 500}})
				if c < 0 || c > 1 || math.IsNaN(c) {
					t.Errorf("base=%v hard=%v ratio=%v: confidence %v out of [0,1]", base, hard, ratio, c)
				}
			}
		}
	}
}

func TestConfidence_HardFailCapped(t *testing.T) {
	in := Inputs{BaseSimilarity: 1, AnyHardFail: true, SoftPassRatio: 1, Sufficiency: 1,
		Margins: map[string]float64{rules.MarginDuration: 60}}
	if raw := Raw(in); math.Abs(raw-0.3) > 1e-12 {
		t.Errorf("Raw = %v, want 0.3", raw)
	}
	if c := Confidence(in); c > 0.3106 {
		t.Errorf("Confidence = %v, want <= 0.3106", c)
	}
}

func TestConfidence_MarginBonus(t *testing.T) {
	base := Inputs{BaseSimilarity: 0.4, SoftPassRatio: 1, Sufficiency: 1}
	if math.Abs(Raw(base)-0.4) > 1e-12 {
		t.Fatalf("Raw without margin = %v", Raw(base))
	}
	withMargin := base
	withMargin.Margins = map[string]float64{rules.MarginDuration: 30}
	if got := Raw(withMargin); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Raw with 30 min margin = %v, want 0.5", got)
	}
	withMargin.Margins = map[string]float64{rules.MarginDuration: 600}
	if got := Raw(withMargin); math.Abs(got-0.6) > 1e-12 {
		t.Errorf("bonus must cap at 0.2, got %v", got)
	}
}

func TestConfidence_Factors(t *testing.T) {
	in := Inputs{BaseSimilarity: 1, SoftPassRatio: 0, Sufficiency: 0}
	if got := Raw(in); math.Abs(got-0.49) > 1e-12 {
		t.Errorf("Raw = %v, want 0.7*0.7", got)
	}
	in.ConflictPenalty = 1
	if Raw(in) != 0 {
		t.Error("full conflict penalty must zero the score")
	}
}

func TestCalibrate(t *testing.T) {
	if got := Calibrate(0.5); got != 0.5 {
		t.Errorf("Calibrate(0.5) = %v", got)
	}
	if got := Calibrate(0.3); math.Abs(got-0.31) > 0.001 {
		t.Errorf("Calibrate(0.3) = %v, want ~0.31", got)
	}
	prev := -1.0
	for s := 0.0; s <= 1.0; s += 0.05 {
		c := Calibrate(s)
		if c <= prev {
			t.Fatalf("Calibrate not increasing at %v", s)
		}
		prev = c
	}
}

func TestRequiredTags(t *testing.T) {
	it := model.CatalogItem{Eligibility: []string{
		"Face to face at clinic",
		"at least 20 minutes",
		"Video telehealth",
		"After-hours or public holiday",
		"child under 16 years",
	}}
	want := []string{"duration", "location", "mode", "hoursBucket", "age"}
	if got := RequiredTags(it); !reflect.DeepEqual(got, want) {
		t.Errorf("RequiredTags = %v, want %v", got, want)
	}
	if RequiredTags(model.CatalogItem{}) != nil {
		t.Error("no eligibility means no required tags")
	}
}

func TestSufficiency(t *testing.T) {
	it := model.CatalogItem{Eligibility: []string{"video telehealth", "at least 20 minutes", "referral from GP"}}

	none := model.Episode{}
	if got := Sufficiency(model.CatalogItem{Title: "no cues"}, &none); got != 1 {
		t.Errorf("no cues: %v, want 1", got)
	}
	if got := Sufficiency(it, &none); got != 0 {
		t.Errorf("no evidence: %v, want 0", got)
	}
	partial := extract.Extract("Video consult.")
	if got := Sufficiency(it, &partial); math.Abs(got-1.0/3) > 1e-12 {
		t.Errorf("partial: %v, want 1/3", got)
	}
	full := extract.Extract("Video consult 25 minutes, referral provided.")
	if got := Sufficiency(it, &full); got != 1 {
		t.Errorf("full: %v, want 1", got)
	}
}

func TestSufficiency_MonotoneInEvidence(t *testing.T) {
	it := model.CatalogItem{Eligibility: []string{"face to face at clinic", "at least 20 minutes", "report provided", "referral"}}
	notes := []string{
		"Seen.",
		"Seen at clinic.",
		"Seen at clinic for 30 minutes.",
		"Seen at clinic for 30 minutes. Referral attached.",
		"Seen at clinic for 30 minutes. Referral attached. Report written.",
	}
	prev := -1.0
	for _, n := range notes {
		ep := extract.Extract(n)
		s := Sufficiency(it, &ep)
		if s < prev {
			t.Fatalf("%q: sufficiency %v dropped below %v", n, s, prev)
		}
		in := Inputs{BaseSimilarity: 0.6, SoftPassRatio: 1, Sufficiency: s}
		if prev >= 0 && Raw(in) < Raw(Inputs{BaseSimilarity: 0.6, SoftPassRatio: 1, Sufficiency: prev}) {
			t.Fatalf("%q: score decreased with more evidence", n)
		}
		prev = s
	}
	if prev != 1 {
		t.Errorf("final sufficiency = %v, want 1", prev)
	}
}

func TestExplain(t *testing.T) {
	ep := extract.Extract("Video consult for 25 minutes after-hours at clinic. No referral.")
	minDur := 20
	ev := rules.Evaluator{}.Evaluate(model.CatalogItem{Code: "X"}, &ep, []model.RuleEntry{
		{ID: "dur", Kind: model.KindMinDurationByLevel, AppliesTo: []string{"X"}, Params: model.RuleParams{Min: &minDur}, Hard: true},
		{ID: "ref", Kind: model.KindEligibilityRequired, AppliesTo: []string{"X"}, Params: model.RuleParams{ReferralRequired: true}},
	})
	got := Explain(&ep, &ev)
	want := strings.Join([]string{"25 min", "video", "clinic", "after_hours", "no referral", "rules ok: dur", "rules failed: ref"}, Separator)
	if got != want {
		t.Errorf("Explain =\n%q\nwant\n%q", got, want)
	}
}

func TestExplain_Empty(t *testing.T) {
	var ep model.Episode
	var ev rules.Evaluation
	if got := Explain(&ep, &ev); got != "" {
		t.Errorf("Explain = %q, want empty", got)
	}
}
