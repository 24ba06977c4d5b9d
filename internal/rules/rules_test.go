package rules

import (
	"reflect"
	"strings"
	"testing"

	"github.com/gyeh/codesuggest/internal/extract"
	"github.com/gyeh/codesuggest/internal/model"
)

func intp(v int) *int { return &v }

func rule(id string, kind model.RuleKind, hard bool, p model.RuleParams, codes ...string) model.RuleEntry {
	if len(codes) == 0 {
		codes = []string{"X"}
	}
	return model.RuleEntry{ID: id, Kind: kind, AppliesTo: codes, Params: p, Hard: hard}
}

var item = model.CatalogItem{Code: "X", Title: "test item"}

func TestEvaluate_MinDurationPassMargin(t *testing.T) {
	ep := model.Episode{DurationMin: intp(25)}
	ev := Evaluator{}.Evaluate(item, &ep, []model.RuleEntry{
		rule("dur", model.KindMinDurationByLevel, true, model.RuleParams{Min: intp(20)}),
	})

	want := []model.RuleResult{{RuleID: "dur", Pass: true, Hard: true, Because: "duration 25 >= 20"}}
	if !reflect.DeepEqual(ev.Results, want) {
		t.Fatalf("Results = %+v, want %+v", ev.Results, want)
	}
	if ev.Margins[MarginDuration] != 5 {
		t.Errorf("margin = %v, want 5", ev.Margins[MarginDuration])
	}
	if ev.AnyHardFail {
		t.Error("unexpected hard fail")
	}
}

func TestEvaluate_MinDurationFailures(t *testing.T) {
	rs := []model.RuleEntry{rule("dur", model.KindMinDurationByLevel, true, model.RuleParams{Min: intp(20)})}

	var absent model.Episode
	ev := Evaluator{}.Evaluate(item, &absent, rs)
	if ev.Results[0].Pass || !ev.AnyHardFail || !strings.Contains(ev.Results[0].Because, "missing") {
		t.Errorf("absent duration: %+v", ev.Results[0])
	}

	short := model.Episode{DurationMin: intp(15)}
	ev = Evaluator{}.Evaluate(item, &short, rs)
	if ev.Results[0].Pass || ev.Results[0].Because != "duration 15 < 20" {
		t.Errorf("short duration: %+v", ev.Results[0])
	}
	if _, ok := ev.Margins[MarginDuration]; ok {
		t.Error("failed rule must not record a margin")
	}
}

func TestEvaluate_OnlyApplicableRules(t *testing.T) {
	ep := model.Episode{Location: model.LocationClinic}
	ev := Evaluator{}.Evaluate(item, &ep, []model.RuleEntry{
		rule("other", model.KindLocationMustBe, true, model.RuleParams{Location: model.StringList{"home"}}, "Y"),
		rule("mine", model.KindLocationMustBe, false, model.RuleParams{Location: model.StringList{"clinic"}}),
	})
	if len(ev.Results) != 1 || ev.Results[0].RuleID != "mine" || !ev.Results[0].Pass {
		t.Fatalf("Results = %+v", ev.Results)
	}
	if ev.SoftTotal != 1 || ev.SoftPassed != 1 {
		t.Errorf("soft = %d/%d", ev.SoftPassed, ev.SoftTotal)
	}
}

func TestEvaluate_LocationMustBe(t *testing.T) {
	rs := []model.RuleEntry{rule("loc", model.KindLocationMustBe, true, model.RuleParams{Location: model.StringList{"home"}})}
	cases := map[model.Location]bool{
		model.LocationHome:   true,
		model.LocationClinic: false,
		"":                   false,
	}
	for loc, want := range cases {
		ep := model.Episode{Location: loc}
		if got := (Evaluator{}).Evaluate(item, &ep, rs).Results[0].Pass; got != want {
			t.Errorf("location %q: pass = %v, want %v", loc, got, want)
		}
	}
}

func TestEvaluate_RequireReport(t *testing.T) {
	withProcs := []model.RuleEntry{rule("rep", model.KindRequireReport, true, model.RuleParams{Procedures: []string{"ecg"}})}
	plain := []model.RuleEntry{rule("rep", model.KindRequireReport, true, model.RuleParams{})}

	ecgReported := extract.Extract("ECG performed, interpretation documented.")
	ecgPending := extract.Extract("ECG done, awaiting interpretation.")
	reportOnly := model.Episode{ReportPresent: true}

	if !(Evaluator{}).Evaluate(item, &ecgReported, withProcs).Results[0].Pass {
		t.Error("ecg with interpretation should pass")
	}
	if (Evaluator{}).Evaluate(item, &ecgPending, withProcs).Results[0].Pass {
		t.Error("pending ecg report should fail")
	}
	if !(Evaluator{}).Evaluate(item, &reportOnly, plain).Results[0].Pass {
		t.Error("report present should pass")
	}
	var none model.Episode
	if (Evaluator{}).Evaluate(item, &none, plain).Results[0].Pass {
		t.Error("no report should fail")
	}
}

func TestEvaluate_EligibilityRequiredAllFailuresListed(t *testing.T) {
	r := rule("elig", model.KindEligibilityRequired, true, model.RuleParams{
		Mode:             model.StringList{"video"},
		HoursBucket:      model.StringList{"after_hours", "public_holiday"},
		ReferralRequired: true,
		MinAge:           intp(18),
	})
	ep := model.Episode{TelehealthMode: model.ModePhone, HoursBucket: model.HoursBusiness, AgeYears: intp(12)}
	res := Evaluator{}.Evaluate(item, &ep, []model.RuleEntry{r}).Results[0]

	if res.Pass {
		t.Fatal("expected failure")
	}
	for _, want := range []string{"mode phone not in video", "hours business not in after_hours|public_holiday", "referral missing", "age 12 < 18"} {
		if !strings.Contains(res.Because, want) {
			t.Errorf("Because %q missing %q", res.Because, want)
		}
	}
}

func TestEvaluate_EligibilityRequiredPass(t *testing.T) {
	r := rule("elig", model.KindEligibilityRequired, true, model.RuleParams{
		Mode:                 model.StringList{"video"},
		RequiredElements:     []string{"duration", "referral"},
		MaxAge:               intp(15),
		RequiredProcedures:   []string{"suturing"},
		ProceduresWithReport: []string{"ecg"},
		ReportRequired:       true,
	})
	ep := extract.Extract("8yo seen by video for 20 minutes. Referral provided. ECG with formal report. Wound suturing.")
	res := Evaluator{}.Evaluate(item, &ep, []model.RuleEntry{r}).Results[0]
	if !res.Pass {
		t.Fatalf("expected pass, got %q", res.Because)
	}
}

func TestEvaluate_EligibilityMissingEvidence(t *testing.T) {
	r := rule("elig", model.KindEligibilityRequired, false, model.RuleParams{RequiredElements: []string{"duration", "age"}})
	ep := extract.Extract("Video consult 10 minutes.")
	ev := Evaluator{}.Evaluate(item, &ep, []model.RuleEntry{r})
	if ev.Results[0].Pass || ev.Results[0].Because != "missing evidence age" {
		t.Errorf("result = %+v", ev.Results[0])
	}
	if ev.AnyHardFail || ev.SoftTotal != 1 || ev.SoftPassed != 0 || ev.SoftPassRatio() != 0 {
		t.Errorf("evaluation = %+v", ev)
	}
}

func TestEvaluate_SelectionTimeKindsDeferred(t *testing.T) {
	var ep model.Episode
	ev := Evaluator{}.Evaluate(item, &ep, []model.RuleEntry{
		rule("fw", model.KindForbidWith, true, model.RuleParams{Codes: []string{"Y"}}),
		rule("sd", model.KindSameDayExclusive, false, model.RuleParams{Codes: []string{"X", "Y"}}),
	})
	for _, r := range ev.Results {
		if !r.Pass || r.Because != "checked at selection time" {
			t.Errorf("%s = %+v", r.RuleID, r)
		}
	}
	if ev.SoftTotal != 0 || ev.SoftPassRatio() != 1 {
		t.Errorf("deferred rules must not count: %d/%d", ev.SoftPassed, ev.SoftTotal)
	}
}

func TestEvaluate_UnknownKind(t *testing.T) {
	var ep model.Episode
	rs := []model.RuleEntry{rule("odd", "max_per_year", true, model.RuleParams{})}

	lenient := Evaluator{}.Evaluate(item, &ep, rs)
	if !lenient.Results[0].Pass || lenient.Results[0].Because != "n/a" || lenient.AnyHardFail {
		t.Errorf("lenient = %+v", lenient)
	}
	strict := Evaluator{Strict: true}.Evaluate(item, &ep, rs)
	if strict.Results[0].Pass || !strict.AnyHardFail {
		t.Errorf("strict = %+v", strict)
	}
}

func TestEvaluation_PassedFailed(t *testing.T) {
	ep := model.Episode{DurationMin: intp(30), Location: model.LocationHome}
	ev := Evaluator{}.Evaluate(item, &ep, []model.RuleEntry{
		rule("a", model.KindMinDurationByLevel, true, model.RuleParams{Min: intp(20)}),
		rule("b", model.KindLocationMustBe, false, model.RuleParams{Location: model.StringList{"clinic"}}),
	})
	if !reflect.DeepEqual(ev.Passed(), []string{"a"}) || !reflect.DeepEqual(ev.Failed(), []string{"b"}) {
		t.Errorf("passed=%v failed=%v", ev.Passed(), ev.Failed())
	}
	if ev.SoftPassRatio() != 0 {
		t.Errorf("ratio = %v", ev.SoftPassRatio())
	}
}

func TestCheckSelection(t *testing.T) {
	rs := []model.RuleEntry{
		{ID: "gp-level-exclusive", Kind: model.KindSameDayExclusive, AppliesTo: []string{"23", "36", "44"}, Params: model.RuleParams{Codes: []string{"23", "36", "44"}}, Hard: true},
		{ID: "tele-not-with-attendance", Kind: model.KindForbidWith, AppliesTo: []string{"91801"}, Params: model.RuleParams{Codes: []string{"23", "36"}}, Hard: true},
		{ID: "loc", Kind: model.KindLocationMustBe, AppliesTo: []string{"23"}},
	}

	if got := CheckSelection([]string{"23", "11700"}, rs); len(got) != 0 {
		t.Errorf("unexpected conflicts %+v", got)
	}

	got := CheckSelection([]string{"36", "91801", "23"}, rs)
	if len(got) != 2 {
		t.Fatalf("conflicts = %+v", got)
	}
	if got[0].RuleID != "gp-level-exclusive" || !reflect.DeepEqual(got[0].Codes, []string{"36", "23"}) {
		t.Errorf("same-day conflict = %+v", got[0])
	}
	if got[1].RuleID != "tele-not-with-attendance" || !reflect.DeepEqual(got[1].Codes, []string{"91801", "23", "36"}) {
		t.Errorf("forbid conflict = %+v", got[1])
	}
	if !got[1].Hard || got[1].Reason == "" {
		t.Errorf("conflict = %+v", got[1])
	}
}

func TestCheckSelection_SameDayDefaultsToAppliesTo(t *testing.T) {
	rs := []model.RuleEntry{{ID: "sd", Kind: model.KindSameDayExclusive, AppliesTo: []string{"A", "B"}}}
	if got := CheckSelection([]string{"A", "A"}, rs); len(got) != 0 {
		t.Errorf("a repeated code is not a conflict: %+v", got)
	}
	if got := CheckSelection([]string{"B", "A"}, rs); len(got) != 1 {
		t.Errorf("expected conflict, got %+v", got)
	}
}
