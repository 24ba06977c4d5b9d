package extract

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/gyeh/codesuggest/internal/model"
)

func TestExtract_VideoAfterHoursClinic(t *testing.T) {
	note := "Video consult for 25 minutes after-hours at clinic. Referral provided."
	ep := Extract(note)

	if ep.DurationMin == nil || *ep.DurationMin != 25 {
		t.Fatalf("DurationMin = %v, want 25", ep.DurationMin)
	}
	if ep.TelehealthMode != model.ModeVideo {
		t.Errorf("TelehealthMode = %q, want video", ep.TelehealthMode)
	}
	if ep.Location != model.LocationClinic {
		t.Errorf("Location = %q, want clinic", ep.Location)
	}
	if ep.HoursBucket != model.HoursAfterHours {
		t.Errorf("HoursBucket = %q, want after_hours", ep.HoursBucket)
	}
	if !ep.ReferralPresent {
		t.Error("expected ReferralPresent")
	}
	if ep.ReportPresent {
		t.Error("expected ReportPresent=false")
	}
	if ep.EncounterType != "consultation" {
		t.Errorf("EncounterType = %q, want consultation", ep.EncounterType)
	}
	if len(ep.Negations) != 0 {
		t.Errorf("unexpected negations: %v", ep.Negations)
	}

	tags := ep.EvidenceTags()
	for _, want := range []string{"duration", "mode", "location", "hoursBucket", "referral"} {
		if !tags[want] {
			t.Errorf("missing evidence tag %q in %v", want, ep.Evidence)
		}
	}
}

func TestExtract_NegationWins(t *testing.T) {
	ep := Extract("No referral; awaiting report.")

	if ep.ReferralPresent {
		t.Error("expected ReferralPresent=false")
	}
	if ep.ReportPresent {
		t.Error("expected ReportPresent=false")
	}
	want := []string{model.NegationNoReferral, model.NegationNoReport}
	if !reflect.DeepEqual(ep.Negations, want) {
		t.Errorf("Negations = %v, want %v", ep.Negations, want)
	}
	tags := ep.EvidenceTags()
	if tags["referral"] || tags["report"] {
		t.Errorf("negated facts must not keep positive evidence: %v", ep.Evidence)
	}
	if !tags[model.NegationNoReferral] || !tags[model.NegationNoReport] {
		t.Errorf("expected negation spans, got %v", ep.Evidence)
	}
}

func TestExtract_NegationAfterPositive(t *testing.T) {
	ep := Extract("Referral provided by GP. Later: no referral on file.")
	if ep.ReferralPresent {
		t.Error("negation must flip an earlier positive")
	}
	if !ep.HasNegation(model.NegationNoReferral) {
		t.Errorf("expected no_referral, got %v", ep.Negations)
	}
}

func TestExtract_DurationMinutesCapped(t *testing.T) {
	for _, d := range []int{0, 1, 15, 40, 479, 480, 481, 900, 9999, 12345, 1000000} {
		ep := Extract(fmt.Sprintf("Consult lasted %d minutes.", d))
		want := d
		if want > 480 {
			want = 480
		}
		if ep.DurationMin == nil || *ep.DurationMin != want {
			t.Errorf("%d minutes: DurationMin = %v, want %d", d, ep.DurationMin, want)
		}
	}
}

func TestExtract_DurationHoursRounded(t *testing.T) {
	cases := map[string]int{
		"1 hour":     60,
		"1.5 hours":  90,
		"2.26 hours": 136,
		"9 hrs":      480,
		"0.4 hour":   24,
		"100 hours":  480,
		"36.5 hours": 480,
	}
	for phrase, want := range cases {
		ep := Extract("Session of " + phrase + " at home visit.")
		if ep.DurationMin == nil || *ep.DurationMin != want {
			t.Errorf("%q: DurationMin = %v, want %d", phrase, ep.DurationMin, want)
		}
	}
}

func TestExtract_DurationOverflowCapped(t *testing.T) {
	ep := Extract("Observed for " + strings.Repeat("9", 400) + " minutes.")
	if ep.DurationMin == nil || *ep.DurationMin != 480 {
		t.Errorf("DurationMin = %v, want 480", ep.DurationMin)
	}
}

func TestExtract_MinutesBeforeHours(t *testing.T) {
	ep := Extract("1 hour block booked, actual 45 min.")
	if ep.DurationMin == nil || *ep.DurationMin != 45 {
		t.Fatalf("DurationMin = %v, want 45 (minutes take precedence)", ep.DurationMin)
	}
}

func TestExtract_ModePriority(t *testing.T) {
	cases := map[string]model.TelehealthMode{
		"phone call then switched to zoom":     model.ModeVideo,
		"telephone consult":                    model.ModePhone,
		"telehealth review":                    model.ModeTelehealth,
		"seen face-to-face":                    model.ModeInPerson,
		"通过视频问诊":                               model.ModeVideo,
		"电话随访":                                 model.ModePhone,
		"remote check-in, phone backup":        model.ModePhone,
		"in person and virtual components both": model.ModeTelehealth,
	}
	for note, want := range cases {
		if got := Extract(note).TelehealthMode; got != want {
			t.Errorf("%q: mode = %q, want %q", note, got, want)
		}
	}
}

func TestExtract_LocationPriority(t *testing.T) {
	cases := map[string]model.Location{
		"transferred from clinic to hospital": model.LocationHospital,
		"nursing home resident, home visit":   model.LocationNursingHome,
		"home visit":                          model.LocationHome,
		"seen at clinic":                      model.LocationClinic,
		"在诊所就诊":                               model.LocationClinic,
		"住院患者":                                model.LocationHospital,
	}
	for note, want := range cases {
		if got := Extract(note).Location; got != want {
			t.Errorf("%q: location = %q, want %q", note, got, want)
		}
	}
}

func TestExtract_RemoteWithoutLocationIsTelehealth(t *testing.T) {
	ep := Extract("Phone consult 10 minutes.")
	if ep.Location != model.LocationTelehealth {
		t.Errorf("Location = %q, want telehealth", ep.Location)
	}
	if ep.EvidenceTags()["location"] {
		t.Error("inferred location must not carry evidence")
	}
}

func TestExtract_HoursDefaultBusiness(t *testing.T) {
	ep := Extract("Routine consult.")
	if ep.HoursBucket != model.HoursBusiness {
		t.Errorf("HoursBucket = %q, want business", ep.HoursBucket)
	}
	if ep.EvidenceTags()["hoursBucket"] {
		t.Error("default bucket must not carry evidence")
	}

	ep = Extract("Seen after hours on a public holiday.")
	if ep.HoursBucket != model.HoursPublicHoliday {
		t.Errorf("HoursBucket = %q, want public_holiday", ep.HoursBucket)
	}
}

func TestExtract_Age(t *testing.T) {
	cases := map[string]int{
		"45-year-old male":   45,
		"45 year old":        45,
		"7yo with fever":     7,
		"82 y/o female":      82,
		"aged 63, diabetic":  63,
		"患者35岁":              35,
		"age 200 is invalid": -1,
	}
	for note, want := range cases {
		ep := Extract(note)
		if want < 0 {
			if ep.AgeYears != nil {
				t.Errorf("%q: expected no age, got %d", note, *ep.AgeYears)
			}
			continue
		}
		if ep.AgeYears == nil || *ep.AgeYears != want {
			t.Errorf("%q: AgeYears = %v, want %d", note, ep.AgeYears, want)
		}
	}
}

func TestExtract_ProcedureReportWindow(t *testing.T) {
	ep := Extract("ECG performed with formal report. Spirometry done, report pending. Wound suturing.")

	ecg, ok := ep.Procedure("ecg")
	if !ok || !ecg.WithReport {
		t.Errorf("ecg = %+v, want WithReport", ecg)
	}
	spiro, ok := ep.Procedure("spirometry")
	if !ok || spiro.WithReport {
		t.Errorf("spirometry = %+v, want WithReport=false (pending)", spiro)
	}
	if _, ok := ep.Procedure("suturing"); !ok {
		t.Error("expected suturing")
	}
	if !reflect.DeepEqual(ep.TestsPresent, []string{"ecg", "spirometry"}) {
		t.Errorf("TestsPresent = %v", ep.TestsPresent)
	}

	tags := ep.EvidenceTags()
	for _, want := range []string{"test:ecg", "test:spirometry", "procedure:suturing"} {
		if !tags[want] {
			t.Errorf("missing tag %q", want)
		}
	}
}

func TestExtract_EmptyNote(t *testing.T) {
	ep := Extract("")
	if ep.DurationMin != nil || ep.AgeYears != nil || ep.TelehealthMode != "" || ep.Location != "" {
		t.Errorf("expected all-absent episode, got %+v", ep)
	}
	if len(ep.Evidence) != 0 {
		t.Errorf("expected no evidence, got %v", ep.Evidence)
	}
}

func TestExtract_SpanOffsetsValid(t *testing.T) {
	notes := []string{
		"Video consult for 25 minutes after-hours at clinic. Referral provided.",
		"患者35岁，视频会诊20分钟，心电图报告已出。",
		"No referral; awaiting report. ECG awaiting interpretation.",
	}
	for _, note := range notes {
		ep := Extract(note)
		for _, ev := range ep.Evidence {
			if ev.Start < 0 || ev.Start > ev.End || ev.End > len(note) {
				t.Errorf("%q: bad span %+v", note, ev)
				continue
			}
			if note[ev.Start:ev.End] != ev.Text {
				t.Errorf("%q: span text %q does not match offsets", note, ev.Text)
			}
		}
	}
}

func TestExtract_Deterministic(t *testing.T) {
	note := "45yo, telehealth video 30 min, ECG with report, referral attached."
	a, b := Extract(note), Extract(note)
	if !reflect.DeepEqual(a, b) {
		t.Error("Extract is not deterministic")
	}
}

func TestCategoryOrder(t *testing.T) {
	order := CategoryOrder()
	idx := make(map[string]int, len(order))
	for i, c := range order {
		idx[c] = i
	}
	if !(idx["duration"] < idx["mode"] && idx["mode"] < idx["location"] &&
		idx["location"] < idx["hoursBucket"] && idx["hoursBucket"] < idx["referral"] &&
		idx["report"] < idx["age"] && idx["age"] < idx["procedures"]) {
		t.Errorf("unexpected category order %v", order)
	}
}
