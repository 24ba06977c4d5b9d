// Package extract turns free-text clinical notes into structured episodes.
//
// Extraction is a deterministic decision list: each category is evaluated in
// the order given by CategoryOrder, and within a category the first matching
// pattern wins. Every successful match records an EvidenceSpan tagged with
// the category name.
package extract

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/gyeh/codesuggest/internal/model"
)

// Extract builds an Episode from note. It never fails: a category with no
// match leaves its field unset.
func Extract(note string) model.Episode {
	x := &extraction{note: note}
	x.ep.HoursBucket = model.HoursBusiness

	x.encounterType()
	x.duration()
	x.mode()
	x.location()
	x.hours()
	x.referral()
	x.report()
	x.age()
	x.procedures()

	// A remote consult with no physical location is a telehealth encounter.
	if x.ep.Location == "" && x.ep.TelehealthMode.Remote() {
		x.ep.Location = model.LocationTelehealth
	}
	return x.ep
}

type extraction struct {
	note string
	ep   model.Episode
}

func (x *extraction) span(field string, start, end int) model.EvidenceSpan {
	return model.EvidenceSpan{Field: field, Text: x.note[start:end], Start: start, End: end}
}

func (x *extraction) addEvidence(field string, loc []int) model.EvidenceSpan {
	sp := x.span(field, loc[0], loc[1])
	x.ep.Evidence = append(x.ep.Evidence, sp)
	return sp
}

// firstDecision returns the first decision whose pattern matches and the
// match location.
func (x *extraction) firstDecision(list []decision) (string, []int) {
	for _, d := range list {
		if loc := d.re.FindStringIndex(x.note); loc != nil {
			return d.value, loc
		}
	}
	return "", nil
}

func (x *extraction) encounterType() {
	if v, loc := x.firstDecision(encounterDecisions); loc != nil {
		x.ep.EncounterType = v
		x.addEvidence(model.TagEncounterType, loc)
	}
}

func (x *extraction) duration() {
	if m := minutesPattern.FindStringSubmatchIndex(x.note); m != nil {
		n, ok := x.number(m)
		if ok {
			d := int(math.Min(n, maxDurationMin))
			x.ep.DurationMin = &d
			x.addEvidence(model.TagDuration, m[:2])
			return
		}
	}
	if m := hoursPattern.FindStringSubmatchIndex(x.note); m != nil {
		h, ok := x.number(m)
		if ok {
			d := int(math.Min(math.Round(h*60), maxDurationMin))
			x.ep.DurationMin = &d
			x.addEvidence(model.TagDuration, m[:2])
		}
	}
}

func (x *extraction) mode() {
	if v, loc := x.firstDecision(modeDecisions); loc != nil {
		x.ep.TelehealthMode = model.TelehealthMode(v)
		x.addEvidence(model.TagMode, loc)
	}
}

func (x *extraction) location() {
	if v, loc := x.firstDecision(locationDecisions); loc != nil {
		x.ep.Location = model.Location(v)
		x.addEvidence(model.TagLocation, loc)
	}
}

func (x *extraction) hours() {
	if v, loc := x.firstDecision(hoursDecisions); loc != nil {
		x.ep.HoursBucket = model.HoursBucket(v)
		x.addEvidence(model.TagHoursBucket, loc)
	}
}

func (x *extraction) referral() {
	x.ep.ReferralPresent = x.flag(model.TagReferral, model.NegationNoReferral, referralPositive, referralNegation)
}

func (x *extraction) report() {
	x.ep.ReportPresent = x.flag(model.TagReport, model.NegationNoReport, reportPositive, reportNegation)
}

// flag evaluates a positive/negation pattern pair. The negation always runs
// and always wins: it clears the flag, drops the positive evidence, and
// records both the negation tag and a span tagged with it.
func (x *extraction) flag(tag, negTag string, positive, negation *regexp.Regexp) bool {
	present := false
	if loc := positive.FindStringIndex(x.note); loc != nil {
		present = true
		x.addEvidence(tag, loc)
	}
	if loc := negation.FindStringIndex(x.note); loc != nil {
		present = false
		x.dropEvidence(tag)
		x.ep.Negations = append(x.ep.Negations, negTag)
		x.addEvidence(negTag, loc)
	}
	return present
}

func (x *extraction) dropEvidence(field string) {
	kept := x.ep.Evidence[:0]
	for _, ev := range x.ep.Evidence {
		if ev.Field != field {
			kept = append(kept, ev)
		}
	}
	x.ep.Evidence = kept
}

func (x *extraction) age() {
	for _, re := range agePatterns {
		m := re.FindStringSubmatchIndex(x.note)
		if m == nil {
			continue
		}
		n, ok := x.number(m)
		if !ok || n > maxAgeYears {
			continue
		}
		a := int(n)
		x.ep.AgeYears = &a
		x.addEvidence(model.TagAge, m[:2])
		return
	}
}

func (x *extraction) procedures() {
	for _, lx := range lexicon {
		loc := lx.re.FindStringIndex(x.note)
		if loc == nil {
			continue
		}
		tag := model.TagProcPrefix + lx.name
		if lx.test {
			tag = model.TagTestPrefix + lx.name
			x.ep.TestsPresent = append(x.ep.TestsPresent, lx.name)
		}
		sp := x.addEvidence(tag, loc)

		win := x.window(loc[0], loc[1], procedureWindow)
		withReport := windowReport.MatchString(win) && !windowPending.MatchString(win)
		x.ep.Procedures = append(x.ep.Procedures, model.Procedure{
			Name:       lx.name,
			WithReport: withReport,
			Evidence:   sp,
		})
	}
}

// window returns the note text from n characters before start to n
// characters after end, on rune boundaries.
func (x *extraction) window(start, end, n int) string {
	lo := start
	for i := 0; i < n && lo > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(x.note[:lo])
		lo -= size
	}
	hi := end
	for i := 0; i < n && hi < len(x.note); i++ {
		_, size := utf8.DecodeRuneInString(x.note[hi:])
		hi += size
	}
	return x.note[lo:hi]
}

// number parses the first non-empty capture group of a submatch index.
func (x *extraction) number(m []int) (float64, bool) {
	for g := 2; g+1 < len(m); g += 2 {
		if m[g] < 0 {
			continue
		}
		v, err := strconv.ParseFloat(x.note[m[g]:m[g+1]], 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		// Out-of-range digit runs parse as +Inf and are capped by the caller.
		return v, true
	}
	return 0, false
}
