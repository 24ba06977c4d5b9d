package retrieval

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/gyeh/codesuggest/internal/model"
	"github.com/gyeh/codesuggest/internal/normalize"
)

// stopwords contains common English words excluded from matching.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"being": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true, "not": true,
	"no": true, "and": true, "or": true, "but": true, "if": true,
	"then": true, "than": true, "so": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "into": true,
	"of": true, "on": true, "to": true, "with": true, "about": true,
	"up": true, "out": true, "it": true, "its": true, "this": true,
	"that": true, "which": true, "who": true, "when": true, "where": true,
	"we": true, "they": true, "he": true, "she": true, "her": true,
	"him": true, "his": true, "them": true, "patient": true, "pt": true,
	"least": true, "less": true, "other": true, "such": true, "same": true,
}

// phrases fold multi-word expressions into single tokens before splitting.
var phrases = []struct {
	re  *regexp.Regexp
	tok string
}{
	{regexp.MustCompile(`\bafter[\s-]*hours?\b`), "after_hours"},
	{regexp.MustCompile(`\bpublic[\s-]+holidays?\b`), "public_holiday"},
	{regexp.MustCompile(`\bface[\s-]+to[\s-]+face\b`), "face_to_face"},
	{regexp.MustCompile(`\bin[\s-]+person\b`), "face_to_face"},
	{regexp.MustCompile(`\bnursing[\s-]+homes?\b`), "nursing_home"},
	{regexp.MustCompile(`\baged[\s-]+care\b`), "nursing_home"},
	{regexp.MustCompile(`\bvideo[\s-]*(?:call|conference|conferencing)\b`), "video"},
	{regexp.MustCompile(`\bphone[\s-]*call\b`), "phone"},
	{regexp.MustCompile(`\bhome[\s-]+visits?\b`), "home"},
}

// synonyms fold surface forms onto one canonical token.
var synonyms = map[string]string{
	"zoom": "video", "teams": "video", "facetime": "video", "videoconference": "video",
	"telephone": "phone", "call": "phone", "phoned": "phone",
	"telehealth": "telehealth", "telemedicine": "telehealth", "virtual": "telehealth", "remote": "telehealth",
	"clinic": "clinic", "rooms": "clinic", "surgery": "clinic", "office": "clinic",
	"hospital": "hospital", "inpatient": "hospital", "ward": "hospital", "admitted": "hospital",
	"afterhours": "after_hours", "overnight": "after_hours", "weekend": "after_hours",
	"holiday": "public_holiday",
	"f2f": "face_to_face",
	"ekg": "ecg", "electrocardiogram": "ecg", "electrocardiography": "ecg",
	"spirometer": "spirometry", "pft": "spirometry",
	"reported": "report", "reports": "report", "interpretation": "report", "interpreted": "report",
	"referred": "referral", "referrals": "referral", "referring": "referral",
	"minute": "minutes", "mins": "minutes", "min": "minutes",
	"sutured": "suturing", "sutures": "suturing", "suture": "suturing", "stitches": "suturing",
	"xray": "imaging", "x-ray": "imaging", "ultrasound": "imaging", "ct": "imaging", "mri": "imaging",
	"children": "child", "paediatric": "child", "pediatric": "child",
}

// Tokenize normalizes text into canonical terms in order of appearance.
// Repeated terms are kept.
func Tokenize(text string) []string {
	s := normalize.Text(text)
	if s == "" {
		return nil
	}
	for _, p := range phrases {
		s = p.re.ReplaceAllString(s, " "+p.tok+" ")
	}

	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		if w == "" || stopwords[w] {
			continue
		}
		if canon, ok := synonyms[w]; ok {
			w = canon
		}
		out = append(out, w)
	}
	return out
}

// EpisodeTokens turns extracted facts into synthetic query terms, so that
// retrieval benefits from extraction when the note phrasing differs from
// the catalog phrasing.
func EpisodeTokens(ep *model.Episode) []string {
	var out []string
	switch ep.TelehealthMode {
	case model.ModeVideo:
		out = append(out, "video", "telehealth")
	case model.ModePhone:
		out = append(out, "phone", "telehealth")
	case model.ModeTelehealth:
		out = append(out, "telehealth")
	case model.ModeInPerson:
		out = append(out, "face_to_face")
	}
	if ep.Location != "" {
		out = append(out, string(ep.Location))
	}
	if ep.HoursBucket != "" && ep.HoursBucket != model.HoursBusiness {
		out = append(out, string(ep.HoursBucket))
	}
	if ep.ReferralPresent {
		out = append(out, "referral")
	}
	if ep.ReportPresent {
		out = append(out, "report")
	}
	for _, p := range ep.Procedures {
		out = append(out, p.Name)
		if p.WithReport {
			out = append(out, "report")
		}
	}
	out = append(out, ep.TestsPresent...)
	if ep.AgeYears != nil && *ep.AgeYears < 16 {
		out = append(out, "child")
	}
	return out
}
