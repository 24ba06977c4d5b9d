package model

// Location is where an encounter took place.
type Location string

const (
	LocationClinic      Location = "clinic"
	LocationHome        Location = "home"
	LocationNursingHome Location = "nursing_home"
	LocationHospital    Location = "hospital"
	LocationTelehealth  Location = "telehealth"
)

// HoursBucket classifies when an encounter took place.
type HoursBucket string

const (
	HoursBusiness      HoursBucket = "business"
	HoursAfterHours    HoursBucket = "after_hours"
	HoursPublicHoliday HoursBucket = "public_holiday"
)

// TelehealthMode is how the practitioner and patient were connected.
type TelehealthMode string

const (
	ModeVideo      TelehealthMode = "video"
	ModePhone      TelehealthMode = "phone"
	ModeTelehealth TelehealthMode = "telehealth"
	ModeInPerson   TelehealthMode = "in_person"
)

// Remote reports whether the mode implies the patient was not seen in person.
func (m TelehealthMode) Remote() bool {
	return m == ModeVideo || m == ModePhone || m == ModeTelehealth
}

// Evidence field tags. Evidence sufficiency matches on these, so they are
// part of the wire contract.
const (
	TagEncounterType = "encounterType"
	TagDuration      = "duration"
	TagMode          = "mode"
	TagLocation      = "location"
	TagHoursBucket   = "hoursBucket"
	TagReferral      = "referral"
	TagReport        = "report"
	TagAge           = "age"
	TagTestPrefix    = "test:"
	TagProcPrefix    = "procedure:"

	NegationNoReferral = "no_referral"
	NegationNoReport   = "no_report"
)

// EvidenceSpan locates the substring of a note that justified a fact.
// Start and End are byte offsets into the UTF-8 note.
type EvidenceSpan struct {
	Field string `json:"field"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Procedure is a procedure or test mentioned in the note.
type Procedure struct {
	Name       string       `json:"name"`
	WithReport bool         `json:"withReport"`
	Evidence   EvidenceSpan `json:"evidence"`
}

// Episode holds the facts extracted from one clinical note. Zero values mean
// "not found"; pointer fields distinguish absent from zero.
type Episode struct {
	EncounterType   string         `json:"encounterType,omitempty"`
	Location        Location       `json:"location,omitempty"`
	HoursBucket     HoursBucket    `json:"hoursBucket"`
	DurationMin     *int           `json:"durationMin,omitempty"`
	TelehealthMode  TelehealthMode `json:"telehealthMode,omitempty"`
	ReferralPresent bool           `json:"referralPresent"`
	ReportPresent   bool           `json:"reportPresent"`
	AgeYears        *int           `json:"ageYears,omitempty"`
	Procedures      []Procedure    `json:"procedures,omitempty"`
	TestsPresent    []string       `json:"testsPresent,omitempty"`
	Negations       []string       `json:"negations,omitempty"`
	Evidence        []EvidenceSpan `json:"evidence,omitempty"`
}

// EvidenceTags returns the set of field tags present in the episode evidence.
func (e *Episode) EvidenceTags() map[string]bool {
	tags := make(map[string]bool, len(e.Evidence))
	for _, ev := range e.Evidence {
		tags[ev.Field] = true
	}
	return tags
}

// Procedure returns the named procedure, or ok=false.
func (e *Episode) Procedure(name string) (Procedure, bool) {
	for _, p := range e.Procedures {
		if p.Name == name {
			return p, true
		}
	}
	return Procedure{}, false
}

// HasNegation reports whether tag was recorded as an explicit negation.
func (e *Episode) HasNegation(tag string) bool {
	for _, n := range e.Negations {
		if n == tag {
			return true
		}
	}
	return false
}
