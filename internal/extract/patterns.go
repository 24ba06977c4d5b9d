package extract

import (
	"regexp"

	"github.com/gyeh/codesuggest/internal/model"
)

// decision is one row of an ordered decision list: the first row whose
// pattern matches assigns value to the category.
type decision struct {
	value string
	re    *regexp.Regexp
}

// lexeme is one procedure/test lexicon entry.
type lexeme struct {
	name string
	test bool
	re   *regexp.Regexp
}

// Category evaluation order. Extract walks this list top to bottom.
var categoryOrder = []string{
	model.TagEncounterType,
	model.TagDuration,
	model.TagMode,
	model.TagLocation,
	model.TagHoursBucket,
	model.TagReferral,
	model.TagReport,
	model.TagAge,
	"procedures",
}

// CategoryOrder returns the fixed order in which categories are evaluated.
func CategoryOrder() []string {
	return append([]string(nil), categoryOrder...)
}

var encounterDecisions = []decision{
	{"consultation", regexp.MustCompile(`(?i)\bconsult(?:ation)?s?\b|会诊|咨询`)},
	{"review", regexp.MustCompile(`(?i)\breview\b|\bfollow[\s-]?up\b|复诊|随访`)},
	{"assessment", regexp.MustCompile(`(?i)\bassessment\b|评估`)},
	{"procedure", regexp.MustCompile(`(?i)\bprocedure\b|手术`)},
}

var (
	minutesPattern = regexp.MustCompile(`(?i)\b(\d+)\s*-?\s*(?:minutes?|mins?)\b|(\d+)\s*分钟`)
	hoursPattern   = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*-?\s*(?:hours?|hrs?)\b|(\d+(?:\.\d+)?)\s*个?小时`)
)

// Mode priority: video > phone > telehealth > in_person.
var modeDecisions = []decision{
	{string(model.ModeVideo), regexp.MustCompile(`(?i)\b(?:video|zoom|teams|facetime|webcam)\b|视频`)},
	{string(model.ModePhone), regexp.MustCompile(`(?i)\b(?:phone|telephone)\b|电话`)},
	{string(model.ModeTelehealth), regexp.MustCompile(`(?i)\b(?:telehealth|telemedicine|virtual|remote)\b|远程|线上`)},
	{string(model.ModeInPerson), regexp.MustCompile(`(?i)\b(?:in[\s-]person|face[\s-]to[\s-]face|f2f)\b|面诊|当面`)},
}

// Location priority: hospital > nursing_home > home > clinic.
var locationDecisions = []decision{
	{string(model.LocationHospital), regexp.MustCompile(`(?i)\b(?:hospital|inpatient|ward|emergency department)\b|医院|住院`)},
	{string(model.LocationNursingHome), regexp.MustCompile(`(?i)\b(?:nursing home|aged care|residential care|racf)\b|养老院|护理院`)},
	{string(model.LocationHome), regexp.MustCompile(`(?i)\b(?:home visit|at home|patient'?s home|house call)\b|家访|家中|上门`)},
	{string(model.LocationClinic), regexp.MustCompile(`(?i)\b(?:clinic|consulting rooms?|practice)\b|诊所|门诊`)},
}

// Hours priority: public_holiday > after_hours; business is the default.
var hoursDecisions = []decision{
	{string(model.HoursPublicHoliday), regexp.MustCompile(`(?i)\b(?:public|bank)\s+holidays?\b|公共假期|法定节假日|节假日`)},
	{string(model.HoursAfterHours), regexp.MustCompile(`(?i)\bafter[\s-]?hours?\b|\bout[\s-]of[\s-]hours\b|\bovernight\b|\bweekend\b|下班后|夜间|非工作时间`)},
}

var (
	referralPositive = regexp.MustCompile(`(?i)\breferr(?:al|ed)\b|转诊`)
	referralNegation = regexp.MustCompile(`(?i)\b(?:no|without|missing|absent|lacks?|not)\s+(?:a\s+|any\s+)?(?:valid\s+)?referral\b|\breferral\s+(?:not\s+(?:provided|received|available)|missing|absent)\b|\bnot\s+referred\b|无转诊|没有转诊|未转诊`)

	reportPositive = regexp.MustCompile(`(?i)\b(?:report|interpretation|interpreted)\b|报告`)
	reportNegation = regexp.MustCompile(`(?i)\b(?:no|without|missing|pending|awaiting|awaited|not)\s+(?:a\s+|the\s+|any\s+)?(?:formal\s+|written\s+)?(?:report|interpretation)\b|\breport\s+(?:pending|awaited|to follow|not\s+(?:yet\s+)?(?:available|provided|written))\b|无报告|没有报告|报告待出|等待报告`)
)

// Age alternatives, first match wins.
var agePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(\d{1,3})[\s-]*(?:years?|yrs?)[\s-]*old\b`),
	regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:(?:y/o|yo)\b|y\.o\.?)`),
	regexp.MustCompile(`(?i)\baged?\s+(\d{1,3})\b`),
	regexp.MustCompile(`(\d{1,3})\s*岁`),
}

var lexicon = []lexeme{
	{"ecg", true, regexp.MustCompile(`(?i)\b(?:ecg|ekg|electrocardiogram)\b|心电图`)},
	{"spirometry", true, regexp.MustCompile(`(?i)\b(?:spirometry|lung function tests?)\b|肺功能`)},
	{"suturing", false, regexp.MustCompile(`(?i)\b(?:sutur(?:e|es|ed|ing)|stitch(?:es|ed|ing)?|laceration repair)\b|缝合`)},
	{"imaging", true, regexp.MustCompile(`(?i)\b(?:x-?ray|ultrasound|ct scan|mri|imaging)\b|影像|超声|X光`)},
}

// Keywords scanned in the window around a procedure hit.
var (
	windowReport  = regexp.MustCompile(`(?i)report|interpret|报告|解读`)
	windowPending = regexp.MustCompile(`(?i)pending|await|to follow|not yet|待`)
)

// procedureWindow is the number of characters scanned on each side of a
// procedure hit.
const procedureWindow = 30

// maxDurationMin caps extracted durations.
const maxDurationMin = 480

// maxAgeYears rejects implausible ages.
const maxAgeYears = 130
