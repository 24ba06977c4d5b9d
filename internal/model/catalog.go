package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnknownVersion marks a collection that could not be loaded.
const UnknownVersion = "unknown"

// CatalogItem is one billable item.
type CatalogItem struct {
	Code         string   `json:"code" yaml:"code"`
	Title        string   `json:"title" yaml:"title"`
	Description  string   `json:"description,omitempty" yaml:"description"`
	Eligibility  []string `json:"eligibility,omitempty" yaml:"eligibility"`
	Restrictions []string `json:"restrictions,omitempty" yaml:"restrictions"`
	Category     string   `json:"category,omitempty" yaml:"category"`
	ScheduleFee  *float64 `json:"schedule_fee,omitempty" yaml:"schedule_fee"`
}

// RuleKind identifies how a RuleEntry is evaluated.
type RuleKind string

const (
	KindMinDurationByLevel  RuleKind = "min_duration_by_level"
	KindEligibilityRequired RuleKind = "eligibility_required"
	KindLocationMustBe      RuleKind = "location_must_be"
	KindRequireReport       RuleKind = "require_report"
	KindForbidWith          RuleKind = "forbid_with"
	KindSameDayExclusive    RuleKind = "same_day_exclusive"
)

// AllRuleKinds lists the supported rule kinds in canonical order.
var AllRuleKinds = []RuleKind{
	KindMinDurationByLevel,
	KindEligibilityRequired,
	KindLocationMustBe,
	KindRequireReport,
	KindForbidWith,
	KindSameDayExclusive,
}

// Known reports whether k is one of AllRuleKinds.
func (k RuleKind) Known() bool {
	for _, kk := range AllRuleKinds {
		if kk == k {
			return true
		}
	}
	return false
}

// SelectionTime reports whether the kind is enforced over a selection of
// codes rather than per item.
func (k RuleKind) SelectionTime() bool {
	return k == KindForbidWith || k == KindSameDayExclusive
}

// RuleEntry is one rule of the rule book.
type RuleEntry struct {
	ID        string     `json:"id" yaml:"id"`
	Kind      RuleKind   `json:"kind" yaml:"kind"`
	AppliesTo []string   `json:"applies_to" yaml:"applies_to"`
	Params    RuleParams `json:"parameters" yaml:"parameters"`
	Hard      bool       `json:"hard" yaml:"hard"`
}

// AppliesToCode reports whether code is in the rule's applies_to set.
func (r *RuleEntry) AppliesToCode(code string) bool {
	for _, c := range r.AppliesTo {
		if c == code {
			return true
		}
	}
	return false
}

// RuleParams is the union of per-kind parameters. Each kind reads only the
// fields it understands.
type RuleParams struct {
	// min_duration_by_level
	Min *int `json:"min,omitempty" yaml:"min"`

	// eligibility_required / location_must_be
	Mode                 StringList `json:"mode,omitempty" yaml:"mode"`
	HoursBucket          StringList `json:"hours_bucket,omitempty" yaml:"hours_bucket"`
	Location             StringList `json:"location,omitempty" yaml:"location"`
	RequiredElements     []string   `json:"required_elements,omitempty" yaml:"required_elements"`
	ReportRequired       bool       `json:"report_required,omitempty" yaml:"report_required"`
	ReferralRequired     bool       `json:"referral_required,omitempty" yaml:"referral_required"`
	MinAge               *int       `json:"min_age,omitempty" yaml:"min_age"`
	MaxAge               *int       `json:"max_age,omitempty" yaml:"max_age"`
	RequiredProcedures   []string   `json:"required_procedures,omitempty" yaml:"required_procedures"`
	ProceduresWithReport []string   `json:"procedures_with_report,omitempty" yaml:"procedures_with_report"`

	// require_report
	Procedures []string `json:"procedures,omitempty" yaml:"procedures"`

	// forbid_with / same_day_exclusive
	Codes []string `json:"codes,omitempty" yaml:"codes"`
}

// StringList accepts either a single string or a list of strings.
type StringList []string

// Contains reports whether v is one of the listed values.
func (l StringList) Contains(v string) bool {
	for _, s := range l {
		if s == v {
			return true
		}
	}
	return false
}

func (l StringList) String() string {
	return strings.Join(l, "|")
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = splitNonEmpty(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = many
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = splitNonEmpty(node.Value)
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return err
		}
		*l = many
		return nil
	}
	return fmt.Errorf("line %d: expected string or list of strings", node.Line)
}

func splitNonEmpty(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return []string{s}
}

// Versions identifies the loaded items and rules independently.
type Versions struct {
	Items string `json:"items"`
	Rules string `json:"rules"`
}

// Degraded reports whether either collection failed to load.
func (v Versions) Degraded() bool {
	return v.Items == UnknownVersion || v.Rules == UnknownVersion
}
