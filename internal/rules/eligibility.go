package rules

import (
	"fmt"
	"strings"

	"github.com/gyeh/codesuggest/internal/model"
)

// eligibility ANDs every configured sub-condition. The justification lists
// all failing conditions, or all checked conditions on pass.
func eligibility(p model.RuleParams, ep *model.Episode) (bool, string) {
	c := &conditions{}

	if len(p.Mode) > 0 {
		c.check(p.Mode.Contains(string(ep.TelehealthMode)),
			"mode "+valueOr(string(ep.TelehealthMode)),
			fmt.Sprintf("mode %s not in %s", valueOr(string(ep.TelehealthMode)), p.Mode))
	}
	if len(p.HoursBucket) > 0 {
		c.check(p.HoursBucket.Contains(string(ep.HoursBucket)),
			"hours "+valueOr(string(ep.HoursBucket)),
			fmt.Sprintf("hours %s not in %s", valueOr(string(ep.HoursBucket)), p.HoursBucket))
	}
	if len(p.Location) > 0 {
		c.check(p.Location.Contains(string(ep.Location)),
			"location "+valueOr(string(ep.Location)),
			fmt.Sprintf("location %s not in %s", valueOr(string(ep.Location)), p.Location))
	}
	if len(p.RequiredElements) > 0 {
		tags := ep.EvidenceTags()
		var missing []string
		for _, el := range p.RequiredElements {
			if !tags[el] {
				missing = append(missing, el)
			}
		}
		c.check(len(missing) == 0,
			"evidence "+strings.Join(p.RequiredElements, ", "),
			"missing evidence "+strings.Join(missing, ", "))
	}
	if p.ReportRequired {
		c.check(ep.ReportPresent, "report present", "report missing")
	}
	if p.ReferralRequired {
		c.check(ep.ReferralPresent, "referral present", "referral missing")
	}
	if p.MinAge != nil || p.MaxAge != nil {
		c.age(p.MinAge, p.MaxAge, ep.AgeYears)
	}
	if len(p.RequiredProcedures) > 0 {
		var missing []string
		for _, name := range p.RequiredProcedures {
			if _, ok := ep.Procedure(name); !ok {
				missing = append(missing, name)
			}
		}
		c.check(len(missing) == 0,
			"procedures "+strings.Join(p.RequiredProcedures, ", "),
			"missing procedures "+strings.Join(missing, ", "))
	}
	if len(p.ProceduresWithReport) > 0 {
		var missing []string
		for _, name := range p.ProceduresWithReport {
			if proc, ok := ep.Procedure(name); !ok || !proc.WithReport {
				missing = append(missing, name)
			}
		}
		c.check(len(missing) == 0,
			"reported "+strings.Join(p.ProceduresWithReport, ", "),
			"no report for "+strings.Join(missing, ", "))
	}

	if len(c.ok) == 0 && len(c.failed) == 0 {
		return true, "no conditions configured"
	}
	if len(c.failed) > 0 {
		return false, strings.Join(c.failed, "; ")
	}
	return true, strings.Join(c.ok, "; ")
}

type conditions struct {
	ok     []string
	failed []string
}

func (c *conditions) check(pass bool, okText, failText string) {
	if pass {
		c.ok = append(c.ok, okText)
		return
	}
	c.failed = append(c.failed, failText)
}

func (c *conditions) age(minAge, maxAge, age *int) {
	if age == nil {
		c.failed = append(c.failed, "age missing")
		return
	}
	a := *age
	if minAge != nil && a < *minAge {
		c.failed = append(c.failed, fmt.Sprintf("age %d < %d", a, *minAge))
		return
	}
	if maxAge != nil && a > *maxAge {
		c.failed = append(c.failed, fmt.Sprintf("age %d > %d", a, *maxAge))
		return
	}
	c.ok = append(c.ok, fmt.Sprintf("age %d", a))
}

func valueOr(v string) string {
	if v == "" {
		return "missing"
	}
	return v
}
