package covenant

import (
	"lbo_analyzer/pkg/core/projection"
	"lbo_analyzer/pkg/models"
)

// RuleProjection is one covenant evaluated over the whole horizon.
type RuleProjection struct {
	Rule          Rule           `json:"covenant"`
	Years         []int          `json:"years"`
	Values        []models.Float `json:"values"`
	Threshold     float64        `json:"threshold"`
	Statuses      []string       `json:"statuses"`
	Violations    []int          `json:"violations"`
	HasViolations bool           `json:"has_violations"`
}

// Summary aggregates the per-rule results. A rule with any violated year
// counts as violated; a violation-free rule with a warning year counts as
// warning.
type Summary struct {
	Total         int    `json:"total_covenants"`
	ViolatedCount int    `json:"violated_count"`
	WarningCount  int    `json:"warning_count"`
	PassCount     int    `json:"pass_count"`
	OverallStatus string `json:"overall_status"`
}

// Tracker evaluates a set of covenant rules against projections.
type Tracker struct {
	Rules []Rule
}

// NewTracker builds a tracker; nil rules means the standard French pair.
func NewTracker(rules []Rule) *Tracker {
	if rules == nil {
		rules = StandardRules()
	}
	return &Tracker{Rules: rules}
}

// ProjectRule evaluates one rule year by year.
func (t *Tracker) ProjectRule(rule Rule, projections []projection.YearProjection) RuleProjection {
	rp := RuleProjection{
		Rule:      rule,
		Threshold: rule.Threshold,
	}

	for _, p := range projections {
		actual := rule.value(p)
		status := rule.Status(actual, p.Year)

		rp.Years = append(rp.Years, p.Year)
		rp.Values = append(rp.Values, models.Float(actual))
		rp.Statuses = append(rp.Statuses, status)
		if status == StatusViolation {
			rp.Violations = append(rp.Violations, p.Year)
		}
	}

	rp.HasViolations = len(rp.Violations) > 0
	return rp
}

// ProjectAll evaluates every rule of the tracker.
func (t *Tracker) ProjectAll(projections []projection.YearProjection) []RuleProjection {
	results := make([]RuleProjection, 0, len(t.Rules))
	for _, rule := range t.Rules {
		results = append(results, t.ProjectRule(rule, projections))
	}
	return results
}

// Summarize folds rule projections into the aggregate view.
func Summarize(results []RuleProjection) Summary {
	s := Summary{Total: len(results)}

	for _, rp := range results {
		if rp.HasViolations {
			s.ViolatedCount++
			continue
		}
		warned := false
		for _, status := range rp.Statuses {
			if status == StatusWarning {
				warned = true
				break
			}
		}
		if warned {
			s.WarningCount++
		}
	}
	s.PassCount = s.Total - s.ViolatedCount - s.WarningCount

	switch {
	case s.ViolatedCount > 0:
		s.OverallStatus = StatusViolation
	case s.WarningCount > 0:
		s.OverallStatus = StatusWarning
	default:
		s.OverallStatus = StatusPass
	}
	return s
}
