// Package decision turns a projection into the committee verdict: five
// weighted decisive criteria, a 0-100 weighted score, the GO / WATCH / NO-GO
// mapping, and the narrative recommendations a credit memo expects.
package decision

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Decision is the final verdict on the dossier.
type Decision string

const (
	Go    Decision = "go"
	Watch Decision = "watch"
	NoGo  Decision = "no_go"
)

// Criterion statuses, aligned with the metric rating bands.
const (
	StatusPass    = "PASS"
	StatusWarning = "WARNING"
	StatusFail    = "FAIL"
)

// Rule defines one decisive metric with its thresholds and weight.
type Rule struct {
	MetricName     string  `json:"metric_name"`
	DisplayName    string  `json:"display_name"`
	Excellent      float64 `json:"excellent"`
	Good           float64 `json:"good"`
	Acceptable     float64 `json:"acceptable"`
	HigherIsBetter bool    `json:"higher_is_better"`
	Weight         float64 `json:"weight"`
}

// DecisiveRules returns the five metrics every dossier is scored on.
// DSCR dominates: a deal that cannot service its debt has no other quality.
func DecisiveRules() []Rule {
	return []Rule{
		{MetricName: "dscr_min", DisplayName: "DSCR minimum (7 ans)",
			Excellent: 1.5, Good: 1.35, Acceptable: 1.25, HigherIsBetter: true, Weight: 2.0},
		{MetricName: "leverage", DisplayName: "Dette nette / EBITDA",
			Excellent: 3.5, Good: 4.0, Acceptable: 4.5, HigherIsBetter: false, Weight: 1.5},
		{MetricName: "margin", DisplayName: "Marge EBITDA (%)",
			Excellent: 15.0, Good: 12.0, Acceptable: 8.0, HigherIsBetter: true, Weight: 1.0},
		{MetricName: "ebitda_to_fcf_conversion", DisplayName: "Conversion EBITDA → FCF (%)",
			Excellent: 40.0, Good: 30.0, Acceptable: 20.0, HigherIsBetter: true, Weight: 1.0},
		{MetricName: "fcf_positive_year", DisplayName: "FCF positif dès année",
			Excellent: 1, Good: 2, Acceptable: 3, HigherIsBetter: false, Weight: 1.0},
	}
}

// Criterion is one rule evaluated against its actual value.
type Criterion struct {
	Name           string  `json:"name"`
	MetricName     string  `json:"metric_name"`
	ActualValue    float64 `json:"actual_value"`
	Excellent      float64 `json:"threshold_excellent"`
	Good           float64 `json:"threshold_good"`
	Acceptable     float64 `json:"threshold_acceptable"`
	HigherIsBetter bool    `json:"higher_is_better"`
	Weight         float64 `json:"weight"`
	Score          int     `json:"score"`
	Status         string  `json:"status"`
}

// evaluate maps the actual value onto the 0-100 scale. The three bands give
// 100 / 80 / 50; past acceptable the score floors proportionally to the
// distance instead of collapsing to zero, so a near-miss still counts.
func (c *Criterion) evaluate() {
	v := c.ActualValue

	if c.HigherIsBetter {
		switch {
		case v >= c.Excellent:
			c.Score, c.Status = 100, StatusPass
		case v >= c.Good:
			c.Score, c.Status = 80, StatusPass
		case v >= c.Acceptable:
			c.Score, c.Status = 50, StatusWarning
		default:
			c.Score = proportionalFloor(50 * v / c.Acceptable)
			c.Status = StatusFail
		}
		return
	}

	switch {
	case v <= c.Excellent:
		c.Score, c.Status = 100, StatusPass
	case v <= c.Good:
		c.Score, c.Status = 80, StatusPass
	case v <= c.Acceptable:
		c.Score, c.Status = 50, StatusWarning
	default:
		c.Score = proportionalFloor(50 * (2 - v/c.Acceptable))
		c.Status = StatusFail
	}
}

// proportionalFloor rounds the sub-acceptable score, never below zero.
func proportionalFloor(raw float64) int {
	if math.IsNaN(raw) || raw <= 0 {
		return 0
	}
	return int(math.Round(raw))
}

// EvaluateCriteria applies the decisive rules to a metric set.
func EvaluateCriteria(metrics map[string]float64) []Criterion {
	rules := DecisiveRules()
	criteria := make([]Criterion, 0, len(rules))

	for _, r := range rules {
		c := Criterion{
			Name:           r.DisplayName,
			MetricName:     r.MetricName,
			ActualValue:    metrics[r.MetricName],
			Excellent:      r.Excellent,
			Good:           r.Good,
			Acceptable:     r.Acceptable,
			HigherIsBetter: r.HigherIsBetter,
			Weight:         r.Weight,
		}
		c.evaluate()
		criteria = append(criteria, c)
	}
	return criteria
}

// AcquisitionDecision is the final record handed to reports and persistence.
type AcquisitionDecision struct {
	Decision        Decision    `json:"decision"`
	OverallScore    int         `json:"overall_score"`
	Criteria        []Criterion `json:"criteria"`
	Recommendations []string    `json:"recommendations"`
	Warnings        []string    `json:"warnings"`
	DealBreakers    []string    `json:"deal_breakers"`
	Timestamp       time.Time   `json:"timestamp"`
	ScenarioID      string      `json:"scenario_id,omitempty"`
}

// FromCriteria folds evaluated criteria into a decision: weighted mean score,
// score-zero deal-breakers, band warnings with their improvement levers.
func FromCriteria(criteria []Criterion, scenarioID string) *AcquisitionDecision {
	d := &AcquisitionDecision{
		Criteria:   criteria,
		Timestamp:  time.Now(),
		ScenarioID: scenarioID,
	}

	var totalWeight, weighted float64
	for _, c := range criteria {
		totalWeight += c.Weight
		weighted += float64(c.Score) * c.Weight
	}
	if totalWeight > 0 {
		d.OverallScore = int(math.Round(weighted / totalWeight))
	}

	for _, c := range criteria {
		switch {
		case c.Score == 0:
			d.DealBreakers = append(d.DealBreakers,
				fmt.Sprintf("❌ %s: %.2f (seuil minimum: %.2f)", c.Name, c.ActualValue, c.Acceptable))
		case c.Score < 80:
			d.Warnings = append(d.Warnings,
				fmt.Sprintf("⚠️ %s: %.2f (objectif: %.2f)", c.Name, c.ActualValue, c.Good))
			if rec := improvementLever(c.Name); rec != "" {
				d.Recommendations = append(d.Recommendations, rec)
			}
		}
	}

	switch {
	case len(d.DealBreakers) > 0:
		d.Decision = NoGo
	case d.OverallScore >= 80:
		d.Decision = Go
	case d.OverallScore >= 60:
		d.Decision = Watch
	default:
		d.Decision = NoGo
	}
	return d
}

// improvementLever maps a weak criterion to its standard structuring lever.
func improvementLever(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "marge"):
		return "📊 Améliorer marge EBITDA: optimiser mix produits ou négocier prix"
	case strings.Contains(lower, "dscr"):
		return "💰 Améliorer DSCR: réduire dette ou augmenter equity"
	case strings.Contains(lower, "dette"):
		return "🏦 Réduire levier: négocier prix ou augmenter apport"
	}
	return ""
}
