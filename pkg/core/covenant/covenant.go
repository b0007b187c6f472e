// Package covenant evaluates contractual financial thresholds against a
// projection: per-year PASS / WARNING / VIOLATION statuses, plus the
// aggregate view a term sheet negotiation needs. WARNING is an early-alert
// band: the covenant holds but the actual sits within 10% of the threshold.
package covenant

import (
	"math"

	"lbo_analyzer/pkg/core/projection"
)

// Type selects which projection figure a rule reads.
type Type string

const (
	TypeDebtToEBITDA Type = "debt_to_ebitda"
	TypeDSCR         Type = "dscr"
	TypeEquityRatio  Type = "equity_ratio"
	TypeCustom       Type = "custom"
)

// Comparison is the operator the actual must satisfy against the threshold.
type Comparison string

const (
	AtLeast     Comparison = ">="
	AtMost      Comparison = "<="
	GreaterThan Comparison = ">"
	LessThan    Comparison = "<"
)

// Statuses of a covenant for one year.
const (
	StatusPass          = "PASS"
	StatusWarning       = "WARNING"
	StatusViolation     = "VIOLATION"
	StatusNotApplicable = "N/A"
)

// Rule is one covenant from the term sheet. Nil ApplicableYears means the
// rule applies to every projected year.
type Rule struct {
	Name            string     `json:"name"`
	Type            Type       `json:"covenant_type"`
	Threshold       float64    `json:"threshold"`
	Comparison      Comparison `json:"comparison"`
	ApplicableYears []int      `json:"applicable_years,omitempty"`
	Description     string     `json:"description,omitempty"`
}

// StandardRules returns the two covenants present in virtually every French
// LBO senior documentation.
func StandardRules() []Rule {
	return []Rule{
		{
			Name:        "Dette nette / EBITDA",
			Type:        TypeDebtToEBITDA,
			Threshold:   4.0,
			Comparison:  AtMost,
			Description: "Levier financier maximal autorisé",
		},
		{
			Name:        "DSCR minimum",
			Type:        TypeDSCR,
			Threshold:   1.25,
			Comparison:  AtLeast,
			Description: "Capacité de remboursement minimum",
		},
	}
}

// IsApplicable reports whether the rule covers the given year.
func (r *Rule) IsApplicable(year int) bool {
	if len(r.ApplicableYears) == 0 {
		return true
	}
	for _, y := range r.ApplicableYears {
		if y == year {
			return true
		}
	}
	return false
}

// IsViolated evaluates the comparison. An unknown operator never violates.
func (r *Rule) IsViolated(actual float64) bool {
	switch r.Comparison {
	case AtLeast:
		return actual < r.Threshold
	case AtMost:
		return actual > r.Threshold
	case GreaterThan:
		return actual <= r.Threshold
	case LessThan:
		return actual >= r.Threshold
	default:
		return false
	}
}

// Status grades the actual for one year: N/A outside the applicable years,
// VIOLATION on breach, WARNING inside the 10% relative band, PASS otherwise.
func (r *Rule) Status(actual float64, year int) string {
	if !r.IsApplicable(year) {
		return StatusNotApplicable
	}
	if r.IsViolated(actual) {
		return StatusViolation
	}

	marginPct := 0.0
	if r.Threshold != 0 {
		marginPct = math.Abs(actual-r.Threshold) / math.Abs(r.Threshold) * 100
	}
	if marginPct < 10 {
		return StatusWarning
	}
	return StatusPass
}

// value extracts the projection figure the rule type reads. The projection
// carries no equity series, so equity_ratio and custom rules read 0, exactly
// like a missing metric in a hand-built dossier.
func (r *Rule) value(p projection.YearProjection) float64 {
	switch r.Type {
	case TypeDebtToEBITDA:
		return float64(p.Leverage)
	case TypeDSCR:
		return float64(p.DSCR)
	default:
		return 0
	}
}
