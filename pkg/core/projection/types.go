// Package projection runs the multi-year LBO cash-flow model: revenue and
// margin assumptions in, yearly CFADS / DSCR / leverage / residual debt out.
// This file defines the assumption set and the per-year output record.
package projection

import "lbo_analyzer/pkg/models"

// Default assumption values, applied where the caller leaves a zero value.
// They are the standard French SME screen: 7-year horizon, 5% growth, 18% of
// revenue tied up in BFR, 3% maintenance capex, 25% IS.
const (
	DefaultYears       = 7
	DefaultGrowth      = 0.05
	DefaultMarginStep  = 0.0
	DefaultBFRPct      = 18.0
	DefaultCapexPct    = 3.0
	DefaultTaxRate     = 0.25
	MinProjectionYears = 3
	MaxProjectionYears = 15
)

// OperatingAssumptions drives the projection loop. Growth and margin
// evolution are per-year arrays; years beyond the array length use the
// package defaults (a short array is a configuration gap, not an error).
// BFRPct and CapexPct are percentage points of revenue (18.0 means 18%).
type OperatingAssumptions struct {
	ProjectionYears int       `json:"projection_years"`
	RevenueGrowth   []float64 `json:"revenue_growth_rate"`
	MarginEvolution []float64 `json:"ebitda_margin_evolution"`
	BFRPct          float64   `json:"bfr_percentage_of_revenue"`
	CapexPct        float64   `json:"capex_maintenance_pct"`
	TaxRate         float64   `json:"tax_rate"`
}

// NewOperatingAssumptions returns the default assumption set.
func NewOperatingAssumptions() OperatingAssumptions {
	return OperatingAssumptions{
		ProjectionYears: DefaultYears,
		BFRPct:          DefaultBFRPct,
		CapexPct:        DefaultCapexPct,
		TaxRate:         DefaultTaxRate,
	}
}

// withDefaults returns a copy with zero values replaced by the documented
// defaults and the horizon clamped to the supported range.
func (a OperatingAssumptions) withDefaults() OperatingAssumptions {
	out := a
	if out.ProjectionYears == 0 {
		out.ProjectionYears = DefaultYears
	}
	if out.ProjectionYears < MinProjectionYears {
		out.ProjectionYears = MinProjectionYears
	}
	if out.ProjectionYears > MaxProjectionYears {
		out.ProjectionYears = MaxProjectionYears
	}
	if out.BFRPct == 0 {
		out.BFRPct = DefaultBFRPct
	}
	if out.CapexPct == 0 {
		out.CapexPct = DefaultCapexPct
	}
	if out.TaxRate == 0 {
		out.TaxRate = DefaultTaxRate
	}
	return out
}

// growthFor returns the growth rate for a 1-based year, falling back to the
// default past the end of the array.
func (a OperatingAssumptions) growthFor(year int) float64 {
	if year-1 < len(a.RevenueGrowth) {
		return a.RevenueGrowth[year-1]
	}
	return DefaultGrowth
}

// marginStepFor returns the EBITDA margin evolution (in points) for a year.
func (a OperatingAssumptions) marginStepFor(year int) float64 {
	if year-1 < len(a.MarginEvolution) {
		return a.MarginEvolution[year-1]
	}
	return DefaultMarginStep
}

// YearProjection is one projected year. DSCR and Leverage use the Float
// type because both are +Inf by convention when their denominator vanishes.
type YearProjection struct {
	Year          int          `json:"year"`
	Revenue       float64      `json:"ca"`
	EBITDA        float64      `json:"ebitda"`
	MarginPct     float64      `json:"margin"`
	FCF           float64      `json:"fcf"`
	CFADS         float64      `json:"cfads"`
	ISCash        float64      `json:"is_cash"`
	Capex         float64      `json:"capex"`
	DeltaBFR      float64      `json:"delta_bfr"`
	AnnualService float64      `json:"annual_service"`
	DebtRepaid    float64      `json:"debt_repaid"`
	DebtRemaining float64      `json:"debt_remaining"`
	DSCR          models.Float `json:"dscr"`
	Leverage      models.Float `json:"leverage"`
}
