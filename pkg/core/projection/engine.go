package projection

import (
	"math"

	"lbo_analyzer/pkg/core/debt"
	"lbo_analyzer/pkg/models"
)

// Engine iterates the yearly LBO model. It is stateless and pure: the same
// inputs always produce the same projection and nothing passed in is
// mutated, which is what lets the stress tester rerun it on perturbed copies.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Project runs the model from a base year (revenue + normalized EBITDA) over
// the assumption horizon against a financing structure.
//
// Debt-service convention: each tranche alive in a year pays linear principal
// (amount/duration) plus its rate applied to the total opening debt stock of
// the year. Interest on the pooled stock overstates small-tranche interest
// slightly; the amortization schedule in the debt package is the exact
// per-tranche figure and reports document the difference.
func (e *Engine) Project(baseRevenue, baseEBITDA float64, s *debt.Structure, a OperatingAssumptions) []YearProjection {
	assum := a.withDefaults()
	bfrPct := assum.BFRPct / 100
	capexPct := assum.CapexPct / 100

	// -------------------------------------------------------------------------
	// Base year state
	// -------------------------------------------------------------------------
	ca := baseRevenue
	margin := 0.0
	if baseRevenue > 0 {
		margin = baseEBITDA / baseRevenue * 100
	}
	debtRemaining := s.TotalDebt()

	projections := make([]YearProjection, 0, assum.ProjectionYears)

	for year := 1; year <= assum.ProjectionYears; year++ {
		// 1. Revenue and margin path
		growth := assum.growthFor(year)
		ca = ca * (1 + growth)
		margin += assum.marginStepFor(year)
		ebitda := ca * margin / 100

		// 2. Cash consumption: BFR variation on the revenue step, capex, IS
		deltaBFR := ca*bfrPct - (ca/(1+growth))*bfrPct
		capex := ca * capexPct
		isCash := ebitda * assum.TaxRate

		// 3. CFADS (here identical to FCF: no development capex modeled)
		fcf := ebitda - isCash - deltaBFR - capex

		// 4. Debt service of the tranches still alive this year
		var annualService float64
		for _, tr := range s.Tranches {
			duration := tr.DurationYears
			if duration <= 0 {
				duration = DefaultYears
			}
			if year <= duration {
				annualService += tr.Amount/float64(duration) + debtRemaining*tr.InterestRate
			}
		}

		// 5. Cash sweep: repay up to the service, never below zero debt
		var repaid float64
		if fcf > 0 {
			repaid = math.Min(fcf, annualService)
		}
		debtRemaining = math.Max(0, debtRemaining-repaid)

		// 6. Coverage and solvency ratios, +Inf where undefined
		dscr := math.Inf(1)
		if annualService > 0 {
			dscr = fcf / annualService
		}
		leverage := math.Inf(1)
		if ebitda > 0 {
			leverage = debtRemaining / ebitda
		}

		projections = append(projections, YearProjection{
			Year:          year,
			Revenue:       ca,
			EBITDA:        ebitda,
			MarginPct:     margin,
			FCF:           fcf,
			CFADS:         fcf,
			ISCash:        isCash,
			Capex:         capex,
			DeltaBFR:      deltaBFR,
			AnnualService: annualService,
			DebtRepaid:    repaid,
			DebtRemaining: debtRemaining,
			DSCR:          models.Float(dscr),
			Leverage:      models.Float(leverage),
		})
	}

	return projections
}

// MinDSCR returns the lowest DSCR of the projection, the figure covenant
// discussions revolve around. Returns 0 on an empty projection.
func MinDSCR(projections []YearProjection) float64 {
	if len(projections) == 0 {
		return 0
	}
	min := math.Inf(1)
	for _, p := range projections {
		if float64(p.DSCR) < min {
			min = float64(p.DSCR)
		}
	}
	return min
}

// FirstPositiveFCFYear returns the first year with positive free cash flow,
// or notFound (10, beyond any horizon) when the projection never turns.
func FirstPositiveFCFYear(projections []YearProjection) int {
	const notFound = 10
	for _, p := range projections {
		if p.FCF > 0 {
			return p.Year
		}
	}
	return notFound
}
