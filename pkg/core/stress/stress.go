// Package stress reruns the analysis under adverse scenarios: revenue drops
// with operating-leverage amplification, margin compression, rate hikes, BFR
// drift, and the combined crisis. Scenarios perturb deep copies of the
// baseline; the originals are never touched.
//
// Metrics here are the quick screening approximation (flat debt service,
// normative BFR drag and capex), deliberately cheaper than the full
// projection loop so a 5x5 sensitivity grid stays instant. The full loop
// remains the reference for the retained scenario.
package stress

import (
	"math"

	"lbo_analyzer/pkg/core/debt"
	"lbo_analyzer/pkg/core/normalize"
	"lbo_analyzer/pkg/models"
)

// Type identifies the canonical scenarios.
type Type string

const (
	TypeNominal        Type = "nominal"
	TypeRevenueDown10  Type = "revenue_down_10"
	TypeRevenueDown20  Type = "revenue_down_20"
	TypeMarginDown2Pts Type = "margin_down_2pts"
	TypeRatesUp200Bps  Type = "rates_up_200bps"
	TypeBFRUp5Pts      Type = "bfr_up_5pts"
	TypeCombinedCrisis Type = "combined_crisis"
)

// Scenario is one named shock set. RevenueShock is a decimal fraction
// (-0.20 = CA -20%), MarginShock is in EBITDA margin points, RateShockBps
// in basis points, BFRShockPts in points of CA.
type Scenario struct {
	Name         string  `json:"name"`
	ScenarioType Type    `json:"scenario_type"`
	Description  string  `json:"description"`
	RevenueShock float64 `json:"revenue_shock"`
	MarginShock  float64 `json:"margin_shock"`
	RateShockBps float64 `json:"interest_rate_shock"`
	BFRShockPts  float64 `json:"bfr_shock"`
}

// DefaultScenarios returns the canonical suite, names normative.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{
			Name:         "Nominal",
			ScenarioType: TypeNominal,
			Description:  "Scénario de base sans choc",
		},
		{
			Name:         "CA -10%",
			ScenarioType: TypeRevenueDown10,
			Description:  "Baisse du chiffre d'affaires de 10%",
			RevenueShock: -0.10,
		},
		{
			Name:         "CA -20%",
			ScenarioType: TypeRevenueDown20,
			Description:  "Baisse du chiffre d'affaires de 20%",
			RevenueShock: -0.20,
		},
		{
			Name:         "Marge -2pts",
			ScenarioType: TypeMarginDown2Pts,
			Description:  "Compression de la marge EBITDA de 2 points",
			MarginShock:  -2.0,
		},
		{
			Name:         "Taux +200bps",
			ScenarioType: TypeRatesUp200Bps,
			Description:  "Hausse des taux d'intérêt de 200 points de base (+2%)",
			RateShockBps: 200,
		},
		{
			Name:         "BFR +5pts",
			ScenarioType: TypeBFRUp5Pts,
			Description:  "Augmentation du BFR de 5 points de CA",
			BFRShockPts:  5.0,
		},
		{
			Name:         "Crise combinée",
			ScenarioType: TypeCombinedCrisis,
			Description:  "CA -15%, Marge -1pt, Taux +100bps",
			RevenueShock: -0.15,
			MarginShock:  -1.0,
			RateShockBps: 100,
		},
	}
}

// Metrics is the quick screen of one stressed case.
type Metrics struct {
	DSCRMin       models.Float `json:"dscr_min"`
	Leverage      models.Float `json:"leverage"`
	Margin        float64      `json:"margin"`
	FCFYear3      float64      `json:"fcf_year3"`
	EBITDA        float64      `json:"ebitda"`
	CFADS         float64      `json:"cfads"`
	CA            float64      `json:"ca"`
	AnnualService float64      `json:"annual_service"`
}

// Result bundles the stressed inputs with their metrics and verdict.
type Result struct {
	Scenario      Scenario               `json:"scenario"`
	Data          *models.FiscalYearData `json:"-"`
	Structure     *debt.Structure        `json:"-"`
	Normalization *normalize.Result      `json:"-"`
	Metrics       Metrics                `json:"metrics"`
	Status        string                 `json:"status"`
}

// Apply perturbs deep copies of the baseline inputs with one scenario and
// computes the quick metrics.
//
// Shock order matters and is fixed:
//  1. revenue shock scales CA
//  2. margin shock moves EBITDA-bank by points of post-shock CA
//  3. a revenue shock then OVERWRITES EBITDA-bank with the 1.5x operating
//     leverage effect (fixed costs absorb none of the revenue fall)
//  4. rate shock bumps every tranche
//  5. BFR shock adds points to the working-capital assumption
func Apply(baseline *models.FiscalYearData, structure *debt.Structure, norm *normalize.Result, sc Scenario) Result {
	data := baseline.Clone()
	st := structure.Clone()
	n := norm.Clone()

	// 1. Choc CA
	if sc.RevenueShock != 0 {
		data.IncomeStatement.Revenues.NetRevenue *= 1 + sc.RevenueShock
		data.IncomeStatement.Revenues.Total *= 1 + sc.RevenueShock
	}

	// EBITDA before any shock; CA after the revenue shock.
	currentEBITDA := norm.EBITDABank
	currentCA := data.IncomeStatement.Revenues.NetRevenue
	if currentCA == 0 {
		currentCA = 1
	}

	// 2. Choc de marge (points de CA)
	if sc.MarginShock != 0 {
		n.EBITDABank = math.Max(0, currentEBITDA+currentCA*sc.MarginShock/100)
	}

	// 3. Levier opérationnel: une baisse de CA dégrade l'EBITDA 1.5x plus vite
	if sc.RevenueShock != 0 {
		n.EBITDABank = math.Max(0, currentEBITDA*(1+1.5*sc.RevenueShock))
	}

	// 4. Choc de taux
	if sc.RateShockBps != 0 {
		for i := range st.Tranches {
			st.Tranches[i].InterestRate += sc.RateShockBps / 10000
		}
	}

	// 5. Choc BFR
	if sc.BFRShockPts != 0 {
		base := baseline.WorkingCapital.BFRPct
		if base == 0 {
			base = 18.0
		}
		data.WorkingCapital.BFRPct = base + sc.BFRShockPts
	}

	m := computeMetrics(data, st, n)
	return Result{
		Scenario:      sc,
		Data:          data,
		Structure:     st,
		Normalization: n,
		Metrics:       m,
		Status:        StatusFromMetrics(m),
	}
}

// computeMetrics is the screening approximation: average debt service
// (linear principal + interest on half the stock), normative 25% IS, BFR
// drag of one tenth of the requirement, 3% capex.
func computeMetrics(data *models.FiscalYearData, structure *debt.Structure, norm *normalize.Result) Metrics {
	ebitda := norm.EBITDABank
	ca := data.IncomeStatement.Revenues.NetRevenue
	if ca == 0 {
		ca = 1
	}

	totalDebt := structure.TotalDebt()

	var annualService float64
	for _, tr := range structure.Tranches {
		duration := tr.DurationYears
		if duration <= 0 {
			duration = 7
		}
		annualService += tr.Amount/float64(duration) + tr.Amount*tr.InterestRate*0.5
	}

	isCash := ebitda * 0.25
	bfrPct := data.WorkingCapital.BFRPct
	if bfrPct == 0 {
		bfrPct = 18.0
	}
	deltaBFR := ca * (bfrPct / 100) * 0.1
	capex := ca * 0.03
	cfads := ebitda - isCash - deltaBFR - capex

	dscr := math.Inf(1)
	if annualService > 0 {
		dscr = cfads / annualService
	}
	leverage := math.Inf(1)
	if ebitda > 0 {
		leverage = totalDebt / ebitda
	}
	margin := 0.0
	if ca > 0 {
		margin = ebitda / ca * 100
	}

	return Metrics{
		DSCRMin:       models.Float(dscr),
		Leverage:      models.Float(leverage),
		Margin:        margin,
		FCFYear3:      cfads - annualService,
		EBITDA:        ebitda,
		CFADS:         cfads,
		CA:            ca,
		AnnualService: annualService,
	}
}

// StatusFromMetrics grades a stressed case. The bands are the credit-comité
// screen: a single red metric is enough for NO-GO.
func StatusFromMetrics(m Metrics) string {
	dscr := float64(m.DSCRMin)
	leverage := float64(m.Leverage)

	if dscr < 1.0 || leverage > 6.0 || m.Margin < 5.0 || m.FCFYear3 < -100_000 {
		return "NO-GO"
	}
	if dscr < 1.25 || leverage > 4.5 || m.Margin < 10.0 || m.FCFYear3 < 50_000 {
		return "WATCH"
	}
	return "GO"
}

// RunAll applies the canonical suite to one baseline.
func RunAll(baseline *models.FiscalYearData, structure *debt.Structure, norm *normalize.Result) []Result {
	scenarios := DefaultScenarios()
	results := make([]Result, 0, len(scenarios))
	for _, sc := range scenarios {
		results = append(results, Apply(baseline, structure, norm, sc))
	}
	return results
}
