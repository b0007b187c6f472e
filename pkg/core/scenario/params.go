// Package scenario defines the financing configurations an analyst can pick
// or build by hand: the debt/equity split, the growth hypotheses and an
// optional adverse stress block, plus four predefined French presets from
// conservative to aggressive.
package scenario

import (
	"fmt"
	"math"
	"strings"

	"lbo_analyzer/pkg/core/debt"
	"lbo_analyzer/pkg/core/projection"
)

// Default growth hypotheses for a scenario built without any.
const (
	DefaultRevenueGrowth = 0.05
	DefaultCapexPct      = 0.03
	DefaultInflation     = 0.02
)

// DebtParams sizes the acquisition loan. Rates are decimals (0.05 = 5%).
type DebtParams struct {
	Amount        float64               `json:"debt_amount"`
	InterestRate  float64               `json:"interest_rate"`
	DurationYears int                   `json:"loan_duration"`
	GracePeriod   int                   `json:"grace_period"`
	Amortization  debt.AmortizationType `json:"amortization_type"`
}

// Validate checks the loan bounds. It normalizes the amortization type to
// lowercase (empty means constant) and rejects rates outside the realistic
// French SME band unless the loan is interest-free.
func (p *DebtParams) Validate() error {
	if p.Amount < 0 {
		return fmt.Errorf("Montant de dette invalide: %.0f (doit etre >= 0)", p.Amount)
	}
	if p.InterestRate < 0 || p.InterestRate > 0.20 {
		return fmt.Errorf("Taux d'interet invalide: %.2f%% (attendu: 0%%-20%%)", p.InterestRate*100)
	}
	if p.InterestRate > 0 && (p.InterestRate < 0.01 || p.InterestRate > 0.15) {
		return fmt.Errorf(
			"Le taux d'interet %.2f%% est hors de la fourchette realiste (1%%-15%%). "+
				"Utilisez 0 pour un financement sans interet ou un taux entre 1%% et 15%%.",
			p.InterestRate*100)
	}
	if p.DurationYears < 1 || p.DurationYears > 30 {
		return fmt.Errorf("Duree de pret invalide: %d ans (attendu: 1-30 ans)", p.DurationYears)
	}
	if p.GracePeriod < 0 || p.GracePeriod > 5 {
		return fmt.Errorf("Periode de differe invalide: %d ans (attendu: 0-5 ans)", p.GracePeriod)
	}
	if p.GracePeriod >= p.DurationYears {
		return fmt.Errorf("Periode de differe (%d ans) doit etre < duree du pret (%d ans)",
			p.GracePeriod, p.DurationYears)
	}

	if p.Amortization == "" {
		p.Amortization = debt.AmortizationConstant
	}
	normalized := debt.AmortizationType(strings.ToLower(string(p.Amortization)))
	if normalized != debt.AmortizationConstant && normalized != debt.AmortizationLinear {
		return fmt.Errorf("Type d'amortissement '%s' invalide. Utilisez 'constant' ou 'linear'.",
			normalized)
	}
	p.Amortization = normalized
	return nil
}

// EquityParams describes the sponsor side of the financing.
type EquityParams struct {
	Amount        float64 `json:"equity_amount"`
	TargetROE     float64 `json:"target_roe"`     // decimal, 0.15 = 15%
	ExitMultiple  float64 `json:"exit_multiple"`  // x EBITDA
	HoldingPeriod int     `json:"holding_period"` // years
}

func (p *EquityParams) Validate() error {
	if p.Amount < 0 {
		return fmt.Errorf("Montant d'equity invalide: %.0f (doit etre >= 0)", p.Amount)
	}
	if p.TargetROE < 0 || p.TargetROE > 1.0 {
		return fmt.Errorf("ROE cible invalide: %.1f%% (attendu: 0%%-100%%)", p.TargetROE*100)
	}
	if p.ExitMultiple < 0 {
		return fmt.Errorf("Multiple de sortie invalide: %.1fx (doit etre >= 0)", p.ExitMultiple)
	}
	if p.HoldingPeriod < 1 || p.HoldingPeriod > 15 {
		return fmt.Errorf("Periode de detention invalide: %d ans (attendu: 1-15 ans)", p.HoldingPeriod)
	}
	return nil
}

// GrowthParams holds the operating hypotheses, all decimals. The margin
// evolution is in margin points (0.01 = +1pt of EBITDA margin per year).
type GrowthParams struct {
	RevenueGrowth   float64 `json:"revenue_growth"`
	MarginEvolution float64 `json:"ebitda_margin_evolution"`
	CapexPct        float64 `json:"capex_percentage"`
	Inflation       float64 `json:"inflation_rate"`
}

// DefaultGrowth is the standard hypothesis set: +5% revenue, flat margin,
// 3% capex, 2% inflation.
func DefaultGrowth() GrowthParams {
	return GrowthParams{
		RevenueGrowth: DefaultRevenueGrowth,
		CapexPct:      DefaultCapexPct,
		Inflation:     DefaultInflation,
	}
}

func (p *GrowthParams) Validate() error {
	if p.RevenueGrowth < -0.5 || p.RevenueGrowth > 0.5 {
		return fmt.Errorf("Croissance du CA invalide: %.1f%% (attendu: -50%% a +50%%)", p.RevenueGrowth*100)
	}
	if p.MarginEvolution < -0.2 || p.MarginEvolution > 0.2 {
		return fmt.Errorf("Evolution de marge invalide: %.1f pts (attendu: -20 a +20 pts)", p.MarginEvolution*100)
	}
	if p.CapexPct < 0 || p.CapexPct > 0.5 {
		return fmt.Errorf("CapEx invalide: %.1f%% du CA (attendu: 0%%-50%%)", p.CapexPct*100)
	}
	if p.Inflation < 0 || p.Inflation > 0.20 {
		return fmt.Errorf("Taux d'inflation invalide: %.1f%% (attendu: 0%%-20%%)", p.Inflation*100)
	}
	return nil
}

// StressParams describes the adverse conditions attached to a scenario:
// a revenue shock, a margin compression in points and a rate increase.
type StressParams struct {
	RevenueShock      float64 `json:"revenue_shock"`
	MarginCompression float64 `json:"margin_compression"`
	RateIncrease      float64 `json:"interest_rate_increase"`
}

// DefaultStress is the standard adverse case: CA -10%, marge -5pts, taux +1pt.
func DefaultStress() StressParams {
	return StressParams{RevenueShock: -0.10, MarginCompression: -0.05, RateIncrease: 0.01}
}

func (p *StressParams) Validate() error {
	if p.RevenueShock < -0.5 || p.RevenueShock > 0 {
		return fmt.Errorf("Choc de CA invalide: %.1f%% (attendu: -50%% a 0%%)", p.RevenueShock*100)
	}
	if p.MarginCompression < -0.3 || p.MarginCompression > 0 {
		return fmt.Errorf("Compression de marge invalide: %.1f pts (attendu: -30 a 0 pts)", p.MarginCompression*100)
	}
	if p.RateIncrease < 0 || p.RateIncrease > 0.10 {
		return fmt.Errorf("Hausse de taux invalide: %.1f pts (attendu: 0 a +10 pts)", p.RateIncrease*100)
	}
	return nil
}

// Params is a complete financing scenario.
type Params struct {
	Name   string        `json:"name"`
	Debt   DebtParams    `json:"debt"`
	Equity EquityParams  `json:"equity"`
	Growth GrowthParams  `json:"growth"`
	Stress *StressParams `json:"stress,omitempty"`
}

// Validate checks the scenario top to bottom and normalizes the debt block.
func (p *Params) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("Le nom du scenario est requis")
	}
	if err := p.Debt.Validate(); err != nil {
		return err
	}
	if err := p.Equity.Validate(); err != nil {
		return err
	}
	if err := p.Growth.Validate(); err != nil {
		return err
	}
	if p.Stress != nil {
		if err := p.Stress.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// TotalFinancing is dette + equity.
func (p *Params) TotalFinancing() float64 {
	return p.Debt.Amount + p.Equity.Amount
}

// LeverageRatio is the debt share of the total financing, between 0 and 1.
// Zero financing reads as no leverage.
func (p *Params) LeverageRatio() float64 {
	total := p.TotalFinancing()
	if total == 0 {
		return 0
	}
	return p.Debt.Amount / total
}

// DebtToEquity follows the usual conventions: 0/0 is 0, debt over no equity
// is +Inf.
func (p *Params) DebtToEquity() float64 {
	if p.Equity.Amount == 0 {
		if p.Debt.Amount == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return p.Debt.Amount / p.Equity.Amount
}

// AnnualDebtService is the yearly payment of the scenario's loan.
func (p *Params) AnnualDebtService() float64 {
	t := p.Tranche()
	return t.AnnualService()
}

// Tranche converts the debt block into a single-layer tranche.
func (p *Params) Tranche() debt.Tranche {
	return debt.Tranche{
		Name:          "Dette senior",
		Amount:        p.Debt.Amount,
		InterestRate:  p.Debt.InterestRate,
		DurationYears: p.Debt.DurationYears,
		GracePeriod:   p.Debt.GracePeriod,
		Amortization:  p.Debt.Amortization,
	}
}

// Structure assembles the full financing structure of the scenario, priced
// at the total financing.
func (p *Params) Structure() *debt.Structure {
	return &debt.Structure{
		AcquisitionPrice: p.TotalFinancing(),
		Tranches:         []debt.Tranche{p.Tranche()},
		EquityAmount:     p.Equity.Amount,
	}
}

// Assumptions converts the growth block into projection assumptions over
// the holding period. BFR intensity is a company trait, not a scenario one:
// pass the company's bfrPct in points, or 0 for the projection default.
func (p *Params) Assumptions(bfrPct float64) projection.OperatingAssumptions {
	years := p.Equity.HoldingPeriod
	if years == 0 {
		years = projection.DefaultYears
	}

	growth := make([]float64, years)
	margins := make([]float64, years)
	for i := range growth {
		growth[i] = p.Growth.RevenueGrowth
		margins[i] = p.Growth.MarginEvolution * 100 // decimal to points
	}

	a := projection.NewOperatingAssumptions()
	a.ProjectionYears = years
	a.RevenueGrowth = growth
	a.MarginEvolution = margins
	a.CapexPct = p.Growth.CapexPct * 100
	if bfrPct > 0 {
		a.BFRPct = bfrPct
	}
	return a
}
