package scenario

import (
	"fmt"
	"strings"

	"lbo_analyzer/pkg/core/debt"
)

// Presets returns the four predefined financing scenarios, from the
// low-debt conservative case to the max-leverage aggressive one. Each call
// returns fresh copies so callers can adjust them freely.
func Presets() []Params {
	return []Params{
		{
			Name: "Conservateur",
			Debt: DebtParams{
				Amount:        200_000,
				InterestRate:  0.04,
				DurationYears: 10,
				Amortization:  debt.AmortizationLinear,
			},
			Equity: EquityParams{Amount: 800_000, TargetROE: 0.08, ExitMultiple: 5.0, HoldingPeriod: 7},
			Growth: GrowthParams{RevenueGrowth: 0.02, CapexPct: 0.02, Inflation: 0.02},
			Stress: &StressParams{RevenueShock: -0.05, MarginCompression: -0.02, RateIncrease: 0.005},
		},
		{
			Name: "Equilibre",
			Debt: DebtParams{
				Amount:        500_000,
				InterestRate:  0.05,
				DurationYears: 7,
				GracePeriod:   1,
				Amortization:  debt.AmortizationConstant,
			},
			Equity: EquityParams{Amount: 500_000, TargetROE: 0.12, ExitMultiple: 6.0, HoldingPeriod: 5},
			Growth: GrowthParams{RevenueGrowth: 0.05, MarginEvolution: 0.005, CapexPct: 0.03, Inflation: 0.02},
			Stress: &StressParams{RevenueShock: -0.10, MarginCompression: -0.05, RateIncrease: 0.01},
		},
		{
			Name: "Leverage",
			Debt: DebtParams{
				Amount:        700_000,
				InterestRate:  0.06,
				DurationYears: 7,
				GracePeriod:   2,
				Amortization:  debt.AmortizationConstant,
			},
			Equity: EquityParams{Amount: 300_000, TargetROE: 0.18, ExitMultiple: 7.0, HoldingPeriod: 5},
			Growth: GrowthParams{RevenueGrowth: 0.08, MarginEvolution: 0.01, CapexPct: 0.04, Inflation: 0.025},
			Stress: &StressParams{RevenueShock: -0.15, MarginCompression: -0.08, RateIncrease: 0.02},
		},
		{
			Name: "Agressif",
			Debt: DebtParams{
				Amount:        850_000,
				InterestRate:  0.07,
				DurationYears: 5,
				GracePeriod:   1,
				Amortization:  debt.AmortizationConstant,
			},
			Equity: EquityParams{Amount: 150_000, TargetROE: 0.25, ExitMultiple: 8.0, HoldingPeriod: 4},
			Growth: GrowthParams{RevenueGrowth: 0.12, MarginEvolution: 0.02, CapexPct: 0.05, Inflation: 0.03},
			Stress: &StressParams{RevenueShock: -0.20, MarginCompression: -0.10, RateIncrease: 0.03},
		},
	}
}

// PresetByName looks a predefined scenario up, case-insensitively.
func PresetByName(name string) (Params, bool) {
	for _, p := range Presets() {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Params{}, false
}

// BaseScenario builds the 100%-equity reference case: no debt, no growth,
// no stress. Comparing a financing scenario against it isolates the effect
// of the leverage itself.
func BaseScenario(equityAmount float64) (Params, error) {
	if equityAmount <= 0 {
		return Params{}, fmt.Errorf(
			"Impossible de determiner les capitaux propres: montant fourni %.0f", equityAmount)
	}
	return Params{
		Name: "Base (sans financement)",
		Debt: DebtParams{
			DurationYears: 1,
			Amortization:  debt.AmortizationConstant,
		},
		Equity: EquityParams{Amount: equityAmount, HoldingPeriod: 1},
	}, nil
}
