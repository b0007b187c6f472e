// Package cfads derives the Cash Flow Available for Debt Service, the cash
// metric French credit committees divide debt service into to get the DSCR.
//
// The tax line is deliberately simplified: IS is taken as a flat effective
// rate on EBITDA, not a full tax computation. That is the convention of the
// quick bankability screen this engine implements.
package cfads

import "math"

// Input carries one year of cash-flow drivers.
type Input struct {
	EBITDABank  float64 `json:"ebitda_bank"`
	TaxRate     float64 `json:"tax_rate"`
	BFRCurrent  float64 `json:"bfr_current"`
	BFRPrevious float64 `json:"bfr_previous"`
	Capex       float64 `json:"capex"`
}

// Result decomposes the CFADS so reports can show the bridge.
type Result struct {
	EBITDA   float64 `json:"ebitda"`
	ISCash   float64 `json:"is_cash"`
	DeltaBFR float64 `json:"delta_bfr"`
	Capex    float64 `json:"capex"`
	CFADS    float64 `json:"cfads"`
}

// Compute applies the CFADS identity:
//
//	CFADS = EBITDA - IS cash - ΔBFR - Capex de maintien
func Compute(in Input) Result {
	isCash := in.EBITDABank * in.TaxRate
	deltaBFR := in.BFRCurrent - in.BFRPrevious

	return Result{
		EBITDA:   in.EBITDABank,
		ISCash:   isCash,
		DeltaBFR: deltaBFR,
		Capex:    in.Capex,
		CFADS:    in.EBITDABank - isCash - deltaBFR - in.Capex,
	}
}

// DSCR is CFADS over annual debt service. No debt service means nothing to
// cover: the ratio is +Inf by convention, never an error.
func DSCR(cfadsValue, annualService float64) float64 {
	if annualService == 0 {
		return math.Inf(1)
	}
	return cfadsValue / annualService
}
