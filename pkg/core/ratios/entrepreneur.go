package ratios

import "math"

// Entrepreneur-side returns math: what the equity holder gets back, when,
// and at what annualized rate.

// ROE is net income over book equity, in percent. Non-positive equity has
// no meaningful return, 0.
func ROE(netIncome, equity float64) float64 {
	if equity <= 0 {
		return 0
	}
	return netIncome / equity * 100
}

// PaybackPeriod is the number of years until cumulative cash flows repay
// the equity invested, interpolating inside the crossing year. Flows that
// never add up to the investment yield +Inf.
func PaybackPeriod(equityInvested float64, flows []float64) float64 {
	if equityInvested <= 0 {
		return 0
	}

	cumulative := 0.0
	for i, flow := range flows {
		if cumulative+flow >= equityInvested {
			remaining := equityInvested - cumulative
			return float64(i) + remaining/flow
		}
		cumulative += flow
	}
	return math.Inf(1)
}

// NPV discounts the flows at the given rate against the initial outlay.
// Flows are end-of-year: flows[0] discounts one full period.
func NPV(rate, initial float64, flows []float64) float64 {
	npv := -initial
	for i, flow := range flows {
		npv += flow / math.Pow(1+rate, float64(i+1))
	}
	return npv
}

// IRR solves NPV(r) = 0 by bisection on [-0.99, 10]. When the flows never
// change the NPV sign on that interval there is no meaningful rate and the
// result is NaN.
func IRR(initial float64, flows []float64) float64 {
	const (
		iterations = 200
		tolerance  = 1e-7
	)

	lo, hi := -0.99, 10.0
	npvLo := NPV(lo, initial, flows)
	npvHi := NPV(hi, initial, flows)
	if npvLo*npvHi > 0 {
		return math.NaN()
	}

	mid := lo
	for i := 0; i < iterations; i++ {
		mid = (lo + hi) / 2
		npvMid := NPV(mid, initial, flows)
		if math.Abs(npvMid) < tolerance {
			return mid
		}
		if npvLo*npvMid < 0 {
			hi = mid
		} else {
			lo = mid
			npvLo = npvMid
		}
	}
	return mid
}

// MultipleOfMoney is total proceeds over the amount invested.
func MultipleOfMoney(totalProceeds, invested float64) float64 {
	if invested <= 0 {
		return 0
	}
	return totalProceeds / invested
}

// ExitValue prices the business at a multiple of EBITDA.
func ExitValue(ebitda, multiple float64) float64 {
	return ebitda * multiple
}
