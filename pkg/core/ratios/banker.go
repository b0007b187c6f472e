package ratios

import (
	"math"

	"lbo_analyzer/pkg/core/cfads"
)

// Banker-side ratios. Division conventions follow the credit-analysis
// reading of each metric: a ratio that measures repayment capacity blows up
// to +Inf when there is nothing to repay, and a burden ratio collapses to 0
// when there is no burden. Callers never see a division panic.

// DefaultDebtCapacityMultiple is the prudential EBITDA multiple applied when
// the caller does not supply one.
const DefaultDebtCapacityMultiple = 4.0

// DSCR is the simple coverage ratio: accounting EBITDA over annual debt
// service. Zero service means nothing to cover, +Inf.
func DSCR(ebitda, annualService float64) float64 {
	if annualService == 0 {
		return math.Inf(1)
	}
	return ebitda / annualService
}

// DSCRFrench is the French banking convention: CFADS over annual debt
// service.
func DSCRFrench(cfadsValue, annualService float64) float64 {
	return cfads.DSCR(cfadsValue, annualService)
}

// NetDebt is gross financial debt less cash.
func NetDebt(grossDebt, cash float64) float64 {
	return grossDebt - cash
}

// NetDebtToEBITDA returns how many years of EBITDA the net debt represents.
// Zero EBITDA with positive net debt is unpayable, +Inf; with no net debt
// the ratio is 0.
func NetDebtToEBITDA(netDebt, ebitda float64) float64 {
	if ebitda == 0 {
		if netDebt > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return netDebt / ebitda
}

// Gearing is net debt over equity, in percent. Non-positive equity with
// positive net debt is +Inf; without net debt, 0.
func Gearing(netDebt, equity float64) float64 {
	if equity <= 0 {
		if netDebt > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return netDebt / equity * 100
}

// InterestCoverage is operating income over financial charges. Zero charges
// means +Inf.
func InterestCoverage(operatingIncome, interestExpense float64) float64 {
	if interestExpense == 0 {
		return math.Inf(1)
	}
	return operatingIncome / interestExpense
}

// LoanToValue is total debt over enterprise value, in percent. A degenerate
// enterprise value with outstanding debt reads as fully levered, 100.
func LoanToValue(totalDebt, enterpriseValue float64) float64 {
	if enterpriseValue <= 0 {
		if totalDebt > 0 {
			return 100
		}
		return 0
	}
	return totalDebt / enterpriseValue * 100
}

// DebtCapacity is the sustainable borrowing amount at a prudential EBITDA
// multiple. A non-positive multiple falls back to the default; non-positive
// EBITDA supports no debt.
func DebtCapacity(ebitda, multiple float64) float64 {
	if multiple <= 0 {
		multiple = DefaultDebtCapacityMultiple
	}
	if ebitda <= 0 {
		return 0
	}
	return ebitda * multiple
}

// CurrentRatio is current assets over current liabilities.
func CurrentRatio(currentAssets, currentLiabilities float64) float64 {
	if currentLiabilities == 0 {
		if currentAssets > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return currentAssets / currentLiabilities
}

// QuickRatio excludes inventory from the numerator (acid test).
func QuickRatio(currentAssets, inventory, currentLiabilities float64) float64 {
	quick := currentAssets - inventory
	if currentLiabilities == 0 {
		if quick > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return quick / currentLiabilities
}

// FinancialAutonomy is equity over the balance-sheet total, in percent.
func FinancialAutonomy(equity, balanceTotal float64) float64 {
	if balanceTotal <= 0 {
		return 0
	}
	return equity / balanceTotal * 100
}

// DebtToAssets is total debt over total assets, in percent.
func DebtToAssets(totalDebt, totalAssets float64) float64 {
	if totalAssets <= 0 {
		return 0
	}
	return totalDebt / totalAssets * 100
}
