package ratios

import (
	"math"

	"lbo_analyzer/pkg/core/debt"
	"lbo_analyzer/pkg/core/normalize"
	"lbo_analyzer/pkg/models"
)

// Defaults applied when no scenario supplies exit parameters.
const (
	defaultHoldingYears = 5
	defaultExitMultiple = 6.0
)

// Snapshot computes every catalog metric that a single fiscal year supports
// and returns them keyed like Catalog(). CFADS-based metrics need a BFR
// history and are left to the projection pipeline.
//
// norm and structure are optional. When norm is present its EBITDA-bank
// feeds the debt-bearing ratios; the accounting EBITDA from the statement is
// always reported under "ebitda". Balance-sheet figures win over structure
// amounts for the leverage ratios; the structure's amounts win for the
// invested-capital returns, mirroring how a banker reads the existing
// accounts but an investor reasons on the new money.
func Snapshot(d *models.FiscalYearData, norm *normalize.Result, structure *debt.Structure, annualService float64) map[string]models.Float {
	ebitdaAccounting := EBITDAAccounting(d)
	ebitdaBank := ebitdaAccounting
	if norm != nil {
		ebitdaBank = norm.EBITDABank
	}

	bs := d.BalanceSheet
	equityBook := bs.Liabilities.Equity.Total
	cash := bs.Assets.CurrentAssets.Cash

	grossDebt := bs.Liabilities.Debt.Total
	if grossDebt == 0 && structure != nil {
		grossDebt = structure.TotalDebt()
	}
	netDebt := NetDebt(grossDebt, cash)

	investEquity := equityBook
	investDebt := bs.Liabilities.Debt.Total
	if structure != nil {
		if structure.EquityAmount > 0 {
			investEquity = structure.EquityAmount
		}
		if td := structure.TotalDebt(); td > 0 {
			investDebt = td
		}
	}

	interest := d.IncomeStatement.FinancialResult.InterestExpense
	if interest == 0 {
		interest = d.IncomeStatement.FinancialResult.TotalFinancialExpense
	}

	balanceTotal := bs.Liabilities.Total
	if balanceTotal == 0 {
		balanceTotal = bs.Assets.Total
	}

	ca := revenueBase(d)
	bfr := BFRFromBalance(d)
	exitVal := ExitValue(ebitdaAccounting, defaultExitMultiple)
	finalValue := exitVal - investDebt*0.5

	out := map[string]float64{
		// Banker
		"dscr":               DSCR(ebitdaBank, annualService),
		"icr":                InterestCoverage(d.IncomeStatement.OperatingIncome, interest),
		"net_debt_to_ebitda": NetDebtToEBITDA(netDebt, ebitdaBank),
		"gearing":            Gearing(netDebt, equityBook),
		"ltv":                LoanToValue(grossDebt, equityBook+grossDebt),
		"debt_capacity":      DebtCapacity(ebitdaBank, 0),
		"current_ratio":      CurrentRatio(bs.Assets.CurrentAssets.Total, bs.Liabilities.CurrentLiabilities.Total),
		"quick_ratio":        QuickRatio(bs.Assets.CurrentAssets.Total, bs.Assets.CurrentAssets.Inventory, bs.Liabilities.CurrentLiabilities.Total),
		"financial_autonomy": FinancialAutonomy(equityBook, balanceTotal),
		"debt_to_assets":     DebtToAssets(grossDebt, bs.Assets.Total),

		// Liquidity / activity
		"fonds_de_roulement": FondsDeRoulement(d),
		"bfr":                bfr,
		"bfr_days":           BFRDays(bfr, ca),

		// Profitability
		"ebitda":             ebitdaAccounting,
		"marge_brute":        GrossMargin(d),
		"marge_exploitation": OperatingMargin(d),
		"marge_nette":        NetMargin(d),

		// Entrepreneur
		"roe":                 ROE(d.IncomeStatement.NetIncome, equityBook),
		"payback_period":      paybackSimple(investEquity, ebitdaAccounting),
		"irr":                 irrSimple(ROE(d.IncomeStatement.NetIncome, equityBook), defaultHoldingYears),
		"npv":                 exitVal - (investEquity + investDebt),
		"exit_multiple":       defaultExitMultiple,
		"cash_on_cash_return": cashOnCash(ebitdaAccounting, investEquity),
		"equity_multiple":     MultipleOfMoney(finalValue, investEquity),
		"value_creation":      finalValue - (investEquity + investDebt),
		"cumulative_roi":      cumulativeROI(finalValue, investEquity),
	}

	snapshot := make(map[string]models.Float, len(out))
	for key, value := range out {
		snapshot[key] = models.Float(value)
	}
	return snapshot
}

// paybackSimple is the single-flow payback: years of EBITDA needed to
// recover the equity. Non-positive EBITDA never repays, +Inf.
func paybackSimple(equityInvested, ebitda float64) float64 {
	if equityInvested <= 0 {
		return 0
	}
	if ebitda <= 0 {
		return math.Inf(1)
	}
	return equityInvested / ebitda
}

// irrSimple annualizes the holding-period ROE: (1+roe)^(1/holding) - 1, in
// percent. A ROE at or below -100% floors the result at -100.
func irrSimple(roePct float64, holdingYears int) float64 {
	if roePct == 0 {
		return 0
	}
	roe := roePct / 100
	if roe <= -1 {
		return -100
	}
	if holdingYears <= 0 {
		holdingYears = defaultHoldingYears
	}
	return (math.Pow(1+roe, 1/float64(holdingYears)) - 1) * 100
}

func cashOnCash(ebitda, equityInvested float64) float64 {
	if equityInvested <= 0 {
		return 0
	}
	return ebitda / equityInvested * 100
}

func cumulativeROI(finalValue, equityInvested float64) float64 {
	if equityInvested <= 0 {
		return 0
	}
	return (finalValue - equityInvested) / equityInvested * 100
}
