package ratios

import "lbo_analyzer/pkg/models"

// Standard ratios read straight off the liasse fiscale. Revenue-based
// margins fall back to total operating income when the net revenue line is
// empty, and return 0 on a zero base.

// EBITDAAccounting is the accounting EBITDA: operating income plus
// depreciation added back.
func EBITDAAccounting(d *models.FiscalYearData) float64 {
	return d.IncomeStatement.OperatingIncome + d.IncomeStatement.OperatingExpenses.Depreciation
}

func revenueBase(d *models.FiscalYearData) float64 {
	ca := d.IncomeStatement.Revenues.NetRevenue
	if ca == 0 {
		ca = d.IncomeStatement.Revenues.Total
	}
	return ca
}

// GrossMargin is revenue less consumed purchases (goods, raw materials,
// inventory variation), as a percentage of revenue.
func GrossMargin(d *models.FiscalYearData) float64 {
	ca := revenueBase(d)
	if ca == 0 {
		return 0
	}
	opex := d.IncomeStatement.OperatingExpenses
	consumed := opex.PurchasesOfGoods + opex.PurchasesOfRawMaterials + opex.InventoryVariation
	return (ca - consumed) / ca * 100
}

// OperatingMargin is operating income as a percentage of revenue.
func OperatingMargin(d *models.FiscalYearData) float64 {
	ca := revenueBase(d)
	if ca == 0 {
		return 0
	}
	return d.IncomeStatement.OperatingIncome / ca * 100
}

// NetMargin is net income as a percentage of revenue.
func NetMargin(d *models.FiscalYearData) float64 {
	ca := revenueBase(d)
	if ca == 0 {
		return 0
	}
	return d.IncomeStatement.NetIncome / ca * 100
}

// EBITDAMarginPct is a plain percentage helper for callers that already
// hold an EBITDA figure.
func EBITDAMarginPct(ebitda, revenue float64) float64 {
	if revenue <= 0 {
		return 0
	}
	return ebitda / revenue * 100
}

// BFRFromBalance computes the working-capital requirement from the balance
// sheet: operating receivables and inventory, less operating payables.
func BFRFromBalance(d *models.FiscalYearData) float64 {
	ca := d.BalanceSheet.Assets.CurrentAssets
	cl := d.BalanceSheet.Liabilities.CurrentLiabilities

	uses := ca.Inventory + ca.TradeReceivables + ca.OtherReceivables + ca.PrepaidExpenses
	resources := cl.TradePayables + cl.TaxLiabilities + cl.SocialLiabilities +
		cl.AdvancesReceived + cl.DeferredRevenue
	return uses - resources
}

// BFRDays converts a working-capital requirement into days of revenue.
func BFRDays(bfr, revenue float64) float64 {
	if revenue <= 0 {
		return 0
	}
	return bfr / revenue * 365
}

// FondsDeRoulement is permanent capital (equity, long-term debt,
// provisions) less fixed assets.
func FondsDeRoulement(d *models.FiscalYearData) float64 {
	liab := d.BalanceSheet.Liabilities
	permanent := liab.Equity.Total + liab.Debt.LongTermDebt + liab.Provisions.Total
	return permanent - d.BalanceSheet.Assets.FixedAssets.Total
}
