package trends

import (
	"lbo_analyzer/pkg/core/ratios"
	"lbo_analyzer/pkg/models"
)

// Metric is one tracked series: a stable key, the French label used in
// anomaly messages and reports, and a typed accessor into the liasse.
type Metric struct {
	Key     string
	Label   string
	extract func(d *models.FiscalYearData) float64
}

// Value reads the metric off one fiscal year.
func (m Metric) Value(d *models.FiscalYearData) float64 {
	return m.extract(d)
}

// Metrics returns the tracked series in canonical order.
func Metrics() []Metric {
	return []Metric{
		{"revenues", "Chiffre d'affaires", revenueOf},
		{"ebitda", "EBITDA", ratios.EBITDAAccounting},
		{"net_income", "Resultat net", netIncomeOf},
		{"personnel_costs", "Charges de personnel", personnelOf},
		{"external_charges", "Charges externes", externalChargesOf},
		{"total_assets", "Total actif", totalAssetsOf},
		{"equity", "Capitaux propres", equityOf},
		{"total_debt", "Dette totale", totalDebtOf},
		{"cash", "Tresorerie", cashOf},
		{"bfr", "BFR", ratios.BFRFromBalance},
		{"ebitda_margin", "Marge EBITDA", ebitdaMarginOf},
		{"net_margin", "Marge nette", ratios.NetMargin},
		{"roe", "ROE", roeOf},
		{"debt_to_equity", "Dette/Capitaux propres", debtToEquityOf},
		{"current_ratio", "Ratio de liquidite", currentRatioOf},
	}
}

// MetricByKey looks a metric up in the canonical table.
func MetricByKey(key string) (Metric, bool) {
	for _, m := range Metrics() {
		if m.Key == key {
			return m, true
		}
	}
	return Metric{}, false
}

func revenueOf(d *models.FiscalYearData) float64 {
	if ca := d.IncomeStatement.Revenues.NetRevenue; ca != 0 {
		return ca
	}
	return d.IncomeStatement.Revenues.Total
}

func netIncomeOf(d *models.FiscalYearData) float64 {
	return d.IncomeStatement.NetIncome
}

func personnelOf(d *models.FiscalYearData) float64 {
	return d.PersonnelCosts()
}

func externalChargesOf(d *models.FiscalYearData) float64 {
	return d.IncomeStatement.OperatingExpenses.ExternalCharges
}

func totalAssetsOf(d *models.FiscalYearData) float64 {
	return d.BalanceSheet.Assets.Total
}

func equityOf(d *models.FiscalYearData) float64 {
	return d.BalanceSheet.Liabilities.Equity.Total
}

func totalDebtOf(d *models.FiscalYearData) float64 {
	return d.BalanceSheet.Liabilities.Debt.Total
}

func cashOf(d *models.FiscalYearData) float64 {
	return d.BalanceSheet.Assets.CurrentAssets.Cash
}

func ebitdaMarginOf(d *models.FiscalYearData) float64 {
	return ratios.EBITDAMarginPct(ratios.EBITDAAccounting(d), revenueOf(d))
}

func roeOf(d *models.FiscalYearData) float64 {
	return ratios.ROE(d.IncomeStatement.NetIncome, d.BalanceSheet.Liabilities.Equity.Total)
}

// Ratio series stay finite so the growth and volatility math keeps working:
// a degenerate denominator reads as 0 here, not the +Inf the point-in-time
// ratios package reports.
func debtToEquityOf(d *models.FiscalYearData) float64 {
	equity := d.BalanceSheet.Liabilities.Equity.Total
	if equity <= 0 {
		return 0
	}
	return d.BalanceSheet.Liabilities.Debt.Total / equity
}

func currentRatioOf(d *models.FiscalYearData) float64 {
	cl := d.BalanceSheet.Liabilities.CurrentLiabilities.Total
	if cl <= 0 {
		return 0
	}
	return d.BalanceSheet.Assets.CurrentAssets.Total / cl
}
