// Package models defines the shared data records exchanged between the
// analysis engine, the persistence layer and the API: the French fiscal
// statement (liasse fiscale shape) and JSON helpers for ratio values.
package models

// =============================================================================
// FISCAL STATEMENT STRUCTURES
// Field layout follows the liasse fiscale (formulaires 2050-2053); the line
// codes in comments refer to those forms. All amounts are EUR. A missing line
// is simply 0: calculations degrade, they never error.
// =============================================================================

// Revenues holds the top of the income statement.
type Revenues struct {
	NetRevenue float64 `json:"net_revenue"` // FL - chiffre d'affaires net
	Total      float64 `json:"total"`       // produits d'exploitation
}

// OperatingExpenses holds the charges d'exploitation used by the EBE
// calculation. PersonnelCosts is the aggregate; when a source only provides
// the split, WagesAndSalaries + SocialCharges stand in for it.
type OperatingExpenses struct {
	PurchasesOfGoods        float64 `json:"purchases_of_goods"`         // FS
	PurchasesOfRawMaterials float64 `json:"purchases_of_raw_materials"` // FU
	InventoryVariation      float64 `json:"inventory_variation"`        // FT + FV
	ExternalCharges         float64 `json:"external_charges"`           // FW
	TaxesAndDuties          float64 `json:"taxes_and_duties"`           // FX
	PersonnelCosts          float64 `json:"personnel_costs"`            // FY + FZ
	WagesAndSalaries        float64 `json:"wages_and_salaries"`         // FY
	SocialCharges           float64 `json:"social_charges"`             // FZ
	Depreciation            float64 `json:"depreciation"`               // GA
}

type FinancialResult struct {
	TotalFinancialExpense float64 `json:"total_financial_expense"` // GU
	InterestExpense       float64 `json:"interest_expense"`        // GR
}

type ExceptionalResult struct {
	TotalExceptionalIncome  float64 `json:"total_exceptional_income"`  // HD
	TotalExceptionalExpense float64 `json:"total_exceptional_expense"` // HH
}

type IncomeStatement struct {
	Revenues          Revenues          `json:"revenues"`
	OperatingExpenses OperatingExpenses `json:"operating_expenses"`
	OperatingIncome   float64           `json:"operating_income"` // GG
	FinancialResult   FinancialResult   `json:"financial_result"`
	ExceptionalResult ExceptionalResult `json:"exceptional_result"`
	NetIncome         float64           `json:"net_income"` // HN
}

type CurrentAssets struct {
	Cash             float64 `json:"cash"`              // CF
	Inventory        float64 `json:"inventory"`         // BL..BT
	TradeReceivables float64 `json:"trade_receivables"` // BX
	OtherReceivables float64 `json:"other_receivables"` // BZ
	PrepaidExpenses  float64 `json:"prepaid_expenses"`  // CH
	Total            float64 `json:"total"`             // CJ
}

type FixedAssets struct {
	Total float64 `json:"total"` // BJ
}

type Assets struct {
	CurrentAssets CurrentAssets `json:"current_assets"`
	FixedAssets   FixedAssets   `json:"fixed_assets"`
	Total         float64       `json:"total"` // CO
}

type EquitySection struct {
	Total float64 `json:"total"` // DL
}

type DebtSection struct {
	LongTermDebt  float64 `json:"long_term_debt"`  // DU + DV
	ShortTermDebt float64 `json:"short_term_debt"` // concours bancaires courants
	Total         float64 `json:"total"`
}

type CurrentLiabilities struct {
	TradePayables     float64 `json:"trade_payables"`     // DX
	TaxLiabilities    float64 `json:"tax_liabilities"`    // DY (part fiscale)
	SocialLiabilities float64 `json:"social_liabilities"` // DY (part sociale)
	AdvancesReceived  float64 `json:"advances_received"`  // DW
	DeferredRevenue   float64 `json:"deferred_revenue"`   // EB
	Total             float64 `json:"total"`
}

type Provisions struct {
	Total float64 `json:"total"` // DR
}

type Liabilities struct {
	Equity             EquitySection      `json:"equity"`
	Debt               DebtSection        `json:"debt"`
	CurrentLiabilities CurrentLiabilities `json:"current_liabilities"`
	Provisions         Provisions         `json:"provisions"`
	Total              float64            `json:"total"` // EE
}

type BalanceSheet struct {
	Assets      Assets      `json:"assets"`
	Liabilities Liabilities `json:"liabilities"`
}

// WorkingCapital carries the BFR assumption attached to the statement.
// BFRPct is in percent of revenue (18 means 18%); 0 means "not provided"
// and consumers fall back to the 18% French SME norm.
type WorkingCapital struct {
	BFRPct float64 `json:"bfr_pct"`
}

// FiscalYearData is one company fiscal year as extracted from the liasse.
// It is read-only for the engine: every transformation (stress shocks
// included) works on a copy.
type FiscalYearData struct {
	CompanyName     string          `json:"company_name"`
	SIREN           string          `json:"siren"`
	FiscalYear      int             `json:"fiscal_year"`
	YearEnd         string          `json:"year_end"`
	IncomeStatement IncomeStatement `json:"income_statement"`
	BalanceSheet    BalanceSheet    `json:"balance_sheet"`
	WorkingCapital  WorkingCapital  `json:"working_capital"`
}

// PersonnelCosts returns the aggregate personnel charge, falling back to
// wages + social contributions when the aggregate line is absent.
func (d *FiscalYearData) PersonnelCosts() float64 {
	oe := d.IncomeStatement.OperatingExpenses
	if oe.PersonnelCosts != 0 {
		return oe.PersonnelCosts
	}
	return oe.WagesAndSalaries + oe.SocialCharges
}

// Clone returns a deep copy. FiscalYearData is all value types, so the
// shallow copy is already deep; the method exists to make call sites that
// must not mutate the baseline explicit.
func (d *FiscalYearData) Clone() *FiscalYearData {
	c := *d
	return &c
}
