// Package normalize converts a raw fiscal statement into the EBITDA figures
// the rest of the engine runs on.
//
// French SME accounts are normalized in two steps: the EBE (excédent brut
// d'exploitation) comes straight off the income statement, then named
// adjustments (retraitements) are added back to produce EBITDA-bank, the
// figure credit committees lend against. EBITDA-equity nets out cash tax and
// maintenance capex for equity-return work. Every step appends a line to an
// audit trail so a reviewer can re-derive the figures by hand.
package normalize

import (
	"fmt"

	"lbo_analyzer/pkg/core/utils"
	"lbo_analyzer/pkg/models"
)

// Category classifies an adjustment for reporting.
type Category string

const (
	CategoryPersonnel   Category = "personnel"
	CategoryRent        Category = "rent"
	CategoryExceptional Category = "exceptional"
	CategoryOther       Category = "other"
)

// Adjustment is a single retraitement. Amount is added to the EBE as-is:
// positive means add-back, a negative amount carries its own sign.
type Adjustment struct {
	Name        string   `json:"name"`
	Amount      float64  `json:"amount"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	IsApplied   bool     `json:"is_applied"`
}

// Result is the normalization record passed downstream once the adjustments
// are settled.
type Result struct {
	EBE          float64      `json:"ebe"`
	Adjustments  []Adjustment `json:"adjustments"`
	EBITDABank   float64      `json:"ebitda_bank"`
	EBITDAEquity float64      `json:"ebitda_equity"`
	AuditLog     []string     `json:"audit_log"`
}

// CalculateEBE computes the excédent brut d'exploitation:
//
//	EBE = CA - achats consommés - charges externes - impôts & taxes - charges de personnel
//
// Missing statement lines read as zero; the EBE itself may be negative.
func CalculateEBE(d *models.FiscalYearData) float64 {
	oe := d.IncomeStatement.OperatingExpenses

	return d.IncomeStatement.Revenues.NetRevenue -
		oe.PurchasesOfGoods -
		oe.PurchasesOfRawMaterials -
		oe.InventoryVariation -
		oe.ExternalCharges -
		oe.TaxesAndDuties -
		d.PersonnelCosts()
}

// NewResult seeds a normalization record with the computed EBE and any
// adjustments already decided.
func NewResult(ebe float64, adjustments []Adjustment) *Result {
	r := &Result{
		EBE:         ebe,
		Adjustments: adjustments,
	}
	r.AuditLog = append(r.AuditLog, fmt.Sprintf("EBE initial calculé: %s €", utils.GroupThousands(ebe)))
	return r
}

// AppliedTotal sums the amounts of applied adjustments.
func (r *Result) AppliedTotal() float64 {
	var total float64
	for _, a := range r.Adjustments {
		if a.IsApplied {
			total += a.Amount
		}
	}
	return total
}

// ComputeBank sets EBITDA-bank = EBE + applied adjustments.
func (r *Result) ComputeBank() {
	total := r.AppliedTotal()
	r.EBITDABank = r.EBE + total
	r.AuditLog = append(r.AuditLog, fmt.Sprintf("EBITDA banque calculé: %s + %s = %s",
		utils.GroupThousands(r.EBE), utils.GroupThousands(total), utils.GroupThousands(r.EBITDABank)))
}

// ComputeEquity sets EBITDA-equity = EBITDA-bank - IS théorique - capex de
// maintenance. The result can be negative; that is information, not an error.
func (r *Result) ComputeEquity(taxRate, capexMaintenance float64) {
	isCash := r.EBITDABank * taxRate
	r.EBITDAEquity = r.EBITDABank - isCash - capexMaintenance
	r.AuditLog = append(r.AuditLog, fmt.Sprintf("EBITDA equity calculé: %s - %s (IS) - %s (Capex) = %s",
		utils.GroupThousands(r.EBITDABank), utils.GroupThousands(isCash),
		utils.GroupThousands(capexMaintenance), utils.GroupThousands(r.EBITDAEquity)))
}

// Normalize runs the full chain on one fiscal year: EBE, then both EBITDA
// figures with the provided adjustments.
func Normalize(d *models.FiscalYearData, adjustments []Adjustment, taxRate, capexMaintenance float64) *Result {
	r := NewResult(CalculateEBE(d), adjustments)
	r.ComputeBank()
	r.ComputeEquity(taxRate, capexMaintenance)
	return r
}

// Clone deep-copies the record so stress scenarios can rewrite EBITDA-bank
// without touching the settled baseline.
func (r *Result) Clone() *Result {
	c := *r
	c.Adjustments = make([]Adjustment, len(r.Adjustments))
	copy(c.Adjustments, r.Adjustments)
	c.AuditLog = make([]string, len(r.AuditLog))
	copy(c.AuditLog, r.AuditLog)
	return &c
}
