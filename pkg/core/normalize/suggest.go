package normalize

import (
	"fmt"

	"lbo_analyzer/pkg/models"
)

// SuggestAdjustments scans a statement for the usual LBO retraitements and
// returns them unapplied. They are advisory: the analyst (or an explicit
// pipeline flag) decides what actually enters the normalization.
//
// Heuristics:
//   - personnel above 40% of revenue suggests an excessive owner-manager
//     salary; the suggested add-back brings the ratio down to the 35% norm
//   - any exceptional expense is suggested for neutralization
func SuggestAdjustments(d *models.FiscalYearData) []Adjustment {
	var suggestions []Adjustment

	ca := d.IncomeStatement.Revenues.NetRevenue
	personnel := d.IncomeStatement.OperatingExpenses.PersonnelCosts

	if ca > 0 && personnel/ca > 0.40 {
		excessive := personnel - ca*0.35
		if excessive > 0 {
			suggestions = append(suggestions, Adjustment{
				Name:     "Rémunération dirigeant excessive",
				Amount:   excessive,
				Category: CategoryPersonnel,
				Description: fmt.Sprintf("Charges de personnel (%.1f%% CA) au-dessus de la norme (35%%). Retraitement suggéré.",
					personnel/ca*100),
			})
		}
	}

	exceptional := d.IncomeStatement.ExceptionalResult.TotalExceptionalExpense
	if exceptional > 0 {
		suggestions = append(suggestions, Adjustment{
			Name:        "Charges exceptionnelles",
			Amount:      exceptional,
			Category:    CategoryExceptional,
			Description: "Charges exceptionnelles non récurrentes à neutraliser",
		})
	}

	return suggestions
}
