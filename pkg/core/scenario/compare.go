package scenario

import (
	"fmt"

	"lbo_analyzer/pkg/models"
)

// CompareRow summarizes one scenario's financing profile for side-by-side
// tables. DebtToEquity uses the Float type: an all-debt scenario is +Inf.
type CompareRow struct {
	Name              string       `json:"scenario_name"`
	TotalFinancing    float64      `json:"total_financing"`
	LeverageRatio     float64      `json:"leverage_ratio"`
	DebtToEquity      models.Float `json:"debt_to_equity"`
	AnnualDebtService float64      `json:"annual_debt_service"`
}

// Compare computes the financing profile of each scenario. The list must
// not be empty.
func Compare(scenarios []Params) ([]CompareRow, error) {
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("La liste de scenarios ne peut pas etre vide")
	}

	rows := make([]CompareRow, 0, len(scenarios))
	for i := range scenarios {
		p := &scenarios[i]
		rows = append(rows, CompareRow{
			Name:              p.Name,
			TotalFinancing:    p.TotalFinancing(),
			LeverageRatio:     p.LeverageRatio(),
			DebtToEquity:      models.Float(p.DebtToEquity()),
			AnnualDebtService: p.AnnualDebtService(),
		})
	}
	return rows, nil
}
