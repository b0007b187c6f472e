package report

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"lbo_analyzer/pkg/models"
)

// BuildWorkbook assembles the analysis workbook: the year-by-year
// projections, the stress suite and the sensitivity grid, one sheet each.
func BuildWorkbook(in Input) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	sheetName := "Projections"
	f.SetSheetName("Sheet1", sheetName)

	headers := []string{
		"Année", "CA", "EBITDA", "Marge %", "CFADS",
		"Service dette", "Dette restante", "DSCR", "Levier", "FCF",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, h)
	}
	f.SetRowStyle(sheetName, 1, 1, headerStyle)

	for i, p := range in.Projections {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("Y%d", p.Year))
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), p.Revenue)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), p.EBITDA)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), p.MarginPct)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), p.CFADS)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), p.AnnualService)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), p.DebtRemaining)
		setRatioCell(f, sheetName, fmt.Sprintf("H%d", row), p.DSCR)
		setRatioCell(f, sheetName, fmt.Sprintf("I%d", row), p.Leverage)
		f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), p.FCF)
	}

	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "G", 14)
	f.SetColWidth(sheetName, "H", "J", 12)

	if len(in.StressResults) > 0 {
		stressSheet := "Stress Tests"
		f.NewSheet(stressSheet)

		stressHeaders := []string{"Scénario", "Type", "DSCR min", "Levier", "Marge %", "CFADS", "Statut"}
		for i, h := range stressHeaders {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(stressSheet, cell, h)
		}
		f.SetRowStyle(stressSheet, 1, 1, headerStyle)

		for i, r := range in.StressResults {
			row := i + 2
			f.SetCellValue(stressSheet, fmt.Sprintf("A%d", row), r.Scenario.Name)
			f.SetCellValue(stressSheet, fmt.Sprintf("B%d", row), string(r.Scenario.ScenarioType))
			setRatioCell(f, stressSheet, fmt.Sprintf("C%d", row), r.Metrics.DSCRMin)
			setRatioCell(f, stressSheet, fmt.Sprintf("D%d", row), r.Metrics.Leverage)
			f.SetCellValue(stressSheet, fmt.Sprintf("E%d", row), r.Metrics.Margin)
			f.SetCellValue(stressSheet, fmt.Sprintf("F%d", row), r.Metrics.CFADS)
			f.SetCellValue(stressSheet, fmt.Sprintf("G%d", row), r.Status)
		}

		f.SetColWidth(stressSheet, "A", "A", 28)
		f.SetColWidth(stressSheet, "B", "B", 18)
		f.SetColWidth(stressSheet, "C", "G", 12)
	}

	if in.Sensitivity != nil {
		sensSheet := "Sensibilité"
		f.NewSheet(sensSheet)

		f.SetCellValue(sensSheet, "A1", fmt.Sprintf("%s (Marge \\ CA)", in.Sensitivity.Metric))
		for j, ca := range in.Sensitivity.CALabels {
			cell, _ := excelize.CoordinatesToCellName(j+2, 1)
			f.SetCellValue(sensSheet, cell, ca)
		}
		for i, margin := range in.Sensitivity.MarginLabels {
			cell, _ := excelize.CoordinatesToCellName(1, i+2)
			f.SetCellValue(sensSheet, cell, margin)
			if i >= len(in.Sensitivity.Matrix) {
				continue
			}
			for j, v := range in.Sensitivity.Matrix[i] {
				cell, _ := excelize.CoordinatesToCellName(j+2, i+2)
				setRatioCell(f, sensSheet, cell, v)
			}
		}
		f.SetRowStyle(sensSheet, 1, 1, headerStyle)
		f.SetColWidth(sensSheet, "A", "A", 22)
	}

	return f, nil
}

// setRatioCell writes a ratio value, mapping non-finite values to a readable
// marker: IEEE infinities do not survive the xlsx number format.
func setRatioCell(f *excelize.File, sheet, cell string, v models.Float) {
	fv := float64(v)
	if math.IsInf(fv, 0) || math.IsNaN(fv) {
		f.SetCellValue(sheet, cell, "N/A")
		return
	}
	f.SetCellValue(sheet, cell, fv)
}

// SaveWorkbook writes the workbook to disk.
func SaveWorkbook(f *excelize.File, path string) error {
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}
