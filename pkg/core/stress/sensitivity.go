package stress

import (
	"fmt"

	"lbo_analyzer/pkg/core/debt"
	"lbo_analyzer/pkg/core/normalize"
	"lbo_analyzer/pkg/models"
)

// Grid axes of the sensitivity matrix: CA variation in percent (columns),
// EBITDA margin variation in points (rows).
var (
	caVariations     = []int{-20, -10, 0, 10, 20}
	marginVariations = []int{-4, -2, 0, 2, 4}
)

// Matrix is the 2-D sensitivity of one metric to CA x margin variations.
// Rows follow MarginLabels, columns follow CALabels.
type Matrix struct {
	Matrix       [][]models.Float `json:"matrix"`
	CALabels     []string         `json:"ca_labels"`
	MarginLabels []string         `json:"margin_labels"`
	Metric       string           `json:"metric"`
}

// SensitivityMatrix evaluates the chosen metric over the 5x5 grid. An empty
// metric name defaults to dscr_min.
func SensitivityMatrix(baseline *models.FiscalYearData, structure *debt.Structure, norm *normalize.Result, metric string) Matrix {
	if metric == "" {
		metric = "dscr_min"
	}

	matrix := make([][]models.Float, 0, len(marginVariations))
	for _, marginVar := range marginVariations {
		row := make([]models.Float, 0, len(caVariations))
		for _, caVar := range caVariations {
			sc := Scenario{
				Name:         fmt.Sprintf("CA %+d%%, Marge %+dpts", caVar, marginVar),
				ScenarioType: TypeCombinedCrisis,
				Description:  "Scénario de sensibilité",
				RevenueShock: float64(caVar) / 100,
				MarginShock:  float64(marginVar),
			}
			res := Apply(baseline, structure, norm, sc)
			row = append(row, metricValue(res.Metrics, metric))
		}
		matrix = append(matrix, row)
	}

	caLabels := make([]string, len(caVariations))
	for i, v := range caVariations {
		caLabels[i] = fmt.Sprintf("%+d%%", v)
	}
	marginLabels := make([]string, len(marginVariations))
	for i, v := range marginVariations {
		marginLabels[i] = fmt.Sprintf("%+dpts", v)
	}

	return Matrix{
		Matrix:       matrix,
		CALabels:     caLabels,
		MarginLabels: marginLabels,
		Metric:       metric,
	}
}

// metricValue selects a metric by its persistence key; unknown keys read 0.
func metricValue(m Metrics, key string) models.Float {
	switch key {
	case "dscr_min":
		return m.DSCRMin
	case "leverage":
		return m.Leverage
	case "margin":
		return models.Float(m.Margin)
	case "fcf_year3":
		return models.Float(m.FCFYear3)
	case "ebitda":
		return models.Float(m.EBITDA)
	case "cfads":
		return models.Float(m.CFADS)
	case "ca":
		return models.Float(m.CA)
	case "annual_service":
		return models.Float(m.AnnualService)
	default:
		return 0
	}
}
