// Package trends analyzes multi-year fiscal histories: compound growth,
// volatility, trend direction, anomaly detection and a next-year projection
// for the series a credit file tracks across exercices.
package trends

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"lbo_analyzer/pkg/models"
)

// Direction labels for a metric series.
const (
	DirectionGrowth  = "croissance"
	DirectionStable  = "stable"
	DirectionDecline = "decroissance"
)

// Anomaly severities.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Global health verdicts for Summary.
const (
	HealthSound    = "saine"
	HealthFragile  = "fragile"
	HealthDegraded = "degradee"
)

// DefaultAnomalyThreshold flags year-over-year swings above 30%.
const DefaultAnomalyThreshold = 0.3

// =============================================================================
// SERIES MATH
// =============================================================================

// CAGR is the compound annual growth rate over the series, as a decimal.
// A zero starting value has no growth base and yields 0; a negative endpoint
// breaks the root, so the mean year-over-year growth substitutes.
func CAGR(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	initial := values[0]
	final := values[len(values)-1]
	if initial == 0 {
		return 0
	}
	if initial < 0 || final < 0 {
		return averageGrowth(values)
	}

	n := float64(len(values) - 1)
	return math.Pow(final/initial, 1/n) - 1
}

func averageGrowth(values []float64) float64 {
	var sum float64
	count := 0
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		sum += (values[i] - values[i-1]) / math.Abs(values[i-1])
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// YoYChanges returns the year-over-year variations as decimals, aligned to
// the series from its second year (length n-1). Growth from a zero base is
// 0 when the value stays at zero, +Inf otherwise.
func YoYChanges(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}

	changes := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		switch {
		case prev != 0:
			changes = append(changes, (values[i]-prev)/math.Abs(prev))
		case values[i] == 0:
			changes = append(changes, 0)
		default:
			changes = append(changes, math.Inf(1))
		}
	}
	return changes
}

// Volatility is the coefficient of variation |σ/μ| over the non-zero values
// of the series (population σ). Fewer than two non-zero points, or a zero
// mean, read as no volatility.
func Volatility(values []float64) float64 {
	valid := make([]float64, 0, len(values))
	for _, v := range values {
		if v != 0 {
			valid = append(valid, v)
		}
	}
	if len(valid) < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range valid {
		mean += v
	}
	mean /= float64(len(valid))
	if mean == 0 {
		return 0
	}

	variance := 0.0
	for _, v := range valid {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(valid))

	return math.Abs(math.Sqrt(variance) / mean)
}

// DirectionOf classifies the series by its least-squares slope, normalized
// by the series mean: above +2% a year reads as growth, below -2% as
// decline.
func DirectionOf(values []float64) string {
	if len(values) < 2 {
		return DirectionStable
	}

	slope, _, ok := leastSquares(values)
	if !ok {
		return DirectionStable
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	relative := slope
	if mean != 0 {
		relative = slope / math.Abs(mean)
	}

	switch {
	case relative > 0.02:
		return DirectionGrowth
	case relative < -0.02:
		return DirectionDecline
	default:
		return DirectionStable
	}
}

// leastSquares fits y = slope·x + intercept over x = 0..n-1.
func leastSquares(values []float64) (slope, intercept float64, ok bool) {
	n := len(values)
	if n < 2 {
		return 0, 0, false
	}

	xMean := float64(n-1) / 2
	yMean := 0.0
	for _, v := range values {
		yMean += v
	}
	yMean /= float64(n)

	var numerator, denominator float64
	for i, v := range values {
		dx := float64(i) - xMean
		numerator += dx * (v - yMean)
		denominator += dx * dx
	}
	if denominator == 0 {
		return 0, 0, false
	}

	slope = numerator / denominator
	return slope, yMean - slope*xMean, true
}

// =============================================================================
// ANALYZER
// =============================================================================

// Trend is the full evolution record of one metric.
type Trend struct {
	Metric     string         `json:"metric"`
	Label      string         `json:"label"`
	Years      []int          `json:"years"`
	Values     []float64      `json:"values"`
	CAGR       float64        `json:"cagr"`
	Volatility float64        `json:"volatility"`
	Direction  string         `json:"trend"`
	YoY        []models.Float `json:"yoy_changes"` // aligned to Years[1:]
}

// Anomaly is one abnormal year-over-year swing.
type Anomaly struct {
	Year      int     `json:"year"`
	Variation float64 `json:"variation"`
	Message   string  `json:"message"`
	Severity  string  `json:"severity"`
}

// Analyzer works over a chronologically sorted fiscal history.
type Analyzer struct {
	history  []models.FiscalYearData
	yearNums []int
}

// NewAnalyzer sorts the history by fiscal year. Trend analysis needs at
// least two exercices.
func NewAnalyzer(history []models.FiscalYearData) (*Analyzer, error) {
	if len(history) == 0 {
		return nil, errors.New("Aucune donnee fiscale fournie")
	}
	if len(history) < 2 {
		return nil, fmt.Errorf(
			"Au moins 2 exercices sont necessaires pour l'analyse de tendances. Fourni: %d exercice(s)",
			len(history))
	}

	sorted := make([]models.FiscalYearData, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return yearOf(&sorted[i]) < yearOf(&sorted[j])
	})

	yearNums := make([]int, len(sorted))
	for i := range sorted {
		yearNums[i] = yearOf(&sorted[i])
	}
	return &Analyzer{history: sorted, yearNums: yearNums}, nil
}

// yearOf falls back to the year_end prefix ("2023-12-31") when the fiscal
// year field is unset.
func yearOf(d *models.FiscalYearData) int {
	if d.FiscalYear != 0 {
		return d.FiscalYear
	}
	if len(d.YearEnd) >= 4 {
		if year, err := strconv.Atoi(d.YearEnd[:4]); err == nil {
			return year
		}
	}
	return 0
}

// Years lists the analyzed fiscal years in chronological order.
func (a *Analyzer) Years() []int {
	return a.yearNums
}

// Series extracts the metric's values across the history.
func (a *Analyzer) Series(m Metric) []float64 {
	values := make([]float64, len(a.history))
	for i := range a.history {
		values[i] = m.Value(&a.history[i])
	}
	return values
}

// Trend computes the full evolution record for one metric.
func (a *Analyzer) Trend(m Metric) Trend {
	values := a.Series(m)

	yoy := YoYChanges(values)
	wrapped := make([]models.Float, len(yoy))
	for i, change := range yoy {
		wrapped[i] = models.Float(change)
	}

	return Trend{
		Metric:     m.Key,
		Label:      m.Label,
		Years:      a.yearNums,
		Values:     values,
		CAGR:       CAGR(values),
		Volatility: Volatility(values),
		Direction:  DirectionOf(values),
		YoY:        wrapped,
	}
}

// Anomalies flags the years where the metric swings beyond the threshold
// (decimal; 0 or negative selects the default 30%).
func (a *Analyzer) Anomalies(m Metric, threshold float64) []Anomaly {
	if threshold <= 0 {
		threshold = DefaultAnomalyThreshold
	}

	values := a.Series(m)
	var anomalies []Anomaly
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev == 0 {
			continue
		}

		variation := (values[i] - prev) / math.Abs(prev)
		if math.Abs(variation) <= threshold {
			continue
		}

		direction := "Hausse"
		if variation < 0 {
			direction = "Baisse"
		}
		severity := SeverityWarning
		if math.Abs(variation) >= 0.5 {
			severity = SeverityCritical
		}

		anomalies = append(anomalies, Anomaly{
			Year:      a.yearNums[i],
			Variation: variation,
			Message: fmt.Sprintf("%s anormale de %.0f%% sur %s",
				direction, math.Abs(variation)*100, m.Label),
			Severity: severity,
		})
	}
	return anomalies
}

// All returns the trends of every metric that carries data, keyed by
// metric. Series that are zero across the whole history are skipped.
func (a *Analyzer) All() map[string]Trend {
	trends := make(map[string]Trend)
	for _, m := range Metrics() {
		trend := a.Trend(m)
		if allZero(trend.Values) {
			continue
		}
		trends[m.Key] = trend
	}
	return trends
}

// AllAnomalies collects anomalies per metric at the given threshold.
func (a *Analyzer) AllAnomalies(threshold float64) map[string][]Anomaly {
	out := make(map[string][]Anomaly)
	for _, m := range Metrics() {
		if anomalies := a.Anomalies(m, threshold); len(anomalies) > 0 {
			out[m.Key] = anomalies
		}
	}
	return out
}

// PredictNextYear projects the metric one year out by least squares. A
// constant series projects its mean.
func (a *Analyzer) PredictNextYear(m Metric) (float64, bool) {
	values := a.Series(m)
	if len(values) < 2 {
		return 0, false
	}

	slope, intercept, ok := leastSquares(values)
	if !ok {
		return 0, false
	}
	return slope*float64(len(values)) + intercept, true
}

// Predictions projects every metric that carries data.
func (a *Analyzer) Predictions() map[string]float64 {
	predictions := make(map[string]float64)
	for _, m := range Metrics() {
		values := a.Series(m)
		if allZero(values) {
			continue
		}
		if predicted, ok := a.PredictNextYear(m); ok {
			predictions[m.Key] = predicted
		}
	}
	return predictions
}

func allZero(values []float64) bool {
	for _, v := range values {
		if v != 0 {
			return false
		}
	}
	return true
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary condenses the whole analysis for reports.
type Summary struct {
	YearsAnalyzed   []int          `json:"years_analyzed"`
	NYears          int            `json:"n_years"`
	MetricsAnalyzed []string       `json:"metrics_analyzed"`
	NMetrics        int            `json:"n_metrics"`
	TrendCounts     map[string]int `json:"trend_summary"`
	AnomalyCounts   map[string]int `json:"anomaly_summary"`
	TotalAnomalies  int            `json:"total_anomalies"`
	Predictions     []string       `json:"predictions_available"`
	Health          string         `json:"health"`
}

// Summary counts trends and anomalies across the analyzed metrics and
// derives a global health verdict: a critical anomaly or more declining
// than growing series reads as degraded, any warning or decline as fragile.
func (a *Analyzer) Summary() Summary {
	trendCounts := map[string]int{DirectionGrowth: 0, DirectionStable: 0, DirectionDecline: 0}
	anomalyCounts := map[string]int{SeverityWarning: 0, SeverityCritical: 0}

	var analyzed []string
	total := 0
	for _, m := range Metrics() {
		values := a.Series(m)
		if allZero(values) {
			continue
		}
		analyzed = append(analyzed, m.Key)
		trendCounts[DirectionOf(values)]++
		for _, anomaly := range a.Anomalies(m, DefaultAnomalyThreshold) {
			anomalyCounts[anomaly.Severity]++
			total++
		}
	}

	health := HealthSound
	switch {
	case anomalyCounts[SeverityCritical] > 0 || trendCounts[DirectionDecline] > trendCounts[DirectionGrowth]:
		health = HealthDegraded
	case anomalyCounts[SeverityWarning] > 0 || trendCounts[DirectionDecline] > 0:
		health = HealthFragile
	}

	return Summary{
		YearsAnalyzed:   a.yearNums,
		NYears:          len(a.history),
		MetricsAnalyzed: analyzed,
		NMetrics:        len(analyzed),
		TrendCounts:     trendCounts,
		AnomalyCounts:   anomalyCounts,
		TotalAnomalies:  total,
		Predictions:     analyzed,
		Health:          health,
	}
}
