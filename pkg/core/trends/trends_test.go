package trends

import (
	"math"
	"testing"

	"lbo_analyzer/pkg/models"
)

func approx(t *testing.T, name string, got, want, eps float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Errorf("%s: expected %v, got %v", name, want, got)
	}
}

func fiscalYear(year int, revenue float64) models.FiscalYearData {
	d := models.FiscalYearData{CompanyName: "TEST SARL", FiscalYear: year}
	d.IncomeStatement.Revenues.NetRevenue = revenue
	return d
}

func revenueHistory(startYear int, revenues ...float64) []models.FiscalYearData {
	history := make([]models.FiscalYearData, len(revenues))
	for i, revenue := range revenues {
		history[i] = fiscalYear(startYear+i, revenue)
	}
	return history
}

func TestNewAnalyzerRequiresTwoYears(t *testing.T) {
	if _, err := NewAnalyzer(nil); err == nil || err.Error() != "Aucune donnee fiscale fournie" {
		t.Errorf("expected missing data error, got %v", err)
	}

	_, err := NewAnalyzer(revenueHistory(2023, 1_000_000))
	want := "Au moins 2 exercices sont necessaires pour l'analyse de tendances. Fourni: 1 exercice(s)"
	if err == nil || err.Error() != want {
		t.Errorf("expected %q, got %v", want, err)
	}
}

func TestSortsByFiscalYear(t *testing.T) {
	history := []models.FiscalYearData{
		fiscalYear(2023, 1_500_000),
		fiscalYear(2021, 1_000_000),
		fiscalYear(2022, 1_200_000),
	}
	noYear := fiscalYear(0, 900_000)
	noYear.YearEnd = "2020-12-31"
	history = append(history, noYear)

	a, err := NewAnalyzer(history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantYears := []int{2020, 2021, 2022, 2023}
	gotYears := a.Years()
	if len(gotYears) != len(wantYears) {
		t.Fatalf("expected %d years, got %d", len(wantYears), len(gotYears))
	}
	for i, want := range wantYears {
		if gotYears[i] != want {
			t.Errorf("year %d: expected %d, got %d", i, want, gotYears[i])
		}
	}

	m, _ := MetricByKey("revenues")
	values := a.Series(m)
	if values[0] != 900_000 || values[3] != 1_500_000 {
		t.Errorf("series not sorted chronologically: %v", values)
	}
}

func TestCAGR(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"croissance reguliere", []float64{1_000_000, 1_200_000, 1_500_000}, 0.2247448714},
		{"base nulle", []float64{0, 100, 200}, 0},
		{"valeurs negatives", []float64{-100, -50, 75}, 1.5},
		{"serie trop courte", []float64{100}, 0},
	}
	for _, tt := range tests {
		approx(t, tt.name, CAGR(tt.values), tt.want, 1e-9)
	}
}

func TestYoYChanges(t *testing.T) {
	got := YoYChanges([]float64{1000, 1200, 1500})
	if len(got) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(got))
	}
	approx(t, "first change", got[0], 0.2, 1e-12)
	approx(t, "second change", got[1], 0.25, 1e-12)

	fromZero := YoYChanges([]float64{0, 0, 10})
	if fromZero[0] != 0 {
		t.Errorf("expected 0 for flat zero base, got %v", fromZero[0])
	}
	if !math.IsInf(fromZero[1], 1) {
		t.Errorf("expected +Inf for growth from zero, got %v", fromZero[1])
	}

	if changes := YoYChanges([]float64{100}); len(changes) != 0 {
		t.Errorf("expected no changes for a single year, got %v", changes)
	}
}

func TestVolatility(t *testing.T) {
	approx(t, "serie volatile", Volatility([]float64{100, 200, 300}), 0.4082483, 1e-6)
	approx(t, "zeros ignores", Volatility([]float64{100, 0, 300}), 0.5, 1e-12)
	approx(t, "serie constante", Volatility([]float64{5, 5, 5}), 0, 1e-12)
	approx(t, "point unique", Volatility([]float64{100, 0, 0}), 0, 1e-12)
}

func TestDirectionOf(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   string
	}{
		{"croissance", []float64{1000, 1100, 1210}, DirectionGrowth},
		{"decroissance", []float64{1000, 950, 880}, DirectionDecline},
		{"stable", []float64{1000, 1010, 1005}, DirectionStable},
		{"serie courte", []float64{1000}, DirectionStable},
	}
	for _, tt := range tests {
		if got := DirectionOf(tt.values); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}
}

func TestTrendRecord(t *testing.T) {
	a, err := NewAnalyzer(revenueHistory(2021, 1_000_000, 1_200_000, 1_500_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, _ := MetricByKey("revenues")

	trend := a.Trend(m)
	if trend.Metric != "revenues" || trend.Label != "Chiffre d'affaires" {
		t.Errorf("unexpected identity: %s / %s", trend.Metric, trend.Label)
	}
	if len(trend.Years) != 3 || trend.Years[0] != 2021 || trend.Years[2] != 2023 {
		t.Errorf("unexpected years: %v", trend.Years)
	}
	approx(t, "cagr", trend.CAGR, 0.2247448714, 1e-9)
	approx(t, "volatility", trend.Volatility, 0.1666058, 1e-6)
	if trend.Direction != DirectionGrowth {
		t.Errorf("expected %s, got %s", DirectionGrowth, trend.Direction)
	}
	if len(trend.YoY) != 2 {
		t.Fatalf("expected 2 yoy changes, got %d", len(trend.YoY))
	}
	approx(t, "yoy 2022", float64(trend.YoY[0]), 0.2, 1e-12)
	approx(t, "yoy 2023", float64(trend.YoY[1]), 0.25, 1e-12)
}

func TestAnomalies(t *testing.T) {
	a, err := NewAnalyzer(revenueHistory(2021, 1_000_000, 1_450_000, 1_400_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, _ := MetricByKey("revenues")

	anomalies := a.Anomalies(m, 0)
	if len(anomalies) != 1 {
		t.Fatalf("expected 1 anomaly, got %d", len(anomalies))
	}
	got := anomalies[0]
	if got.Year != 2022 {
		t.Errorf("expected year 2022, got %d", got.Year)
	}
	if got.Severity != SeverityWarning {
		t.Errorf("expected warning severity, got %s", got.Severity)
	}
	if got.Message != "Hausse anormale de 45% sur Chiffre d'affaires" {
		t.Errorf("unexpected message: %s", got.Message)
	}
	approx(t, "variation", got.Variation, 0.45, 1e-12)

	byMetric := a.AllAnomalies(0)
	if len(byMetric["revenues"]) != 1 {
		t.Errorf("expected revenues anomaly in AllAnomalies, got %v", byMetric)
	}
}

func TestAnomalyCritical(t *testing.T) {
	a, err := NewAnalyzer(revenueHistory(2021, 1_000_000, 400_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, _ := MetricByKey("revenues")

	anomalies := a.Anomalies(m, 0)
	if len(anomalies) != 1 {
		t.Fatalf("expected 1 anomaly, got %d", len(anomalies))
	}
	if anomalies[0].Severity != SeverityCritical {
		t.Errorf("expected critical severity, got %s", anomalies[0].Severity)
	}
	if anomalies[0].Message != "Baisse anormale de 60% sur Chiffre d'affaires" {
		t.Errorf("unexpected message: %s", anomalies[0].Message)
	}
}

func TestPredictNextYear(t *testing.T) {
	a, err := NewAnalyzer(revenueHistory(2021, 1000, 1200, 1400))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, _ := MetricByKey("revenues")

	predicted, ok := a.PredictNextYear(m)
	if !ok {
		t.Fatal("expected a prediction")
	}
	approx(t, "linear continuation", predicted, 1600, 1e-9)

	flat, err := NewAnalyzer(revenueHistory(2022, 500, 500))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	predicted, ok = flat.PredictNextYear(m)
	if !ok {
		t.Fatal("expected a prediction")
	}
	approx(t, "constant series", predicted, 500, 1e-9)

	if predictions := a.Predictions(); predictions["revenues"] == 0 {
		t.Errorf("expected revenues prediction, got %v", predictions)
	}
}

func TestAllSkipsEmptyMetrics(t *testing.T) {
	a, err := NewAnalyzer(revenueHistory(2022, 1_000_000, 1_200_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trends := a.All()
	revenues, ok := trends["revenues"]
	if !ok {
		t.Fatal("expected revenues trend")
	}
	if revenues.Direction != DirectionGrowth {
		t.Errorf("expected %s, got %s", DirectionGrowth, revenues.Direction)
	}
	if _, ok := trends["total_debt"]; ok {
		t.Error("expected all-zero total_debt series to be skipped")
	}
}

func TestSeriesFiniteGuards(t *testing.T) {
	history := revenueHistory(2022, 1_000_000, 1_000_000)
	history[0].BalanceSheet.Liabilities.Debt.Total = 500_000
	history[1].BalanceSheet.Liabilities.Debt.Total = 500_000
	history[1].BalanceSheet.Liabilities.Equity.Total = 250_000

	a, err := NewAnalyzer(history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, _ := MetricByKey("debt_to_equity")

	values := a.Series(m)
	approx(t, "zero equity", values[0], 0, 1e-12)
	approx(t, "leveraged year", values[1], 2.0, 1e-12)
}

func TestSummary(t *testing.T) {
	history := revenueHistory(2021, 1_000_000, 1_450_000, 1_500_000)
	for i := range history {
		history[i].BalanceSheet.Liabilities.Equity.Total = 500_000
	}

	a, err := NewAnalyzer(history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	summary := a.Summary()

	if summary.NYears != 3 {
		t.Errorf("expected 3 years, got %d", summary.NYears)
	}
	if summary.NMetrics != 2 {
		t.Fatalf("expected 2 analyzed metrics, got %v", summary.MetricsAnalyzed)
	}
	if summary.MetricsAnalyzed[0] != "revenues" || summary.MetricsAnalyzed[1] != "equity" {
		t.Errorf("unexpected metric order: %v", summary.MetricsAnalyzed)
	}
	if summary.TrendCounts[DirectionGrowth] != 1 || summary.TrendCounts[DirectionStable] != 1 {
		t.Errorf("unexpected trend counts: %v", summary.TrendCounts)
	}
	if summary.AnomalyCounts[SeverityWarning] != 1 || summary.TotalAnomalies != 1 {
		t.Errorf("unexpected anomaly counts: %v", summary.AnomalyCounts)
	}
	if summary.Health != HealthFragile {
		t.Errorf("expected %s, got %s", HealthFragile, summary.Health)
	}
	if len(summary.Predictions) != 2 {
		t.Errorf("expected predictions for both metrics, got %v", summary.Predictions)
	}
}

func TestSummaryDegraded(t *testing.T) {
	a, err := NewAnalyzer(revenueHistory(2021, 1_000_000, 400_000, 300_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	summary := a.Summary()

	if summary.AnomalyCounts[SeverityCritical] != 1 {
		t.Errorf("expected 1 critical anomaly, got %v", summary.AnomalyCounts)
	}
	if summary.TrendCounts[DirectionDecline] != 1 {
		t.Errorf("expected declining revenues, got %v", summary.TrendCounts)
	}
	if summary.Health != HealthDegraded {
		t.Errorf("expected %s, got %s", HealthDegraded, summary.Health)
	}
}

func TestMetricByKey(t *testing.T) {
	m, ok := MetricByKey("ebitda")
	if !ok || m.Label != "EBITDA" {
		t.Errorf("expected EBITDA metric, got %v (found %v)", m, ok)
	}
	if _, ok := MetricByKey("unknown_metric"); ok {
		t.Error("expected lookup miss for unknown key")
	}
}
