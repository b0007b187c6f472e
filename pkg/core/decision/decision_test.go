package decision

import (
	"math"
	"strings"
	"testing"

	"lbo_analyzer/pkg/core/debt"
	"lbo_analyzer/pkg/core/normalize"
	"lbo_analyzer/pkg/core/projection"
	"lbo_analyzer/pkg/models"
)

func healthyMetrics() map[string]float64 {
	return map[string]float64{
		"dscr_min":                 1.6,
		"leverage":                 3.0,
		"margin":                   18.0,
		"ebitda_to_fcf_conversion": 45.0,
		"fcf_positive_year":        1,
	}
}

func criterionByMetric(t *testing.T, criteria []Criterion, metric string) Criterion {
	t.Helper()
	for _, c := range criteria {
		if c.MetricName == metric {
			return c
		}
	}
	t.Fatalf("no criterion for metric %q", metric)
	return Criterion{}
}

func containsSubstring(items []string, sub string) bool {
	for _, s := range items {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func TestHealthyDealScoresGo(t *testing.T) {
	d := decide(healthyMetrics(), nil, "base")

	if d.OverallScore != 100 {
		t.Errorf("expected overall score 100, got %d", d.OverallScore)
	}
	if d.Decision != Go {
		t.Errorf("expected go, got %s", d.Decision)
	}
	if len(d.DealBreakers) != 0 {
		t.Errorf("expected no deal breakers, got %v", d.DealBreakers)
	}
	if len(d.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", d.Warnings)
	}
	if len(d.Recommendations) < 2 {
		t.Fatalf("expected framing recommendations, got %v", d.Recommendations)
	}
	if !strings.HasPrefix(d.Recommendations[0], "✅ Dossier solide") {
		t.Errorf("expected positive framing first, got %q", d.Recommendations[0])
	}
	last := d.Recommendations[len(d.Recommendations)-1]
	if !strings.Contains(last, "earn-out") {
		t.Errorf("expected earn-out suggestion last, got %q", last)
	}
	if d.ScenarioID != "base" {
		t.Errorf("expected scenario id propagated, got %q", d.ScenarioID)
	}
	if d.Timestamp.IsZero() {
		t.Error("expected decision timestamp to be set")
	}
}

func TestThinMarginForcesNoGo(t *testing.T) {
	m := healthyMetrics()
	m["margin"] = 6.0

	d := decide(m, nil, "")

	c := criterionByMetric(t, d.Criteria, "margin")
	if c.Score != 38 {
		t.Errorf("expected proportional score 38 for margin 6%%, got %d", c.Score)
	}
	if c.Status != StatusFail {
		t.Errorf("expected FAIL status, got %s", c.Status)
	}
	// Everything else is excellent, so the weighted score stays high.
	if d.OverallScore < 80 {
		t.Errorf("expected overall score >= 80, got %d", d.OverallScore)
	}
	if !containsSubstring(d.DealBreakers, "Marge EBITDA trop faible (6.0%)") {
		t.Errorf("expected margin deal breaker, got %v", d.DealBreakers)
	}
	if d.Decision != NoGo {
		t.Errorf("expected no_go despite score %d, got %s", d.OverallScore, d.Decision)
	}
	if containsSubstring(d.Recommendations, "Dossier solide") {
		t.Error("positive framing must not appear on a broken deal")
	}
}

func TestWatchBand(t *testing.T) {
	d := decide(map[string]float64{
		"dscr_min":                 1.4,
		"leverage":                 4.2,
		"margin":                   12.5,
		"ebitda_to_fcf_conversion": 32.0,
		"fcf_positive_year":        3,
	}, nil, "")

	// 80*2 + 50*1.5 + 80 + 80 + 50 = 445 over weight 6.5.
	if d.OverallScore != 68 {
		t.Errorf("expected overall score 68, got %d", d.OverallScore)
	}
	if d.Decision != Watch {
		t.Errorf("expected watch, got %s", d.Decision)
	}
	if !containsSubstring(d.Warnings, "Dette nette / EBITDA: 4.20 (objectif: 4.00)") {
		t.Errorf("expected leverage warning, got %v", d.Warnings)
	}
	if !containsSubstring(d.Warnings, "FCF positif tardif (année 3)") {
		t.Errorf("expected late-FCF warning, got %v", d.Warnings)
	}
	if !containsSubstring(d.Recommendations, "Réduire levier") {
		t.Errorf("expected deleveraging lever, got %v", d.Recommendations)
	}
	if !containsSubstring(d.Recommendations, "Levier élevé (4.2x)") {
		t.Errorf("expected high-leverage note, got %v", d.Recommendations)
	}
}

func TestZeroCriterionIsDealBreaker(t *testing.T) {
	m := healthyMetrics()
	m["ebitda_to_fcf_conversion"] = 0

	d := decide(m, nil, "")

	if !containsSubstring(d.DealBreakers, "Conversion EBITDA → FCF (%): 0.00 (seuil minimum: 20.00)") {
		t.Errorf("expected conversion deal breaker, got %v", d.DealBreakers)
	}
	// 200 + 150 + 100 + 0 + 100 = 550 over 6.5 rounds to 85, still no_go.
	if d.OverallScore < 80 {
		t.Errorf("expected high residual score, got %d", d.OverallScore)
	}
	if d.Decision != NoGo {
		t.Errorf("expected no_go on a zero criterion, got %s", d.Decision)
	}
}

func TestProportionalFloorBands(t *testing.T) {
	cases := []struct {
		metric string
		value  float64
		score  int
	}{
		{"dscr_min", 0.625, 25}, // half the acceptable threshold
		{"margin", 6.0, 38},     // 50 * 6/8 rounded
		{"fcf_positive_year", 10, 0},
		{"leverage", 6.75, 25}, // 50 * (2 - 1.5)
		{"leverage", 9.0, 0},
	}
	for _, c := range cases {
		m := healthyMetrics()
		m[c.metric] = c.value
		got := criterionByMetric(t, EvaluateCriteria(m), c.metric)
		if got.Score != c.score {
			t.Errorf("%s=%v: expected score %d, got %d", c.metric, c.value, c.score, got.Score)
		}
		if got.Status != StatusFail {
			t.Errorf("%s=%v: expected FAIL, got %s", c.metric, c.value, got.Status)
		}
	}
}

func TestSlowDeleveragingWarning(t *testing.T) {
	proj := []projection.YearProjection{
		{Year: 1, FCF: 100_000, DebtRemaining: 3_000_000},
		{Year: 2, FCF: 120_000, DebtRemaining: 2_900_000},
		{Year: 3, FCF: 130_000, DebtRemaining: 2_700_000},
	}

	d := decide(healthyMetrics(), proj, "")

	if !containsSubstring(d.Warnings, "Amortissement dette lent (10% en 3 ans)") {
		t.Errorf("expected slow-amortization warning, got %v", d.Warnings)
	}
	// A warning alone does not break a green dossier.
	if d.Decision != Go {
		t.Errorf("expected go, got %s", d.Decision)
	}
}

func TestExtractMetrics(t *testing.T) {
	engine := projection.NewEngine()
	structure := &debt.Structure{
		AcquisitionPrice: 4_700_000,
		EquityAmount:     1_200_000,
		Tranches: []debt.Tranche{
			{Name: "Dette senior", Amount: 3_500_000, InterestRate: 0.05, DurationYears: 7, Amortization: debt.AmortizationConstant},
		},
	}
	proj := engine.Project(8_500_000, 1_050_000, structure, projection.NewOperatingAssumptions())

	norm := &normalize.Result{EBITDABank: 1_050_000}
	baseline := &models.FiscalYearData{}
	baseline.IncomeStatement.Revenues.NetRevenue = 8_500_000

	metrics := ExtractMetrics(proj, norm, baseline)

	minDSCR := math.Inf(1)
	for _, y := range proj[:7] {
		if float64(y.DSCR) < minDSCR {
			minDSCR = float64(y.DSCR)
		}
	}
	if metrics["dscr_min"] != minDSCR {
		t.Errorf("expected dscr_min %.4f, got %.4f", minDSCR, metrics["dscr_min"])
	}
	if metrics["leverage"] != float64(proj[0].Leverage) {
		t.Errorf("expected year 1 leverage %.4f, got %.4f", float64(proj[0].Leverage), metrics["leverage"])
	}
	if math.Abs(metrics["margin"]-12.3529) > 0.001 {
		t.Errorf("expected margin 12.3529, got %.4f", metrics["margin"])
	}

	var sumFCF, sumEBITDA float64
	for _, y := range proj[:3] {
		sumFCF += y.FCF
		sumEBITDA += y.EBITDA
	}
	wantConv := sumFCF / sumEBITDA * 100
	if math.Abs(metrics["ebitda_to_fcf_conversion"]-wantConv) > 0.001 {
		t.Errorf("expected conversion %.2f, got %.2f", wantConv, metrics["ebitda_to_fcf_conversion"])
	}

	if metrics["fcf_positive_year"] != 1 {
		t.Errorf("expected positive FCF from year 1, got %v", metrics["fcf_positive_year"])
	}
}

func TestExtractMetricsEmptyInputs(t *testing.T) {
	metrics := ExtractMetrics(nil, nil, nil)

	if metrics["dscr_min"] != 0 {
		t.Errorf("expected 0 dscr on empty projection, got %v", metrics["dscr_min"])
	}
	if metrics["margin"] != 0 {
		t.Errorf("expected 0 margin without baseline, got %v", metrics["margin"])
	}
	if metrics["fcf_positive_year"] != 10 {
		t.Errorf("expected sentinel year 10, got %v", metrics["fcf_positive_year"])
	}
}

func TestMakeFlagsCriticalDSCR(t *testing.T) {
	engine := projection.NewEngine()
	structure := &debt.Structure{
		Tranches: []debt.Tranche{
			{Name: "Dette senior", Amount: 3_500_000, InterestRate: 0.05, DurationYears: 7, Amortization: debt.AmortizationConstant},
		},
	}
	proj := engine.Project(8_500_000, 1_050_000, structure, projection.NewOperatingAssumptions())

	norm := &normalize.Result{EBITDABank: 1_050_000}
	baseline := &models.FiscalYearData{}
	baseline.IncomeStatement.Revenues.NetRevenue = 8_500_000

	d := Make(proj, norm, baseline, "stress-1")

	if len(d.Criteria) != 5 {
		t.Fatalf("expected 5 criteria, got %d", len(d.Criteria))
	}
	// Year 1 DSCR sits near 0.68, far under the 1.25 floor.
	if !containsSubstring(d.Recommendations, "CRITIQUE: DSCR trop faible") {
		t.Errorf("expected critical DSCR recommendation, got %v", d.Recommendations)
	}
	if d.Decision == Go {
		t.Error("a sub-1 DSCR deal cannot be a go")
	}
	if d.ScenarioID != "stress-1" {
		t.Errorf("expected scenario id propagated, got %q", d.ScenarioID)
	}
}
