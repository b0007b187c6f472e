package decision

import (
	"fmt"

	"lbo_analyzer/pkg/core/normalize"
	"lbo_analyzer/pkg/core/projection"
	"lbo_analyzer/pkg/models"
)

// decisionHorizon caps the analysis window: the committee judges the deal on
// the first seven years regardless of the projection length.
const decisionHorizon = 7

// ExtractMetrics reduces a projection to the five decisive metrics.
func ExtractMetrics(projections []projection.YearProjection, norm *normalize.Result, baseline *models.FiscalYearData) map[string]float64 {
	window := projections
	if len(window) > decisionHorizon {
		window = window[:decisionHorizon]
	}

	metrics := map[string]float64{
		"dscr_min":                 projection.MinDSCR(window),
		"leverage":                 0,
		"margin":                   0,
		"ebitda_to_fcf_conversion": 0,
	}

	// ---- Entry leverage (year 1 closing) ----
	if len(projections) > 0 {
		metrics["leverage"] = float64(projections[0].Leverage)
	}

	// ---- EBITDA-bank margin on the baseline year ----
	if norm != nil && baseline != nil {
		ca := baseline.IncomeStatement.Revenues.NetRevenue
		if ca > 0 {
			metrics["margin"] = norm.EBITDABank / ca * 100
		}
	}

	// ---- EBITDA-to-FCF conversion, first three years ----
	n := len(window)
	if n > 3 {
		n = 3
	}
	if n > 0 {
		var sumFCF, sumEBITDA float64
		for _, p := range window[:n] {
			sumFCF += p.FCF
			sumEBITDA += p.EBITDA
		}
		if sumEBITDA/float64(n) > 0 {
			metrics["ebitda_to_fcf_conversion"] = (sumFCF / float64(n)) / (sumEBITDA / float64(n)) * 100
		}
	}

	// ---- First positive-FCF year ----
	metrics["fcf_positive_year"] = float64(projection.FirstPositiveFCFYear(window))

	return metrics
}

// Make runs the full decision: extract metrics, score the criteria, fold into
// a verdict, then enrich the narrative with structuring advice.
func Make(projections []projection.YearProjection, norm *normalize.Result, baseline *models.FiscalYearData, scenarioID string) *AcquisitionDecision {
	return decide(ExtractMetrics(projections, norm, baseline), projections, scenarioID)
}

func decide(metrics map[string]float64, projections []projection.YearProjection, scenarioID string) *AcquisitionDecision {
	d := FromCriteria(EvaluateCriteria(metrics), scenarioID)
	enrich(d, metrics, projections)

	// Any deal-breaker, scored or narrative, caps the verdict.
	if len(d.DealBreakers) > 0 {
		d.Decision = NoGo
	}
	return d
}

// enrich appends the structuring recommendations a banker's memo carries
// beyond the raw scores.
func enrich(d *AcquisitionDecision, metrics map[string]float64, projections []projection.YearProjection) {
	dscr := metrics["dscr_min"]
	leverage := metrics["leverage"]
	margin := metrics["margin"]
	fcfYear := metrics["fcf_positive_year"]

	switch {
	case dscr < 1.25:
		d.Recommendations = append(d.Recommendations,
			"🔴 CRITIQUE: DSCR trop faible. Réduire dette de 15-20% ou augmenter equity.")
	case dscr < 1.35:
		d.Recommendations = append(d.Recommendations,
			"⚠️ DSCR limite: Négocier covenant DSCR trimestriel pour surveillance rapprochée.")
	}

	if leverage > 4.0 {
		d.Recommendations = append(d.Recommendations,
			fmt.Sprintf("⚠️ Levier élevé (%.1fx): Envisager crédit vendeur ou augmenter equity.", leverage))
	}

	if margin < 8 {
		d.DealBreakers = append(d.DealBreakers,
			fmt.Sprintf("❌ Marge EBITDA trop faible (%.1f%%) pour supporter LBO.", margin))
	} else if margin < 12 {
		d.Recommendations = append(d.Recommendations,
			fmt.Sprintf("📊 Marge faible (%.1f%%): Identifier leviers amélioration (prix, mix, coûts).", margin))
	}

	if fcfYear > 2 {
		d.Warnings = append(d.Warnings,
			fmt.Sprintf("⏱️ FCF positif tardif (année %d): Prévoir covenant de cash minimum.", int(fcfYear)))
	}

	// Slow deleveraging over the first three years undermines the exit case.
	if len(projections) >= 3 {
		debtY1 := projections[0].DebtRemaining
		debtY3 := projections[2].DebtRemaining
		if debtY1 > 0 {
			reduction := (debtY1 - debtY3) / debtY1 * 100
			if reduction < 15 {
				d.Warnings = append(d.Warnings,
					fmt.Sprintf("💰 Amortissement dette lent (%.0f%% en 3 ans): Vérifier capacité sortie.", reduction))
			}
		}
	}

	if d.Decision == Go && len(d.DealBreakers) == 0 {
		d.Recommendations = append(
			[]string{"✅ Dossier solide: Tous les critères décisifs sont au vert."},
			d.Recommendations...)
		d.Recommendations = append(d.Recommendations,
			"💡 Suggestion: Négocier clause d'earn-out pour optimiser prix.")
	}
}
