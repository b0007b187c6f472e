// Package report renders a finished analysis into its deliverables: banker
// and investor notes in markdown, plus HTML, PDF and Excel renditions of the
// same content.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"lbo_analyzer/pkg/core/covenant"
	"lbo_analyzer/pkg/core/debt"
	"lbo_analyzer/pkg/core/decision"
	"lbo_analyzer/pkg/core/normalize"
	"lbo_analyzer/pkg/core/projection"
	"lbo_analyzer/pkg/core/ratios"
	"lbo_analyzer/pkg/core/stress"
	"lbo_analyzer/pkg/core/utils"
	"lbo_analyzer/pkg/models"
)

// Exit hypotheses of the investor note.
const (
	exitEBITDAMultiple = 6.0  // hypothèse conservative
	exitDebtRepaid     = 0.60 // part de la dette remboursée à la sortie
)

// Covenant thresholds printed in the banker note.
const (
	dscrFloor       = 1.25
	leverageCeiling = 4.0
)

// Input carries everything the builders render. Nil or empty fields drop
// their section instead of failing: a report on a partial analysis is still
// a report.
type Input struct {
	CompanyName     string
	Structure       *debt.Structure
	Norm            *normalize.Result
	Projections     []projection.YearProjection
	Covenants       []covenant.RuleProjection
	CovenantSummary covenant.Summary
	StressResults   []stress.Result
	Sensitivity     *stress.Matrix
	Decision        *decision.AcquisitionDecision
	Commentary      string
	GeneratedAt     time.Time
}

func (in *Input) date() string {
	t := in.GeneratedAt
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("02/01/2006")
}

// =============================================================================
// FORMATTING
// =============================================================================

func eur(v float64) string {
	return utils.GroupThousands(v) + " €"
}

func ratioCell(v models.Float) string {
	f := float64(v)
	if math.IsInf(f, 1) {
		return "∞"
	}
	if math.IsInf(f, -1) {
		return "-∞"
	}
	return fmt.Sprintf("%.2f", f)
}

func checkCell(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func decisionLabel(d decision.Decision) string {
	switch d {
	case decision.Go:
		return "GO"
	case decision.Watch:
		return "WATCH"
	case decision.NoGo:
		return "NO-GO"
	}
	return "N/A"
}

func decisionIcon(d decision.Decision) string {
	switch d {
	case decision.Go:
		return "✓"
	case decision.Watch:
		return "⚠"
	}
	return "✗"
}

// =============================================================================
// BANKER NOTE
// =============================================================================

// BuildBankerReport renders the risk-side note: financing structure, DSCR
// and leverage against the usual senior thresholds, stress tests, covenant
// tracking and the committee recommendation.
func BuildBankerReport(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Analyse de Risque LBO\n\n")
	fmt.Fprintf(&b, "**%s** | Perspective Banquier | %s\n\n", in.CompanyName, in.date())
	b.WriteString("CONFIDENTIEL\n\n")

	writeExecutiveSummary(&b, in)
	writeFinancingStructure(&b, in)
	writeRiskMetrics(&b, in)
	writeStressTests(&b, in)
	writeCovenants(&b, in)
	writeRecommendations(&b, in)
	writeCommentary(&b, in)
	writeMethodologyNote(&b)

	return b.String()
}

func writeExecutiveSummary(b *strings.Builder, in Input) {
	b.WriteString("## Synthèse Exécutive\n\n")

	if in.Decision != nil {
		fmt.Fprintf(b, "%s **DÉCISION: %s**\n\n", decisionIcon(in.Decision.Decision), decisionLabel(in.Decision.Decision))
		fmt.Fprintf(b, "Score global: %d/100\n\n", in.Decision.OverallScore)
	}

	if in.Structure == nil || in.Norm == nil {
		return
	}

	b.WriteString("| Métrique | Valeur |\n| --- | --- |\n")
	fmt.Fprintf(b, "| Prix d'acquisition | %s |\n", eur(in.Structure.AcquisitionPrice))
	fmt.Fprintf(b, "| Dette totale | %s |\n", eur(in.Structure.TotalDebt()))
	fmt.Fprintf(b, "| Equity | %s |\n", eur(in.Structure.EquityAmount))
	fmt.Fprintf(b, "| EBITDA normalisé (banque) | %s |\n", eur(in.Norm.EBITDABank))
	if in.Norm.EBITDABank > 0 {
		fmt.Fprintf(b, "| Multiple d'acquisition | %.1fx |\n", in.Structure.AcquisitionPrice/in.Norm.EBITDABank)
	}
	b.WriteString("\n")
}

func writeFinancingStructure(b *strings.Builder, in Input) {
	if in.Structure == nil {
		return
	}
	b.WriteString("## 1. Structure de Financement\n\n")
	b.WriteString("| Tranche | Montant | Taux | Durée |\n| --- | --- | --- | --- |\n")
	for _, t := range in.Structure.Tranches {
		fmt.Fprintf(b, "| %s | %s | %.1f%% | %d ans |\n", t.Name, eur(t.Amount), t.InterestRate*100, t.DurationYears)
	}
	fmt.Fprintf(b, "| Equity | %s | - | - |\n\n", eur(in.Structure.EquityAmount))
}

func writeRiskMetrics(b *strings.Builder, in Input) {
	if in.Structure == nil || in.Norm == nil || in.Norm.EBITDABank <= 0 {
		return
	}
	b.WriteString("## 2. Métriques de Risque\n\n")

	dscrMin := projection.MinDSCR(in.Projections)
	leverage := in.Structure.TotalDebt() / in.Norm.EBITDABank

	b.WriteString("| Métrique | Valeur | Seuil | Statut |\n| --- | --- | --- | --- |\n")
	fmt.Fprintf(b, "| DSCR minimum (%d ans) | %s | > %.2f | %s |\n",
		len(in.Projections), ratioCell(models.Float(dscrMin)), dscrFloor, checkCell(dscrMin > dscrFloor))
	fmt.Fprintf(b, "| Dette/EBITDA | %.2fx | < %.1fx | %s |\n\n",
		leverage, leverageCeiling, checkCell(leverage < leverageCeiling))
}

func writeStressTests(b *strings.Builder, in Input) {
	if len(in.StressResults) == 0 {
		return
	}
	b.WriteString("## 3. Stress Tests\n\n")
	b.WriteString("| Scénario | DSCR | Dette/EBITDA | Statut |\n| --- | --- | --- | --- |\n")
	for _, r := range in.StressResults {
		fmt.Fprintf(b, "| %s | %s | %sx | %s |\n",
			r.Scenario.Name, ratioCell(r.Metrics.DSCRMin), ratioCell(r.Metrics.Leverage), r.Status)
	}
	b.WriteString("\n")
}

func writeCovenants(b *strings.Builder, in Input) {
	if len(in.Projections) == 0 {
		return
	}
	b.WriteString("## 4. Covenants\n\n")

	b.WriteString("| Année | DSCR | Dette/EBITDA | Covenant |\n| --- | --- | --- | --- |\n")
	for _, p := range in.Projections {
		ok := float64(p.DSCR) > dscrFloor && float64(p.Leverage) < leverageCeiling
		fmt.Fprintf(b, "| Y%d | %s | %sx | %s |\n", p.Year, ratioCell(p.DSCR), ratioCell(p.Leverage), checkCell(ok))
	}
	b.WriteString("\n")

	if len(in.Covenants) > 0 {
		for _, c := range in.Covenants {
			status := "respecté"
			if c.HasViolations {
				status = fmt.Sprintf("violé (années %s)", joinYears(c.Violations))
			}
			fmt.Fprintf(b, "- %s (seuil %s %.2f): %s\n", c.Rule.Name, c.Rule.Comparison, c.Threshold, status)
		}
		fmt.Fprintf(b, "\nStatut global des covenants: %s (%d violation(s) sur %d)\n\n",
			in.CovenantSummary.OverallStatus, in.CovenantSummary.ViolatedCount, in.CovenantSummary.Total)
	}
}

func joinYears(years []int) string {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = fmt.Sprintf("Y%d", y)
	}
	return strings.Join(parts, ", ")
}

func writeRecommendations(b *strings.Builder, in Input) {
	if in.Decision == nil {
		return
	}
	b.WriteString("## 5. Recommandations\n\n")

	if len(in.Decision.DealBreakers) > 0 {
		b.WriteString("Points bloquants:\n\n")
		for _, d := range in.Decision.DealBreakers {
			fmt.Fprintf(b, "- %s\n", d)
		}
		b.WriteString("\n")
	}
	if len(in.Decision.Warnings) > 0 {
		b.WriteString("Points d'attention:\n\n")
		for _, w := range in.Decision.Warnings {
			fmt.Fprintf(b, "- %s\n", w)
		}
		b.WriteString("\n")
	}
	if len(in.Decision.Recommendations) > 0 {
		b.WriteString("Recommandations:\n\n")
		for _, r := range in.Decision.Recommendations {
			fmt.Fprintf(b, "- %s\n", r)
		}
		b.WriteString("\n")
	}
}

func writeCommentary(b *strings.Builder, in Input) {
	if strings.TrimSpace(in.Commentary) == "" {
		return
	}
	b.WriteString("## Note de l'analyste\n\n")
	b.WriteString(strings.TrimSpace(in.Commentary))
	b.WriteString("\n\n")
}

func writeMethodologyNote(b *strings.Builder) {
	b.WriteString("## Note méthodologique\n\n")
	b.WriteString("Le service de la dette des projections est une approximation en couches: " +
		"intérêts sur l'encours de début d'année et amortissement contractuel par tranche. " +
		"Le tableau d'amortissement exact peut s'en écarter après la période de différé; " +
		"l'écart éventuel est documenté dans les exports détaillés.\n")
}

// =============================================================================
// INVESTOR NOTE
// =============================================================================

// BuildInvestorReport renders the return-side note: exit hypotheses, multiple
// of money and estimated IRR, then the value-creation trajectory.
func BuildInvestorReport(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Analyse d'Investissement LBO\n\n")
	fmt.Fprintf(&b, "**%s** | Perspective Investisseur | %s\n\n", in.CompanyName, in.date())
	b.WriteString("CONFIDENTIEL\n\n")

	writeInvestorSummary(&b, in)
	writeValueCreation(&b, in)
	writeCommentary(&b, in)

	return b.String()
}

func writeInvestorSummary(b *strings.Builder, in Input) {
	b.WriteString("## Synthèse Exécutive\n\n")
	if in.Structure == nil {
		return
	}

	equity := in.Structure.EquityAmount
	exitYear := len(in.Projections) - 1
	if exitYear > 5 {
		exitYear = 5
	}
	if exitYear < 0 {
		exitYear = 0
	}

	mom := 0.0
	irr := 0.0
	if exitYear > 0 && equity > 0 {
		exitEBITDA := in.Projections[exitYear].EBITDA
		if exitEBITDA == 0 && in.Norm != nil {
			exitEBITDA = in.Norm.EBITDABank
		}
		exitValue := ratios.ExitValue(exitEBITDA, exitEBITDAMultiple)
		remainingDebt := in.Structure.TotalDebt() * (1 - exitDebtRepaid)
		proceeds := exitValue - remainingDebt
		mom = ratios.MultipleOfMoney(proceeds, equity)
		if mom > 0 {
			irr = (math.Pow(mom, 1/float64(exitYear)) - 1) * 100
		}
	}

	fmt.Fprintf(b, "Hypothèses de sortie: année %d, multiple d'EBITDA %.1fx, %.0f%% de la dette remboursée.\n\n",
		exitYear, exitEBITDAMultiple, exitDebtRepaid*100)

	b.WriteString("| Métrique | Valeur |\n| --- | --- |\n")
	fmt.Fprintf(b, "| Equity investi | %s |\n", eur(equity))
	fmt.Fprintf(b, "| Multiple argent (Y%d) | %.1fx |\n", exitYear, mom)
	fmt.Fprintf(b, "| TRI estimé | %.1f%% |\n", irr)
	if in.Decision != nil {
		fmt.Fprintf(b, "| Décision | %s |\n", decisionLabel(in.Decision.Decision))
	}
	b.WriteString("\n")
}

func writeValueCreation(b *strings.Builder, in Input) {
	if len(in.Projections) == 0 {
		return
	}
	b.WriteString("## Création de Valeur\n\n")
	b.WriteString("| Année | CA (M€) | EBITDA (M€) | FCF (k€) |\n| --- | --- | --- | --- |\n")
	for _, p := range in.Projections {
		fmt.Fprintf(b, "| Y%d | %.1f | %.1f | %.0f |\n",
			p.Year, p.Revenue/1_000_000, p.EBITDA/1_000_000, p.FCF/1_000)
	}
	b.WriteString("\n")
}
