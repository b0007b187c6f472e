package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"lbo_analyzer/pkg/core/advisor"
	"lbo_analyzer/pkg/core/ingest"
	"lbo_analyzer/pkg/core/normalize"
	"lbo_analyzer/pkg/core/pipeline"
	"lbo_analyzer/pkg/core/projection"
	"lbo_analyzer/pkg/core/report"
	"lbo_analyzer/pkg/core/scenario"
	"lbo_analyzer/pkg/core/store"
	"lbo_analyzer/pkg/core/utils"
	"lbo_analyzer/pkg/models"

	"github.com/joho/godotenv"
)

// Prix d'acquisition par défaut en multiples d'EBITDA banque.
const priceMultiple = 4.0

func main() {
	input := flag.String("input", "", "fichier fiscal JSON (un exercice ou un historique)")
	company := flag.String("company", "", "nom de la cible (défaut: celui du fichier fiscal)")
	presetName := flag.String("preset", "Equilibre", "scénario de financement prédéfini")
	outDir := flag.String("out", "out", "répertoire des artefacts")
	pdf := flag.Bool("pdf", false, "exporter le dossier en PDF")
	xlsx := flag.Bool("xlsx", false, "exporter le classeur Excel")
	save := flag.Bool("save", false, "persister l'analyse en base")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, assuming environment variables are set.")
	}

	if *input == "" {
		log.Fatal("Erreur: -input est requis (fichier fiscal JSON).")
	}

	fmt.Println("🚀 LBO Analyzer Pipeline Starting...")

	// 1. Chargement des données fiscales
	history, err := ingest.LoadFiscalHistory(*input)
	if err != nil {
		log.Fatalf("Chargement fiscal échoué: %v", err)
	}
	fiscal := make([]models.FiscalYearData, 0, len(history))
	for _, y := range history {
		fiscal = append(fiscal, *y)
	}
	latest := latestYear(fiscal)
	if *company == "" {
		*company = latest.CompanyName
	}
	if *company == "" {
		*company = "Société cible"
	}
	fmt.Printf("📂 %s: %d exercice(s), dernier %d\n", *company, len(fiscal), latest.FiscalYear)

	// 2. Dimensionnement du deal: préset mis à l'échelle du prix cible
	preset, ok := scenario.PresetByName(*presetName)
	if !ok {
		log.Fatalf("Préset inconnu: %q. Disponibles: Conservateur, Equilibre, Leverage, Agressif.", *presetName)
	}
	revenue := baseRevenue(latest)
	norm := normalize.Normalize(latest, nil, projection.DefaultTaxRate,
		revenue*projection.DefaultCapexPct/100)
	if norm.EBITDABank <= 0 {
		log.Fatalf("EBITDA banque non positif (%s €): impossible de dimensionner la dette.",
			utils.GroupThousands(norm.EBITDABank))
	}
	price := priceMultiple * norm.EBITDABank
	scale := price / preset.TotalFinancing()
	preset.Debt.Amount *= scale
	preset.Equity.Amount *= scale
	assum := preset.Assumptions(latest.WorkingCapital.BFRPct)

	// 3. Orchestration
	ctx := context.Background()
	orch := pipeline.New()
	if *save {
		if err := store.InitDB(ctx); err != nil {
			fmt.Printf("[WARNING] Base de données indisponible: %v. Analyse non persistée.\n", err)
		} else {
			defer store.CloseDB()
			orch.SetRepository(store.NewAnalysisRepo())
		}
	}
	if adv, err := advisor.New(ctx); err != nil {
		fmt.Printf("[WARNING] Note d'analyste désactivée: %v\n", err)
	} else {
		orch.SetCommentator(adv)
		defer adv.Close()
	}

	res, err := orch.Run(ctx, pipeline.Request{
		CompanyName: *company,
		Fiscal:      fiscal,
		Structure:   preset.Structure(),
		Assumptions: &assum,
		ScenarioID:  preset.Name,
	})
	if err != nil {
		log.Fatalf("Analyse échouée: %v", err)
	}

	printDossier(res, preset.Name)

	// 4. Artefacts
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Création du répertoire %s échouée: %v", *outDir, err)
	}
	in := res.ReportInput()
	md := report.BuildBankerReport(in)
	slug := slugify(*company)

	mdPath := filepath.Join(*outDir, "analyse_"+slug+".md")
	if err := os.WriteFile(mdPath, []byte(md), 0644); err != nil {
		log.Fatalf("Écriture du rapport échouée: %v", err)
	}
	fmt.Printf("\n📄 Rapport écrit: %s\n", mdPath)

	if *pdf {
		pdfPath := filepath.Join(*outDir, "analyse_"+slug+".pdf")
		if err := report.SavePDF(md, "Dossier d'analyse LBO", pdfPath); err != nil {
			fmt.Printf("[WARNING] Export PDF échoué: %v\n", err)
		} else {
			fmt.Printf("📄 PDF écrit: %s\n", pdfPath)
		}
	}
	if *xlsx {
		xlsxPath := filepath.Join(*outDir, "analyse_"+slug+".xlsx")
		if f, err := report.BuildWorkbook(in); err != nil {
			fmt.Printf("[WARNING] Export Excel échoué: %v\n", err)
		} else if err := report.SaveWorkbook(f, xlsxPath); err != nil {
			fmt.Printf("[WARNING] Export Excel échoué: %v\n", err)
		} else {
			fmt.Printf("📊 Classeur écrit: %s\n", xlsxPath)
		}
	}
	if *save && res.Saved {
		fmt.Println("💾 Analyse persistée en base.")
	}

	fmt.Println("\n[Done] Analyse terminée.")
}

// printDossier renders the analysis on the console, section by section.
func printDossier(res *pipeline.Result, presetName string) {
	banner := strings.Repeat("═", 80)

	fmt.Println("\n" + banner)
	fmt.Println("                      LBO ANALYZER - DOSSIER D'ANALYSE")
	fmt.Printf("                      Cible: %s (scénario %s)\n", res.CompanyName, presetName)
	fmt.Println(banner)

	// [1] NORMALISATION
	fmt.Println("\n[1] NORMALISATION DE L'EBITDA")
	fmt.Printf("EBE:                    %14s €\n", utils.GroupThousands(res.Normalization.EBE))
	fmt.Printf("EBITDA banque:          %14s €\n", utils.GroupThousands(res.Normalization.EBITDABank))
	fmt.Printf("EBITDA equity:          %14s €\n", utils.GroupThousands(res.Normalization.EBITDAEquity))
	if n := len(res.Suggestions); n > 0 {
		fmt.Printf("Retraitements suggérés: %d (non appliqués)\n", n)
	}

	// [2] STRUCTURE DE FINANCEMENT
	s := res.Structure
	fmt.Println("\n[2] STRUCTURE DE FINANCEMENT")
	fmt.Printf("Prix d'acquisition:     %14s €\n", utils.GroupThousands(s.AcquisitionPrice))
	fmt.Printf("Dette totale:           %14s €  (%.0f%% du financement)\n",
		utils.GroupThousands(s.TotalDebt()), 100*s.TotalDebt()/s.TotalFinancing())
	fmt.Printf("Equity:                 %14s €\n", utils.GroupThousands(s.EquityAmount))
	fmt.Printf("Levier Dette/EBITDA:    %14.1fx\n", s.TotalDebt()/res.Normalization.EBITDABank)
	for _, t := range s.Tranches {
		fmt.Printf("  %-20s %12s € | %4.2f%% | %d ans (différé %d)\n",
			t.Name, utils.GroupThousands(t.Amount), t.InterestRate*100, t.DurationYears, t.GracePeriod)
	}

	// [3] PROJECTIONS
	fmt.Printf("\n[3] PROJECTIONS (%d ANS)\n", len(res.Projections))
	fmt.Printf("%-5s | %13s | %12s | %12s | %12s | %6s | %13s\n",
		"Année", "CA", "EBITDA", "CFADS", "Service", "DSCR", "Dette fin")
	fmt.Println(strings.Repeat("-", 92))
	for _, p := range res.Projections {
		fmt.Printf("%5d | %13s | %12s | %12s | %12s | %6.2f | %13s\n",
			p.Year,
			utils.GroupThousands(p.Revenue),
			utils.GroupThousands(p.EBITDA),
			utils.GroupThousands(p.CFADS),
			utils.GroupThousands(p.AnnualService),
			float64(p.DSCR),
			utils.GroupThousands(p.DebtRemaining))
	}
	fmt.Println(strings.Repeat("-", 92))
	fmt.Printf("DSCR minimum: %.2f | Premier FCF positif: %s\n",
		projection.MinDSCR(res.Projections), fcfYearLabel(res.Projections))

	// [4] COVENANTS
	fmt.Println("\n[4] COVENANTS")
	for _, rp := range res.Covenants {
		worst := worstStatus(rp.Statuses)
		fmt.Printf("%s %-32s seuil %5.2f  %s\n", statusIcon(worst), rp.Rule.Name, rp.Threshold, worst)
		if rp.HasViolations {
			fmt.Printf("   Années en défaut: %v\n", rp.Violations)
		}
	}
	cs := res.CovenantSummary
	fmt.Printf("Statut global: %s (%d/%d conformes)\n", cs.OverallStatus, cs.PassCount, cs.Total)

	// [5] STRESS TESTS
	fmt.Println("\n[5] STRESS TESTS")
	for _, r := range res.StressResults {
		fmt.Printf("%s %-34s | DSCR min %5.2f | FCF an 3 %12s | %s\n",
			statusIcon(r.Status), r.Scenario.Name, float64(r.Metrics.DSCRMin),
			utils.GroupThousands(r.Metrics.FCFYear3), r.Status)
	}
	if res.Sensitivity != nil {
		fmt.Printf("Matrice de sensibilité: %dx%d (DSCR min, CA x marge)\n",
			len(res.Sensitivity.MarginLabels), len(res.Sensitivity.CALabels))
	}

	// [6] DÉCISION
	d := res.Decision
	fmt.Println("\n[6] DÉCISION")
	fmt.Printf("%s %s  (score %d/100)\n", statusIcon(string(d.Decision)), decisionLabel(string(d.Decision)), d.OverallScore)
	for _, c := range d.Criteria {
		fmt.Printf("  %-26s %10.2f  note %3d/100 (%s)\n", c.Name, c.ActualValue, c.Score, c.Status)
	}
	for _, db := range d.DealBreakers {
		fmt.Printf("  ❌ %s\n", db)
	}
	for _, w := range d.Warnings {
		fmt.Printf("  ⚠️  %s\n", w)
	}
	for _, r := range d.Recommendations {
		fmt.Printf("  - %s\n", r)
	}
	if res.Trends != nil {
		fmt.Printf("Santé historique: %s (%d exercices)\n", res.Trends.Summary.Health, res.Trends.Summary.NYears)
	}

	if res.Commentary != "" {
		fmt.Println("\n💬 NOTE D'ANALYSTE")
		fmt.Println(res.Commentary)
	}
}

func statusIcon(status string) string {
	switch strings.ToUpper(status) {
	case "PASS", "GO":
		return "✅"
	case "WARNING", "WATCH":
		return "⚠️"
	case "N/A":
		return "➖"
	default:
		return "❌"
	}
}

// decisionLabel turns the wire value into the console label ("no_go" -> "NO-GO").
func decisionLabel(d string) string {
	return strings.ToUpper(strings.ReplaceAll(d, "_", "-"))
}

func worstStatus(statuses []string) string {
	worst := "PASS"
	for _, s := range statuses {
		if s == "VIOLATION" {
			return s
		}
		if s == "WARNING" {
			worst = s
		}
	}
	return worst
}

func fcfYearLabel(projections []projection.YearProjection) string {
	year := projection.FirstPositiveFCFYear(projections)
	if year > len(projections) {
		return "aucun"
	}
	return fmt.Sprintf("année %d", year)
}

func latestYear(fiscal []models.FiscalYearData) *models.FiscalYearData {
	best := &fiscal[len(fiscal)-1]
	for i := range fiscal {
		if fiscal[i].FiscalYear > best.FiscalYear {
			best = &fiscal[i]
		}
	}
	return best
}

func baseRevenue(d *models.FiscalYearData) float64 {
	if d.IncomeStatement.Revenues.NetRevenue != 0 {
		return d.IncomeStatement.Revenues.NetRevenue
	}
	return d.IncomeStatement.Revenues.Total
}

// slugify lowers the company name into a safe filename fragment.
func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "cible"
	}
	return b.String()
}
