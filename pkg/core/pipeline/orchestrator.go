// Package pipeline chains the full LBO analysis end to end: normalization,
// structure validation, projections, covenant tracking, stress suite,
// decision, then the contextual layers (ratio snapshot, multi-year trends)
// and the optional tail (analyst commentary, persistence).
package pipeline

import (
	"context"
	"fmt"
	"time"

	"lbo_analyzer/pkg/core/advisor"
	"lbo_analyzer/pkg/core/covenant"
	"lbo_analyzer/pkg/core/debt"
	"lbo_analyzer/pkg/core/decision"
	"lbo_analyzer/pkg/core/normalize"
	"lbo_analyzer/pkg/core/projection"
	"lbo_analyzer/pkg/core/ratios"
	"lbo_analyzer/pkg/core/report"
	"lbo_analyzer/pkg/core/stress"
	"lbo_analyzer/pkg/core/trends"
	"lbo_analyzer/pkg/core/utils"
	"lbo_analyzer/pkg/models"
)

// ResultRepository persists a completed analysis. Implementations may write to:
// - Postgres (store.AnalysisRepo)
// - A test double
type ResultRepository interface {
	Save(ctx context.Context, companyName, siren string, payload interface{}) error
}

// Commentator produces the analyst note for a finished analysis
// (e.g. advisor.Advisor over Gemini).
type Commentator interface {
	Commentary(ctx context.Context, brief advisor.Brief) (string, error)
}

// Request is one full analysis order. Fiscal carries 1..N historical years;
// the most recent is the baseline, the rest feed the trend analysis.
// Explicit Adjustments enter the normalization exactly as given; suggested
// retraitements stay advisory unless ApplySuggestions is set.
type Request struct {
	CompanyName      string                           `json:"company_name"`
	Fiscal           []models.FiscalYearData          `json:"fiscal_years"`
	Structure        *debt.Structure                  `json:"structure"`
	Adjustments      []normalize.Adjustment           `json:"adjustments,omitempty"`
	ApplySuggestions bool                             `json:"apply_suggestions,omitempty"`
	Assumptions      *projection.OperatingAssumptions `json:"assumptions,omitempty"`
	ScenarioID       string                           `json:"scenario_id,omitempty"`
}

// TrendReport groups the history artifacts produced when the request carries
// at least two fiscal years.
type TrendReport struct {
	Trends      map[string]trends.Trend     `json:"trends"`
	Anomalies   map[string][]trends.Anomaly `json:"anomalies,omitempty"`
	Predictions map[string]float64          `json:"predictions,omitempty"`
	Summary     trends.Summary              `json:"summary"`
}

// Result aggregates every artifact of one run. It is the record the
// repository persists and the payload the API returns.
type Result struct {
	CompanyName     string                          `json:"company_name"`
	SIREN           string                          `json:"siren,omitempty"`
	ScenarioID      string                          `json:"scenario_id,omitempty"`
	GeneratedAt     time.Time                       `json:"generated_at"`
	Normalization   *normalize.Result               `json:"normalization"`
	Suggestions     []normalize.Adjustment          `json:"suggested_adjustments,omitempty"`
	Structure       *debt.Structure                 `json:"structure"`
	Assumptions     projection.OperatingAssumptions `json:"assumptions"`
	Projections     []projection.YearProjection     `json:"projections"`
	Covenants       []covenant.RuleProjection       `json:"covenants"`
	CovenantSummary covenant.Summary                `json:"covenant_summary"`
	StressResults   []stress.Result                 `json:"stress_tests"`
	Sensitivity     *stress.Matrix                  `json:"sensitivity"`
	Decision        *decision.AcquisitionDecision   `json:"decision"`
	Ratios          map[string]models.Float         `json:"ratios,omitempty"`
	Trends          *TrendReport                    `json:"trends,omitempty"`
	Commentary      string                          `json:"commentary,omitempty"`
	Warnings        []string                        `json:"pipeline_warnings,omitempty"`
	Saved           bool                            `json:"saved"`
}

// warnf records a degraded step on the result and logs it.
func (r *Result) warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.Warnings = append(r.Warnings, msg)
	fmt.Printf("[PIPELINE] ⚠️ %s\n", msg)
}

// ReportInput maps the result onto the report builder's input, so every
// rendition (markdown, HTML, PDF, workbook) is cut from the same record.
func (r *Result) ReportInput() report.Input {
	return report.Input{
		CompanyName:     r.CompanyName,
		Structure:       r.Structure,
		Norm:            r.Normalization,
		Projections:     r.Projections,
		Covenants:       r.Covenants,
		CovenantSummary: r.CovenantSummary,
		StressResults:   r.StressResults,
		Sensitivity:     r.Sensitivity,
		Decision:        r.Decision,
		Commentary:      r.Commentary,
		GeneratedAt:     r.GeneratedAt,
	}
}

// Orchestrator manages the end-to-end analysis flow:
// Normalize -> Validate -> Project -> Covenants -> Stress -> Decision -> Context -> Tail
type Orchestrator struct {
	engine      *projection.Engine
	tracker     *covenant.Tracker
	repo        ResultRepository
	commentator Commentator
}

// New creates an orchestrator with the projection engine and the standard
// covenant pair. Persistence and commentary stay off until injected.
func New() *Orchestrator {
	return &Orchestrator{
		engine:  projection.NewEngine(),
		tracker: covenant.NewTracker(nil),
	}
}

// SetRepository injects the persistence backend (e.g. store.AnalysisRepo, or
// a test double). Without one the run is not saved.
func (o *Orchestrator) SetRepository(repo ResultRepository) {
	o.repo = repo
}

// SetCommentator injects the analyst-note generator.
func (o *Orchestrator) SetCommentator(c Commentator) {
	o.commentator = c
}

// SetCovenants replaces the standard rule set for deals with negotiated
// covenants.
func (o *Orchestrator) SetCovenants(rules []covenant.Rule) {
	o.tracker = covenant.NewTracker(rules)
}

// Run executes the full analysis for one request.
//
// Steps 1-6 are pure computations: only a construction error (missing input,
// invalid structure) aborts. Steps 7 and 8 degrade to warnings on the result,
// the analysis itself is never lost to a persistence or LLM failure.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if req.CompanyName == "" {
		return nil, fmt.Errorf("Le nom de l'entreprise est requis")
	}
	if len(req.Fiscal) == 0 {
		return nil, fmt.Errorf("Aucune donnée fiscale fournie pour %s", req.CompanyName)
	}
	if req.Structure == nil {
		return nil, fmt.Errorf("Aucune structure de financement fournie pour %s", req.CompanyName)
	}

	fmt.Printf("[PIPELINE] Démarrage de l'analyse pour %s (%d exercice(s))...\n",
		req.CompanyName, len(req.Fiscal))
	start := time.Now()

	baseline := latestYear(req.Fiscal)
	assum := projection.NewOperatingAssumptions()
	if req.Assumptions != nil {
		assum = *req.Assumptions
	}

	res := &Result{
		CompanyName: req.CompanyName,
		SIREN:       baseline.SIREN,
		ScenarioID:  req.ScenarioID,
		GeneratedAt: time.Now(),
		Structure:   req.Structure,
		Assumptions: assum,
	}

	// 1. Normalisation
	adjustments := make([]normalize.Adjustment, len(req.Adjustments))
	copy(adjustments, req.Adjustments)
	res.Suggestions = normalize.SuggestAdjustments(baseline)
	if req.ApplySuggestions {
		for _, s := range res.Suggestions {
			s.IsApplied = true
			adjustments = append(adjustments, s)
		}
	} else if len(res.Suggestions) > 0 {
		fmt.Printf("[PIPELINE] %d retraitement(s) suggéré(s), non appliqués\n", len(res.Suggestions))
	}

	taxRate := assum.TaxRate
	if taxRate == 0 {
		taxRate = projection.DefaultTaxRate
	}
	capexPct := assum.CapexPct
	if capexPct == 0 {
		capexPct = projection.DefaultCapexPct
	}
	revenue := baseRevenue(baseline)
	norm := normalize.Normalize(baseline, adjustments, taxRate, revenue*capexPct/100)
	res.Normalization = norm
	fmt.Printf("[PIPELINE] ✅ Normalisation: EBE %s €, EBITDA banque %s €\n",
		utils.GroupThousands(norm.EBE), utils.GroupThousands(norm.EBITDABank))

	// 2. Validation de la structure
	if err := req.Structure.Validate(); err != nil {
		return nil, fmt.Errorf("structure de financement invalide: %w", err)
	}
	fmt.Printf("[PIPELINE] ✅ Structure: dette %s €, equity %s €\n",
		utils.GroupThousands(req.Structure.TotalDebt()), utils.GroupThousands(req.Structure.EquityAmount))

	// 3. Projections
	res.Projections = o.engine.Project(revenue, norm.EBITDABank, req.Structure, assum)
	fmt.Printf("[PIPELINE] ✅ Projections: %d années, DSCR min %.2f\n",
		len(res.Projections), projection.MinDSCR(res.Projections))

	// 4. Covenants
	res.Covenants = o.tracker.ProjectAll(res.Projections)
	res.CovenantSummary = covenant.Summarize(res.Covenants)
	fmt.Printf("[PIPELINE] ✅ Covenants: %s (%d violation(s) sur %d)\n",
		res.CovenantSummary.OverallStatus, res.CovenantSummary.ViolatedCount, res.CovenantSummary.Total)

	// 5. Stress tests + sensibilité
	res.StressResults = stress.RunAll(baseline, req.Structure, norm)
	matrix := stress.SensitivityMatrix(baseline, req.Structure, norm, "dscr_min")
	res.Sensitivity = &matrix
	fmt.Printf("[PIPELINE] ✅ Stress: %d scénarios, matrice %dx%d\n",
		len(res.StressResults), len(matrix.MarginLabels), len(matrix.CALabels))

	// 6. Décision
	res.Decision = decision.Make(res.Projections, norm, baseline, req.ScenarioID)
	fmt.Printf("[PIPELINE] ✅ Décision: %s (score %d/100)\n",
		res.Decision.Decision, res.Decision.OverallScore)

	// 7. Couches contextuelles: ratios, puis tendances quand l'historique
	// porte au moins deux exercices.
	res.Ratios = ratios.Snapshot(baseline, norm, req.Structure, req.Structure.TotalAnnualService())
	if len(req.Fiscal) >= 2 {
		tr, err := buildTrendReport(req.Fiscal)
		if err != nil {
			res.warnf("analyse de tendances impossible: %v", err)
		} else {
			res.Trends = tr
			fmt.Printf("[PIPELINE] ✅ Tendances: %d exercices, santé %s\n",
				tr.Summary.NYears, tr.Summary.Health)
		}
	}

	// 8. Queue optionnelle. La note est générée avant la sauvegarde pour
	// qu'elle fasse partie du dossier persisté.
	if o.commentator != nil {
		text, err := o.commentator.Commentary(ctx, buildBrief(res))
		if err != nil {
			res.warnf("note d'analyste indisponible: %v", err)
		} else {
			res.Commentary = text
			fmt.Printf("[PIPELINE] ✅ Note d'analyste générée (%d caractères)\n", len(text))
		}
	}
	if o.repo != nil {
		if err := o.repo.Save(ctx, req.CompanyName, baseline.SIREN, res); err != nil {
			res.warnf("persistance échouée: %v", err)
		} else {
			res.Saved = true
			fmt.Printf("[PIPELINE] ✅ Analyse sauvegardée pour %s\n", req.CompanyName)
		}
	}

	fmt.Printf("[PIPELINE] Analyse terminée pour %s en %v\n", req.CompanyName, time.Since(start))
	return res, nil
}

// latestYear picks the baseline: highest FiscalYear, or the last element when
// the years are unset.
func latestYear(fiscal []models.FiscalYearData) *models.FiscalYearData {
	best := len(fiscal) - 1
	for i := range fiscal {
		if fiscal[i].FiscalYear > fiscal[best].FiscalYear {
			best = i
		}
	}
	return &fiscal[best]
}

// baseRevenue reads the CA, falling back on the operating income total when
// the net line is absent.
func baseRevenue(d *models.FiscalYearData) float64 {
	if ca := d.IncomeStatement.Revenues.NetRevenue; ca != 0 {
		return ca
	}
	return d.IncomeStatement.Revenues.Total
}

// buildTrendReport runs the history analyzer over every fiscal year of the
// request.
func buildTrendReport(fiscal []models.FiscalYearData) (*TrendReport, error) {
	analyzer, err := trends.NewAnalyzer(fiscal)
	if err != nil {
		return nil, err
	}
	return &TrendReport{
		Trends:      analyzer.All(),
		Anomalies:   analyzer.AllAnomalies(0),
		Predictions: analyzer.Predictions(),
		Summary:     analyzer.Summary(),
	}, nil
}

// buildBrief condenses a result into the advisor's input figures.
func buildBrief(res *Result) advisor.Brief {
	brief := advisor.Brief{
		CompanyName: res.CompanyName,
		EBITDABank:  res.Normalization.EBITDABank,
		MinDSCR:     projection.MinDSCR(res.Projections),
	}
	if res.Decision != nil {
		brief.Verdict = string(res.Decision.Decision)
		brief.GlobalScore = float64(res.Decision.OverallScore)
		brief.DealBreakers = res.Decision.DealBreakers
		brief.Warnings = res.Decision.Warnings
	}
	if len(res.Projections) > 0 {
		first := res.Projections[0]
		brief.CFADS = first.CFADS
		brief.DSCRYear1 = float64(first.DSCR)
		brief.Leverage = float64(first.Leverage)
	}
	if res.Trends != nil {
		brief.Health = res.Trends.Summary.Health
	}
	return brief
}
