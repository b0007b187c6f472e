package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"lbo_analyzer/pkg/core/llm"
	"lbo_analyzer/pkg/core/utils"
	"lbo_analyzer/pkg/models"
)

// =============================================================================
// EXTRACTION LADDER
// Native parse first, AI fallback when the native result is missing or too
// thin, hybrid merge when both produced something.
// =============================================================================

// DefaultConfidenceThreshold is the native-parse confidence under which the
// AI fallback is attempted.
const DefaultConfidenceThreshold = 0.5

// aiConfidence is the fixed score assigned to AI extractions. The model does
// not report calibrated confidence, so a single conservative value is used.
const aiConfidence = 0.85

// Supported source formats.
const (
	FormatJSON = "json"
	FormatHTML = "html"
)

// Extraction methods reported in Report.Method.
const (
	MethodNative = "native"
	MethodAI     = "ai"
	MethodHybrid = "hybrid"
)

// Report describes how a document was extracted: which source format, which
// rung of the ladder produced the data, and what went wrong along the way.
type Report struct {
	Source     string   `json:"source"`
	Method     string   `json:"method"`
	Confidence float64  `json:"confidence"`
	Warnings   []string `json:"warnings,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// Extractor runs the extraction ladder. The provider is optional: without
// one the ladder stops after the native parse.
type Extractor struct {
	provider  llm.Provider
	Threshold float64
}

func NewExtractor(provider llm.Provider) *Extractor {
	return &Extractor{provider: provider, Threshold: DefaultConfidenceThreshold}
}

// ExtractDocument parses a fiscal document. format is "json", "html" or
// empty/"auto" to sniff from the content. The returned Report is non-nil
// whenever a parse was attempted, error included.
func (e *Extractor) ExtractDocument(ctx context.Context, content []byte, format string) (*models.FiscalYearData, *Report, error) {
	start := time.Now()
	source, err := resolveFormat(content, format)
	if err != nil {
		return nil, nil, err
	}
	report := &Report{Source: source}

	var native *models.FiscalYearData
	var nativeErr error
	switch source {
	case FormatJSON:
		native, nativeErr = ParseFiscalJSON(content)
	case FormatHTML:
		native, nativeErr = ParseFiscalHTML(bytes.NewReader(content))
	}

	nativeConf := 0.0
	if nativeErr == nil {
		nativeConf = Confidence(native)
	}

	if nativeErr == nil && nativeConf >= e.Threshold {
		report.Method = MethodNative
		report.Confidence = nativeConf
		finishReport(report, native, start)
		return native, report, nil
	}

	if nativeErr != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("Extraction native échouée: %v", nativeErr))
	} else {
		report.Warnings = append(report.Warnings, fmt.Sprintf("Confiance native %.2f sous le seuil %.2f", nativeConf, e.Threshold))
	}

	if e.provider == nil {
		if nativeErr == nil {
			report.Method = MethodNative
			report.Confidence = nativeConf
			finishReport(report, native, start)
			return native, report, nil
		}
		finishReport(report, nil, start)
		return nil, report, fmt.Errorf("Toutes les méthodes d'extraction ont échoué")
	}

	ai, aiErr := e.extractWithAI(ctx, content)
	if aiErr != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("Fallback AI échoué: %v", aiErr))
		if nativeErr != nil {
			finishReport(report, nil, start)
			return nil, report, fmt.Errorf("Toutes les méthodes d'extraction ont échoué")
		}
		// Keep the thin native result rather than fail.
		report.Method = MethodNative
		report.Confidence = nativeConf
		finishReport(report, native, start)
		return native, report, nil
	}

	if nativeErr == nil {
		merged := mergeResults(native, ai)
		report.Method = MethodHybrid
		report.Confidence = aiConfidence
		finishReport(report, merged, start)
		return merged, report, nil
	}

	report.Method = MethodAI
	report.Confidence = aiConfidence
	finishReport(report, ai, start)
	return ai, report, nil
}

// Confidence scores a parse as the share of key fields that are non-zero.
// A statement with revenue, personnel costs and balance totals filled scores
// well above the fallback threshold; a parse that only caught one line does
// not.
func Confidence(d *models.FiscalYearData) float64 {
	if d == nil {
		return 0
	}
	fields := []float64{
		d.IncomeStatement.Revenues.NetRevenue,
		d.PersonnelCosts(),
		d.IncomeStatement.OperatingExpenses.ExternalCharges,
		d.IncomeStatement.NetIncome,
		d.BalanceSheet.Assets.Total,
		d.BalanceSheet.Liabilities.Total,
		d.BalanceSheet.Liabilities.Equity.Total,
		d.BalanceSheet.Assets.CurrentAssets.Cash,
	}
	nonZero := 0
	for _, f := range fields {
		if f != 0 {
			nonZero++
		}
	}
	return math.Round(float64(nonZero)/float64(len(fields))*100) / 100
}

func finishReport(report *Report, data *models.FiscalYearData, start time.Time) {
	if data != nil {
		assets := data.BalanceSheet.Assets.Total
		liabilities := data.BalanceSheet.Liabilities.Total
		if assets > 0 && liabilities > 0 && math.Abs(assets-liabilities) > assets*0.01 {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("Bilan déséquilibré: actif %.0f vs passif %.0f", assets, liabilities))
		}
	}
	report.DurationMS = time.Since(start).Milliseconds()
	log.Printf("[EXTRACT] source=%s method=%s confidence=%.2f duration=%dms",
		report.Source, report.Method, report.Confidence, report.DurationMS)
}

func resolveFormat(content []byte, format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatHTML:
		return FormatHTML, nil
	case "", "auto":
		return sniffFormat(content), nil
	}
	return "", fmt.Errorf("Format de document non supporté: %s (utilisez 'json' ou 'html')", format)
}

// sniffFormat guesses from the first non-blank byte. SmartParse is lenient
// enough that JSON is the safer default for anything that is not markup.
func sniffFormat(content []byte) string {
	s := strings.TrimSpace(string(content))
	if strings.HasPrefix(s, "<") {
		return FormatHTML
	}
	return FormatJSON
}

// =============================================================================
// AI FALLBACK
// =============================================================================

const extractionSystemPrompt = `Tu es un expert-comptable français spécialisé dans l'analyse de liasses fiscales.
Tu reçois le contenu brut d'un document financier (JSON partiel, tableau HTML ou texte).

Ton objectif est d'extraire les données financières présentes et de les retourner dans un format JSON structuré.

IMPORTANT:
- Extrais les montants avec précision, y compris les valeurs négatives (entre parenthèses ou avec signe moins)
- Convertis les montants en euros (pas de milliers d'euros)
- Utilise 0 pour les champs absents ou illisibles
- Pour le bilan, vérifie que Total Actif = Total Passif`

const extractionSchema = `{
  "company_name": "",
  "siren": "",
  "fiscal_year": 0,
  "year_end": "YYYY-MM-DD",
  "income_statement": {
    "revenues": {"net_revenue": 0, "total": 0},
    "operating_expenses": {
      "purchases_of_goods": 0,
      "purchases_of_raw_materials": 0,
      "inventory_variation": 0,
      "external_charges": 0,
      "taxes_and_duties": 0,
      "personnel_costs": 0,
      "wages_and_salaries": 0,
      "social_charges": 0,
      "depreciation": 0
    },
    "operating_income": 0,
    "financial_result": {"total_financial_expense": 0, "interest_expense": 0},
    "exceptional_result": {"total_exceptional_income": 0, "total_exceptional_expense": 0},
    "net_income": 0
  },
  "balance_sheet": {
    "assets": {
      "current_assets": {"cash": 0, "inventory": 0, "trade_receivables": 0, "other_receivables": 0, "prepaid_expenses": 0, "total": 0},
      "fixed_assets": {"total": 0},
      "total": 0
    },
    "liabilities": {
      "equity": {"total": 0},
      "debt": {"long_term_debt": 0, "short_term_debt": 0, "total": 0},
      "current_liabilities": {"trade_payables": 0, "tax_liabilities": 0, "social_liabilities": 0, "advances_received": 0, "deferred_revenue": 0, "total": 0},
      "provisions": {"total": 0},
      "total": 0
    }
  }
}`

func buildExtractionPrompt(content string) string {
	var b strings.Builder
	b.WriteString("Analyse ce document financier et extrais les données au format JSON suivant.\n")
	b.WriteString("Retourne UNIQUEMENT le JSON, sans texte avant ou après.\n\n")
	b.WriteString(extractionSchema)
	b.WriteString("\n\nDOCUMENT:\n")
	b.WriteString(content)
	return b.String()
}

func (e *Extractor) extractWithAI(ctx context.Context, content []byte) (*models.FiscalYearData, error) {
	raw, err := e.provider.GenerateResponse(ctx, buildExtractionPrompt(string(content)), extractionSystemPrompt, llm.JSONFormat())
	if err != nil {
		return nil, err
	}
	var data models.FiscalYearData
	if _, err := utils.SmartParse(raw, &data); err != nil {
		return nil, fmt.Errorf("Réponse AI illisible: %w", err)
	}
	if isEmptyYear(&data) {
		return nil, fmt.Errorf("Aucune donnée extraite du document")
	}
	return &data, nil
}

// =============================================================================
// HYBRID MERGE
// =============================================================================

// mergeResults combines a partial native parse with an AI extraction. AI
// values win wherever the model set them; native values fill the holes the
// model left at zero.
func mergeResults(native, ai *models.FiscalYearData) *models.FiscalYearData {
	merged := mergeMaps(toMap(native), toMap(ai))
	raw, err := json.Marshal(merged)
	if err != nil {
		return ai
	}
	out := &models.FiscalYearData{}
	if err := json.Unmarshal(raw, out); err != nil {
		return ai
	}
	return out
}

func toMap(d *models.FiscalYearData) map[string]interface{} {
	raw, _ := json.Marshal(d)
	var m map[string]interface{}
	_ = json.Unmarshal(raw, &m)
	return m
}

func mergeMaps(base, override map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		switch val := v.(type) {
		case map[string]interface{}:
			if sub, ok := out[k].(map[string]interface{}); ok {
				out[k] = mergeMaps(sub, val)
				continue
			}
			out[k] = val
		case float64:
			if val != 0 {
				out[k] = val
			}
		case string:
			if val != "" {
				out[k] = val
			}
		default:
			out[k] = v
		}
	}
	return out
}
