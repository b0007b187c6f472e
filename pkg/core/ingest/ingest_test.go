package ingest

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lbo_analyzer/pkg/models"
)

func approx(t *testing.T, got, want, eps float64, label string) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Errorf("%s: expected %v, got %v", label, want, got)
	}
}

// =============================================================================
// FRENCH AMOUNTS
// =============================================================================

func TestCleanAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1 234,56", 1234.56},
		{"1.234,56", 1234.56},
		{"1,234.56", 1234.56},
		{"(1 234,56)", -1234.56},
		{"(500)", -500},
		{"-1 234", -1234},
		{"1234.56", 1234.56},
		{"12 345 678", 12345678},
		{"1 234", 1234},
		{"1 234 €", 1234},
		{"12.345.678", 12345678},
		{"", 0},
		{"-", 0},
		{"—", 0},
	}
	for _, c := range cases {
		got, err := CleanAmount(c.in)
		if err != nil {
			t.Errorf("CleanAmount(%q): unexpected error %v", c.in, err)
			continue
		}
		approx(t, got, c.want, 1e-9, "CleanAmount("+c.in+")")
	}
}

func TestCleanAmountRejectsGarbledNumbers(t *testing.T) {
	_, err := CleanAmount("1,2.3,4")
	if err == nil {
		t.Fatal("expected an error for a garbled amount")
	}
	if !strings.Contains(err.Error(), "Impossible de convertir") {
		t.Errorf("unexpected error message: %v", err)
	}
}

// =============================================================================
// JSON LOADER
// =============================================================================

const fiscalJSON = `{
  "company_name": "MECANIQUE PRECISION SARL",
  "siren": "123456789",
  "fiscal_year": 2023,
  "year_end": "2023-12-31",
  "income_statement": {
    "revenues": {"net_revenue": 2450000, "total": 2500000},
    "operating_expenses": {
      "purchases_of_goods": 850000,
      "external_charges": 380000,
      "taxes_and_duties": 45000,
      "wages_and_salaries": 520000,
      "social_charges": 230000,
      "depreciation": 120000
    },
    "operating_income": 355000,
    "net_income": 210000
  },
  "balance_sheet": {
    "assets": {
      "current_assets": {"cash": 180000, "inventory": 260000, "trade_receivables": 400000, "total": 1100000},
      "fixed_assets": {"total": 950000},
      "total": 2050000
    },
    "liabilities": {
      "equity": {"total": 600000},
      "debt": {"long_term_debt": 520000, "total": 520000},
      "current_liabilities": {"trade_payables": 310000, "total": 460000},
      "total": 2050000
    }
  }
}`

func TestParseFiscalJSON(t *testing.T) {
	data, err := ParseFiscalJSON([]byte(fiscalJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.CompanyName != "MECANIQUE PRECISION SARL" {
		t.Errorf("expected company name, got %q", data.CompanyName)
	}
	if data.FiscalYear != 2023 {
		t.Errorf("expected fiscal year 2023, got %d", data.FiscalYear)
	}
	approx(t, data.IncomeStatement.Revenues.NetRevenue, 2450000, 0.01, "net revenue")
	approx(t, data.PersonnelCosts(), 750000, 0.01, "personnel costs")
	approx(t, data.BalanceSheet.Liabilities.Equity.Total, 600000, 0.01, "equity")
	// Sections absent from the document stay at zero.
	approx(t, data.WorkingCapital.BFRPct, 0, 1e-9, "bfr pct")
	approx(t, data.IncomeStatement.ExceptionalResult.TotalExceptionalIncome, 0, 1e-9, "exceptional income")
}

func TestParseFiscalJSONLenientSyntax(t *testing.T) {
	// Trailing comma, no retry needed by the caller.
	raw := `{"company_name": "TEST SARL", "fiscal_year": 2022,}`
	data, err := ParseFiscalJSON([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.CompanyName != "TEST SARL" || data.FiscalYear != 2022 {
		t.Errorf("lenient parse lost fields: %+v", data)
	}
}

func TestParseFiscalJSONRejectsEmptyDocument(t *testing.T) {
	_, err := ParseFiscalJSON([]byte(`{}`))
	if err == nil {
		t.Fatal("expected an error for an empty document")
	}
	if !strings.Contains(err.Error(), "Aucune donnée extraite") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestParseFiscalHistory(t *testing.T) {
	raw := `[
	  {"company_name": "TEST SARL", "fiscal_year": 2021, "income_statement": {"revenues": {"net_revenue": 1000000}}},
	  {"company_name": "TEST SARL", "fiscal_year": 2022, "income_statement": {"revenues": {"net_revenue": 1200000}}}
	]`
	years, err := ParseFiscalHistory([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(years) != 2 {
		t.Fatalf("expected 2 years, got %d", len(years))
	}
	if years[1].FiscalYear != 2022 {
		t.Errorf("expected fiscal year 2022, got %d", years[1].FiscalYear)
	}

	// A single object is wrapped into a one-element history.
	single, err := ParseFiscalHistory([]byte(fiscalJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(single) != 1 {
		t.Fatalf("expected 1 year, got %d", len(single))
	}

	if _, err := ParseFiscalHistory([]byte(`[]`)); err == nil {
		t.Error("expected an error for an empty history")
	}
}

func TestLoadFiscalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "liasse.json")
	if err := os.WriteFile(path, []byte(fiscalJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := LoadFiscalFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.SIREN != "123456789" {
		t.Errorf("expected SIREN 123456789, got %q", data.SIREN)
	}

	if _, err := LoadFiscalFile(filepath.Join(dir, "absent.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

// =============================================================================
// HTML PARSER
// =============================================================================

const fiscalHTML = `<html>
<head><title>Liasse fiscale</title></head>
<body>
<h1>MECANIQUE PRECISION SARL</h1>
<p>SIREN : 123 456 789 &mdash; Exercice clos le 31/12/2023</p>
<table>
<tr><th>Compte de résultat</th><th>Montant</th></tr>
<tr><td>Chiffre d'affaires net</td><td>2 450 000</td></tr>
<tr><td>Achats de marchandises</td><td>850 000</td></tr>
<tr><td>Autres achats et charges externes</td><td>380 000</td></tr>
<tr><td>Impôts, taxes et versements assimilés</td><td>45 000</td></tr>
<tr><td>Salaires et traitements</td><td>520 000</td></tr>
<tr><td>Charges sociales</td><td>230 000</td></tr>
<tr><td>Dotations aux amortissements</td><td>120 000</td></tr>
<tr><td>Résultat net</td><td>(35 000)</td></tr>
</table>
<table>
<tr><th>Bilan actif</th><th>Brut</th><th>Amortissements</th><th>Net</th></tr>
<tr><td>Total actif immobilisé</td><td>1 650 000</td><td>700 000</td><td>950 000</td></tr>
<tr><td>Stocks et en-cours</td><td>260 000</td><td></td><td>260 000</td></tr>
<tr><td>Clients et comptes rattachés</td><td>410 000</td><td>10 000</td><td>400 000</td></tr>
<tr><td>Disponibilités</td><td>180 000</td><td></td><td>180 000</td></tr>
<tr><td>Total actif</td><td>2 760 000</td><td>710 000</td><td>2 050 000</td></tr>
</table>
<table>
<tr><td>Total des capitaux propres</td><td>600 000</td></tr>
<tr><td>Emprunts et dettes auprès des établissements de crédit</td><td>520 000</td></tr>
<tr><td>Dettes fournisseurs et comptes rattachés</td><td>310 000</td></tr>
<tr><td>Dettes fiscales et sociales</td><td>150 000</td></tr>
<tr><td>Total passif</td><td>2 050 000</td></tr>
</table>
</body>
</html>`

func TestParseFiscalHTML(t *testing.T) {
	data, err := ParseFiscalHTML(strings.NewReader(fiscalHTML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if data.CompanyName != "MECANIQUE PRECISION SARL" {
		t.Errorf("expected company name from <h1>, got %q", data.CompanyName)
	}
	if data.SIREN != "123456789" {
		t.Errorf("expected SIREN 123456789, got %q", data.SIREN)
	}
	if data.YearEnd != "2023-12-31" {
		t.Errorf("expected year end 2023-12-31, got %q", data.YearEnd)
	}
	if data.FiscalYear != 2023 {
		t.Errorf("expected fiscal year 2023, got %d", data.FiscalYear)
	}

	is := data.IncomeStatement
	approx(t, is.Revenues.NetRevenue, 2450000, 0.01, "net revenue")
	approx(t, is.OperatingExpenses.PurchasesOfGoods, 850000, 0.01, "purchases of goods")
	approx(t, is.OperatingExpenses.ExternalCharges, 380000, 0.01, "external charges")
	approx(t, is.OperatingExpenses.TaxesAndDuties, 45000, 0.01, "taxes and duties")
	approx(t, is.OperatingExpenses.WagesAndSalaries, 520000, 0.01, "wages")
	approx(t, is.OperatingExpenses.SocialCharges, 230000, 0.01, "social charges")
	approx(t, is.OperatingExpenses.Depreciation, 120000, 0.01, "depreciation")
	approx(t, is.NetIncome, -35000, 0.01, "net income")

	bs := data.BalanceSheet
	// The Net column, not the Brut one.
	approx(t, bs.Assets.FixedAssets.Total, 950000, 0.01, "fixed assets")
	approx(t, bs.Assets.CurrentAssets.Inventory, 260000, 0.01, "inventory")
	approx(t, bs.Assets.CurrentAssets.TradeReceivables, 400000, 0.01, "trade receivables")
	approx(t, bs.Assets.CurrentAssets.Cash, 180000, 0.01, "cash")
	approx(t, bs.Assets.Total, 2050000, 0.01, "total assets")
	approx(t, bs.Liabilities.Equity.Total, 600000, 0.01, "equity")
	approx(t, bs.Liabilities.Debt.LongTermDebt, 520000, 0.01, "long term debt")
	approx(t, bs.Liabilities.CurrentLiabilities.TradePayables, 310000, 0.01, "trade payables")
	approx(t, bs.Liabilities.CurrentLiabilities.TaxLiabilities, 150000, 0.01, "tax liabilities")
	approx(t, bs.Liabilities.Total, 2050000, 0.01, "total liabilities")
}

func TestParseFiscalHTMLWithoutTables(t *testing.T) {
	_, err := ParseFiscalHTML(strings.NewReader(`<html><body><p>rien</p></body></html>`))
	if err == nil {
		t.Fatal("expected an error without tables")
	}
	if !strings.Contains(err.Error(), "Aucun tableau") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestParseFiscalHTMLWithoutKnownRows(t *testing.T) {
	html := `<html><body><table><tr><td>Divers</td><td>12</td></tr></table></body></html>`
	_, err := ParseFiscalHTML(strings.NewReader(html))
	if err == nil {
		t.Fatal("expected an error when no row label is recognized")
	}
	if !strings.Contains(err.Error(), "Aucune donnée financière reconnue") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestNormalizeLabel(t *testing.T) {
	got := normalizeLabel("  Impôts, taxes   et versements assimilés ")
	if got != "impots, taxes et versements assimiles" {
		t.Errorf("unexpected normalization: %q", got)
	}
	if normalizeLabel("Chiffre d’affaires net") != "chiffre d'affaires net" {
		t.Error("typographic apostrophe should fold to the plain one")
	}
}

// =============================================================================
// EXTRACTION LADDER
// =============================================================================

type fakeProvider struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) GenerateResponse(_ context.Context, prompt string, _ string, _ map[string]interface{}) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestConfidence(t *testing.T) {
	full, err := ParseFiscalJSON([]byte(fiscalJSON))
	if err != nil {
		t.Fatal(err)
	}
	approx(t, Confidence(full), 1.0, 1e-9, "full statement")

	approx(t, Confidence(nil), 0, 1e-9, "nil")
	approx(t, Confidence(&models.FiscalYearData{}), 0, 1e-9, "empty")

	partial := &models.FiscalYearData{}
	partial.IncomeStatement.Revenues.NetRevenue = 1000000
	partial.IncomeStatement.OperatingExpenses.WagesAndSalaries = 300000
	partial.BalanceSheet.Assets.CurrentAssets.Cash = 50000
	approx(t, Confidence(partial), 0.38, 1e-9, "partial statement")
}

func TestExtractDocumentNativeJSON(t *testing.T) {
	extractor := NewExtractor(nil)
	data, report, err := extractor.ExtractDocument(context.Background(), []byte(fiscalJSON), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Source != FormatJSON {
		t.Errorf("expected source json, got %q", report.Source)
	}
	if report.Method != MethodNative {
		t.Errorf("expected method native, got %q", report.Method)
	}
	if report.Confidence < DefaultConfidenceThreshold {
		t.Errorf("expected confidence above threshold, got %v", report.Confidence)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", report.Warnings)
	}
	if data.CompanyName != "MECANIQUE PRECISION SARL" {
		t.Errorf("unexpected company name: %q", data.CompanyName)
	}
}

func TestExtractDocumentAIFallback(t *testing.T) {
	provider := &fakeProvider{response: fiscalJSON}
	extractor := NewExtractor(provider)

	content := []byte(`<html><body><table><tr><td>Divers</td><td>12</td></tr></table></body></html>`)
	data, report, err := extractor.ExtractDocument(context.Background(), content, FormatHTML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Method != MethodAI {
		t.Errorf("expected method ai, got %q", report.Method)
	}
	approx(t, report.Confidence, 0.85, 1e-9, "ai confidence")
	if len(report.Warnings) == 0 || !strings.Contains(report.Warnings[0], "Extraction native échouée") {
		t.Errorf("expected a native failure warning, got %v", report.Warnings)
	}
	if data.CompanyName != "MECANIQUE PRECISION SARL" {
		t.Errorf("unexpected company name: %q", data.CompanyName)
	}

	if len(provider.prompts) != 1 {
		t.Fatalf("expected 1 AI call, got %d", len(provider.prompts))
	}
	if !strings.Contains(provider.prompts[0], "Retourne UNIQUEMENT le JSON") {
		t.Error("prompt should pin the JSON-only contract")
	}
	if !strings.Contains(provider.prompts[0], "Divers") {
		t.Error("prompt should carry the document content")
	}
}

func TestExtractDocumentHybrid(t *testing.T) {
	// Native catches only the revenue line: confidence far below the
	// threshold, so the AI completes the statement.
	thin := `<html><body>
	<h1>ATELIER DUPONT</h1>
	<table><tr><td>Chiffre d'affaires net</td><td>1 800 000</td></tr></table>
	</body></html>`

	aiResponse := `{
	  "siren": "987654321",
	  "income_statement": {"revenues": {"net_revenue": 0}, "net_income": 90000},
	  "balance_sheet": {
	    "assets": {"current_assets": {"cash": 120000}, "total": 1500000},
	    "liabilities": {"equity": {"total": 450000}, "total": 1500000}
	  }
	}`

	provider := &fakeProvider{response: aiResponse}
	extractor := NewExtractor(provider)
	data, report, err := extractor.ExtractDocument(context.Background(), []byte(thin), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Source != FormatHTML {
		t.Errorf("expected sniffed source html, got %q", report.Source)
	}
	if report.Method != MethodHybrid {
		t.Errorf("expected method hybrid, got %q", report.Method)
	}
	approx(t, report.Confidence, 0.85, 1e-9, "hybrid confidence")
	if len(report.Warnings) == 0 || !strings.Contains(report.Warnings[0], "sous le seuil") {
		t.Errorf("expected a low-confidence warning, got %v", report.Warnings)
	}

	// Native fields survive where the AI left zeros, AI fields fill the rest.
	if data.CompanyName != "ATELIER DUPONT" {
		t.Errorf("expected native company name to survive, got %q", data.CompanyName)
	}
	approx(t, data.IncomeStatement.Revenues.NetRevenue, 1800000, 0.01, "native revenue")
	if data.SIREN != "987654321" {
		t.Errorf("expected AI SIREN, got %q", data.SIREN)
	}
	approx(t, data.IncomeStatement.NetIncome, 90000, 0.01, "ai net income")
	approx(t, data.BalanceSheet.Liabilities.Equity.Total, 450000, 0.01, "ai equity")
}

func TestExtractDocumentAllMethodsFail(t *testing.T) {
	provider := &fakeProvider{err: errors.New("quota")}
	extractor := NewExtractor(provider)

	data, report, err := extractor.ExtractDocument(context.Background(), []byte(`<html><body><p>rien</p></body></html>`), FormatHTML)
	if err == nil {
		t.Fatal("expected an error when every method fails")
	}
	if !strings.Contains(err.Error(), "Toutes les méthodes d'extraction ont échoué") {
		t.Errorf("unexpected error message: %v", err)
	}
	if data != nil {
		t.Error("expected no data")
	}
	if report == nil || len(report.Warnings) != 2 {
		t.Fatalf("expected a report carrying both failure warnings, got %+v", report)
	}
}

func TestExtractDocumentLowConfidenceWithoutProvider(t *testing.T) {
	thin := `<html><body><table><tr><td>Chiffre d'affaires net</td><td>1 800 000</td></tr></table></body></html>`
	extractor := NewExtractor(nil)
	data, report, err := extractor.ExtractDocument(context.Background(), []byte(thin), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Degraded but usable: the thin native result is kept.
	if report.Method != MethodNative {
		t.Errorf("expected method native, got %q", report.Method)
	}
	if report.Confidence >= DefaultConfidenceThreshold {
		t.Errorf("expected confidence below threshold, got %v", report.Confidence)
	}
	approx(t, data.IncomeStatement.Revenues.NetRevenue, 1800000, 0.01, "net revenue")
}

func TestExtractDocumentRejectsUnknownFormat(t *testing.T) {
	extractor := NewExtractor(nil)
	_, _, err := extractor.ExtractDocument(context.Background(), []byte(fiscalJSON), "pdf")
	if err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
	if !strings.Contains(err.Error(), "non supporté") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestSniffFormat(t *testing.T) {
	if got := sniffFormat([]byte("  <html><body></body></html>")); got != FormatHTML {
		t.Errorf("expected html, got %q", got)
	}
	if got := sniffFormat([]byte(`{"company_name": "X"}`)); got != FormatJSON {
		t.Errorf("expected json, got %q", got)
	}
	if got := sniffFormat([]byte(`[{"fiscal_year": 2023}]`)); got != FormatJSON {
		t.Errorf("expected json for an array, got %q", got)
	}
}

func TestMergeResultsPrefersAI(t *testing.T) {
	native := &models.FiscalYearData{CompanyName: "NATIVE SARL"}
	native.IncomeStatement.Revenues.NetRevenue = 111
	native.BalanceSheet.Assets.Total = 999

	ai := &models.FiscalYearData{}
	ai.IncomeStatement.Revenues.NetRevenue = 222
	ai.BalanceSheet.Liabilities.Equity.Total = 400

	merged := mergeResults(native, ai)
	approx(t, merged.IncomeStatement.Revenues.NetRevenue, 222, 1e-9, "ai override")
	approx(t, merged.BalanceSheet.Assets.Total, 999, 1e-9, "native fallback")
	approx(t, merged.BalanceSheet.Liabilities.Equity.Total, 400, 1e-9, "ai addition")
	if merged.CompanyName != "NATIVE SARL" {
		t.Errorf("expected native company name to survive, got %q", merged.CompanyName)
	}
}
