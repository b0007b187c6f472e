package ingest

import (
	"fmt"
	"io"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"lbo_analyzer/pkg/models"
)

// =============================================================================
// FRENCH AMOUNTS
// =============================================================================

var nonAmountChars = regexp.MustCompile(`[^0-9,.\-]`)

// CleanAmount converts a French-formatted amount string to a float.
//
//	"1 234,56"   -> 1234.56
//	"1.234,56"   -> 1234.56
//	"1,234.56"   -> 1234.56
//	"(1 234,56)" -> -1234.56
//	"" / "-"     -> 0
//
// Thousands separators (spaces, non-breaking spaces, dots or commas) are
// stripped; when both separators appear, the rightmost one is the decimal.
func CleanAmount(text string) (float64, error) {
	s := strings.TrimSpace(text)
	if s == "" || s == "-" || s == "—" {
		return 0, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	} else if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(s[1:])
	}

	s = nonAmountChars.ReplaceAllString(s, "")
	if s == "" {
		return 0, nil
	}

	commas := strings.Count(s, ",")
	dots := strings.Count(s, ".")
	switch {
	case commas == 1 && dots == 0:
		s = strings.ReplaceAll(s, ",", ".")
	case commas == 0 && dots == 1:
		// decimal dot already
	case commas >= 1 && dots >= 1:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case commas > 1:
		s = strings.ReplaceAll(s, ",", "")
	case dots > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("Impossible de convertir '%s' en nombre", s)
	}
	if negative {
		return -value, nil
	}
	return value, nil
}

// =============================================================================
// ROW LABEL MAP
// Labels are matched on their normalized form: lowercased, accents folded,
// whitespace collapsed. First prefix match wins, so the more specific entries
// must come before the shorter ones ("total actif circulant" before
// "total actif").
// =============================================================================

var accentFolder = strings.NewReplacer(
	"à", "a", "â", "a", "ä", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"î", "i", "ï", "i",
	"ô", "o", "ö", "o",
	"ù", "u", "û", "u", "ü", "u",
	"ç", "c",
	"’", "'",
	" ", " ",
)

func normalizeLabel(s string) string {
	s = accentFolder.Replace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

type rowMapping struct {
	prefix string
	set    func(d *models.FiscalYearData, v float64)
}

var rowMappings = []rowMapping{
	// Compte de résultat (2052/2053).
	{"chiffre d'affaires net", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.Revenues.NetRevenue = v }},
	{"chiffre d'affaires", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.Revenues.NetRevenue = v }},
	{"total des produits d'exploitation", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.Revenues.Total = v }},
	{"achats de marchandises", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.OperatingExpenses.PurchasesOfGoods = v }},
	{"achats de matieres premieres", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.OperatingExpenses.PurchasesOfRawMaterials = v }},
	// The 2052 carries one stock-variation line per purchase line; they add up.
	{"variation de stock", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.OperatingExpenses.InventoryVariation += v }},
	{"autres achats et charges externes", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.OperatingExpenses.ExternalCharges = v }},
	{"charges externes", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.OperatingExpenses.ExternalCharges = v }},
	{"impots, taxes et versements assimiles", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.OperatingExpenses.TaxesAndDuties = v }},
	{"impots et taxes", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.OperatingExpenses.TaxesAndDuties = v }},
	{"salaires et traitements", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.OperatingExpenses.WagesAndSalaries = v }},
	{"charges sociales", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.OperatingExpenses.SocialCharges = v }},
	{"charges de personnel", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.OperatingExpenses.PersonnelCosts = v }},
	{"dotations aux amortissements", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.OperatingExpenses.Depreciation = v }},
	{"resultat d'exploitation", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.OperatingIncome = v }},
	{"total des charges financieres", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.FinancialResult.TotalFinancialExpense = v }},
	{"charges financieres", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.FinancialResult.TotalFinancialExpense = v }},
	{"interets et charges assimilees", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.FinancialResult.InterestExpense = v }},
	{"total des produits exceptionnels", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.ExceptionalResult.TotalExceptionalIncome = v }},
	{"produits exceptionnels", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.ExceptionalResult.TotalExceptionalIncome = v }},
	{"total des charges exceptionnelles", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.ExceptionalResult.TotalExceptionalExpense = v }},
	{"charges exceptionnelles", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.ExceptionalResult.TotalExceptionalExpense = v }},
	{"benefice ou perte", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.NetIncome = v }},
	{"resultat net", func(d *models.FiscalYearData, v float64) { d.IncomeStatement.NetIncome = v }},

	// Bilan actif (2050).
	{"total actif immobilise", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Assets.FixedAssets.Total = v }},
	{"actif immobilise", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Assets.FixedAssets.Total = v }},
	{"stocks", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Assets.CurrentAssets.Inventory = v }},
	{"clients et comptes rattaches", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Assets.CurrentAssets.TradeReceivables = v }},
	{"creances clients", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Assets.CurrentAssets.TradeReceivables = v }},
	{"autres creances", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Assets.CurrentAssets.OtherReceivables = v }},
	{"disponibilites", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Assets.CurrentAssets.Cash = v }},
	{"charges constatees d'avance", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Assets.CurrentAssets.PrepaidExpenses = v }},
	{"total actif circulant", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Assets.CurrentAssets.Total = v }},
	{"actif circulant", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Assets.CurrentAssets.Total = v }},
	{"total actif", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Assets.Total = v }},

	// Bilan passif (2051).
	{"total des capitaux propres", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Liabilities.Equity.Total = v }},
	{"capitaux propres", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Liabilities.Equity.Total = v }},
	{"provisions pour risques", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Liabilities.Provisions.Total = v }},
	// DU and DV both feed long-term debt.
	{"emprunts et dettes aupres des etablissements de credit", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Liabilities.Debt.LongTermDebt += v }},
	{"emprunts et dettes financieres", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Liabilities.Debt.LongTermDebt += v }},
	{"concours bancaires courants", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Liabilities.Debt.ShortTermDebt = v }},
	{"total des dettes", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Liabilities.Debt.Total = v }},
	{"dettes fournisseurs", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Liabilities.CurrentLiabilities.TradePayables = v }},
	{"fournisseurs et comptes rattaches", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Liabilities.CurrentLiabilities.TradePayables = v }},
	// A combined line lands on the tax side; BFR consumers sum both fields.
	{"dettes fiscales et sociales", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Liabilities.CurrentLiabilities.TaxLiabilities = v }},
	{"dettes fiscales", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Liabilities.CurrentLiabilities.TaxLiabilities = v }},
	{"dettes sociales", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Liabilities.CurrentLiabilities.SocialLiabilities = v }},
	{"avances et acomptes recus", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Liabilities.CurrentLiabilities.AdvancesReceived = v }},
	{"produits constates d'avance", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Liabilities.CurrentLiabilities.DeferredRevenue = v }},
	{"total passif", func(d *models.FiscalYearData, v float64) { d.BalanceSheet.Liabilities.Total = v }},
}

func applyRow(label string, value float64, d *models.FiscalYearData) bool {
	for _, m := range rowMappings {
		if strings.HasPrefix(label, m.prefix) {
			m.set(d, value)
			return true
		}
	}
	return false
}

// =============================================================================
// HTML PARSER
// =============================================================================

// ParseFiscalHTML extracts one fiscal year from HTML statement tables, the
// shape accounting software exports (one label column, amount columns after).
// Liasse tables put the Net / Total figure in the last column, so the
// rightmost cell carrying a digit is taken as the row value.
func ParseFiscalHTML(r io.Reader) (*models.FiscalYearData, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("Document HTML illisible: %w", err)
	}
	if doc.Find("table").Length() == 0 {
		return nil, fmt.Errorf("Aucun tableau dans le document HTML")
	}

	data := &models.FiscalYearData{}
	fillMetadata(doc, data)

	matched := 0
	tables := 0
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		tables++
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td, th")
			if cells.Length() < 2 {
				return
			}
			label := normalizeLabel(cells.First().Text())
			if label == "" {
				return
			}
			value, ok := lastAmountCell(cells)
			if !ok {
				return
			}
			if applyRow(label, value, data) {
				matched++
			}
		})
	})

	log.Printf("[INGEST] HTML: %d ligne(s) reconnue(s) sur %d tableau(x)", matched, tables)
	if matched == 0 {
		return nil, fmt.Errorf("Aucune donnée financière reconnue dans le document HTML")
	}
	return data, nil
}

// lastAmountCell scans the row cells right to left and returns the first one
// that parses as an amount. Cells without any digit are skipped so blank
// columns and unit headers do not shadow the figures.
func lastAmountCell(cells *goquery.Selection) (float64, bool) {
	for j := cells.Length() - 1; j >= 1; j-- {
		text := strings.TrimSpace(cells.Eq(j).Text())
		if !strings.ContainsAny(text, "0123456789") {
			continue
		}
		value, err := CleanAmount(text)
		if err != nil {
			continue
		}
		return value, true
	}
	return 0, false
}

// =============================================================================
// METADATA
// =============================================================================

var (
	sirenPattern    = regexp.MustCompile(`(?i)siren\s*:?\s*(\d{3})[ .]?(\d{3})[ .]?(\d{3})`)
	yearEndPattern  = regexp.MustCompile(`(?i)clos(?:e)?\s+le\s+(\d{2})/(\d{2})/(\d{4})`)
	periodPattern   = regexp.MustCompile(`(?i)au\s+(\d{2})/(\d{2})/(\d{4})`)
	bareYearPattern = regexp.MustCompile(`(?i)exercice\s+(\d{4})`)
)

func fillMetadata(doc *goquery.Document, data *models.FiscalYearData) {
	if name := strings.TrimSpace(doc.Find("h1").First().Text()); name != "" {
		data.CompanyName = name
	} else if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		data.CompanyName = title
	}

	text := strings.ReplaceAll(doc.Text(), " ", " ")

	if m := sirenPattern.FindStringSubmatch(text); m != nil {
		data.SIREN = m[1] + m[2] + m[3]
	}

	// "Exercice clos le 31/12/2023" first, then "du ... au 31/12/2023",
	// then a bare "Exercice 2023".
	if m := yearEndPattern.FindStringSubmatch(text); m != nil {
		data.YearEnd = m[3] + "-" + m[2] + "-" + m[1]
		data.FiscalYear, _ = strconv.Atoi(m[3])
	} else if m := periodPattern.FindStringSubmatch(text); m != nil {
		data.YearEnd = m[3] + "-" + m[2] + "-" + m[1]
		data.FiscalYear, _ = strconv.Atoi(m[3])
	} else if m := bareYearPattern.FindStringSubmatch(text); m != nil {
		data.FiscalYear, _ = strconv.Atoi(m[1])
	}
}
