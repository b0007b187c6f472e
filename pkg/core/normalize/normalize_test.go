package normalize

import (
	"math"
	"strings"
	"testing"

	"lbo_analyzer/pkg/models"
)

// Dossier used across the engine tests: 8.5M CA French SME target.
func sampleFiscalYear() *models.FiscalYearData {
	d := &models.FiscalYearData{CompanyName: "Transmission SA"}
	d.IncomeStatement.Revenues.NetRevenue = 8_500_000
	d.IncomeStatement.OperatingExpenses.PurchasesOfGoods = 2_000_000
	d.IncomeStatement.OperatingExpenses.PurchasesOfRawMaterials = 1_200_000
	d.IncomeStatement.OperatingExpenses.ExternalCharges = 1_300_000
	d.IncomeStatement.OperatingExpenses.TaxesAndDuties = 150_000
	d.IncomeStatement.OperatingExpenses.PersonnelCosts = 2_950_000
	return d
}

func TestCalculateEBE(t *testing.T) {
	ebe := CalculateEBE(sampleFiscalYear())
	if ebe != 900_000 {
		t.Errorf("expected EBE 900000, got %.0f", ebe)
	}
}

func TestCalculateEBEWagesFallback(t *testing.T) {
	d := sampleFiscalYear()
	d.IncomeStatement.OperatingExpenses.PersonnelCosts = 0
	d.IncomeStatement.OperatingExpenses.WagesAndSalaries = 2_000_000
	d.IncomeStatement.OperatingExpenses.SocialCharges = 950_000

	if ebe := CalculateEBE(d); ebe != 900_000 {
		t.Errorf("expected EBE 900000 via wages+social fallback, got %.0f", ebe)
	}
}

func TestCalculateEBEEmptyStatement(t *testing.T) {
	// Missing data degrades to zero, never errors.
	if ebe := CalculateEBE(&models.FiscalYearData{}); ebe != 0 {
		t.Errorf("expected EBE 0 on empty statement, got %.0f", ebe)
	}
}

func TestComputeBankSumsAppliedAdjustmentsOnly(t *testing.T) {
	adjustments := []Adjustment{
		{Name: "Rémunération dirigeant excessive", Amount: 100_000, Category: CategoryPersonnel, IsApplied: true},
		{Name: "Loyer intra-groupe", Amount: 80_000, Category: CategoryRent, IsApplied: false},
		{Name: "Charges exceptionnelles", Amount: 50_000, Category: CategoryExceptional, IsApplied: true},
	}

	r := NewResult(900_000, adjustments)
	r.ComputeBank()

	if r.EBITDABank != 1_050_000 {
		t.Errorf("expected EBITDA banque 1050000, got %.0f", r.EBITDABank)
	}
}

func TestComputeBankNoFloor(t *testing.T) {
	r := NewResult(-200_000, []Adjustment{{Name: "Retraitement", Amount: 50_000, IsApplied: true}})
	r.ComputeBank()
	if r.EBITDABank != -150_000 {
		t.Errorf("expected negative EBITDA banque -150000 (no floor), got %.0f", r.EBITDABank)
	}
}

func TestComputeEquity(t *testing.T) {
	r := NewResult(900_000, nil)
	r.EBITDABank = 1_050_000
	r.ComputeEquity(0.25, 250_000)

	// 1,050,000 - 262,500 (IS) - 250,000 (Capex) = 537,500
	if math.Abs(r.EBITDAEquity-537_500) > 0.01 {
		t.Errorf("expected EBITDA equity 537500, got %.0f", r.EBITDAEquity)
	}
}

func TestAuditTrail(t *testing.T) {
	r := Normalize(sampleFiscalYear(), []Adjustment{
		{Name: "Charges exceptionnelles", Amount: 150_000, Category: CategoryExceptional, IsApplied: true},
	}, 0.25, 250_000)

	want := []string{
		"EBE initial calculé: 900,000 €",
		"EBITDA banque calculé: 900,000 + 150,000 = 1,050,000",
		"EBITDA equity calculé: 1,050,000 - 262,500 (IS) - 250,000 (Capex) = 537,500",
	}
	if len(r.AuditLog) != len(want) {
		t.Fatalf("expected %d audit lines, got %d: %v", len(want), len(r.AuditLog), r.AuditLog)
	}
	for i, line := range want {
		if r.AuditLog[i] != line {
			t.Errorf("audit line %d: expected %q, got %q", i, line, r.AuditLog[i])
		}
	}
}

func TestSuggestExcessiveSalary(t *testing.T) {
	d := &models.FiscalYearData{}
	d.IncomeStatement.Revenues.NetRevenue = 1_000_000
	d.IncomeStatement.OperatingExpenses.PersonnelCosts = 450_000 // 45% du CA

	suggestions := SuggestAdjustments(d)
	if len(suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(suggestions))
	}

	s := suggestions[0]
	if s.Name != "Rémunération dirigeant excessive" {
		t.Errorf("expected salary suggestion, got %q", s.Name)
	}
	if s.Amount != 100_000 {
		t.Errorf("expected add-back to 35%% norm (100000), got %.0f", s.Amount)
	}
	if s.IsApplied {
		t.Error("suggestions must come back unapplied")
	}
	if !strings.Contains(s.Description, "45.0% CA") {
		t.Errorf("expected ratio in description, got %q", s.Description)
	}
}

func TestSuggestExceptionalCharges(t *testing.T) {
	d := &models.FiscalYearData{}
	d.IncomeStatement.Revenues.NetRevenue = 1_000_000
	d.IncomeStatement.ExceptionalResult.TotalExceptionalExpense = 75_000

	suggestions := SuggestAdjustments(d)
	if len(suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(suggestions))
	}
	if suggestions[0].Name != "Charges exceptionnelles" || suggestions[0].Amount != 75_000 {
		t.Errorf("expected exceptional charges 75000, got %q %.0f", suggestions[0].Name, suggestions[0].Amount)
	}
}

func TestSuggestNothingOnHealthyAccounts(t *testing.T) {
	if got := SuggestAdjustments(sampleFiscalYear()); len(got) != 0 {
		// 2.95M / 8.5M = 34.7%, below the 40% trigger.
		t.Errorf("expected no suggestions, got %d", len(got))
	}
}
