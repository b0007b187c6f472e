package store

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lbo_analyzer/pkg/core/debt"
	"lbo_analyzer/pkg/core/decision"
	"lbo_analyzer/pkg/models"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func baseVariant(name, company string, equity float64) *Variant {
	return &Variant{
		Name:        name,
		CompanyName: company,
		Description: "Montage initial 70% dette",
		Structure: &debt.Structure{
			AcquisitionPrice: 5_000_000,
			Tranches: []debt.Tranche{
				{Name: "Dette senior", Amount: 3_000_000, InterestRate: 0.045, DurationYears: 7, Amortization: debt.AmortizationConstant},
			},
			EquityAmount: equity,
		},
		Metrics: map[string]models.Float{
			"dscr_min":   0.83,
			"leverage":   3.3,
			"margin":     12.4,
			"equity_pct": 30.0,
		},
		Tags: []string{"initial"},
	}
}

func TestNewVariantID(t *testing.T) {
	id := NewVariantID("ACME SARL")

	if !strings.HasPrefix(id, "acme_sarl_") {
		t.Errorf("expected lowercased underscore prefix, got %q", id)
	}
	if strings.Contains(id, " ") {
		t.Errorf("expected no spaces in ID, got %q", id)
	}
	parts := strings.Split(id, "_")
	if len(parts[len(parts)-1]) != 8 {
		t.Errorf("expected 8-char uuid suffix, got %q", id)
	}
}

func TestSaveAndLoadVariant(t *testing.T) {
	ctx := context.Background()
	s := NewVariantStore(nil, t.TempDir())

	v := baseVariant("Variante Base", "ACME SARL", 1_500_000)
	v.Metrics["payback"] = models.Float(math.Inf(1))

	if err := s.Save(ctx, v); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if v.ID == "" {
		t.Fatal("expected a generated ID")
	}
	if v.Status != StatusDraft {
		t.Errorf("expected default draft status, got %q", v.Status)
	}
	if v.CreatedAt.IsZero() || v.ModifiedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	loaded, err := s.Load(ctx, v.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected variant, got nil")
	}
	if loaded.Name != "Variante Base" || loaded.CompanyName != "ACME SARL" {
		t.Errorf("expected header to survive, got %q / %q", loaded.Name, loaded.CompanyName)
	}
	if got := float64(loaded.Metrics["dscr_min"]); !approx(got, 0.83, 1e-9) {
		t.Errorf("expected dscr_min 0.83, got %v", got)
	}
	if !math.IsInf(float64(loaded.Metrics["payback"]), 1) {
		t.Errorf("expected infinite payback to survive the round trip, got %v", loaded.Metrics["payback"])
	}
	if loaded.Structure == nil || loaded.Structure.TotalDebt() != 3_000_000 {
		t.Error("expected structure to survive")
	}
}

func TestSavePreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := NewVariantStore(nil, t.TempDir())

	v := baseVariant("Variante Base", "ACME SARL", 1_500_000)
	if err := s.Save(ctx, v); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	created := v.CreatedAt

	v.Name = "Variante Révisée"
	if err := s.Save(ctx, v); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	loaded, err := s.Load(ctx, v.ID)
	if err != nil || loaded == nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !loaded.CreatedAt.Equal(created) {
		t.Errorf("expected created_at to be preserved, got %v vs %v", loaded.CreatedAt, created)
	}
	if loaded.Name != "Variante Révisée" {
		t.Errorf("expected updated name, got %q", loaded.Name)
	}
	if loaded.ModifiedAt.Before(created) {
		t.Error("expected modified_at to move forward")
	}
}

func TestLoadMissingVariant(t *testing.T) {
	s := NewVariantStore(nil, t.TempDir())

	v, err := s.Load(context.Background(), "acme_sarl_20240101_000000_deadbeef")
	if err != nil {
		t.Fatalf("expected nil error on miss, got %v", err)
	}
	if v != nil {
		t.Errorf("expected nil variant on miss, got %+v", v)
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	s := NewVariantStore(nil, t.TempDir())

	v1 := baseVariant("Variante Base", "ACME SARL", 1_500_000)
	if err := s.Save(ctx, v1); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	v2 := baseVariant("Variante Optimisée", "ACME SARL", 2_000_000)
	v2.Status = StatusValidated
	v2.Tags = []string{"optimise"}
	if err := s.Save(ctx, v2); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	v3 := baseVariant("Autre Dossier", "TRANSMISSIONS SAS", 1_000_000)
	if err := s.Save(ctx, v3); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	all, err := s.List(ctx, VariantFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(all))
	}
	if all[0].Name != "Autre Dossier" {
		t.Errorf("expected newest-modified first, got %q", all[0].Name)
	}

	acme, err := s.List(ctx, VariantFilter{CompanyName: "ACME SARL"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(acme) != 2 {
		t.Errorf("expected 2 ACME variants, got %d", len(acme))
	}

	validated, err := s.List(ctx, VariantFilter{Status: StatusValidated})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(validated) != 1 || validated[0].Name != "Variante Optimisée" {
		t.Errorf("expected the validated variant, got %v", validated)
	}

	tagged, err := s.List(ctx, VariantFilter{Tag: "optimise"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tagged) != 1 {
		t.Errorf("expected 1 tagged variant, got %d", len(tagged))
	}
}

func TestListSkipsCorruptFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewVariantStore(nil, dir)

	if err := s.Save(ctx, baseVariant("Variante Base", "ACME SARL", 1_500_000)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "corrompu.json"), []byte("{pas du json"), 0644); err != nil {
		t.Fatalf("fixture write failed: %v", err)
	}

	variants, err := s.List(ctx, VariantFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(variants) != 1 {
		t.Errorf("expected corrupt file to be skipped, got %d variants", len(variants))
	}
}

func TestDeleteVariant(t *testing.T) {
	ctx := context.Background()
	s := NewVariantStore(nil, t.TempDir())

	v := baseVariant("Variante Base", "ACME SARL", 1_500_000)
	if err := s.Save(ctx, v); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	deleted, err := s.Delete(ctx, v.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !deleted {
		t.Error("expected deletion to report true")
	}

	loaded, err := s.Load(ctx, v.ID)
	if err != nil || loaded != nil {
		t.Errorf("expected variant to be gone, got %v / %v", loaded, err)
	}

	deleted, err = s.Delete(ctx, v.ID)
	if err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if deleted {
		t.Error("expected second deletion to report false")
	}
}

func TestCompareVariants(t *testing.T) {
	ctx := context.Background()
	s := NewVariantStore(nil, t.TempDir())

	a := baseVariant("Variante Base", "ACME SARL", 1_500_000)
	if err := s.Save(ctx, a); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	b := baseVariant("Variante Optimisée", "ACME SARL", 2_000_000)
	b.Metrics["dscr_min"] = 1.15
	b.Decision = &decision.AcquisitionDecision{Decision: decision.Watch, OverallScore: 75}
	if err := s.Save(ctx, b); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	cmp, err := s.Compare(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if cmp.A.ID != a.ID || cmp.B.ID != b.ID {
		t.Error("expected summaries to carry the IDs")
	}
	if cmp.A.Decision != "N/A" || cmp.B.Decision != "watch" {
		t.Errorf("expected decisions N/A / watch, got %q / %q", cmp.A.Decision, cmp.B.Decision)
	}

	var dscrDelta, equityDelta float64
	for _, m := range cmp.Metrics {
		if m.Metric == "dscr_min" {
			dscrDelta = float64(m.Delta)
		}
	}
	for _, m := range cmp.Structure {
		if m.Metric == "equity_amount" {
			equityDelta = float64(m.Delta)
		}
	}
	if !approx(dscrDelta, 0.32, 1e-9) {
		t.Errorf("expected dscr_min delta 0.32, got %v", dscrDelta)
	}
	if equityDelta != 500_000 {
		t.Errorf("expected equity delta 500000, got %v", equityDelta)
	}
}

func TestCompareMissingVariant(t *testing.T) {
	ctx := context.Background()
	s := NewVariantStore(nil, t.TempDir())

	a := baseVariant("Variante Base", "ACME SARL", 1_500_000)
	if err := s.Save(ctx, a); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := s.Compare(ctx, a.ID, "inexistante"); err == nil {
		t.Error("expected error for missing variant")
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewVariantStore(nil, filepath.Join(dir, "variants"))

	a := baseVariant("Variante Base", "ACME SARL", 1_500_000)
	b := baseVariant("Variante Optimisée", "ACME SARL", 2_000_000)
	for _, v := range []*Variant{a, b} {
		if err := s.Save(ctx, v); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	exportPath := filepath.Join(dir, "exports", "montages.json")
	if err := s.Export(ctx, []string{a.ID, b.ID}, exportPath); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	for _, id := range []string{a.ID, b.ID} {
		if _, err := s.Delete(ctx, id); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
	}

	count, err := s.Import(ctx, exportPath)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 imported variants, got %d", count)
	}

	variants, err := s.List(ctx, VariantFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(variants) != 2 {
		t.Fatalf("expected 2 variants after import, got %d", len(variants))
	}

	// A second import hits existing IDs and regenerates them.
	count, err = s.Import(ctx, exportPath)
	if err != nil {
		t.Fatalf("second Import failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 re-imported variants, got %d", count)
	}
	variants, _ = s.List(ctx, VariantFilter{})
	if len(variants) != 4 {
		t.Errorf("expected 4 variants after duplicate import, got %d", len(variants))
	}
}

func TestExportNoVariants(t *testing.T) {
	s := NewVariantStore(nil, t.TempDir())
	err := s.Export(context.Background(), []string{"inexistante"}, filepath.Join(t.TempDir(), "out.json"))
	if err == nil {
		t.Error("expected error when nothing to export")
	}
}
