// Package scenario exposes the montage presets and the standalone stress
// endpoint (stress suite + sensitivity grid without a full pipeline run).
package scenario

import (
	"encoding/json"
	"fmt"
	"net/http"

	"lbo_analyzer/pkg/core/debt"
	"lbo_analyzer/pkg/core/normalize"
	"lbo_analyzer/pkg/core/projection"
	coreScenario "lbo_analyzer/pkg/core/scenario"
	"lbo_analyzer/pkg/core/stress"
	"lbo_analyzer/pkg/models"
)

type StressRequest struct {
	Fiscal      models.FiscalYearData  `json:"fiscal_year"`
	Structure   *debt.Structure        `json:"structure"`
	Adjustments []normalize.Adjustment `json:"adjustments,omitempty"`
}

type StressResponse struct {
	Results     []stress.Result `json:"stress_tests"`
	Sensitivity stress.Matrix   `json:"sensitivity"`
}

// HandlePresets returns the canonical montage presets.
func HandlePresets(w http.ResponseWriter, r *http.Request) {
	// CORS
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(coreScenario.Presets())
}

// HandleStress runs the stress suite and the DSCR sensitivity grid on one
// baseline year.
func HandleStress(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req StressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Structure == nil {
		http.Error(w, "Aucune structure de financement fournie", http.StatusBadRequest)
		return
	}
	if err := req.Structure.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fmt.Printf("[SCENARIO] Stress: %s, dette %.0f\n", req.Fiscal.CompanyName, req.Structure.TotalDebt())

	ca := req.Fiscal.IncomeStatement.Revenues.NetRevenue
	norm := normalize.Normalize(&req.Fiscal, req.Adjustments,
		projection.DefaultTaxRate, ca*projection.DefaultCapexPct/100)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(StressResponse{
		Results:     stress.RunAll(&req.Fiscal, req.Structure, norm),
		Sensitivity: stress.SensitivityMatrix(&req.Fiscal, req.Structure, norm, "dscr_min"),
	})
}
