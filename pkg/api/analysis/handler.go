// Package analysis exposes the pipeline over HTTP: full runs, report
// renditions and document extraction.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lbo_analyzer/pkg/core/ingest"
	"lbo_analyzer/pkg/core/llm"
	"lbo_analyzer/pkg/core/pipeline"
	"lbo_analyzer/pkg/core/report"
	"lbo_analyzer/pkg/models"
)

var runner *pipeline.Orchestrator
var extractor *ingest.Extractor

// InitHandler wires the shared orchestrator and builds the extraction ladder
// from the provider configured for the "extraction" task. A nil manager
// leaves the ladder native-only.
func InitHandler(o *pipeline.Orchestrator, mgr *llm.Manager) {
	runner = o
	if mgr != nil {
		extractor = ingest.NewExtractor(mgr.ProviderFor("extraction"))
	} else {
		extractor = ingest.NewExtractor(nil)
	}
}

// ReportRequest is an analysis request plus the rendition choice.
type ReportRequest struct {
	pipeline.Request
	Format      string `json:"format"`      // "md" (default) or "html"
	Perspective string `json:"perspective"` // "banquier" (default) or "investisseur"
}

type ReportResponse struct {
	Format      string    `json:"format"`
	Perspective string    `json:"perspective"`
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generated_at"`
}

type ExtractRequest struct {
	Content string `json:"content"`
	Format  string `json:"format,omitempty"` // "json", "html" or empty to sniff
}

type ExtractResponse struct {
	Data   *models.FiscalYearData `json:"fiscal_year"`
	Report *ingest.Report         `json:"report"`
}

// HandleRun executes the full pipeline and returns the aggregated result.
func HandleRun(w http.ResponseWriter, r *http.Request) {
	// CORS
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fmt.Printf("[ANALYSIS] Requête: %s (%d exercice(s))\n", req.CompanyName, len(req.Fiscal))

	res, err := runner.Run(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// HandleReport runs the analysis and returns one report rendition.
func HandleReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	format := strings.ToLower(req.Format)
	if format == "" {
		format = "md"
	}
	if format != "md" && format != "html" {
		http.Error(w, fmt.Sprintf("Format inconnu: %s (attendu: md ou html)", req.Format), http.StatusBadRequest)
		return
	}
	perspective := strings.ToLower(req.Perspective)
	if perspective == "" {
		perspective = "banquier"
	}
	if perspective != "banquier" && perspective != "investisseur" {
		http.Error(w, fmt.Sprintf("Perspective inconnue: %s (attendu: banquier ou investisseur)", req.Perspective), http.StatusBadRequest)
		return
	}
	fmt.Printf("[ANALYSIS] Rapport %s/%s pour %s\n", perspective, format, req.CompanyName)

	res, err := runner.Run(r.Context(), req.Request)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var md string
	if perspective == "investisseur" {
		md = report.BuildInvestorReport(res.ReportInput())
	} else {
		md = report.BuildBankerReport(res.ReportInput())
	}

	content := md
	if format == "html" {
		html, err := report.RenderHTML(md)
		if err != nil {
			http.Error(w, fmt.Sprintf("Rendu HTML échoué: %v", err), http.StatusInternalServerError)
			return
		}
		content = html
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ReportResponse{
		Format:      format,
		Perspective: perspective,
		Content:     content,
		GeneratedAt: res.GeneratedAt,
	})
}

// HandleExtract runs the extraction ladder on an uploaded document.
func HandleExtract(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		http.Error(w, "Document vide", http.StatusBadRequest)
		return
	}
	fmt.Printf("[ANALYSIS] Extraction: %d octets (format %q)\n", len(req.Content), req.Format)

	// The AI rung can be slow; bound it.
	ctx, cancel := context.WithTimeout(r.Context(), 120*time.Second)
	defer cancel()

	data, rep, err := extractor.ExtractDocument(ctx, []byte(req.Content), req.Format)
	if err != nil {
		fmt.Printf("[ANALYSIS] Extraction échouée: %v\n", err)
		http.Error(w, fmt.Sprintf("Extraction échouée: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ExtractResponse{Data: data, Report: rep})
}
