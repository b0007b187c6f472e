package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"lbo_analyzer/pkg/api/analysis"
	apiConfig "lbo_analyzer/pkg/api/config"
	apiScenario "lbo_analyzer/pkg/api/scenario"
	"lbo_analyzer/pkg/api/variant"
	"lbo_analyzer/pkg/core/advisor"
	"lbo_analyzer/pkg/core/llm"
	"lbo_analyzer/pkg/core/pipeline"
	"lbo_analyzer/pkg/core/store"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	ctx := context.Background()

	// Initialize provider manager from config
	cfg, err := llm.LoadConfig("config/models.yaml")
	if err != nil {
		fmt.Printf("[WARNING] %v. Using defaults (gemini).\n", err)
		cfg = llm.Config{ActiveProvider: "gemini"}
	}
	mgr := llm.NewManager(cfg)

	// Database is optional: without it the variant store falls back to
	// files and analysis persistence is skipped.
	if err := store.InitDB(ctx); err != nil {
		fmt.Printf("[WARNING] Database unavailable: %v. Running file-only.\n", err)
	} else {
		defer store.CloseDB()
	}

	orch := pipeline.New()
	if store.GetPool() != nil {
		orch.SetRepository(store.NewAnalysisRepo())
	}
	if adv, err := advisor.New(ctx); err != nil {
		fmt.Printf("[WARNING] Advisor unavailable: %v. Reports will have no commentary.\n", err)
	} else {
		orch.SetCommentator(adv)
		defer adv.Close()
	}

	// Analysis endpoints
	analysis.InitHandler(orch, mgr)
	http.HandleFunc("/api/analysis/run", analysis.HandleRun)
	http.HandleFunc("/api/analysis/report", analysis.HandleReport)
	http.HandleFunc("/api/analysis/extract", analysis.HandleExtract)

	// Scenario endpoints
	http.HandleFunc("/api/scenarios/presets", apiScenario.HandlePresets)
	http.HandleFunc("/api/scenarios/stress", apiScenario.HandleStress)

	// Variant endpoints
	variant.InitHandler(store.NewVariantStore(store.GetPool(), ""))
	http.HandleFunc("/api/variants/save", variant.HandleSave)
	http.HandleFunc("/api/variants/list", variant.HandleList)
	http.HandleFunc("/api/variants/get", variant.HandleGet)
	http.HandleFunc("/api/variants/compare", variant.HandleCompare)
	http.HandleFunc("/api/variants/delete", variant.HandleDelete)

	// Config endpoints
	configHandler := apiConfig.NewHandler(mgr, cfg.Tasks)
	http.HandleFunc("/api/config", configHandler.HandleConfig)
	http.HandleFunc("/api/config/switch", configHandler.HandleSwitch)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	fmt.Printf("API server starting on :%s...\n", port)
	fmt.Println("  - POST   /api/analysis/run")
	fmt.Println("  - POST   /api/analysis/report")
	fmt.Println("  - POST   /api/analysis/extract")
	fmt.Println("  - GET    /api/scenarios/presets")
	fmt.Println("  - POST   /api/scenarios/stress")
	fmt.Println("  - POST   /api/variants/save")
	fmt.Println("  - GET    /api/variants/list")
	fmt.Println("  - GET    /api/variants/get")
	fmt.Println("  - POST   /api/variants/compare")
	fmt.Println("  - DELETE /api/variants/delete")
	fmt.Println("  - GET    /api/config")
	fmt.Println("  - POST   /api/config/switch")

	// Use log.Fatal-style exit so a busy port is visible in the console
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}
