// Package advisor writes the analyst commentary appended to reports: a short
// French credit-committee note generated from the analysis figures. The
// pipeline treats it as best effort, an unavailable model never blocks an
// analysis.
package advisor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const systemPrompt = `Tu es un analyste crédit senior dans une banque d'affaires française, ` +
	`spécialiste du financement d'acquisitions de PME (LBO). Tu rédiges des notes de ` +
	`synthèse pour le comité de crédit: factuelles, prudentes, en français, sans ` +
	`reformuler les chiffres déjà fournis en tableau. Deux à trois paragraphes maximum.`

// Advisor holds the Gemini client used for commentary generation.
type Advisor struct {
	client    *genai.Client
	modelName string
}

// New creates an advisor from the GEMINI_API_KEY environment variable.
func New(ctx context.Context) (*Advisor, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %v", err)
	}

	return &Advisor{
		client:    client,
		modelName: "gemini-2.0-flash-exp",
	}, nil
}

// Close releases the underlying client.
func (a *Advisor) Close() error {
	return a.client.Close()
}

// Brief carries the figures the commentary is written from. Amounts are in
// euros, the DSCR fields are ratios, the score is on 100.
type Brief struct {
	CompanyName  string
	Verdict      string
	GlobalScore  float64
	EBITDABank   float64
	CFADS        float64
	DSCRYear1    float64
	MinDSCR      float64
	Leverage     float64
	Health       string
	DealBreakers []string
	Warnings     []string
}

// Commentary generates the analyst note for a completed analysis.
func (a *Advisor) Commentary(ctx context.Context, brief Brief) (string, error) {
	model := a.client.GenerativeModel(a.modelName)
	model.SetTemperature(0.7)

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(brief)))
	if err != nil {
		return "", fmt.Errorf("commentary generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty commentary response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// buildPrompt lays the brief out as the task block under the system persona.
// The legacy SDK takes a single prompt, so the persona is concatenated.
func buildPrompt(brief Brief) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nTask: Rédige la note d'analyste pour le dossier suivant.\n\n", systemPrompt)
	fmt.Fprintf(&b, "Société: %s\n", brief.CompanyName)
	fmt.Fprintf(&b, "Verdict du moteur de décision: %s (score global %.1f/100)\n", brief.Verdict, brief.GlobalScore)
	fmt.Fprintf(&b, "EBITDA retraité (banque): %.0f EUR\n", brief.EBITDABank)
	fmt.Fprintf(&b, "CFADS année 1: %.0f EUR\n", brief.CFADS)
	fmt.Fprintf(&b, "DSCR année 1: %.2f / DSCR minimum sur l'horizon: %.2f\n", brief.DSCRYear1, brief.MinDSCR)
	fmt.Fprintf(&b, "Levier (dette/EBITDA): %.2fx\n", brief.Leverage)
	if brief.Health != "" {
		fmt.Fprintf(&b, "Trajectoire historique: %s\n", brief.Health)
	}

	b.WriteString("\nPoints bloquants:\n")
	if len(brief.DealBreakers) == 0 {
		b.WriteString("- Aucun\n")
	}
	for _, d := range brief.DealBreakers {
		fmt.Fprintf(&b, "- %s\n", d)
	}

	b.WriteString("\nPoints de vigilance:\n")
	if len(brief.Warnings) == 0 {
		b.WriteString("- Aucun\n")
	}
	for _, w := range brief.Warnings {
		fmt.Fprintf(&b, "- %s\n", w)
	}

	b.WriteString("\nConclus par une recommandation opérationnelle pour le comité.")
	return b.String()
}
