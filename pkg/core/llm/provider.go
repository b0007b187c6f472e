// Package llm routes the analyzer's AI calls (document extraction, analyst
// commentary) to a configured model provider. Providers share one contract;
// the Manager picks one per task from config/models.yaml.
package llm

import "context"

// Provider is the contract every model backend implements.
//
// Options are provider-hints: "model" overrides the configured model,
// "api_key" overrides the environment, "response_format" with
// {"type": "json_object"} requests strict JSON output where the backend
// supports it.
type Provider interface {
	Name() string
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
}

// JSONFormat is the options value requesting machine-parseable output.
func JSONFormat() map[string]interface{} {
	return map[string]interface{}{
		"response_format": map[string]interface{}{"type": "json_object"},
	}
}
