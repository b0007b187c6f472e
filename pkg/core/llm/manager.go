package llm

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// TaskConfig binds one analyzer task ("extraction", "commentary") to a
// provider and model.
type TaskConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	Description string `yaml:"description"`
}

// Config is the config/models.yaml shape.
type Config struct {
	ActiveProvider string                `yaml:"active_provider"`
	Tasks          map[string]TaskConfig `yaml:"tasks"`
}

// LoadConfig reads and parses a models.yaml file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read llm config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse llm config: %w", err)
	}
	return cfg, nil
}

// Manager routes tasks to providers. The provider set is fixed; the config
// decides which one serves which task.
type Manager struct {
	config    Config
	providers map[string]Provider
}

func NewManager(config Config) *Manager {
	return &Manager{
		config: config,
		providers: map[string]Provider{
			"gemini":   &GeminiProvider{},
			"deepseek": &DeepSeekProvider{},
			"qwen":     &QwenProvider{},
		},
	}
}

// ProviderFor resolves the provider for a task: task-specific override
// first, then the global active provider, then gemini.
func (m *Manager) ProviderFor(task string) Provider {
	if taskCfg, ok := m.config.Tasks[task]; ok && taskCfg.Provider != "" {
		if p, ok := m.providers[taskCfg.Provider]; ok {
			return p
		}
	}
	if p, ok := m.providers[m.config.ActiveProvider]; ok {
		return p
	}
	return m.providers["gemini"]
}

// ProviderByName retrieves a provider directly, nil when unknown.
func (m *Manager) ProviderByName(name string) Provider {
	return m.providers[name]
}

// ProviderNames lists the registered providers.
func (m *Manager) ProviderNames() []string {
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	return names
}

// Execute runs a prompt through the provider configured for the task,
// injecting the task's model into the options.
func (m *Manager) Execute(ctx context.Context, task string, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	provider := m.ProviderFor(task)

	if options == nil {
		options = map[string]interface{}{}
	}
	if _, ok := options["model"]; !ok {
		if taskCfg, ok := m.config.Tasks[task]; ok && taskCfg.Model != "" {
			options["model"] = taskCfg.Model
		}
	}

	fmt.Printf("[LLM] Task %s via %s\n", task, provider.Name())
	return provider.GenerateResponse(ctx, prompt, systemPrompt, options)
}

// SetActiveProvider switches the global provider at runtime.
func (m *Manager) SetActiveProvider(name string) error {
	if _, ok := m.providers[name]; !ok {
		return fmt.Errorf("provider %s not found", name)
	}
	m.config.ActiveProvider = name
	fmt.Printf("[LLM] Global provider set to: %s\n", name)
	return nil
}

// ActiveProvider returns the current global provider name.
func (m *Manager) ActiveProvider() string {
	return m.config.ActiveProvider
}
