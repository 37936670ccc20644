// Package conf holds the user-facing configuration surface: default
// model and temperature, the system prompt, per-provider credentials and
// endpoints, and the model visibility map.
package conf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/youruser/chatdoc/internal/utils"
)

const configFileName = "chatdocConfig.json"

type Config struct {
	DefaultModel       string          `json:"default_model"`
	DefaultTemperature float64         `json:"default_temperature"`
	SystemPrompt       string          `json:"system_prompt"`
	OllamaURL          string          `json:"ollama_url"`
	OpenAIAPIKey       string          `json:"openai_api_key"`
	AnthropicAPIKey    string          `json:"anthropic_api_key"`
	GeminiAPIKey       string          `json:"gemini_api_key"`
	AzureAPIKey        string          `json:"azure_api_key"`
	AzureEndpoint      string          `json:"azure_endpoint"`
	AzureDeployments   []string        `json:"azure_deployments"`
	ModelVisibility    map[string]bool `json:"model_visibility"`
}

var Default = Config{
	DefaultModel:       "llama3",
	DefaultTemperature: 1.0,
	OllamaURL:          "http://localhost:11434",
}

// Load reads the config file from the chatdoc config dir, creating it
// with defaults on first use.
func Load() (Config, error) {
	configDir, err := utils.GetConfigDir()
	if err != nil {
		return Config{}, fmt.Errorf("failed to find config dir: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return Config{}, fmt.Errorf("failed to create config dir: %w", err)
	}
	configPath := filepath.Join(configDir, configFileName)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := writeConfigFile(configPath, Default); err != nil {
			return Config{}, fmt.Errorf("failed to create default config: %w", err)
		}
	}
	return readConfigFile(configPath)
}

func writeConfigFile(path string, cfg Config) error {
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func readConfigFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config '%v': %w", configFileName, err)
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config '%v': %w", configFileName, err)
	}
	return cfg, nil
}

// The credential getters fall back to the conventional environment
// variables when the config field is empty.

func (c Config) OpenAIKey() string {
	return orEnv(c.OpenAIAPIKey, "OPENAI_API_KEY")
}

func (c Config) AnthropicKey() string {
	return orEnv(c.AnthropicAPIKey, "ANTHROPIC_API_KEY")
}

func (c Config) GeminiKey() string {
	return orEnv(c.GeminiAPIKey, "GEMINI_API_KEY")
}

func (c Config) AzureKey() string {
	return orEnv(c.AzureAPIKey, "AZURE_OPENAI_API_KEY")
}

func orEnv(configured, envKey string) string {
	if configured != "" {
		return configured
	}
	return os.Getenv(envKey)
}

// IsVisible collapses the visibility tri-state: only an explicit false
// hides a model, absent keys mean visible.
func (c Config) IsVisible(modelID string) bool {
	visible, ok := c.ModelVisibility[modelID]
	return !ok || visible
}
