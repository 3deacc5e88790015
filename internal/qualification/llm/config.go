// internal/qualification/llm/config.go
package llm

import (
	"time"

	"lead-qualifier/internal/common/config"
)

type Config struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	ClampScore  bool
}

func LoadConfig(appConfig *config.Config) *Config {
	genai := appConfig.APIs.GenAI

	cfg := &Config{
		Provider:    genai.Provider,
		BaseURL:     genai.BaseURL,
		APIKey:      genai.APIKey,
		Model:       genai.Model,
		Timeout:     config.GetDuration(genai.Timeout),
		MaxTokens:   genai.MaxTokens,
		Temperature: genai.Temperature,
		ClampScore:  appConfig.Qualification.ClampModelScore,
	}

	if cfg.Provider == "" {
		cfg.Provider = ProviderNone
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	if cfg.Provider == ProviderOllama && cfg.Model == "" {
		cfg.Model = "llama3"
	}
	return cfg
}
