// internal/qualification/llm/generator.go
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	apperrors "lead-qualifier/internal/common/errors"
	apphttp "lead-qualifier/internal/common/http"
)

const (
	ProviderGenAI  = "genai"
	ProviderOllama = "ollama"
	ProviderNone   = "none"
)

// Generator turns a prompt into model text. Implementations make a single
// attempt; the rule engine is the recovery path.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// GenAIGenerator calls the platform's text generation endpoint.
type GenAIGenerator struct {
	baseURL     string
	apiKey      string
	maxTokens   int
	temperature float64
	client      *apphttp.Client
}

func NewGenAIGenerator(cfg *Config) *GenAIGenerator {
	return &GenAIGenerator{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		client:      apphttp.NewClient(cfg.Timeout),
	}
}

func (g *GenAIGenerator) Name() string { return ProviderGenAI }

func (g *GenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"prompt":      prompt,
		"max_tokens":  g.maxTokens,
		"temperature": g.temperature,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/ai/generate", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewModelServiceError(ProviderGenAI, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.DoWithContext(ctx, req)
	if err != nil {
		return "", classify(ctx, ProviderGenAI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewModelServiceError(ProviderGenAI, fmt.Errorf("status %d", resp.StatusCode))
	}

	var apiResponse struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", apperrors.NewModelServiceError(ProviderGenAI, fmt.Errorf("decode error: %w", err))
	}
	return apiResponse.Text, nil
}

// ChatModelGenerator adapts any langchaingo model.
type ChatModelGenerator struct {
	model       llms.Model
	name        string
	maxTokens   int
	temperature float64
}

func NewChatModelGenerator(name string, model llms.Model, maxTokens int, temperature float64) *ChatModelGenerator {
	return &ChatModelGenerator{model: model, name: name, maxTokens: maxTokens, temperature: temperature}
}

// NewOllamaGenerator connects to a local Ollama server.
func NewOllamaGenerator(cfg *Config) (*ChatModelGenerator, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	model, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return NewChatModelGenerator(ProviderOllama, model, cfg.MaxTokens, cfg.Temperature), nil
}

func (g *ChatModelGenerator) Name() string { return g.name }

func (g *ChatModelGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var opts []llms.CallOption
	if g.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(g.maxTokens))
	}
	opts = append(opts, llms.WithTemperature(g.temperature))

	text, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt, opts...)
	if err != nil {
		return "", classify(ctx, g.name, err)
	}
	return text, nil
}

func classify(ctx context.Context, provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewModelTimeoutError(provider, err)
	}
	return apperrors.NewModelServiceError(provider, err)
}

// timed wraps a generator call for latency reporting.
func timed(fn func() (string, error)) (string, time.Duration, error) {
	start := time.Now()
	text, err := fn()
	return text, time.Since(start), err
}
