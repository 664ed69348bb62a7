package ai

import (
	"errors"

	"github.com/t3clone/t3chat/internal/profile"
)

const (
	ProviderOpenAI     = "openai"
	ProviderDeepSeek   = "deepseek"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
	ProviderOllama     = "ollama"
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	// DefaultModel answers chats that do not name a model.
	DefaultModel string
	// UtilityModel generates titles, tags, the chat index and autocomplete.
	UtilityModel string

	// Providers is keyed by provider name; only configured providers are present.
	Providers map[string]LLMConfig
}

// LLMConfig represents the connection to one OpenAI-compatible provider.
type LLMConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 4096
	Temperature float32 // default: 0.7
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled:      p.AIEnabled,
		DefaultModel: p.AIDefaultModel,
		UtilityModel: p.AIUtilityModel,
		Providers:    map[string]LLMConfig{},
	}
	if !cfg.Enabled {
		return cfg
	}

	add := func(provider, apiKey, baseURL string) {
		cfg.Providers[provider] = LLMConfig{
			Provider:    provider,
			APIKey:      apiKey,
			BaseURL:     baseURL,
			MaxTokens:   4096,
			Temperature: 0.7,
		}
	}
	if p.AIOpenAIAPIKey != "" {
		add(ProviderOpenAI, p.AIOpenAIAPIKey, p.AIOpenAIBaseURL)
	}
	if p.AIDeepSeekAPIKey != "" {
		add(ProviderDeepSeek, p.AIDeepSeekAPIKey, p.AIDeepSeekBaseURL)
	}
	if p.AIOpenRouterAPIKey != "" {
		add(ProviderOpenRouter, p.AIOpenRouterAPIKey, p.AIOpenRouterBaseURL)
	}
	if p.AIGeminiAPIKey != "" {
		add(ProviderGemini, p.AIGeminiAPIKey, p.AIGeminiBaseURL)
	}
	if p.AIOllamaBaseURL != "" {
		// Ollama ignores the key but the OpenAI client requires one.
		add(ProviderOllama, "ollama", p.AIOllamaBaseURL)
	}
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Providers) == 0 {
		return errors.New("at least one LLM provider must be configured")
	}
	if c.DefaultModel == "" {
		return errors.New("default model is required")
	}
	for name, p := range c.Providers {
		if p.BaseURL == "" {
			return errors.New("base URL is required for provider " + name)
		}
		if name != ProviderOllama && p.APIKey == "" {
			return errors.New("API key is required for provider " + name)
		}
	}
	return nil
}
