// Package llm provides the completion gateway used to turn resume documents into structured data.
// Three interchangeable providers (Grok, Gemini, Anthropic) share one CompletionProvider contract.
package llm

import (
	"fmt"
	"strings"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGrok is xAI Grok, reached through its OpenAI-compatible API
	ProviderGrok Provider = "grok"
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderAnthropic is the Anthropic/Claude provider
	ProviderAnthropic Provider = "anthropic"
)

// DefaultProvider is used when a request does not name a provider
const DefaultProvider = ProviderAnthropic

// Providers lists every supported provider
var Providers = []Provider{ProviderGrok, ProviderGemini, ProviderAnthropic}

// ParseProvider resolves a provider name. Empty selects DefaultProvider.
func ParseProvider(name string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultProvider, nil
	}
	for _, p := range Providers {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("unsupported provider %q (expected grok, gemini or anthropic)", name)
}

// Options tunes a single completion call. Zero values fall back to the provider defaults.
type Options struct {
	Model       string
	Temperature *float64
	MaxTokens   int
}

// Temp is a helper for setting Options.Temperature inline
func Temp(t float64) *float64 {
	return &t
}

// DefaultOptions returns the model, temperature and token ceiling used for a provider
func DefaultOptions(p Provider) Options {
	switch p {
	case ProviderGrok:
		return Options{Model: "grok-beta", Temperature: Temp(0.1), MaxTokens: 16000}
	case ProviderGemini:
		return Options{Model: "gemini-2.5-flash", Temperature: Temp(0.1), MaxTokens: 16000}
	case ProviderAnthropic:
		return Options{Model: "claude-haiku-4-5", Temperature: Temp(0), MaxTokens: 4096}
	default:
		return Options{}
	}
}

// WithDefaults fills unset fields from the provider defaults
func (o Options) WithDefaults(p Provider) Options {
	d := DefaultOptions(p)
	if o.Model == "" {
		o.Model = d.Model
	}
	if o.Temperature == nil {
		o.Temperature = d.Temperature
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = d.MaxTokens
	}
	return o
}

// Credentials holds the API keys for every provider
type Credentials struct {
	GrokAPIKey      string
	GeminiAPIKey    string
	AnthropicAPIKey string
	// Models overrides the default model per provider
	Models map[Provider]string
}

// keyFor returns the API key and its environment variable name for a provider
func (c Credentials) keyFor(p Provider) (string, string) {
	switch p {
	case ProviderGrok:
		return c.GrokAPIKey, "GROK_API_KEY"
	case ProviderGemini:
		return c.GeminiAPIKey, "GEMINI_API_KEY"
	case ProviderAnthropic:
		return c.AnthropicAPIKey, "ANTHROPIC_API_KEY"
	default:
		return "", ""
	}
}
