// Package domain contains the core business entities and value objects.
// These structs are framework-agnostic and represent the heart of the application.
package domain

import "fmt"

// Provider selects which remote LLM service handles an action.
type Provider string

const (
	// ProviderGemini is Google Gemini (generateContent API).
	ProviderGemini Provider = "gemini"

	// ProviderGroq is Groq's OpenAI-compatible chat completions API.
	ProviderGroq Provider = "groq"
)

// DefaultProvider is used when a request does not name one.
const DefaultProvider = ProviderGemini

// Providers lists every supported provider in a stable order.
func Providers() []Provider {
	return []Provider{ProviderGemini, ProviderGroq}
}

// IsValid reports whether p is one of the supported providers.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderGemini, ProviderGroq:
		return true
	default:
		return false
	}
}

// DisplayName returns the human-readable provider name used in messages.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderGemini:
		return "Gemini"
	case ProviderGroq:
		return "Groq"
	default:
		return string(p)
	}
}

// ParseProvider converts a caller-supplied name into a Provider.
// An empty name yields DefaultProvider.
func ParseProvider(name string) (Provider, error) {
	if name == "" {
		return DefaultProvider, nil
	}
	p := Provider(name)
	if !p.IsValid() {
		return "", &ValidationError{Field: "provider", Message: fmt.Sprintf("unknown provider %q, must be one of: gemini, groq", name)}
	}
	return p, nil
}

// ProviderSettings describes how to reach one provider.
type ProviderSettings struct {
	// APIKey is the credential. Empty means the provider is disabled.
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// BaseURL is the base endpoint for the provider's API.
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// Model overrides the provider-specific default model.
	Model string `json:"model" mapstructure:"model"`

	// TimeoutSeconds bounds a single HTTP round trip.
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// Enabled reports whether a credential was configured.
func (s ProviderSettings) Enabled() bool {
	return s.APIKey != ""
}
