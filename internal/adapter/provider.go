// Package adapter provides implementations for external AI provider integrations.
// It uses the Adapter pattern to abstract provider-specific APIs behind a common interface.
package adapter

import (
	"context"

	"github.com/careerbridge/careerbridge-api/internal/domain"
)

// DefaultTemperature is used when a GenerateRequest leaves Temperature unset.
const DefaultTemperature = 0.7

// GenerateRequest is one prompt sent to a provider.
type GenerateRequest struct {
	// Prompt is the full prompt text.
	Prompt string

	// Model overrides the adapter's default model. Optional.
	Model string

	// Temperature controls randomness. Nil means DefaultTemperature.
	Temperature *float64

	// JSONMode asks the provider to constrain output to valid JSON.
	JSONMode bool
}

// Generator defines the interface for provider adapters.
// All provider implementations must satisfy this interface.
type Generator interface {
	// Generate performs one completion and returns the first completion's text, unparsed.
	// Every failure is a *domain.ExternalServiceError.
	Generate(ctx context.Context, req GenerateRequest) (string, error)

	// Provider returns the provider this generator talks to.
	Provider() domain.Provider
}

// CareerClient is the capability surface the dispatch layer is written against.
// Each operation returns the provider's raw text.
type CareerClient interface {
	ExtractSkills(ctx context.Context, cvText string) (string, error)
	GenerateRoadmap(ctx context.Context, techStack string, opts domain.RoadmapOptions) (string, error)
	AnswerQuestion(ctx context.Context, question string, opts domain.QuestionOptions) (string, error)
	GenerateContent(ctx context.Context, input string, opts domain.ContentOptions) (string, error)
}

func temperatureOrDefault(t *float64) float64 {
	if t == nil {
		return DefaultTemperature
	}
	return *t
}
