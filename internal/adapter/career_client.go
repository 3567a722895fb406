package adapter

import (
	"context"

	"github.com/careerbridge/careerbridge-api/internal/domain"
	"github.com/careerbridge/careerbridge-api/internal/prompt"
)

// Per-operation sampling temperatures.
const (
	TemperatureExtractSkills = 0.3
	TemperatureRoadmap       = 0.7
	TemperatureQuestion      = 0.8
	TemperatureContent       = 0.8
)

// PromptClient implements CareerClient on top of any Generator: it renders
// the operation's prompt and asks for a JSON-mode completion.
type PromptClient struct {
	gen Generator
}

// NewCareerClient wraps gen.
func NewCareerClient(gen Generator) *PromptClient {
	return &PromptClient{gen: gen}
}

// Provider returns the underlying generator's provider.
func (c *PromptClient) Provider() domain.Provider {
	return c.gen.Provider()
}

// ExtractSkills implements CareerClient.
func (c *PromptClient) ExtractSkills(ctx context.Context, cvText string) (string, error) {
	p, err := prompt.ExtractSkills(cvText)
	if err != nil {
		return "", err
	}
	return c.generate(ctx, p, TemperatureExtractSkills)
}

// GenerateRoadmap implements CareerClient.
func (c *PromptClient) GenerateRoadmap(ctx context.Context, techStack string, opts domain.RoadmapOptions) (string, error) {
	p, err := prompt.Roadmap(techStack, opts)
	if err != nil {
		return "", err
	}
	return c.generate(ctx, p, TemperatureRoadmap)
}

// AnswerQuestion implements CareerClient.
func (c *PromptClient) AnswerQuestion(ctx context.Context, question string, opts domain.QuestionOptions) (string, error) {
	p, err := prompt.Question(question, opts)
	if err != nil {
		return "", err
	}
	return c.generate(ctx, p, TemperatureQuestion)
}

// GenerateContent implements CareerClient.
func (c *PromptClient) GenerateContent(ctx context.Context, input string, opts domain.ContentOptions) (string, error) {
	p, err := prompt.Content(input, opts)
	if err != nil {
		return "", err
	}
	return c.generate(ctx, p, TemperatureContent)
}

func (c *PromptClient) generate(ctx context.Context, p string, temperature float64) (string, error) {
	return c.gen.Generate(ctx, GenerateRequest{
		Prompt:      p,
		Temperature: &temperature,
		JSONMode:    true,
	})
}
