// Package service implements the AI action dispatch layer: it validates an
// ActionRequest, routes it to the selected provider's CareerClient, and wraps
// the provider's output in the uniform ActionResponse envelope.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/careerbridge/careerbridge-api/internal/adapter"
	"github.com/careerbridge/careerbridge-api/internal/domain"
	"github.com/careerbridge/careerbridge-api/internal/tracer"
)

// AIService dispatches actions to the configured providers.
// It is immutable after construction and safe for concurrent use.
type AIService struct {
	clients map[domain.Provider]adapter.CareerClient
	logger  *slog.Logger
}

// New creates an AIService. A provider absent from clients is treated as
// not configured.
func New(clients map[domain.Provider]adapter.CareerClient, logger *slog.Logger) *AIService {
	if logger == nil {
		logger = slog.Default()
	}
	owned := make(map[domain.Provider]adapter.CareerClient, len(clients))
	for p, c := range clients {
		if c != nil {
			owned[p] = c
		}
	}
	return &AIService{clients: owned, logger: logger}
}

// EnabledProviders lists the providers that have a client, in stable order.
func (s *AIService) EnabledProviders() []domain.Provider {
	var out []domain.Provider
	for _, p := range domain.Providers() {
		if _, ok := s.clients[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// ProcessAction runs one action end to end.
//
// Validation and configuration problems are returned as errors and never
// reach the network. Provider failures and unparseable output are folded
// into a failure envelope with a nil error.
func (s *AIService) ProcessAction(ctx context.Context, req domain.ActionRequest) (domain.ActionResponse, error) {
	if err := req.Validate(); err != nil {
		return domain.ActionResponse{}, err
	}
	req = req.Normalize()

	client, ok := s.clients[req.Provider]
	if !ok {
		return domain.ActionResponse{}, &domain.ConfigurationError{
			Message: fmt.Sprintf("%s API key not configured", req.Provider.DisplayName()),
		}
	}

	ctx, span := tracer.StartSpan(ctx, "ai.process_action",
		trace.WithAttributes(
			tracer.StringAttr("ai.action", string(req.Action)),
			tracer.StringAttr("ai.provider", string(req.Provider)),
		),
	)
	defer span.End()

	start := time.Now()
	data, err := s.run(ctx, client, req)
	latency := time.Since(start)

	if err != nil {
		s.logger.Warn("ai action failed",
			slog.String("action", string(req.Action)),
			slog.String("provider", string(req.Provider)),
			slog.Duration("latency", latency),
			slog.String("error", err.Error()),
		)
		tracer.RecordError(span, err)
		return domain.NewFailureResponse(req.Provider, err.Error()), nil
	}

	s.logger.Info("ai action completed",
		slog.String("action", string(req.Action)),
		slog.String("provider", string(req.Provider)),
		slog.Duration("latency", latency),
	)
	tracer.SetOK(span)
	return domain.NewSuccessResponse(req.Provider, data), nil
}

func (s *AIService) run(ctx context.Context, client adapter.CareerClient, req domain.ActionRequest) (any, error) {
	var (
		text string
		err  error
	)
	switch req.Action {
	case domain.ActionExtractSkills:
		text, err = client.ExtractSkills(ctx, req.Input)
	case domain.ActionGenerateRoadmap:
		text, err = client.GenerateRoadmap(ctx, req.Input, domain.RoadmapOptionsFrom(req.Parameters))
	case domain.ActionAskQuestion:
		text, err = client.AnswerQuestion(ctx, req.Input, domain.QuestionOptionsFrom(req.Parameters))
	case domain.ActionGenerateContent:
		text, err = client.GenerateContent(ctx, req.Input, domain.ContentOptionsFrom(req.Parameters))
	default:
		return nil, &domain.ValidationError{Field: "action", Message: fmt.Sprintf("unknown action %q", req.Action)}
	}
	if err != nil {
		return nil, err
	}
	return parseOutput(req.Provider, text)
}

// parseOutput decodes the provider's text as arbitrary JSON.
func parseOutput(provider domain.Provider, text string) (any, error) {
	var data any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, &domain.ExternalServiceError{
			Provider: provider,
			Message:  fmt.Sprintf("Failed to parse AI response: %v", err),
			Err:      err,
		}
	}
	return data, nil
}
