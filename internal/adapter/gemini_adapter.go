package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/careerbridge/careerbridge-api/internal/domain"
	"github.com/careerbridge/careerbridge-api/internal/tracer"
)

const (
	// DefaultGeminiBaseURL is the default Gemini API endpoint.
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultGeminiModel is used when neither the adapter nor the request names a model.
	DefaultGeminiModel = "gemini-2.0-flash"
)

// GeminiAdapter implements Generator for the Google Gemini generateContent API.
type GeminiAdapter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// GeminiAdapterOption is a functional option for configuring GeminiAdapter.
type GeminiAdapterOption func(*GeminiAdapter)

// WithGeminiBaseURL sets a custom base URL for the Gemini API.
func WithGeminiBaseURL(u string) GeminiAdapterOption {
	return func(g *GeminiAdapter) {
		if u != "" {
			g.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithGeminiModel overrides the default model.
func WithGeminiModel(model string) GeminiAdapterOption {
	return func(g *GeminiAdapter) {
		if model != "" {
			g.model = model
		}
	}
}

// WithGeminiHTTPClient sets a custom HTTP client.
func WithGeminiHTTPClient(client *http.Client) GeminiAdapterOption {
	return func(g *GeminiAdapter) {
		g.httpClient = client
	}
}

// WithGeminiTimeout sets the HTTP client timeout.
func WithGeminiTimeout(timeout time.Duration) GeminiAdapterOption {
	return func(g *GeminiAdapter) {
		if timeout > 0 {
			g.httpClient.Timeout = timeout
		}
	}
}

// WithGeminiLogger sets a custom logger.
func WithGeminiLogger(logger *slog.Logger) GeminiAdapterOption {
	return func(g *GeminiAdapter) {
		g.logger = logger
	}
}

// NewGeminiAdapter creates a new GeminiAdapter with the given API key.
func NewGeminiAdapter(apiKey string, opts ...GeminiAdapterOption) *GeminiAdapter {
	g := &GeminiAdapter{
		apiKey:     apiKey,
		baseURL:    DefaultGeminiBaseURL,
		model:      DefaultGeminiModel,
		httpClient: NewHTTPClient(DefaultTimeout),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Provider returns domain.ProviderGemini.
func (g *GeminiAdapter) Provider() domain.Provider {
	return domain.ProviderGemini
}

// Generate sends a single generateContent request and returns the first
// candidate's first text part.
func (g *GeminiAdapter) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}

	ctx, span := tracer.StartSpan(ctx, "llm.generate",
		trace.WithAttributes(
			tracer.StringAttr("llm.provider", string(domain.ProviderGemini)),
			tracer.StringAttr("llm.model", model),
			tracer.BoolAttr("llm.json_mode", req.JSONMode),
		),
	)
	defer span.End()

	body, err := json.Marshal(g.buildRequest(req))
	if err != nil {
		tracer.RecordError(span, err)
		return "", decodeError(domain.ProviderGemini, err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, url.PathEscape(model), url.QueryEscape(g.apiKey))

	respBody, err := postJSON(ctx, g.httpClient, domain.ProviderGemini, endpoint, body, nil, g.logger)
	if err != nil {
		tracer.RecordError(span, err)
		return "", err
	}

	var geminiResp GeminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		g.logger.Error("failed to parse gemini response", slog.String("error", err.Error()))
		tracer.RecordError(span, err)
		return "", decodeError(domain.ProviderGemini, err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		err := emptyResponseError(domain.ProviderGemini)
		tracer.RecordError(span, err)
		return "", err
	}

	if usage := geminiResp.UsageMetadata; usage != nil {
		span.SetAttributes(
			tracer.IntAttr("llm.prompt_tokens", usage.PromptTokenCount),
			tracer.IntAttr("llm.completion_tokens", usage.CandidatesTokenCount),
		)
		g.logger.Debug("gemini generate completed",
			slog.String("model", model),
			slog.Int("total_tokens", usage.TotalTokenCount),
		)
	}
	tracer.SetOK(span)

	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

// buildRequest converts a GenerateRequest to the Gemini wire format.
func (g *GeminiAdapter) buildRequest(req GenerateRequest) GeminiRequest {
	temperature := temperatureOrDefault(req.Temperature)
	geminiReq := GeminiRequest{
		Contents: []GeminiContent{
			{Parts: []GeminiPart{{Text: req.Prompt}}},
		},
		GenerationConfig: &GeminiGenerationConfig{
			Temperature: &temperature,
		},
	}
	if req.JSONMode {
		geminiReq.GenerationConfig.ResponseMimeType = "application/json"
	}
	return geminiReq
}

// ============================================================================
// Gemini API Types
// ============================================================================

// GeminiRequest represents a Gemini generateContent request.
type GeminiRequest struct {
	Contents         []GeminiContent         `json:"contents"`
	GenerationConfig *GeminiGenerationConfig `json:"generationConfig,omitempty"`
}

// GeminiContent represents a content block in Gemini format.
type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart represents a part of a content block.
type GeminiPart struct {
	Text string `json:"text"`
}

// GeminiGenerationConfig contains generation parameters.
type GeminiGenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

// GeminiResponse represents a Gemini generateContent response.
type GeminiResponse struct {
	Candidates    []GeminiCandidate    `json:"candidates"`
	UsageMetadata *GeminiUsageMetadata `json:"usageMetadata,omitempty"`
}

// GeminiCandidate represents a single generated candidate.
type GeminiCandidate struct {
	Content      GeminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

// GeminiUsageMetadata contains token usage information.
type GeminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}
