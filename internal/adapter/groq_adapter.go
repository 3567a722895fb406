package adapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/careerbridge/careerbridge-api/internal/domain"
	"github.com/careerbridge/careerbridge-api/internal/tracer"
)

const (
	// DefaultGroqBaseURL is the default Groq OpenAI-compatible endpoint.
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

	// DefaultGroqModel is used when neither the adapter nor the request names a model.
	DefaultGroqModel = "llama-3.3-70b-versatile"
)

// GroqAdapter implements Generator for Groq's chat completions API.
type GroqAdapter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// GroqAdapterOption is a functional option for configuring GroqAdapter.
type GroqAdapterOption func(*GroqAdapter)

// WithGroqBaseURL sets a custom base URL.
func WithGroqBaseURL(u string) GroqAdapterOption {
	return func(g *GroqAdapter) {
		if u != "" {
			g.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithGroqModel overrides the default model.
func WithGroqModel(model string) GroqAdapterOption {
	return func(g *GroqAdapter) {
		if model != "" {
			g.model = model
		}
	}
}

// WithGroqHTTPClient sets a custom HTTP client.
func WithGroqHTTPClient(client *http.Client) GroqAdapterOption {
	return func(g *GroqAdapter) {
		g.httpClient = client
	}
}

// WithGroqTimeout sets the HTTP client timeout.
func WithGroqTimeout(timeout time.Duration) GroqAdapterOption {
	return func(g *GroqAdapter) {
		if timeout > 0 {
			g.httpClient.Timeout = timeout
		}
	}
}

// WithGroqLogger sets a custom logger.
func WithGroqLogger(logger *slog.Logger) GroqAdapterOption {
	return func(g *GroqAdapter) {
		g.logger = logger
	}
}

// NewGroqAdapter creates a new GroqAdapter with the given API key.
func NewGroqAdapter(apiKey string, opts ...GroqAdapterOption) *GroqAdapter {
	g := &GroqAdapter{
		apiKey:     apiKey,
		baseURL:    DefaultGroqBaseURL,
		model:      DefaultGroqModel,
		httpClient: NewHTTPClient(DefaultTimeout),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Provider returns domain.ProviderGroq.
func (g *GroqAdapter) Provider() domain.Provider {
	return domain.ProviderGroq
}

// Generate sends one chat completion with a single user message.
func (g *GroqAdapter) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}

	ctx, span := tracer.StartSpan(ctx, "llm.generate",
		trace.WithAttributes(
			tracer.StringAttr("llm.provider", string(domain.ProviderGroq)),
			tracer.StringAttr("llm.model", model),
			tracer.BoolAttr("llm.json_mode", req.JSONMode),
		),
	)
	defer span.End()

	chatReq := ChatCompletionRequest{
		Model:       model,
		Messages:    []ChatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: temperatureOrDefault(req.Temperature),
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		tracer.RecordError(span, err)
		return "", decodeError(domain.ProviderGroq, err)
	}

	headers := map[string]string{"Authorization": "Bearer " + g.apiKey}
	respBody, err := postJSON(ctx, g.httpClient, domain.ProviderGroq, g.baseURL+"/chat/completions", body, headers, g.logger)
	if err != nil {
		tracer.RecordError(span, err)
		return "", err
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		g.logger.Error("failed to parse groq response", slog.String("error", err.Error()))
		tracer.RecordError(span, err)
		return "", decodeError(domain.ProviderGroq, err)
	}

	if len(chatResp.Choices) == 0 {
		err := emptyResponseError(domain.ProviderGroq)
		tracer.RecordError(span, err)
		return "", err
	}

	if usage := chatResp.Usage; usage != nil {
		span.SetAttributes(
			tracer.IntAttr("llm.prompt_tokens", usage.PromptTokens),
			tracer.IntAttr("llm.completion_tokens", usage.CompletionTokens),
		)
		g.logger.Debug("groq generate completed",
			slog.String("model", model),
			slog.Int("total_tokens", usage.TotalTokens),
		)
	}
	tracer.SetOK(span)

	return chatResp.Choices[0].Message.Content, nil
}
