package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/careerbridge/careerbridge-api/internal/domain"
)

func TestGroqAdapter_Generate(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody ChatCompletionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(ChatCompletionResponse{
			ID:      "chatcmpl-1",
			Model:   gotBody.Model,
			Choices: []ChatChoice{{Message: ChatMessage{Role: "assistant", Content: `{"answer":"yes"}`}}},
			Usage:   &ChatUsage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7},
		})
	}))
	defer server.Close()

	adapter := NewGroqAdapter("gsk_test", WithGroqBaseURL(server.URL+"/"), WithGroqLogger(discardLogger()))

	text, err := adapter.Generate(context.Background(), GenerateRequest{
		Prompt:      "question",
		Temperature: ptrFloat(0.8),
		JSONMode:    true,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != `{"answer":"yes"}` {
		t.Errorf("text = %q", text)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %s", gotPath)
	}
	if gotAuth != "Bearer gsk_test" {
		t.Errorf("Authorization = %s", gotAuth)
	}
	if gotBody.Model != DefaultGroqModel {
		t.Errorf("model = %s", gotBody.Model)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Role != "user" || gotBody.Messages[0].Content != "question" {
		t.Errorf("messages = %+v", gotBody.Messages)
	}
	if gotBody.Temperature != 0.8 {
		t.Errorf("temperature = %v", gotBody.Temperature)
	}
	if gotBody.ResponseFormat == nil || gotBody.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v", gotBody.ResponseFormat)
	}
}

func TestGroqAdapter_ModelOverride(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body ChatCompletionRequest
		json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"x"}}]}`)
	}))
	defer server.Close()

	adapter := NewGroqAdapter("k", WithGroqBaseURL(server.URL), WithGroqModel("llama-3.1-8b-instant"), WithGroqLogger(discardLogger()))
	if _, err := adapter.Generate(context.Background(), GenerateRequest{Prompt: "p"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gotModel != "llama-3.1-8b-instant" {
		t.Errorf("model = %s", gotModel)
	}
}

func TestGroqAdapter_GenerateErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		header     map[string]string
		body       string
		wantSubstr string
		wantRetry  time.Duration
	}{
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			header:     map[string]string{"Retry-After": "3"},
			body:       `{"error":{"message":"slow down"}}`,
			wantSubstr: "Groq API returned 429",
			wantRetry:  3 * time.Second,
		},
		{
			name:       "empty choices",
			status:     http.StatusOK,
			body:       `{"choices":[]}`,
			wantSubstr: "No response from Groq",
		},
		{
			name:       "malformed envelope",
			status:     http.StatusOK,
			body:       `{"choices":`,
			wantSubstr: "Failed to parse Groq response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			adapter := NewGroqAdapter("k", WithGroqBaseURL(server.URL), WithGroqLogger(discardLogger()))
			_, err := adapter.Generate(context.Background(), GenerateRequest{Prompt: "p"})

			var extErr *domain.ExternalServiceError
			if !errors.As(err, &extErr) {
				t.Fatalf("error type = %T, want *domain.ExternalServiceError", err)
			}
			if extErr.Provider != domain.ProviderGroq {
				t.Errorf("Provider = %s", extErr.Provider)
			}
			if !strings.Contains(err.Error(), tt.wantSubstr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantSubstr)
			}
			if extErr.RetryAfter != tt.wantRetry {
				t.Errorf("RetryAfter = %v, want %v", extErr.RetryAfter, tt.wantRetry)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := map[string]time.Duration{
		"":    0,
		"5":   5 * time.Second,
		"-1":  0,
		"abc": 0,
	}
	for in, want := range tests {
		if got := parseRetryAfter(in); got != want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestAdapterOptions_HTTPClient(t *testing.T) {
	gemini := NewGeminiAdapter("k", WithGeminiTimeout(3*time.Second))
	if gemini.httpClient.Timeout != 3*time.Second {
		t.Errorf("gemini timeout = %v", gemini.httpClient.Timeout)
	}
	groq := NewGroqAdapter("k", WithGroqTimeout(0))
	if groq.httpClient.Timeout != DefaultTimeout {
		t.Errorf("groq timeout = %v, want default %v", groq.httpClient.Timeout, DefaultTimeout)
	}

	shared := &http.Client{Timeout: time.Second}
	if NewGroqAdapter("k", WithGroqHTTPClient(shared)).httpClient != shared {
		t.Error("WithGroqHTTPClient not applied")
	}
	if NewGeminiAdapter("k", WithGeminiHTTPClient(shared)).httpClient != shared {
		t.Error("WithGeminiHTTPClient not applied")
	}
}
