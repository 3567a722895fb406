package handler

import (
	"fmt"
	"sync"
	"unicode"

	"github.com/careerbridge/careerbridge-api/internal/domain"
)

// TokensPerWord is the approximation ratio (1 word ≈ 1.3 tokens).
const TokensPerWord = 1.3

// Price is the list price of a provider's default model in USD per million tokens.
type Price struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// DefaultPrices are the published prices of gemini-2.0-flash and llama-3.3-70b-versatile.
var DefaultPrices = map[domain.Provider]Price{
	domain.ProviderGemini: {InputPerMillion: 0.10, OutputPerMillion: 0.40},
	domain.ProviderGroq:   {InputPerMillion: 0.59, OutputPerMillion: 0.79},
}

// ProviderUsage is the running total for one provider.
type ProviderUsage struct {
	Requests      int64   `json:"requests"`
	Failures      int64   `json:"failures"`
	InputTokens   int64   `json:"estimated_input_tokens"`
	OutputTokens  int64   `json:"estimated_output_tokens"`
	EstimatedCost float64 `json:"estimated_cost_usd"`
}

// UsageMetrics holds the estimate for a single call and the provider total after it.
type UsageMetrics struct {
	InputTokens  int
	OutputTokens int
	Cost         float64
	TotalCost    float64
}

// UsageEstimator tracks approximate token usage and spend per provider.
type UsageEstimator struct {
	mu     sync.RWMutex
	prices map[domain.Provider]Price
	usage  map[domain.Provider]*ProviderUsage
}

// NewUsageEstimator creates an estimator. A nil prices map uses DefaultPrices.
func NewUsageEstimator(prices map[domain.Provider]Price) *UsageEstimator {
	if prices == nil {
		prices = DefaultPrices
	}
	return &UsageEstimator{
		prices: prices,
		usage:  make(map[domain.Provider]*ProviderUsage),
	}
}

// Record adds one call. Failed calls count toward requests and input tokens only.
func (u *UsageEstimator) Record(provider domain.Provider, inputText, outputText string, success bool) UsageMetrics {
	inputTokens := EstimateTokens(inputText)
	outputTokens := 0
	if success {
		outputTokens = EstimateTokens(outputText)
	}
	cost := u.calculateCost(provider, inputTokens, outputTokens)

	u.mu.Lock()
	defer u.mu.Unlock()

	pu, ok := u.usage[provider]
	if !ok {
		pu = &ProviderUsage{}
		u.usage[provider] = pu
	}
	pu.Requests++
	if !success {
		pu.Failures++
	}
	pu.InputTokens += int64(inputTokens)
	pu.OutputTokens += int64(outputTokens)
	pu.EstimatedCost += cost

	return UsageMetrics{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         cost,
		TotalCost:    pu.EstimatedCost,
	}
}

// Snapshot returns a copy of the per-provider totals.
func (u *UsageEstimator) Snapshot() map[domain.Provider]ProviderUsage {
	u.mu.RLock()
	defer u.mu.RUnlock()

	out := make(map[domain.Provider]ProviderUsage, len(u.usage))
	for p, pu := range u.usage {
		out[p] = *pu
	}
	return out
}

func (u *UsageEstimator) calculateCost(provider domain.Provider, inputTokens, outputTokens int) float64 {
	price := u.prices[provider]
	inputCost := (float64(inputTokens) / 1_000_000) * price.InputPerMillion
	outputCost := (float64(outputTokens) / 1_000_000) * price.OutputPerMillion
	return inputCost + outputCost
}

// EstimateTokens estimates the number of tokens in a text string.
// Uses a lightweight approximation: 1 word ≈ 1.3 tokens.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	wordCount := 0
	inWord := false

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if !inWord {
				wordCount++
				inWord = true
			}
		} else {
			inWord = false
		}
	}

	tokens := int(float64(wordCount) * TokensPerWord)
	if tokens == 0 && wordCount > 0 {
		tokens = 1
	}

	return tokens
}

// FormatCost formats a dollar amount with precision suited to its size.
func FormatCost(amount float64) string {
	if amount < 0.0001 {
		return fmt.Sprintf("$%.6f", amount)
	} else if amount < 0.01 {
		return fmt.Sprintf("$%.4f", amount)
	}
	return fmt.Sprintf("$%.2f", amount)
}
