package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/careerbridge/careerbridge-api/internal/domain"
	"github.com/careerbridge/careerbridge-api/internal/security"
)

const (
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 60 * time.Second

	// maxResponseBody is the maximum response body size read from a provider.
	maxResponseBody = 10 * 1024 * 1024
)

// NewHTTPClient creates an *http.Client with a pooled transport tuned for a
// handful of provider hosts and many concurrent requests.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     120 * time.Second,
			ForceAttemptHTTP2:   true,
		},
		Timeout: timeout,
	}
}

// postJSON sends body to url and returns the response body of a 2xx reply.
// Transport failures and non-2xx statuses become *domain.ExternalServiceError.
func postJSON(ctx context.Context, client *http.Client, provider domain.Provider, url string, body []byte, headers map[string]string, logger *slog.Logger) ([]byte, error) {
	name := provider.DisplayName()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, transportError(provider, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		extErr := transportError(provider, err)
		logger.Error("provider request failed",
			slog.String("provider", string(provider)),
			slog.String("error", extErr.Error()),
		)
		return nil, extErr
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &domain.ExternalServiceError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API error: reading response: %v", name, err),
			Err:        err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Error("provider returned error status",
			slog.String("provider", string(provider)),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(respBody)),
		)
		return nil, &domain.ExternalServiceError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    fmt.Sprintf("%s API returned %d: %s", name, resp.StatusCode, string(respBody)),
		}
	}

	return respBody, nil
}

// transportError reports a request that never produced a response. The
// message carries only the underlying cause: the request URL may hold the
// API key and the message ends up in client-facing envelopes.
func transportError(provider domain.Provider, err error) *domain.ExternalServiceError {
	cause := err
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		cause = urlErr.Err
	}
	return &domain.ExternalServiceError{
		Provider: provider,
		Message:  security.Redact(fmt.Sprintf("%s API error: %v", provider.DisplayName(), cause)),
		Err:      err,
	}
}

// decodeError reports an envelope that did not match the expected shape.
func decodeError(provider domain.Provider, err error) error {
	return &domain.ExternalServiceError{
		Provider: provider,
		Message:  fmt.Sprintf("Failed to parse %s response: %v", provider.DisplayName(), err),
		Err:      err,
	}
}

// emptyResponseError reports a reply with zero completions.
func emptyResponseError(provider domain.Provider) error {
	return &domain.ExternalServiceError{
		Provider: provider,
		Message:  fmt.Sprintf("No response from %s", provider.DisplayName()),
	}
}

// parseRetryAfter understands the delta-seconds form of Retry-After.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
