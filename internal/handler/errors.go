// Package handler provides the HTTP handlers and middleware for the API router.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/careerbridge/careerbridge-api/internal/domain"
)

// Error kinds reported in the JSON error body.
const (
	KindValidation      = "validation_error"
	KindConfiguration   = "configuration_error"
	KindExternalService = "external_service_error"
	KindNotFound        = "not_found"
	KindUnauthorized    = "unauthorized"
	KindRateLimited     = "rate_limited"
	KindInternal        = "internal_error"
)

// errRateLimited is returned by the rate limiter middleware.
var errRateLimited = errors.New("rate limit exceeded, slow down")

// classify maps an error onto an HTTP status, a kind and a client-safe message.
func classify(err error) (int, string, string) {
	var (
		validation *domain.ValidationError
		configErr  *domain.ConfigurationError
		external   *domain.ExternalServiceError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, KindValidation, validation.Message
	case errors.As(err, &configErr):
		return http.StatusServiceUnavailable, KindConfiguration, configErr.Message
	case errors.As(err, &external):
		return http.StatusBadGateway, KindExternalService, external.Message
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, KindNotFound, "Resource not found"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, KindUnauthorized, "Missing or invalid API token"
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests, KindRateLimited, errRateLimited.Error()
	default:
		return http.StatusInternalServerError, KindInternal, "Internal server error"
	}
}

// respondError aborts the request with the error JSON body.
// Internal errors are logged; their text never reaches the client.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status, kind, msg := classify(err)
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("request_id", c.GetString(ctxRequestID)),
			slog.String("error", err.Error()),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"kind":    kind,
			"message": msg,
		},
	})
}
