package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker/v2"

	"github.com/careerbridge/careerbridge-api/internal/domain"
	"github.com/careerbridge/careerbridge-api/internal/ui"
)

// Pinger checks that a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerState reports a provider's circuit state. *adapter.BreakerGenerator implements it.
type BreakerState interface {
	State() gobreaker.State
}

// HealthHandler serves GET /health.
type HealthHandler struct {
	ai       ActionProcessor
	db       Pinger
	breakers map[domain.Provider]BreakerState
	cache    *ResponseCache
	usage    *UsageEstimator
	logger   *slog.Logger
	started  time.Time
}

// NewHealthHandler creates a HealthHandler. cache, usage and breakers may be nil.
func NewHealthHandler(ai ActionProcessor, db Pinger, breakers map[domain.Provider]BreakerState, cache *ResponseCache, usage *UsageEstimator, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		ai:       ai,
		db:       db,
		breakers: breakers,
		cache:    cache,
		usage:    usage,
		logger:   logger,
		started:  time.Now(),
	}
}

// Health reports liveness and component status. A failed database ping
// answers 503 with status "degraded".
func (h *HealthHandler) Health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK

	dbStatus := "ok"
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health check database ping failed", slog.String("error", err.Error()))
		dbStatus = "unavailable"
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	providers := h.ai.EnabledProviders()
	if providers == nil {
		providers = []domain.Provider{}
	}

	breakers := make(map[domain.Provider]string, len(h.breakers))
	for p, b := range h.breakers {
		breakers[p] = b.State().String()
	}

	cache := CacheStats{}
	if h.cache != nil {
		cache = h.cache.Stats()
	}

	usage := map[domain.Provider]ProviderUsage{}
	if h.usage != nil {
		usage = h.usage.Snapshot()
	}

	c.JSON(code, gin.H{
		"status":         status,
		"service":        "careerbridge-api",
		"version":        ui.Version,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"database":       dbStatus,
		"providers":      providers,
		"breakers":       breakers,
		"cache":          cache,
		"usage":          usage,
	})
}
