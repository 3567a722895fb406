package main

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker/v2"

	"github.com/careerbridge/careerbridge-api/internal/adapter"
	"github.com/careerbridge/careerbridge-api/internal/config"
	"github.com/careerbridge/careerbridge-api/internal/domain"
	"github.com/careerbridge/careerbridge-api/internal/handler"
	"github.com/careerbridge/careerbridge-api/internal/service"
	"github.com/careerbridge/careerbridge-api/internal/store"
	"github.com/careerbridge/careerbridge-api/internal/ui"
)

// app is the fully wired server.
type app struct {
	router  *gin.Engine
	service *service.AIService
	store   *store.SQLiteStore
	cache   *handler.ResponseCache
	limiter *handler.RateLimiter
	closers []func() error
}

// Close releases everything buildApp opened, in reverse order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildApp opens the database and wires providers, service and router.
func buildApp(cfg *config.Configuration, logger *slog.Logger) (*app, error) {
	a := &app{}

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	a.store = db
	a.closers = append(a.closers, db.Close)

	clients, breakers := buildProviders(cfg, logger)
	a.service = service.New(clients, logger)

	deps := handler.Dependencies{
		AI:             a.service,
		Store:          db,
		Breakers:       breakers,
		Usage:          handler.NewUsageEstimator(nil),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	}

	if cfg.Cache.Enabled {
		a.cache = handler.NewResponseCache(
			handler.WithCacheTTL(cfg.Cache.TTL()),
			handler.WithCacheMaxEntries(cfg.Cache.MaxEntries),
			handler.WithCacheLogger(logger),
		)
		deps.Cache = a.cache
		a.closers = append(a.closers, func() error { a.cache.Close(); return nil })
	}
	if cfg.RateLimit.Enabled {
		a.limiter = handler.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
		deps.RateLimiter = a.limiter
		a.closers = append(a.closers, func() error { a.limiter.Close(); return nil })
	}

	a.router = handler.NewRouter(deps)
	return a, nil
}

// buildProviders creates a client per configured provider, each wrapped as
// Breaker(Retry(adapter)) so that one exhausted retry loop counts as a single
// breaker failure.
func buildProviders(cfg *config.Configuration, logger *slog.Logger) (map[domain.Provider]adapter.CareerClient, map[domain.Provider]handler.BreakerState) {
	clients := make(map[domain.Provider]adapter.CareerClient)
	breakers := make(map[domain.Provider]handler.BreakerState)

	breakerCfg := adapter.BreakerConfig{
		MaxFailures: uint32(cfg.Resilience.BreakerMaxFailures),
		Timeout:     cfg.Resilience.BreakerTimeout(),
		OnStateChange: func(p domain.Provider, from, to gobreaker.State) {
			ui.PrintBreakerState(string(p), from.String(), to.String())
		},
	}

	for _, p := range cfg.EnabledProviders() {
		settings := cfg.ProviderSettings(p)
		httpClient := adapter.NewHTTPClient(time.Duration(settings.TimeoutSeconds) * time.Second)
		providerLogger := logger.With(slog.String("provider", string(p)))

		var gen adapter.Generator
		switch p {
		case domain.ProviderGemini:
			gen = adapter.NewGeminiAdapter(settings.APIKey,
				adapter.WithGeminiBaseURL(settings.BaseURL),
				adapter.WithGeminiModel(settings.Model),
				adapter.WithGeminiHTTPClient(httpClient),
				adapter.WithGeminiLogger(providerLogger),
			)
		case domain.ProviderGroq:
			gen = adapter.NewGroqAdapter(settings.APIKey,
				adapter.WithGroqBaseURL(settings.BaseURL),
				adapter.WithGroqModel(settings.Model),
				adapter.WithGroqHTTPClient(httpClient),
				adapter.WithGroqLogger(providerLogger),
			)
		default:
			continue
		}

		retrying := adapter.NewRetryGenerator(gen, cfg.Resilience.MaxRetries, cfg.Resilience.BaseDelay(), providerLogger,
			adapter.WithRetryBudget(cfg.RetryBudget()),
		)
		breaker := adapter.NewBreakerGenerator(retrying, breakerCfg, providerLogger)

		clients[p] = adapter.NewCareerClient(breaker)
		breakers[p] = breaker

		logger.Info("provider enabled",
			slog.String("provider", string(p)),
			slog.String("model", settings.Model),
			slog.Int("max_retries", cfg.Resilience.MaxRetries),
		)
	}
	return clients, breakers
}
