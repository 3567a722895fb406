package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/careerbridge/careerbridge-api/internal/domain"
)

// Store is everything the HTTP layer needs from persistence. *store.SQLiteStore implements it.
type Store interface {
	UserLookup
	ProfileStore
	RoadmapStore
	Pinger
}

// Dependencies wires the router. Cache, RateLimiter, Usage and Breakers are optional.
type Dependencies struct {
	AI             ActionProcessor
	Store          Store
	Breakers       map[domain.Provider]BreakerState
	Cache          *ResponseCache
	RateLimiter    *RateLimiter
	Usage          *UsageEstimator
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(deps Dependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(logger))
	router.Use(RecoveryMiddleware(logger))
	router.Use(CORSMiddleware(deps.AllowedOrigins))

	health := NewHealthHandler(deps.AI, deps.Store, deps.Breakers, deps.Cache, deps.Usage, logger)
	router.GET("/health", health.Health)

	aiHandler := NewAIHandler(deps.AI, deps.Store, deps.Store, deps.Usage, logger)
	roadmaps := NewRoadmapHandler(deps.Store, logger)

	api := router.Group("/api/ai")
	api.Use(AuthMiddleware(deps.Store, logger))

	// Provider-backed endpoints share the per-user budget.
	generate := api.Group("")
	if deps.RateLimiter != nil {
		generate.Use(deps.RateLimiter.Middleware(logger))
	}
	if deps.Cache != nil {
		generate.POST("/action", deps.Cache.Middleware(), aiHandler.Action)
	} else {
		generate.POST("/action", aiHandler.Action)
	}
	generate.POST("/extract-skills", aiHandler.ExtractSkills)
	generate.POST("/roadmap", aiHandler.GenerateRoadmap)
	generate.POST("/generate-summary", aiHandler.GenerateSummary)
	generate.POST("/improve-projects", aiHandler.ImproveProjects)
	generate.POST("/profile-suggestions", aiHandler.ProfileSuggestions)
	generate.POST("/ask-mentor", aiHandler.AskMentor)

	api.GET("/roadmaps", roadmaps.List)
	api.GET("/roadmaps/:id", roadmaps.Get)
	api.DELETE("/roadmaps/:id", roadmaps.Delete)
	api.PUT("/roadmaps/:id/progress", roadmaps.UpdateProgress)

	return router
}
