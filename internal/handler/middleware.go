package handler

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/careerbridge/careerbridge-api/internal/domain"
	"github.com/careerbridge/careerbridge-api/internal/security"
	"github.com/careerbridge/careerbridge-api/internal/ui"
)

// Context keys set by the middleware chain.
const (
	ctxRequestID = "request_id"
	ctxUser      = "user"
	ctxCacheHit  = "cache_hit"
	ctxCacheable = "cacheable"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

// CORSMiddleware enables CORS for the configured origins. A "*" entry allows any origin.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if _, ok := allowed[origin]; ok && origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestIDMiddleware assigns every request a ULID, or keeps the caller's X-Request-ID.
func RequestIDMiddleware() gin.HandlerFunc {
	var mu sync.Mutex
	entropy := ulid.Monotonic(rand.Reader, 0)

	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			mu.Lock()
			id = ulid.MustNew(ulid.Now(), entropy).String()
			mu.Unlock()
		}
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// LoggingMiddleware logs one structured line per request and prints the console row.
func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		attrs := []any{
			slog.String("request_id", c.GetString(ctxRequestID)),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", latency),
			slog.String("client_ip", c.ClientIP()),
			slog.Bool("cache_hit", c.GetBool(ctxCacheHit)),
		}
		if user := currentUser(c); user != nil {
			attrs = append(attrs, slog.Int64("user_id", user.ID))
		}
		logger.Info("request completed", attrs...)

		ui.PrintRequest(c.Request.Method, path, c.Writer.Status(), latency, c.GetString(ctxRequestID))
	}
}

// RecoveryMiddleware recovers from panics and answers 500 in the API error format.
func RecoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered",
					slog.Any("error", rec),
					slog.String("path", c.Request.URL.Path),
					slog.String("request_id", c.GetString(ctxRequestID)),
				)
				respondError(c, nil, fmt.Errorf("panic: %v", rec))
			}
		}()

		c.Next()
	}
}

// UserLookup resolves an API token hash to its user.
type UserLookup interface {
	UserByTokenHash(ctx context.Context, tokenHash string) (*domain.User, error)
}

// AuthMiddleware requires `Authorization: Bearer <token>` and stores the
// matching user in the request context.
func AuthMiddleware(users UserLookup, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := security.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			respondError(c, logger, domain.ErrUnauthorized)
			return
		}

		user, err := users.UserByTokenHash(c.Request.Context(), security.HashToken(token))
		if errors.Is(err, domain.ErrNotFound) {
			respondError(c, logger, domain.ErrUnauthorized)
			return
		}
		if err != nil {
			respondError(c, logger, fmt.Errorf("looking up token: %w", err))
			return
		}

		c.Set(ctxUser, user)
		c.Next()
	}
}

// currentUser returns the authenticated user, or nil on public routes.
func currentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}

// RateLimiter applies a token bucket per authenticated user.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[int64]*limitedClient
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	stopOnce sync.Once
	stop     chan struct{}
}

type limitedClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows requestsPerMinute per user with the given burst.
// Idle users are forgotten after a few minutes.
func NewRateLimiter(requestsPerMinute, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		clients: make(map[int64]*limitedClient),
		limit:   rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:   burst,
		idleTTL: 3 * time.Minute,
		stop:    make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow reports whether userID may make another request now.
func (rl *RateLimiter) Allow(userID int64) bool {
	rl.mu.Lock()
	client, ok := rl.clients[userID]
	if !ok {
		client = &limitedClient{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[userID] = client
	}
	client.lastSeen = time.Now()
	limiter := client.limiter
	rl.mu.Unlock()

	return limiter.Allow()
}

// Middleware rejects requests beyond the user's budget with 429 and Retry-After.
// It must run after AuthMiddleware.
func (rl *RateLimiter) Middleware(logger *slog.Logger) gin.HandlerFunc {
	retryAfter := "60"
	if rl.limit > 0 {
		retryAfter = strconv.Itoa(int(math.Ceil(1 / float64(rl.limit))))
	}

	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			c.Next()
			return
		}
		if !rl.Allow(user.ID) {
			logger.Warn("rate limited",
				slog.Int64("user_id", user.ID),
				slog.String("path", c.Request.URL.Path),
			)
			c.Header("Retry-After", retryAfter)
			respondError(c, logger, errRateLimited)
			return
		}
		c.Next()
	}
}

// Close stops the background cleanup.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for id, client := range rl.clients {
				if time.Since(client.lastSeen) > rl.idleTTL {
					delete(rl.clients, id)
				}
			}
			rl.mu.Unlock()
		case <-rl.stop:
			return
		}
	}
}
