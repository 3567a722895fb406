package handler

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/careerbridge/careerbridge-api/internal/ui"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE CACHE - In-Memory Caching of AI Envelopes
// ══════════════════════════════════════════════════════════════════════════════
//
// Key: SHA256 of user ID + request body
// Value: serialized success envelope with TTL
// Only successful envelopes are stored; a failure is never replayed.
//
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultCacheTTL is the default time-to-live for cache entries.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultCacheMaxEntries bounds memory use.
	DefaultCacheMaxEntries = 1000

	// CleanupInterval is how often the cache cleaner runs.
	CleanupInterval = 1 * time.Minute
)

// CacheEntry represents a cached response with expiration time.
type CacheEntry struct {
	Response  []byte
	ExpireAt  time.Time
	CreatedAt time.Time
}

// IsExpired returns true if the cache entry has expired.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.ExpireAt)
}

// CacheStats is a snapshot of cache counters for /health.
type CacheStats struct {
	Enabled bool  `json:"enabled"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Size    int   `json:"size"`
}

// ResponseCache is a thread-safe in-memory cache for AI action responses.
type ResponseCache struct {
	mu         sync.RWMutex
	entries    map[string]*CacheEntry
	ttl        time.Duration
	maxEntries int
	logger     *slog.Logger

	hits   int64
	misses int64

	stopOnce sync.Once
	stop     chan struct{}
}

// CacheOption is a functional option for configuring ResponseCache.
type CacheOption func(*ResponseCache)

// WithCacheTTL sets a custom TTL for cache entries.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *ResponseCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheMaxEntries caps the number of entries; the oldest is evicted when full.
func WithCacheMaxEntries(n int) CacheOption {
	return func(c *ResponseCache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithCacheLogger sets a custom logger.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *ResponseCache) {
		c.logger = logger
	}
}

// NewResponseCache creates a cache and starts its TTL cleanup goroutine.
// Call Close to stop it.
func NewResponseCache(opts ...CacheOption) *ResponseCache {
	c := &ResponseCache{
		entries:    make(map[string]*CacheEntry),
		ttl:        DefaultCacheTTL,
		maxEntries: DefaultCacheMaxEntries,
		logger:     slog.Default(),
		stop:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	go c.startCleanup()

	return c
}

// CacheKey derives the cache key for one user's request body.
func CacheKey(userID int64, body []byte) string {
	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(userID, 10)))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached response by key.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.misses++
		return nil, false
	}
	if entry.IsExpired() {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}

	c.hits++
	return entry.Response, true
}

// Set stores a response with the configured TTL.
func (c *ResponseCache) Set(key string, response []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}

	now := time.Now()
	c.entries[key] = &CacheEntry{
		Response:  response,
		ExpireAt:  now.Add(c.ttl),
		CreatedAt: now,
	}
}

// evictOldestLocked drops the entry created first. Caller holds mu.
func (c *ResponseCache) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, entry := range c.entries {
		if oldestKey == "" || entry.CreatedAt.Before(oldest) {
			oldestKey = key
			oldest = entry.CreatedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Close stops the cleanup goroutine.
func (c *ResponseCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *ResponseCache) startCleanup() {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

// cleanup removes all expired entries from the cache.
func (c *ResponseCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expired := 0

	for key, entry := range c.entries {
		if now.After(entry.ExpireAt) {
			delete(c.entries, key)
			expired++
		}
	}

	if expired > 0 && c.logger != nil {
		c.logger.Debug("cache cleanup",
			slog.Int("expired_entries", expired),
			slog.Int("remaining_entries", len(c.entries)),
		)
	}
}

// Stats returns cache hit/miss statistics.
func (c *ResponseCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{Enabled: true, Hits: c.hits, Misses: c.misses, Size: len(c.entries)}
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// Middleware returns a Gin middleware that replays identical action requests.
// Flow:
//  1. Hash user ID + request body (SHA256)
//  2. HIT → return the stored envelope with ⚡ CACHE HIT
//  3. MISS → run the handler; store the body only if it marked itself cacheable
func (c *ResponseCache) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodPost {
			ctx.Next()
			return
		}
		user := currentUser(ctx)
		if user == nil {
			ctx.Next()
			return
		}

		bodyBytes, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			ctx.Next()
			return
		}
		ctx.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		key := CacheKey(user.ID, bodyBytes)

		start := time.Now()
		if cached, found := c.Get(key); found {
			latency := time.Since(start)
			if c.logger != nil {
				c.logger.Info("cache hit",
					slog.String("cache_key", key[:12]+"..."),
					slog.Int64("user_id", user.ID),
					slog.Duration("latency", latency),
				)
			}
			ui.PrintCacheHit(key, latency)

			ctx.Set(ctxCacheHit, true)
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", cached)
			ctx.Abort()
			return
		}

		writer := &responseWriter{
			ResponseWriter: ctx.Writer,
			body:           &bytes.Buffer{},
		}
		ctx.Writer = writer

		ctx.Next()

		if ctx.Writer.Status() == http.StatusOK && ctx.GetBool(ctxCacheable) {
			c.Set(key, writer.body.Bytes())
			if c.logger != nil {
				c.logger.Debug("response cached",
					slog.String("cache_key", key[:12]+"..."),
					slog.Int("size_bytes", writer.body.Len()),
				)
			}
		}
	}
}

// responseWriter wraps gin.ResponseWriter to capture the response body.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write captures the response body while writing to the original writer.
func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}
