package handler

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// ============================================================================
// RESPONSE CACHE UNIT TESTS
// ============================================================================

// TestCacheKey verifies that keys are stable and scoped to the user.
func TestCacheKey(t *testing.T) {
	t.Log("=== TEST: Cache Key ===")

	body := []byte(`{"action":"ask_question","input":"How do I learn Go?"}`)

	key1 := CacheKey(1, body)
	key2 := CacheKey(1, body)
	if key1 != key2 {
		t.Errorf("Expected consistent key, got %s != %s", key1, key2)
	} else {
		t.Logf("✓ Key is consistent: %s", key1[:12]+"...")
	}

	if CacheKey(2, body) == key1 {
		t.Error("Expected different key for a different user")
	} else {
		t.Log("✓ Users do not share cache entries")
	}

	if CacheKey(1, []byte(`{"action":"ask_question","input":"How do I learn Rust?"}`)) == key1 {
		t.Error("Expected different key for different body")
	} else {
		t.Log("✓ Different bodies produce different keys")
	}

	t.Log("=== TEST PASSED: Cache Key ===")
}

// TestResponseCacheGetSet tests basic cache get/set operations.
func TestResponseCacheGetSet(t *testing.T) {
	t.Log("=== TEST: Response Cache Get/Set ===")

	cache := NewResponseCache()
	defer cache.Close()

	key := "test-key-123"
	value := []byte(`{"success":true,"data":{"answer":"Practice daily"},"provider":"gemini","message":null}`)

	if _, found := cache.Get(key); found {
		t.Errorf("Expected cache miss for new key")
	}

	cache.Set(key, value)

	cached, found := cache.Get(key)
	if !found {
		t.Fatalf("Expected cache hit after set")
	}
	if string(cached) != string(value) {
		t.Errorf("Expected cached value to match, got %s", string(cached))
	} else {
		t.Log("✓ Cached value matches original")
	}

	t.Log("=== TEST PASSED: Response Cache Get/Set ===")
}

// TestResponseCacheExpiration tests that cache entries expire after TTL.
func TestResponseCacheExpiration(t *testing.T) {
	t.Log("=== TEST: Response Cache Expiration ===")

	cache := NewResponseCache(WithCacheTTL(50 * time.Millisecond))
	defer cache.Close()

	cache.Set("expiring", []byte(`{}`))
	if _, found := cache.Get("expiring"); !found {
		t.Fatal("Expected hit before expiry")
	}

	time.Sleep(80 * time.Millisecond)

	if _, found := cache.Get("expiring"); found {
		t.Error("Expected miss after TTL")
	} else {
		t.Log("✓ Entry expired after TTL")
	}

	if stats := cache.Stats(); stats.Size != 0 {
		t.Errorf("Expected expired entry to be removed, size = %d", stats.Size)
	}

	t.Log("=== TEST PASSED: Response Cache Expiration ===")
}

// TestResponseCacheEviction verifies the oldest entry is dropped when full.
func TestResponseCacheEviction(t *testing.T) {
	t.Log("=== TEST: Response Cache Eviction ===")

	cache := NewResponseCache(WithCacheMaxEntries(2))
	defer cache.Close()

	cache.Set("first", []byte("1"))
	time.Sleep(2 * time.Millisecond)
	cache.Set("second", []byte("2"))
	time.Sleep(2 * time.Millisecond)
	cache.Set("third", []byte("3"))

	if _, found := cache.Get("first"); found {
		t.Error("Expected oldest entry to be evicted")
	}
	for _, key := range []string{"second", "third"} {
		if _, found := cache.Get(key); !found {
			t.Errorf("Expected %s to survive eviction", key)
		}
	}

	// Overwriting an existing key never evicts.
	cache.Set("third", []byte("3b"))
	if _, found := cache.Get("second"); !found {
		t.Error("Overwrite should not evict")
	}

	t.Log("=== TEST PASSED: Response Cache Eviction ===")
}

// TestResponseCacheStats tests hit/miss counters.
func TestResponseCacheStats(t *testing.T) {
	t.Log("=== TEST: Response Cache Stats ===")

	cache := NewResponseCache()
	defer cache.Close()

	cache.Get("missing")
	cache.Set("present", []byte("x"))
	cache.Get("present")
	cache.Get("present")

	stats := cache.Stats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Size != 1 || !stats.Enabled {
		t.Errorf("Unexpected stats: %+v", stats)
	} else {
		t.Logf("✓ Stats: %+v", stats)
	}

	t.Log("=== TEST PASSED: Response Cache Stats ===")
}

// TestResponseCacheConcurrency exercises Get/Set from many goroutines.
func TestResponseCacheConcurrency(t *testing.T) {
	t.Log("=== TEST: Response Cache Concurrency ===")

	cache := NewResponseCache(WithCacheMaxEntries(50))
	defer cache.Close()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", id%20)
			cache.Set(key, []byte(key))
			cache.Get(key)
		}(i)
	}
	wg.Wait()

	stats := cache.Stats()
	if stats.Size > 50 {
		t.Errorf("Size %d exceeds max entries", stats.Size)
	}
	if stats.Hits+stats.Misses != 100 {
		t.Errorf("Expected 100 lookups, got %d", stats.Hits+stats.Misses)
	}

	t.Log("=== TEST PASSED: Response Cache Concurrency ===")
}
