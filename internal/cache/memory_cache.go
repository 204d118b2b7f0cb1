package cache

import (
	"sync"
	"time"

	"github.com/adityap2202/portfolios/internal/quotes"
)

// QuoteCache is an in-memory TTL cache of resolved quotes keyed by ISIN.
// Only successful resolutions are cached; unresolved outcomes are
// re-attempted on the next refresh. Nothing is persisted across restarts.
type QuoteCache struct {
	mu       sync.RWMutex
	results  map[string]quoteEntry
	quoteTTL time.Duration
}

type quoteEntry struct {
	result    quotes.Result
	fetchedAt time.Time
}

// NewQuoteCache creates a quote cache with the given TTL.
func NewQuoteCache(quoteTTL time.Duration) *QuoteCache {
	return &QuoteCache{
		results:  make(map[string]quoteEntry),
		quoteTTL: quoteTTL,
	}
}

// Get retrieves a cached result if still fresh.
func (c *QuoteCache) Get(isin string) (quotes.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.results[isin]
	if !exists {
		return quotes.Result{}, false
	}
	if time.Since(entry.fetchedAt) > c.quoteTTL {
		return quotes.Result{}, false
	}
	return entry.result, true
}

// Set caches a resolved result. Unresolved results are ignored.
func (c *QuoteCache) Set(result quotes.Result) {
	if !result.Resolved {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results[result.Identifier] = quoteEntry{
		result:    result,
		fetchedAt: time.Now(),
	}
}

// Invalidate removes one ISIN from the cache.
func (c *QuoteCache) Invalidate(isin string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.results, isin)
}

// Clear removes all cached quotes.
func (c *QuoteCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results = make(map[string]quoteEntry)
}
