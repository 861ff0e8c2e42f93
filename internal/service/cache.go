package service

import (
	"strings"
	"sync"
	"time"

	"github.com/archiva-labs/doclib/internal/domain"
	"github.com/archiva-labs/doclib/internal/index"
)

// DefaultCacheTTL is how long cached answers stay valid
const DefaultCacheTTL = 15 * time.Minute

// NormalizeQuestion canonicalizes a question for cache keying: lowercased,
// trimmed, with internal whitespace runs collapsed to single spaces.
func NormalizeQuestion(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(question)), " ")
}

// cacheKey combines the normalized question with the filter fingerprint so
// the same question against different filters never shares an entry
func cacheKey(question string, filter index.Filter) string {
	key := NormalizeQuestion(question)
	if fp := filter.Fingerprint(); fp != "" {
		key += "|" + fp
	}
	return key
}

type cacheEntry struct {
	query     *domain.Query
	expiresAt time.Time
}

// QueryCache is an in-memory TTL cache of answered queries. The whole cache
// is invalidated whenever the corpus changes, since any ingestion or removal
// can change what is retrievable for any question.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewQueryCache creates a new QueryCache with the given TTL
func NewQueryCache(ttl time.Duration) *QueryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &QueryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached query for the question and filter, or nil on a miss.
// Expired entries are removed on access.
func (c *QueryCache) Get(question string, filter index.Filter) *domain.Query {
	key := cacheKey(question, filter)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil
	}
	return entry.query
}

// Put stores an answered query under the question and filter
func (c *QueryCache) Put(question string, filter index.Filter, query *domain.Query) {
	if query == nil {
		return
	}
	key := cacheKey(question, filter)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		query:     query,
		expiresAt: c.now().Add(c.ttl),
	}
}

// InvalidateAll drops every cached entry
func (c *QueryCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of entries, including any not yet evicted
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
