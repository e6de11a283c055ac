// Package cache provides the TTL-bounded similarity-result cache.
package cache

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/relaydesk-ai/support-orchestrator/internal/model"
)

// entry holds one cached candidate list with its insertion time.
type entry struct {
	candidates []model.RetrievalCandidate
	storedAt   time.Time
}

// ResultCache maps (query text, knowledge-base id) to a previously computed
// ranked retrieval result. A single mutex guards read, write and sweep; the
// lock is never held across a network call. Constructed once at service
// start and injected where needed.
type ResultCache struct {
	mu      sync.Mutex
	entries map[uint64]entry
	ttl     time.Duration
	now     func() time.Time
}

// New creates a result cache with the given TTL.
func New(ttl time.Duration) *ResultCache {
	return &ResultCache{
		entries: make(map[uint64]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Key computes the stable cache key for a query scoped to a knowledge base.
func Key(query, kbID string) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s", query, kbID)
	return h.Sum64()
}

// Get returns the cached candidates for the key if the entry is younger than
// the TTL. Expired entries are never returned.
func (c *ResultCache) Get(query, kbID string) ([]model.RetrievalCandidate, bool) {
	key := Key(query, kbID)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.candidates, true
}

// Set stores candidates for the key and opportunistically sweeps all expired
// entries, bounding growth without a background task.
func (c *ResultCache) Set(query, kbID string, candidates []model.RetrievalCandidate) {
	key := Key(query, kbID)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, k)
		}
	}

	c.entries[key] = entry{candidates: candidates, storedAt: now}
}

// Len reports the number of resident entries, expired or not.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
