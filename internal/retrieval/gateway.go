// Package retrieval invokes the external similarity-search capability and
// normalizes its output into ranked candidate lists.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/relaydesk-ai/support-orchestrator/internal/apperr"
	"github.com/relaydesk-ai/support-orchestrator/internal/cache"
	"github.com/relaydesk-ai/support-orchestrator/internal/model"
	"github.com/relaydesk-ai/support-orchestrator/pkg/metrics"
)

// Searcher is the opaque ranked-search capability of the retrieval store.
type Searcher interface {
	Search(ctx context.Context, query, kbID string, limit int) ([]model.RetrievalCandidate, error)
}

// CachedSearcher consults the result cache before the gateway and populates
// it after successful searches. Gateway failures are never cached.
type CachedSearcher struct {
	searcher Searcher
	cache    *cache.ResultCache
	timeout  time.Duration
}

// NewCachedSearcher wraps a searcher with the result cache. Each gateway
// call is bounded by the configured timeout.
func NewCachedSearcher(searcher Searcher, resultCache *cache.ResultCache, timeout time.Duration) *CachedSearcher {
	return &CachedSearcher{searcher: searcher, cache: resultCache, timeout: timeout}
}

// GetOrSearch returns the cached candidates for (query, kbID) when the entry
// is still live, otherwise invokes the gateway and stores the result.
func (s *CachedSearcher) GetOrSearch(ctx context.Context, query, kbID string, limit int) ([]model.RetrievalCandidate, error) {
	// Retrieval disabled; every query answers from conversation context.
	if s.searcher == nil {
		return nil, nil
	}

	if candidates, ok := s.cache.Get(query, kbID); ok {
		metrics.RetrievalCacheHits.Inc()
		return candidates, nil
	}
	metrics.RetrievalCacheMisses.Inc()

	searchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	candidates, err := s.searcher.Search(searchCtx, query, kbID, limit)
	if err != nil {
		metrics.RetrievalDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: similarity search: %v", apperr.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: similarity search: %v", apperr.ErrUpstream, err)
	}
	metrics.RetrievalDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())

	s.cache.Set(query, kbID, candidates)
	return candidates, nil
}
