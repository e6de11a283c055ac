package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydesk-ai/support-orchestrator/internal/apperr"
	"github.com/relaydesk-ai/support-orchestrator/internal/cache"
	"github.com/relaydesk-ai/support-orchestrator/internal/model"
)

type stubSearcher struct {
	calls   int
	results []model.RetrievalCandidate
	err     error
}

func (s *stubSearcher) Search(_ context.Context, _, _ string, _ int) ([]model.RetrievalCandidate, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func TestGetOrSearch_CachesResult(t *testing.T) {
	searcher := &stubSearcher{results: []model.RetrievalCandidate{{Content: "doc", Similarity: 0.8}}}
	cs := NewCachedSearcher(searcher, cache.New(time.Minute), time.Second)

	first, err := cs.GetOrSearch(context.Background(), "how to install", "kb-1", 5)
	require.NoError(t, err)
	second, err := cs.GetOrSearch(context.Background(), "how to install", "kb-1", 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, searcher.calls, "identical key with live entry invokes the gateway at most once")
}

func TestGetOrSearch_DistinctKBsAreDistinctKeys(t *testing.T) {
	searcher := &stubSearcher{results: []model.RetrievalCandidate{{Content: "doc"}}}
	cs := NewCachedSearcher(searcher, cache.New(time.Minute), time.Second)

	_, err := cs.GetOrSearch(context.Background(), "q", "kb-1", 5)
	require.NoError(t, err)
	_, err = cs.GetOrSearch(context.Background(), "q", "kb-2", 5)
	require.NoError(t, err)

	assert.Equal(t, 2, searcher.calls)
}

func TestGetOrSearch_ErrorIsNotCached(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("store unavailable")}
	cs := NewCachedSearcher(searcher, cache.New(time.Minute), time.Second)

	_, err := cs.GetOrSearch(context.Background(), "q", "kb-1", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUpstream)

	// Recovery: the next call hits the gateway again and succeeds.
	searcher.err = nil
	searcher.results = []model.RetrievalCandidate{{Content: "doc"}}
	got, err := cs.GetOrSearch(context.Background(), "q", "kb-1", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 2, searcher.calls)
}

func TestGetOrSearch_TimeoutMapsToUpstreamTimeout(t *testing.T) {
	searcher := &stubSearcher{err: context.DeadlineExceeded}
	cs := NewCachedSearcher(searcher, cache.New(time.Minute), time.Second)

	_, err := cs.GetOrSearch(context.Background(), "q", "kb-1", 5)
	assert.ErrorIs(t, err, apperr.ErrUpstreamTimeout)
}
