package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/relaydesk-ai/support-orchestrator/internal/model"
)

func candidates(content string) []model.RetrievalCandidate {
	return []model.RetrievalCandidate{{Content: content, Similarity: 0.9}}
}

func TestResultCache_GetSet(t *testing.T) {
	c := New(time.Minute)

	_, ok := c.Get("how do I reset my password", "kb-1")
	assert.False(t, ok)

	c.Set("how do I reset my password", "kb-1", candidates("reset docs"))

	got, ok := c.Get("how do I reset my password", "kb-1")
	assert.True(t, ok)
	assert.Equal(t, "reset docs", got[0].Content)

	// Same query under a different KB is a distinct key.
	_, ok = c.Get("how do I reset my password", "kb-2")
	assert.False(t, ok)
}

func TestResultCache_TTLExpiry(t *testing.T) {
	c := New(time.Minute)

	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set("billing question", "kb-1", candidates("billing docs"))

	current = current.Add(59 * time.Second)
	_, ok := c.Get("billing question", "kb-1")
	assert.True(t, ok)

	current = current.Add(2 * time.Second)
	_, ok = c.Get("billing question", "kb-1")
	assert.False(t, ok, "entry at or beyond TTL must never be returned")
}

func TestResultCache_SweepOnWrite(t *testing.T) {
	c := New(time.Minute)

	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set("q1", "kb-1", candidates("a"))
	c.Set("q2", "kb-1", candidates("b"))
	assert.Equal(t, 2, c.Len())

	current = current.Add(2 * time.Minute)
	c.Set("q3", "kb-1", candidates("c"))

	// The write swept both expired entries.
	assert.Equal(t, 1, c.Len())
}

func TestResultCache_ConcurrentAccess(t *testing.T) {
	c := New(time.Minute)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 200; j++ {
				c.Set("shared query", "kb-1", candidates("x"))
				if got, ok := c.Get("shared query", "kb-1"); ok {
					assert.Len(t, got, 1)
				}
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
