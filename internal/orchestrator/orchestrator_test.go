package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydesk-ai/support-orchestrator/internal/contextbuild"
	"github.com/relaydesk-ai/support-orchestrator/internal/model"
	"github.com/relaydesk-ai/support-orchestrator/pkg/logger"
)

type stubGenerator struct {
	calls    int
	failures int
	output   string
	history  []ChatMessage
	err      error
}

func (g *stubGenerator) Generate(_ context.Context, _, _ string, history []ChatMessage) (*Generation, error) {
	g.calls++
	g.history = history
	if g.err != nil && g.calls <= g.failures {
		return nil, g.err
	}
	if g.err != nil && g.failures == 0 {
		return nil, g.err
	}
	return &Generation{Output: g.output}, nil
}

type stubReviewer struct {
	calls   int
	verdict *Review
	err     error
}

func (r *stubReviewer) Review(_ context.Context, _, _, _ string) (*Review, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.verdict, nil
}

func newOrchestrator(g Generator, r Reviewer) *Orchestrator {
	log, _ := logger.New("error")
	o := New(g, r, Config{
		ConfidenceThreshold: 0.4,
		HandoffKeywords:     []string{"human", "supervisor", "representative"},
		ComplexKeywords:     []string{"broken", "urgent", "refund"},
		Attempts:            3,
		CallTimeout:         time.Second,
	}, log)
	o.sleep = func(time.Duration) {}
	return o
}

func TestGenerate_HappyPath(t *testing.T) {
	gen := &stubGenerator{output: strings.Repeat("Here is a detailed answer. ", 30)}
	rev := &stubReviewer{verdict: &Review{Approved: true}}
	o := newOrchestrator(gen, rev)

	resp, err := o.Generate(context.Background(), "how do I configure webhooks?", "webhook docs context here, long enough to count as real retrieval context for this organization's knowledge base and then some extra padding to be safe", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 1, rev.calls)
	assert.False(t, resp.ShouldEscalate)
	assert.False(t, resp.NeedsEmail)
	assert.GreaterOrEqual(t, resp.Confidence, 0.4)
	assert.NotContains(t, resp.Output, HandoffSentence)
}

func TestGenerate_RetriesThenSucceeds(t *testing.T) {
	gen := &stubGenerator{output: strings.Repeat("answer ", 100), err: errors.New("rate limited"), failures: 2}
	o := newOrchestrator(gen, &stubReviewer{verdict: &Review{Approved: true}})

	resp, err := o.Generate(context.Background(), "question", "", nil)
	require.NoError(t, err)

	assert.Equal(t, 3, gen.calls)
	assert.NotEqual(t, FallbackOutput, resp.Output)
}

func TestGenerate_AllAttemptsFailFallsBack(t *testing.T) {
	gen := &stubGenerator{err: errors.New("overloaded")}
	rev := &stubReviewer{verdict: &Review{Approved: true}}
	o := newOrchestrator(gen, rev)

	resp, err := o.Generate(context.Background(), "question", "", nil)
	require.NoError(t, err)

	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, FallbackOutput, resp.Output)
	assert.Zero(t, resp.Confidence)
	assert.False(t, resp.ShouldEscalate)
	assert.Equal(t, 0, rev.calls, "review is skipped on fallback")
}

func TestGenerate_EscalatesOnHandoffKeyword(t *testing.T) {
	gen := &stubGenerator{output: strings.Repeat("I can help with that. ", 40)}
	o := newOrchestrator(gen, &stubReviewer{verdict: &Review{Approved: true}})

	resp, err := o.Generate(context.Background(), "my integration API is broken and I need a supervisor", "", nil)
	require.NoError(t, err)

	assert.True(t, resp.ShouldEscalate)
	assert.True(t, resp.NeedsEmail)
	assert.Contains(t, resp.Output, HandoffSentence)
}

func TestGenerate_ComplexKeywordSuppressedByContext(t *testing.T) {
	gen := &stubGenerator{output: strings.Repeat("Troubleshooting steps. ", 40)}
	o := newOrchestrator(gen, &stubReviewer{verdict: &Review{Approved: true}})

	longContext := strings.Repeat("relevant troubleshooting documentation ", 20)

	resp, err := o.Generate(context.Background(), "the export feature is broken", longContext, nil)
	require.NoError(t, err)
	assert.False(t, resp.ShouldEscalate, "sufficient context lets the assistant attempt an answer")

	resp, err = o.Generate(context.Background(), "the export feature is broken", contextbuild.NoContextSentinel, nil)
	require.NoError(t, err)
	assert.True(t, resp.ShouldEscalate)
	assert.Equal(t, "complex issue without context", resp.EscalationReason)
}

func TestGenerate_ReviewerRevisesOutput(t *testing.T) {
	gen := &stubGenerator{output: strings.Repeat("draft answer ", 60)}
	rev := &stubReviewer{verdict: &Review{Approved: false, RevisedOutput: "polished answer"}}
	o := newOrchestrator(gen, rev)

	resp, err := o.Generate(context.Background(), "question", strings.Repeat("context ", 40), nil)
	require.NoError(t, err)
	assert.Equal(t, "polished answer", resp.Output)
}

func TestGenerate_ReviewerFailureNeverBlocks(t *testing.T) {
	gen := &stubGenerator{output: strings.Repeat("good answer ", 60)}
	rev := &stubReviewer{err: errors.New("reviewer down")}
	o := newOrchestrator(gen, rev)

	resp, err := o.Generate(context.Background(), "question", strings.Repeat("context ", 40), nil)
	require.NoError(t, err)
	assert.Equal(t, gen.output, resp.Output)
}

func TestGenerate_HistoryBoundedToSixTurns(t *testing.T) {
	gen := &stubGenerator{output: strings.Repeat("answer ", 60)}
	o := newOrchestrator(gen, &stubReviewer{verdict: &Review{Approved: true}})

	history := make([]model.Message, 10)
	for i := range history {
		history[i] = model.Message{Sender: model.SenderUser, Content: "turn"}
	}

	_, err := o.Generate(context.Background(), "question", "", history)
	require.NoError(t, err)
	assert.Len(t, gen.history, 6)
}

func TestScoreConfidence(t *testing.T) {
	t.Run("floor base for empty output", func(t *testing.T) {
		assert.InDelta(t, 0.3, scoreConfidence("", 0, ""), 0.001)
	})

	t.Run("length contribution is capped", func(t *testing.T) {
		long := scoreConfidence(strings.Repeat("x", 600), 0, "")
		longer := scoreConfidence(strings.Repeat("x", 60000), 0, "")
		assert.Equal(t, long, longer)
	})

	t.Run("context adds fixed contribution", func(t *testing.T) {
		without := scoreConfidence("answer", 0, "")
		with := scoreConfidence("answer", 0, "real context")
		assert.InDelta(t, 0.2, with-without, 0.001)
	})

	t.Run("sentinel context counts as absent", func(t *testing.T) {
		assert.Equal(t,
			scoreConfidence("answer", 0, ""),
			scoreConfidence("answer", 0, contextbuild.NoContextSentinel),
		)
	})

	t.Run("never exceeds 1.0", func(t *testing.T) {
		score := scoreConfidence(strings.Repeat("x", 10000), 10, "context")
		assert.LessOrEqual(t, score, 1.0)
	})
}
