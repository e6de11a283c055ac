package orchestrator

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/relaydesk-ai/support-orchestrator/internal/contextbuild"
	"github.com/relaydesk-ai/support-orchestrator/internal/model"
	"github.com/relaydesk-ai/support-orchestrator/pkg/logger"
)

const (
	// FallbackOutput is returned when every generation attempt fails.
	FallbackOutput = "I'm having trouble generating a response right now. Please try again in a moment."

	// HandoffSentence is appended when escalation is detected.
	HandoffSentence = "It sounds like this needs a closer look from our support team. Could you share your email address so a team member can follow up with you?"

	systemFraming = `You are a support assistant answering questions for this organization's customers.
Answer using the provided knowledge-base context. If the context does not
contain relevant information, say so clearly. Be concise and helpful.`

	// History is bounded to the last 6 turns before generation.
	maxHistoryTurns = 6

	// Context at or above this length suppresses complex-issue escalation,
	// letting the assistant attempt an answer instead.
	sufficientContextBytes = 200

	maxBackoff = 8 * time.Second
)

// Config tunes the orchestrator's heuristics. Keyword tables are loaded
// configuration.
type Config struct {
	ConfidenceThreshold float64
	HandoffKeywords     []string
	ComplexKeywords     []string
	Attempts            int
	CallTimeout         time.Duration
}

// Orchestrator runs Generate → ScoreConfidence → DetectEscalation → Review →
// Finalize for each query.
type Orchestrator struct {
	generator Generator
	reviewer  Reviewer
	cfg       Config
	logger    *logger.Logger
	sleep     func(time.Duration)
}

// New creates an orchestrator with injected generation and review strategies.
func New(generator Generator, reviewer Reviewer, cfg Config, log *logger.Logger) *Orchestrator {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &Orchestrator{
		generator: generator,
		reviewer:  reviewer,
		cfg:       cfg,
		logger:    log,
		sleep:     time.Sleep,
	}
}

// Generate produces a reviewed agent response for the prompt. Identical
// inputs are not guaranteed identical outputs; the generative subsystem is
// non-deterministic.
func (o *Orchestrator) Generate(ctx context.Context, prompt, kbContext string, history []model.Message) (*model.AgentResponse, error) {
	turns := boundHistory(history, maxHistoryTurns)

	gen, err := o.generateWithRetry(ctx, prompt, turns)
	if err != nil {
		// All attempts failed: canned fallback, confidence 0, review skipped.
		o.logger.Warn("generation failed after retries", zap.Error(err))
		return &model.AgentResponse{
			Output:     FallbackOutput,
			Confidence: 0,
		}, nil
	}

	confidence := scoreConfidence(gen.Output, len(gen.ToolsUsed), kbContext)
	shouldEscalate, reason := o.detectEscalation(prompt, kbContext, confidence)

	output := o.review(ctx, prompt, gen.Output, kbContext)

	resp := &model.AgentResponse{
		Output:           output,
		Reasoning:        gen.Reasoning,
		ToolsUsed:        gen.ToolsUsed,
		Confidence:       confidence,
		ShouldEscalate:   shouldEscalate,
		EscalationReason: reason,
	}

	if shouldEscalate {
		resp.Output = resp.Output + "\n\n" + HandoffSentence
		resp.NeedsEmail = true
	}

	return resp, nil
}

// generateWithRetry calls the generator with exponential backoff up to the
// configured attempt count.
func (o *Orchestrator) generateWithRetry(ctx context.Context, prompt string, history []ChatMessage) (*Generation, error) {
	backoff := time.Second
	var lastErr error

	for attempt := 1; attempt <= o.cfg.Attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
		gen, err := o.generator.Generate(callCtx, systemFraming, prompt, history)
		cancel()
		if err == nil {
			return gen, nil
		}
		lastErr = err

		if attempt < o.cfg.Attempts {
			o.logger.Warn("generation attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			o.sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
	return nil, lastErr
}

// review runs the second-stage reviewer. A reviewer failure never blocks the
// response: the unreviewed output is used as-is.
func (o *Orchestrator) review(ctx context.Context, prompt, output, kbContext string) string {
	if o.reviewer == nil {
		return output
	}

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()

	verdict, err := o.reviewer.Review(callCtx, prompt, output, kbContext)
	if err != nil {
		o.logger.Warn("review pass failed, using unreviewed output", zap.Error(err))
		return output
	}
	if !verdict.Approved && verdict.RevisedOutput != "" {
		return verdict.RevisedOutput
	}
	return output
}

// scoreConfidence is a deterministic function of output length, tool count
// and context presence: additive terms over a floor base, capped at 1.0.
func scoreConfidence(output string, toolCount int, kbContext string) float64 {
	const (
		base            = 0.3
		lengthWeight    = 0.3
		lengthSaturates = 600.0
		toolWeight      = 0.2
		toolSaturates   = 3.0
		contextWeight   = 0.2
	)

	score := base
	score += math.Min(float64(len(output))/lengthSaturates, 1.0) * lengthWeight
	score += math.Min(float64(toolCount)/toolSaturates, 1.0) * toolWeight
	if hasContext(kbContext) {
		score += contextWeight
	}
	return math.Min(score, 1.0)
}

// detectEscalation triggers on low confidence, an explicit handoff keyword,
// or a complex-issue keyword without sufficient knowledge-base context.
func (o *Orchestrator) detectEscalation(prompt, kbContext string, confidence float64) (bool, string) {
	if confidence < o.cfg.ConfidenceThreshold {
		return true, "low confidence"
	}

	lowered := strings.ToLower(prompt)
	for _, kw := range o.cfg.HandoffKeywords {
		if strings.Contains(lowered, kw) {
			return true, "handoff requested"
		}
	}

	if !hasContext(kbContext) || len(kbContext) < sufficientContextBytes {
		for _, kw := range o.cfg.ComplexKeywords {
			if strings.Contains(lowered, kw) {
				return true, "complex issue without context"
			}
		}
	}

	return false, ""
}

func hasContext(kbContext string) bool {
	return kbContext != "" && kbContext != contextbuild.NoContextSentinel
}

// boundHistory keeps the most recent turns in chat format.
func boundHistory(history []model.Message, max int) []ChatMessage {
	if len(history) > max {
		history = history[len(history)-max:]
	}
	turns := make([]ChatMessage, 0, len(history))
	for _, msg := range history {
		role := "user"
		if msg.Sender == model.SenderAI || msg.Sender == model.SenderHumanAgent {
			role = "assistant"
		}
		turns = append(turns, ChatMessage{Role: role, Content: msg.Content})
	}
	return turns
}
