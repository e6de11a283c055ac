// Package orchestrator drives the two-stage generate/review protocol against
// the external generative subsystem.
package orchestrator

import "context"

// ChatMessage is one turn of history handed to the generative subsystem.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generation is the raw output of the generative subsystem.
type Generation struct {
	Output    string
	Reasoning string
	ToolsUsed []string
	Model     string
	TokensIn  int
	TokensOut int
}

// Review is the reviewer's verdict on a generated response.
type Review struct {
	Approved      bool
	RevisedOutput string
	Notes         string
}

// Generator produces a response for a prompt with conversation history and a
// fixed system framing. Implementations wrap a single model provider so they
// can be swapped or stubbed without touching orchestration logic.
type Generator interface {
	Generate(ctx context.Context, system, prompt string, history []ChatMessage) (*Generation, error)
}

// Reviewer evaluates a generated response against the original prompt and
// retrieval context for safety, accuracy and tone.
type Reviewer interface {
	Review(ctx context.Context, prompt, response, kbContext string) (*Review, error)
}
