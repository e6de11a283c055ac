package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/relaydesk-ai/support-orchestrator/pkg/metrics"
)

const (
	defaultAnthropicModel = "claude-3-5-sonnet-20241022"
	anthropicMaxTokens    = 4096
)

// AnthropicClient implements Generator and Reviewer over the Anthropic
// messages API.
type AnthropicClient struct {
	client      *anthropic.Client
	model       string
	reviewModel string
}

// NewAnthropicClient creates an Anthropic-backed generator/reviewer. The
// review stage may run on a cheaper model; it falls back to the generation
// model.
func NewAnthropicClient(apiKey, model, reviewModel string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	if reviewModel == "" {
		reviewModel = model
	}
	return &AnthropicClient{
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		reviewModel: reviewModel,
	}, nil
}

// Generate sends the prompt with history. The system framing is folded into
// the final user turn since the messages API requires user/assistant
// alternation.
func (c *AnthropicClient) Generate(ctx context.Context, system, prompt string, history []ChatMessage) (*Generation, error) {
	start := time.Now()

	messages := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, textMessage(turn.Role, turn.Content))
	}
	messages = append(messages, textMessage("user", system+"\n\n"+prompt))

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.F(c.model),
		MaxTokens: anthropic.F(int64(anthropicMaxTokens)),
		Messages:  anthropic.F(messages),
	})
	if err != nil {
		metrics.RecordLLMCall("generate", c.model, "error", time.Since(start).Seconds(), 0, 0)
		return nil, err
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content += block.Text
		}
	}

	metrics.RecordLLMCall("generate", resp.Model, "success", time.Since(start).Seconds(),
		int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens))

	return &Generation{
		Output:    content,
		Model:     resp.Model,
		TokensIn:  int(resp.Usage.InputTokens),
		TokensOut: int(resp.Usage.OutputTokens),
	}, nil
}

// Review evaluates a response using the same approval protocol as the
// OpenAI reviewer.
func (c *AnthropicClient) Review(ctx context.Context, prompt, response, kbContext string) (*Review, error) {
	start := time.Now()

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.F(c.reviewModel),
		MaxTokens: anthropic.F(int64(anthropicMaxTokens)),
		Messages: anthropic.F([]anthropic.MessageParam{
			textMessage("user", reviewSystemPrompt+"\n\n"+reviewPrompt(prompt, response, kbContext)),
		}),
	})
	if err != nil {
		metrics.RecordLLMCall("review", c.reviewModel, "error", time.Since(start).Seconds(), 0, 0)
		return nil, err
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content += block.Text
		}
	}
	metrics.RecordLLMCall("review", resp.Model, "success", time.Since(start).Seconds(),
		int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens))

	return parseReview(content), nil
}

func textMessage(role, content string) anthropic.MessageParam {
	return anthropic.MessageParam{
		Role: anthropic.F(anthropic.MessageParamRole(role)),
		Content: anthropic.F([]anthropic.MessageParamContentUnion{
			anthropic.TextBlockParam{
				Type: anthropic.F(anthropic.TextBlockParamTypeText),
				Text: anthropic.F(content),
			},
		}),
	}
}
