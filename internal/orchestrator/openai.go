package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/relaydesk-ai/support-orchestrator/pkg/metrics"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAIClient implements Generator and Reviewer over the OpenAI chat API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	reviewModel string
}

// NewOpenAIClient creates an OpenAI-backed generator/reviewer. The review
// stage may run on a cheaper model; it falls back to the generation model.
func NewOpenAIClient(apiKey, model, reviewModel string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	if reviewModel == "" {
		reviewModel = model
	}
	return &OpenAIClient{
		client:      openai.NewClient(apiKey),
		model:       model,
		reviewModel: reviewModel,
	}, nil
}

// Generate sends the prompt with history and system framing.
func (c *OpenAIClient) Generate(ctx context.Context, system, prompt string, history []ChatMessage) (*Generation, error) {
	start := time.Now()

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, turn := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		metrics.RecordLLMCall("generate", c.model, "error", time.Since(start).Seconds(), 0, 0)
		return nil, err
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	metrics.RecordLLMCall("generate", resp.Model, "success", time.Since(start).Seconds(),
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return &Generation{
		Output:    content,
		Model:     resp.Model,
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
	}, nil
}

// Review asks the model to evaluate a response. The reviewer replies either
// with the literal token APPROVED or with a corrected response body.
func (c *OpenAIClient) Review(ctx context.Context, prompt, response, kbContext string) (*Review, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.reviewModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: reviewSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: reviewPrompt(prompt, response, kbContext)},
		},
	})
	if err != nil {
		metrics.RecordLLMCall("review", c.reviewModel, "error", time.Since(start).Seconds(), 0, 0)
		return nil, err
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	metrics.RecordLLMCall("review", resp.Model, "success", time.Since(start).Seconds(),
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return parseReview(content), nil
}

const reviewSystemPrompt = `You review AI support responses for safety, accuracy and tone.
If the response is acceptable, reply with exactly: APPROVED
Otherwise reply with a corrected version of the response and nothing else.`

func reviewPrompt(prompt, response, kbContext string) string {
	return fmt.Sprintf("User question:\n%s\n\nKnowledge-base context:\n%s\n\nProposed response:\n%s", prompt, kbContext, response)
}

func parseReview(content string) *Review {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(strings.ToUpper(trimmed), "APPROVED") {
		return &Review{Approved: true}
	}
	return &Review{Approved: false, RevisedOutput: trimmed, Notes: "reviewer revised output"}
}
