package storyverse

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// TextGenerator is the external text-generation collaborator.
type TextGenerator interface {
	SendMessage(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLMClient talks to any OpenAI-compatible chat completion endpoint
// (OpenAI, OpenRouter, a self-hosted Ollama).
type LLMClient struct {
	client *openai.Client
	model  string
}

func NewLLMClient(apiKey, baseURL, model string) *LLMClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &LLMClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (c *LLMClient) SendMessage(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var messages []openai.ChatCompletionMessage
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userPrompt})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from chat completion")
	}
	return resp.Choices[0].Message.Content, nil
}

// RateLimited spaces out calls to the wrapped generator.
type RateLimited struct {
	next    TextGenerator
	limiter *rate.Limiter
}

// NewRateLimited allows perMinute calls per minute with a burst of one.
// A non-positive rate returns next unwrapped.
func NewRateLimited(next TextGenerator, perMinute int) TextGenerator {
	if perMinute <= 0 {
		return next
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60), 1),
	}
}

func (r *RateLimited) SendMessage(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return r.next.SendMessage(ctx, systemPrompt, userPrompt)
}
