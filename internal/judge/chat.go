package judge

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Chat is the minimal completion surface the anchored judge needs; tests
// substitute a scripted implementation.
type Chat interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// openAIChat backs Chat with an OpenAI-compatible endpoint. It carries the
// same bounded param adaptation as the prediction adapter, since judge
// models hit the identical max_tokens/temperature incompatibilities.
type openAIChat struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIChat builds the judge's completion client. Model resolution
// prefers the explicit argument, then OPENAI_JUDGE_MODEL, then the shared
// model default.
func NewOpenAIChat(model, apiKey, baseURL string, temperature float32, maxTokens int) (Chat, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("judge: OPENAI_API_KEY not set")
	}
	if model == "" {
		model = os.Getenv("OPENAI_JUDGE_MODEL")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if maxTokens == 0 {
		maxTokens = 400
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openAIChat{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

func (c *openAIChat) Complete(ctx context.Context, system, user string) (string, error) {
	useCompletionCap := false
	dropTemperature := false

	var lastErr error
	for round := 0; round < 3; round++ {
		req := openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
		}
		if useCompletionCap {
			req.MaxCompletionTokens = c.maxTokens
		} else {
			req.MaxTokens = c.maxTokens
		}
		if !dropTemperature {
			req.Temperature = c.temperature
		}

		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("judge: %s returned no choices", c.model)
			}
			return strings.TrimSpace(resp.Choices[0].Message.Content), nil
		}
		lastErr = err

		msg := strings.ToLower(err.Error())
		adapted := false
		if !useCompletionCap && strings.Contains(msg, "max_tokens") && strings.Contains(msg, "max_completion_tokens") {
			useCompletionCap = true
			adapted = true
		}
		if !dropTemperature && strings.Contains(msg, "temperature") &&
			(strings.Contains(msg, "unsupported") ||
				strings.Contains(msg, "does not support") ||
				strings.Contains(msg, "only the default")) {
			dropTemperature = true
			adapted = true
		}
		if !adapted {
			return "", err
		}
	}
	return "", fmt.Errorf("judge: param adaptation exhausted: %w", lastErr)
}
