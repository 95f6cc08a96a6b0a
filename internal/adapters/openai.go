package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"circuitbench/internal/logging"
)

// paramAdaptRounds bounds how many times one Predict call may rewrite its
// request parameters after a rejection before giving up.
const paramAdaptRounds = 3

// OpenAI talks to any OpenAI-compatible chat completion endpoint. Vendors
// with compatible APIs are reached through the BaseURL override.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	log         *slog.Logger
}

// NewOpenAI builds the adapter from Options, with environment fallbacks for
// the key and model matching the usual OpenAI client conventions.
func NewOpenAI(opts Options) (*OpenAI, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("adapters: OPENAI_API_KEY not set")
	}
	model := opts.Model
	if model == "" {
		model = os.Getenv("OPENAI_MODEL")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = 0.2
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 800
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		log:         logging.New("adapter.openai"),
	}, nil
}

func (o *OpenAI) Name() string { return "openai" }

// Predict sends one chat completion. When the endpoint rejects a request
// parameter it rewrites the request and retries: max_tokens becomes
// max_completion_tokens, an unsupported temperature is dropped. Rewrites are
// bounded so a genuinely failing call cannot loop.
func (o *OpenAI) Predict(ctx context.Context, req Request) (string, error) {
	useCompletionCap := false
	dropTemperature := false

	var lastErr error
	for round := 0; round < paramAdaptRounds; round++ {
		chat := openai.ChatCompletionRequest{
			Model: o.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: UserMessage(req)},
			},
		}
		if useCompletionCap {
			chat.MaxCompletionTokens = o.maxTokens
		} else {
			chat.MaxTokens = o.maxTokens
		}
		if !dropTemperature {
			chat.Temperature = o.temperature
		}

		resp, err := o.client.CreateChatCompletion(ctx, chat)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("adapters: %s returned no choices", o.model)
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
			return "", fmt.Errorf("adapters: chat completion: %w", err)
		}
		o.log.Warn("adapting request params", "model", o.model,
			"max_completion_tokens", useCompletionCap, "drop_temperature", dropTemperature)
	}
	return "", fmt.Errorf("adapters: param adaptation exhausted: %w", lastErr)
}
