package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	. "github.com/roelfdiedericks/docsum/internal/logging"
	"github.com/sashabaranov/go-openai"
)

// GeminiBaseURL is Gemini's OpenAI-compatible endpoint.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// OpenAIProvider implements Provider and StructuredProvider using the OpenAI
// chat completions API. Works with OpenAI and, through its compatibility
// endpoint, Gemini.
type OpenAIProvider struct {
	name      string
	driver    string
	client    *openai.Client
	model     string
	maxTokens int
	baseURL   string
	dumper    *Dumper
}

// NewOpenAIProvider creates a new OpenAI-compatible provider from ProviderConfig.
// The "gemini" driver defaults BaseURL to GeminiBaseURL.
func NewOpenAIProvider(name string, cfg ProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrUnavailable{Provider: name, Reason: "no API key configured"}
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" && cfg.Driver == "gemini" {
		baseURL = GeminiBaseURL
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	timeoutSeconds := cfg.TimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 120
	}
	httpClient, dumper := newHTTPClient(time.Duration(timeoutSeconds)*time.Second, cfg.DumpDir)
	config.HTTPClient = httpClient

	displayURL := baseURL
	if displayURL == "" {
		displayURL = "(default)"
	}
	L_debug("openai provider created", "name", name, "driver", cfg.Driver, "baseURL", displayURL, "maxTokens", cfg.MaxTokens)

	return &OpenAIProvider{
		name:      name,
		driver:    cfg.Driver,
		client:    openai.NewClientWithConfig(config),
		maxTokens: cfg.MaxTokens,
		baseURL:   baseURL,
		dumper:    dumper,
	}, nil
}

// Name returns the provider instance name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Type returns the driver type
func (p *OpenAIProvider) Type() string {
	if p.driver == "" {
		return "openai"
	}
	return p.driver
}

// Model returns the current model name
func (p *OpenAIProvider) Model() string {
	return p.model
}

// WithModel returns a clone configured for model. The HTTP client is shared.
func (p *OpenAIProvider) WithModel(model string) Provider {
	clone := *p
	clone.model = model
	return &clone
}

func (p *OpenAIProvider) buildRequest(userMessage, systemPrompt string) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})
	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: messages,
	}
	if p.maxTokens > 0 {
		req.MaxTokens = p.maxTokens
	}
	return req
}

func (p *OpenAIProvider) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if p.model == "" {
		return "", ErrUnavailable{Provider: p.name, Reason: "no model selected"}
	}
	start := time.Now()
	L_info("llm: request started", "provider", p.name, "model", p.model)

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		L_debug("llm: request failed", "provider", p.name, "model", p.model, "type", ClassifyError(err.Error()), "error", err)
		p.dumper.DumpError(p.name, p.model, err)
		return "", fmt.Errorf("%s/%s: %w", p.name, p.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s/%s: response contained no choices", p.name, p.model)
	}

	L_debug("llm: request completed",
		"provider", p.name,
		"model", p.model,
		"inputTokens", resp.Usage.PromptTokens,
		"outputTokens", resp.Usage.CompletionTokens,
		"duration", time.Since(start).Round(time.Millisecond))
	return resp.Choices[0].Message.Content, nil
}

// SimpleMessage sends a simple user message and returns the response text.
func (p *OpenAIProvider) SimpleMessage(ctx context.Context, userMessage, systemPrompt string) (string, error) {
	return p.complete(ctx, p.buildRequest(userMessage, systemPrompt))
}

// StructuredMessage requests a response constrained to schema and decodes it into out.
func (p *OpenAIProvider) StructuredMessage(ctx context.Context, prompt string, schema Schema, out any) error {
	if schema.Definition == nil {
		return fmt.Errorf("%s: schema %q has no definition", p.name, schema.Name)
	}
	req := p.buildRequest(prompt, "")
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:        schema.Name,
			Description: schema.Description,
			Schema:      schema.Definition,
			Strict:      true,
		},
	}
	raw, err := p.complete(ctx, req)
	if err != nil {
		return err
	}
	return decodeStructured(p.name, raw, out)
}
