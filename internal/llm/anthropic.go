package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	. "github.com/roelfdiedericks/docsum/internal/logging"
)

// AnthropicProvider implements Provider and StructuredProvider for Claude models.
// Structured output is obtained by forcing a single tool call whose input
// schema is the requested schema.
type AnthropicProvider struct {
	name      string
	client    anthropic.Client
	model     string
	maxTokens int
	dumper    *Dumper
}

// NewAnthropicProvider creates a new Anthropic provider from ProviderConfig.
func NewAnthropicProvider(name string, cfg ProviderConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrUnavailable{Provider: name, Reason: "no API key configured"}
	}

	timeoutSeconds := cfg.TimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 120
	}
	httpClient, dumper := newHTTPClient(time.Duration(timeoutSeconds)*time.Second, cfg.DumpDir)
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0), // tier fallback decides what happens on 429
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	L_debug("anthropic provider created", "name", name, "maxTokens", maxTokens)
	return &AnthropicProvider{
		name:      name,
		client:    anthropic.NewClient(opts...),
		maxTokens: maxTokens,
		dumper:    dumper,
	}, nil
}

// Name returns the provider instance name
func (p *AnthropicProvider) Name() string {
	return p.name
}

// Type returns the driver type
func (p *AnthropicProvider) Type() string {
	return "anthropic"
}

// Model returns the current model name
func (p *AnthropicProvider) Model() string {
	return p.model
}

// WithModel returns a clone configured for model
func (p *AnthropicProvider) WithModel(model string) Provider {
	clone := *p
	clone.model = model
	return &clone
}

func (p *AnthropicProvider) params(userMessage, systemPrompt string) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	return params
}

func (p *AnthropicProvider) send(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	if p.model == "" {
		return nil, ErrUnavailable{Provider: p.name, Reason: "no model selected"}
	}
	start := time.Now()
	L_info("llm: request started", "provider", p.name, "model", p.model)

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		L_debug("llm: request failed", "provider", p.name, "model", p.model, "type", ClassifyError(err.Error()), "error", err)
		p.dumper.DumpError(p.name, p.model, err)
		return nil, fmt.Errorf("%s/%s: %w", p.name, p.model, err)
	}
	L_debug("llm: request completed",
		"provider", p.name,
		"model", p.model,
		"inputTokens", msg.Usage.InputTokens,
		"outputTokens", msg.Usage.OutputTokens,
		"stopReason", msg.StopReason,
		"duration", time.Since(start).Round(time.Millisecond))
	return msg, nil
}

// SimpleMessage sends a simple user message and returns the concatenated text blocks.
func (p *AnthropicProvider) SimpleMessage(ctx context.Context, userMessage, systemPrompt string) (string, error) {
	msg, err := p.send(ctx, p.params(userMessage, systemPrompt))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String(), nil
}

// StructuredMessage forces a tool call named after the schema and decodes its input into out.
func (p *AnthropicProvider) StructuredMessage(ctx context.Context, prompt string, schema Schema, out any) error {
	if schema.Definition == nil {
		return fmt.Errorf("%s: schema %q has no definition", p.name, schema.Name)
	}
	params := p.params(prompt, "")
	params.Tools = []anthropic.ToolUnionParam{{
		OfTool: &anthropic.ToolParam{
			Name:        schema.Name,
			Description: anthropic.String(schema.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema.Definition.Properties,
				Required:   schema.Definition.Required,
			},
		},
	}}
	params.ToolChoice = anthropic.ToolChoiceUnionParam{
		OfTool: &anthropic.ToolChoiceToolParam{Name: schema.Name},
	}

	msg, err := p.send(ctx, params)
	if err != nil {
		return err
	}
	for _, block := range msg.Content {
		if use, ok := block.AsAny().(anthropic.ToolUseBlock); ok && use.Name == schema.Name {
			return decodeStructured(p.name, string(use.Input), out)
		}
	}
	return fmt.Errorf("%s: malformed structured response: no %s tool call", p.name, schema.Name)
}
