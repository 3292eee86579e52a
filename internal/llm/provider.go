// Package llm provides the hosted and local model collaborators used by the
// summarization backends and the analyzer.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Provider is the interface for hosted chat-style LLMs.
// Implementations: OpenAIProvider (OpenAI and Gemini), AnthropicProvider
type Provider interface {
	Name() string  // Provider instance name (e.g., "gemini")
	Type() string  // Driver type (e.g., "gemini", "openai", "anthropic")
	Model() string // Current model name

	WithModel(model string) Provider // Clone with different model

	// SimpleMessage sends one user turn and returns the response text.
	SimpleMessage(ctx context.Context, userMessage, systemPrompt string) (string, error)
}

// StructuredProvider is a Provider that can constrain its output to a JSON schema.
type StructuredProvider interface {
	Provider

	// StructuredMessage sends prompt and decodes the schema-conforming
	// response into out.
	StructuredMessage(ctx context.Context, prompt string, schema Schema, out any) error
}

// Schema describes a structured output request.
type Schema struct {
	Name        string
	Description string
	Definition  *jsonschema.Definition
}

// SchemaFor builds a Schema from the json/description/enum tags of v.
func SchemaFor(name, description string, v any) (Schema, error) {
	def, err := jsonschema.GenerateSchemaForType(v)
	if err != nil {
		return Schema{}, fmt.Errorf("schema %s: %w", name, err)
	}
	return Schema{Name: name, Description: description, Definition: def}, nil
}

// MustSchemaFor is SchemaFor for package-level schemas.
func MustSchemaFor(name, description string, v any) Schema {
	s, err := SchemaFor(name, description, v)
	if err != nil {
		panic(err)
	}
	return s
}

// decodeStructured unmarshals a model response and reports a format error
// that ClassifyError recognises.
func decodeStructured(provider, raw string, out any) error {
	if raw == "" {
		return fmt.Errorf("%s: empty structured response", provider)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%s: malformed structured response: %w", provider, err)
	}
	return nil
}

// GenerateRequest is one local seq2seq inference call.
type GenerateRequest struct {
	Model         string
	Text          string
	MaxNewTokens  int
	MinLength     int
	Deterministic bool // greedy decoding, no sampling
	Truncate      bool // ask the server to cut input to the model window
}

// Seq2Seq is a locally hosted summarization model.
// Implementations: InferenceServer, OllamaSeq2Seq
type Seq2Seq interface {
	Name() string
	Summarize(ctx context.Context, req GenerateRequest) (string, error)
}

// ErrNotSupported is returned when a provider doesn't support an operation
type ErrNotSupported struct {
	Provider  string
	Operation string
}

func (e ErrNotSupported) Error() string {
	return e.Provider + " does not support " + e.Operation
}

// ErrUnavailable is returned when a provider is not available
type ErrUnavailable struct {
	Provider string
	Reason   string
}

func (e ErrUnavailable) Error() string {
	if e.Reason != "" {
		return e.Provider + " is unavailable: " + e.Reason
	}
	return e.Provider + " is unavailable"
}

// ProviderConfig is the configuration for a single hosted provider instance
type ProviderConfig struct {
	Driver         string // "gemini", "openai", "anthropic"
	APIKey         string
	BaseURL        string // Override for OpenAI-compatible endpoints
	MaxTokens      int    // Output limit (0 = driver default)
	TimeoutSeconds int
	DumpDir        string // failed requests are written here when set
}

// LocalConfig is the configuration for the local inference server.
type LocalConfig struct {
	Driver         string // "seq2seq" or "ollama"
	URL            string
	TimeoutSeconds int
}
