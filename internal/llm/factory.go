package llm

import (
	"fmt"
	"strings"
)

// NewProvider creates a hosted provider for cfg.Driver.
func NewProvider(name string, cfg ProviderConfig) (Provider, error) {
	cfg.Driver = strings.ToLower(cfg.Driver)
	switch cfg.Driver {
	case "gemini", "openai", "":
		if cfg.Driver == "" {
			cfg.Driver = "gemini"
		}
		return NewOpenAIProvider(name, cfg)
	case "anthropic":
		return NewAnthropicProvider(name, cfg)
	default:
		return nil, fmt.Errorf("unknown hosted driver %q", cfg.Driver)
	}
}

// NewSeq2Seq creates a local summarization client for cfg.Driver.
func NewSeq2Seq(name string, cfg LocalConfig) (Seq2Seq, error) {
	switch strings.ToLower(cfg.Driver) {
	case "seq2seq", "":
		return NewInferenceServer(name, cfg)
	case "ollama":
		return NewOllamaSeq2Seq(name, cfg)
	default:
		return nil, fmt.Errorf("unknown local driver %q", cfg.Driver)
	}
}
