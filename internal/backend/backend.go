// Package backend implements the interchangeable summarization backends
// (local seq2seq models and a hosted LLM) and the registry that selects them.
package backend

import (
	"context"
)

// Kind distinguishes local from hosted backends.
type Kind string

const (
	KindLocalModel  Kind = "local"
	KindHostedModel Kind = "hosted"
)

// Summary is a successful summarization.
type Summary struct {
	Backend string `json:"backend" yaml:"backend"`
	Text    string `json:"text" yaml:"text"`
	// FellBack is set when a local backend failed and the hosted fallback
	// produced Text.
	FellBack bool `json:"fell_back,omitempty" yaml:"fell_back,omitempty"`
	Chunks   int  `json:"chunks,omitempty" yaml:"chunks,omitempty"`
	Dropped  int  `json:"dropped_chunks,omitempty" yaml:"dropped_chunks,omitempty"`
}

// Backend is one summarization strategy. Summarize returns a *Error on failure.
type Backend interface {
	ID() string
	Kind() Kind
	Summarize(ctx context.Context, text string) (Summary, error)
}
