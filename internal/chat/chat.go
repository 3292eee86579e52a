// Package chat answers questions grounded in a session's document and summary.
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/roelfdiedericks/docsum/internal/backend"
	"github.com/roelfdiedericks/docsum/internal/chunker"
	. "github.com/roelfdiedericks/docsum/internal/logging"
	"github.com/roelfdiedericks/docsum/internal/session"
)

const (
	// MaxContextChars and MaxSummaryChars bound the grounding sent with each question.
	MaxContextChars = 4000
	MaxSummaryChars = 2000

	// NotAvailable is the answer the model is told to give when the context lacks one.
	NotAvailable = "The information is not available in the uploaded document."
)

// ErrEmptyQuestion is returned for a blank question.
var ErrEmptyQuestion = errors.New("no prompt provided")

// Asker runs a prompt through the hosted tiers; implemented by backend.HostedBackend.
type Asker interface {
	Ask(ctx context.Context, prompt string) (backend.AskResult, error)
}

// Service answers grounded questions.
type Service struct {
	asker Asker
}

// NewService creates a chat service on asker
func NewService(asker Asker) *Service {
	return &Service{asker: asker}
}

// Prompt builds the grounded prompt for question.
func Prompt(text, summary, question string) string {
	var b strings.Builder
	b.WriteString("Answer the user's question ONLY based on the following context.\n")
	b.WriteString("If the answer cannot be found, say '" + NotAvailable + "'\n\n")
	b.WriteString("Extracted text (truncated):\n")
	b.WriteString(chunker.Truncate(text, MaxContextChars))
	b.WriteString("\n\nSummary:\n")
	b.WriteString(chunker.Truncate(summary, MaxSummaryChars))
	b.WriteString("\n\nUser question: ")
	b.WriteString(question)
	return b.String()
}

// Ask answers question from sc. When every tier is over quota the result
// carries the exhausted sentinel rather than an error.
func (s *Service) Ask(ctx context.Context, sc session.Context, question string) (backend.AskResult, error) {
	if strings.TrimSpace(question) == "" {
		return backend.AskResult{}, ErrEmptyQuestion
	}
	if sc.Text == "" && sc.Summary == "" {
		L_warn("chat: session has no document, answering without context", "session", sc.ID)
	}
	res, err := s.asker.Ask(ctx, Prompt(sc.Text, sc.Summary, question))
	if err != nil {
		L_error("chat: ask failed", "session", sc.ID, "error", err)
		return backend.AskResult{}, err
	}
	L_debug("chat: answered", "session", sc.ID, "model", res.Model, "exhausted", res.Exhausted)
	return res, nil
}
