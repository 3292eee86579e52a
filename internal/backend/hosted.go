package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roelfdiedericks/docsum/internal/chunker"
	"github.com/roelfdiedericks/docsum/internal/fallback"
	"github.com/roelfdiedericks/docsum/internal/llm"
	. "github.com/roelfdiedericks/docsum/internal/logging"
	. "github.com/roelfdiedericks/docsum/internal/metrics"
)

const (
	// StyleInstruction prefixes every hosted summarization request.
	StyleInstruction = "You are an expert legal assistant. Provide a concise, bulleted summary of the following legal text." +
		"Do not include any introductory phrases like 'Based on the provided text' or 'The document states'." +
		"\n\nLegal Document:\n\n"

	// BriefPrefix is used when the hosted model stands in for a failed local model.
	BriefPrefix = "Summarize briefly:\n\n"

	// AllModelsFailedMessage is returned by Ask when every tier hit its quota.
	AllModelsFailedMessage = "❌ All Gemini models failed. Please check your API key or quota."
)

// DefaultTiers is the ask-mode order: capable tier first, cheaper tier second.
var DefaultTiers = []string{"gemini-2.5-pro", "gemini-1.5-flash"}

// HostedOptions configures a HostedBackend.
type HostedOptions struct {
	SummaryModel  string        // model used by Summarize and Brief
	Tiers         []string      // ask-mode model order
	MaxInputChars int           // document truncation before sending
	QuotaBackoff  time.Duration // pause before moving to the next tier
	// Sleep replaces the backoff timer (tests).
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultHostedOptions returns gemini-2.5-pro summaries, the two default
// tiers, 4000 character input and a 2 second quota backoff.
func DefaultHostedOptions() HostedOptions {
	return HostedOptions{
		SummaryModel:  DefaultTiers[0],
		Tiers:         append([]string(nil), DefaultTiers...),
		MaxInputChars: chunker.DefaultMaxInputChars,
		QuotaBackoff:  2 * time.Second,
	}
}

// HostedBackend summarizes through a hosted LLM and answers free-form
// prompts with quota-aware tier fallback.
type HostedBackend struct {
	id       string
	provider llm.Provider
	opts     HostedOptions
}

// AskResult is the outcome of a tiered ask. Exhausted is set when every tier
// failed on quota; Text then holds AllModelsFailedMessage.
type AskResult struct {
	Text      string `json:"text" yaml:"text"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty"`
	Exhausted bool   `json:"exhausted,omitempty" yaml:"exhausted,omitempty"`
}

// NewHostedBackend creates a hosted backend. Zero options fall back to defaults.
func NewHostedBackend(id string, provider llm.Provider, opts HostedOptions) *HostedBackend {
	d := DefaultHostedOptions()
	if opts.SummaryModel == "" {
		opts.SummaryModel = d.SummaryModel
	}
	if len(opts.Tiers) == 0 {
		opts.Tiers = d.Tiers
	}
	if opts.MaxInputChars <= 0 {
		opts.MaxInputChars = d.MaxInputChars
	}
	if opts.QuotaBackoff < 0 {
		opts.QuotaBackoff = 0
	}
	return &HostedBackend{id: id, provider: provider, opts: opts}
}

// ID returns the backend id
func (h *HostedBackend) ID() string {
	return h.id
}

// Kind returns KindHostedModel
func (h *HostedBackend) Kind() Kind {
	return KindHostedModel
}

// Model returns the summary model
func (h *HostedBackend) Model() string {
	return h.opts.SummaryModel
}

// Options returns the effective options.
func (h *HostedBackend) Options() HostedOptions {
	return h.opts
}

func (h *HostedBackend) remoteError(err error) *Error {
	kind := KindRemote
	if llm.IsQuotaError(err) {
		kind = KindQuota
	}
	return &Error{Kind: kind, Backend: h.id, Msg: err.Error(), Cause: err}
}

// Summarize sends the truncated document with the style instruction to the summary model.
func (h *HostedBackend) Summarize(ctx context.Context, text string) (Summary, error) {
	if strings.TrimSpace(text) == "" {
		return Summary{}, &Error{Kind: KindInvalidInput, Backend: h.id, Msg: "no text provided"}
	}
	prompt := StyleInstruction + chunker.Truncate(text, h.opts.MaxInputChars)

	start := time.Now()
	out, err := h.provider.WithModel(h.opts.SummaryModel).SimpleMessage(ctx, prompt, "")
	MetricSince("hosted", "summarize", start)
	if err != nil {
		MetricFailWithReason("backend", h.id, string(llm.Classify(err)))
		L_warn("hosted: summarize failed", "backend", h.id, "model", h.opts.SummaryModel, "error", err)
		return Summary{}, h.remoteError(err)
	}
	MetricSuccess("backend", h.id)
	return Summary{Backend: h.id, Text: strings.TrimSpace(out)}, nil
}

// Brief asks the summary model for a short summary without the style instruction.
func (h *HostedBackend) Brief(ctx context.Context, text string) (string, error) {
	out, err := h.provider.WithModel(h.opts.SummaryModel).SimpleMessage(ctx, BriefPrefix+text, "")
	if err != nil {
		return "", h.remoteError(err)
	}
	return strings.TrimSpace(out), nil
}

// Ask runs prompt through the configured tiers.
func (h *HostedBackend) Ask(ctx context.Context, prompt string) (AskResult, error) {
	return h.AskTiers(ctx, prompt, h.opts.Tiers)
}

// AskTiers tries each tier in order. A quota failure waits QuotaBackoff and
// moves on; any other failure ends the sequence and is returned. When every
// tier hits its quota the sentinel text is returned without an error.
func (h *HostedBackend) AskTiers(ctx context.Context, prompt string, tiers []string) (AskResult, error) {
	if len(tiers) == 0 {
		tiers = h.opts.Tiers
	}

	strategies := make([]fallback.Strategy[string], 0, len(tiers))
	for _, tier := range tiers {
		tier := tier
		strategies = append(strategies, fallback.Strategy[string]{
			Name: tier,
			Run: func(ctx context.Context) (string, error) {
				L_info("hosted: trying model", "model", tier)
				out, err := h.provider.WithModel(tier).SimpleMessage(ctx, prompt, "")
				switch {
				case err == nil:
					MetricOutcome("hosted", tier, "ok")
				case llm.IsQuotaError(err):
					MetricOutcome("hosted", tier, "quota")
				default:
					MetricOutcome("hosted", tier, "error")
				}
				return out, err
			},
		})
	}

	policy := fallback.Policy{
		Backoff:   h.opts.QuotaBackoff,
		Retryable: llm.IsQuotaError,
		Sleep:     h.opts.Sleep,
		Label:     "hosted",
	}
	out, err := fallback.Run(ctx, policy, strategies)
	if err == nil {
		L_debug("hosted: ask answered", "model", out.Winner, "attempts", len(out.Attempts))
		return AskResult{Text: out.Value, Model: out.Winner}, nil
	}
	if errors.Is(err, fallback.ErrExhausted) {
		L_warn("hosted: all tiers exhausted", "tiers", strings.Join(tiers, ","))
		return AskResult{Text: AllModelsFailedMessage, Exhausted: true}, nil
	}
	if ctx.Err() != nil {
		return AskResult{}, &Error{Kind: KindRemote, Backend: h.id, Msg: fmt.Sprintf("ask cancelled: %v", err), Cause: err}
	}
	return AskResult{}, h.remoteError(err)
}
