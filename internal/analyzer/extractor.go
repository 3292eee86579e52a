package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roelfdiedericks/docsum/internal/chunker"
	"github.com/roelfdiedericks/docsum/internal/llm"
)

// Risk ratings. RiskUnavailable only appears in the safe default.
const (
	RiskLow         = "Low"
	RiskMedium      = "Medium"
	RiskHigh        = "High"
	RiskUnavailable = "Error/N/A"
)

// Default truncation applied to the extraction prompt.
const (
	DefaultMaxOriginalChars = 4000
	DefaultMaxSummaryChars  = 2000
)

var errNoExtractor = errors.New("retention extraction disabled")

// Retention is the structured entity/risk analysis. Its tags double as the
// output schema sent to the model.
type Retention struct {
	EntityCountTotal    int    `json:"entity_count_total" yaml:"entity_count_total" description:"Total number of unique legal entities (names, dates, clauses) found in the document."`
	EntityCountRetained int    `json:"entity_count_retained" yaml:"entity_count_retained" description:"Number of those entities that are present in the summary."`
	RiskRating          string `json:"risk_rating" yaml:"risk_rating" description:"Overall risk level of the document/summary (Low, Medium, or High)." enum:"Low,Medium,High"`
}

// RetainedPercent is retained/total as a percentage.
func (r Retention) RetainedPercent() float64 {
	if r.EntityCountTotal <= 0 {
		return 0
	}
	return round2(float64(r.EntityCountRetained) / float64(r.EntityCountTotal) * 100)
}

// SafeDefault is substituted whenever structured extraction fails.
func SafeDefault() Retention {
	return Retention{EntityCountTotal: 1, EntityCountRetained: 0, RiskRating: RiskUnavailable}
}

// Normalize clamps the counts (total >= 1, 0 <= retained <= total) and
// canonicalises the risk rating. An unknown rating is an error.
func Normalize(r Retention) (Retention, error) {
	if r.EntityCountTotal < 1 {
		r.EntityCountTotal = 1
	}
	if r.EntityCountRetained < 0 {
		r.EntityCountRetained = 0
	}
	if r.EntityCountRetained > r.EntityCountTotal {
		r.EntityCountRetained = r.EntityCountTotal
	}
	for _, risk := range []string{RiskLow, RiskMedium, RiskHigh} {
		if strings.EqualFold(strings.TrimSpace(r.RiskRating), risk) {
			r.RiskRating = risk
			return r, nil
		}
	}
	return r, fmt.Errorf("unknown risk rating %q", r.RiskRating)
}

// Extractor produces a retention analysis for a summary of original.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, original, summary string) (Retention, error)
}

// RetentionSchema is the structured output schema for LLMExtractor.
var RetentionSchema = llm.MustSchemaFor("legal_analysis", "Schema for legal document entity and risk analysis.", Retention{})

// ExtractorOptions configure LLMExtractor.
type ExtractorOptions struct {
	Model            string // overrides the provider's model when set
	MaxOriginalChars int
	MaxSummaryChars  int
}

// LLMExtractor asks a hosted model for the retention analysis with a
// schema-constrained request.
type LLMExtractor struct {
	provider llm.StructuredProvider
	opts     ExtractorOptions
}

// NewLLMExtractor creates an extractor on provider.
func NewLLMExtractor(provider llm.StructuredProvider, opts ExtractorOptions) *LLMExtractor {
	if opts.MaxOriginalChars <= 0 {
		opts.MaxOriginalChars = DefaultMaxOriginalChars
	}
	if opts.MaxSummaryChars <= 0 {
		opts.MaxSummaryChars = DefaultMaxSummaryChars
	}
	return &LLMExtractor{provider: provider, opts: opts}
}

// Name returns "llm:<provider>"
func (e *LLMExtractor) Name() string {
	return "llm:" + e.provider.Name()
}

// Prompt builds the extraction prompt from the truncated original and summary.
func (e *LLMExtractor) Prompt(original, summary string) string {
	return "You are an expert legal paralegal. Compare the following ORIGINAL DOCUMENT " +
		"and its SUMMARY. Your task is to count key entities (names, dates, amounts, " +
		"and contract clauses like 'Term' or 'Indemnification') in the ORIGINAL document, " +
		"count how many of those entities were successfully retained in the SUMMARY, " +
		"and provide a single Risk Rating. Return ONLY the JSON object that matches the requested schema." +
		"\n\n--- ORIGINAL DOCUMENT ---\n" + chunker.Truncate(original, e.opts.MaxOriginalChars) +
		"\n\n--- SUMMARY ---\n" + chunker.Truncate(summary, e.opts.MaxSummaryChars)
}

// Extract issues the structured request.
func (e *LLMExtractor) Extract(ctx context.Context, original, summary string) (Retention, error) {
	provider := e.provider
	if e.opts.Model != "" && e.opts.Model != provider.Model() {
		sp, ok := provider.WithModel(e.opts.Model).(llm.StructuredProvider)
		if !ok {
			return Retention{}, llm.ErrNotSupported{Provider: provider.Name(), Operation: "structured output"}
		}
		provider = sp
	}

	var out Retention
	if err := provider.StructuredMessage(ctx, e.Prompt(original, summary), RetentionSchema, &out); err != nil {
		return Retention{}, fmt.Errorf("retention extraction: %w", err)
	}
	return out, nil
}
