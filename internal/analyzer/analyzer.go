// Package analyzer compares a summary against its source document: word
// counts, information density, readability and a structured retention
// analysis (entity counts and a risk rating).
package analyzer

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/roelfdiedericks/docsum/internal/llm"
	. "github.com/roelfdiedericks/docsum/internal/logging"
	. "github.com/roelfdiedericks/docsum/internal/metrics"
)

// DefaultFallbackGrade is reported when the readability formula cannot be computed.
const DefaultFallbackGrade = 15.0

// Report is the analysis of one summary against its original.
type Report struct {
	WordCountOriginal  int       `json:"word_count_original" yaml:"word_count_original"`
	WordCountSummary   int       `json:"word_count_summary" yaml:"word_count_summary"`
	InformationDensity float64   `json:"information_density" yaml:"information_density"`
	ReadabilityGrade   float64   `json:"readability_grade" yaml:"readability_grade"`
	Retention          Retention `json:"retention_data" yaml:"retention_data"`
	// RetentionError is set when Retention holds the safe default.
	RetentionError string `json:"retention_error,omitempty" yaml:"retention_error,omitempty"`
}

// Options tune the analyzer.
type Options struct {
	// FallbackGrade replaces an uncomputable grade. nil uses DefaultFallbackGrade.
	FallbackGrade *float64
}

// Analyzer computes Reports. The zero value is not usable; use New.
type Analyzer struct {
	extractor Extractor
	grader    Grader
	fallback  float64
}

// New creates an analyzer. A nil grader uses FleschKincaid; a nil extractor
// always yields the safe default retention.
func New(extractor Extractor, grader Grader, opts Options) *Analyzer {
	if grader == nil {
		grader = FleschKincaid{}
	}
	fallback := DefaultFallbackGrade
	if opts.FallbackGrade != nil {
		fallback = *opts.FallbackGrade
	}
	return &Analyzer{extractor: extractor, grader: grader, fallback: fallback}
}

// Analyze never fails: readability falls back to the fallback grade and the
// retention analysis falls back to SafeDefault.
func (a *Analyzer) Analyze(ctx context.Context, original, summary string) Report {
	start := time.Now()
	defer MetricSince("analyzer", "analyze", start)

	r := Report{
		WordCountOriginal: WordCount(original),
		WordCountSummary:  WordCount(summary),
	}
	r.InformationDensity = Density(r.WordCountOriginal, r.WordCountSummary)

	grade, err := a.grader.Grade(summary)
	if err != nil {
		L_debug("analyzer: readability fallback", "error", err, "grade", a.fallback)
		grade = a.fallback
	}
	r.ReadabilityGrade = grade

	r.Retention, err = a.retention(ctx, original, summary)
	if err != nil {
		r.RetentionError = err.Error()
	}
	return r
}

func (a *Analyzer) retention(ctx context.Context, original, summary string) (Retention, error) {
	if a.extractor == nil {
		MetricFailWithReason("analyzer", "extract", "disabled")
		return SafeDefault(), errNoExtractor
	}
	raw, err := a.extractor.Extract(ctx, original, summary)
	if err == nil {
		raw, err = Normalize(raw)
	}
	if err != nil {
		MetricFailWithReason("analyzer", "extract", string(llm.Classify(err)))
		L_warn("analyzer: structured analysis failed, using safe default", "extractor", a.extractor.Name(), "error", err)
		return SafeDefault(), err
	}
	MetricSuccess("analyzer", "extract")
	L_debug("analyzer: retention", "total", raw.EntityCountTotal, "retained", raw.EntityCountRetained, "risk", raw.RiskRating)
	return raw, nil
}

// WordCount counts whitespace-separated tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Density is summary words as a percentage of original words, rounded to two
// decimals. It is 0 when the original has no words.
func Density(originalWords, summaryWords int) float64 {
	if originalWords <= 0 {
		return 0
	}
	return round2(float64(summaryWords) / float64(originalWords) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
