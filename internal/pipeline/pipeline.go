// Package pipeline runs summarization requests end to end: backend
// selection, summarization, analysis, and multi-backend comparison.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roelfdiedericks/docsum/internal/analyzer"
	"github.com/roelfdiedericks/docsum/internal/backend"
	. "github.com/roelfdiedericks/docsum/internal/logging"
	. "github.com/roelfdiedericks/docsum/internal/metrics"
)

// ComparisonFailurePrefix starts the error of a failed comparison entry.
const ComparisonFailurePrefix = "Model failed: "

// Request asks one backend to summarize Text.
type Request struct {
	Text    string
	Backend string
}

// SummaryResult is the outcome of Summarize. A backend failure is reported
// in Summary with Failed set. Metrics is nil then: scoring the failure text
// against the document would produce numbers that describe no summary.
type SummaryResult struct {
	Backend   string            `json:"model" yaml:"model"`
	Summary   string            `json:"summary" yaml:"summary"`
	Failed    bool              `json:"failed,omitempty" yaml:"failed,omitempty"`
	ErrorKind backend.ErrorKind `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	FellBack  bool              `json:"fell_back,omitempty" yaml:"fell_back,omitempty"`
	Chunks    int               `json:"chunks,omitempty" yaml:"chunks,omitempty"`
	Dropped   int               `json:"dropped_chunks,omitempty" yaml:"dropped_chunks,omitempty"`
	Metrics   *analyzer.Report  `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// Entry is one backend's row in a ComparisonSet: either a summary with
// metrics or an error.
type Entry struct {
	Backend  string           `json:"model" yaml:"model"`
	Summary  string           `json:"summary,omitempty" yaml:"summary,omitempty"`
	FellBack bool             `json:"fell_back,omitempty" yaml:"fell_back,omitempty"`
	Metrics  *analyzer.Report `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Error    string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the entry is an error entry
func (e Entry) Failed() bool {
	return e.Error != ""
}

// ComparisonSet holds one entry per registered backend, in registration order.
type ComparisonSet struct {
	ID      string  `json:"id" yaml:"id"`
	Results []Entry `json:"results" yaml:"results"`
}

// Pipeline wires the registry to the analyzer.
type Pipeline struct {
	registry *backend.Registry
	analyzer *analyzer.Analyzer
}

// New creates a pipeline
func New(registry *backend.Registry, an *analyzer.Analyzer) *Pipeline {
	return &Pipeline{registry: registry, analyzer: an}
}

// Registry returns the backend registry
func (p *Pipeline) Registry() *backend.Registry {
	return p.registry
}

// BackendInfo describes one registered backend.
type BackendInfo struct {
	ID    string       `json:"id" yaml:"id"`
	Kind  backend.Kind `json:"kind" yaml:"kind"`
	Model string       `json:"model,omitempty" yaml:"model,omitempty"`
}

// Backends lists the registered backends in registration order.
func (p *Pipeline) Backends() []BackendInfo {
	var out []BackendInfo
	for _, b := range p.registry.Backends() {
		info := BackendInfo{ID: b.ID(), Kind: b.Kind()}
		if m, ok := b.(interface{ Model() string }); ok {
			info.Model = m.Model()
		}
		out = append(out, info)
	}
	return out
}

func noText() error {
	return &backend.Error{Kind: backend.KindInvalidInput, Msg: "No text provided"}
}

// Summarize runs req through its backend and analyzes a successful summary.
// It returns an error only for empty text or an unknown backend.
func (p *Pipeline) Summarize(ctx context.Context, req Request) (SummaryResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return SummaryResult{}, noText()
	}
	b, err := p.registry.Resolve(req.Backend)
	if err != nil {
		return SummaryResult{}, err
	}

	start := time.Now()
	sum, err := b.Summarize(ctx, req.Text)
	MetricSince("pipeline", "summarize", start)
	if err != nil {
		if backend.IsKind(err, backend.KindInvalidInput) {
			return SummaryResult{}, err
		}
		L_warn("pipeline: summarization failed", "backend", b.ID(), "kind", backend.KindOf(err), "error", err)
		return SummaryResult{
			Backend:   b.ID(),
			Summary:   backend.FailureText(err),
			Failed:    true,
			ErrorKind: backend.KindOf(err),
		}, nil
	}

	report := p.analyzer.Analyze(ctx, req.Text, sum.Text)
	L_info("pipeline: summarized", "backend", b.ID(), "words", report.WordCountSummary, "density", report.InformationDensity, "fellBack", sum.FellBack)
	return SummaryResult{
		Backend:  b.ID(),
		Summary:  sum.Text,
		FellBack: sum.FellBack,
		Chunks:   sum.Chunks,
		Dropped:  sum.Dropped,
		Metrics:  &report,
	}, nil
}

// Compare summarizes text with every registered backend in registration
// order. A failing backend becomes an error entry; the others still run.
func (p *Pipeline) Compare(ctx context.Context, text string) (ComparisonSet, error) {
	if strings.TrimSpace(text) == "" {
		return ComparisonSet{}, noText()
	}

	set := ComparisonSet{ID: uuid.NewString()}
	for _, b := range p.registry.Backends() {
		if err := ctx.Err(); err != nil {
			set.Results = append(set.Results, Entry{Backend: b.ID(), Error: ComparisonFailurePrefix + err.Error()})
			continue
		}
		sum, err := b.Summarize(ctx, text)
		if err != nil {
			MetricOutcome("compare", b.ID(), "error")
			L_warn("pipeline: compare entry failed", "run", set.ID, "backend", b.ID(), "error", err)
			set.Results = append(set.Results, Entry{Backend: b.ID(), Error: ComparisonFailurePrefix + err.Error()})
			continue
		}
		MetricOutcome("compare", b.ID(), "ok")
		report := p.analyzer.Analyze(ctx, text, sum.Text)
		set.Results = append(set.Results, Entry{
			Backend:  b.ID(),
			Summary:  sum.Text,
			FellBack: sum.FellBack,
			Metrics:  &report,
		})
	}
	L_info("pipeline: comparison done", "run", set.ID, "backends", len(set.Results))
	return set, nil
}

// Analyze scores a caller-provided summary against its original.
func (p *Pipeline) Analyze(ctx context.Context, original, summary string) analyzer.Report {
	return p.analyzer.Analyze(ctx, original, summary)
}
