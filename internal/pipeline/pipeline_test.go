package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/roelfdiedericks/docsum/internal/analyzer"
	"github.com/roelfdiedericks/docsum/internal/backend"
	"github.com/roelfdiedericks/docsum/internal/config"
)

const doc = "The Supplier shall deliver the goods by 1 March 2025. The Buyer shall pay $10,000 within 30 days. " +
	"This Agreement may be terminated by either party with written notice."

type stubBackend struct {
	id    string
	kind  backend.Kind
	text  string
	err   error
	calls int
}

func (s *stubBackend) ID() string         { return s.id }
func (s *stubBackend) Kind() backend.Kind { return s.kind }

func (s *stubBackend) Summarize(_ context.Context, text string) (backend.Summary, error) {
	s.calls++
	if s.err != nil {
		return backend.Summary{}, s.err
	}
	return backend.Summary{Backend: s.id, Text: s.text}, nil
}

func newTestPipeline(t *testing.T, backends ...backend.Backend) *Pipeline {
	t.Helper()
	reg := backend.NewRegistry()
	for _, b := range backends {
		if err := reg.Register(b); err != nil {
			t.Fatal(err)
		}
	}
	return New(reg, analyzer.New(analyzer.RuleExtractor{}, nil, analyzer.Options{}))
}

func TestCompareKeepsOrderAndIsolatesFailures(t *testing.T) {
	a := &stubBackend{id: "a", kind: backend.KindLocalModel, text: "Supplier delivers goods by 1 March 2025."}
	b := &stubBackend{id: "b", kind: backend.KindLocalModel, err: &backend.Error{Kind: backend.KindLocal, Backend: "b", Msg: "model not loaded"}}
	c := &stubBackend{id: "c", kind: backend.KindHostedModel, text: "- Buyer pays $10,000 within 30 days."}
	p := newTestPipeline(t, a, b, c)

	set, err := p.Compare(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if set.ID == "" {
		t.Error("comparison id is empty")
	}
	if len(set.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(set.Results))
	}
	for i, want := range []string{"a", "b", "c"} {
		if set.Results[i].Backend != want {
			t.Errorf("results[%d] = %q, want %q", i, set.Results[i].Backend, want)
		}
	}

	if !set.Results[1].Failed() || set.Results[1].Error != ComparisonFailurePrefix+"model not loaded" {
		t.Errorf("failed entry = %+v", set.Results[1])
	}
	if set.Results[1].Metrics != nil {
		t.Error("failed entry has metrics")
	}
	for _, i := range []int{0, 2} {
		e := set.Results[i]
		if e.Failed() || e.Metrics == nil || e.Summary == "" {
			t.Errorf("entry %d = %+v", i, e)
		}
	}
	if c.calls != 1 {
		t.Errorf("backend after the failure ran %d times", c.calls)
	}
}

func TestCompareEmpty(t *testing.T) {
	p := newTestPipeline(t, &stubBackend{id: "a", text: "x"})
	_, err := p.Compare(context.Background(), " \n ")
	if !backend.IsKind(err, backend.KindInvalidInput) {
		t.Errorf("err = %v, want invalid input", err)
	}
}

func TestCompareCancelled(t *testing.T) {
	a := &stubBackend{id: "a", text: "x"}
	p := newTestPipeline(t, a)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	set, err := p.Compare(ctx, doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Results) != 1 || !set.Results[0].Failed() || a.calls != 0 {
		t.Errorf("set = %+v, calls = %d", set, a.calls)
	}
}

func TestSummarize(t *testing.T) {
	ok := &stubBackend{id: "bart", kind: backend.KindLocalModel, text: "Supplier delivers goods by 1 March 2025."}
	remote := &stubBackend{id: "gemini-2.5-pro", kind: backend.KindHostedModel, err: &backend.Error{Kind: backend.KindRemote, Msg: "invalid api key"}}
	p := newTestPipeline(t, ok, remote)

	tests := []struct {
		name        string
		req         Request
		wantErrKind backend.ErrorKind
		wantFailed  bool
		wantSummary string
	}{
		{name: "ok", req: Request{Text: doc, Backend: "BART"}, wantSummary: ok.text},
		{name: "backend failure", req: Request{Text: doc, Backend: "gemini-2.5-pro"}, wantFailed: true, wantSummary: "Gemini error: invalid api key"},
		{name: "unsupported", req: Request{Text: doc, Backend: "gpt-2"}, wantErrKind: backend.KindUnsupported},
		{name: "empty", req: Request{Text: "   ", Backend: "bart"}, wantErrKind: backend.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Summarize(context.Background(), tt.req)
			if tt.wantErrKind != "" {
				if !backend.IsKind(err, tt.wantErrKind) {
					t.Fatalf("err = %v, want kind %s", err, tt.wantErrKind)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if res.Failed != tt.wantFailed || res.Summary != tt.wantSummary {
				t.Errorf("result = %+v", res)
			}
			if tt.wantFailed != (res.Metrics == nil) {
				t.Errorf("metrics = %v with failed = %v", res.Metrics, res.Failed)
			}
		})
	}
}

func TestSummarizeMetrics(t *testing.T) {
	p := newTestPipeline(t, &stubBackend{id: "bart", text: "Supplier delivers goods by 1 March 2025."})
	res, err := p.Summarize(context.Background(), Request{Text: doc, Backend: "bart"})
	if err != nil {
		t.Fatal(err)
	}
	m := res.Metrics
	if m.WordCountOriginal != analyzer.WordCount(doc) || m.WordCountSummary != 7 {
		t.Errorf("word counts = %d/%d", m.WordCountOriginal, m.WordCountSummary)
	}
	if m.InformationDensity != analyzer.Density(m.WordCountOriginal, m.WordCountSummary) {
		t.Errorf("density = %v", m.InformationDensity)
	}
}

func TestBuildDefaults(t *testing.T) {
	cfg := config.Default()
	stack, err := Build(&cfg)
	if err != nil {
		t.Fatal(err)
	}

	if got := strings.Join(stack.Registry.IDs(), ","); got != "bart,t5,gemini-2.5-pro" {
		t.Errorf("ids = %s", got)
	}
	for id, kind := range map[string]backend.Kind{
		"bart":   backend.KindLocalModel,
		"T5":     backend.KindLocalModel,
		"gemini": backend.KindHostedModel,
	} {
		b, err := stack.Registry.Resolve(id)
		if err != nil {
			t.Fatalf("resolve %s: %v", id, err)
		}
		if b.Kind() != kind {
			t.Errorf("%s kind = %s, want %s", id, b.Kind(), kind)
		}
	}
	if b, _ := stack.Registry.Resolve("gemini"); b != backend.Backend(stack.Hosted) {
		t.Error("gemini alias does not resolve to the hosted backend")
	}
}

func TestBuildWithoutAPIKeyFailsPerRequest(t *testing.T) {
	cfg := config.Default()
	stack, err := Build(&cfg)
	if err != nil {
		t.Fatal(err)
	}

	res, err := stack.Pipeline.Summarize(context.Background(), Request{Text: doc, Backend: "gemini"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Failed || !strings.HasPrefix(res.Summary, "Gemini error: ") || !strings.Contains(res.Summary, "unavailable") {
		t.Errorf("result = %+v", res)
	}

	report := stack.Analyzer.Analyze(context.Background(), doc, "Supplier delivers goods.")
	if report.Retention != analyzer.SafeDefault() || report.RetentionError == "" {
		t.Errorf("report = %+v", report)
	}
}

func TestBuildHostedOrderEntries(t *testing.T) {
	cfg := config.Default()
	cfg.Analyzer.Extractor = "rules"
	cfg.Backends.Order = []string{"gemini-1.5-flash", "bart"}
	stack, err := Build(&cfg)
	if err != nil {
		t.Fatal(err)
	}

	b, err := stack.Registry.Resolve("gemini-1.5-flash")
	if err != nil {
		t.Fatal(err)
	}
	hb, ok := b.(*backend.HostedBackend)
	if !ok || hb.Options().SummaryModel != "gemini-1.5-flash" {
		t.Errorf("backend = %#v", b)
	}
	if _, err := stack.Registry.Resolve("gemini"); err == nil {
		t.Error("gemini alias registered without the hosted summary backend")
	}

	report := stack.Analyzer.Analyze(context.Background(), doc, "Supplier delivers goods by 1 March 2025.")
	if report.RetentionError != "" {
		t.Errorf("rule extractor failed: %s", report.RetentionError)
	}
}

func TestBuildRejectsBadLocalDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Local.Driver = "onnx"
	if _, err := Build(&cfg); err == nil || !strings.Contains(err.Error(), "onnx") {
		t.Errorf("err = %v", err)
	}
}

func TestBackendsInfo(t *testing.T) {
	cfg := config.Default()
	stack, err := Build(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	got := stack.Pipeline.Backends()
	want := []BackendInfo{
		{ID: "bart", Kind: backend.KindLocalModel, Model: "facebook/bart-large-cnn"},
		{ID: "t5", Kind: backend.KindLocalModel, Model: "t5-small"},
		{ID: "gemini-2.5-pro", Kind: backend.KindHostedModel, Model: "gemini-2.5-pro"},
	}
	if len(got) != len(want) {
		t.Fatalf("backends = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("backends[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
