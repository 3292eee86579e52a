package backend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/roelfdiedericks/docsum/internal/chunker"
	"github.com/roelfdiedericks/docsum/internal/fallback"
	"github.com/roelfdiedericks/docsum/internal/llm"
	. "github.com/roelfdiedericks/docsum/internal/logging"
	. "github.com/roelfdiedericks/docsum/internal/metrics"
	"github.com/roelfdiedericks/docsum/internal/tokens"
)

const (
	// MinOutputTokens is the minimum generated length for every chunk.
	MinOutputTokens = 10
	// MinDynamicTokens and MaxDynamicTokens bound the per-chunk output budget.
	MinDynamicTokens = 15
	MaxDynamicTokens = 40
	// StitchedLimit caps the joined summary before the ellipsis is added.
	StitchedLimit = 1000
	// Ellipsis marks a capped summary.
	Ellipsis = "..."
	// FallbackMarker prefixes a summary produced by the hosted fallback.
	FallbackMarker = "(Local Model Failed. Fallback to Gemini)"
	// criticalFormat reports both failures when the fallback fails too.
	criticalFormat = "Critical Failure: Local summarization error (%s) and Gemini fallback error (%s)"
	// UnsupportedModelMessage is returned for an id with no local model.
	UnsupportedModelMessage = "Local summarization error: Unsupported model name"
)

// DefaultLocalModels maps local backend ids to their pretrained models.
var DefaultLocalModels = map[string]string{
	"bart": "facebook/bart-large-cnn",
	"t5":   "t5-small",
}

// LocalModelFor resolves a local backend id to its model name.
func LocalModelFor(id string, models map[string]string) (string, error) {
	if models == nil {
		models = DefaultLocalModels
	}
	if m, ok := models[strings.ToLower(id)]; ok && m != "" {
		return m, nil
	}
	return "", &Error{Kind: KindUnsupported, Backend: id, Msg: UnsupportedModelMessage}
}

// DynamicMaxTokens is the per-chunk output budget: 20% of the chunk's word
// count, rounded, clamped to [15, 40].
func DynamicMaxTokens(words int) int {
	n := int(math.Round(float64(words) * 0.20))
	if n < MinDynamicTokens {
		return MinDynamicTokens
	}
	if n > MaxDynamicTokens {
		return MaxDynamicTokens
	}
	return n
}

// Stitch joins chunk summaries with spaces and caps the result at
// StitchedLimit characters plus Ellipsis.
func Stitch(parts []string) string {
	joined := strings.Join(parts, " ")
	if chunker.Len(joined) > StitchedLimit {
		return chunker.Truncate(joined, StitchedLimit) + Ellipsis
	}
	return joined
}

// Briefer produces a short hosted summary; implemented by HostedBackend.
type Briefer interface {
	Brief(ctx context.Context, text string) (string, error)
}

// LocalOptions configures a LocalBackend.
type LocalOptions struct {
	Model    string // pretrained model name, e.g. facebook/bart-large-cnn
	Chunking chunker.Options
	// MaxInputTokens is the model's input window. Chunks estimated above it
	// are sent with server-side truncation enabled.
	MaxInputTokens int
}

// LocalBackend summarizes chunk by chunk with a local seq2seq model, falling
// back once to a hosted brief summary when local inference fails.
type LocalBackend struct {
	id       string
	model    llm.Seq2Seq
	fallback Briefer
	opts     LocalOptions
}

// NewLocalBackend creates a local backend. fallback may be nil, in which
// case local failures are returned as KindLocal errors.
func NewLocalBackend(id string, model llm.Seq2Seq, fallback Briefer, opts LocalOptions) (*LocalBackend, error) {
	if opts.Model == "" {
		m, err := LocalModelFor(id, nil)
		if err != nil {
			return nil, err
		}
		opts.Model = m
	}
	opts.Chunking = opts.Chunking.WithDefaults()
	return &LocalBackend{id: id, model: model, fallback: fallback, opts: opts}, nil
}

// ID returns the backend id
func (l *LocalBackend) ID() string {
	return l.id
}

// Kind returns KindLocalModel
func (l *LocalBackend) Kind() Kind {
	return KindLocalModel
}

// Model returns the pretrained model name
func (l *LocalBackend) Model() string {
	return l.opts.Model
}

// Summarize chunks text, summarizes every chunk and stitches the results.
// On any local failure the normalized, truncated text is sent to the hosted
// fallback once; its summary is returned prefixed with FallbackMarker.
func (l *LocalBackend) Summarize(ctx context.Context, text string) (Summary, error) {
	split := chunker.Split(text, l.opts.Chunking)
	if len(split.Chunks) == 0 {
		return Summary{}, &Error{Kind: KindInvalidInput, Backend: l.id, Msg: "no text provided"}
	}
	if split.Dropped > 0 {
		MetricAdd("chunker", "dropped", int64(split.Dropped))
	}

	strategies := []fallback.Strategy[Summary]{{
		Name: "local:" + l.id,
		Run: func(ctx context.Context) (Summary, error) {
			return l.summarizeChunks(ctx, split)
		},
	}}
	if l.fallback != nil {
		cleaned := chunker.Truncate(chunker.Normalize(text), l.opts.Chunking.MaxInputChars)
		strategies = append(strategies, fallback.Strategy[Summary]{
			Name: "hosted-brief",
			Run: func(ctx context.Context) (Summary, error) {
				out, err := l.fallback.Brief(ctx, cleaned)
				if err != nil {
					return Summary{}, err
				}
				return Summary{Backend: l.id, Text: FallbackMarker + "\n" + out, FellBack: true}, nil
			},
		})
	}

	out, err := fallback.Run(ctx, fallback.Policy{Label: "local"}, strategies)
	if err == nil {
		if out.Value.FellBack {
			MetricOutcome("backend", l.id, "fallback")
		} else {
			MetricSuccess("backend", l.id)
		}
		return out.Value, nil
	}

	failures := out.Failures()
	MetricFailWithReason("backend", l.id, "local")
	if errors.Is(err, fallback.ErrExhausted) && len(failures) == 2 {
		L_error("local: model and hosted fallback both failed", "backend", l.id, "local", failures[0], "fallback", failures[1])
		return Summary{}, &Error{
			Kind:    KindCritical,
			Backend: l.id,
			Msg:     fmt.Sprintf(criticalFormat, failures[0], failures[1]),
			Cause:   errors.Join(failures...),
		}
	}
	cause := err
	if len(failures) > 0 {
		cause = failures[0]
	}
	return Summary{}, &Error{Kind: KindLocal, Backend: l.id, Msg: cause.Error(), Cause: cause}
}

func (l *LocalBackend) summarizeChunks(ctx context.Context, split chunker.Result) (Summary, error) {
	parts := make([]string, 0, len(split.Chunks))
	for _, c := range split.Chunks {
		truncate := tokens.ExceedsBudget(c.Text, l.opts.MaxInputTokens)
		if truncate {
			L_warn("local: chunk may exceed model input window", "backend", l.id, "chunk", c.Index, "tokens", c.Tokens, "budget", l.opts.MaxInputTokens)
		}
		req := llm.GenerateRequest{
			Model:         l.opts.Model,
			Text:          c.Text,
			MaxNewTokens:  DynamicMaxTokens(c.Words),
			MinLength:     MinOutputTokens,
			Deterministic: true,
			Truncate:      truncate,
		}

		start := time.Now()
		out, err := l.model.Summarize(ctx, req)
		MetricSince("local", l.id, start)
		if err != nil {
			L_warn("local: chunk failed", "backend", l.id, "chunk", c.Index, "error", err)
			return Summary{}, err
		}
		L_debug("local: chunk summarized", "backend", l.id, "chunk", c.Index, "words", c.Words, "maxNewTokens", req.MaxNewTokens)
		parts = append(parts, strings.TrimSpace(out))
	}
	return Summary{
		Backend: l.id,
		Text:    Stitch(parts),
		Chunks:  len(split.Chunks),
		Dropped: split.Dropped,
	}, nil
}
