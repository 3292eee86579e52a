package pipeline

import (
	"fmt"
	"strings"

	"github.com/roelfdiedericks/docsum/internal/analyzer"
	"github.com/roelfdiedericks/docsum/internal/backend"
	"github.com/roelfdiedericks/docsum/internal/chunker"
	"github.com/roelfdiedericks/docsum/internal/config"
	"github.com/roelfdiedericks/docsum/internal/llm"
	. "github.com/roelfdiedericks/docsum/internal/logging"
)

// HostedAlias always resolves to the hosted summary backend.
const HostedAlias = "gemini"

// Stack is everything a command needs, built from one Config.
type Stack struct {
	Config   *config.Config
	Registry *backend.Registry
	Hosted   *backend.HostedBackend
	Analyzer *analyzer.Analyzer
	Pipeline *Pipeline
}

// Build creates the providers, backends, registry, analyzer and pipeline
// described by cfg. A hosted provider that cannot be created (no API key)
// is replaced by one that fails every request.
func Build(cfg *config.Config) (*Stack, error) {
	provider := hostedProvider(cfg.Hosted)
	hosted := backend.NewHostedBackend(cfg.Hosted.SummaryModel, provider, backend.HostedOptions{
		SummaryModel:  cfg.Hosted.SummaryModel,
		Tiers:         cfg.Hosted.Tiers,
		MaxInputChars: cfg.Hosted.MaxInputChars,
		QuotaBackoff:  cfg.Hosted.QuotaBackoff,
	})

	reg, err := buildRegistry(cfg, provider, hosted)
	if err != nil {
		return nil, err
	}

	grade := cfg.Analyzer.FallbackGrade
	an := analyzer.New(buildExtractor(cfg.Analyzer, provider), nil, analyzer.Options{
		FallbackGrade: &grade,
	})

	L_debug("pipeline: stack built", "backends", strings.Join(reg.IDs(), ","), "hosted", provider.Type(), "extractor", cfg.Analyzer.Extractor)
	return &Stack{
		Config:   cfg,
		Registry: reg,
		Hosted:   hosted,
		Analyzer: an,
		Pipeline: New(reg, an),
	}, nil
}

func hostedProvider(hc config.HostedConfig) llm.Provider {
	p, err := llm.NewProvider("hosted", llm.ProviderConfig{
		Driver:         hc.Driver,
		APIKey:         hc.ResolvedAPIKey(),
		BaseURL:        hc.BaseURL,
		MaxTokens:      hc.MaxTokens,
		TimeoutSeconds: hc.TimeoutSeconds,
		DumpDir:        hc.DumpDir,
	})
	if err != nil {
		L_warn("pipeline: hosted provider unavailable", "driver", hc.Driver, "error", err)
		return llm.NewUnavailableProvider("hosted", hc.Driver, err.Error())
	}
	return p
}

func buildRegistry(cfg *config.Config, provider llm.Provider, hosted *backend.HostedBackend) (*backend.Registry, error) {
	reg := backend.NewRegistry()

	var seq2seq llm.Seq2Seq
	chunking := chunker.Options{
		MaxInputChars: cfg.Chunker.MaxInputChars,
		MaxChunkChars: cfg.Chunker.MaxChunkChars,
		MaxChunks:     cfg.Chunker.MaxChunks,
	}

	for _, id := range cfg.Backends.Order {
		var b backend.Backend
		if model, ok := localModel(cfg.Local.Models, id); ok {
			if seq2seq == nil {
				s, err := llm.NewSeq2Seq("local", llm.LocalConfig{
					Driver:         cfg.Local.Driver,
					URL:            cfg.Local.URL,
					TimeoutSeconds: cfg.Local.TimeoutSeconds,
				})
				if err != nil {
					return nil, fmt.Errorf("local backend %s: %w", id, err)
				}
				seq2seq = s
			}
			lb, err := backend.NewLocalBackend(id, seq2seq, hosted, backend.LocalOptions{
				Model:          model,
				Chunking:       chunking,
				MaxInputTokens: cfg.Local.MaxInputTokens,
			})
			if err != nil {
				return nil, err
			}
			b = lb
		} else if strings.EqualFold(id, hosted.ID()) {
			b = hosted
		} else {
			opts := hosted.Options()
			opts.SummaryModel = id
			b = backend.NewHostedBackend(id, provider, opts)
		}
		if err := reg.Register(b); err != nil {
			return nil, err
		}
	}

	if _, err := reg.Resolve(hosted.ID()); err == nil {
		if err := reg.Alias(HostedAlias, hosted.ID()); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func localModel(models map[string]string, id string) (string, bool) {
	for k, m := range models {
		if strings.EqualFold(k, id) && m != "" {
			return m, true
		}
	}
	return "", false
}

func buildExtractor(ac config.AnalyzerConfig, provider llm.Provider) analyzer.Extractor {
	switch strings.ToLower(ac.Extractor) {
	case "rules":
		return analyzer.RuleExtractor{}
	case "llm", "":
		sp, ok := provider.(llm.StructuredProvider)
		if !ok {
			L_warn("pipeline: hosted provider has no structured output, using rule extractor", "provider", provider.Type())
			return analyzer.RuleExtractor{}
		}
		return analyzer.NewLLMExtractor(sp, analyzer.ExtractorOptions{
			Model:            ac.Model,
			MaxOriginalChars: ac.MaxOriginalChars,
			MaxSummaryChars:  ac.MaxSummaryChars,
		})
	default:
		return nil
	}
}
