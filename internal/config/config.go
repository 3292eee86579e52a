// Package config loads docsum.toml, fills unset values from Default and
// applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/roelfdiedericks/docsum/internal/logging"
)

// DefaultPath is read when no --config is given. A missing default file is not an error.
const DefaultPath = "docsum.toml"

// Config represents the merged docsum configuration
type Config struct {
	Log      LogConfig      `toml:"log"`
	Chunker  ChunkerConfig  `toml:"chunker"`
	Local    LocalConfig    `toml:"local"`
	Hosted   HostedConfig   `toml:"hosted"`
	Analyzer AnalyzerConfig `toml:"analyzer"`
	Session  SessionConfig  `toml:"session"`
	Backends BackendsConfig `toml:"backends"`

	// Path is the file the config was read from ("" when none was found).
	Path string `toml:"-"`
}

type LogConfig struct {
	Level      string `toml:"level" env:"DOCSUM_LOG_LEVEL"`
	JSON       bool   `toml:"json"`
	TimeFormat string `toml:"time_format"`
}

type ChunkerConfig struct {
	MaxInputChars int `toml:"max_input_chars"`
	MaxChunkChars int `toml:"max_chunk_chars"`
	MaxChunks     int `toml:"max_chunks"`
}

type LocalConfig struct {
	Driver         string            `toml:"driver"` // "seq2seq" or "ollama"
	URL            string            `toml:"url" env:"DOCSUM_LOCAL_URL"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	MaxInputTokens int               `toml:"max_input_tokens"`
	Models         map[string]string `toml:"models"` // backend id -> model name
}

type HostedConfig struct {
	Driver         string        `toml:"driver"` // "gemini", "openai" or "anthropic"
	APIKey         string        `toml:"api_key"`
	BaseURL        string        `toml:"base_url"`
	Tiers          []string      `toml:"tiers"`
	SummaryModel   string        `toml:"summary_model"`
	MaxInputChars  int           `toml:"max_input_chars"`
	QuotaBackoff   time.Duration `toml:"quota_backoff"`
	TimeoutSeconds int           `toml:"timeout_seconds"`
	MaxTokens      int           `toml:"max_tokens"`
	DumpDir        string        `toml:"dump_dir" env:"DOCSUM_DUMP_DIR"` // failed requests are written here

	GeminiAPIKey    string `toml:"-" env:"GEMINI_API_KEY"`
	OpenAIAPIKey    string `toml:"-" env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `toml:"-" env:"ANTHROPIC_API_KEY"`
}

// ResolvedAPIKey prefers the driver's environment variable over api_key.
func (h HostedConfig) ResolvedAPIKey() string {
	var fromEnv string
	switch strings.ToLower(h.Driver) {
	case "gemini", "":
		fromEnv = h.GeminiAPIKey
	case "openai":
		fromEnv = h.OpenAIAPIKey
	case "anthropic":
		fromEnv = h.AnthropicAPIKey
	}
	if fromEnv != "" {
		return fromEnv
	}
	return h.APIKey
}

type AnalyzerConfig struct {
	Extractor        string  `toml:"extractor"` // "llm" or "rules"
	Model            string  `toml:"model"`
	MaxOriginalChars int     `toml:"max_original_chars"`
	MaxSummaryChars  int     `toml:"max_summary_chars"`
	FallbackGrade    float64 `toml:"fallback_grade"`
}

type SessionConfig struct {
	Store string `toml:"store"` // "memory" or "sqlite"
	Path  string `toml:"path" env:"DOCSUM_SESSION_DB"`
}

type BackendsConfig struct {
	Order []string `toml:"order"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:      "info",
			TimeFormat: "15:04:05",
		},
		Chunker: ChunkerConfig{
			MaxInputChars: 4000,
			MaxChunkChars: 500,
			MaxChunks:     5,
		},
		Local: LocalConfig{
			Driver:         "seq2seq",
			URL:            "http://127.0.0.1:8080",
			TimeoutSeconds: 120,
			MaxInputTokens: 1024,
			Models: map[string]string{
				"bart": "facebook/bart-large-cnn",
				"t5":   "t5-small",
			},
		},
		Hosted: HostedConfig{
			Driver:         "gemini",
			Tiers:          []string{"gemini-2.5-pro", "gemini-1.5-flash"},
			SummaryModel:   "gemini-2.5-pro",
			MaxInputChars:  4000,
			QuotaBackoff:   2 * time.Second,
			TimeoutSeconds: 120,
		},
		Analyzer: AnalyzerConfig{
			Extractor:        "llm",
			Model:            "gemini-2.5-pro",
			MaxOriginalChars: 4000,
			MaxSummaryChars:  2000,
			FallbackGrade:    15.0,
		},
		Session: SessionConfig{
			Store: "sqlite",
			Path:  "docsum.db",
		},
		Backends: BackendsConfig{
			Order: []string{"bart", "t5", "gemini-2.5-pro"},
		},
	}
}

// Load reads path (or DefaultPath when path is empty), fills unset values
// from Default, applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	meta, err := toml.DecodeFile(path, &cfg)
	switch {
	case err == nil:
		cfg.Path = path
		for _, key := range meta.Undecoded() {
			logging.L_warn("config: unknown key", "key", key.String(), "path", path)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		logging.L_debug("config: no config file, using defaults", "path", path)
	default:
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if err := finish(&cfg, &meta); err != nil {
		return nil, err
	}
	logging.L_debug("config: loaded", "path", cfg.Path, "hosted", cfg.Hosted.Driver, "local", cfg.Local.Driver, "backends", strings.Join(cfg.Backends.Order, ","))
	return &cfg, nil
}

// Finish fills defaults, applies the environment and validates cfg.
func Finish(cfg *Config) error {
	return finish(cfg, nil)
}

// finish is Finish for a decoded file. mergo treats zero values as unset, so
// zeros the file sets explicitly are restored after the merge, and a
// [local.models] table in the file replaces the default models instead of
// being merged into them.
func finish(cfg *Config, meta *toml.MetaData) error {
	keep := explicitValues(cfg, meta)
	if err := mergo.Merge(cfg, Default()); err != nil {
		return fmt.Errorf("config defaults: %w", err)
	}
	keep(cfg)
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config environment: %w", err)
	}
	return cfg.Validate()
}

func explicitValues(cfg *Config, meta *toml.MetaData) func(*Config) {
	if meta == nil {
		return func(*Config) {}
	}
	backoffSet := meta.IsDefined("hosted", "quota_backoff")
	backoff := cfg.Hosted.QuotaBackoff
	gradeSet := meta.IsDefined("analyzer", "fallback_grade")
	grade := cfg.Analyzer.FallbackGrade
	tokensSet := meta.IsDefined("local", "max_input_tokens")
	tokens := cfg.Local.MaxInputTokens

	modelsSet := meta.IsDefined("local", "models")
	models := make(map[string]string, len(cfg.Local.Models))
	for k, v := range cfg.Local.Models {
		models[k] = v
	}

	return func(c *Config) {
		if backoffSet {
			c.Hosted.QuotaBackoff = backoff
		}
		if gradeSet {
			c.Analyzer.FallbackGrade = grade
		}
		if tokensSet {
			c.Local.MaxInputTokens = tokens
		}
		if modelsSet {
			c.Local.Models = models
		}
	}
}

// Validate rejects unknown drivers, empty tiers and non-positive limits.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(oneOf(c.Local.Driver, "seq2seq", "ollama"), "local.driver: unknown driver %q", c.Local.Driver)
	check(oneOf(c.Hosted.Driver, "gemini", "openai", "anthropic"), "hosted.driver: unknown driver %q", c.Hosted.Driver)
	check(oneOf(c.Analyzer.Extractor, "llm", "rules"), "analyzer.extractor: unknown extractor %q", c.Analyzer.Extractor)
	check(oneOf(c.Session.Store, "memory", "sqlite"), "session.store: unknown store %q", c.Session.Store)
	check(len(c.Hosted.Tiers) > 0, "hosted.tiers: at least one tier is required")
	check(len(c.Backends.Order) > 0, "backends.order: at least one backend is required")
	check(c.Chunker.MaxInputChars > 0, "chunker.max_input_chars must be positive")
	check(c.Chunker.MaxChunkChars > 0, "chunker.max_chunk_chars must be positive")
	check(c.Chunker.MaxChunks > 0, "chunker.max_chunks must be positive")
	check(c.Hosted.QuotaBackoff >= 0, "hosted.quota_backoff must not be negative")
	check(c.Session.Store != "sqlite" || c.Session.Path != "", "session.path is required for the sqlite store")

	return errors.Join(errs...)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}
