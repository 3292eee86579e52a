package metrics

import (
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType string

const (
	TypeTiming      MetricType = "timing"
	TypeCounter     MetricType = "counter"
	TypeSuccessFail MetricType = "success_fail"
	TypeOutcome     MetricType = "outcome"
)

// TimingMetric tracks timing statistics
type TimingMetric struct {
	mu    sync.Mutex
	Count int64
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
	Last  time.Duration
}

// CounterMetric tracks incrementing values
type CounterMetric struct {
	mu    sync.Mutex
	Value int64
	Last  time.Time
}

// SuccessFailMetric tracks success and failure counts
type SuccessFailMetric struct {
	mu             sync.Mutex
	Success        int64
	Failures       int64
	LastSuccess    time.Time
	LastFailure    time.Time
	FailureReasons map[string]int64
}

// OutcomeMetric tracks counts per named outcome
type OutcomeMetric struct {
	mu          sync.Mutex
	Outcomes    map[string]int64
	Total       int64
	LastOutcome string
	LastTime    time.Time
}

// MetricSnapshot represents a point-in-time view of a metric
type MetricSnapshot struct {
	Path string      `json:"path" yaml:"path"`
	Type MetricType  `json:"type" yaml:"type"`
	Data interface{} `json:"data" yaml:"data"`
}

// TimingSnapshot for serialization
type TimingSnapshot struct {
	Count  int64   `json:"count" yaml:"count"`
	AvgMs  float64 `json:"avg_ms" yaml:"avg_ms"`
	MinMs  float64 `json:"min_ms" yaml:"min_ms"`
	MaxMs  float64 `json:"max_ms" yaml:"max_ms"`
	LastMs float64 `json:"last_ms" yaml:"last_ms"`
}

// CounterSnapshot for serialization
type CounterSnapshot struct {
	Value int64 `json:"value" yaml:"value"`
}

// SuccessFailSnapshot for serialization
type SuccessFailSnapshot struct {
	Success     int64            `json:"success" yaml:"success"`
	Failures    int64            `json:"failures" yaml:"failures"`
	SuccessRate float64          `json:"success_rate" yaml:"success_rate"`
	Reasons     map[string]int64 `json:"reasons,omitempty" yaml:"reasons,omitempty"`
}

// OutcomeSnapshot for serialization
type OutcomeSnapshot struct {
	Outcomes map[string]int64 `json:"outcomes" yaml:"outcomes"`
	Total    int64            `json:"total" yaml:"total"`
	Last     string           `json:"last" yaml:"last"`
}
