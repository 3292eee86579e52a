// Package metrics keeps process-local operational metrics: backend
// success/failure, model tier outcomes, and call timings.
package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// MetricsManager is the global metrics manager
type MetricsManager struct {
	mu          sync.RWMutex
	timings     map[string]*TimingMetric
	counters    map[string]*CounterMetric
	successFail map[string]*SuccessFailMetric
	outcomes    map[string]*OutcomeMetric
}

var (
	instance *MetricsManager
	once     sync.Once
)

// GetInstance returns the singleton metrics manager
func GetInstance() *MetricsManager {
	once.Do(func() {
		instance = newManager()
	})
	return instance
}

func newManager() *MetricsManager {
	return &MetricsManager{
		timings:     make(map[string]*TimingMetric),
		counters:    make(map[string]*CounterMetric),
		successFail: make(map[string]*SuccessFailMetric),
		outcomes:    make(map[string]*OutcomeMetric),
	}
}

// buildPath creates a normalized path from topic and function
func buildPath(topic, function string) string {
	if function == "" {
		return topic
	}
	return fmt.Sprintf("%s/%s", topic, function)
}

// getOrCreate returns the metric at path, creating it with mk under the write lock.
func getOrCreate[T any](m *MetricsManager, store map[string]*T, path string, mk func() *T) *T {
	m.mu.RLock()
	metric, ok := store[path]
	m.mu.RUnlock()
	if ok {
		return metric
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if metric, ok = store[path]; !ok {
		metric = mk()
		store[path] = metric
	}
	return metric
}

// RecordDuration records a duration directly
func (m *MetricsManager) RecordDuration(topic, function string, duration time.Duration) {
	metric := getOrCreate(m, m.timings, buildPath(topic, function), func() *TimingMetric {
		return &TimingMetric{}
	})

	metric.mu.Lock()
	defer metric.mu.Unlock()
	metric.Count++
	metric.Total += duration
	metric.Last = duration
	if metric.Min == 0 || duration < metric.Min {
		metric.Min = duration
	}
	if duration > metric.Max {
		metric.Max = duration
	}
}

// AddCounter adds delta to a counter
func (m *MetricsManager) AddCounter(topic, function string, delta int64) {
	metric := getOrCreate(m, m.counters, buildPath(topic, function), func() *CounterMetric {
		return &CounterMetric{}
	})

	metric.mu.Lock()
	defer metric.mu.Unlock()
	metric.Value += delta
	metric.Last = time.Now()
}

func (m *MetricsManager) successFailFor(topic, function string) *SuccessFailMetric {
	return getOrCreate(m, m.successFail, buildPath(topic, function), func() *SuccessFailMetric {
		return &SuccessFailMetric{FailureReasons: make(map[string]int64)}
	})
}

// RecordSuccess records a successful operation
func (m *MetricsManager) RecordSuccess(topic, function string) {
	metric := m.successFailFor(topic, function)
	metric.mu.Lock()
	defer metric.mu.Unlock()
	metric.Success++
	metric.LastSuccess = time.Now()
}

// RecordFailure records a failed operation
func (m *MetricsManager) RecordFailure(topic, function, reason string) {
	metric := m.successFailFor(topic, function)
	metric.mu.Lock()
	defer metric.mu.Unlock()
	metric.Failures++
	metric.LastFailure = time.Now()
	if reason != "" {
		metric.FailureReasons[reason]++
	}
}

// RecordOutcome records a specific outcome
func (m *MetricsManager) RecordOutcome(topic, function, outcome string) {
	metric := getOrCreate(m, m.outcomes, buildPath(topic, function), func() *OutcomeMetric {
		return &OutcomeMetric{Outcomes: make(map[string]int64)}
	})

	metric.mu.Lock()
	defer metric.mu.Unlock()
	metric.Outcomes[outcome]++
	metric.Total++
	metric.LastOutcome = outcome
	metric.LastTime = time.Now()
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// GetSnapshot returns all metrics sorted by path
func (m *MetricsManager) GetSnapshot() []MetricSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []MetricSnapshot
	for path, t := range m.timings {
		t.mu.Lock()
		snap := TimingSnapshot{Count: t.Count, MinMs: ms(t.Min), MaxMs: ms(t.Max), LastMs: ms(t.Last)}
		if t.Count > 0 {
			snap.AvgMs = ms(t.Total / time.Duration(t.Count))
		}
		t.mu.Unlock()
		out = append(out, MetricSnapshot{Path: path, Type: TypeTiming, Data: snap})
	}
	for path, c := range m.counters {
		c.mu.Lock()
		out = append(out, MetricSnapshot{Path: path, Type: TypeCounter, Data: CounterSnapshot{Value: c.Value}})
		c.mu.Unlock()
	}
	for path, sf := range m.successFail {
		sf.mu.Lock()
		snap := SuccessFailSnapshot{Success: sf.Success, Failures: sf.Failures}
		if total := sf.Success + sf.Failures; total > 0 {
			snap.SuccessRate = float64(sf.Success) / float64(total)
		}
		if len(sf.FailureReasons) > 0 {
			snap.Reasons = make(map[string]int64, len(sf.FailureReasons))
			for k, v := range sf.FailureReasons {
				snap.Reasons[k] = v
			}
		}
		sf.mu.Unlock()
		out = append(out, MetricSnapshot{Path: path, Type: TypeSuccessFail, Data: snap})
	}
	for path, o := range m.outcomes {
		o.mu.Lock()
		snap := OutcomeSnapshot{Outcomes: make(map[string]int64, len(o.Outcomes)), Total: o.Total, Last: o.LastOutcome}
		for k, v := range o.Outcomes {
			snap.Outcomes[k] = v
		}
		o.mu.Unlock()
		out = append(out, MetricSnapshot{Path: path, Type: TypeOutcome, Data: snap})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path == out[j].Path {
			return out[i].Type < out[j].Type
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// Reset drops every metric
func (m *MetricsManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timings = make(map[string]*TimingMetric)
	m.counters = make(map[string]*CounterMetric)
	m.successFail = make(map[string]*SuccessFailMetric)
	m.outcomes = make(map[string]*OutcomeMetric)
}
