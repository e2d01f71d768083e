// Package observability holds the process-wide metrics store and the helpers
// used to build sampled traces: request IDs, payload truncation and API key
// redaction. The store is constructed once at the composition root and
// injected; it is never accessed as ambient global state.
package observability

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTraceMaxChars bounds per-field payload size in logged traces.
const DefaultTraceMaxChars = 400

// NewRequestID returns a fresh opaque request identifier.
func NewRequestID() string {
	return uuid.NewString()
}

// ElapsedMS returns the elapsed wall time since start, in milliseconds.
func ElapsedMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

// TruncateText bounds text to maxLen characters, appending "..." when cut.
// Non-positive maxLen yields an empty string.
func TruncateText(text string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	cut := maxLen - 3
	if cut < 0 {
		cut = 0
	}
	return string(runes[:cut]) + "..."
}

// RedactAPIKey masks a credential, keeping only the first and last two
// characters. Short keys are fully masked.
func RedactAPIKey(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return "***"
	}
	return value[:2] + "***" + value[len(value)-2:]
}

// ShouldSampleTrace decides whether a request's trace should be logged,
// given a sample rate in [0, 1].
func ShouldSampleTrace(rate float64) bool {
	if rate <= 0 {
		return false
	}
	if rate >= 1 {
		return true
	}
	return rand.Float64() <= rate
}

// Timing is the aggregate kept per named timer.
type Timing struct {
	Count   int64 `json:"count"`
	TotalMS int64 `json:"total_ms"`
	MaxMS   int64 `json:"max_ms"`
}

// MetricsStore keeps named counters and timing aggregates for the lifetime of
// the process. Safe for concurrent use.
type MetricsStore struct {
	mu       sync.Mutex
	counters map[string]int64
	timings  map[string]*Timing
}

// NewMetricsStore creates an empty store.
func NewMetricsStore() *MetricsStore {
	return &MetricsStore{
		counters: make(map[string]int64),
		timings:  make(map[string]*Timing),
	}
}

// Increment adds value to the named counter.
func (s *MetricsStore) Increment(name string, value int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name] += value
}

// RecordTiming folds a duration sample into the named timing aggregate.
func (s *MetricsStore) RecordTiming(name string, durationMS int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	timing := s.timings[name]
	if timing == nil {
		timing = &Timing{}
		s.timings[name] = timing
	}
	timing.Count++
	timing.TotalMS += durationMS
	if durationMS > timing.MaxMS {
		timing.MaxMS = durationMS
	}
}

// Snapshot returns a point-in-time copy of every counter and timing.
func (s *MetricsStore) Snapshot() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	counters := make(map[string]int64, len(s.counters))
	for name, value := range s.counters {
		counters[name] = value
	}
	timings := make(map[string]Timing, len(s.timings))
	for name, timing := range s.timings {
		timings[name] = *timing
	}
	return map[string]interface{}{
		"counters": counters,
		"timings":  timings,
	}
}
