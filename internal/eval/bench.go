package eval

import (
	"sync"
	"time"

	"folio/internal/models"
)

// DefaultBenchCapacity bounds the benchmark ring.
const DefaultBenchCapacity = 1000

// BenchLog is a bounded, append-only ring of benchmark samples. It is an
// explicit object handed to whichever component records benchmarks, so
// tests can instantiate isolated instances instead of sharing a global.
type BenchLog struct {
	mu      sync.Mutex
	samples []models.BenchmarkSample
	start   int
	size    int
}

// NewBenchLog builds a ring with the given capacity (DefaultBenchCapacity
// if non-positive).
func NewBenchLog(capacity int) *BenchLog {
	if capacity <= 0 {
		capacity = DefaultBenchCapacity
	}
	return &BenchLog{samples: make([]models.BenchmarkSample, capacity)}
}

// Record appends a sample, evicting the oldest when full.
func (b *BenchLog) Record(s models.BenchmarkSample) {
	if s.At.IsZero() {
		s.At = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := (b.start + b.size) % len(b.samples)
	b.samples[idx] = s
	if b.size < len(b.samples) {
		b.size++
	} else {
		b.start = (b.start + 1) % len(b.samples)
	}
}

// Snapshot returns the samples oldest-first.
func (b *BenchLog) Snapshot() []models.BenchmarkSample {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.BenchmarkSample, 0, b.size)
	for i := 0; i < b.size; i++ {
		out = append(out, b.samples[(b.start+i)%len(b.samples)])
	}
	return out
}

// Len reports how many samples are held.
func (b *BenchLog) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}
