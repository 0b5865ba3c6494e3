package monitoring

import (
	"sync"
	"time"
)

// Tracker accumulates the trailing end-to-end task latency window consumed by
// scaling evaluation and the realtime metrics endpoint.
type Tracker struct {
	mu sync.RWMutex

	windowSize int
	latencies  []time.Duration
}

// NewTracker creates a tracker with the given trailing window length
func NewTracker(windowSize int) *Tracker {
	if windowSize <= 0 {
		windowSize = 100
	}
	return &Tracker{windowSize: windowSize}
}

// ObserveTaskLatency records one task latency sample
func (t *Tracker) ObserveTaskLatency(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latencies = append(t.latencies, d)
	if len(t.latencies) > t.windowSize {
		t.latencies = t.latencies[len(t.latencies)-t.windowSize:]
	}
}

// AvgTaskLatency returns the average latency over the trailing window
func (t *Tracker) AvgTaskLatency() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.latencies) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range t.latencies {
		sum += d
	}
	return sum / time.Duration(len(t.latencies))
}
