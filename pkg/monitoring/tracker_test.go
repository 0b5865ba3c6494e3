package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAvgTaskLatency_EmptyWindow(t *testing.T) {
	tracker := NewTracker(10)
	assert.Zero(t, tracker.AvgTaskLatency())
}

func TestAvgTaskLatency_Mean(t *testing.T) {
	tracker := NewTracker(10)
	tracker.ObserveTaskLatency(time.Second)
	tracker.ObserveTaskLatency(3 * time.Second)

	assert.Equal(t, 2*time.Second, tracker.AvgTaskLatency())
}

func TestAvgTaskLatency_TrailingWindowOnly(t *testing.T) {
	tracker := NewTracker(2)
	tracker.ObserveTaskLatency(100 * time.Second)
	tracker.ObserveTaskLatency(time.Second)
	tracker.ObserveTaskLatency(3 * time.Second)

	// The first sample fell out of the window.
	assert.Equal(t, 2*time.Second, tracker.AvgTaskLatency())
}

func TestNewTracker_DefaultWindow(t *testing.T) {
	tracker := NewTracker(0)
	tracker.ObserveTaskLatency(time.Second)
	assert.Equal(t, time.Second, tracker.AvgTaskLatency())
}
