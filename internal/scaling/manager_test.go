package scaling

import (
	"testing"
	"time"

	"agentcoord/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		MinAgents:                     1,
		MaxAgents:                     10,
		CooldownPeriod:                2 * time.Minute,
		ScaleUpQueueThreshold:         10,
		ScaleUpUtilizationThreshold:   0.80,
		ScaleDownUtilizationThreshold: 0.20,
		StabilityWindow:               3,
	}
}

func newTestManager(cfg Config) (*Manager, *time.Time) {
	m := NewManager(cfg)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestEvaluate_WithinLimits(t *testing.T) {
	m, _ := newTestManager(testConfig())

	d := m.Evaluate(model.PoolMetrics{QueueDepth: 3, AvgUtilization: 0.5, PoolSize: 5})
	assert.Equal(t, model.ScalingActionNoOp, d.Action)
	assert.Equal(t, model.ScalingReasonWithinLimits, d.Reason)
}

func TestEvaluate_QueueDepthScaleUpProportional(t *testing.T) {
	m, _ := newTestManager(testConfig())

	// 25 queued, threshold 10: excess 15 -> ceil(15/10) = 2 agents
	d := m.Evaluate(model.PoolMetrics{QueueDepth: 25, AvgUtilization: 0.5, PoolSize: 5})
	assert.Equal(t, model.ScalingActionScaleUp, d.Action)
	assert.Equal(t, 2, d.N)
	assert.Equal(t, model.ScalingReasonQueueDepthHigh, d.Reason)
	assert.Equal(t, 7, d.PoolSizeAfter)
}

func TestEvaluate_ScaleUpCappedAtMax(t *testing.T) {
	m, _ := newTestManager(testConfig())

	d := m.Evaluate(model.PoolMetrics{QueueDepth: 200, AvgUtilization: 0.5, PoolSize: 9})
	assert.Equal(t, model.ScalingActionScaleUp, d.Action)
	assert.Equal(t, 1, d.N, "cannot exceed max agents")
	assert.Equal(t, 10, d.PoolSizeAfter)
}

func TestEvaluate_NoScaleUpAtMax(t *testing.T) {
	m, _ := newTestManager(testConfig())

	d := m.Evaluate(model.PoolMetrics{QueueDepth: 200, AvgUtilization: 0.95, PoolSize: 10})
	assert.Equal(t, model.ScalingActionNoOp, d.Action)
}

func TestEvaluate_LatencyScaleUp(t *testing.T) {
	cfg := testConfig()
	cfg.ScaleUpLatencyThreshold = 30 * time.Second
	m, _ := newTestManager(cfg)

	d := m.Evaluate(model.PoolMetrics{AvgTaskLatency: time.Minute, AvgUtilization: 0.5, PoolSize: 5})
	assert.Equal(t, model.ScalingActionScaleUp, d.Action)
	assert.Equal(t, 1, d.N)
	assert.Equal(t, model.ScalingReasonLatencyHigh, d.Reason)
}

func TestEvaluate_LatencyTriggerDisabledByZeroThreshold(t *testing.T) {
	m, _ := newTestManager(testConfig())

	d := m.Evaluate(model.PoolMetrics{AvgTaskLatency: time.Hour, AvgUtilization: 0.5, PoolSize: 5})
	assert.Equal(t, model.ScalingActionNoOp, d.Action)
}

func TestEvaluate_UtilizationScaleUp(t *testing.T) {
	m, _ := newTestManager(testConfig())

	d := m.Evaluate(model.PoolMetrics{QueueDepth: 0, AvgUtilization: 0.9, PoolSize: 5})
	assert.Equal(t, model.ScalingActionScaleUp, d.Action)
	assert.Equal(t, 1, d.N)
	assert.Equal(t, model.ScalingReasonUtilizationHigh, d.Reason)
}

func TestEvaluate_CooldownBlocksEverything(t *testing.T) {
	m, now := newTestManager(testConfig())

	d := m.Evaluate(model.PoolMetrics{QueueDepth: 25, AvgUtilization: 0.9, PoolSize: 5})
	require.Equal(t, model.ScalingActionScaleUp, d.Action)

	// One minute later, still inside the two minute cooldown
	*now = now.Add(time.Minute)
	d = m.Evaluate(model.PoolMetrics{QueueDepth: 50, AvgUtilization: 0.95, PoolSize: 5})
	assert.Equal(t, model.ScalingActionNoOp, d.Action)
	assert.Equal(t, model.ScalingReasonCooldownActive, d.Reason)

	// After cooldown expires scaling resumes
	*now = now.Add(2 * time.Minute)
	d = m.Evaluate(model.PoolMetrics{QueueDepth: 50, AvgUtilization: 0.95, PoolSize: 5})
	assert.Equal(t, model.ScalingActionScaleUp, d.Action)
}

func TestEvaluate_ScaleDownNeedsFullStabilityWindow(t *testing.T) {
	m, _ := newTestManager(testConfig())

	low := model.PoolMetrics{QueueDepth: 0, AvgUtilization: 0.1, PoolSize: 5}

	// First two low samples are not enough
	d := m.Evaluate(low)
	assert.Equal(t, model.ScalingActionNoOp, d.Action)
	d = m.Evaluate(low)
	assert.Equal(t, model.ScalingActionNoOp, d.Action)

	// Third consecutive low sample fills the window
	d = m.Evaluate(low)
	assert.Equal(t, model.ScalingActionScaleDown, d.Action)
	assert.Equal(t, 1, d.N)
	assert.Equal(t, model.ScalingReasonUtilizationLow, d.Reason)
	assert.Equal(t, 4, d.PoolSizeAfter)
}

func TestEvaluate_SingleHighSampleResetsStreak(t *testing.T) {
	m, _ := newTestManager(testConfig())

	low := model.PoolMetrics{QueueDepth: 0, AvgUtilization: 0.1, PoolSize: 5}
	mid := model.PoolMetrics{QueueDepth: 0, AvgUtilization: 0.5, PoolSize: 5}

	m.Evaluate(low)
	m.Evaluate(low)
	m.Evaluate(mid)

	// The mid sample sits in the window, so no scale-down yet
	d := m.Evaluate(low)
	assert.Equal(t, model.ScalingActionNoOp, d.Action)
}

func TestEvaluate_ScaleDownRespectsMin(t *testing.T) {
	cfg := testConfig()
	cfg.StabilityWindow = 1
	m, _ := newTestManager(cfg)

	d := m.Evaluate(model.PoolMetrics{QueueDepth: 0, AvgUtilization: 0.1, PoolSize: 1})
	assert.Equal(t, model.ScalingActionNoOp, d.Action, "never below min agents")
}

func TestEvaluate_ActionResetsWindowAndStartsCooldown(t *testing.T) {
	cfg := testConfig()
	cfg.StabilityWindow = 2
	m, now := newTestManager(cfg)

	low := model.PoolMetrics{QueueDepth: 0, AvgUtilization: 0.1, PoolSize: 5}
	m.Evaluate(low)
	d := m.Evaluate(low)
	require.Equal(t, model.ScalingActionScaleDown, d.Action)

	// Past cooldown, but the window restarted after the action
	*now = now.Add(3 * time.Minute)
	d = m.Evaluate(low)
	assert.Equal(t, model.ScalingActionNoOp, d.Action)
	d = m.Evaluate(low)
	assert.Equal(t, model.ScalingActionScaleDown, d.Action)
}

func TestSubscribe_ReceivesNonNoOpDecisions(t *testing.T) {
	m, _ := newTestManager(testConfig())
	ch := m.Subscribe()

	m.Evaluate(model.PoolMetrics{QueueDepth: 3, AvgUtilization: 0.5, PoolSize: 5})
	m.Evaluate(model.PoolMetrics{QueueDepth: 25, AvgUtilization: 0.5, PoolSize: 5})

	select {
	case d := <-ch:
		assert.Equal(t, model.ScalingActionScaleUp, d.Action)
	default:
		t.Fatal("expected a published decision")
	}

	select {
	case <-ch:
		t.Fatal("noop decisions must not be published")
	default:
	}
}

func TestUnsubscribe_RemovesAndClosesChannel(t *testing.T) {
	m, _ := newTestManager(testConfig())

	ch := m.Subscribe()
	keep := m.Subscribe()
	m.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open, "unsubscribed channel must be closed")
	assert.Len(t, m.subscribers, 1)

	// Repeated churn never accumulates subscribers.
	for i := 0; i < 50; i++ {
		m.Unsubscribe(m.Subscribe())
	}
	assert.Len(t, m.subscribers, 1)

	m.Evaluate(model.PoolMetrics{QueueDepth: 25, AvgUtilization: 0.5, PoolSize: 5})
	select {
	case d := <-keep:
		assert.Equal(t, model.ScalingActionScaleUp, d.Action)
	default:
		t.Fatal("surviving subscriber missed the decision")
	}
}

func TestRecentDecisions_RecordsEverything(t *testing.T) {
	m, _ := newTestManager(testConfig())

	m.Evaluate(model.PoolMetrics{QueueDepth: 3, AvgUtilization: 0.5, PoolSize: 5})
	m.Evaluate(model.PoolMetrics{QueueDepth: 25, AvgUtilization: 0.5, PoolSize: 5})

	recent := m.RecentDecisions()
	require.Len(t, recent, 2)
	assert.Equal(t, model.ScalingActionNoOp, recent[0].Action)
	assert.Equal(t, model.ScalingActionScaleUp, recent[1].Action)
}
