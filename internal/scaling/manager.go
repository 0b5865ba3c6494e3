package scaling

import (
	"math"
	"sync"
	"time"

	"agentcoord/internal/model"
	"agentcoord/pkg/logger"
)

// Config scaling configuration
type Config struct {
	MinAgents                     int
	MaxAgents                     int
	CooldownPeriod                time.Duration
	ScaleUpQueueThreshold         int           // Queue depth above which scale-up triggers
	ScaleUpLatencyThreshold       time.Duration // Trailing task latency above which scale-up triggers, 0 disables
	ScaleUpUtilizationThreshold   float64       // Pool utilization above which scale-up triggers
	ScaleDownUtilizationThreshold float64
	// Number of consecutive low-utilization evaluations required before a
	// scale-down; a single low sample never triggers one.
	StabilityWindow int
}

// DefaultConfig returns conservative defaults
func DefaultConfig() Config {
	return Config{
		MinAgents:                     1,
		MaxAgents:                     10,
		CooldownPeriod:                2 * time.Minute,
		ScaleUpQueueThreshold:         10,
		ScaleUpLatencyThreshold:       30 * time.Second,
		ScaleUpUtilizationThreshold:   0.80,
		ScaleDownUtilizationThreshold: 0.20,
		StabilityWindow:               5,
	}
}

// Manager decides whether the pool should grow or shrink. Decisions are
// advisory signals for an external provisioner; the manager never creates or
// destroys agent records itself.
type Manager struct {
	mu sync.Mutex

	config          Config
	lastScaleAction time.Time
	utilWindow      []float64
	recent          []model.ScalingDecision
	subscribers     []chan model.ScalingDecision
	now             func() time.Time
}

const recentDecisionLimit = 100

// NewManager creates a scaling manager
func NewManager(config Config) *Manager {
	if config.StabilityWindow <= 0 {
		config.StabilityWindow = DefaultConfig().StabilityWindow
	}
	return &Manager{
		config: config,
		now:    time.Now,
	}
}

// Subscribe returns a channel that receives every non-NoOp decision. Slow
// subscribers drop decisions rather than blocking the evaluation loop.
func (m *Manager) Subscribe() <-chan model.ScalingDecision {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan model.ScalingDecision, 16)
	m.subscribers = append(m.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription obtained from Subscribe and closes its
// channel. Safe to call once per subscription; unknown channels are ignored.
func (m *Manager) Unsubscribe(ch <-chan model.ScalingDecision) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// RecentDecisions returns the most recent decisions, newest last
func (m *Manager) RecentDecisions() []model.ScalingDecision {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ScalingDecision(nil), m.recent...)
}

// Evaluate applies the decision rules in order against the given metrics and
// returns the resulting decision. Every call records a utilization sample for
// the scale-down stability window.
func (m *Manager) Evaluate(metrics model.PoolMetrics) model.ScalingDecision {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.recordUtilization(metrics.AvgUtilization)

	decision := m.decide(metrics, now)
	m.record(decision)

	if decision.Action != model.ScalingActionNoOp {
		m.lastScaleAction = now
		// Scaling resets the stability window so the next scale-down needs
		// a fresh run of low samples.
		m.utilWindow = m.utilWindow[:0]
		logger.Infof("scaling decision: %s n=%d reason=%s pool %d -> %d",
			decision.Action, decision.N, decision.Reason,
			decision.PoolSizeBefore, decision.PoolSizeAfter)
		m.publish(decision)
	}
	return decision
}

func (m *Manager) decide(metrics model.PoolMetrics, now time.Time) model.ScalingDecision {
	decision := model.ScalingDecision{
		Action:         model.ScalingActionNoOp,
		Reason:         model.ScalingReasonWithinLimits,
		EvaluatedAt:    now,
		PoolSizeBefore: metrics.PoolSize,
		PoolSizeAfter:  metrics.PoolSize,
	}

	// Rule 1: cooldown wins over everything, to prevent thrashing.
	if !m.lastScaleAction.IsZero() && now.Sub(m.lastScaleAction) < m.config.CooldownPeriod {
		decision.Reason = model.ScalingReasonCooldownActive
		return decision
	}

	// Rule 2: scale up on queue depth, latency, or utilization pressure.
	if metrics.PoolSize < m.config.MaxAgents {
		if m.config.ScaleUpQueueThreshold > 0 && metrics.QueueDepth > m.config.ScaleUpQueueThreshold {
			excess := metrics.QueueDepth - m.config.ScaleUpQueueThreshold
			n := int(math.Ceil(float64(excess) / float64(m.config.ScaleUpQueueThreshold)))
			if n < 1 {
				n = 1
			}
			if metrics.PoolSize+n > m.config.MaxAgents {
				n = m.config.MaxAgents - metrics.PoolSize
			}
			decision.Action = model.ScalingActionScaleUp
			decision.N = n
			decision.Reason = model.ScalingReasonQueueDepthHigh
			decision.PoolSizeAfter = metrics.PoolSize + n
			return decision
		}
		if m.config.ScaleUpLatencyThreshold > 0 && metrics.AvgTaskLatency > m.config.ScaleUpLatencyThreshold {
			decision.Action = model.ScalingActionScaleUp
			decision.N = 1
			decision.Reason = model.ScalingReasonLatencyHigh
			decision.PoolSizeAfter = metrics.PoolSize + 1
			return decision
		}
		if metrics.AvgUtilization > m.config.ScaleUpUtilizationThreshold {
			decision.Action = model.ScalingActionScaleUp
			decision.N = 1
			decision.Reason = model.ScalingReasonUtilizationHigh
			decision.PoolSizeAfter = metrics.PoolSize + 1
			return decision
		}
	}

	// Rule 3: scale down only when the entire stability window stayed low.
	if metrics.PoolSize > m.config.MinAgents && m.windowBelowThreshold() {
		n := 1
		if metrics.PoolSize-n < m.config.MinAgents {
			n = metrics.PoolSize - m.config.MinAgents
		}
		decision.Action = model.ScalingActionScaleDown
		decision.N = n
		decision.Reason = model.ScalingReasonUtilizationLow
		decision.PoolSizeAfter = metrics.PoolSize - n
		return decision
	}

	return decision
}

func (m *Manager) recordUtilization(u float64) {
	m.utilWindow = append(m.utilWindow, u)
	if len(m.utilWindow) > m.config.StabilityWindow {
		m.utilWindow = m.utilWindow[len(m.utilWindow)-m.config.StabilityWindow:]
	}
}

func (m *Manager) windowBelowThreshold() bool {
	if len(m.utilWindow) < m.config.StabilityWindow {
		return false
	}
	for _, u := range m.utilWindow {
		if u >= m.config.ScaleDownUtilizationThreshold {
			return false
		}
	}
	return true
}

func (m *Manager) record(decision model.ScalingDecision) {
	m.recent = append(m.recent, decision)
	if len(m.recent) > recentDecisionLimit {
		m.recent = m.recent[len(m.recent)-recentDecisionLimit:]
	}
}

func (m *Manager) publish(decision model.ScalingDecision) {
	for _, ch := range m.subscribers {
		select {
		case ch <- decision:
		default:
		}
	}
}
