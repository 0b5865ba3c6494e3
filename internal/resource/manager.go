package resource

import (
	"fmt"
	"sort"
	"sync"

	"agentcoord/internal/model"
	"agentcoord/pkg/logger"
)

// Config resource manager configuration
type Config struct {
	// Rolling utilization window length used by RecommendOptimizations.
	WindowSize int
	// Utilization above which an agent is persistently overloaded.
	HighWaterMark float64
	// Utilization below which an agent is persistently underutilized.
	LowWaterMark float64
}

// DefaultConfig returns the default watermarks
func DefaultConfig() Config {
	return Config{
		WindowSize:    10,
		HighWaterMark: 0.85,
		LowWaterMark:  0.20,
	}
}

// RecommendationKind optimization recommendation kind
type RecommendationKind string

const (
	RecommendationOverloaded    RecommendationKind = "OVERLOADED"    // Avoid further assignment
	RecommendationUnderutilized RecommendationKind = "UNDERUTILIZED" // Scale-down candidate
)

// Recommendation advisory per-agent optimization hint
type Recommendation struct {
	AgentID     string             `json:"agent_id"`
	Kind        RecommendationKind `json:"kind"`
	Utilization float64            `json:"utilization"` // Window average
}

// Manager tracks declared limits and admitted allocations per agent and for
// the pool as a whole. It is the admission authority: the coordinator asks
// CanAdmit before assigning and records exactly one allocation per assignment
// and one release per terminal outcome. There is no rollback path, so callers
// must not record speculatively.
type Manager struct {
	mu sync.RWMutex

	config    Config
	limits    map[string]model.Resources
	allocated map[string]model.Resources
	windows   map[string][]float64
}

// NewManager creates a resource manager
func NewManager(config Config) *Manager {
	if config.WindowSize <= 0 {
		config.WindowSize = DefaultConfig().WindowSize
	}
	return &Manager{
		config:    config,
		limits:    make(map[string]model.Resources),
		allocated: make(map[string]model.Resources),
		windows:   make(map[string][]float64),
	}
}

// Track registers an agent's declared limits
func (m *Manager) Track(agentID string, limits model.Resources) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits[agentID] = limits
	m.allocated[agentID] = model.Resources{}
}

// Untrack forgets an agent entirely
func (m *Manager) Untrack(agentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.limits, agentID)
	delete(m.allocated, agentID)
	delete(m.windows, agentID)
}

// CanAdmit reports whether the agent's current allocations plus request fit
// within its declared limits on every dimension. Pure check, no side effects.
func (m *Manager) CanAdmit(agentID string, request model.Resources) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	limits, ok := m.limits[agentID]
	if !ok {
		return false
	}
	return m.allocated[agentID].Add(request).Fits(limits)
}

// RemainingCapacity returns the agent's unallocated declared capacity
func (m *Manager) RemainingCapacity(agentID string) model.Resources {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.limits[agentID].Subtract(m.allocated[agentID])
}

// RecordAllocation records an admitted allocation. Called exactly once per
// assignment, under the coordinator's scheduling lock.
func (m *Manager) RecordAllocation(agentID string, request model.Resources) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	limits, ok := m.limits[agentID]
	if !ok {
		return fmt.Errorf("agent not tracked: %s", agentID)
	}
	next := m.allocated[agentID].Add(request)
	if !next.Fits(limits) {
		return fmt.Errorf("allocation exceeds declared limits for agent %s", agentID)
	}
	m.allocated[agentID] = next
	return nil
}

// RecordRelease records the release of an allocation on terminal outcome.
// Called exactly once per terminal outcome or requeue.
func (m *Manager) RecordRelease(agentID string, request model.Resources) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.limits[agentID]; !ok {
		return
	}
	released := m.allocated[agentID].Subtract(request)
	if !released.IsNonNegative() {
		// Release without matching allocation indicates a caller bug; clamp
		// to zero rather than going negative.
		logger.Warnf("resource release below zero for agent %s, clamping", agentID)
		released = model.Resources{}
	}
	m.allocated[agentID] = released
}

// AgentUtilization returns the agent's allocated fraction of declared limits
func (m *Manager) AgentUtilization(agentID string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	limits, ok := m.limits[agentID]
	if !ok {
		return 0
	}
	return m.allocated[agentID].Utilization(limits)
}

// PoolUtilization returns the average utilization across tracked agents
func (m *Manager) PoolUtilization() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.limits) == 0 {
		return 0
	}
	sum := 0.0
	for agentID, limits := range m.limits {
		sum += m.allocated[agentID].Utilization(limits)
	}
	return sum / float64(len(m.limits))
}

// Sample appends the current utilization of every tracked agent to its
// rolling window. Invoked periodically by the background sampling job.
func (m *Manager) Sample() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for agentID, limits := range m.limits {
		window := append(m.windows[agentID], m.allocated[agentID].Utilization(limits))
		if len(window) > m.config.WindowSize {
			window = window[len(window)-m.config.WindowSize:]
		}
		m.windows[agentID] = window
	}
}

// RecommendOptimizations reports agents whose utilization stayed above the
// high-water mark or below the low-water mark for the entire rolling window.
// Advisory only, mutates nothing.
func (m *Manager) RecommendOptimizations() []Recommendation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := make([]Recommendation, 0)
	agentIDs := make([]string, 0, len(m.windows))
	for agentID := range m.windows {
		agentIDs = append(agentIDs, agentID)
	}
	sort.Strings(agentIDs)

	for _, agentID := range agentIDs {
		window := m.windows[agentID]
		if len(window) < m.config.WindowSize {
			continue // Not enough history yet
		}
		allHigh, allLow := true, true
		sum := 0.0
		for _, u := range window {
			sum += u
			if u <= m.config.HighWaterMark {
				allHigh = false
			}
			if u >= m.config.LowWaterMark {
				allLow = false
			}
		}
		avg := sum / float64(len(window))
		if allHigh {
			recs = append(recs, Recommendation{AgentID: agentID, Kind: RecommendationOverloaded, Utilization: avg})
		} else if allLow {
			recs = append(recs, Recommendation{AgentID: agentID, Kind: RecommendationUnderutilized, Utilization: avg})
		}
	}
	return recs
}
