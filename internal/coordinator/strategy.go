package coordinator

import (
	"fmt"

	"agentcoord/internal/model"
)

// Strategy names accepted by configuration.
const (
	StrategyRoundRobin      = "round_robin"
	StrategyLeastLoaded     = "least_loaded"
	StrategyResourceBased   = "resource_based"
	StrategyCapabilityBased = "capability_based"
	StrategyWeighted        = "weighted"
)

// CapacityView is the slice of the resource manager a strategy may consult.
type CapacityView interface {
	RemainingCapacity(agentID string) model.Resources
}

// Strategy selects one agent from a non-empty candidate set. Candidates are
// always presented in registration order, and every strategy is deterministic
// given identical inputs.
type Strategy interface {
	Name() string
	Select(task *model.Task, candidates []*model.Agent) *model.Agent
}

// NewStrategy creates the strategy selected by configuration
func NewStrategy(name string, capacity CapacityView) (Strategy, error) {
	switch name {
	case StrategyRoundRobin:
		return &roundRobinStrategy{}, nil
	case StrategyLeastLoaded, "":
		return &leastLoadedStrategy{}, nil
	case StrategyResourceBased:
		return &resourceBasedStrategy{capacity: capacity}, nil
	case StrategyCapabilityBased:
		return &capabilityBasedStrategy{}, nil
	case StrategyWeighted:
		return &weightedStrategy{}, nil
	default:
		return nil, fmt.Errorf("unsupported load-balancing strategy: %s", name)
	}
}

// roundRobinStrategy rotates a pointer over the registry in registration
// order, picking the next eligible candidate after the previously chosen one.
type roundRobinStrategy struct {
	lastSeq uint64
}

func (s *roundRobinStrategy) Name() string { return StrategyRoundRobin }

func (s *roundRobinStrategy) Select(task *model.Task, candidates []*model.Agent) *model.Agent {
	if len(candidates) == 0 {
		return nil
	}
	for _, a := range candidates {
		if a.RegistrationSeq > s.lastSeq {
			s.lastSeq = a.RegistrationSeq
			return a
		}
	}
	// Wrapped around the end of the rotation.
	s.lastSeq = candidates[0].RegistrationSeq
	return candidates[0]
}

// leastLoadedStrategy picks the candidate with the fewest active tasks, ties
// broken by registration order.
type leastLoadedStrategy struct{}

func (s *leastLoadedStrategy) Name() string { return StrategyLeastLoaded }

func (s *leastLoadedStrategy) Select(task *model.Task, candidates []*model.Agent) *model.Agent {
	var best *model.Agent
	for _, a := range candidates {
		if best == nil || len(a.ActiveTaskIDs) < len(best.ActiveTaskIDs) {
			best = a
		}
	}
	return best
}

// resourceBasedStrategy picks the candidate with the largest remaining
// declared capacity after hypothetically admitting the task.
type resourceBasedStrategy struct {
	capacity CapacityView
}

func (s *resourceBasedStrategy) Name() string { return StrategyResourceBased }

func (s *resourceBasedStrategy) Select(task *model.Task, candidates []*model.Agent) *model.Agent {
	var best *model.Agent
	bestScore := -1.0
	for _, a := range candidates {
		after := s.capacity.RemainingCapacity(a.ID).Subtract(task.ResourceRequest)
		score := headroomScore(after, a.DeclaredLimits)
		if score > bestScore {
			best = a
			bestScore = score
		}
	}
	return best
}

// headroomScore averages the remaining fraction across dimensions that have a
// declared limit.
func headroomScore(remaining, limits model.Resources) float64 {
	sum, dims := 0.0, 0
	if limits.CPUUnits > 0 {
		sum += remaining.CPUUnits / limits.CPUUnits
		dims++
	}
	if limits.MemoryBytes > 0 {
		sum += float64(remaining.MemoryBytes) / float64(limits.MemoryBytes)
		dims++
	}
	if limits.DiskBytes > 0 {
		sum += float64(remaining.DiskBytes) / float64(limits.DiskBytes)
		dims++
	}
	if limits.NetworkKbps > 0 {
		sum += float64(remaining.NetworkKbps) / float64(limits.NetworkKbps)
		dims++
	}
	if dims == 0 {
		return 0
	}
	return sum / float64(dims)
}

// capabilityBasedStrategy prefers the most specialized match: the candidate
// whose capability set is the smallest superset of the task's requirements,
// reserving generalists for harder-to-place tasks.
type capabilityBasedStrategy struct{}

func (s *capabilityBasedStrategy) Name() string { return StrategyCapabilityBased }

func (s *capabilityBasedStrategy) Select(task *model.Task, candidates []*model.Agent) *model.Agent {
	var best *model.Agent
	for _, a := range candidates {
		if best == nil || len(a.Capabilities) < len(best.Capabilities) {
			best = a
		}
	}
	return best
}

// weightedStrategy scores candidates by historical outcome quality:
// success_rate x 1/(1 + rolling average duration in seconds).
type weightedStrategy struct{}

func (s *weightedStrategy) Name() string { return StrategyWeighted }

func (s *weightedStrategy) Select(task *model.Task, candidates []*model.Agent) *model.Agent {
	var best *model.Agent
	bestScore := -1.0
	for _, a := range candidates {
		score := a.Stats.SuccessRate() * (1.0 / (1.0 + a.Stats.AvgDuration.Seconds()))
		if score > bestScore {
			best = a
			bestScore = score
		}
	}
	return best
}
