package coordinator

import (
	"testing"
	"time"

	"agentcoord/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCapacity struct {
	remaining map[string]model.Resources
}

func (f *fixedCapacity) RemainingCapacity(agentID string) model.Resources {
	return f.remaining[agentID]
}

func strategyAgent(id string, seq uint64) *model.Agent {
	return &model.Agent{
		ID:              id,
		Status:          model.AgentStatusHealthy,
		Capabilities:    []string{"general"},
		DeclaredLimits:  model.Resources{CPUUnits: 4, MemoryBytes: 8 << 30},
		RegistrationSeq: seq,
	}
}

func TestNewStrategy_UnsupportedName(t *testing.T) {
	_, err := NewStrategy("best_effort", nil)
	assert.Error(t, err)
}

func TestNewStrategy_DefaultsToLeastLoaded(t *testing.T) {
	s, err := NewStrategy("", nil)
	require.NoError(t, err)
	assert.Equal(t, StrategyLeastLoaded, s.Name())
}

func TestRoundRobin_RotatesAndWraps(t *testing.T) {
	s, err := NewStrategy(StrategyRoundRobin, nil)
	require.NoError(t, err)

	candidates := []*model.Agent{
		strategyAgent("a", 1),
		strategyAgent("b", 2),
		strategyAgent("c", 3),
	}
	task := &model.Task{ID: "t1"}

	assert.Equal(t, "a", s.Select(task, candidates).ID)
	assert.Equal(t, "b", s.Select(task, candidates).ID)
	assert.Equal(t, "c", s.Select(task, candidates).ID)
	assert.Equal(t, "a", s.Select(task, candidates).ID, "wraps to the front")
}

func TestRoundRobin_SkipsIneligibleAgents(t *testing.T) {
	s, err := NewStrategy(StrategyRoundRobin, nil)
	require.NoError(t, err)

	all := []*model.Agent{
		strategyAgent("a", 1),
		strategyAgent("b", 2),
		strategyAgent("c", 3),
	}
	task := &model.Task{ID: "t1"}

	require.Equal(t, "a", s.Select(task, all).ID)

	// With b filtered out of the candidate set the pointer moves past it.
	assert.Equal(t, "c", s.Select(task, []*model.Agent{all[0], all[2]}).ID)
}

func TestLeastLoaded_FewestActiveTasks(t *testing.T) {
	s, err := NewStrategy(StrategyLeastLoaded, nil)
	require.NoError(t, err)

	busy := strategyAgent("busy", 1)
	busy.ActiveTaskIDs = []string{"x", "y"}
	idle := strategyAgent("idle", 2)

	picked := s.Select(&model.Task{ID: "t1"}, []*model.Agent{busy, idle})
	assert.Equal(t, "idle", picked.ID)
}

func TestLeastLoaded_TieBreaksByRegistrationOrder(t *testing.T) {
	s, err := NewStrategy(StrategyLeastLoaded, nil)
	require.NoError(t, err)

	first := strategyAgent("first", 1)
	second := strategyAgent("second", 2)

	picked := s.Select(&model.Task{ID: "t1"}, []*model.Agent{first, second})
	assert.Equal(t, "first", picked.ID)
}

func TestResourceBased_PicksLargestHeadroom(t *testing.T) {
	capacity := &fixedCapacity{remaining: map[string]model.Resources{
		"tight": {CPUUnits: 1, MemoryBytes: 1 << 30},
		"roomy": {CPUUnits: 3, MemoryBytes: 6 << 30},
	}}
	s, err := NewStrategy(StrategyResourceBased, capacity)
	require.NoError(t, err)

	task := &model.Task{
		ID:              "t1",
		ResourceRequest: model.Resources{CPUUnits: 1, MemoryBytes: 1 << 30},
	}
	picked := s.Select(task, []*model.Agent{strategyAgent("tight", 1), strategyAgent("roomy", 2)})
	assert.Equal(t, "roomy", picked.ID)
}

func TestCapabilityBased_PrefersSpecialist(t *testing.T) {
	s, err := NewStrategy(StrategyCapabilityBased, nil)
	require.NoError(t, err)

	generalist := strategyAgent("generalist", 1)
	generalist.Capabilities = []string{"gpu", "transcode", "ocr"}
	specialist := strategyAgent("specialist", 2)
	specialist.Capabilities = []string{"gpu"}

	task := &model.Task{ID: "t1", RequiredCapabilities: []string{"gpu"}}
	picked := s.Select(task, []*model.Agent{generalist, specialist})
	assert.Equal(t, "specialist", picked.ID)
}

func TestWeighted_ScoresByOutcomeHistory(t *testing.T) {
	s, err := NewStrategy(StrategyWeighted, nil)
	require.NoError(t, err)

	flaky := strategyAgent("flaky", 1)
	flaky.Stats = model.AgentStats{CompletedCount: 5, FailedCount: 5, AvgDuration: time.Second}
	solid := strategyAgent("solid", 2)
	solid.Stats = model.AgentStats{CompletedCount: 10, AvgDuration: time.Second}

	picked := s.Select(&model.Task{ID: "t1"}, []*model.Agent{flaky, solid})
	assert.Equal(t, "solid", picked.ID)
}

func TestWeighted_SlowerAgentLoses(t *testing.T) {
	s, err := NewStrategy(StrategyWeighted, nil)
	require.NoError(t, err)

	slow := strategyAgent("slow", 1)
	slow.Stats = model.AgentStats{CompletedCount: 10, AvgDuration: 30 * time.Second}
	fast := strategyAgent("fast", 2)
	fast.Stats = model.AgentStats{CompletedCount: 10, AvgDuration: time.Second}

	picked := s.Select(&model.Task{ID: "t1"}, []*model.Agent{slow, fast})
	assert.Equal(t, "fast", picked.ID)
}

func TestWeighted_NoHistoryCountsAsPerfect(t *testing.T) {
	s, err := NewStrategy(StrategyWeighted, nil)
	require.NoError(t, err)

	fresh := strategyAgent("fresh", 1)
	proven := strategyAgent("proven", 2)
	proven.Stats = model.AgentStats{CompletedCount: 8, FailedCount: 2}

	picked := s.Select(&model.Task{ID: "t1"}, []*model.Agent{fresh, proven})
	assert.Equal(t, "fresh", picked.ID)
}
