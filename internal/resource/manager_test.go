package resource

import (
	"testing"

	"agentcoord/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var limits = model.Resources{CPUUnits: 4, MemoryBytes: 8 << 30}

func TestManager_CanAdmit(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.Track("a", limits)

	assert.True(t, m.CanAdmit("a", model.Resources{CPUUnits: 4, MemoryBytes: 8 << 30}))
	assert.False(t, m.CanAdmit("a", model.Resources{CPUUnits: 5}))
	assert.False(t, m.CanAdmit("unknown", model.Resources{}))
}

func TestManager_AllocationNeverExceedsLimits(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.Track("a", limits)

	require.NoError(t, m.RecordAllocation("a", model.Resources{CPUUnits: 3}))
	assert.False(t, m.CanAdmit("a", model.Resources{CPUUnits: 2}))
	assert.Error(t, m.RecordAllocation("a", model.Resources{CPUUnits: 2}))

	// One unit still fits
	assert.True(t, m.CanAdmit("a", model.Resources{CPUUnits: 1}))
	require.NoError(t, m.RecordAllocation("a", model.Resources{CPUUnits: 1}))

	remaining := m.RemainingCapacity("a")
	assert.Equal(t, 0.0, remaining.CPUUnits)
}

func TestManager_ReleaseRestoresCapacity(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.Track("a", limits)

	req := model.Resources{CPUUnits: 2, MemoryBytes: 4 << 30}
	require.NoError(t, m.RecordAllocation("a", req))
	m.RecordRelease("a", req)

	assert.Equal(t, limits, m.RemainingCapacity("a"))
	assert.Equal(t, 0.0, m.AgentUtilization("a"))
}

func TestManager_ReleaseClampsAtZero(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.Track("a", limits)

	// Release without a matching allocation must not go negative
	m.RecordRelease("a", model.Resources{CPUUnits: 2})
	assert.Equal(t, limits, m.RemainingCapacity("a"))
}

func TestManager_Utilization(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.Track("a", limits)
	m.Track("b", limits)

	require.NoError(t, m.RecordAllocation("a", model.Resources{CPUUnits: 2}))

	// Utilization is the highest per-dimension ratio
	assert.InDelta(t, 0.5, m.AgentUtilization("a"), 1e-9)
	assert.InDelta(t, 0.25, m.PoolUtilization(), 1e-9)
}

func TestManager_Untrack(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.Track("a", limits)
	m.Untrack("a")

	assert.False(t, m.CanAdmit("a", model.Resources{}))
	assert.Equal(t, 0.0, m.PoolUtilization())
}

func TestManager_RecommendOptimizations(t *testing.T) {
	m := NewManager(Config{WindowSize: 3, HighWaterMark: 0.85, LowWaterMark: 0.20})
	m.Track("hot", model.Resources{CPUUnits: 1})
	m.Track("cold", model.Resources{CPUUnits: 1})
	m.Track("normal", model.Resources{CPUUnits: 1})

	require.NoError(t, m.RecordAllocation("hot", model.Resources{CPUUnits: 0.9}))
	require.NoError(t, m.RecordAllocation("normal", model.Resources{CPUUnits: 0.5}))

	// Not enough history yet
	m.Sample()
	assert.Empty(t, m.RecommendOptimizations())

	m.Sample()
	m.Sample()

	recs := m.RecommendOptimizations()
	require.Len(t, recs, 2)
	// Sorted by agent id
	assert.Equal(t, "cold", recs[0].AgentID)
	assert.Equal(t, RecommendationUnderutilized, recs[0].Kind)
	assert.Equal(t, "hot", recs[1].AgentID)
	assert.Equal(t, RecommendationOverloaded, recs[1].Kind)
}

func TestManager_RecommendationWindowRecovers(t *testing.T) {
	m := NewManager(Config{WindowSize: 2, HighWaterMark: 0.85, LowWaterMark: 0.20})
	m.Track("a", model.Resources{CPUUnits: 1})

	require.NoError(t, m.RecordAllocation("a", model.Resources{CPUUnits: 0.9}))
	m.Sample()
	m.Sample()
	require.Len(t, m.RecommendOptimizations(), 1)

	// A single mid-range sample clears the streak
	m.RecordRelease("a", model.Resources{CPUUnits: 0.4})
	m.Sample()
	assert.Empty(t, m.RecommendOptimizations())
}
