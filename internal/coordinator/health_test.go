package coordinator

import (
	"context"
	"testing"
	"time"

	"agentcoord/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepHeartbeats_DegradesAfterOneMiss(t *testing.T) {
	env := newTestEnv(t, StrategyLeastLoaded)
	ctx := context.Background()

	agentID := env.registerHealthy(t, []string{"general"}, 1)

	env.advance(16 * time.Second)
	require.NoError(t, env.coord.SweepHeartbeats(ctx))

	agent, err := env.coord.GetAgent(ctx, agentID)
	require.NoError(t, err)
	assert.Equal(t, model.AgentStatusDegraded, agent.Status)
	assert.Equal(t, 1, agent.MissedHeartbeats)
}

func TestSweepHeartbeats_SilentRegistrationNeverDegrades(t *testing.T) {
	env := newTestEnv(t, StrategyLeastLoaded)
	ctx := context.Background()

	// Registered but never heartbeated.
	agentID, err := env.coord.Register(ctx, &model.RegisterRequest{
		Capabilities:   []string{"general"},
		DeclaredLimits: model.Resources{CPUUnits: 4, MemoryBytes: 8 << 30},
	})
	require.NoError(t, err)
	taskID := env.submit(t, "unplaceable", 0)

	// One missed interval must not promote the agent into an assignable
	// state; HEALTHY is reachable only through a first heartbeat.
	env.advance(16 * time.Second)
	require.NoError(t, env.coord.SweepHeartbeats(ctx))
	env.coord.ScheduleTick(ctx)

	agent, err := env.coord.GetAgent(ctx, agentID)
	require.NoError(t, err)
	assert.Equal(t, model.AgentStatusRegistering, agent.Status)

	status, _ := env.coord.TaskStatus(ctx, taskID)
	assert.Equal(t, model.TaskStatusQueued, status.Status)
	assert.Zero(t, status.AttemptCount)

	// Past the threshold the silent registration turns unresponsive and, once
	// the grace period elapses, retires without ever taking a task.
	env.advance(30 * time.Second)
	require.NoError(t, env.coord.SweepHeartbeats(ctx))
	agent, _ = env.coord.GetAgent(ctx, agentID)
	assert.Equal(t, model.AgentStatusUnresponsive, agent.Status)

	env.advance(6 * time.Minute)
	require.NoError(t, env.coord.SweepHeartbeats(ctx))
	_, err = env.coord.GetAgent(ctx, agentID)
	assert.ErrorIs(t, err, ErrUnknownAgent)

	status, _ = env.coord.TaskStatus(ctx, taskID)
	assert.Equal(t, model.TaskStatusQueued, status.Status)
}

func TestSweepHeartbeats_DegradedAgentStillAssignable(t *testing.T) {
	env := newTestEnv(t, StrategyLeastLoaded)
	ctx := context.Background()

	agentID := env.registerHealthy(t, []string{"general"}, 1)
	env.advance(16 * time.Second)
	require.NoError(t, env.coord.SweepHeartbeats(ctx))

	taskID := env.submit(t, "assigned-to-degraded", 0)
	env.coord.ScheduleTick(ctx)

	status, _ := env.coord.TaskStatus(ctx, taskID)
	assert.Equal(t, model.TaskStatusAssigned, status.Status)
	assert.Equal(t, agentID, status.AssignedAgentID)
}

func TestSweepHeartbeats_UnresponsiveRequeuesActiveTasks(t *testing.T) {
	env := newTestEnv(t, StrategyLeastLoaded)
	ctx := context.Background()

	agentID := env.registerHealthy(t, []string{"general"}, 1)
	taskID := env.submit(t, "stranded", 0)
	env.coord.ScheduleTick(ctx)

	// Three missed intervals crosses the threshold.
	env.advance(46 * time.Second)
	require.NoError(t, env.coord.SweepHeartbeats(ctx))

	agent, err := env.coord.GetAgent(ctx, agentID)
	require.NoError(t, err)
	assert.Equal(t, model.AgentStatusUnresponsive, agent.Status)
	assert.Empty(t, agent.ActiveTaskIDs)
	require.NotNil(t, agent.UnresponsiveSince)

	status, _ := env.coord.TaskStatus(ctx, taskID)
	assert.Equal(t, model.TaskStatusQueued, status.Status)
	assert.Equal(t, 1, status.AttemptCount)
	assert.Empty(t, status.AssignedAgentID)
	assert.Equal(t, model.FailureReasonAgentUnresponsive, status.FailureReason)
}

func TestSweepHeartbeats_RequeuedTaskLandsOnAnotherAgent(t *testing.T) {
	env := newTestEnv(t, StrategyLeastLoaded)
	ctx := context.Background()

	silent := env.registerHealthy(t, []string{"general"}, 1)
	taskID := env.submit(t, "reassigned", 0)
	env.coord.ScheduleTick(ctx)

	env.advance(46 * time.Second)
	backup := env.registerHealthy(t, []string{"general"}, 1)
	require.NoError(t, env.coord.SweepHeartbeats(ctx))
	env.coord.ScheduleTick(ctx)

	status, _ := env.coord.TaskStatus(ctx, taskID)
	assert.Equal(t, model.TaskStatusAssigned, status.Status)
	assert.Equal(t, backup, status.AssignedAgentID)
	assert.NotEqual(t, silent, status.AssignedAgentID)
}

func TestSweepHeartbeats_HeartbeatRestoresHealthy(t *testing.T) {
	env := newTestEnv(t, StrategyLeastLoaded)
	ctx := context.Background()

	agentID := env.registerHealthy(t, []string{"general"}, 1)
	env.advance(46 * time.Second)
	require.NoError(t, env.coord.SweepHeartbeats(ctx))

	agent, _ := env.coord.GetAgent(ctx, agentID)
	require.Equal(t, model.AgentStatusUnresponsive, agent.Status)

	_, err := env.coord.HandleHeartbeat(ctx, &model.HeartbeatRequest{AgentID: agentID})
	require.NoError(t, err)

	agent, _ = env.coord.GetAgent(ctx, agentID)
	assert.Equal(t, model.AgentStatusHealthy, agent.Status)
	assert.Zero(t, agent.MissedHeartbeats)
	assert.Nil(t, agent.UnresponsiveSince)
}

func TestSweepHeartbeats_RetiresAfterGrace(t *testing.T) {
	env := newTestEnv(t, StrategyLeastLoaded)
	ctx := context.Background()

	agentID := env.registerHealthy(t, []string{"general"}, 1)

	env.advance(46 * time.Second)
	require.NoError(t, env.coord.SweepHeartbeats(ctx))

	// Still within grace: the record survives.
	env.advance(time.Minute)
	require.NoError(t, env.coord.SweepHeartbeats(ctx))
	_, err := env.coord.GetAgent(ctx, agentID)
	require.NoError(t, err)

	env.advance(5 * time.Minute)
	require.NoError(t, env.coord.SweepHeartbeats(ctx))
	_, err = env.coord.GetAgent(ctx, agentID)
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestSweepTaskTimeouts_RequeuesStalledTask(t *testing.T) {
	env := newTestEnv(t, StrategyLeastLoaded)
	ctx := context.Background()

	agentID := env.registerHealthy(t, []string{"general"}, 1)
	taskID := env.submit(t, "stalled", 0)
	env.coord.ScheduleTick(ctx)

	// Progress within the timeout: nothing happens.
	env.advance(5 * time.Minute)
	require.NoError(t, env.coord.SweepTaskTimeouts(ctx))
	status, _ := env.coord.TaskStatus(ctx, taskID)
	require.Equal(t, model.TaskStatusAssigned, status.Status)

	env.advance(6 * time.Minute)
	require.NoError(t, env.coord.SweepTaskTimeouts(ctx))

	status, _ = env.coord.TaskStatus(ctx, taskID)
	assert.Equal(t, model.TaskStatusQueued, status.Status)
	assert.Equal(t, 1, status.AttemptCount)
	assert.Equal(t, model.FailureReasonTaskTimeout, status.FailureReason)

	agent, _ := env.coord.GetAgent(ctx, agentID)
	assert.Empty(t, agent.ActiveTaskIDs)
}

func TestPurgeExpiredTasks(t *testing.T) {
	env := newTestEnv(t, StrategyLeastLoaded)
	ctx := context.Background()

	agentID := env.registerHealthy(t, []string{"general"}, 1)
	oldTask := env.submit(t, "old", 0)
	env.coord.ScheduleTick(ctx)
	require.NoError(t, env.coord.HandleOutcome(ctx, &model.OutcomeRequest{
		TaskID: oldTask, AgentID: agentID, Outcome: model.TaskOutcomeCompleted,
	}))

	env.advance(2 * time.Hour)
	fresh := env.submit(t, "fresh", 0)
	require.NoError(t, env.coord.PurgeExpiredTasks(ctx))

	_, err := env.coord.TaskStatus(ctx, oldTask)
	assert.ErrorIs(t, err, ErrUnknownTask)

	_, err = env.coord.TaskStatus(ctx, fresh)
	assert.NoError(t, err, "non-terminal tasks are never purged")
}
