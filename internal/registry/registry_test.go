package registry

import (
	"testing"
	"time"

	"agentcoord/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAgent(id string) *model.Agent {
	return &model.Agent{
		ID:            id,
		Capabilities:  []string{"gpu"},
		Status:        model.AgentStatusHealthy,
		ActiveTaskIDs: []string{},
	}
}

func newTask(id string, priority int) *model.Task {
	return &model.Task{
		ID:       id,
		Priority: priority,
		Status:   model.TaskStatusQueued,
	}
}

func TestRegistry_AgentOrdering(t *testing.T) {
	r := New()
	r.AddAgent(newAgent("a"))
	r.AddAgent(newAgent("b"))
	r.AddAgent(newAgent("c"))

	agents := r.Agents()
	require.Len(t, agents, 3)
	assert.Equal(t, "a", agents[0].ID)
	assert.Equal(t, "b", agents[1].ID)
	assert.Equal(t, "c", agents[2].ID)
	assert.Less(t, agents[0].RegistrationSeq, agents[1].RegistrationSeq)
}

func TestRegistry_GetAgentReturnsCopy(t *testing.T) {
	r := New()
	r.AddAgent(newAgent("a"))

	snapshot, err := r.GetAgent("a")
	require.NoError(t, err)
	snapshot.Status = model.AgentStatusRetired
	snapshot.Capabilities[0] = "mutated"

	stored, err := r.GetAgent("a")
	require.NoError(t, err)
	assert.Equal(t, model.AgentStatusHealthy, stored.Status)
	assert.Equal(t, "gpu", stored.Capabilities[0])
}

func TestRegistry_CompareAndSetAgentStatus(t *testing.T) {
	r := New()
	r.AddAgent(newAgent("a"))

	// Transition applies only from a matching status
	ok := r.CompareAndSetAgentStatus("a", []model.AgentStatus{model.AgentStatusHealthy}, model.AgentStatusDegraded)
	assert.True(t, ok)

	ok = r.CompareAndSetAgentStatus("a", []model.AgentStatus{model.AgentStatusHealthy}, model.AgentStatusUnresponsive)
	assert.False(t, ok, "agent is no longer healthy")

	agent, err := r.GetAgent("a")
	require.NoError(t, err)
	assert.Equal(t, model.AgentStatusDegraded, agent.Status)
}

func TestRegistry_DuplicateTaskID(t *testing.T) {
	r := New()
	require.NoError(t, r.AddTask(newTask("t1", 0)))
	assert.Error(t, r.AddTask(newTask("t1", 0)))
}

func TestRegistry_QueuedInOrder(t *testing.T) {
	r := New()
	require.NoError(t, r.AddTask(newTask("low-first", 5)))
	require.NoError(t, r.AddTask(newTask("high", 0)))
	require.NoError(t, r.AddTask(newTask("low-second", 5)))
	require.NoError(t, r.AddTask(newTask("mid", 2)))

	queued := r.QueuedInOrder()
	require.Len(t, queued, 4)
	assert.Equal(t, "high", queued[0].ID)
	assert.Equal(t, "mid", queued[1].ID)
	// FIFO within the same priority tier
	assert.Equal(t, "low-first", queued[2].ID)
	assert.Equal(t, "low-second", queued[3].ID)
}

func TestRegistry_QueuedInOrderSkipsNonQueued(t *testing.T) {
	r := New()
	require.NoError(t, r.AddTask(newTask("t1", 0)))
	require.NoError(t, r.AddTask(newTask("t2", 0)))
	require.NoError(t, r.UpdateTask("t1", func(task *model.Task) {
		task.Status = model.TaskStatusAssigned
	}))

	queued := r.QueuedInOrder()
	require.Len(t, queued, 1)
	assert.Equal(t, "t2", queued[0].ID)
	assert.Equal(t, 1, r.QueueDepth())
}

func TestRegistry_PurgeTerminalBefore(t *testing.T) {
	r := New()
	now := time.Now()
	old := now.Add(-2 * time.Hour)
	recent := now.Add(-time.Minute)

	require.NoError(t, r.AddTask(newTask("old-done", 0)))
	require.NoError(t, r.AddTask(newTask("recent-done", 0)))
	require.NoError(t, r.AddTask(newTask("still-queued", 0)))

	r.UpdateTask("old-done", func(task *model.Task) {
		task.Status = model.TaskStatusCompleted
		task.CompletedAt = &old
	})
	r.UpdateTask("recent-done", func(task *model.Task) {
		task.Status = model.TaskStatusFailed
		task.CompletedAt = &recent
	})

	purged := r.PurgeTerminalBefore(now.Add(-time.Hour))
	require.Len(t, purged, 1)
	assert.Equal(t, "old-done", purged[0].ID)

	_, err := r.GetTask("old-done")
	assert.Error(t, err)
	_, err = r.GetTask("recent-done")
	assert.NoError(t, err)
	_, err = r.GetTask("still-queued")
	assert.NoError(t, err)
}

func TestRegistry_TasksAssignedTo(t *testing.T) {
	r := New()
	require.NoError(t, r.AddTask(newTask("t1", 0)))
	require.NoError(t, r.AddTask(newTask("t2", 0)))
	r.UpdateTask("t1", func(task *model.Task) {
		task.Status = model.TaskStatusRunning
		task.AssignedAgentID = "a"
	})

	held := r.TasksAssignedTo("a")
	require.Len(t, held, 1)
	assert.Equal(t, "t1", held[0].ID)
	assert.Empty(t, r.TasksAssignedTo("b"))
}

func TestRegistry_AssignableAgentCount(t *testing.T) {
	r := New()
	r.AddAgent(newAgent("healthy"))

	degraded := newAgent("degraded")
	degraded.Status = model.AgentStatusDegraded
	r.AddAgent(degraded)

	unresponsive := newAgent("unresponsive")
	unresponsive.Status = model.AgentStatusUnresponsive
	r.AddAgent(unresponsive)

	assert.Equal(t, 2, r.AssignableAgentCount())
}
