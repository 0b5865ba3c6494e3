package coordinator

import (
	"context"
	"fmt"
	"time"

	"agentcoord/internal/model"
	"agentcoord/pkg/logger"
)

// HandleHeartbeat processes an agent heartbeat: refreshes liveness, restores
// the agent to HEALTHY, acknowledges the tasks the agent reports as running,
// and replies with any pending control instruction. This is the only channel
// through which lifecycle commands reach a worker.
func (c *Coordinator) HandleHeartbeat(ctx context.Context, req *model.HeartbeatRequest) (*model.HeartbeatResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.registry.GetAgent(req.AgentID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, req.AgentID)
	}

	now := c.now()
	if err := c.registry.UpdateAgent(req.AgentID, func(a *model.Agent) {
		a.LastHeartbeat = now
		a.MissedHeartbeats = 0
		a.UnresponsiveSince = nil
		a.ReportedUsage = req.ResourceUsage
	}); err != nil {
		return nil, err
	}

	// A single successful heartbeat returns the agent to HEALTHY.
	c.registry.CompareAndSetAgentStatus(req.AgentID, []model.AgentStatus{
		model.AgentStatusRegistering,
		model.AgentStatusDegraded,
		model.AgentStatusUnresponsive,
	}, model.AgentStatusHealthy)

	// Tasks the agent reports holding move ASSIGNED -> RUNNING.
	for _, taskID := range req.ActiveTaskIDs {
		task, err := c.registry.GetTask(taskID)
		if err != nil || task.AssignedAgentID != req.AgentID {
			continue
		}
		if task.Status == model.TaskStatusAssigned {
			startedAt := now
			c.registry.UpdateTask(taskID, func(t *model.Task) {
				t.Status = model.TaskStatusRunning
				t.StartedAt = &startedAt
				t.UpdatedAt = now
			})
		}
	}

	agent, err := c.registry.GetAgent(req.AgentID)
	if err != nil {
		return nil, err
	}
	control := agent.PendingControl

	c.mirrorSave(ctx, req.AgentID)
	c.Wake()
	return &model.HeartbeatResponse{Control: control}, nil
}

// HandleOutcome processes a worker-reported completion or failure. A timeout
// detected by the sweep funnels into the same failure path, so there is a
// single place failures are handled.
func (c *Coordinator) HandleOutcome(ctx context.Context, req *model.OutcomeRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	task, err := c.registry.GetTask(req.TaskID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownTask, req.TaskID)
	}
	if task.Status.Terminal() {
		// Late report after a timeout-triggered requeue already resolved the
		// attempt; ignore.
		logger.DebugCtx(ctx, "outcome for terminal task ignored, task_id: %s", req.TaskID)
		return nil
	}
	if task.AssignedAgentID != req.AgentID {
		return fmt.Errorf("%w: task %s held by %s, reported by %s",
			ErrOutcomeMismatch, req.TaskID, task.AssignedAgentID, req.AgentID)
	}

	switch req.Outcome {
	case model.TaskOutcomeCompleted:
		c.completeTaskLocked(ctx, task, req.Output)
	case model.TaskOutcomeFailed:
		c.failTaskLocked(ctx, req.TaskID, model.FailureReasonWorkerReported, req.Error)
	default:
		return fmt.Errorf("unsupported outcome: %s", req.Outcome)
	}
	return nil
}

// completeTaskLocked finalizes a successful task: terminal status, stats,
// release, archive. Caller holds mu.
func (c *Coordinator) completeTaskLocked(ctx context.Context, task *model.Task, output map[string]interface{}) {
	now := c.now()
	agentID := task.AssignedAgentID

	var duration time.Duration
	if task.AssignedAt != nil {
		duration = now.Sub(*task.AssignedAt)
	}

	completedAt := now
	c.registry.UpdateTask(task.ID, func(t *model.Task) {
		t.Status = model.TaskStatusCompleted
		t.AssignedAgentID = ""
		t.Output = output
		t.FailureReason = model.FailureReasonNone
		t.Error = ""
		t.CompletedAt = &completedAt
		t.UpdatedAt = now
	})

	c.registry.UpdateAgent(agentID, func(a *model.Agent) {
		a.ActiveTaskIDs = removeID(a.ActiveTaskIDs, task.ID)
		a.Stats.CompletedCount++
		n := a.Stats.CompletedCount
		a.Stats.AvgDuration = time.Duration((int64(a.Stats.AvgDuration)*(n-1) + int64(duration)) / n)
	})
	c.resources.RecordRelease(agentID, task.ResourceRequest)
	c.metrics.ObserveTaskLatency(now.Sub(task.CreatedAt))
	c.mirrorSave(ctx, agentID)
	c.archiveTask(ctx, task.ID)

	logger.InfoCtx(ctx, "task completed, task_id: %s, agent_id: %s, duration: %v", task.ID, agentID, duration)

	c.finishDrainLocked(ctx, agentID)
	c.Wake()
}

// failTaskLocked is the single failure path shared by worker-reported
// failures, dispatch failures, task timeouts, and unresponsive-agent
// reassignment. It increments the attempt count and either requeues the task
// or, once attempts are exhausted, fails it permanently. Caller holds mu.
func (c *Coordinator) failTaskLocked(ctx context.Context, taskID string, reason model.FailureReason, errMsg string) {
	task, err := c.registry.GetTask(taskID)
	if err != nil || task.Status.Terminal() || task.Status == model.TaskStatusQueued {
		return
	}

	now := c.now()
	agentID := task.AssignedAgentID
	if agentID != "" {
		c.registry.UpdateAgent(agentID, func(a *model.Agent) {
			a.ActiveTaskIDs = removeID(a.ActiveTaskIDs, taskID)
			a.Stats.FailedCount++
		})
		c.resources.RecordRelease(agentID, task.ResourceRequest)
		c.mirrorSave(ctx, agentID)
	}

	attempts := task.AttemptCount + 1
	if attempts >= task.MaxAttempts {
		completedAt := now
		c.registry.UpdateTask(taskID, func(t *model.Task) {
			t.AttemptCount = attempts
			t.Status = model.TaskStatusFailed
			t.AssignedAgentID = ""
			t.FailureReason = reason
			t.Error = errMsg
			t.CompletedAt = &completedAt
			t.UpdatedAt = now
		})
		c.metrics.ObserveTaskLatency(now.Sub(task.CreatedAt))
		c.archiveTask(ctx, taskID)
		logger.WarnCtx(ctx, "task failed permanently, task_id: %s, attempts: %d, reason: %s", taskID, attempts, reason)
	} else {
		c.registry.UpdateTask(taskID, func(t *model.Task) {
			t.AttemptCount = attempts
			t.Status = model.TaskStatusQueued
			t.AssignedAgentID = ""
			t.FailureReason = reason
			t.Error = errMsg
			t.AssignedAt = nil
			t.StartedAt = nil
			t.UpdatedAt = now
		})
		logger.InfoCtx(ctx, "task requeued, task_id: %s, attempt: %d, reason: %s", taskID, attempts, reason)
	}

	if agentID != "" {
		c.finishDrainLocked(ctx, agentID)
	}
	c.Wake()
}

// finishDrainLocked retires a draining agent once its last active task has
// resolved. Caller holds mu.
func (c *Coordinator) finishDrainLocked(ctx context.Context, agentID string) {
	agent, err := c.registry.GetAgent(agentID)
	if err != nil {
		return
	}
	if agent.Draining && len(agent.ActiveTaskIDs) == 0 {
		c.retireLocked(ctx, agentID)
		logger.InfoCtx(ctx, "draining agent retired, agent_id: %s", agentID)
	}
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
