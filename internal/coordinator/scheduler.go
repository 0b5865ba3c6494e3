package coordinator

import (
	"context"
	"time"

	"agentcoord/internal/model"
	"agentcoord/pkg/logger"
)

// schedulerIdleInterval bounds how long the loop sleeps without a wake.
const schedulerIdleInterval = time.Second

// Run drives the scheduling loop until ctx is cancelled. Ticks fire on every
// wake (new task, heartbeat, completion) and on an idle fallback interval.
func (c *Coordinator) Run(ctx context.Context) {
	logger.InfoCtx(ctx, "scheduler started, strategy: %s", c.strategy.Name())
	ticker := time.NewTicker(schedulerIdleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "scheduler stopped")
			return
		case <-c.wake:
			c.ScheduleTick(ctx)
		case <-ticker.C:
			c.ScheduleTick(ctx)
		}
	}
}

// ScheduleTick processes the full queue once: expired deadlines are failed,
// placeable tasks are assigned and dispatched, unplaceable ones stay queued so
// lower-priority work is never starved by a stuck head. Scaling is evaluated
// after the pass.
func (c *Coordinator) ScheduleTick(ctx context.Context) {
	assignments := c.schedulePass(ctx)

	// Dispatch I/O runs outside the scheduling lock; a slow transport must
	// not delay decisions for other agents.
	for _, assignment := range assignments {
		go c.deliver(ctx, assignment)
	}

	c.evaluateScaling(ctx)
}

// schedulePass walks the queue under the scheduling lock and returns the
// assignments made.
func (c *Coordinator) schedulePass(ctx context.Context) []*model.Assignment {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	assignments := make([]*model.Assignment, 0)

	for _, task := range c.registry.QueuedInOrder() {
		if task.DeadlineExpired(now) {
			c.expireTaskLocked(ctx, task, now)
			continue
		}

		candidates := c.eligibleCandidates(task)
		if len(candidates) == 0 {
			continue
		}

		chosen := c.strategy.Select(task, candidates)
		if chosen == nil {
			continue
		}

		if assignment := c.assignLocked(ctx, task, chosen, now); assignment != nil {
			assignments = append(assignments, assignment)
		}
	}
	return assignments
}

// eligibleCandidates computes the candidate set for a task: assignable
// status, not draining, capability superset, a free concurrency slot, and a
// resource request the agent can still admit.
func (c *Coordinator) eligibleCandidates(task *model.Task) []*model.Agent {
	candidates := make([]*model.Agent, 0)
	for _, a := range c.registry.Agents() {
		if !a.Status.Assignable() || a.Draining {
			continue
		}
		if !a.HasCapabilities(task.RequiredCapabilities) {
			continue
		}
		if len(a.ActiveTaskIDs) >= a.MaxConcurrentTasks {
			continue
		}
		if !c.resources.CanAdmit(a.ID, task.ResourceRequest) {
			continue
		}
		candidates = append(candidates, a)
	}
	return candidates
}

// assignLocked transitions the task to ASSIGNED and records the allocation
// atomically with respect to other scheduling attempts for the same agent.
func (c *Coordinator) assignLocked(ctx context.Context, task *model.Task, agent *model.Agent, now time.Time) *model.Assignment {
	if err := c.resources.RecordAllocation(agent.ID, task.ResourceRequest); err != nil {
		// CanAdmit passed under the same lock, so this indicates a tracking
		// bug; skip the task rather than violate the capacity invariant.
		logger.ErrorCtx(ctx, "allocation refused after admission check, agent_id: %s, task_id: %s, error: %v",
			agent.ID, task.ID, err)
		return nil
	}

	assignedAt := now
	if err := c.registry.UpdateTask(task.ID, func(t *model.Task) {
		t.Status = model.TaskStatusAssigned
		t.AssignedAgentID = agent.ID
		t.AssignedAt = &assignedAt
		t.UpdatedAt = now
	}); err != nil {
		c.resources.RecordRelease(agent.ID, task.ResourceRequest)
		return nil
	}
	if err := c.registry.UpdateAgent(agent.ID, func(a *model.Agent) {
		a.ActiveTaskIDs = append(a.ActiveTaskIDs, task.ID)
	}); err != nil {
		logger.ErrorCtx(ctx, "failed to record active task on agent %s: %v", agent.ID, err)
	}
	c.mirrorSave(ctx, agent.ID)

	logger.InfoCtx(ctx, "task assigned, task_id: %s, agent_id: %s, attempt: %d, strategy: %s",
		task.ID, agent.ID, task.AttemptCount, c.strategy.Name())

	return &model.Assignment{
		TaskID:          task.ID,
		AgentID:         agent.ID,
		Priority:        task.Priority,
		ResourceRequest: task.ResourceRequest,
		Attempt:         task.AttemptCount,
		Deadline:        task.Deadline,
	}
}

// expireTaskLocked marks a queued task whose deadline elapsed as failed.
// Never silently dropped; the failure is visible via status query and audit.
func (c *Coordinator) expireTaskLocked(ctx context.Context, task *model.Task, now time.Time) {
	completedAt := now
	if err := c.registry.UpdateTask(task.ID, func(t *model.Task) {
		t.Status = model.TaskStatusFailed
		t.FailureReason = model.FailureReasonDeadlineExceeded
		t.Error = "deadline exceeded before assignment"
		t.CompletedAt = &completedAt
		t.UpdatedAt = now
	}); err != nil {
		return
	}
	logger.WarnCtx(ctx, "task deadline exceeded, task_id: %s", task.ID)
	c.archiveTask(ctx, task.ID)
}

// deliver hands an assignment to the dispatch transport. Failures funnel into
// the single task failure path.
func (c *Coordinator) deliver(ctx context.Context, assignment *model.Assignment) {
	if err := c.dispatch.Dispatch(ctx, assignment); err != nil {
		logger.ErrorCtx(ctx, "dispatch failed, task_id: %s, agent_id: %s, error: %v",
			assignment.TaskID, assignment.AgentID, err)
		c.mu.Lock()
		c.failTaskLocked(ctx, assignment.TaskID, model.FailureReasonWorkerReported, "dispatch failed: "+err.Error())
		c.mu.Unlock()
	}
}

// evaluateScaling feeds pool metrics to the scaling manager after a pass
func (c *Coordinator) evaluateScaling(ctx context.Context) {
	metrics := model.PoolMetrics{
		QueueDepth:     c.registry.QueueDepth(),
		AvgTaskLatency: c.metrics.AvgTaskLatency(),
		AvgUtilization: c.resources.PoolUtilization(),
		PoolSize:       c.registry.AssignableAgentCount(),
	}
	c.scaler.Evaluate(metrics)
}
