package coordinator

import (
	"context"

	"agentcoord/internal/model"
	"agentcoord/pkg/logger"
)

// SweepHeartbeats is the authoritative health transition function, driven
// purely by time since last heartbeat. It is the only writer of DEGRADED and
// UNRESPONSIVE, so a burst of fast task failures can never be misread as a
// health problem. Runs periodically at half the heartbeat interval.
func (c *Coordinator) SweepHeartbeats(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, agent := range c.registry.Agents() {
		if agent.Status == model.AgentStatusRetired {
			continue
		}

		missed := int(now.Sub(agent.LastHeartbeat) / c.config.HeartbeatInterval)
		if missed <= 0 {
			continue
		}
		c.registry.UpdateAgent(agent.ID, func(a *model.Agent) {
			a.MissedHeartbeats = missed
		})

		// Only HEALTHY degrades. An agent that never heartbeated stays
		// REGISTERING (not assignable) until it either heartbeats or crosses
		// the unresponsive threshold.
		if missed < c.config.MissedThreshold {
			if c.registry.CompareAndSetAgentStatus(agent.ID, []model.AgentStatus{
				model.AgentStatusHealthy,
			}, model.AgentStatusDegraded) {
				logger.WarnCtx(ctx, "agent degraded, agent_id: %s, missed_heartbeats: %d", agent.ID, missed)
				c.mirrorSave(ctx, agent.ID)
			}
			continue
		}

		if c.registry.CompareAndSetAgentStatus(agent.ID, []model.AgentStatus{
			model.AgentStatusRegistering,
			model.AgentStatusHealthy,
			model.AgentStatusDegraded,
		}, model.AgentStatusUnresponsive) {
			since := now
			c.registry.UpdateAgent(agent.ID, func(a *model.Agent) {
				a.UnresponsiveSince = &since
			})
			logger.ErrorCtx(ctx, "agent unresponsive, agent_id: %s, missed_heartbeats: %d, requeueing %d tasks",
				agent.ID, missed, len(agent.ActiveTaskIDs))

			// Forcibly requeue everything the agent holds.
			for _, taskID := range agent.ActiveTaskIDs {
				c.failTaskLocked(ctx, taskID, model.FailureReasonAgentUnresponsive, "agent missed heartbeats")
			}
			c.mirrorSave(ctx, agent.ID)
			continue
		}

		// Already unresponsive: auto-retire once the grace period expires and
		// no tasks remain attached.
		if agent.Status == model.AgentStatusUnresponsive && agent.UnresponsiveSince != nil &&
			now.Sub(*agent.UnresponsiveSince) > c.config.UnresponsiveGrace {
			current, err := c.registry.GetAgent(agent.ID)
			if err != nil || len(current.ActiveTaskIDs) > 0 {
				continue
			}
			c.retireLocked(ctx, agent.ID)
			logger.InfoCtx(ctx, "unresponsive agent retired, agent_id: %s", agent.ID)
		}
	}
	return nil
}

// SweepTaskTimeouts fails ASSIGNED/RUNNING tasks that have shown no progress
// within the task timeout. Expiry is treated identically to a worker-reported
// failure, through the single failure path.
func (c *Coordinator) SweepTaskTimeouts(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, status := range []model.TaskStatus{model.TaskStatusAssigned, model.TaskStatusRunning} {
		for _, task := range c.registry.TasksByStatus(status) {
			if task.AssignedAt == nil {
				continue
			}
			if now.Sub(*task.AssignedAt) > c.config.TaskTimeout {
				logger.WarnCtx(ctx, "task timed out, task_id: %s, agent_id: %s", task.ID, task.AssignedAgentID)
				c.failTaskLocked(ctx, task.ID, model.FailureReasonTaskTimeout, "no progress within task timeout")
			}
		}
	}
	return nil
}

// PurgeExpiredTasks drops terminal tasks older than the retention window.
// Terminal records were archived when they became terminal; the in-memory
// copy exists only for the audit window.
func (c *Coordinator) PurgeExpiredTasks(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.config.RetentionWindow)
	purged := c.registry.PurgeTerminalBefore(cutoff)
	if len(purged) > 0 {
		logger.InfoCtx(ctx, "purged %d terminal tasks past retention window", len(purged))
	}
	return nil
}

// SampleUtilization feeds the resource manager's rolling recommendation
// window. Runs periodically.
func (c *Coordinator) SampleUtilization(ctx context.Context) error {
	c.resources.Sample()
	return nil
}
