package model

import (
	"time"
)

// AgentStatus agent lifecycle status
type AgentStatus string

const (
	AgentStatusRegistering  AgentStatus = "REGISTERING"  // Registered, no heartbeat seen yet
	AgentStatusHealthy      AgentStatus = "HEALTHY"      // Heartbeating normally
	AgentStatusDegraded     AgentStatus = "DEGRADED"     // Missed at least one heartbeat
	AgentStatusUnresponsive AgentStatus = "UNRESPONSIVE" // Missed heartbeats beyond threshold
	AgentStatusRetired      AgentStatus = "RETIRED"      // Deregistered or retired after prolonged unresponsiveness
)

// Assignable reports whether an agent in this status may receive new tasks
func (s AgentStatus) Assignable() bool {
	return s == AgentStatusHealthy || s == AgentStatusDegraded
}

// ControlInstruction lifecycle command pushed to an agent in a heartbeat reply
type ControlInstruction string

const (
	ControlNone  ControlInstruction = ""
	ControlDrain ControlInstruction = "drain" // Finish active tasks, accept nothing new, then retire
)

// AgentStats cumulative per-agent outcome statistics
type AgentStats struct {
	CompletedCount int64         `json:"completed_count"`
	FailedCount    int64         `json:"failed_count"`
	AvgDuration    time.Duration `json:"avg_duration"` // Rolling average task duration
}

// SuccessRate returns completed / (completed + failed), or 1.0 with no history
func (s AgentStats) SuccessRate() float64 {
	total := s.CompletedCount + s.FailedCount
	if total == 0 {
		return 1.0
	}
	return float64(s.CompletedCount) / float64(total)
}

// Agent registered worker record
type Agent struct {
	ID                 string              `json:"id"`
	Capabilities       []string            `json:"capabilities"`
	Status             AgentStatus         `json:"status"`
	ActiveTaskIDs      []string            `json:"active_task_ids"`
	DeclaredLimits     Resources           `json:"declared_limits"`
	MaxConcurrentTasks int                 `json:"max_concurrent_tasks"`
	LastHeartbeat      time.Time           `json:"last_heartbeat"`
	MissedHeartbeats   int                 `json:"missed_heartbeats"`
	UnresponsiveSince  *time.Time          `json:"unresponsive_since,omitempty"`
	Draining           bool                `json:"draining"` // Deregistration requested while tasks were active
	RegisteredAt       time.Time           `json:"registered_at"`
	RegistrationSeq    uint64              `json:"registration_seq"` // Deterministic tie-break order
	Stats              AgentStats          `json:"stats"`
	ReportedUsage      Resources           `json:"reported_usage"` // Last heartbeat usage snapshot, advisory only
	PendingControl     ControlInstruction  `json:"pending_control,omitempty"`
}

// HasCapabilities reports whether the agent's capability set covers required
func (a *Agent) HasCapabilities(required []string) bool {
	if len(a.Capabilities) < len(required) {
		return false
	}
	for _, need := range required {
		found := false
		for _, have := range a.Capabilities {
			if have == need {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// HasActiveTask reports whether taskID is currently assigned to the agent
func (a *Agent) HasActiveTask(taskID string) bool {
	for _, id := range a.ActiveTaskIDs {
		if id == taskID {
			return true
		}
	}
	return false
}

// RegisterRequest agent registration request
type RegisterRequest struct {
	Capabilities       []string  `json:"capabilities" binding:"required"`
	DeclaredLimits     Resources `json:"declared_limits"`
	MaxConcurrentTasks int       `json:"max_concurrent_tasks"`
}

// RegisterResponse agent registration response
type RegisterResponse struct {
	AgentID string `json:"agent_id"`
}

// HeartbeatRequest heartbeat report from an agent
type HeartbeatRequest struct {
	AgentID       string    `json:"agent_id"` // Taken from the URL path when heartbeating over HTTP
	Timestamp     time.Time `json:"timestamp"`
	ActiveTaskIDs []string  `json:"current_active_task_ids"`
	ResourceUsage Resources `json:"resource_usage_snapshot"`
}

// HeartbeatResponse heartbeat reply carrying any pending control instruction
type HeartbeatResponse struct {
	Control ControlInstruction `json:"control,omitempty"`
}

// AgentView read-only agent snapshot returned by list/get endpoints
type AgentView struct {
	ID                 string      `json:"id"`
	Capabilities       []string    `json:"capabilities"`
	Status             AgentStatus `json:"status"`
	ActiveTaskCount    int         `json:"active_task_count"`
	MaxConcurrentTasks int         `json:"max_concurrent_tasks"`
	Utilization        float64     `json:"utilization"`
	LastHeartbeat      time.Time   `json:"last_heartbeat"`
	Stats              AgentStats  `json:"stats"`
}
