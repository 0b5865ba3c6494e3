package model

import (
	"encoding/json"
	"time"
)

// TaskStatus task status
type TaskStatus string

const (
	TaskStatusQueued    TaskStatus = "QUEUED"    // Waiting for an eligible agent
	TaskStatusAssigned  TaskStatus = "ASSIGNED"  // Dispatched, not yet acknowledged running
	TaskStatusRunning   TaskStatus = "RUNNING"   // Acknowledged by the holding agent
	TaskStatusCompleted TaskStatus = "COMPLETED" // Terminal success
	TaskStatusFailed    TaskStatus = "FAILED"    // Terminal failure
)

// Terminal reports whether the status is final
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// FailureReason cause recorded on a failed or requeued task
type FailureReason string

const (
	FailureReasonNone              FailureReason = ""
	FailureReasonDeadlineExceeded  FailureReason = "DEADLINE_EXCEEDED"
	FailureReasonWorkerReported    FailureReason = "WORKER_REPORTED"
	FailureReasonTaskTimeout       FailureReason = "TASK_TIMEOUT"
	FailureReasonAgentUnresponsive FailureReason = "AGENT_UNRESPONSIVE"
)

// Task unit of work
type Task struct {
	ID                   string                 `json:"id"`
	RequiredCapabilities []string               `json:"required_capabilities"`
	Priority             int                    `json:"priority"` // 0 is highest
	ResourceRequest      Resources              `json:"resource_request"`
	Status               TaskStatus             `json:"status"`
	AssignedAgentID      string                 `json:"assigned_agent_id,omitempty"`
	AttemptCount         int                    `json:"attempt_count"`
	MaxAttempts          int                    `json:"max_attempts"`
	Deadline             *time.Time             `json:"deadline,omitempty"`
	FailureReason        FailureReason          `json:"failure_reason,omitempty"`
	Error                string                 `json:"error,omitempty"`
	Output               map[string]interface{} `json:"output,omitempty"`
	EnqueueSeq           uint64                 `json:"enqueue_seq"` // FIFO tie-break within a priority tier
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
	AssignedAt           *time.Time             `json:"assigned_at,omitempty"`
	StartedAt            *time.Time             `json:"started_at,omitempty"`
	CompletedAt          *time.Time             `json:"completed_at,omitempty"`
}

// DeadlineExpired reports whether the task deadline has elapsed at now
func (t *Task) DeadlineExpired(now time.Time) bool {
	return t.Deadline != nil && now.After(*t.Deadline)
}

// ToJSON converts task to JSON bytes
func (t *Task) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}

// FromJSON converts JSON bytes to task
func (t *Task) FromJSON(data []byte) error {
	return json.Unmarshal(data, t)
}

// SubmitRequest task submission request
type SubmitRequest struct {
	ID                   string     `json:"id,omitempty"` // Optional caller-supplied id
	RequiredCapabilities []string   `json:"required_capabilities" binding:"required"`
	Priority             int        `json:"priority"`
	ResourceRequest      Resources  `json:"resource_request"`
	Deadline             *time.Time `json:"deadline,omitempty"`
	MaxAttempts          int        `json:"max_attempts,omitempty"`
}

// SubmitResponse task submission response
type SubmitResponse struct {
	TaskID string     `json:"task_id"`
	Status TaskStatus `json:"status"`
	// Set when no currently registered agent can satisfy the task;
	// the task is queued regardless, eligibility may appear later.
	Diagnostic string `json:"diagnostic,omitempty"`
}

// StatusResponse task status query response
type StatusResponse struct {
	TaskID          string        `json:"task_id"`
	Status          TaskStatus    `json:"status"`
	AssignedAgentID string        `json:"assigned_agent_id,omitempty"`
	AttemptCount    int           `json:"attempt_count"`
	FailureReason   FailureReason `json:"failure_reason,omitempty"`
	Error           string        `json:"error,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
}

// TaskOutcome worker-reported outcome values
type TaskOutcome string

const (
	TaskOutcomeCompleted TaskOutcome = "Completed"
	TaskOutcomeFailed    TaskOutcome = "Failed"
)

// OutcomeRequest worker-reported task outcome
type OutcomeRequest struct {
	TaskID  string                 `json:"task_id" binding:"required"`
	AgentID string                 `json:"agent_id" binding:"required"`
	Outcome TaskOutcome            `json:"outcome" binding:"required"`
	Output  map[string]interface{} `json:"result_payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Assignment payload handed to the dispatch transport
type Assignment struct {
	TaskID          string     `json:"task_id"`
	AgentID         string     `json:"agent_id"`
	Priority        int        `json:"priority"`
	ResourceRequest Resources  `json:"resource_request"`
	Attempt         int        `json:"attempt"`
	Deadline        *time.Time `json:"deadline,omitempty"`
}
