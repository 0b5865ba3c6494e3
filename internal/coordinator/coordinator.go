package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agentcoord/internal/model"
	"agentcoord/internal/registry"
	"agentcoord/internal/resource"
	"agentcoord/internal/scaling"
	"agentcoord/pkg/logger"

	"github.com/google/uuid"
)

// Config coordinator configuration
type Config struct {
	HeartbeatInterval    time.Duration
	MissedThreshold      int
	UnresponsiveGrace    time.Duration
	TaskTimeout          time.Duration
	DefaultMaxAttempts   int
	DefaultMaxConcurrent int
	RetentionWindow      time.Duration
}

// DefaultConfig returns coordinator defaults
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval:    15 * time.Second,
		MissedThreshold:      3,
		UnresponsiveGrace:    5 * time.Minute,
		TaskTimeout:          10 * time.Minute,
		DefaultMaxAttempts:   3,
		DefaultMaxConcurrent: 1,
		RetentionWindow:      time.Hour,
	}
}

// Dispatcher delivers an assignment payload to a worker runtime. The
// coordinator treats the transport as opaque.
type Dispatcher interface {
	Dispatch(ctx context.Context, assignment *model.Assignment) error
}

// AgentMirror is an optional write-through snapshot store for agent records
// (ops visibility). The coordinator remains the single writer of agent state;
// mirror failures are logged, never propagated.
type AgentMirror interface {
	Save(ctx context.Context, agent *model.Agent) error
	Delete(ctx context.Context, agentID string) error
}

// TaskArchive persists terminal task records for audit (optional).
type TaskArchive interface {
	SaveTask(ctx context.Context, task *model.Task) error
}

// MetricsRecorder collects the trailing task latency window consumed by
// scaling evaluation.
type MetricsRecorder interface {
	ObserveTaskLatency(d time.Duration)
	AvgTaskLatency() time.Duration
}

// Coordinator is the orchestration hub. It owns the agent registry and the
// task queue, and it is the single writer of agent and task state: every
// mutating operation runs under mu, while status queries read the registry
// without blocking writers.
type Coordinator struct {
	mu sync.Mutex

	config    Config
	registry  *registry.Registry
	resources *resource.Manager
	scaler    *scaling.Manager
	strategy  Strategy
	dispatch  Dispatcher
	metrics   MetricsRecorder
	mirror    AgentMirror
	archive   TaskArchive

	wake chan struct{}
	now  func() time.Time
}

// Options optional collaborators wired in at startup
type Options struct {
	Mirror  AgentMirror
	Archive TaskArchive
}

// New creates a coordinator
func New(config Config, reg *registry.Registry, resources *resource.Manager, scaler *scaling.Manager, strategy Strategy, dispatch Dispatcher, metrics MetricsRecorder, opts Options) *Coordinator {
	if config.DefaultMaxAttempts <= 0 {
		config.DefaultMaxAttempts = DefaultConfig().DefaultMaxAttempts
	}
	if config.DefaultMaxConcurrent <= 0 {
		config.DefaultMaxConcurrent = DefaultConfig().DefaultMaxConcurrent
	}
	return &Coordinator{
		config:    config,
		registry:  reg,
		resources: resources,
		scaler:    scaler,
		strategy:  strategy,
		dispatch:  dispatch,
		metrics:   metrics,
		mirror:    opts.Mirror,
		archive:   opts.Archive,
		wake:      make(chan struct{}, 1),
		now:       time.Now,
	}
}

// Register validates the descriptor and inserts a new agent in REGISTERING
// state. The agent becomes assignable on its first successful heartbeat.
func (c *Coordinator) Register(ctx context.Context, req *model.RegisterRequest) (string, error) {
	if len(req.Capabilities) == 0 {
		return "", fmt.Errorf("%w: capabilities must be non-empty", ErrInvalidDescriptor)
	}
	if !req.DeclaredLimits.IsNonNegative() {
		return "", fmt.Errorf("%w: declared limits must be non-negative", ErrInvalidDescriptor)
	}
	maxConcurrent := req.MaxConcurrentTasks
	if maxConcurrent < 0 {
		return "", fmt.Errorf("%w: max_concurrent_tasks must be non-negative", ErrInvalidDescriptor)
	}
	if maxConcurrent == 0 {
		maxConcurrent = c.config.DefaultMaxConcurrent
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	agent := &model.Agent{
		ID:                 uuid.NewString(),
		Capabilities:       append([]string(nil), req.Capabilities...),
		Status:             model.AgentStatusRegistering,
		ActiveTaskIDs:      make([]string, 0),
		DeclaredLimits:     req.DeclaredLimits,
		MaxConcurrentTasks: maxConcurrent,
		// Heartbeat expectation tracking starts at registration time.
		LastHeartbeat: now,
		RegisteredAt:  now,
	}
	c.registry.AddAgent(agent)
	c.resources.Track(agent.ID, agent.DeclaredLimits)
	c.mirrorSave(ctx, agent.ID)

	logger.InfoCtx(ctx, "agent registered, agent_id: %s, capabilities: %v, max_concurrent: %d",
		agent.ID, agent.Capabilities, maxConcurrent)

	c.Wake()
	return agent.ID, nil
}

// Deregister removes an agent. Active tasks are requeued for reassignment
// first; they are never silently dropped. With drain set the agent instead
// finishes its active tasks (receiving the drain instruction on its next
// heartbeat) and is retired when the last one completes.
func (c *Coordinator) Deregister(ctx context.Context, agentID string, drain bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	agent, err := c.registry.GetAgent(agentID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}

	if drain && len(agent.ActiveTaskIDs) > 0 {
		if err := c.registry.UpdateAgent(agentID, func(a *model.Agent) {
			a.Draining = true
			a.PendingControl = model.ControlDrain
		}); err != nil {
			return err
		}
		c.mirrorSave(ctx, agentID)
		logger.InfoCtx(ctx, "agent draining, agent_id: %s, active_tasks: %d", agentID, len(agent.ActiveTaskIDs))
		// Retirement completes when the last active task finishes.
		return fmt.Errorf("%w: draining %d tasks", ErrHasActiveTasks, len(agent.ActiveTaskIDs))
	}

	// Reassign everything the agent still holds before removing it.
	for _, taskID := range agent.ActiveTaskIDs {
		c.failTaskLocked(ctx, taskID, model.FailureReasonAgentUnresponsive, "agent deregistered")
	}

	c.retireLocked(ctx, agentID)
	logger.InfoCtx(ctx, "agent deregistered, agent_id: %s", agentID)
	c.Wake()
	return nil
}

// retireLocked removes the agent record and its resource tracking. Caller
// holds mu and has already requeued any active tasks.
func (c *Coordinator) retireLocked(ctx context.Context, agentID string) {
	c.registry.CompareAndSetAgentStatus(agentID, []model.AgentStatus{
		model.AgentStatusRegistering,
		model.AgentStatusHealthy,
		model.AgentStatusDegraded,
		model.AgentStatusUnresponsive,
	}, model.AgentStatusRetired)
	c.resources.Untrack(agentID)
	if err := c.registry.RemoveAgent(agentID); err == nil && c.mirror != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
			defer cancel()
			if err := c.mirror.Delete(ctx, agentID); err != nil {
				logger.WarnCtx(ctx, "failed to delete agent mirror, agent_id: %s, error: %v", agentID, err)
			}
		}()
	}
}

// Submit validates and enqueues a task. The response is immediate; assignment
// happens asynchronously on the next schedule tick. A task no currently known
// agent can satisfy is still queued, with a diagnostic, since eligibility may
// appear later.
func (c *Coordinator) Submit(ctx context.Context, req *model.SubmitRequest) (*model.SubmitResponse, error) {
	if !req.ResourceRequest.IsNonNegative() {
		return nil, fmt.Errorf("%w: resource request must be non-negative", ErrInvalidTask)
	}
	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = c.config.DefaultMaxAttempts
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	taskID := req.ID
	if taskID == "" {
		taskID = uuid.NewString()
	}
	task := &model.Task{
		ID:                   taskID,
		RequiredCapabilities: append([]string(nil), req.RequiredCapabilities...),
		Priority:             req.Priority,
		ResourceRequest:      req.ResourceRequest,
		Status:               model.TaskStatusQueued,
		MaxAttempts:          maxAttempts,
		Deadline:             req.Deadline,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := c.registry.AddTask(task); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}

	resp := &model.SubmitResponse{TaskID: taskID, Status: model.TaskStatusQueued}
	if !c.anyAgentSatisfies(req.RequiredCapabilities, req.ResourceRequest) {
		resp.Diagnostic = NoEligibleAgentDiagnostic
	}

	logger.InfoCtx(ctx, "task submitted, task_id: %s, priority: %d, capabilities: %v",
		taskID, req.Priority, req.RequiredCapabilities)

	c.Wake()
	return resp, nil
}

// anyAgentSatisfies reports whether any known agent could ever take the task:
// capability superset and a resource request that fits its declared limits.
func (c *Coordinator) anyAgentSatisfies(required []string, request model.Resources) bool {
	for _, a := range c.registry.Agents() {
		if a.Status == model.AgentStatusRetired {
			continue
		}
		if a.HasCapabilities(required) && request.Fits(a.DeclaredLimits) {
			return true
		}
	}
	return false
}

// TaskStatus returns the status of a task
func (c *Coordinator) TaskStatus(ctx context.Context, taskID string) (*model.StatusResponse, error) {
	task, err := c.registry.GetTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	resp := &model.StatusResponse{
		TaskID:          task.ID,
		Status:          task.Status,
		AssignedAgentID: task.AssignedAgentID,
		AttemptCount:    task.AttemptCount,
		FailureReason:   task.FailureReason,
		Error:           task.Error,
		CreatedAt:       task.CreatedAt,
		CompletedAt:     task.CompletedAt,
	}
	if task.Status == model.TaskStatusQueued && !c.anyAgentSatisfies(task.RequiredCapabilities, task.ResourceRequest) {
		resp.Error = NoEligibleAgentDiagnostic
	}
	return resp, nil
}

// ListTasks returns task snapshots, optionally filtered by status
func (c *Coordinator) ListTasks(ctx context.Context, status model.TaskStatus) []*model.Task {
	return c.registry.TasksByStatus(status)
}

// ListAgents returns read-only agent views in registration order
func (c *Coordinator) ListAgents(ctx context.Context) []*model.AgentView {
	agents := c.registry.Agents()
	views := make([]*model.AgentView, 0, len(agents))
	for _, a := range agents {
		views = append(views, &model.AgentView{
			ID:                 a.ID,
			Capabilities:       a.Capabilities,
			Status:             a.Status,
			ActiveTaskCount:    len(a.ActiveTaskIDs),
			MaxConcurrentTasks: a.MaxConcurrentTasks,
			Utilization:        c.resources.AgentUtilization(a.ID),
			LastHeartbeat:      a.LastHeartbeat,
			Stats:              a.Stats,
		})
	}
	return views
}

// GetAgent returns a single agent snapshot
func (c *Coordinator) GetAgent(ctx context.Context, agentID string) (*model.Agent, error) {
	agent, err := c.registry.GetAgent(agentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	return agent, nil
}

// Recommendations exposes the resource manager's advisory hints
func (c *Coordinator) Recommendations(ctx context.Context) []resource.Recommendation {
	return c.resources.RecommendOptimizations()
}

// Wake nudges the scheduling loop. Non-blocking; a pending wake coalesces.
func (c *Coordinator) Wake() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// storeWriteTimeout bounds the detached mirror/archive writes.
const storeWriteTimeout = 5 * time.Second

// mirrorSave pushes the current agent snapshot to the mirror, best effort.
// Caller holds mu; the snapshot is taken under the lock and the write runs
// detached so a slow mirror never stalls heartbeats or scheduling.
func (c *Coordinator) mirrorSave(ctx context.Context, agentID string) {
	if c.mirror == nil {
		return
	}
	agent, err := c.registry.GetAgent(agentID)
	if err != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
		defer cancel()
		if err := c.mirror.Save(ctx, agent); err != nil {
			logger.WarnCtx(ctx, "failed to mirror agent, agent_id: %s, error: %v", agentID, err)
		}
	}()
}

// archiveTask persists a terminal task record, best effort. Same detached
// write discipline as mirrorSave.
func (c *Coordinator) archiveTask(ctx context.Context, taskID string) {
	if c.archive == nil {
		return
	}
	task, err := c.registry.GetTask(taskID)
	if err != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
		defer cancel()
		if err := c.archive.SaveTask(ctx, task); err != nil {
			logger.WarnCtx(ctx, "failed to archive task, task_id: %s, error: %v", taskID, err)
		}
	}()
}
