package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"agentcoord/internal/model"
)

// Registry is the in-memory arena of agent and task records. The coordinator
// is the single writer; concurrent readers (status queries, sweeps, scaling
// evaluation) go through the read lock and never mutate records in place.
type Registry struct {
	mu sync.RWMutex

	agents map[string]*model.Agent
	tasks  map[string]*model.Task

	agentSeq uint64
	taskSeq  uint64
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		agents: make(map[string]*model.Agent),
		tasks:  make(map[string]*model.Task),
	}
}

// AddAgent inserts an agent record, assigning its registration sequence
func (r *Registry) AddAgent(agent *model.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agentSeq++
	agent.RegistrationSeq = r.agentSeq
	r.agents[agent.ID] = agent
}

// GetAgent retrieves an agent snapshot by id
func (r *Registry) GetAgent(agentID string) (*model.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[agentID]
	if !ok {
		return nil, fmt.Errorf("agent not found: %s", agentID)
	}
	cp := cloneAgent(agent)
	return cp, nil
}

// Agents returns all agents ordered by registration sequence
func (r *Registry) Agents() []*model.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agents := make([]*model.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, cloneAgent(a))
	}
	sort.Slice(agents, func(i, j int) bool {
		return agents[i].RegistrationSeq < agents[j].RegistrationSeq
	})
	return agents
}

// AssignableAgentCount returns the number of agents eligible for new work
func (r *Registry) AssignableAgentCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, a := range r.agents {
		if a.Status.Assignable() {
			count++
		}
	}
	return count
}

// RemoveAgent deletes an agent record
func (r *Registry) RemoveAgent(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[agentID]; !ok {
		return fmt.Errorf("agent not found: %s", agentID)
	}
	delete(r.agents, agentID)
	return nil
}

// UpdateAgent applies fn to the stored agent record under the write lock
func (r *Registry) UpdateAgent(agentID string, fn func(*model.Agent)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[agentID]
	if !ok {
		return fmt.Errorf("agent not found: %s", agentID)
	}
	fn(agent)
	return nil
}

// CompareAndSetAgentStatus transitions an agent's status only when the current
// status matches one of from. Returns true when the transition was applied.
// This is the atomic primitive the heartbeat sweep and the scheduling path use
// so they never race on status writes.
func (r *Registry) CompareAndSetAgentStatus(agentID string, from []model.AgentStatus, to model.AgentStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[agentID]
	if !ok {
		return false
	}
	for _, f := range from {
		if agent.Status == f {
			agent.Status = to
			return true
		}
	}
	return false
}

// AddTask inserts a task record in QUEUED state, assigning its enqueue sequence
func (r *Registry) AddTask(task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; ok {
		return fmt.Errorf("task already exists: %s", task.ID)
	}
	r.taskSeq++
	task.EnqueueSeq = r.taskSeq
	r.tasks[task.ID] = task
	return nil
}

// GetTask retrieves a task snapshot by id
func (r *Registry) GetTask(taskID string) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task not found: %s", taskID)
	}
	cp := cloneTask(task)
	return cp, nil
}

// UpdateTask applies fn to the stored task record under the write lock
func (r *Registry) UpdateTask(taskID string, fn func(*model.Task)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return fmt.Errorf("task not found: %s", taskID)
	}
	fn(task)
	return nil
}

// QueuedInOrder returns all QUEUED tasks ordered by priority (0 first) and,
// within a priority tier, by enqueue sequence. The schedule tick walks this
// full list each pass.
func (r *Registry) QueuedInOrder() []*model.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	queued := make([]*model.Task, 0)
	for _, t := range r.tasks {
		if t.Status == model.TaskStatusQueued {
			queued = append(queued, cloneTask(t))
		}
	}
	sort.Slice(queued, func(i, j int) bool {
		if queued[i].Priority != queued[j].Priority {
			return queued[i].Priority < queued[j].Priority
		}
		return queued[i].EnqueueSeq < queued[j].EnqueueSeq
	})
	return queued
}

// QueueDepth returns the number of QUEUED tasks
func (r *Registry) QueueDepth() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, t := range r.tasks {
		if t.Status == model.TaskStatusQueued {
			count++
		}
	}
	return count
}

// TasksByStatus returns task snapshots matching status; empty status matches all
func (r *Registry) TasksByStatus(status model.TaskStatus) []*model.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tasks := make([]*model.Task, 0)
	for _, t := range r.tasks {
		if status == "" || t.Status == status {
			tasks = append(tasks, cloneTask(t))
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].EnqueueSeq < tasks[j].EnqueueSeq
	})
	return tasks
}

// TasksAssignedTo returns snapshots of ASSIGNED/RUNNING tasks held by agentID
func (r *Registry) TasksAssignedTo(agentID string) []*model.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tasks := make([]*model.Task, 0)
	for _, t := range r.tasks {
		if t.AssignedAgentID == agentID &&
			(t.Status == model.TaskStatusAssigned || t.Status == model.TaskStatusRunning) {
			tasks = append(tasks, cloneTask(t))
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].EnqueueSeq < tasks[j].EnqueueSeq
	})
	return tasks
}

// PurgeTerminalBefore removes terminal tasks whose completion time is older
// than cutoff and returns the purged records for archival.
func (r *Registry) PurgeTerminalBefore(cutoff time.Time) []*model.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	purged := make([]*model.Task, 0)
	for id, t := range r.tasks {
		if !t.Status.Terminal() {
			continue
		}
		if t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
			purged = append(purged, t)
			delete(r.tasks, id)
		}
	}
	return purged
}

func cloneAgent(a *model.Agent) *model.Agent {
	cp := *a
	cp.Capabilities = append([]string(nil), a.Capabilities...)
	cp.ActiveTaskIDs = append([]string(nil), a.ActiveTaskIDs...)
	if a.UnresponsiveSince != nil {
		ts := *a.UnresponsiveSince
		cp.UnresponsiveSince = &ts
	}
	return &cp
}

func cloneTask(t *model.Task) *model.Task {
	cp := *t
	cp.RequiredCapabilities = append([]string(nil), t.RequiredCapabilities...)
	return &cp
}
