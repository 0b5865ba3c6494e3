package asynq

import (
	"context"
	"encoding/json"
	"fmt"

	"agentcoord/internal/model"
	"agentcoord/pkg/config"
	"agentcoord/pkg/logger"

	"github.com/hibiken/asynq"
)

const (
	TypeAssignmentDispatch = "assignment:dispatch"
)

// Dispatcher enqueues assignments onto per-agent asynq queues backed by Redis.
// Agent runtimes consume their own queue with an asynq server; the coordinator
// side is enqueue-only.
type Dispatcher struct {
	client *asynq.Client
}

// NewDispatcher creates an asynq-backed dispatcher
func NewDispatcher(cfg *config.Config) (*Dispatcher, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	return &Dispatcher{client: asynq.NewClient(redisOpt)}, nil
}

// AgentQueue returns the queue name consumed by one agent runtime
func AgentQueue(agentID string) string {
	return "agent:" + agentID
}

// Dispatch enqueues one assignment on the target agent's queue
func (d *Dispatcher) Dispatch(ctx context.Context, assignment *model.Assignment) error {
	payload, err := json.Marshal(assignment)
	if err != nil {
		return fmt.Errorf("failed to marshal assignment: %w", err)
	}

	task := asynq.NewTask(TypeAssignmentDispatch, payload)

	opts := []asynq.Option{
		asynq.Queue(AgentQueue(assignment.AgentID)),
		asynq.TaskID(fmt.Sprintf("%s:%d", assignment.TaskID, assignment.Attempt)),
		// Delivery retries are the coordinator's job, not the broker's.
		asynq.MaxRetry(0),
	}
	if assignment.Deadline != nil {
		opts = append(opts, asynq.Deadline(*assignment.Deadline))
	}

	info, err := d.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue assignment: %w", err)
	}

	logger.InfoCtx(ctx, "assignment enqueued, task_id: %s, agent_id: %s, queue: %s",
		assignment.TaskID, assignment.AgentID, info.Queue)
	return nil
}

// Close closes the client
func (d *Dispatcher) Close() error {
	return d.client.Close()
}
