package direct

import (
	"context"
	"fmt"
	"sync"

	"agentcoord/internal/model"
	"agentcoord/pkg/logger"
)

const defaultMailboxSize = 64

// Dispatcher delivers assignments to in-process agent runtimes over per-agent
// mailbox channels. Agents subscribe with their own ID; an assignment for an
// agent with no subscriber, or with a full mailbox, fails so the coordinator
// can requeue the task.
type Dispatcher struct {
	mu        sync.RWMutex
	mailboxes map[string]chan *model.Assignment
}

// NewDispatcher creates an in-process dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		mailboxes: make(map[string]chan *model.Assignment),
	}
}

// Subscribe opens the mailbox for an agent and returns its receive channel
func (d *Dispatcher) Subscribe(agentID string) <-chan *model.Assignment {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.mailboxes[agentID]; ok {
		return ch
	}
	ch := make(chan *model.Assignment, defaultMailboxSize)
	d.mailboxes[agentID] = ch
	return ch
}

// Unsubscribe closes and removes an agent's mailbox
func (d *Dispatcher) Unsubscribe(agentID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.mailboxes[agentID]; ok {
		close(ch)
		delete(d.mailboxes, agentID)
	}
}

// Dispatch delivers one assignment to the target agent's mailbox
func (d *Dispatcher) Dispatch(ctx context.Context, assignment *model.Assignment) error {
	d.mu.RLock()
	ch, ok := d.mailboxes[assignment.AgentID]
	d.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no mailbox for agent: %s", assignment.AgentID)
	}

	select {
	case ch <- assignment:
		logger.DebugCtx(ctx, "assignment delivered, task_id: %s, agent_id: %s",
			assignment.TaskID, assignment.AgentID)
		return nil
	default:
		return fmt.Errorf("mailbox full for agent: %s", assignment.AgentID)
	}
}
