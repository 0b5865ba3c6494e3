package direct

import (
	"context"
	"fmt"
	"testing"

	"agentcoord/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch_DeliversToSubscriber(t *testing.T) {
	d := NewDispatcher()
	ctx := context.Background()

	mailbox := d.Subscribe("agent-1")

	err := d.Dispatch(ctx, &model.Assignment{TaskID: "t1", AgentID: "agent-1"})
	require.NoError(t, err)

	select {
	case a := <-mailbox:
		assert.Equal(t, "t1", a.TaskID)
	default:
		t.Fatal("expected an assignment in the mailbox")
	}
}

func TestDispatch_NoMailbox(t *testing.T) {
	d := NewDispatcher()

	err := d.Dispatch(context.Background(), &model.Assignment{TaskID: "t1", AgentID: "nobody"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no mailbox")
}

func TestDispatch_FullMailbox(t *testing.T) {
	d := NewDispatcher()
	ctx := context.Background()

	d.Subscribe("agent-1")
	for i := 0; i < defaultMailboxSize; i++ {
		err := d.Dispatch(ctx, &model.Assignment{TaskID: fmt.Sprintf("t%d", i), AgentID: "agent-1"})
		require.NoError(t, err)
	}

	err := d.Dispatch(ctx, &model.Assignment{TaskID: "overflow", AgentID: "agent-1"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mailbox full")
}

func TestSubscribe_Idempotent(t *testing.T) {
	d := NewDispatcher()

	first := d.Subscribe("agent-1")
	second := d.Subscribe("agent-1")

	require.NoError(t, d.Dispatch(context.Background(), &model.Assignment{TaskID: "t1", AgentID: "agent-1"}))
	assert.Len(t, first, 1)
	assert.Len(t, second, 1, "both handles see the same mailbox")
}

func TestUnsubscribe_ClosesMailbox(t *testing.T) {
	d := NewDispatcher()

	mailbox := d.Subscribe("agent-1")
	d.Unsubscribe("agent-1")

	_, open := <-mailbox
	assert.False(t, open)

	err := d.Dispatch(context.Background(), &model.Assignment{TaskID: "t1", AgentID: "agent-1"})
	assert.Error(t, err)
}
