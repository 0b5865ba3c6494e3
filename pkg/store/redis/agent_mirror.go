package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agentcoord/internal/model"

	"github.com/go-redis/redis/v8"
)

const (
	agentKeyPrefix = "agent:"       // Agent snapshot data
	agentSetKey    = "agents:known" // Known agent ID set
	agentDataTTL   = 5 * time.Minute
)

// AgentMirror keeps read-only agent snapshots in Redis with a TTL. The
// coordinator writes through on every agent mutation; dashboards and external
// tooling read from here without touching the coordinator.
type AgentMirror struct {
	redis *redis.Client
}

// NewAgentMirror creates an agent mirror backed by the given client
func NewAgentMirror(redisClient *RedisClient) *AgentMirror {
	return &AgentMirror{
		redis: redisClient.GetClient(),
	}
}

// Save writes one agent snapshot
func (r *AgentMirror) Save(ctx context.Context, agent *model.Agent) error {
	key := agentKeyPrefix + agent.ID
	data, err := json.Marshal(agent)
	if err != nil {
		return fmt.Errorf("failed to marshal agent: %w", err)
	}

	pipe := r.redis.Pipeline()
	pipe.Set(ctx, key, data, agentDataTTL)
	pipe.SAdd(ctx, agentSetKey, agent.ID)
	pipe.Expire(ctx, agentSetKey, agentDataTTL*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save agent: %w", err)
	}
	return nil
}

// Get retrieves one agent snapshot
func (r *AgentMirror) Get(ctx context.Context, agentID string) (*model.Agent, error) {
	key := agentKeyPrefix + agentID
	data, err := r.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("agent not found: %s", agentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	var agent model.Agent
	if err := json.Unmarshal([]byte(data), &agent); err != nil {
		return nil, fmt.Errorf("failed to unmarshal agent: %w", err)
	}
	return &agent, nil
}

// GetAll retrieves every known agent snapshot
func (r *AgentMirror) GetAll(ctx context.Context) ([]*model.Agent, error) {
	agentIDs, err := r.redis.SMembers(ctx, agentSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get agent list: %w", err)
	}
	if len(agentIDs) == 0 {
		return []*model.Agent{}, nil
	}

	// Batch fetch in one round-trip.
	pipe := r.redis.Pipeline()
	cmds := make([]*redis.StringCmd, 0, len(agentIDs))
	for _, agentID := range agentIDs {
		cmds = append(cmds, pipe.Get(ctx, agentKeyPrefix+agentID))
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to fetch agents: %w", err)
	}

	agents := make([]*model.Agent, 0, len(agentIDs))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			// Snapshot expired, skip.
			continue
		}
		var agent model.Agent
		if err := json.Unmarshal([]byte(data), &agent); err != nil {
			continue
		}
		agents = append(agents, &agent)
	}
	return agents, nil
}

// Delete removes one agent snapshot
func (r *AgentMirror) Delete(ctx context.Context, agentID string) error {
	pipe := r.redis.Pipeline()
	pipe.Del(ctx, agentKeyPrefix+agentID)
	pipe.SRem(ctx, agentSetKey, agentID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	return nil
}
