package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const onlineAgentsKey = "livechat:agents:online"

// Agent is an agent currently connected to the agent channel.
type Agent struct {
	AgentID     string    `json:"agent_id"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Store tracks which agents are online.
type Store interface {
	MarkOnline(ctx context.Context, agent Agent) error
	MarkOffline(ctx context.Context, agentID string) error
	Online(ctx context.Context) ([]Agent, error)
	Close() error
}

// New returns a Redis-backed store, or an in-process one when addr is empty or Redis does not answer.
func New(ctx context.Context, addr, password string, db int, log *zap.Logger) Store {
	if addr == "" {
		log.Info("presence using in-memory store", zap.String("reason", "empty redis addr"))
		return NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	store, err := openRedisStore(ctx, client)
	if err != nil {
		log.Warn("presence using in-memory store", zap.String("redis_addr", addr), zap.Error(err))
		_ = client.Close()
		return NewMemoryStore()
	}

	log.Info("presence using redis", zap.String("redis_addr", addr))
	return store
}

// redisClient is the part of the go-redis client the store uses.
type redisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Close() error
}

// openRedisStore checks the connection and clears the online set. Agents are only online while this
// process holds their socket, so entries left by a previous run are stale.
func openRedisStore(ctx context.Context, client redisClient) (*RedisStore, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(opCtx).Err(); err != nil {
		return nil, err
	}
	if err := client.Del(opCtx, onlineAgentsKey).Err(); err != nil {
		return nil, fmt.Errorf("reset online agents: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// RedisStore keeps online agents in a Redis hash keyed by agent id.
type RedisStore struct {
	client redisClient
}

func (s *RedisStore) MarkOnline(ctx context.Context, agent Agent) error {
	data, err := json.Marshal(agent)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, onlineAgentsKey, agent.AgentID, data).Err(); err != nil {
		return fmt.Errorf("mark agent online: %w", err)
	}
	return nil
}

func (s *RedisStore) MarkOffline(ctx context.Context, agentID string) error {
	if err := s.client.HDel(ctx, onlineAgentsKey, agentID).Err(); err != nil {
		return fmt.Errorf("mark agent offline: %w", err)
	}
	return nil
}

func (s *RedisStore) Online(ctx context.Context) ([]Agent, error) {
	result, err := s.client.HGetAll(ctx, onlineAgentsKey).Result()
	if err != nil {
		return nil, err
	}

	agents := make([]Agent, 0, len(result))
	for id, data := range result {
		var agent Agent
		if err := json.Unmarshal([]byte(data), &agent); err != nil {
			agent = Agent{AgentID: id}
		}
		agents = append(agents, agent)
	}
	sortAgents(agents)
	return agents, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{agents: make(map[string]Agent)}
}

func (s *MemoryStore) MarkOnline(_ context.Context, agent Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[agent.AgentID] = agent
	return nil
}

func (s *MemoryStore) MarkOffline(_ context.Context, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.agents, agentID)
	return nil
}

func (s *MemoryStore) Online(_ context.Context) ([]Agent, error) {
	s.mu.RLock()
	agents := make([]Agent, 0, len(s.agents))
	for _, a := range s.agents {
		agents = append(agents, a)
	}
	s.mu.RUnlock()
	sortAgents(agents)
	return agents, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func sortAgents(agents []Agent) {
	sort.Slice(agents, func(i, j int) bool { return agents[i].AgentID < agents[j].AgentID })
}
