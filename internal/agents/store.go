package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"lexassist-backend/internal/models"
)

const (
	RunQueue      = "queue:agent-runs"
	RunTTL        = 24 * time.Hour
	runKeyPrefix  = "agent_run:"
	lockKeyPrefix = "agent_run_lock:"
)

var ErrRunNotFound = errors.New("agent run not found")

// RunStore keeps asynchronous agent runs in Redis.
type RunStore struct {
	redis *redis.Client
}

func NewRunStore(redisClient *redis.Client) *RunStore {
	return &RunStore{redis: redisClient}
}

func runKey(id uuid.UUID) string {
	return runKeyPrefix + id.String()
}

// Enqueue records a new queued run and pushes it onto the work queue.
func (s *RunStore) Enqueue(ctx context.Context, task, agentType string) (*models.AgentRun, error) {
	run := &models.AgentRun{
		ID:        uuid.New(),
		Status:    models.RunQueued,
		AgentType: agentType,
		Task:      task,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Save(ctx, run); err != nil {
		return nil, err
	}
	if err := s.redis.RPush(ctx, RunQueue, run.ID.String()).Err(); err != nil {
		return nil, fmt.Errorf("failed to enqueue agent run: %w", err)
	}
	return run, nil
}

func (s *RunStore) Save(ctx context.Context, run *models.AgentRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal agent run: %w", err)
	}
	if err := s.redis.Set(ctx, runKey(run.ID), data, RunTTL).Err(); err != nil {
		return fmt.Errorf("failed to save agent run: %w", err)
	}
	return nil
}

func (s *RunStore) Get(ctx context.Context, id uuid.UUID) (*models.AgentRun, error) {
	data, err := s.redis.Get(ctx, runKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get agent run: %w", err)
	}

	var run models.AgentRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to decode agent run: %w", err)
	}
	return &run, nil
}

// Dequeue blocks up to timeout for the next queued run id.
func (s *RunStore) Dequeue(ctx context.Context, timeout time.Duration) (uuid.UUID, error) {
	result, err := s.redis.BLPop(ctx, timeout, RunQueue).Result()
	if err != nil {
		return uuid.Nil, err
	}
	if len(result) < 2 {
		return uuid.Nil, fmt.Errorf("unexpected BLPOP reply: %v", result)
	}
	return uuid.Parse(result[1])
}

// Lock claims a run for one worker. It returns false when another worker
// already holds it.
func (s *RunStore) Lock(ctx context.Context, id uuid.UUID, ttl time.Duration) (bool, error) {
	return s.redis.SetNX(ctx, lockKeyPrefix+id.String(), "1", ttl).Result()
}

func (s *RunStore) Unlock(ctx context.Context, id uuid.UUID) error {
	return s.redis.Del(ctx, lockKeyPrefix+id.String()).Err()
}
