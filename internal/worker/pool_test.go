package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"lexassist-backend/internal/agents"
	"lexassist-backend/internal/models"
)

type memStore struct {
	mu     sync.Mutex
	queue  chan uuid.UUID
	runs   map[uuid.UUID]models.AgentRun
	locks  map[uuid.UUID]bool
	denyLk bool
}

func newMemStore() *memStore {
	return &memStore{
		queue: make(chan uuid.UUID, 16),
		runs:  make(map[uuid.UUID]models.AgentRun),
		locks: make(map[uuid.UUID]bool),
	}
}

func (s *memStore) add(task, agentType string) uuid.UUID {
	run := models.AgentRun{ID: uuid.New(), Status: models.RunQueued, Task: task, AgentType: agentType}
	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()
	s.queue <- run.ID
	return run.ID
}

func (s *memStore) Dequeue(ctx context.Context, timeout time.Duration) (uuid.UUID, error) {
	select {
	case id := <-s.queue:
		return id, nil
	case <-time.After(timeout):
		return uuid.Nil, redis.Nil
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

func (s *memStore) Get(_ context.Context, id uuid.UUID) (*models.AgentRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, agents.ErrRunNotFound
	}
	return &run, nil
}

func (s *memStore) Save(_ context.Context, run *models.AgentRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

func (s *memStore) Lock(_ context.Context, id uuid.UUID, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.denyLk || s.locks[id] {
		return false, nil
	}
	s.locks[id] = true
	return true, nil
}

func (s *memStore) Unlock(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, id)
	return nil
}

func (s *memStore) status(id uuid.UUID) models.AgentRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

type funcRunner func(ctx context.Context, task, agentType string) (string, error)

func (f funcRunner) Run(ctx context.Context, task, agentType string) (string, error) {
	return f(ctx, task, agentType)
}

func startPool(t *testing.T, store RunStore, runner AgentRunner) *Pool {
	t.Helper()
	p := NewPool(store, runner, 2, time.Minute)
	p.pollTimeout = 20 * time.Millisecond
	p.Start()
	return p
}

func TestPool_ProcessesRuns(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newMemStore()
	p := startPool(t, store, funcRunner(func(_ context.Context, task, agentType string) (string, error) {
		return agentType + ": " + task, nil
	}))

	ok := store.add("Review NDA", "contract")
	second := store.add("Check GDPR", "compliance")

	assert.Eventually(t, func() bool {
		return store.status(ok).Status == models.RunSucceeded && store.status(second).Status == models.RunSucceeded
	}, 2*time.Second, 10*time.Millisecond)
	p.Stop()

	got := store.status(ok)
	assert.Equal(t, "contract: Review NDA", got.Result)
	require.NotNil(t, got.FinishedAt)
}

func TestPool_RecordsFailureDetails(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newMemStore()
	p := startPool(t, store, funcRunner(func(context.Context, string, string) (string, error) {
		return "", &agents.ProcessError{ExitCode: 1, Stderr: "Traceback: boom"}
	}))

	id := store.add("task", "swarm")

	assert.Eventually(t, func() bool {
		return store.status(id).Status == models.RunFailed
	}, 2*time.Second, 10*time.Millisecond)
	p.Stop()

	got := store.status(id)
	assert.Equal(t, "Failed to run legal agents", got.Error)
	assert.Equal(t, "Traceback: boom", got.Details)
}

func TestPool_PlainErrorDetails(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newMemStore()
	p := startPool(t, store, funcRunner(func(context.Context, string, string) (string, error) {
		return "", errors.New("semaphore closed")
	}))

	id := store.add("task", "swarm")

	assert.Eventually(t, func() bool {
		return store.status(id).Status == models.RunFailed
	}, 2*time.Second, 10*time.Millisecond)
	p.Stop()

	assert.Equal(t, "semaphore closed", store.status(id).Details)
}

func TestPool_SkipsLockedRuns(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newMemStore()
	store.denyLk = true
	called := make(chan struct{}, 1)
	p := startPool(t, store, funcRunner(func(context.Context, string, string) (string, error) {
		called <- struct{}{}
		return "", nil
	}))

	id := store.add("task", "swarm")
	time.Sleep(100 * time.Millisecond)
	p.Stop()

	assert.Empty(t, called)
	assert.Equal(t, models.RunQueued, store.status(id).Status)
}

func TestPool_StopWithIdleWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := NewPool(newMemStore(), funcRunner(func(context.Context, string, string) (string, error) {
		return "", nil
	}), 3, time.Minute)
	p.Start()

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while workers were blocked on dequeue")
	}
}
