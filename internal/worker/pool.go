package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"lexassist-backend/internal/agents"
	"lexassist-backend/internal/models"
)

// RunStore is the queue and state store the pool drains.
type RunStore interface {
	Dequeue(ctx context.Context, timeout time.Duration) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (*models.AgentRun, error)
	Save(ctx context.Context, run *models.AgentRun) error
	Lock(ctx context.Context, id uuid.UUID, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, id uuid.UUID) error
}

type AgentRunner interface {
	Run(ctx context.Context, task, agentType string) (string, error)
}

const (
	defaultPollTimeout = 5 * time.Second
	errorBackoff       = time.Second
)

// Pool runs queued agent invocations in the background.
type Pool struct {
	store       RunStore
	runner      AgentRunner
	workerCount int
	lockTTL     time.Duration
	pollTimeout time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewPool creates a pool of workerCount goroutines. lockTTL should exceed the
// runner's own timeout so a slow run is never picked up twice.
func NewPool(store RunStore, runner AgentRunner, workerCount int, lockTTL time.Duration) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		store:       store,
		runner:      runner,
		workerCount: workerCount,
		lockTTL:     lockTTL,
		pollTimeout: defaultPollTimeout,
		ctx:         ctx,
		cancel:      cancel,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	log.Info().Int("workers", p.workerCount).Str("queue", agents.RunQueue).Msg("Started agent run workers")
}

// Stop signals every worker and waits for in-flight runs to be recorded.
func (p *Pool) Stop() {
	close(p.stopChan)
	p.cancel()
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			log.Debug().Int("worker", id).Msg("Worker shutting down")
			return
		default:
		}

		runID, err := p.store.Dequeue(p.ctx, p.pollTimeout)
		if err != nil {
			if errors.Is(err, redis.Nil) || p.ctx.Err() != nil {
				continue
			}
			log.Error().Err(err).Int("worker", id).Msg("Failed to dequeue agent run")
			select {
			case <-time.After(errorBackoff):
			case <-p.stopChan:
			}
			continue
		}

		p.process(id, runID)
	}
}

func (p *Pool) process(workerID int, runID uuid.UUID) {
	// Runs already dequeued finish even during shutdown; the runner's timeout
	// bounds how long that takes.
	ctx := context.WithoutCancel(p.ctx)
	logger := log.With().Int("worker", workerID).Str("run_id", runID.String()).Logger()

	locked, err := p.store.Lock(ctx, runID, p.lockTTL)
	if err != nil || !locked {
		return
	}
	defer func() {
		if err := p.store.Unlock(ctx, runID); err != nil {
			logger.Warn().Err(err).Msg("Failed to release agent run lock")
		}
	}()

	run, err := p.store.Get(ctx, runID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load agent run")
		return
	}
	if run.Status != models.RunQueued {
		return
	}

	run.Status = models.RunRunning
	if err := p.store.Save(ctx, run); err != nil {
		logger.Error().Err(err).Msg("Failed to mark agent run running")
		return
	}

	logger.Info().Str("agent_type", run.AgentType).Msg("Processing agent run")

	result, runErr := p.runner.Run(ctx, run.Task, run.AgentType)
	finished := time.Now().UTC()
	run.FinishedAt = &finished

	if runErr != nil {
		run.Status = models.RunFailed
		run.Error = "Failed to run legal agents"
		run.Details = runErr.Error()
		var pErr *agents.ProcessError
		if errors.As(runErr, &pErr) {
			run.Details = pErr.Details()
		}
		logger.Warn().Err(runErr).Msg("Agent run failed")
	} else {
		run.Status = models.RunSucceeded
		run.Result = result
		logger.Info().Msg("Agent run completed")
	}

	if err := p.store.Save(ctx, run); err != nil {
		logger.Error().Err(err).Msg("Failed to save agent run result")
	}
}
