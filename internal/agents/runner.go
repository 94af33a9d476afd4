package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// bootstrap imports the swarm script from the directory given as argv[1] and
// reads the request from stdin, so user text never appears on a command line.
const bootstrap = `import json, sys
sys.path.append(sys.argv[1])
from legal_agents_swarm import run_legal_swarm
req = json.load(sys.stdin)
print(run_legal_swarm(req["task"], req["agentType"]))
`

type RunnerConfig struct {
	// Command is the interpreter to execute, python3 by default.
	Command string
	// Args overrides the default bootstrap arguments.
	Args          []string
	ScriptsDir    string
	Timeout       time.Duration
	MaxConcurrent int64
}

// Runner executes the external agent script, one process per call.
type Runner struct {
	command string
	args    []string
	timeout time.Duration
	sem     *semaphore.Weighted
}

func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Command == "" {
		cfg.Command = "python3"
	}
	if cfg.Args == nil {
		cfg.Args = []string{"-c", bootstrap, cfg.ScriptsDir}
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	return &Runner{
		command: cfg.Command,
		args:    cfg.Args,
		timeout: cfg.Timeout,
		sem:     semaphore.NewWeighted(cfg.MaxConcurrent),
	}
}

type runInput struct {
	Task      string `json:"task"`
	AgentType string `json:"agentType"`
}

// ProcessError describes a failed agent process.
type ProcessError struct {
	ExitCode int
	Stderr   string
	cause    error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("agent process failed (exit code %d): %v", e.ExitCode, e.cause)
}

func (e *ProcessError) Unwrap() error { return e.cause }

// Details is the raw stderr of the process, or the failure reason when the
// process wrote nothing to stderr. It is never empty.
func (e *ProcessError) Details() string {
	if strings.TrimSpace(e.Stderr) != "" {
		return e.Stderr
	}
	if e.cause != nil {
		return e.cause.Error()
	}
	return fmt.Sprintf("exit code %d", e.ExitCode)
}

// Run executes the agent script for task and returns its trimmed stdout.
func (r *Runner) Run(ctx context.Context, task, agentType string) (string, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer r.sem.Release(1)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	input, err := json.Marshal(runInput{Task: task, AgentType: agentType})
	if err != nil {
		return "", fmt.Errorf("marshaling agent input: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.command, r.args...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	err = cmd.Run()
	logger := log.With().Str("agent_type", agentType).Dur("duration", time.Since(start)).Logger()

	if err != nil {
		pErr := &ProcessError{ExitCode: -1, Stderr: stderr.String(), cause: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			pErr.ExitCode = exitErr.ExitCode()
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			pErr.cause = fmt.Errorf("agent run timed out after %s: %w", r.timeout, err)
		}
		logger.Error().Err(err).Int("exit_code", pErr.ExitCode).Msg("agent process failed")
		return "", pErr
	}

	logger.Info().Msg("agent process finished")
	return strings.TrimSpace(stdout.String()), nil
}
