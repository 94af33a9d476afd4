package agents

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func shRunner(script string, timeout time.Duration) *Runner {
	return NewRunner(RunnerConfig{
		Command:       "sh",
		Args:          []string{"-c", script},
		Timeout:       timeout,
		MaxConcurrent: 2,
	})
}

func TestRunner_SuccessTrimsStdout(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := shRunner(`cat >/dev/null; printf '\n  Contract looks balanced.  \n\n'`, 5*time.Second)

	out, err := r.Run(context.Background(), "Review my NDA", "contract")

	require.NoError(t, err)
	assert.Equal(t, "Contract looks balanced.", out)
}

func TestRunner_PassesRequestOnStdin(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := shRunner(`cat`, 5*time.Second)
	task := `Is "$(rm -rf /)"; safe? \" '`

	out, err := r.Run(context.Background(), task, "research")
	require.NoError(t, err)

	var got runInput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, task, got.Task)
	assert.Equal(t, "research", got.AgentType)
}

func TestRunner_NonZeroExit(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := shRunner(`echo "ModuleNotFoundError: No module named 'swarms'" >&2; exit 3`, 5*time.Second)

	_, err := r.Run(context.Background(), "task", "swarm")

	var pErr *ProcessError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, 3, pErr.ExitCode)
	assert.Equal(t, "ModuleNotFoundError: No module named 'swarms'\n", pErr.Details())
}

func TestRunner_NonZeroExitWithoutStderr(t *testing.T) {
	r := shRunner(`exit 1`, 5*time.Second)

	_, err := r.Run(context.Background(), "task", "swarm")

	var pErr *ProcessError
	require.ErrorAs(t, err, &pErr)
	assert.NotEmpty(t, pErr.Details())
}

func TestRunner_MissingInterpreter(t *testing.T) {
	r := NewRunner(RunnerConfig{Command: "definitely-not-a-python-binary", ScriptsDir: "scripts"})

	_, err := r.Run(context.Background(), "task", "swarm")

	var pErr *ProcessError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, -1, pErr.ExitCode)
	assert.NotEmpty(t, pErr.Details())
}

func TestRunner_Timeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := shRunner(`sleep 5`, 100*time.Millisecond)

	start := time.Now()
	_, err := r.Run(context.Background(), "task", "swarm")

	var pErr *ProcessError
	require.ErrorAs(t, err, &pErr)
	assert.Contains(t, pErr.Details(), "timed out")
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRunner_ConcurrencyIsBounded(t *testing.T) {
	r := NewRunner(RunnerConfig{
		Command:       "sh",
		Args:          []string{"-c", "sleep 0.2"},
		MaxConcurrent: 1,
	})

	// Hold the only slot so the second call must wait on its context.
	require.NoError(t, r.sem.Acquire(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := r.Run(ctx, "task", "swarm")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	r.sem.Release(1)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Run(context.Background(), "task", "swarm")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestNewRunner_DefaultBootstrapArgs(t *testing.T) {
	r := NewRunner(RunnerConfig{ScriptsDir: "/srv/scripts"})

	assert.Equal(t, "python3", r.command)
	require.Len(t, r.args, 3)
	assert.Equal(t, "-c", r.args[0])
	assert.Contains(t, r.args[1], "run_legal_swarm")
	assert.Equal(t, "/srv/scripts", r.args[2])
}
