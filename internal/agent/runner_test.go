package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ouroagent/ouro/internal/transport"
)

// timeoutNExecutor times out the first n attempts then succeeds.
type timeoutNExecutor struct {
	n         int
	attempts  int
	deadlines []time.Duration
}

func (e *timeoutNExecutor) Execute(ctx context.Context, inst *Instance, prompt string) (Result, error) {
	e.attempts++
	if deadline, ok := ctx.Deadline(); ok {
		e.deadlines = append(e.deadlines, time.Until(deadline))
	}
	if e.attempts <= e.n {
		return Result{}, &transport.Error{Kind: transport.ErrTimeout, Agent: inst.Name}
	}
	return Result{Output: "done", Iterations: 1}, nil
}

type failingExecutor struct {
	attempts int
}

func (e *failingExecutor) Execute(context.Context, *Instance, string) (Result, error) {
	e.attempts++
	return Result{}, &transport.Error{Kind: transport.ErrAPI, Wrapped: errors.New("bad request")}
}

// memLog records exchange calls for assertion.
type memLog struct {
	queries   []string
	responses []string
}

func (m *memLog) CreateQuery(agent string, ticks int64, query string) error {
	m.queries = append(m.queries, query)
	return nil
}

func (m *memLog) AppendResponse(agent string, ticks int64, response string) error {
	m.responses = append(m.responses, response)
	return nil
}

type memEvents struct {
	kinds []string
}

func (m *memEvents) RecordEvent(kind string, payload map[string]any) error {
	m.kinds = append(m.kinds, kind)
	return nil
}

func TestRunnerRetriesTimeoutsWithGrowingDeadline(t *testing.T) {
	exec := &timeoutNExecutor{n: 2}
	runner := NewRetryingTaskRunner(exec, nil, nil, 3, time.Second, 2.0)

	res, err := runner.Run(context.Background(), devInstance(t, "developer01"), "task")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Output != "done" {
		t.Errorf("output = %q", res.Output)
	}
	if exec.attempts != 3 {
		t.Errorf("attempts = %d, want 3", exec.attempts)
	}
	// Deadlines grow roughly as 1s, 2s, 4s.
	if len(exec.deadlines) != 3 {
		t.Fatalf("deadlines recorded = %d, want 3", len(exec.deadlines))
	}
	if exec.deadlines[1] < exec.deadlines[0] || exec.deadlines[2] < exec.deadlines[1] {
		t.Errorf("deadlines did not grow: %v", exec.deadlines)
	}
}

func TestRunnerExhaustsRetryBudget(t *testing.T) {
	exec := &timeoutNExecutor{n: 10}
	runner := NewRetryingTaskRunner(exec, nil, nil, 3, time.Second, 1.5)

	_, err := runner.Run(context.Background(), devInstance(t, "developer01"), "task")
	if err == nil {
		t.Fatal("Run succeeded, want timeout error")
	}
	if exec.attempts != 3 {
		t.Errorf("attempts = %d, want exactly 3", exec.attempts)
	}
	if !transport.IsTimeout(err) {
		t.Errorf("error not classified as timeout: %v", err)
	}
}

func TestRunnerDoesNotRetryNonTimeouts(t *testing.T) {
	exec := &failingExecutor{}
	runner := NewRetryingTaskRunner(exec, nil, nil, 3, time.Second, 1.5)

	_, err := runner.Run(context.Background(), devInstance(t, "developer01"), "task")
	if err == nil {
		t.Fatal("Run succeeded, want error")
	}
	if exec.attempts != 1 {
		t.Errorf("attempts = %d, want 1 for a non-timeout failure", exec.attempts)
	}
}

func TestRunnerRecordsQueryAndResponseOnce(t *testing.T) {
	exec := &timeoutNExecutor{n: 2}
	logMem := &memLog{}
	events := &memEvents{}
	runner := NewRetryingTaskRunner(exec, logMem, events, 3, time.Second, 1.5)

	if _, err := runner.Run(context.Background(), devInstance(t, "developer01"), "the task"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(logMem.queries) != 1 {
		t.Errorf("queries recorded = %d, want 1 despite 3 attempts", len(logMem.queries))
	}
	if len(logMem.responses) != 1 {
		t.Errorf("responses recorded = %d, want 1", len(logMem.responses))
	}
	if len(events.kinds) != 2 {
		t.Errorf("retry events = %d, want 2", len(events.kinds))
	}
}

func TestRunnerUsesRoleTimeoutOverride(t *testing.T) {
	exec := &timeoutNExecutor{n: 0}
	inst := devInstance(t, "developer01")
	inst.Spec.Timeout = 10 * time.Second
	runner := NewRetryingTaskRunner(exec, nil, nil, 3, time.Second, 1.5)

	if _, err := runner.Run(context.Background(), inst, "task"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(exec.deadlines) != 1 || exec.deadlines[0] < 5*time.Second {
		t.Errorf("deadline = %v, want close to role override of 10s", exec.deadlines)
	}
}
