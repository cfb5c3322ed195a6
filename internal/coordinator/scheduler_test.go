package coordinator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ouroagent/ouro/internal/agent"
	"github.com/ouroagent/ouro/internal/transport"
	"github.com/ouroagent/ouro/pkg/models"
)

// waveRunner records which tasks ran concurrently and what prompts they saw.
type waveRunner struct {
	mu       sync.Mutex
	running  int
	peak     int
	prompts  map[string]string // description -> prompt
	failures map[string]bool   // description -> should fail
	delay    time.Duration
}

func newWaveRunner() *waveRunner {
	return &waveRunner{prompts: make(map[string]string), failures: make(map[string]bool)}
}

func (w *waveRunner) Run(ctx context.Context, inst *agent.Instance, prompt string) (agent.Result, error) {
	desc := strings.SplitN(prompt, "\n", 2)[0]

	w.mu.Lock()
	w.running++
	if w.running > w.peak {
		w.peak = w.running
	}
	w.prompts[desc] = prompt
	fail := w.failures[desc]
	w.mu.Unlock()

	if w.delay > 0 {
		time.Sleep(w.delay)
	}

	w.mu.Lock()
	w.running--
	w.mu.Unlock()

	if fail {
		return agent.Result{}, &transport.Error{Kind: transport.ErrAPI, Agent: inst.Name}
	}
	return agent.Result{Output: "output of " + desc, Iterations: 1}, nil
}

func newScheduler(runner Runner, concurrency int) *ExecutionScheduler {
	return NewExecutionScheduler(newCountingFactory(), runner, nil, NopLogger(), concurrency, time.Minute)
}

func plan(descs ...string) []models.TaskAssignment {
	// Interleaved waves: even index wave 0, odd index wave 1, to exercise
	// grouping of non-contiguous input.
	out := make([]models.TaskAssignment, len(descs))
	for i, d := range descs {
		out[i] = models.TaskAssignment{Role: models.RoleDeveloper, Description: d, Wave: i % 2}
	}
	return out
}

func TestSchedulerPreservesInputOrder(t *testing.T) {
	runner := newWaveRunner()
	assignments := plan("task a", "task b", "task c", "task d")

	results := newScheduler(runner, 4).Execute(context.Background(), assignments)
	if len(results) != len(assignments) {
		t.Fatalf("results = %d, want %d", len(results), len(assignments))
	}
	for i, r := range results {
		if r.Description != assignments[i].Description {
			t.Errorf("results[%d] = %q, want %q", i, r.Description, assignments[i].Description)
		}
		if r.Status != models.TaskStatusCompleted {
			t.Errorf("results[%d].Status = %s", i, r.Status)
		}
	}
}

func TestSchedulerLaterWavesSeeEarlierOutput(t *testing.T) {
	runner := newWaveRunner()
	assignments := []models.TaskAssignment{
		{Role: models.RoleDeveloper, Description: "lay foundation", Wave: 0},
		{Role: models.RoleDeveloper, Description: "build walls", Wave: 1},
	}

	newScheduler(runner, 4).Execute(context.Background(), assignments)

	second := runner.prompts["build walls"]
	if !strings.Contains(second, "output of lay foundation") {
		t.Errorf("wave 1 prompt missing wave 0 output:\n%s", second)
	}
	first := runner.prompts["lay foundation"]
	if strings.Contains(first, "Results from earlier waves") {
		t.Errorf("wave 0 prompt should have no carried context:\n%s", first)
	}
}

func TestSchedulerBoundsConcurrency(t *testing.T) {
	runner := newWaveRunner()
	runner.delay = 30 * time.Millisecond
	assignments := make([]models.TaskAssignment, 6)
	for i := range assignments {
		assignments[i] = models.TaskAssignment{
			Role:        models.RoleDeveloper,
			Description: strings.Repeat("x", i+1),
			Wave:        0,
		}
	}

	newScheduler(runner, 2).Execute(context.Background(), assignments)
	if runner.peak > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", runner.peak)
	}
}

func TestSchedulerIsolatesSiblingFailures(t *testing.T) {
	runner := newWaveRunner()
	runner.failures["task b"] = true
	assignments := []models.TaskAssignment{
		{Role: models.RoleDeveloper, Description: "task a", Wave: 0},
		{Role: models.RoleDeveloper, Description: "task b", Wave: 0},
		{Role: models.RoleDeveloper, Description: "task c", Wave: 1},
	}

	results := newScheduler(runner, 4).Execute(context.Background(), assignments)
	if results[0].Status != models.TaskStatusCompleted {
		t.Errorf("sibling of failed task: %+v", results[0])
	}
	if results[1].Status != models.TaskStatusFailed || results[1].Reason == "" {
		t.Errorf("failed task result = %+v", results[1])
	}
	if results[2].Status != models.TaskStatusCompleted {
		t.Errorf("later wave after failure: %+v", results[2])
	}
	// The failed task's output must not leak into the carried context.
	if strings.Contains(runner.prompts["task c"], "task b") {
		t.Errorf("failed task leaked into later wave prompt:\n%s", runner.prompts["task c"])
	}
}

func TestSchedulerAscendingWavesWithGaps(t *testing.T) {
	runner := newWaveRunner()
	assignments := []models.TaskAssignment{
		{Role: models.RoleDeveloper, Description: "late", Wave: 7},
		{Role: models.RoleDeveloper, Description: "early", Wave: 2},
	}

	newScheduler(runner, 4).Execute(context.Background(), assignments)
	if !strings.Contains(runner.prompts["late"], "output of early") {
		t.Errorf("wave 7 did not see wave 2 output:\n%s", runner.prompts["late"])
	}
}

func TestSchedulerAssignsDistinctInstanceNames(t *testing.T) {
	runner := newWaveRunner()
	assignments := plan("one", "two", "three")

	results := newScheduler(runner, 4).Execute(context.Background(), assignments)
	seen := make(map[string]bool)
	for _, r := range results {
		if r.Agent == "" || seen[r.Agent] {
			t.Errorf("agent name %q empty or reused", r.Agent)
		}
		seen[r.Agent] = true
	}
}
