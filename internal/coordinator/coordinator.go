// Package coordinator composes the decomposer, scheduler, verification gate,
// and callback collector into one run loop: a user request goes in, a full
// run report comes out.
package coordinator

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/ouroagent/ouro/internal/agent"
	"github.com/ouroagent/ouro/internal/auditlog"
	"github.com/ouroagent/ouro/internal/config"
	"github.com/ouroagent/ouro/internal/session"
	"github.com/ouroagent/ouro/pkg/models"
)

// Options configures a Coordinator.
type Options struct {
	// Catalog is the role catalog agents are created from.
	Catalog *config.Catalog
	// Runner executes tasks through agent instances.
	Runner Runner
	// Audit tracks file edits and audits for the verification gate.
	Audit *auditlog.Manager
	// Collector accumulates agent callbacks.
	Collector *Collector
	// Events is the optional session event sink.
	Events session.EventSink
	// Debug is the optional debug logger. Nil means no debug logging.
	Debug *DebugLogger
	// Execution configures the scheduler pool and per-task ceiling.
	Execution config.ExecutionConfig
	// Decompose configures the decomposition attempt budget.
	Decompose config.DecomposeConfig
}

// Coordinator is the composition root of a run. It also mints agent
// instance names, one monotonic counter per role.
type Coordinator struct {
	mu       sync.Mutex
	counters map[models.Role]int

	catalog    *config.Catalog
	decomposer *TaskDecomposer
	scheduler  *ExecutionScheduler
	gate       *FinalVerificationGate
	collector  *Collector
	events     session.EventSink
	debug      *DebugLogger
}

// New creates a coordinator from its options.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		counters:  make(map[models.Role]int),
		catalog:   opts.Catalog,
		collector: opts.Collector,
		events:    opts.Events,
		debug:     opts.Debug,
	}
	c.decomposer = NewTaskDecomposer(c, opts.Runner, opts.Catalog, opts.Events, opts.Debug, opts.Decompose.MaxAttempts)
	c.scheduler = NewExecutionScheduler(c, opts.Runner, opts.Events, opts.Debug, opts.Execution.Concurrency, opts.Execution.TaskCeiling)
	c.gate = NewFinalVerificationGate(c, opts.Runner, opts.Audit, opts.Debug)
	return c
}

var _ InstanceFactory = (*Coordinator)(nil)

// NewInstance mints the next instance of a role, e.g. "developer02".
// Counters are per role and never reset within a run.
func (c *Coordinator) NewInstance(role models.Role) (*agent.Instance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	spec, ok := c.catalog.Get(role)
	if !ok {
		return nil, fmt.Errorf("role %q is not in the catalog", role)
	}

	c.counters[role]++
	name := fmt.Sprintf("%s%02d", role, c.counters[role])
	return agent.NewInstance(name, role, spec), nil
}

// RunReport is the complete outcome of one coordinator run.
type RunReport struct {
	// RunID uniquely identifies the run.
	RunID string
	// Assignments is the manager's validated task plan.
	Assignments []models.TaskAssignment
	// Results holds one result per assignment, in plan order.
	Results []models.TaskResult
	// Verification is the synthesized final auditor task's result.
	Verification models.TaskResult
	// Verdict is the advisory verification outcome.
	Verdict models.VerificationVerdict
	// Blockers lists blocker callbacks raised during the run.
	Blockers []models.CallbackEvent
}

// Satisfy runs a user request end to end: decompose, execute wave by wave,
// then verify. The report always carries one result per planned assignment
// plus exactly one verification result.
func (c *Coordinator) Satisfy(ctx context.Context, request string) (*RunReport, error) {
	runID := uuid.New().String()
	log.Printf("[coordinator] run %s started", runID)
	c.debug.Log("run %s: %s", runID, request)
	if c.events != nil {
		c.events.RecordEvent(session.EventRunStarted, map[string]any{
			"run_id":  runID,
			"request": request,
		})
	}

	assignments, err := c.decomposer.Decompose(ctx, request)
	if err != nil {
		return nil, err
	}

	results := c.scheduler.Execute(ctx, assignments)

	verification, verdict := c.gate.Verify(ctx, results, c.collector.Blockers())

	if c.events != nil {
		c.events.RecordEvent(session.EventRunCompleted, map[string]any{
			"run_id": runID,
			"tasks":  len(results),
			"passed": verdict.Passed,
		})
	}
	log.Printf("[coordinator] run %s completed, verification passed=%v", runID, verdict.Passed)

	return &RunReport{
		RunID:        runID,
		Assignments:  assignments,
		Results:      results,
		Verification: verification,
		Verdict:      verdict,
		Blockers:     c.collector.Blockers(),
	}, nil
}
