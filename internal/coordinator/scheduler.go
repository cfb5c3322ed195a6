package coordinator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ouroagent/ouro/internal/session"
	"github.com/ouroagent/ouro/pkg/models"
)

// ExecutionScheduler runs a task plan wave by wave. Tasks sharing a wave run
// concurrently under a bounded pool; later waves see earlier waves' output.
type ExecutionScheduler struct {
	factory     InstanceFactory
	runner      Runner
	events      session.EventSink
	debug       *DebugLogger
	concurrency int
	taskCeiling time.Duration
}

// NewExecutionScheduler creates a scheduler. events may be nil.
func NewExecutionScheduler(factory InstanceFactory, runner Runner, events session.EventSink, debug *DebugLogger, concurrency int, taskCeiling time.Duration) *ExecutionScheduler {
	if concurrency <= 0 {
		concurrency = 4
	}
	if taskCeiling <= 0 {
		taskCeiling = 300 * time.Second
	}
	return &ExecutionScheduler{
		factory:     factory,
		runner:      runner,
		events:      events,
		debug:       debug,
		concurrency: concurrency,
		taskCeiling: taskCeiling,
	}
}

// Execute runs every assignment and returns one result per assignment, in
// input order. A failed task never aborts its siblings or later waves.
func (s *ExecutionScheduler) Execute(ctx context.Context, assignments []models.TaskAssignment) []models.TaskResult {
	results := make([]models.TaskResult, len(assignments))

	byWave := make(map[int][]int)
	for i, a := range assignments {
		byWave[a.Wave] = append(byWave[a.Wave], i)
	}
	waves := make([]int, 0, len(byWave))
	for wave := range byWave {
		waves = append(waves, wave)
	}
	sort.Ints(waves)

	var carried strings.Builder
	for _, wave := range waves {
		indices := byWave[wave]
		s.debug.Log("starting wave %d with %d tasks", wave, len(indices))

		priorContext := carried.String()
		var g errgroup.Group
		g.SetLimit(s.concurrency)
		for _, idx := range indices {
			idx := idx
			g.Go(func() error {
				results[idx] = s.runTask(ctx, assignments[idx], priorContext)
				return nil
			})
		}
		g.Wait()

		// Feed this wave's outputs to later waves, in input order.
		for _, idx := range indices {
			r := results[idx]
			if r.Status == models.TaskStatusCompleted && r.Output != "" {
				fmt.Fprintf(&carried, "\n[%s, wave %d] %s\n%s\n", r.Agent, wave, r.Description, r.Output)
			}
		}
	}

	return results
}

// runTask executes one assignment under the per-task ceiling.
func (s *ExecutionScheduler) runTask(ctx context.Context, a models.TaskAssignment, priorContext string) models.TaskResult {
	result := models.TaskResult{
		Role:        a.Role,
		Description: a.Description,
		Wave:        a.Wave,
		Source:      models.SourceExecution,
	}

	inst, err := s.factory.NewInstance(a.Role)
	if err != nil {
		result.Status = models.TaskStatusFailed
		result.Reason = err.Error()
		return result
	}
	result.Agent = inst.Name

	if s.events != nil {
		s.events.RecordEvent(session.EventTaskStarted, map[string]any{
			"agent": inst.Name,
			"wave":  a.Wave,
			"task":  a.Description,
		})
	}

	prompt := a.Description
	if priorContext != "" {
		prompt = fmt.Sprintf("%s\n\nResults from earlier waves:\n%s", a.Description, priorContext)
	}

	taskCtx, cancel := context.WithTimeout(ctx, s.taskCeiling)
	defer cancel()

	res, err := s.runner.Run(taskCtx, inst, prompt)
	result.Iterations = res.Iterations
	if err != nil {
		result.Status = models.TaskStatusFailed
		result.Reason = err.Error()
		s.debug.Log("task failed (%s, wave %d): %v", inst.Name, a.Wave, err)
		if s.events != nil {
			s.events.RecordEvent(session.EventTaskFailed, map[string]any{
				"agent":  inst.Name,
				"wave":   a.Wave,
				"reason": err.Error(),
			})
		}
		return result
	}

	result.Status = models.TaskStatusCompleted
	result.Output = res.Output
	if s.events != nil {
		s.events.RecordEvent(session.EventTaskCompleted, map[string]any{
			"agent":      inst.Name,
			"wave":       a.Wave,
			"iterations": res.Iterations,
		})
	}
	return result
}
