package agent

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/ouroagent/ouro/internal/session"
	"github.com/ouroagent/ouro/internal/transport"
)

// Executor runs one task prompt through an agent instance.
type Executor interface {
	Execute(ctx context.Context, inst *Instance, prompt string) (Result, error)
}

var _ Executor = (*Loop)(nil)

// RetryingTaskRunner wraps an executor with timeout-based retries. Each
// attempt gets a longer deadline than the last; only timeouts are retried.
type RetryingTaskRunner struct {
	exec        Executor
	log         session.ExchangeLog
	events      session.EventSink
	maxAttempts int
	baseTimeout time.Duration
	growth      float64
}

// NewRetryingTaskRunner creates a runner. log and events may be nil to
// disable session recording.
func NewRetryingTaskRunner(exec Executor, log session.ExchangeLog, events session.EventSink, maxAttempts int, baseTimeout time.Duration, growth float64) *RetryingTaskRunner {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseTimeout <= 0 {
		baseTimeout = 120 * time.Second
	}
	if growth < 1 {
		growth = 1.5
	}
	return &RetryingTaskRunner{
		exec:        exec,
		log:         log,
		events:      events,
		maxAttempts: maxAttempts,
		baseTimeout: baseTimeout,
		growth:      growth,
	}
}

// Run executes the prompt, retrying timed-out attempts with a grown deadline.
// The query is recorded once, before the first attempt; the response is
// recorded once, when an attempt succeeds. Retries never duplicate either.
func (r *RetryingTaskRunner) Run(ctx context.Context, inst *Instance, prompt string) (Result, error) {
	ticks := time.Now().UnixMilli()
	queryRecorded := false
	responseRecorded := false

	base := r.baseTimeout
	if inst.Spec.Timeout > 0 {
		base = inst.Spec.Timeout
	}

	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		allowed := time.Duration(float64(base) * math.Pow(r.growth, float64(attempt)))

		if !queryRecorded && r.log != nil {
			if err := r.log.CreateQuery(inst.Name, ticks, prompt); err != nil {
				log.Printf("[runner] failed to record query for %s: %v", inst.Name, err)
			}
			queryRecorded = true
		}

		attemptCtx, cancel := context.WithTimeout(ctx, allowed)
		result, err := r.exec.Execute(attemptCtx, inst, prompt)
		cancel()

		if err == nil {
			if !responseRecorded && r.log != nil {
				if err := r.log.AppendResponse(inst.Name, ticks, result.Output); err != nil {
					log.Printf("[runner] failed to record response for %s: %v", inst.Name, err)
				}
				responseRecorded = true
			}
			return result, nil
		}

		if !transport.IsTimeout(err) {
			return Result{}, err
		}
		lastErr = err

		if attempt < r.maxAttempts-1 {
			next := time.Duration(float64(base) * math.Pow(r.growth, float64(attempt+1)))
			log.Printf("[runner] %s timed out after %s on attempt %d/%d, retrying with %s",
				inst.Name, allowed, attempt+1, r.maxAttempts, next)
			if r.events != nil {
				if err := r.events.RecordEvent(session.EventTimeoutRetry, map[string]any{
					"agent":        inst.Name,
					"attempt":      attempt + 1,
					"allowed_ms":   allowed.Milliseconds(),
					"next_allowed": next.Milliseconds(),
				}); err != nil {
					log.Printf("[runner] failed to record retry event: %v", err)
				}
			}
		}
	}

	return Result{}, fmt.Errorf("agent %s timed out on all %d attempts: %w", inst.Name, r.maxAttempts, lastErr)
}
