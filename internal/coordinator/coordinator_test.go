package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ouroagent/ouro/internal/agent"
	"github.com/ouroagent/ouro/internal/auditlog"
	"github.com/ouroagent/ouro/internal/config"
	"github.com/ouroagent/ouro/pkg/models"
)

// roleRunner serves canned replies per role, safe for concurrent waves.
type roleRunner struct {
	mu      sync.Mutex
	replies map[models.Role][]string
	served  map[models.Role]int
}

func (r *roleRunner) Run(_ context.Context, inst *agent.Instance, prompt string) (agent.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	queue := r.replies[inst.Role]
	i := r.served[inst.Role]
	r.served[inst.Role]++
	if i >= len(queue) {
		return agent.Result{Output: "nothing more to say"}, nil
	}
	return agent.Result{Output: queue[i], Iterations: 1}, nil
}

func newTestCoordinator(t *testing.T, runner Runner) (*Coordinator, *Collector) {
	t.Helper()
	audit, err := auditlog.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	collector := NewCollector(nil, NopLogger())
	c := New(Options{
		Catalog:   config.DefaultCatalog(),
		Runner:    runner,
		Audit:     audit,
		Collector: collector,
		Debug:     NopLogger(),
		Execution: config.ExecutionConfig{Concurrency: 4, TaskCeiling: time.Minute},
		Decompose: config.DecomposeConfig{MaxAttempts: 3},
	})
	return c, collector
}

func TestSatisfyReturnsOneResultPerAssignmentPlusVerification(t *testing.T) {
	runner := &roleRunner{
		replies: map[models.Role][]string{
			models.RoleManager: {
				`assign_task('developer', 'Build the widget', sequence=0)
assign_task('developer', 'Wire the widget', sequence=0)
assign_task('auditor', 'Review the widget', sequence=1)`,
			},
			models.RoleDeveloper: {"built it", "wired it"},
			models.RoleAuditor:   {"Reviewed. PASS.", "Final review. PASS."},
		},
		served: make(map[models.Role]int),
	}

	c, _ := newTestCoordinator(t, runner)
	report, err := c.Satisfy(context.Background(), "make a widget")
	if err != nil {
		t.Fatalf("Satisfy: %v", err)
	}

	if len(report.Assignments) != 3 {
		t.Fatalf("assignments = %d, want 3", len(report.Assignments))
	}
	if len(report.Results) != 3 {
		t.Fatalf("results = %d, want one per assignment", len(report.Results))
	}
	for i, r := range report.Results {
		if r.Description != report.Assignments[i].Description {
			t.Errorf("results[%d] out of plan order: %q", i, r.Description)
		}
	}
	if report.Verification.Role != models.RoleAuditor {
		t.Errorf("verification = %+v, want auditor task", report.Verification)
	}
	if report.Verification.Wave != 2 {
		t.Errorf("verification wave = %d, want 2", report.Verification.Wave)
	}
	if report.RunID == "" {
		t.Error("run ID is empty")
	}
}

func TestSatisfyPropagatesDecompositionError(t *testing.T) {
	runner := &roleRunner{
		replies: map[models.Role][]string{
			models.RoleManager: {"no plan", "still no plan", "sorry"},
		},
		served: make(map[models.Role]int),
	}

	c, _ := newTestCoordinator(t, runner)
	if _, err := c.Satisfy(context.Background(), "impossible"); err == nil {
		t.Fatal("Satisfy succeeded, want DecompositionError")
	}
}

func TestInstanceNamesAreMonotonicPerRole(t *testing.T) {
	c, _ := newTestCoordinator(t, &roleRunner{served: make(map[models.Role]int)})

	names := []string{}
	for i := 0; i < 3; i++ {
		inst, err := c.NewInstance(models.RoleDeveloper)
		if err != nil {
			t.Fatalf("NewInstance: %v", err)
		}
		names = append(names, inst.Name)
	}
	aud, _ := c.NewInstance(models.RoleAuditor)

	want := []string{"developer01", "developer02", "developer03"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	if aud.Name != "auditor01" {
		t.Errorf("auditor name = %q, want auditor01, counters are per role", aud.Name)
	}
}

func TestInstanceNamesUnderConcurrency(t *testing.T) {
	c, _ := newTestCoordinator(t, &roleRunner{served: make(map[models.Role]int)})

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inst, err := c.NewInstance(models.RoleDeveloper)
			if err != nil {
				t.Errorf("NewInstance: %v", err)
				return
			}
			mu.Lock()
			if seen[inst.Name] {
				t.Errorf("duplicate instance name %q", inst.Name)
			}
			seen[inst.Name] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != 20 {
		t.Errorf("distinct names = %d, want 20", len(seen))
	}
}

func TestSatisfyReportsBlockers(t *testing.T) {
	runner := &roleRunner{
		replies: map[models.Role][]string{
			models.RoleManager: {
				`assign_task('developer', 'Do a thing', sequence=0)`,
			},
			models.RoleDeveloper: {"done"},
			models.RoleAuditor:   {"PASS"},
		},
		served: make(map[models.Role]int),
	}

	c, collector := newTestCoordinator(t, runner)
	collector.Record(models.CallbackEvent{
		From: "developer01", Kind: models.CallbackBlocker, Message: "stuck",
	})

	report, err := c.Satisfy(context.Background(), "request")
	if err != nil {
		t.Fatalf("Satisfy: %v", err)
	}
	if len(report.Blockers) != 1 || report.Blockers[0].Message != "stuck" {
		t.Errorf("blockers = %+v", report.Blockers)
	}
}
