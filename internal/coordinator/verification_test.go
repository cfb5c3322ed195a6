package coordinator

import (
	"context"
	"strings"
	"testing"

	"github.com/ouroagent/ouro/internal/auditlog"
	"github.com/ouroagent/ouro/pkg/models"
)

func newGate(t *testing.T, runner Runner) (*FinalVerificationGate, *auditlog.Manager) {
	t.Helper()
	audit, err := auditlog.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return NewFinalVerificationGate(newCountingFactory(), runner, audit, NopLogger()), audit
}

func completed(desc string, wave int) models.TaskResult {
	return models.TaskResult{
		Role:        models.RoleDeveloper,
		Agent:       "developer01",
		Description: desc,
		Wave:        wave,
		Status:      models.TaskStatusCompleted,
		Output:      "done",
	}
}

func TestVerifyRunsOnePastLastWave(t *testing.T) {
	runner := &scriptedRunner{replies: []string{"PASS, everything checks out."}}
	gate, _ := newGate(t, runner)

	result, _ := gate.Verify(context.Background(), []models.TaskResult{
		completed("a", 0), completed("b", 3),
	}, nil)

	if result.Wave != 4 {
		t.Errorf("verification wave = %d, want 4", result.Wave)
	}
	if result.Role != models.RoleAuditor || result.Agent != "auditor01" {
		t.Errorf("verification result = %+v", result)
	}
}

func TestVerifyPromptEnumeratesDeliverablesAndBlockers(t *testing.T) {
	runner := &scriptedRunner{replies: []string{"PASS"}}
	gate, audit := newGate(t, runner)
	audit.RecordEdit("auth.go")
	audit.RecordAudit([]string{"auth.go"})

	results := []models.TaskResult{
		completed("write auth", 0),
		{
			Role: models.RoleDeveloper, Agent: "developer02",
			Description: "broken task", Wave: 0,
			Status: models.TaskStatusFailed, Reason: "timed out",
		},
	}
	blockers := []models.CallbackEvent{
		{From: "developer02", Kind: models.CallbackBlocker, Message: "no database"},
	}

	gate.Verify(context.Background(), results, blockers)

	prompt := runner.calls[0]
	for _, want := range []string{"auth.go", "write auth", "broken task", "timed out", "no database"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("verification prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestVerdictPassesWhenAuditComplete(t *testing.T) {
	runner := &scriptedRunner{replies: []string{"All files reviewed. PASS."}}
	gate, audit := newGate(t, runner)
	audit.RecordEdit("main.go")
	audit.RecordAudit([]string{"main.go"})

	_, verdict := gate.Verify(context.Background(), []models.TaskResult{completed("t", 0)}, nil)
	if !verdict.Passed {
		t.Errorf("verdict = %+v, want passed", verdict)
	}
	if len(verdict.MissingOrStale) != 0 {
		t.Errorf("pending = %v, want none", verdict.MissingOrStale)
	}
}

func TestVerdictFailsOnUnauditedEdits(t *testing.T) {
	runner := &scriptedRunner{replies: []string{"Looks fine. PASS."}}
	gate, audit := newGate(t, runner)
	audit.RecordEdit("orphan.go")

	_, verdict := gate.Verify(context.Background(), []models.TaskResult{completed("t", 0)}, nil)
	if verdict.Passed {
		t.Error("verdict passed with unaudited edits")
	}
	if len(verdict.MissingOrStale) != 1 || verdict.MissingOrStale[0] != "orphan.go" {
		t.Errorf("pending = %v, want [orphan.go]", verdict.MissingOrStale)
	}
}

func TestVerdictFailsOnExplicitFailText(t *testing.T) {
	runner := &scriptedRunner{replies: []string{"The tests are broken. FAIL."}}
	gate, audit := newGate(t, runner)
	audit.RecordEdit("x.go")
	audit.RecordAudit([]string{"x.go"})

	_, verdict := gate.Verify(context.Background(), []models.TaskResult{completed("t", 0)}, nil)
	if verdict.Passed {
		t.Error("verdict passed despite explicit FAIL")
	}
}
