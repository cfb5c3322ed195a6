package coordinator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ouroagent/ouro/internal/auditlog"
	"github.com/ouroagent/ouro/pkg/models"
)

// FinalVerificationGate synthesizes exactly one auditor task after all waves
// complete. The auditor reviews the run's deliverables and outstanding
// blockers; its PASS or FAIL verdict is advisory.
type FinalVerificationGate struct {
	factory InstanceFactory
	runner  Runner
	audit   *auditlog.Manager
	debug   *DebugLogger
}

// NewFinalVerificationGate creates the gate.
func NewFinalVerificationGate(factory InstanceFactory, runner Runner, audit *auditlog.Manager, debug *DebugLogger) *FinalVerificationGate {
	return &FinalVerificationGate{factory: factory, runner: runner, audit: audit, debug: debug}
}

// Verify runs the synthesized verification task. It returns the auditor's
// task result plus the derived verdict. The verification task's wave is one
// past the plan's last wave.
func (g *FinalVerificationGate) Verify(ctx context.Context, results []models.TaskResult, blockers []models.CallbackEvent) (models.TaskResult, models.VerificationVerdict) {
	wave := 0
	for _, r := range results {
		if r.Wave >= wave {
			wave = r.Wave + 1
		}
	}

	result := models.TaskResult{
		Role:        models.RoleAuditor,
		Description: "final verification of all delivered work",
		Wave:        wave,
		Source:      models.SourceExecution,
	}

	inst, err := g.factory.NewInstance(models.RoleAuditor)
	if err != nil {
		result.Status = models.TaskStatusFailed
		result.Reason = err.Error()
		return result, g.verdict(result, false)
	}
	result.Agent = inst.Name

	res, err := g.runner.Run(ctx, inst, g.buildPrompt(results, blockers))
	result.Iterations = res.Iterations
	if err != nil {
		result.Status = models.TaskStatusFailed
		result.Reason = err.Error()
		g.debug.Log("verification task failed: %v", err)
		return result, g.verdict(result, false)
	}

	result.Status = models.TaskStatusCompleted
	result.Output = res.Output
	return result, g.verdict(result, true)
}

// buildPrompt enumerates the run's deliverables, task outcomes, and blockers
// for the verifying auditor.
func (g *FinalVerificationGate) buildPrompt(results []models.TaskResult, blockers []models.CallbackEvent) string {
	var b strings.Builder
	b.WriteString("All planned tasks have finished. Verify the delivered work.\n")

	edited := g.audit.EditedPaths()
	if len(edited) > 0 {
		b.WriteString("\nFiles produced or modified during this run:\n")
		for _, path := range edited {
			fmt.Fprintf(&b, "  - %s\n", path)
		}
	} else {
		b.WriteString("\nNo files were modified during this run.\n")
	}

	b.WriteString("\nTask outcomes:\n")
	for _, r := range results {
		if r.Failed() {
			fmt.Fprintf(&b, "  - [FAILED] %s (%s): %s\n", r.Description, r.Agent, r.Reason)
		} else {
			fmt.Fprintf(&b, "  - [completed] %s (%s)\n", r.Description, r.Agent)
		}
	}

	if len(blockers) > 0 {
		b.WriteString("\nUnresolved blockers raised during execution:\n")
		for _, blocker := range blockers {
			fmt.Fprintf(&b, "  - %s: %s\n", blocker.From, blocker.Message)
		}
	}

	b.WriteString("\nReview the produced files, record each reviewed file with audit_files, " +
		"then conclude with an explicit PASS or FAIL verdict and confirm_task_complete.")
	return b.String()
}

var failVerdictPattern = regexp.MustCompile(`\bFAIL`)

// verdict derives the advisory verdict from the audit log's completion state
// and the auditor's own text. An explicit FAIL always fails the verdict.
func (g *FinalVerificationGate) verdict(result models.TaskResult, ran bool) models.VerificationVerdict {
	complete, pending := g.audit.IsComplete()

	passed := ran && complete && result.Status == models.TaskStatusCompleted &&
		!failVerdictPattern.MatchString(result.Output)

	summary := result.Output
	if result.Reason != "" {
		summary = result.Reason
	}

	return models.VerificationVerdict{
		Passed:         passed,
		MissingOrStale: pending,
		Summary:        summary,
	}
}
