package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/ouroagent/ouro/internal/agent"
	"github.com/ouroagent/ouro/internal/config"
	"github.com/ouroagent/ouro/internal/session"
	"github.com/ouroagent/ouro/pkg/models"
)

// Runner drives one task prompt through an agent instance.
type Runner interface {
	Run(ctx context.Context, inst *agent.Instance, prompt string) (agent.Result, error)
}

var _ Runner = (*agent.RetryingTaskRunner)(nil)

// InstanceFactory mints named agent instances.
type InstanceFactory interface {
	NewInstance(role models.Role) (*agent.Instance, error)
}

// TaskDecomposer turns a user request into a validated task plan via a
// manager agent. Invalid plans are retried with corrective feedback.
type TaskDecomposer struct {
	factory     InstanceFactory
	runner      Runner
	catalog     *config.Catalog
	events      session.EventSink
	debug       *DebugLogger
	maxAttempts int
}

// NewTaskDecomposer creates a decomposer. events may be nil.
func NewTaskDecomposer(factory InstanceFactory, runner Runner, catalog *config.Catalog, events session.EventSink, debug *DebugLogger, maxAttempts int) *TaskDecomposer {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &TaskDecomposer{
		factory:     factory,
		runner:      runner,
		catalog:     catalog,
		events:      events,
		debug:       debug,
		maxAttempts: maxAttempts,
	}
}

// Decompose asks a manager agent to break the request into assignments.
// The manager is created once and reused across corrective retries so the
// conversation stays attributed to a single planner.
func (d *TaskDecomposer) Decompose(ctx context.Context, request string) ([]models.TaskAssignment, error) {
	manager, err := d.factory.NewInstance(models.RoleManager)
	if err != nil {
		return nil, fmt.Errorf("create manager: %w", err)
	}

	available := d.availableRoles()
	prompt := fmt.Sprintf("%s\n\nAvailable roles: %s", request, strings.Join(available, ", "))

	var lastReply, lastReason string
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		result, err := d.runner.Run(ctx, manager, prompt)
		if err != nil {
			return nil, fmt.Errorf("manager call: %w", err)
		}
		lastReply = result.Output

		assignments := ExtractAssignments(result.Output, manager.Name)
		if len(assignments) == 0 {
			assignments = extractJSONAssignments(result.Output, manager.Name)
		}

		if len(assignments) == 0 {
			lastReason = "no task assignments found (neither call format nor valid JSON)"
			d.debug.Log("decompose attempt %d: %s", attempt, lastReason)
			prompt = fmt.Sprintf(
				"Your previous response contained no task assignments. "+
					"Use assign_task('role', 'task', sequence=N) or assign_tasks([...]) "+
					"with roles from: %s.\n\nOriginal request: %s",
				strings.Join(available, ", "), request)
			continue
		}

		invalid := d.invalidRoles(assignments)
		if len(invalid) > 0 {
			lastReason = fmt.Sprintf("assignments name unknown roles: %s", strings.Join(invalid, ", "))
			log.Printf("[decomposer] %s, retrying with corrective feedback", lastReason)
			if d.events != nil {
				d.events.RecordEvent(session.EventRoleValidationFailed, map[string]any{
					"attempt":       attempt,
					"invalid_roles": invalid,
				})
			}
			prompt = fmt.Sprintf(
				"Your previous plan assigned tasks to unknown roles: %s. "+
					"Only these roles exist: %s. Reassign every task to a valid role.\n\n"+
					"Original request: %s",
				strings.Join(invalid, ", "), strings.Join(available, ", "), request)
			continue
		}

		if d.events != nil {
			d.events.RecordEvent(session.EventRequestDecomposed, map[string]any{
				"attempt": attempt,
				"tasks":   len(assignments),
			})
		}
		d.debug.Log("decomposed request into %d tasks on attempt %d", len(assignments), attempt)
		return assignments, nil
	}

	return nil, &DecompositionError{
		Attempts:  d.maxAttempts,
		Reason:    lastReason,
		LastReply: lastReply,
	}
}

// availableRoles lists the assignable roles, excluding the manager itself.
func (d *TaskDecomposer) availableRoles() []string {
	var out []string
	for _, role := range d.catalog.Roles() {
		if role != models.RoleManager {
			out = append(out, string(role))
		}
	}
	sort.Strings(out)
	return out
}

func (d *TaskDecomposer) invalidRoles(assignments []models.TaskAssignment) []string {
	seen := make(map[string]bool)
	var invalid []string
	for _, a := range assignments {
		if a.Role == models.RoleManager || !d.catalog.Has(a.Role) {
			if !seen[string(a.Role)] {
				seen[string(a.Role)] = true
				invalid = append(invalid, string(a.Role))
			}
		}
	}
	sort.Strings(invalid)
	return invalid
}

var (
	assignTaskPattern  = regexp.MustCompile(`(?s)assign_task\s*\(\s*['"]([^'"]+)['"]\s*,\s*['"]([^'"]*?)['"]\s*,\s*sequence\s*=\s*(\d+)`)
	assignTasksPattern = regexp.MustCompile(`(?s)assign_tasks\s*\(\s*\[\s*(.*?)\s*\]\s*\)`)
	taskObjPattern     = regexp.MustCompile(`(?s)\{\s*['"]?role['"]?\s*:\s*['"]([^'"]+)['"]\s*,\s*['"]?task['"]?\s*:\s*['"]([^'"]*?)['"]\s*,\s*['"]?sequence['"]?\s*:\s*(\d+)`)
)

// ExtractAssignments pulls assign_task and assign_tasks invocations out of a
// manager reply. Returns nil when the reply contains neither form.
func ExtractAssignments(reply, caller string) []models.TaskAssignment {
	var assignments []models.TaskAssignment

	for _, m := range assignTaskPattern.FindAllStringSubmatch(reply, -1) {
		wave, _ := strconv.Atoi(m[3])
		assignments = append(assignments, models.TaskAssignment{
			Role:        models.Role(strings.TrimSpace(m[1])),
			Description: strings.TrimSpace(unescapeNewlines(m[2])),
			Wave:        wave,
			Caller:      caller,
		})
	}

	for _, batch := range assignTasksPattern.FindAllStringSubmatch(reply, -1) {
		for _, m := range taskObjPattern.FindAllStringSubmatch(batch[1], -1) {
			wave, _ := strconv.Atoi(m[3])
			assignments = append(assignments, models.TaskAssignment{
				Role:        models.Role(strings.TrimSpace(m[1])),
				Description: strings.TrimSpace(unescapeNewlines(m[2])),
				Wave:        wave,
				Caller:      caller,
			})
		}
	}

	return assignments
}

func unescapeNewlines(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

// wireAssignment is the JSON fallback shape for one task.
type wireAssignment struct {
	Role     string `json:"role"`
	Task     string `json:"task"`
	Sequence int    `json:"sequence"`
}

type wireEnvelope struct {
	Tasks []wireAssignment `json:"tasks"`
}

// extractJSONAssignments parses a reply as a literal task array or a
// {"tasks": [...]} object, repairing malformed JSON before giving up.
func extractJSONAssignments(reply, caller string) []models.TaskAssignment {
	body := stripCodeFences(reply)

	tasks := unmarshalTasks(body)
	if tasks == nil {
		repaired, err := jsonrepair.JSONRepair(body)
		if err != nil {
			return nil
		}
		tasks = unmarshalTasks(repaired)
	}
	if tasks == nil {
		return nil
	}

	assignments := make([]models.TaskAssignment, 0, len(tasks))
	for _, t := range tasks {
		assignments = append(assignments, models.TaskAssignment{
			Role:        models.Role(strings.TrimSpace(t.Role)),
			Description: strings.TrimSpace(t.Task),
			Wave:        t.Sequence,
			Caller:      caller,
		})
	}
	return assignments
}

func unmarshalTasks(body string) []wireAssignment {
	var list []wireAssignment
	if err := json.Unmarshal([]byte(body), &list); err == nil && len(list) > 0 {
		return list
	}
	var envelope wireEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && len(envelope.Tasks) > 0 {
		return envelope.Tasks
	}
	return nil
}

var codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// stripCodeFences returns the first fenced block if the reply has one,
// otherwise the trimmed reply.
func stripCodeFences(reply string) string {
	if m := codeFencePattern.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(reply)
}
