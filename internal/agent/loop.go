package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ouroagent/ouro/internal/toolenv"
	"github.com/ouroagent/ouro/internal/transport"
	"github.com/ouroagent/ouro/pkg/models"
)

// CallbackSink receives callbacks agents raise during execution.
type CallbackSink interface {
	Record(event models.CallbackEvent)
}

// AuditRecorder receives the file audits auditors record.
type AuditRecorder interface {
	RecordAudit(paths []string)
	HasEdit(path string) bool
}

// Result is the outcome of running one task through an agent instance.
type Result struct {
	// Output is the last assistant reply of the conversation.
	Output string
	// Iterations is the number of model calls made.
	Iterations int
	// Completed is true if the agent confirmed completion explicitly.
	Completed bool
}

// Loop drives an agent instance through iterative tool calling until the
// agent confirms completion, stops calling tools, or hits its iteration cap.
type Loop struct {
	transport transport.Transport
	env       *toolenv.Env
	callbacks CallbackSink
	audit     AuditRecorder
}

// NewLoop creates a tool loop. callbacks and audit may be nil, in which case
// the corresponding tools report an error to the agent.
func NewLoop(t transport.Transport, env *toolenv.Env, callbacks CallbackSink, audit AuditRecorder) *Loop {
	return &Loop{transport: t, env: env, callbacks: callbacks, audit: audit}
}

// Execute runs one task prompt through the instance's tool loop.
func (l *Loop) Execute(ctx context.Context, inst *Instance, prompt string) (Result, error) {
	maxIterations := inst.Spec.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 1
	}
	tools := inst.Tools()
	system := inst.SystemPrompt()

	messages := []transport.Message{
		{Role: transport.RoleUser, Content: prompt},
	}

	var result Result
	for result.Iterations < maxIterations {
		result.Iterations++

		reply, err := l.transport.Send(ctx, transport.Payload{
			AgentName:   inst.Name,
			System:      system,
			Messages:    messages,
			Model:       inst.Spec.Model,
			Temperature: inst.Spec.Temperature,
			MaxTokens:   inst.Spec.MaxTokens,
		})
		if err != nil {
			return result, fmt.Errorf("agent %s call failed: %w", inst.Name, err)
		}
		result.Output = reply
		messages = append(messages, transport.Message{Role: transport.RoleAssistant, Content: reply})

		calls := ParseCalls(reply, tools)
		if len(calls) == 0 {
			// No tool calls means the agent is done talking.
			return result, nil
		}

		var feedback strings.Builder
		for _, call := range calls {
			output, done := l.dispatch(inst, call)
			if done {
				result.Completed = true
				return result, nil
			}
			fmt.Fprintf(&feedback, "%s: %s\n", call.Tool, output)
		}
		messages = append(messages, transport.Message{
			Role:    transport.RoleUser,
			Content: "Tool results:\n" + feedback.String(),
		})
	}

	return result, nil
}

// dispatch executes one tool call and returns the result text shown to the
// agent. The second return is true when the call ends the task.
func (l *Loop) dispatch(inst *Instance, call Call) (string, bool) {
	switch call.Tool {
	case ToolReadFile:
		content, err := l.env.ReadFile(call.Arg(0))
		if err != nil {
			return err.Error(), false
		}
		return content, false

	case ToolWriteFile:
		if err := l.env.WriteFile(call.Arg(0), call.Arg(1)); err != nil {
			return err.Error(), false
		}
		return fmt.Sprintf("wrote %s", call.Arg(0)), false

	case ToolEditFile:
		if err := l.env.EditFile(call.Arg(0), call.Arg(1), call.Arg(2)); err != nil {
			return err.Error(), false
		}
		return fmt.Sprintf("edited %s", call.Arg(0)), false

	case ToolDeleteFile:
		if err := l.env.DeleteFile(call.Arg(0)); err != nil {
			return err.Error(), false
		}
		return fmt.Sprintf("deleted %s", call.Arg(0)), false

	case ToolListDir:
		files, err := l.env.ListDir(call.Arg(0))
		if err != nil {
			return err.Error(), false
		}
		if len(files) == 0 {
			return "no files", false
		}
		return strings.Join(files, "\n"), false

	case ToolSearchFiles:
		matches, err := l.env.SearchFiles(call.Arg(0), call.Arg(1))
		if err != nil {
			return err.Error(), false
		}
		if len(matches) == 0 {
			return "no matches", false
		}
		return strings.Join(matches, "\n"), false

	case ToolRaiseCallback:
		return l.raiseCallback(inst, call), false

	case ToolAuditFiles:
		return l.auditFiles(inst, call), false

	case ToolConfirmDone:
		log.Printf("[agent] %s confirmed task complete: %s", inst.Name, call.Arg(0))
		return "", true
	}
	return fmt.Sprintf("unknown tool %s", call.Tool), false
}

func (l *Loop) raiseCallback(inst *Instance, call Call) string {
	if l.callbacks == nil {
		return "callbacks are not available"
	}
	kind := models.CallbackKind(call.Arg(0))
	if !kind.Valid() {
		return fmt.Sprintf("invalid callback type %q, use query, blocker, clarification, or error", call.Arg(0))
	}
	l.callbacks.Record(models.CallbackEvent{
		From:      inst.Name,
		To:        "coordinator",
		Kind:      kind,
		Message:   call.Arg(1),
		Timestamp: time.Now().UTC(),
	})
	return fmt.Sprintf("%s callback recorded", kind)
}

// auditFiles records the audit, rejecting paths with no edit record so an
// auditor cannot sign off on files nobody produced.
func (l *Loop) auditFiles(inst *Instance, call Call) string {
	if l.audit == nil {
		return "auditing is not available"
	}
	if len(call.List) == 0 {
		return "audit_files requires a list of file paths"
	}

	var unknown []string
	for _, path := range call.List {
		if !l.audit.HasEdit(path) {
			unknown = append(unknown, path)
		}
	}
	if len(unknown) > 0 {
		return fmt.Sprintf("cannot audit files with no recorded edits: %s", strings.Join(unknown, ", "))
	}

	l.audit.RecordAudit(call.List)
	log.Printf("[agent] %s audited %d files", inst.Name, len(call.List))
	return fmt.Sprintf("recorded audit for %d files", len(call.List))
}
