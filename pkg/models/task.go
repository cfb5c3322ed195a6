package models

// Role identifies the specialization of an agent.
type Role string

const (
	// RoleManager decomposes user requests into task assignments.
	RoleManager Role = "manager"
	// RoleDeveloper produces artifacts in the workspace.
	RoleDeveloper Role = "developer"
	// RoleAuditor reviews artifacts and records audits.
	RoleAuditor Role = "auditor"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleDeveloper, RoleAuditor:
		return true
	default:
		return false
	}
}

// TaskAssignment is one unit of planned work produced by decomposition.
// Assignments are immutable once queued for execution.
type TaskAssignment struct {
	// Role is the agent role this assignment targets.
	Role Role `json:"role"`
	// Description is the free-text task for the agent.
	Description string `json:"task"`
	// Wave is the execution ordering key. Assignments sharing a wave run
	// concurrently; waves run in strictly ascending order.
	Wave int `json:"wave"`
	// Caller is the agent identifier that issued this assignment.
	Caller string `json:"caller,omitempty"`
}

// TaskStatus represents the terminal state of an executed assignment.
type TaskStatus string

const (
	// TaskStatusCompleted indicates the assignment produced a result.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the assignment failed after retries.
	TaskStatusFailed TaskStatus = "failed"
)

// ResultSource identifies where a result's output came from.
type ResultSource string

const (
	// SourceExecution indicates the output came from a live agent call.
	SourceExecution ResultSource = "execution"
	// SourceReplay indicates the output was served from a recorded run.
	SourceReplay ResultSource = "replay"
)

// TaskResult is the outcome of executing one TaskAssignment.
type TaskResult struct {
	// Role is the role that executed the assignment.
	Role Role `json:"role"`
	// Agent is the unique name of the agent instance that ran the task.
	Agent string `json:"agent"`
	// Description is the assignment description that was executed.
	Description string `json:"task"`
	// Wave is the wave the assignment ran in.
	Wave int `json:"wave"`
	// Status is completed or failed.
	Status TaskStatus `json:"status"`
	// Output is the agent's final response text, empty on failure.
	Output string `json:"output,omitempty"`
	// Reason is a short failure reason, empty on success.
	Reason string `json:"reason,omitempty"`
	// Source indicates live execution or replay.
	Source ResultSource `json:"source"`
	// Iterations is the number of tool-loop iterations consumed.
	Iterations int `json:"iterations,omitempty"`
}

// Failed returns true if the result records a failure.
func (r TaskResult) Failed() bool {
	return r.Status == TaskStatusFailed
}
