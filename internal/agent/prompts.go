package agent

import "github.com/ouroagent/ouro/pkg/models"

// Tool names agents may invoke through the call format.
const (
	ToolReadFile      = "read_file"
	ToolWriteFile     = "write_file"
	ToolEditFile      = "edit_file"
	ToolDeleteFile    = "delete_file"
	ToolListDir       = "list_directory"
	ToolSearchFiles   = "search_files"
	ToolRaiseCallback = "raise_callback"
	ToolAuditFiles    = "audit_files"
	ToolConfirmDone   = "confirm_task_complete"
)

// DefaultToolsForRole returns the built-in tool set for a role.
// Developers cannot confirm completion or record audits; managers plan only
// and get no workspace tools at all.
func DefaultToolsForRole(role models.Role) []string {
	switch role {
	case models.RoleDeveloper:
		return []string{
			ToolReadFile, ToolWriteFile, ToolEditFile, ToolDeleteFile,
			ToolListDir, ToolSearchFiles, ToolRaiseCallback,
		}
	case models.RoleAuditor:
		return []string{
			ToolReadFile, ToolListDir, ToolSearchFiles,
			ToolRaiseCallback, ToolAuditFiles, ToolConfirmDone,
		}
	default:
		return nil
	}
}

// toolCatalog describes the call format for each tool an agent may use.
var toolCatalog = map[string]string{
	ToolReadFile:      `read_file('path') - Read a file from the workspace.`,
	ToolWriteFile:     `write_file('path', 'content') - Create or overwrite a file.`,
	ToolEditFile:      `edit_file('path', 'old text', 'new text') - Replace one unique occurrence of old text.`,
	ToolDeleteFile:    `delete_file('path') - Delete a file.`,
	ToolListDir:       `list_directory('path') - List all files under a directory.`,
	ToolSearchFiles:   `search_files('pattern', 'path') - Find files containing a text pattern.`,
	ToolRaiseCallback: `raise_callback('type', 'message') - Report to the coordinator. Types: query, blocker, clarification, error.`,
	ToolAuditFiles:    `audit_files(['path1', 'path2']) - Record that you reviewed the listed files.`,
	ToolConfirmDone:   `confirm_task_complete('summary') - Declare the task finished with a short summary.`,
}

// toolInstructions renders the tool section of a system prompt for the given
// tool set. Empty for roles with no tools.
func toolInstructions(tools []string) string {
	if len(tools) == 0 {
		return ""
	}
	text := "\n\nYou have these tools. Invoke a tool by writing the call on its own line, " +
		"exactly in the form shown. String arguments use single quotes; escape " +
		"newlines inside strings as \\n. You may make several calls per reply; " +
		"results are returned before your next turn.\n"
	for _, name := range tools {
		if desc, ok := toolCatalog[name]; ok {
			text += "\n  - " + desc
		}
	}
	return text
}

// ManagerAssignmentInstructions is appended to the manager's system prompt so
// replies can be parsed into task assignments.
const ManagerAssignmentInstructions = `

Assign tasks using exactly these call forms, each on its own line:

  - assign_task('role', 'task description', sequence=N) - Assign one task.
  - assign_tasks([{'role': 'developer', 'task': '...', 'sequence': 0}, ...]) - Assign a batch.

The sequence number is the execution wave: tasks sharing a wave run in
parallel, and later waves see the combined output of earlier waves. Do not
assign to any role other than those you are told are available.`
