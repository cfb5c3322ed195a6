package toolenv

import "fmt"

// PathError indicates a tool call named a path outside the workspace jail
// or a path that cannot be used for the requested operation.
type PathError struct {
	// Op is the operation that was attempted.
	Op string
	// Path is the offending path as the agent supplied it.
	Path string
	// Reason explains the violation.
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path error in %s %q: %s", e.Op, e.Path, e.Reason)
}

// SizeLimitError indicates a file exceeded the configured size limit.
type SizeLimitError struct {
	// Path is the file that exceeded the limit.
	Path string
	// Size is the observed or requested size in bytes.
	Size int64
	// Limit is the configured maximum in bytes.
	Limit int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("file %q is %d bytes, exceeds limit of %d", e.Path, e.Size, e.Limit)
}

// ToolError indicates a tool call failed for a reason other than path or
// size violations, including calls to tools the role is not allowed to use.
type ToolError struct {
	// Tool is the tool name.
	Tool string
	// Reason explains the failure.
	Reason string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Reason)
}
