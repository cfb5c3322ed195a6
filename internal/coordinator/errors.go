package coordinator

import "fmt"

// DecompositionError is returned when the manager could not produce a valid
// task plan within the attempt budget.
type DecompositionError struct {
	// Attempts is how many manager calls were made.
	Attempts int
	// Reason describes the final failure.
	Reason string
	// LastReply is the manager's final reply, kept for diagnostics.
	LastReply string
}

func (e *DecompositionError) Error() string {
	return fmt.Sprintf("decomposition failed after %d attempts: %s", e.Attempts, e.Reason)
}
