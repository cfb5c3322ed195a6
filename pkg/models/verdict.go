package models

// VerificationVerdict is the derived outcome of the final verification pass.
// It is recomputed on demand and never persisted.
type VerificationVerdict struct {
	// Passed is true when the auditor reported PASS and no edited file is
	// missing a later audit.
	Passed bool `json:"passed"`
	// MissingOrStale lists edited paths with no audit, or an audit no later
	// than the last edit.
	MissingOrStale []string `json:"missing_or_stale,omitempty"`
	// Summary is the auditor's verdict text.
	Summary string `json:"summary"`
}
