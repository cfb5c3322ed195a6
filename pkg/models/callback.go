package models

import "time"

// CallbackKind classifies a signal raised by an agent mid-task.
type CallbackKind string

const (
	// CallbackQuery is an informational question for the caller.
	CallbackQuery CallbackKind = "query"
	// CallbackBlocker reports a condition preventing task completion.
	CallbackBlocker CallbackKind = "blocker"
	// CallbackClarification requests clarification of the task.
	CallbackClarification CallbackKind = "clarification"
	// CallbackError reports an error the agent could not handle.
	CallbackError CallbackKind = "error"
)

// Valid returns true if the kind is a known value.
func (k CallbackKind) Valid() bool {
	switch k {
	case CallbackQuery, CallbackBlocker, CallbackClarification, CallbackError:
		return true
	default:
		return false
	}
}

// CallbackEvent is an out-of-band signal raised by an executing agent.
// Events are appended to the collector and never mutated or removed.
type CallbackEvent struct {
	// From is the agent that raised the callback.
	From string `json:"from"`
	// To is the caller agent the callback is addressed to.
	To string `json:"to"`
	// Kind classifies the callback.
	Kind CallbackKind `json:"type"`
	// Message is the callback payload text.
	Message string `json:"message"`
	// Timestamp is when the callback was recorded.
	Timestamp time.Time `json:"timestamp"`
}
