// Package transport abstracts how agent conversations reach a model.
// The live transport talks to the Anthropic API; the replay transport
// serves responses recorded in an earlier session log.
package transport

import (
	"context"
	"errors"
)

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one turn of an agent conversation.
type Message struct {
	Role    MessageRole
	Content string
}

// Payload is a single model request assembled by an agent instance.
type Payload struct {
	// AgentName is the instance name issuing the request (e.g. "developer01").
	// Replay uses it to serve each agent its own recorded responses.
	AgentName string
	// System is the system prompt for the conversation.
	System string
	// Messages is the conversation history, oldest first.
	Messages []Message
	// Model overrides the transport default when non-empty.
	Model string
	// Temperature is the sampling temperature.
	Temperature float64
	// MaxTokens caps the response length. Zero uses the transport default.
	MaxTokens int
}

// Transport sends a payload and returns the assistant's text response.
type Transport interface {
	Send(ctx context.Context, p Payload) (string, error)
}

// ErrorKind classifies transport failures for retry decisions.
type ErrorKind string

const (
	// ErrTimeout indicates the call exceeded its deadline. Retryable.
	ErrTimeout ErrorKind = "timeout"
	// ErrAPI indicates the API rejected or failed the call. Not retryable.
	ErrAPI ErrorKind = "api"
	// ErrExhausted indicates a replay source has no more responses.
	ErrExhausted ErrorKind = "exhausted"
)

// Error is a classified transport failure.
type Error struct {
	Kind    ErrorKind
	Agent   string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return "transport " + string(e.Kind) + " (" + e.Agent + "): " + e.Wrapped.Error()
	}
	return "transport " + string(e.Kind) + " (" + e.Agent + ")"
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// IsTimeout reports whether err is a timeout-classified transport error.
func IsTimeout(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == ErrTimeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}
