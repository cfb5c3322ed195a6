package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/ouroagent/ouro/internal/session"
)

// Replay serves responses recorded by a prior run instead of calling the API.
// Each agent consumes its own recorded responses in the order they were
// captured, so a rerun with the same request reproduces the same conversation.
type Replay struct {
	source session.ReplaySource

	mu       sync.Mutex
	cursors  map[string]int
	recorded map[string][]session.Exchange
}

// NewReplay creates a replay transport backed by a session log.
func NewReplay(source session.ReplaySource) *Replay {
	return &Replay{
		source:   source,
		cursors:  make(map[string]int),
		recorded: make(map[string][]session.Exchange),
	}
}

// Send returns the next recorded response for the payload's agent.
func (r *Replay) Send(_ context.Context, p Payload) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exchanges, ok := r.recorded[p.AgentName]
	if !ok {
		loaded, err := r.source.RecordedResponses(p.AgentName)
		if err != nil {
			return "", &Error{Kind: ErrAPI, Agent: p.AgentName, Wrapped: err}
		}
		r.recorded[p.AgentName] = loaded
		exchanges = loaded
	}

	cursor := r.cursors[p.AgentName]
	if cursor >= len(exchanges) {
		return "", &Error{
			Kind:    ErrExhausted,
			Agent:   p.AgentName,
			Wrapped: fmt.Errorf("no recorded response at position %d (%d recorded)", cursor, len(exchanges)),
		}
	}
	r.cursors[p.AgentName] = cursor + 1

	return exchanges[cursor].Response, nil
}

var _ Transport = (*Replay)(nil)
