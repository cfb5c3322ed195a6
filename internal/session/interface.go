package session

import "io"

// EventSink is the append-only event log the coordinator writes to.
type EventSink interface {
	RecordEvent(kind string, payload map[string]any) error
}

// ExchangeLog records the query/response pairs of agent calls.
type ExchangeLog interface {
	CreateQuery(agent string, ticks int64, query string) error
	AppendResponse(agent string, ticks int64, response string) error
}

// ReplaySource serves previously recorded responses in timestamp order.
type ReplaySource interface {
	RecordedResponses(agent string) ([]Exchange, error)
}

// Log is the full persistence surface of one coordinator run.
type Log interface {
	io.Closer
	EventSink
	ExchangeLog
	ReplaySource
}

// Compile-time verification that Store implements all interfaces.
var (
	_ Log          = (*Store)(nil)
	_ EventSink    = (*Store)(nil)
	_ ExchangeLog  = (*Store)(nil)
	_ ReplaySource = (*Store)(nil)
)
