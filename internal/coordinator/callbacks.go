package coordinator

import (
	"log"
	"sync"

	"github.com/ouroagent/ouro/internal/session"
	"github.com/ouroagent/ouro/pkg/models"
)

// Handler reacts to a callback as it arrives. Handler failures are logged
// and never propagate to the task that raised the callback.
type Handler func(models.CallbackEvent) error

// Collector accumulates callbacks raised by agents during a run.
// The list is append-only and preserves arrival order.
type Collector struct {
	mu       sync.Mutex
	events   []models.CallbackEvent
	handlers []Handler
	sink     session.EventSink
	debug    *DebugLogger
}

// NewCollector creates a callback collector. sink may be nil.
func NewCollector(sink session.EventSink, debug *DebugLogger) *Collector {
	return &Collector{sink: sink, debug: debug}
}

// OnCallback registers a handler invoked for every recorded callback.
func (c *Collector) OnCallback(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// Record appends a callback. Blockers are warned about immediately so they
// surface in the run log long before the final summary.
func (c *Collector) Record(event models.CallbackEvent) {
	c.mu.Lock()
	c.events = append(c.events, event)
	handlers := make([]Handler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	if event.Kind == models.CallbackBlocker {
		log.Printf("[coordinator] BLOCKER from %s: %s", event.From, event.Message)
	}
	c.debug.Log("callback %s from %s: %s", event.Kind, event.From, event.Message)

	if c.sink != nil {
		if err := c.sink.RecordEvent(session.EventAgentCallback, map[string]any{
			"from":    event.From,
			"to":      event.To,
			"type":    string(event.Kind),
			"message": event.Message,
		}); err != nil {
			log.Printf("[coordinator] failed to persist callback: %v", err)
		}
	}

	for _, h := range handlers {
		c.invoke(h, event)
	}
}

// invoke runs one handler, catching errors and panics.
func (c *Collector) invoke(h Handler, event models.CallbackEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[coordinator] callback handler panicked: %v", r)
		}
	}()
	if err := h(event); err != nil {
		log.Printf("[coordinator] callback handler failed: %v", err)
	}
}

// All returns a copy of every recorded callback, in arrival order.
func (c *Collector) All() []models.CallbackEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.CallbackEvent, len(c.events))
	copy(out, c.events)
	return out
}

// Blockers returns the recorded blocker callbacks, in arrival order.
func (c *Collector) Blockers() []models.CallbackEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.CallbackEvent
	for _, e := range c.events {
		if e.Kind == models.CallbackBlocker {
			out = append(out, e)
		}
	}
	return out
}
