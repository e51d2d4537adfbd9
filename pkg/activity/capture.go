package activity

import (
	"context"
	"sync"
)

// Collector records events. It is the in-process problem collector of a
// session and doubles as a test hook.
type Collector struct {
	mu     sync.Mutex
	events []Event
	// Err is returned from every Notify call.
	Err error
}

func (c *Collector) Notify(_ context.Context, event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, NormalizeEvent(event))
	return c.Err
}

// Events returns a copy of everything recorded so far.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// Problems returns the recorded events that carry a severity.
func (c *Collector) Problems() []Event {
	var out []Event
	for _, event := range c.Events() {
		if event.Problem() {
			out = append(out, event)
		}
	}
	return out
}
