package channel

import (
	"context"
	"sync"
)

// InterTabChannel broadcasts messages between same-browser contexts. In the
// original system this rode on localStorage events between tabs; here it is
// an in-process pub/sub hub shared by everything belonging to one browser
// session.
type InterTabChannel struct {
	mu   sync.RWMutex
	subs map[string][]Handler
}

var _ Channel = (*InterTabChannel)(nil)

func NewInterTabChannel() *InterTabChannel {
	return &InterTabChannel{
		subs: make(map[string][]Handler),
	}
}

// Send broadcasts a command to every subscriber, including the sender's own
// context. Delivery is synchronous and in subscription order.
func (c *InterTabChannel) Send(_ context.Context, command string, data map[string]any) error {
	c.mu.RLock()
	handlers := append([]Handler(nil), c.subs[command]...)
	c.mu.RUnlock()

	env := Envelope{Command: command, Data: data}
	for _, fn := range handlers {
		fn(env)
	}
	return nil
}

// Request on the inter-tab channel has no responder; it behaves like Send
// and resolves with an empty response.
func (c *InterTabChannel) Request(ctx context.Context, command string, data map[string]any) (map[string]any, error) {
	if err := c.Send(ctx, command, data); err != nil {
		return nil, err
	}
	return map[string]any{}, nil
}

func (c *InterTabChannel) OnCommand(command string, fn Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[command] = append(c.subs[command], fn)
}

func (c *InterTabChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = make(map[string][]Handler)
	return nil
}
