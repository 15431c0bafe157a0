// Package channel implements the two-way asynchronous message pipes between
// the application and its embedding context (browser chrome, parent frame,
// or nothing at all).
//
// Every variant speaks the same envelope: {command, data, messageId}.
// Requests are correlated to responses by messageId; a pending request is
// resolved or rejected exactly once, whichever of the matching response or
// the timeout arrives first. Late or unknown-id responses are dropped.
package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fxawebapp/fxa-front/internal/log"
)

// DefaultRequestTimeout bounds a Request round trip when the context
// carries no earlier deadline.
const DefaultRequestTimeout = 90 * time.Second

// ErrRequestTimeout is returned when no matching response arrives in time.
var ErrRequestTimeout = errors.New("channel request timed out")

// ErrChannelClosed is returned for operations on a closed channel.
var ErrChannelClosed = errors.New("channel closed")

// Envelope is the wire shape of one channel message.
type Envelope struct {
	Command   string         `json:"command"`
	Data      map[string]any `json:"data,omitempty"`
	MessageID string         `json:"messageId,omitempty"`
}

// Handler consumes unsolicited commands arriving on a channel.
type Handler func(Envelope)

// Channel is the uniform surface over the underlying transports.
type Channel interface {
	// Send transmits a one-way command.
	Send(ctx context.Context, command string, data map[string]any) error

	// Request transmits a command and waits for the correlated response.
	Request(ctx context.Context, command string, data map[string]any) (map[string]any, error)

	// OnCommand registers a handler for unsolicited messages with the
	// given command name.
	OnCommand(command string, fn Handler)

	Close() error
}

// Transport moves envelopes to and from the embedding context.
type Transport interface {
	Send(Envelope) error
	// Receive yields inbound envelopes. The transport closes the channel
	// when the far side goes away.
	Receive() <-chan Envelope
	Close() error
}

// pending tracks one in-flight request. resolved guarantees the
// exactly-once contract.
type pending struct {
	response chan map[string]any
	resolved bool
}

// base implements the envelope plumbing shared by every transport-backed
// channel variant.
type base struct {
	transport Transport
	timeout   time.Duration

	mu       sync.Mutex
	requests map[string]*pending
	handlers map[string][]Handler
	closed   bool
	done     chan struct{}
}

// NewChannel wraps a transport in the request/response machinery.
// A zero timeout means DefaultRequestTimeout.
func NewChannel(transport Transport, timeout time.Duration) Channel {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	c := &base{
		transport: transport,
		timeout:   timeout,
		requests:  make(map[string]*pending),
		handlers:  make(map[string][]Handler),
		done:      make(chan struct{}),
	}
	go c.dispatchLoop()
	return c
}

func (c *base) dispatchLoop() {
	for {
		select {
		case env, ok := <-c.transport.Receive():
			if !ok {
				return
			}
			c.dispatch(env)
		case <-c.done:
			return
		}
	}
}

func (c *base) dispatch(env Envelope) {
	if env.MessageID != "" {
		c.mu.Lock()
		p, ok := c.requests[env.MessageID]
		if ok && !p.resolved {
			p.resolved = true
			delete(c.requests, env.MessageID)
			c.mu.Unlock()
			p.response <- env.Data
			return
		}
		c.mu.Unlock()
		if ok {
			return
		}
		// Unknown id: a late or duplicate response after timeout.
		// Deliberately ignored.
		log.LogDebugWithFields("channel", "Dropping response with unknown message id", map[string]any{
			"command":   env.Command,
			"messageId": env.MessageID,
		})
		return
	}

	c.mu.Lock()
	handlers := append([]Handler(nil), c.handlers[env.Command]...)
	c.mu.Unlock()
	for _, fn := range handlers {
		fn(env)
	}
}

func (c *base) Send(_ context.Context, command string, data map[string]any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	c.mu.Unlock()

	return c.transport.Send(Envelope{Command: command, Data: data})
}

func (c *base) Request(ctx context.Context, command string, data map[string]any) (map[string]any, error) {
	id := uuid.NewString()
	p := &pending{response: make(chan map[string]any, 1)}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrChannelClosed
	}
	c.requests[id] = p
	c.mu.Unlock()

	if err := c.transport.Send(Envelope{Command: command, Data: data, MessageID: id}); err != nil {
		c.abandon(id)
		return nil, fmt.Errorf("sending %s request: %w", command, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case response := <-p.response:
		return response, nil
	case <-timer.C:
		c.abandon(id)
		return nil, fmt.Errorf("%s: %w", command, ErrRequestTimeout)
	case <-ctx.Done():
		c.abandon(id)
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrChannelClosed
	}
}

// abandon clears a pending request so a late response cannot act on it.
func (c *base) abandon(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.requests, id)
}

func (c *base) OnCommand(command string, fn Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[command] = append(c.handlers[command], fn)
}

func (c *base) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	return c.transport.Close()
}
