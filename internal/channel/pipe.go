package channel

import "sync"

// pipeTransport is one end of an in-memory duplex pipe. It backs the
// same-process channels (the iframe parent/child pair and tests) where the
// original system used window.postMessage.
type pipeTransport struct {
	peer *pipeTransport

	mu     sync.Mutex
	inbox  chan Envelope
	closed bool
}

var _ Transport = (*pipeTransport)(nil)

// Pipe returns two connected transports. An envelope sent on one side
// arrives on the other side's Receive channel.
func Pipe() (Transport, Transport) {
	a := &pipeTransport{inbox: make(chan Envelope, 16)}
	b := &pipeTransport{inbox: make(chan Envelope, 16)}
	a.peer = b
	b.peer = a
	return a, b
}

func (t *pipeTransport) Send(env Envelope) error {
	t.peer.mu.Lock()
	defer t.peer.mu.Unlock()
	if t.peer.closed {
		return ErrChannelClosed
	}
	t.peer.inbox <- env
	return nil
}

func (t *pipeTransport) Receive() <-chan Envelope {
	return t.inbox
}

func (t *pipeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.inbox)
	return nil
}
