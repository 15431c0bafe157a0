package channel

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fxawebapp/fxa-front/internal/log"
)

// wsTransport adapts a WebSocket connection to the Transport interface.
// This is how browser chrome speaks WebChannel to the front.
type wsTransport struct {
	conn  *websocket.Conn
	inbox chan Envelope

	writeMu   sync.Mutex
	closeOnce sync.Once
}

var _ Transport = (*wsTransport)(nil)

// NewWebSocketTransport starts the read pump for conn and returns its
// transport. The caller owns conn until Close.
func NewWebSocketTransport(conn *websocket.Conn) Transport {
	t := &wsTransport{
		conn:  conn,
		inbox: make(chan Envelope, 16),
	}
	go t.readPump()
	return t
}

func (t *wsTransport) readPump() {
	defer close(t.inbox)
	for {
		var env Envelope
		if err := t.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.LogDebugWithFields("webchannel", "WebSocket read failed", map[string]any{
					"error": err.Error(),
				})
			}
			return
		}
		t.inbox <- env
	}
}

func (t *wsTransport) Send(env Envelope) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteJSON(env)
}

func (t *wsTransport) Receive() <-chan Envelope {
	return t.inbox
}

func (t *wsTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.conn.Close()
	})
	return err
}

// WebChannelHub tracks the live WebChannel connections keyed by the
// webChannelId the embedding browser declared.
type WebChannelHub struct {
	mu       sync.RWMutex
	channels map[string]Channel
	parked   map[string]Transport
	timeout  time.Duration
}

// NewWebChannelHub creates an empty hub. timeout bounds request round trips
// on every channel attached to it.
func NewWebChannelHub(timeout time.Duration) *WebChannelHub {
	return &WebChannelHub{
		channels: make(map[string]Channel),
		parked:   make(map[string]Transport),
		timeout:  timeout,
	}
}

// Attach wires a transport under the given webChannelId, replacing and
// closing any previous connection with the same id.
func (h *WebChannelHub) Attach(id string, transport Transport) Channel {
	ch := NewChannel(transport, h.timeout)

	h.mu.Lock()
	old, existed := h.channels[id]
	h.channels[id] = ch
	h.mu.Unlock()

	if existed {
		_ = old.Close()
		log.LogWarnWithFields("webchannel", "Replaced existing WebChannel connection", map[string]any{
			"webChannelId": id,
		})
	}

	log.LogInfoWithFields("webchannel", "WebChannel attached", map[string]any{
		"webChannelId": id,
	})
	return ch
}

// Get returns the channel for id. When no browser is attached it returns a
// NullChannel so callers always have something to talk to.
func (h *WebChannelHub) Get(id string) Channel {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if ch, ok := h.channels[id]; ok {
		return ch
	}
	return NewNullChannel()
}

// Park stores a raw transport without wrapping it, replacing any previous
// one under the same id. Parent-frame connections are parked so bootstrap
// can claim the transport and build the origin-checked iframe channel over
// it.
func (h *WebChannelHub) Park(id string, transport Transport) {
	h.mu.Lock()
	old, existed := h.parked[id]
	h.parked[id] = transport
	h.mu.Unlock()

	if existed {
		_ = old.Close()
	}
}

// TakeTransport claims a parked transport. A transport can be taken exactly
// once; a second take finds nothing.
func (h *WebChannelHub) TakeTransport(id string) (Transport, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.parked[id]
	if ok {
		delete(h.parked, id)
	}
	return t, ok
}

// Detach closes and forgets the channel for id.
func (h *WebChannelHub) Detach(id string) {
	h.mu.Lock()
	ch, ok := h.channels[id]
	delete(h.channels, id)
	h.mu.Unlock()

	if ok {
		_ = ch.Close()
	}
}
