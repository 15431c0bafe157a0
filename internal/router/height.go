package router

import (
	"context"
	"sync"

	"github.com/fxawebapp/fxa-front/internal/channel"
)

// HeightObserver relays content height changes to the framing parent so it
// can resize the iframe. It does nothing unless the page is embedded.
type HeightObserver struct {
	channel  channel.Channel
	embedded bool

	mu         sync.Mutex
	lastHeight int
}

func NewHeightObserver(ch channel.Channel, embedded bool) *HeightObserver {
	return &HeightObserver{channel: ch, embedded: embedded}
}

// Observe reports a new content height. Repeated identical heights are not
// relayed.
func (o *HeightObserver) Observe(ctx context.Context, height int) error {
	if !o.embedded {
		return nil
	}

	o.mu.Lock()
	if height == o.lastHeight {
		o.mu.Unlock()
		return nil
	}
	o.lastHeight = height
	o.mu.Unlock()

	return o.channel.Send(ctx, "resize", map[string]any{"height": height})
}
