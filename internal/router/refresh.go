package router

import (
	"sync"

	"github.com/fxawebapp/fxa-front/internal/metrics"
)

// RefreshObserver notices when the same view loads twice in a row, which is
// how a user-initiated refresh shows up, and logs it as a metrics event.
type RefreshObserver struct {
	metrics *metrics.Metrics

	mu       sync.Mutex
	lastView string
}

func NewRefreshObserver(m *metrics.Metrics) *RefreshObserver {
	return &RefreshObserver{metrics: m}
}

func (o *RefreshObserver) OnView(view string) {
	o.mu.Lock()
	refreshed := view != "" && view == o.lastView
	o.lastView = view
	o.mu.Unlock()

	if refreshed && o.metrics != nil {
		o.metrics.LogEvent(view + ".refresh")
	}
}
