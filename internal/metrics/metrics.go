// Package metrics collects flow events and timings for one page load and
// flushes them through the log pipeline. Collection is sampled: an
// unsampled emitter accepts everything and emits nothing.
package metrics

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fxawebapp/fxa-front/internal/log"
)

// Event is one recorded occurrence.
type Event struct {
	Type   string        `json:"type"`
	Offset time.Duration `json:"offset"`
}

// Metrics accumulates events for a single page load.
type Metrics struct {
	mu      sync.Mutex
	events  []Event
	timers  map[string]time.Time
	flushed bool

	sampled   bool
	flowID    string
	startedAt time.Time

	// Flow metadata.
	Language   string
	Campaign   string
	Entrypoint string
	Service    string
	Context    string
	UTMSource  string
	UTMMedium  string
	BrokerType string
}

// New creates a metrics emitter. sampleRate in [0,1] decides whether this
// page load reports at all.
func New(sampleRate float64, language string) *Metrics {
	return &Metrics{
		timers:    make(map[string]time.Time),
		sampled:   rand.Float64() < sampleRate,
		flowID:    uuid.NewString(),
		startedAt: time.Now(),
		Language:  language,
	}
}

// Sampled reports whether this emitter actually reports.
func (m *Metrics) Sampled() bool {
	return m.sampled
}

// SetBrokerType records which broker variant bootstrap selected.
func (m *Metrics) SetBrokerType(brokerType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BrokerType = brokerType
}

// LogEvent records a named event with its offset from page start.
func (m *Metrics) LogEvent(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, Event{
		Type:   eventType,
		Offset: time.Since(m.startedAt),
	})
}

// LogError records an error as an event. Expected errors (the user backing
// out of a login) go through here too; they are events, never failures.
func (m *Metrics) LogError(err error) {
	if err == nil {
		return
	}
	m.LogEvent("error: " + err.Error())
}

// StartTimer begins a named timer.
func (m *Metrics) StartTimer(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timers[name] = time.Now()
}

// StopTimer records the elapsed time for a named timer as an event.
func (m *Metrics) StopTimer(name string) {
	m.mu.Lock()
	started, ok := m.timers[name]
	delete(m.timers, name)
	m.mu.Unlock()
	if !ok {
		return
	}
	m.mu.Lock()
	m.events = append(m.events, Event{
		Type:   "timer: " + name,
		Offset: time.Since(started),
	})
	m.mu.Unlock()
}

// Flush emits the accumulated batch. Repeated flushes emit only events
// recorded since the previous one. Unsampled emitters discard silently.
func (m *Metrics) Flush(ctx context.Context) {
	m.mu.Lock()
	events := m.events
	m.events = nil
	m.flushed = true
	m.mu.Unlock()

	if !m.sampled || len(events) == 0 {
		return
	}

	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}

	log.LogInfoWithFields("metrics", "Flushing metrics batch", map[string]any{
		"flowId":     m.flowID,
		"language":   m.Language,
		"campaign":   m.Campaign,
		"entrypoint": m.Entrypoint,
		"service":    m.Service,
		"context":    m.Context,
		"broker":     m.BrokerType,
		"events":     types,
	})
}

// Events returns a copy of the events recorded since the last flush.
func (m *Metrics) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Flushed reports whether Flush ran at least once; the refresh detector and
// tests use it.
func (m *Metrics) Flushed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushed
}
