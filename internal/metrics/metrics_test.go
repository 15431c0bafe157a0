package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampling(t *testing.T) {
	assert.True(t, New(1.0, "en").Sampled())
	assert.False(t, New(0, "en").Sampled())
}

func TestEventsAndFlush(t *testing.T) {
	m := New(1.0, "en")
	m.LogEvent("signin.submit")
	m.LogError(errors.New("boom"))

	events := m.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "signin.submit", events[0].Type)
	assert.Equal(t, "error: boom", events[1].Type)

	assert.False(t, m.Flushed())
	m.Flush(context.Background())
	assert.True(t, m.Flushed())

	// Flush drains; only new events survive for the next batch.
	assert.Empty(t, m.Events())
	m.LogEvent("signin.success")
	assert.Len(t, m.Events(), 1)
}

func TestTimers(t *testing.T) {
	m := New(1.0, "en")
	m.StartTimer("startup")
	m.StopTimer("startup")

	events := m.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "timer: startup", events[0].Type)

	// Stopping a timer that never started records nothing.
	m.StopTimer("unknown")
	assert.Len(t, m.Events(), 1)
}
