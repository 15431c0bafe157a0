package channel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoResponder answers every request on the far end of a pipe by invoking
// respond with the received envelope.
func echoResponder(t *testing.T, far Transport, respond func(Envelope) *Envelope) {
	t.Helper()
	go func() {
		for env := range far.Receive() {
			if reply := respond(env); reply != nil {
				_ = far.Send(*reply)
			}
		}
	}()
}

func TestRequestResolvesOnMatchingResponse(t *testing.T) {
	near, far := Pipe()
	ch := NewChannel(near, time.Second)
	defer ch.Close()

	echoResponder(t, far, func(env Envelope) *Envelope {
		return &Envelope{
			Command:   env.Command,
			MessageID: env.MessageID,
			Data:      map[string]any{"ok": true},
		}
	})

	response, err := ch.Request(context.Background(), "can_link_account", map[string]any{"email": "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, true, response["ok"])
}

func TestRequestTimesOutWithoutResponse(t *testing.T) {
	near, far := Pipe()
	defer far.Close()
	ch := NewChannel(near, 30*time.Millisecond)
	defer ch.Close()

	_, err := ch.Request(context.Background(), "can_link_account", nil)
	assert.ErrorIs(t, err, ErrRequestTimeout)
}

func TestDuplicateAndUnknownResponsesAreDropped(t *testing.T) {
	near, far := Pipe()
	ch := NewChannel(near, time.Second)
	defer ch.Close()

	var mu sync.Mutex
	var captured string
	echoResponder(t, far, func(env Envelope) *Envelope {
		mu.Lock()
		captured = env.MessageID
		mu.Unlock()
		return &Envelope{Command: env.Command, MessageID: env.MessageID, Data: map[string]any{"n": 1}}
	})

	response, err := ch.Request(context.Background(), "login", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(1), toFloat(response["n"]))

	// A second response with the same, now-unknown id must be a no-op.
	mu.Lock()
	id := captured
	mu.Unlock()
	require.NoError(t, far.Send(Envelope{Command: "login", MessageID: id, Data: map[string]any{"n": 2}}))
	require.NoError(t, far.Send(Envelope{Command: "login", MessageID: "never-issued", Data: map[string]any{"n": 3}}))

	// Unrelated traffic still flows afterwards, proving the channel did not
	// wedge on the stale responses.
	received := make(chan Envelope, 1)
	ch.OnCommand("ping", func(env Envelope) { received <- env })
	require.NoError(t, far.Send(Envelope{Command: "ping"}))
	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("channel stopped dispatching after stale responses")
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return -1
	}
}

func TestLateResponseAfterTimeoutIsIgnored(t *testing.T) {
	near, far := Pipe()
	ch := NewChannel(near, 20*time.Millisecond)
	defer ch.Close()

	var mu sync.Mutex
	var id string
	go func() {
		for env := range far.Receive() {
			mu.Lock()
			id = env.MessageID
			mu.Unlock()
		}
	}()

	_, err := ch.Request(context.Background(), "slow", nil)
	require.ErrorIs(t, err, ErrRequestTimeout)

	// The timeout must have cleared the pending entry: a late response is
	// dropped rather than delivered anywhere.
	mu.Lock()
	late := id
	mu.Unlock()
	require.NotEmpty(t, late)
	require.NoError(t, far.Send(Envelope{Command: "slow", MessageID: late}))
	time.Sleep(20 * time.Millisecond)
}

func TestRequestHonorsContextCancellation(t *testing.T) {
	near, far := Pipe()
	defer far.Close()
	ch := NewChannel(near, time.Minute)
	defer ch.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := ch.Request(ctx, "never", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNullChannelRequestResolvesEmpty(t *testing.T) {
	ch := NewNullChannel()
	response, err := ch.Request(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Empty(t, response)
}

func TestInterTabBroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewInterTabChannel()

	var got []string
	hub.OnCommand("login", func(env Envelope) {
		got = append(got, env.Data["uid"].(string))
	})
	hub.OnCommand("login", func(env Envelope) {
		got = append(got, env.Data["uid"].(string))
	})

	require.NoError(t, hub.Send(context.Background(), "login", map[string]any{"uid": "u1"}))
	assert.Equal(t, []string{"u1", "u1"}, got)
}

func TestAllowedParentOrigins(t *testing.T) {
	tests := []struct {
		name   string
		policy OriginPolicy
		want   []string
	}{
		{
			name:   "not framed",
			policy: OriginPolicy{Framed: false, ForSync: true, SyncAllowList: []string{"https://x"}},
			want:   nil,
		},
		{
			name:   "framed for sync uses server allow-list",
			policy: OriginPolicy{Framed: true, ForSync: true, SyncAllowList: []string{"https://a", "https://b"}},
			want:   []string{"https://a", "https://b"},
		},
		{
			name:   "framed for oauth uses relier origin",
			policy: OriginPolicy{Framed: true, ForOAuth: true, RelierOrigin: "https://rp.example.com"},
			want:   []string{"https://rp.example.com"},
		},
		{
			name:   "framed with nothing declared",
			policy: OriginPolicy{Framed: true},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AllowedParentOrigins(tt.policy))
		})
	}
}

func TestIframeChannelRejectsUnlistedParent(t *testing.T) {
	near, _ := Pipe()
	_, err := NewIframeChannel(near, "https://evil.example.com", []string{"https://good.example.com"}, time.Second)
	require.Error(t, err)

	var illegal *IllegalIframeParentError
	require.True(t, errors.As(err, &illegal))
	assert.Equal(t, "https://evil.example.com", illegal.Origin)
}

func TestIframeChannelAcceptsListedParent(t *testing.T) {
	near, far := Pipe()
	defer far.Close()
	ch, err := NewIframeChannel(near, "https://good.example.com", []string{"https://good.example.com"}, time.Second)
	require.NoError(t, err)
	require.NoError(t, ch.Close())
}
