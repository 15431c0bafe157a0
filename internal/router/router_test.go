package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxawebapp/fxa-front/internal/channel"
	"github.com/fxawebapp/fxa-front/internal/metrics"
	"github.com/fxawebapp/fxa-front/internal/storage"
	"github.com/fxawebapp/fxa-front/internal/user"
)

func newUserWithAccount(t *testing.T, signedIn bool) *user.User {
	t.Helper()
	u := user.New(storage.NewMemoryStore(), nil, nil, nil, nil, "abc123", "aud")
	if signedIn {
		require.NoError(t, u.SetSignedInAccount(context.Background(), &storage.AccountSnapshot{
			UID:          "0123456789abcdef0123456789abcdef",
			Email:        "user@example.com",
			SessionToken: "st",
		}))
	}
	return u
}

func TestModeForbidsPushStateWhenFramed(t *testing.T) {
	framed := New(nil, nil, nil, true, true, nil)
	assert.Equal(t, HashChange, framed.Mode())

	plain := New(nil, nil, nil, false, true, nil)
	assert.Equal(t, PushState, plain.Mode())
}

func TestInitialRouteIndexFansOutBySignedInState(t *testing.T) {
	ctx := context.Background()

	r := New(newUserWithAccount(t, false), nil, nil, false, true, nil)
	route, err := r.InitialRoute(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, "sign_up", route.View)

	r = New(newUserWithAccount(t, true), nil, nil, false, true, nil)
	route, err = r.InitialRoute(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, "settings", route.View)
}

func TestInitialRouteProtectedViewBouncesToSignin(t *testing.T) {
	r := New(newUserWithAccount(t, false), nil, nil, false, true, nil)
	route, err := r.InitialRoute(context.Background(), "/settings")
	require.NoError(t, err)
	assert.Equal(t, "sign_in", route.View)
}

func TestInitialRouteUnknownPath(t *testing.T) {
	r := New(newUserWithAccount(t, false), nil, nil, false, true, nil)
	_, err := r.InitialRoute(context.Background(), "/no_such_view")
	require.ErrorIs(t, err, ErrUnknownRoute)
}

func TestForcedStartPageWhenStorageUnusable(t *testing.T) {
	r := New(newUserWithAccount(t, false), nil, nil, false, false, nil)

	route, err := r.InitialRoute(context.Background(), "/signin")
	require.NoError(t, err)
	assert.Equal(t, "cookies_disabled", route.View)

	// Already on the forced page: no redirect loop.
	route, err = r.InitialRoute(context.Background(), CookiesDisabledPath)
	require.NoError(t, err)
	assert.Equal(t, "cookies_disabled", route.View)
}

type failingHistory struct{ called bool }

func (h *failingHistory) ReplaceEntry(string) error {
	h.called = true
	return errors.New("history not available")
}

func TestStartSwallowsHistoryErrors(t *testing.T) {
	h := &failingHistory{}
	r := New(nil, nil, nil, false, true, h)
	r.Start("/signin")
	assert.True(t, h.called)

	// Framed sessions never touch history.
	h2 := &failingHistory{}
	framed := New(nil, nil, nil, true, true, h2)
	framed.Start("/signin")
	assert.False(t, h2.called)
}

func TestRefreshObserver(t *testing.T) {
	m := metrics.New(1.0, "en")
	o := NewRefreshObserver(m)

	o.OnView("sign_in")
	o.OnView("sign_up")
	assert.Empty(t, m.Events())

	o.OnView("sign_up")
	events := m.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "sign_up.refresh", events[0].Type)
}

func TestFormPrefill(t *testing.T) {
	f := NewFormPrefill()
	f.Set("email", "user@example.com")
	assert.Equal(t, "user@example.com", f.Get("email"))

	f.Clear()
	assert.Empty(t, f.Get("email"))
}

func TestHeightObserver(t *testing.T) {
	near, far := channel.Pipe()
	ch := channel.NewChannel(near, time.Second)
	t.Cleanup(func() { ch.Close() })

	o := NewHeightObserver(ch, true)
	require.NoError(t, o.Observe(context.Background(), 480))

	env := <-far.Receive()
	assert.Equal(t, "resize", env.Command)
	assert.EqualValues(t, 480, env.Data["height"])

	// Same height again is not relayed.
	require.NoError(t, o.Observe(context.Background(), 480))

	// Not embedded: nothing is sent at all.
	idle := NewHeightObserver(ch, false)
	require.NoError(t, idle.Observe(context.Background(), 600))
	select {
	case env := <-far.Receive():
		t.Fatalf("unexpected message %q", env.Command)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLookupTrailingSlash(t *testing.T) {
	route, ok := Lookup("/signin/")
	require.True(t, ok)
	assert.Equal(t, "sign_in", route.View)
}
