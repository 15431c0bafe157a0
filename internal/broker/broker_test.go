package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxawebapp/fxa-front/internal/assertion"
	"github.com/fxawebapp/fxa-front/internal/autherrors"
	"github.com/fxawebapp/fxa-front/internal/channel"
	"github.com/fxawebapp/fxa-front/internal/oauthclient"
	"github.com/fxawebapp/fxa-front/internal/relier"
	"github.com/fxawebapp/fxa-front/internal/storage"
)

var testAccount = &storage.AccountSnapshot{
	UID:           "0123456789abcdef0123456789abcdef",
	Email:         "user@example.com",
	SessionToken:  "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
	KeyFetchToken: "kft",
	UnwrapBKey:    "ubk",
	Verified:      true,
}

// chromeFake plays the browser-chrome side of a channel: it answers
// can_link_account requests and records everything else.
type chromeFake struct {
	transport channel.Transport
	allowLink bool

	commands chan channel.Envelope
}

func newChromeFake(t *testing.T, allowLink bool) (*chromeFake, channel.Channel) {
	t.Helper()
	near, far := channel.Pipe()
	fake := &chromeFake{
		transport: far,
		allowLink: allowLink,
		commands:  make(chan channel.Envelope, 16),
	}
	go fake.run()

	ch := channel.NewChannel(near, time.Second)
	t.Cleanup(func() { ch.Close() })
	return fake, ch
}

func (f *chromeFake) run() {
	for env := range f.transport.Receive() {
		if env.Command == CommandCanLinkAccount {
			f.transport.Send(channel.Envelope{
				Command:   env.Command,
				MessageID: env.MessageID,
				Data:      map[string]any{"ok": f.allowLink},
			})
			continue
		}
		f.commands <- env
	}
}

func (f *chromeFake) next(t *testing.T) channel.Envelope {
	t.Helper()
	select {
	case env := <-f.commands:
		return env
	case <-time.After(time.Second):
		t.Fatal("no command arrived on the channel")
		return channel.Envelope{}
	}
}

func TestSyncBrokerBeforeSignIn(t *testing.T) {
	_, ch := newChromeFake(t, true)
	b := NewFxDesktopV1(Deps{Channel: ch})

	behavior, err := b.BeforeSignIn(context.Background(), testAccount)
	require.NoError(t, err)
	assert.False(t, behavior.Halt)
}

func TestSyncBrokerBeforeSignInDenied(t *testing.T) {
	_, ch := newChromeFake(t, false)
	b := NewFxDesktopV1(Deps{Channel: ch})

	_, err := b.BeforeSignIn(context.Background(), testAccount)
	require.ErrorIs(t, err, autherrors.ErrUserCanceledLogin)
}

func TestSyncBrokerBeforeSignInChannelFailure(t *testing.T) {
	// A dead channel must read as denial, never as a crash or a propagated
	// transport error.
	near, far := channel.Pipe()
	far.Close()
	ch := channel.NewChannel(near, 50*time.Millisecond)
	t.Cleanup(func() { ch.Close() })

	b := NewFxDesktopV1(Deps{Channel: ch})
	_, err := b.BeforeSignIn(context.Background(), testAccount)
	require.ErrorIs(t, err, autherrors.ErrUserCanceledLogin)
}

func TestFxDesktopV1AfterSignInHalts(t *testing.T) {
	fake, ch := newChromeFake(t, true)
	b := NewFxDesktopV1(Deps{Channel: ch})

	behavior, err := b.AfterSignIn(context.Background(), testAccount)
	require.NoError(t, err)
	assert.True(t, behavior.Halt)

	env := fake.next(t)
	assert.Equal(t, CommandLogin, env.Command)
	assert.Equal(t, "user@example.com", env.Data["email"])
	assert.Equal(t, "kft", env.Data["keyFetchToken"])
}

func TestFxDesktopV2AfterSignInDoesNotHalt(t *testing.T) {
	fake, ch := newChromeFake(t, true)
	b := NewFxDesktopV2(Deps{Channel: ch})

	behavior, err := b.AfterSignIn(context.Background(), testAccount)
	require.NoError(t, err)
	assert.False(t, behavior.Halt)
	assert.Equal(t, CommandLogin, fake.next(t).Command)
}

func TestFxiOSV1LoginOmitsKeys(t *testing.T) {
	fake, ch := newChromeFake(t, true)
	b := NewFxiOSV1(Deps{Channel: ch})

	_, err := b.AfterSignIn(context.Background(), testAccount)
	require.NoError(t, err)

	env := fake.next(t)
	assert.NotContains(t, env.Data, "keyFetchToken")
	assert.NotContains(t, env.Data, "unwrapBKey")
	assert.Equal(t, testAccount.SessionToken, env.Data["sessionToken"])
}

func TestSyncBrokerLoginRequiresSessionToken(t *testing.T) {
	_, ch := newChromeFake(t, true)
	b := NewFxDesktopV2(Deps{Channel: ch})

	_, err := b.AfterSignIn(context.Background(), &storage.AccountSnapshot{
		UID:   testAccount.UID,
		Email: testAccount.Email,
	})
	require.Error(t, err)
}

func TestSyncBrokerBeforeSignUpConfirmationPollSendsLogin(t *testing.T) {
	fake, ch := newChromeFake(t, true)
	b := NewFxDesktopV2(Deps{Channel: ch})

	behavior, err := b.BeforeSignUpConfirmationPoll(context.Background(), testAccount)
	require.NoError(t, err)
	assert.False(t, behavior.Halt)
	assert.Equal(t, CommandLogin, fake.next(t).Command)
}

func TestSyncBrokerAfterChangePassword(t *testing.T) {
	fake, ch := newChromeFake(t, true)
	b := NewFxDesktopV1(Deps{Channel: ch})

	_, err := b.AfterChangePassword(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, CommandChangePassword, fake.next(t).Command)
}

func TestSyncBrokerAfterDeleteAccount(t *testing.T) {
	fake, ch := newChromeFake(t, true)
	b := NewFxDesktopV1(Deps{Channel: ch})

	_, err := b.AfterDeleteAccount(context.Background(), testAccount)
	require.NoError(t, err)

	env := fake.next(t)
	assert.Equal(t, CommandDeleteAccount, env.Command)
	assert.Equal(t, testAccount.UID, env.Data["uid"])
}

func TestSyncBrokerCustomizeSync(t *testing.T) {
	fake, ch := newChromeFake(t, true)
	sync := &relier.SyncRelier{CustomizeSync: true}
	b := NewFxDesktopV2(Deps{Channel: ch, Sync: sync})

	_, err := b.AfterSignIn(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, true, fake.next(t).Data["customizeSync"])
}

func oauthDeps(t *testing.T, ch channel.Channel, navigate func(string) error) Deps {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/authorization", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "code", body["response_type"])
		json.NewEncoder(w).Encode(map[string]string{
			"redirect": "https://rp.example.com/done?code=c0de&state=" + body["state"],
		})
	}))
	t.Cleanup(srv.Close)

	oauth := &relier.OAuthRelier{
		ClientID: "abc123",
		Scope:    "profile",
		State:    "xyz",
	}
	return Deps{
		Channel:     ch,
		OAuth:       oauth,
		OAuthClient: oauthclient.New(srv.URL),
		Signer:      assertion.New(time.Hour),
		Audience:    srv.URL,
		Navigate:    navigate,
	}
}

func TestWebChannelBrokerCompletesOAuthOverChannel(t *testing.T) {
	fake, ch := newChromeFake(t, true)
	b := NewWebChannel(oauthDeps(t, ch, nil))

	require.NoError(t, b.AfterLoaded(context.Background()))
	assert.Equal(t, CommandLoaded, fake.next(t).Command)

	behavior, err := b.AfterSignIn(context.Background(), testAccount)
	require.NoError(t, err)
	assert.True(t, behavior.Halt)

	env := fake.next(t)
	assert.Equal(t, CommandOAuthComplete, env.Command)
	assert.Equal(t, "xyz", env.Data["state"])
	assert.Contains(t, env.Data["redirect"], "code=c0de")
}

func TestRedirectBrokerNavigatesToRelier(t *testing.T) {
	var navigated string
	deps := oauthDeps(t, channel.NewNullChannel(), func(url string) error {
		navigated = url
		return nil
	})
	b := NewRedirect(deps)

	behavior, err := b.AfterSignIn(context.Background(), testAccount)
	require.NoError(t, err)
	assert.True(t, behavior.Halt)
	assert.Contains(t, navigated, "https://rp.example.com/done?code=c0de")
}

func TestRedirectBrokerWithoutOAuthRelier(t *testing.T) {
	b := NewRedirect(Deps{})
	behavior, err := b.AfterSignIn(context.Background(), testAccount)
	require.NoError(t, err)
	assert.False(t, behavior.Halt)
}

func TestIframeBrokerNotifiesParent(t *testing.T) {
	fake, ch := newChromeFake(t, true)
	b := NewIframe(Deps{Channel: ch})

	assert.True(t, b.CanCancel())
	require.NoError(t, b.AfterLoaded(context.Background()))
	assert.Equal(t, "loaded", fake.next(t).Command)

	_, err := b.AfterSignIn(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, CommandLogin, fake.next(t).Command)
}

func TestFirstRunBrokerNotifiesBothContexts(t *testing.T) {
	chrome, webCh := newChromeFake(t, true)
	parent, iframeCh := newChromeFake(t, true)

	b := NewFirstRun(Deps{Channel: webCh, IframeChannel: iframeCh})

	require.NoError(t, b.AfterLoaded(context.Background()))
	assert.Equal(t, CommandLoaded, parent.next(t).Command)

	behavior, err := b.AfterSignIn(context.Background(), testAccount)
	require.NoError(t, err)
	assert.False(t, behavior.Halt)

	assert.Equal(t, CommandLogin, chrome.next(t).Command)
	assert.Equal(t, CommandLogin, parent.next(t).Command)
}

func TestBaseBrokerDefaults(t *testing.T) {
	b := NewBase(Deps{})
	assert.Equal(t, TypeBase, b.Type())
	assert.False(t, b.CanCancel())

	behavior, err := b.AfterSignIn(context.Background(), testAccount)
	require.NoError(t, err)
	assert.False(t, behavior.Halt)
}
