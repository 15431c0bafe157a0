package user

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
	"github.com/fxawebapp/fxa-front/internal/channel"
	"github.com/fxawebapp/fxa-front/internal/oauthclient"
	"github.com/fxawebapp/fxa-front/internal/profile"
	"github.com/fxawebapp/fxa-front/internal/session"
	"github.com/fxawebapp/fxa-front/internal/storage"
)

const (
	testUID          = "0123456789abcdef0123456789abcdef"
	testSessionToken = "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
)

func newTestUser(t *testing.T, interTab *channel.InterTabChannel) *User {
	t.Helper()
	if interTab == nil {
		interTab = channel.NewInterTabChannel()
	}
	notifier := channel.NewNotifier(channel.NewNullChannel(), interTab, channel.NewNullChannel())
	return New(storage.NewMemoryStore(), nil, nil, nil, notifier, "abc123", "https://oauth.example.com")
}

func TestSignedInAccountLifecycle(t *testing.T) {
	ctx := context.Background()
	interTab := channel.NewInterTabChannel()
	var notifications []string
	for _, cmd := range []string{channel.SignedInNotification, channel.SignedOutNotification} {
		cmd := cmd
		interTab.OnCommand(cmd, func(channel.Envelope) {
			notifications = append(notifications, cmd)
		})
	}

	u := newTestUser(t, interTab)

	_, err := u.SignedInAccount(ctx)
	require.ErrorIs(t, err, ErrNotSignedIn)

	account := &storage.AccountSnapshot{
		UID:          testUID,
		Email:        "  User@Example.COM ",
		SessionToken: testSessionToken,
		Verified:     true,
	}
	require.NoError(t, u.SetSignedInAccount(ctx, account))

	got, err := u.SignedInAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", got.Email)
	assert.False(t, got.LastLogin.IsZero())

	require.NoError(t, u.ClearSignedInAccount(ctx))
	_, err = u.SignedInAccount(ctx)
	require.ErrorIs(t, err, ErrNotSignedIn)

	// The snapshot survives sign-out but the tokens do not.
	cached, err := u.Account(ctx, testUID)
	require.NoError(t, err)
	assert.Empty(t, cached.SessionToken)
	assert.Equal(t, "user@example.com", cached.Email)

	assert.Equal(t, []string{channel.SignedInNotification, channel.SignedOutNotification}, notifications)
}

func TestClearSignedInAccountWhenNotSignedIn(t *testing.T) {
	u := newTestUser(t, nil)
	require.NoError(t, u.ClearSignedInAccount(context.Background()))
}

func TestRemoveSignedInAccountBroadcastsDelete(t *testing.T) {
	ctx := context.Background()
	interTab := channel.NewInterTabChannel()
	deleted := false
	interTab.OnCommand(channel.DeleteNotification, func(channel.Envelope) {
		deleted = true
	})

	u := newTestUser(t, interTab)
	require.NoError(t, u.SetSignedInAccount(ctx, &storage.AccountSnapshot{
		UID:          testUID,
		Email:        "user@example.com",
		SessionToken: testSessionToken,
	}))

	require.NoError(t, u.RemoveAccount(ctx, testUID))
	assert.True(t, deleted)

	_, err := u.Account(ctx, testUID)
	require.ErrorIs(t, err, storage.ErrAccountNotFound)
}

func TestUpgradeStorageFormat(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.SetFormatVersion(ctx, 1))
	require.NoError(t, store.SetAccount(ctx, &storage.AccountSnapshot{
		UID:   testUID,
		Email: "Mixed@Case.Example",
	}))

	u := New(store, nil, nil, nil, nil, "abc123", "aud")
	require.NoError(t, u.UpgradeStorageFormat(ctx))

	version, err := store.FormatVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.CurrentFormatVersion, version)

	account, err := store.GetAccount(ctx, testUID)
	require.NoError(t, err)
	assert.Equal(t, "mixed@case.example", account.Email)

	// Running again is a no-op.
	require.NoError(t, u.UpgradeStorageFormat(ctx))
}

func TestUpgradeFromSessionOnce(t *testing.T) {
	ctx := context.Background()
	sess := &session.Session{}
	sess.SetCredentials(testUID, "legacy@example.com", testSessionToken)

	u := newTestUser(t, nil)
	require.NoError(t, u.UpgradeFromSession(ctx, sess))

	account, err := u.SignedInAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "legacy@example.com", account.Email)
	assert.Equal(t, testSessionToken, account.SessionToken)

	// The second migration finds nothing to take.
	require.NoError(t, u.ClearSignedInAccount(ctx))
	require.NoError(t, u.UpgradeFromSession(ctx, sess))
	_, err = u.SignedInAccount(ctx)
	require.ErrorIs(t, err, ErrNotSignedIn)
}

func TestUpgradeFromSessionLosesToSignedInAccount(t *testing.T) {
	ctx := context.Background()
	sess := &session.Session{}
	sess.SetCredentials("ffffffffffffffffffffffffffffffff", "legacy@example.com", testSessionToken)

	u := newTestUser(t, nil)
	require.NoError(t, u.SetSignedInAccount(ctx, &storage.AccountSnapshot{
		UID:          testUID,
		Email:        "current@example.com",
		SessionToken: testSessionToken,
	}))

	require.NoError(t, u.UpgradeFromSession(ctx, sess))
	account, err := u.SignedInAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, testUID, account.UID)
}

func TestFetchProfile(t *testing.T) {
	ctx := context.Background()

	oauthSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/authorization", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "abc123", body["client_id"])
		assert.NotEmpty(t, body["assertion"])
		json.NewEncoder(w).Encode(map[string]string{"access_token": "profile-token"})
	}))
	defer oauthSrv.Close()

	profileSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/profile", r.URL.Path)
		require.Equal(t, "Bearer profile-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{
			"uid":         testUID,
			"displayName": "Pat",
			"avatar":      "https://profile.example.com/a/1",
		})
	}))
	defer profileSrv.Close()

	interTab := channel.NewInterTabChannel()
	changed := false
	interTab.OnCommand(channel.ProfileChangeNotification, func(channel.Envelope) {
		changed = true
	})
	notifier := channel.NewNotifier(channel.NewNullChannel(), interTab, channel.NewNullChannel())

	u := New(
		storage.NewMemoryStore(),
		profile.New(profileSrv.URL),
		oauthclient.New(oauthSrv.URL),
		assertion.New(time.Hour),
		notifier,
		"abc123",
		oauthSrv.URL,
	)

	account := &storage.AccountSnapshot{
		UID:          testUID,
		Email:        "user@example.com",
		SessionToken: testSessionToken,
	}
	require.NoError(t, u.SetSignedInAccount(ctx, account))

	got, err := u.FetchProfile(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, "Pat", got.DisplayName)
	assert.Equal(t, "https://profile.example.com/a/1", got.ProfileImageURL)
	assert.True(t, changed)

	// The fetched profile is persisted.
	persisted, err := u.Account(ctx, testUID)
	require.NoError(t, err)
	assert.Equal(t, "Pat", persisted.DisplayName)
}
