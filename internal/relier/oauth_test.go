package relier

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxawebapp/fxa-front/internal/oauthclient"
)

type fakeResolver struct {
	clients map[string]*oauthclient.ClientInfo
}

func (f *fakeResolver) ClientInfo(_ context.Context, clientID string) (*oauthclient.ClientInfo, error) {
	if info, ok := f.clients[clientID]; ok {
		return info, nil
	}
	return nil, oauthclient.NewUnknownClient(clientID)
}

func newResolver() *fakeResolver {
	return &fakeResolver{clients: map[string]*oauthclient.ClientInfo{
		"abc123": {
			ID:          "abc123",
			Name:        "Example RP",
			RedirectURI: "https://rp.example.com/oauth/done",
			Trusted:     true,
		},
	}}
}

func TestOAuthRelierFetchResolvesClient(t *testing.T) {
	r := NewOAuth(url.Values{
		"client_id": {"abc123"},
		"scope":     {"profile"},
		"state":     {"opaque"},
	}, newResolver(), "")

	require.NoError(t, r.Fetch(context.Background()))
	assert.Equal(t, "abc123", r.ClientID)
	assert.Equal(t, "Example RP", r.Name)
	assert.True(t, r.Trusted)
	assert.Equal(t, "https://rp.example.com", r.Origin)
}

func TestOAuthRelierMissingClientID(t *testing.T) {
	r := NewOAuth(url.Values{"scope": {"profile"}}, newResolver(), "")
	err := r.Fetch(context.Background())

	errno, param, ok := oauthclient.IsBadRequest(err)
	require.True(t, ok)
	assert.Equal(t, oauthclient.ErrnoMissingParameter, errno)
	assert.Equal(t, "client_id", param)
}

func TestOAuthRelierMissingScope(t *testing.T) {
	r := NewOAuth(url.Values{"client_id": {"abc123"}}, newResolver(), "")
	err := r.Fetch(context.Background())

	errno, param, ok := oauthclient.IsBadRequest(err)
	require.True(t, ok)
	assert.Equal(t, oauthclient.ErrnoMissingParameter, errno)
	assert.Equal(t, "scope", param)
}

func TestOAuthRelierUnknownClient(t *testing.T) {
	r := NewOAuth(url.Values{
		"client_id": {"nope"},
		"scope":     {"profile"},
	}, newResolver(), "")
	err := r.Fetch(context.Background())

	errno, _, ok := oauthclient.IsBadRequest(err)
	require.True(t, ok)
	assert.Equal(t, oauthclient.ErrnoUnknownClient, errno)
}

func TestOAuthRelierSameBrowserVerificationRecoversClientID(t *testing.T) {
	// Verification link opened in the starting browser: the service param
	// carries the saved client id and no scope is required.
	r := NewOAuth(url.Values{
		"code":    {"verifycode"},
		"uid":     {validUID},
		"service": {"abc123"},
	}, newResolver(), "abc123")

	require.NoError(t, r.Fetch(context.Background()))
	assert.Equal(t, "abc123", r.ClientID)
}

func TestOAuthRelierRedirectURIMismatch(t *testing.T) {
	r := NewOAuth(url.Values{
		"client_id":    {"abc123"},
		"scope":        {"profile"},
		"redirect_uri": {"https://evil.example.com/steal"},
	}, newResolver(), "")
	err := r.Fetch(context.Background())
	require.Error(t, err)

	var oe *oauthclient.Error
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, oauthclient.ErrnoIncorrectRedirect, oe.Errno)
}
