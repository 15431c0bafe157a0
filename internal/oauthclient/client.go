// Package oauthclient is the REST client for the OAuth collaborator: client
// metadata lookup, authorization URLs, and code exchange.
package oauthclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/fxawebapp/fxa-front/internal/log"
	"github.com/fxawebapp/fxa-front/internal/urlutil"
)

// ClientInfo is the OAuth server's public metadata for one relying party.
type ClientInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RedirectURI string `json:"redirect_uri"`
	ImageURI    string `json:"image_uri,omitempty"`
	Trusted     bool   `json:"trusted"`
}

// Client talks to the OAuth server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates an OAuth client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ClientInfo fetches metadata for clientID. An empty clientID is a
// missing_parameter error; a 400/404 from the server is unknown_client.
func (c *Client) ClientInfo(ctx context.Context, clientID string) (*ClientInfo, error) {
	if clientID == "" {
		return nil, NewMissingParameter("client_id")
	}

	endpoint := urlutil.MustJoinPath(c.baseURL, "/v1/client/", clientID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building client info request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching client info: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		log.LogWarnWithFields("oauth", "Unknown OAuth client", map[string]any{
			"clientId": clientID,
			"status":   resp.StatusCode,
		})
		return nil, NewUnknownClient(clientID)
	default:
		return nil, fmt.Errorf("client info request failed with status %d", resp.StatusCode)
	}

	var info ClientInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding client info: %w", err)
	}
	if info.ID == "" {
		info.ID = clientID
	}
	return &info, nil
}

// Endpoint returns the oauth2 endpoint pair for the server.
func (c *Client) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:  urlutil.MustJoinPath(c.baseURL, "/v1/authorization"),
		TokenURL: urlutil.MustJoinPath(c.baseURL, "/v1/token"),
	}
}

// AuthorizationURL builds the URL the redirect broker sends the browser to
// once the user is authenticated.
func (c *Client) AuthorizationURL(clientID, redirectURI, scope, state string) string {
	conf := &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Scopes:      []string{scope},
		Endpoint:    c.Endpoint(),
	}
	return conf.AuthCodeURL(state)
}

// TokenFromAssertion trades an identity assertion for an access token using
// the server's direct-grant form of /v1/authorization. The profile fetch
// path uses this to mint short-lived profile-scoped tokens.
func (c *Client) TokenFromAssertion(ctx context.Context, clientID, assertion, scope string) (string, error) {
	if assertion == "" {
		return "", NewMissingParameter("assertion")
	}

	body, err := json.Marshal(map[string]string{
		"client_id":     clientID,
		"assertion":     assertion,
		"scope":         scope,
		"response_type": "token",
	})
	if err != nil {
		return "", fmt.Errorf("encoding assertion grant: %w", err)
	}

	endpoint := urlutil.MustJoinPath(c.baseURL, "/v1/authorization")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building assertion grant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("assertion grant request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			return "", NewError(ErrnoInvalidAssertion, "invalid assertion")
		}
		return "", fmt.Errorf("assertion grant failed with status %d", resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding assertion grant response: %w", err)
	}
	return out.AccessToken, nil
}

// AuthorizeFromAssertion completes an OAuth flow server-side: it trades an
// identity assertion for an authorization code and returns the relier's
// redirect URL with code and state attached.
func (c *Client) AuthorizeFromAssertion(ctx context.Context, clientID, assertion, scope, state string) (string, error) {
	if assertion == "" {
		return "", NewMissingParameter("assertion")
	}

	body, err := json.Marshal(map[string]string{
		"client_id":     clientID,
		"assertion":     assertion,
		"scope":         scope,
		"state":         state,
		"response_type": "code",
	})
	if err != nil {
		return "", fmt.Errorf("encoding authorization request: %w", err)
	}

	endpoint := urlutil.MustJoinPath(c.baseURL, "/v1/authorization")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building authorization request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("authorization request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			return "", NewError(ErrnoInvalidAssertion, "invalid assertion")
		}
		return "", fmt.Errorf("authorization failed with status %d", resp.StatusCode)
	}

	var out struct {
		Redirect string `json:"redirect"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding authorization response: %w", err)
	}
	return out.Redirect, nil
}

// ExchangeCode swaps an authorization code for a token.
func (c *Client) ExchangeCode(ctx context.Context, clientID, clientSecret, redirectURI, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, NewMissingParameter("code")
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Endpoint:     c.Endpoint(),
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return token, nil
}
