// Package marketing is the REST client for the marketing-email server. It
// looks up the newsletters an address is subscribed to and opts addresses in
// or out.
package marketing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fxawebapp/fxa-front/internal/urlutil"
)

// Preferences is the subscription state for one email address.
type Preferences struct {
	Email       string   `json:"email"`
	Newsletters []string `json:"newsletters"`
	PrefCenter  string   `json:"preferencesUrl"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Lookup fetches the subscription state for email. An address the server has
// never seen comes back with no newsletters, not an error.
func (c *Client) Lookup(ctx context.Context, email string) (*Preferences, error) {
	endpoint := urlutil.MustJoinPath(c.baseURL, "/lookup-user")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?email="+url.QueryEscape(email), nil)
	if err != nil {
		return nil, fmt.Errorf("building lookup request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("marketing lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &Preferences{Email: email}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("marketing server returned status %d", resp.StatusCode)
	}

	var prefs Preferences
	if err := json.NewDecoder(resp.Body).Decode(&prefs); err != nil {
		return nil, fmt.Errorf("decoding lookup response: %w", err)
	}
	return &prefs, nil
}

// OptIn subscribes email to a newsletter.
func (c *Client) OptIn(ctx context.Context, email, newsletter string) error {
	return c.post(ctx, "/subscribe", map[string]string{
		"email":       email,
		"newsletters": newsletter,
	})
}

// OptOut unsubscribes email from a newsletter.
func (c *Client) OptOut(ctx context.Context, email, newsletter string) error {
	return c.post(ctx, "/unsubscribe", map[string]string{
		"email":       email,
		"newsletters": newsletter,
	})
}

func (c *Client) post(ctx context.Context, path string, payload map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", path, err)
	}

	endpoint := urlutil.MustJoinPath(c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("marketing server returned status %d", resp.StatusCode)
	}
	return nil
}
