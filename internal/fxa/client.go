// Package fxa wraps the remote account auth server's RPC surface, adding
// session bookkeeping, credential derivation, capped resend counters, and
// inter-tab broadcast of login events.
package fxa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fxawebapp/fxa-front/internal/autherrors"
	"github.com/fxawebapp/fxa-front/internal/channel"
	"github.com/fxawebapp/fxa-front/internal/log"
	"github.com/fxawebapp/fxa-front/internal/urlutil"
)

// MaxResendTries caps the signup-confirmation and password-reset resend
// counters. Past the cap the call reports success without contacting the
// server, so resend spam never surfaces a hard failure.
const MaxResendTries = 4

// SignInResult is what a successful authentication returns.
type SignInResult struct {
	UID           string `json:"uid"`
	SessionToken  string `json:"sessionToken"`
	KeyFetchToken string `json:"keyFetchToken,omitempty"`
	Verified      bool   `json:"verified"`
	UnwrapBKey    string `json:"-"`
}

// Client is the auth-server RPC wrapper.
type Client struct {
	baseURL    string
	httpClient *http.Client
	interTab   channel.Channel

	mu              sync.Mutex
	signUpResends   int
	passwordResends int
}

// New creates a client for the auth server at baseURL. interTab receives a
// login broadcast after every successful sign-in; it may be nil.
func New(baseURL string, interTab channel.Channel) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		interTab: interTab,
	}
}

// remoteError is the auth server's error body.
type remoteError struct {
	Code    int    `json:"code"`
	Errno   int    `json:"errno"`
	Message string `json:"message"`
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
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

	if resp.StatusCode >= 400 {
		var remote remoteError
		if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
			return autherrors.NewUnexpected(fmt.Errorf("%s failed with status %d", path, resp.StatusCode))
		}
		return autherrors.New(autherrors.Errno(remote.Errno), remote.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// SignUp creates an account and starts the confirmation flow. The resume
// token rides along so the verification page can restore relier state.
func (c *Client) SignUp(ctx context.Context, email, password, resume string) (*SignInResult, error) {
	authPW, unwrapBKey, err := DeriveCredentials(email, password)
	if err != nil {
		return nil, err
	}

	var result SignInResult
	err = c.post(ctx, "/v1/account/create", map[string]any{
		"email":  email,
		"authPW": authPW,
		"resume": resume,
	}, &result)
	if err != nil {
		return nil, err
	}
	result.UnwrapBKey = unwrapBKey
	return &result, nil
}

// SignIn authenticates and broadcasts the login to other tabs.
func (c *Client) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	authPW, unwrapBKey, err := DeriveCredentials(email, password)
	if err != nil {
		return nil, err
	}

	var result SignInResult
	err = c.post(ctx, "/v1/account/login", map[string]any{
		"email":  email,
		"authPW": authPW,
	}, &result)
	if err != nil {
		return nil, err
	}
	result.UnwrapBKey = unwrapBKey

	if c.interTab != nil {
		if err := c.interTab.Send(ctx, channel.SignedInNotification, map[string]any{
			"uid":   result.UID,
			"email": email,
		}); err != nil {
			log.LogWarnWithFields("fxa", "Login broadcast failed", map[string]any{
				"error": err.Error(),
			})
		}
	}
	return &result, nil
}

// SignOut destroys the session.
func (c *Client) SignOut(ctx context.Context, sessionToken string) error {
	return c.post(ctx, "/v1/session/destroy", map[string]any{
		"sessionToken": sessionToken,
	}, nil)
}

// VerifyCode completes email verification for uid.
func (c *Client) VerifyCode(ctx context.Context, uid, code string) error {
	return c.post(ctx, "/v1/recovery_email/verify_code", map[string]any{
		"uid":  uid,
		"code": code,
	}, nil)
}

// RecoveryEmailStatus reports whether the session's email is verified;
// confirmation polls call this repeatedly.
func (c *Client) RecoveryEmailStatus(ctx context.Context, sessionToken string) (bool, error) {
	var out struct {
		Verified bool `json:"verified"`
	}
	err := c.post(ctx, "/v1/recovery_email/status", map[string]any{
		"sessionToken": sessionToken,
	}, &out)
	if err != nil {
		return false, err
	}
	return out.Verified, nil
}

// SignUpResend re-sends the confirmation email, subject to the resend cap.
func (c *Client) SignUpResend(ctx context.Context, sessionToken, resume string) error {
	c.mu.Lock()
	if c.signUpResends >= MaxResendTries {
		c.mu.Unlock()
		log.LogDebugWithFields("fxa", "Sign-up resend cap reached, reporting success", nil)
		return nil
	}
	c.signUpResends++
	c.mu.Unlock()

	return c.post(ctx, "/v1/recovery_email/resend_code", map[string]any{
		"sessionToken": sessionToken,
		"resume":       resume,
	}, nil)
}

// PasswordForgotSendCode starts a password reset.
func (c *Client) PasswordForgotSendCode(ctx context.Context, email, resume string) (string, error) {
	var out struct {
		PasswordForgotToken string `json:"passwordForgotToken"`
	}
	err := c.post(ctx, "/v1/password/forgot/send_code", map[string]any{
		"email":  email,
		"resume": resume,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.PasswordForgotToken, nil
}

// PasswordForgotResend re-sends the reset email, subject to the resend cap.
func (c *Client) PasswordForgotResend(ctx context.Context, email, token, resume string) error {
	c.mu.Lock()
	if c.passwordResends >= MaxResendTries {
		c.mu.Unlock()
		log.LogDebugWithFields("fxa", "Password-reset resend cap reached, reporting success", nil)
		return nil
	}
	c.passwordResends++
	c.mu.Unlock()

	return c.post(ctx, "/v1/password/forgot/resend_code", map[string]any{
		"email":               email,
		"passwordForgotToken": token,
		"resume":              resume,
	}, nil)
}

// PasswordChange changes the password, returning a fresh session.
func (c *Client) PasswordChange(ctx context.Context, email, oldPassword, newPassword string) (*SignInResult, error) {
	oldAuthPW, _, err := DeriveCredentials(email, oldPassword)
	if err != nil {
		return nil, err
	}
	newAuthPW, newUnwrap, err := DeriveCredentials(email, newPassword)
	if err != nil {
		return nil, err
	}

	var result SignInResult
	err = c.post(ctx, "/v1/password/change", map[string]any{
		"email":     email,
		"oldAuthPW": oldAuthPW,
		"newAuthPW": newAuthPW,
	}, &result)
	if err != nil {
		return nil, err
	}
	result.UnwrapBKey = newUnwrap
	return &result, nil
}

// DeleteAccount destroys the account entirely.
func (c *Client) DeleteAccount(ctx context.Context, email, password string) error {
	authPW, _, err := DeriveCredentials(email, password)
	if err != nil {
		return err
	}
	return c.post(ctx, "/v1/account/destroy", map[string]any{
		"email":  email,
		"authPW": authPW,
	}, nil)
}

// SessionStatus reports whether a session token is still valid.
func (c *Client) SessionStatus(ctx context.Context, sessionToken string) (bool, error) {
	err := c.post(ctx, "/v1/session/status", map[string]any{
		"sessionToken": sessionToken,
	}, nil)
	if errors.Is(err, autherrors.ErrInvalidToken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
