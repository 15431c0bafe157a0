// Package broker implements the authentication brokers: one per embedding
// context, selected exactly once at bootstrap and never swapped during the
// session. A broker reacts to account lifecycle events by talking to its
// channel, and tells callers whether it has taken over navigation.
package broker

import (
	"context"

	"github.com/fxawebapp/fxa-front/internal/assertion"
	"github.com/fxawebapp/fxa-front/internal/channel"
	"github.com/fxawebapp/fxa-front/internal/fxa"
	"github.com/fxawebapp/fxa-front/internal/metrics"
	"github.com/fxawebapp/fxa-front/internal/oauthclient"
	"github.com/fxawebapp/fxa-front/internal/relier"
	"github.com/fxawebapp/fxa-front/internal/storage"
	"github.com/fxawebapp/fxa-front/internal/user"
)

// Type tags a broker variant. Selection returns a tag; construction is a
// separate factory keyed by it.
type Type string

const (
	TypeFirstRun    Type = "first-run"
	TypeFxFennecV1  Type = "fx-fennec-v1"
	TypeFxDesktopV2 Type = "fx-desktop-v2"
	TypeFxDesktopV1 Type = "fx-desktop-v1"
	TypeFxiOSV1     Type = "fx-ios-v1"
	TypeFxiOSV2     Type = "fx-ios-v2"
	TypeWebChannel  Type = "web-channel"
	TypeIframe      Type = "iframe"
	TypeRedirect    Type = "redirect"
	TypeBase        Type = "web"
)

// Behavior is a lifecycle hook's verdict. Halt means the broker has already
// navigated or notified externally and the caller must suppress its default
// post-action navigation.
type Behavior struct {
	Halt bool
}

// Broker is the lifecycle-hook surface every variant implements. Hooks
// return an error only for unexpected failures; expected flow-control
// outcomes travel in the Behavior.
type Broker interface {
	Type() Type

	AfterLoaded(ctx context.Context) error
	BeforeSignIn(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error)
	AfterSignIn(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error)
	BeforeSignUpConfirmationPoll(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error)
	AfterSignUpConfirmationPoll(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error)
	AfterResetPasswordConfirmationPoll(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error)
	AfterChangePassword(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error)
	AfterDeleteAccount(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error)
	CanCancel() bool
}

// Deps is everything a broker variant might need. The factory hands each
// variant the subset it uses.
type Deps struct {
	User    *user.User
	Relier  *relier.Relier
	Sync    *relier.SyncRelier
	OAuth   *relier.OAuthRelier
	Client  *fxa.Client
	Signer  *assertion.Signer
	Metrics *metrics.Metrics

	// Channel is the pipe to the embedding context: the WebChannel for
	// browser chrome, the iframe channel for a framing parent, or a
	// NullChannel.
	Channel channel.Channel

	// IframeChannel is the pipe to the framing parent. The first-run broker
	// talks to both the chrome WebChannel and the parent frame.
	IframeChannel channel.Channel

	// OAuthClient completes OAuth flows for the redirect and web-channel
	// brokers. Audience is what assertions minted for it are scoped to.
	OAuthClient *oauthclient.Client
	Audience    string

	// Navigate performs a full-page navigation in the embedding world.
	Navigate func(url string) error
}
