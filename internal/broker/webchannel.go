package broker

import (
	"context"
	"errors"

	"github.com/fxawebapp/fxa-front/internal/storage"
)

// Commands consumed by OAuth-capable browser chrome.
const (
	CommandLoaded        = "fxaccounts:loaded"
	CommandOAuthComplete = "oauth_complete"
)

// WebChannelBroker serves OAuth reliers whose results are delivered to
// browser chrome over a WebChannel instead of a redirect.
type WebChannelBroker struct {
	Base
}

var _ Broker = (*WebChannelBroker)(nil)

func NewWebChannel(deps Deps) Broker {
	return &WebChannelBroker{Base: Base{deps: deps}}
}

func (b *WebChannelBroker) Type() Type { return TypeWebChannel }

func (b *WebChannelBroker) AfterLoaded(ctx context.Context) error {
	return b.deps.Channel.Send(ctx, CommandLoaded, nil)
}

func (b *WebChannelBroker) AfterSignIn(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	return b.completeOAuth(ctx, account)
}

func (b *WebChannelBroker) AfterSignUpConfirmationPoll(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	return b.completeOAuth(ctx, account)
}

func (b *WebChannelBroker) AfterResetPasswordConfirmationPoll(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	return b.completeOAuth(ctx, account)
}

// completeOAuth mints an authorization code for the relier and hands the
// resulting redirect to chrome; chrome owns the window from there.
func (b *WebChannelBroker) completeOAuth(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	oauth := b.deps.OAuth
	if oauth == nil {
		return Behavior{}, errors.New("web-channel broker requires an OAuth relier")
	}

	signed, err := b.deps.Signer.Sign(account.UID, account.SessionToken, b.deps.Audience)
	if err != nil {
		return Behavior{}, err
	}
	redirect, err := b.deps.OAuthClient.AuthorizeFromAssertion(ctx, oauth.ClientID, signed, oauth.Scope, oauth.State)
	if err != nil {
		return Behavior{}, err
	}

	err = b.deps.Channel.Send(ctx, CommandOAuthComplete, map[string]any{
		"state":    oauth.State,
		"redirect": redirect,
	})
	if err != nil {
		return Behavior{}, err
	}
	return Behavior{Halt: true}, nil
}
