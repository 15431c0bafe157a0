package broker

import (
	"context"
	"errors"

	"github.com/fxawebapp/fxa-front/internal/storage"
)

// RedirectBroker serves plain OAuth reliers: once the user is authenticated
// it sends the browser to the relier's redirect URI with a code and state.
type RedirectBroker struct {
	Base
}

var _ Broker = (*RedirectBroker)(nil)

func NewRedirect(deps Deps) Broker {
	return &RedirectBroker{Base: Base{deps: deps}}
}

func (b *RedirectBroker) Type() Type { return TypeRedirect }

func (b *RedirectBroker) AfterSignIn(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	return b.redirectToRelier(ctx, account)
}

func (b *RedirectBroker) AfterSignUpConfirmationPoll(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	return b.redirectToRelier(ctx, account)
}

func (b *RedirectBroker) AfterResetPasswordConfirmationPoll(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	return b.redirectToRelier(ctx, account)
}

func (b *RedirectBroker) redirectToRelier(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	oauth := b.deps.OAuth
	if oauth == nil {
		// An oauth-looking URL with no resolvable relier: nothing to finish,
		// fall back to default navigation.
		return Behavior{}, nil
	}

	signed, err := b.deps.Signer.Sign(account.UID, account.SessionToken, b.deps.Audience)
	if err != nil {
		return Behavior{}, err
	}
	redirect, err := b.deps.OAuthClient.AuthorizeFromAssertion(ctx, oauth.ClientID, signed, oauth.Scope, oauth.State)
	if err != nil {
		return Behavior{}, err
	}

	if b.deps.Navigate == nil {
		return Behavior{}, errors.New("redirect broker requires a navigator")
	}
	if err := b.deps.Navigate(redirect); err != nil {
		return Behavior{}, err
	}
	return Behavior{Halt: true}, nil
}
