package broker

import (
	"context"

	"github.com/fxawebapp/fxa-front/internal/storage"
)

// Base is the plain-web broker: no embedding context, no special
// capabilities. Every other variant embeds it and overrides the hooks it
// cares about.
type Base struct {
	deps Deps
}

var _ Broker = (*Base)(nil)

func NewBase(deps Deps) *Base {
	return &Base{deps: deps}
}

func (b *Base) Type() Type { return TypeBase }

func (b *Base) AfterLoaded(ctx context.Context) error {
	return nil
}

func (b *Base) BeforeSignIn(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	return Behavior{}, nil
}

func (b *Base) AfterSignIn(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	return Behavior{}, nil
}

func (b *Base) BeforeSignUpConfirmationPoll(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	return Behavior{}, nil
}

func (b *Base) AfterSignUpConfirmationPoll(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	return Behavior{}, nil
}

func (b *Base) AfterResetPasswordConfirmationPoll(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	return Behavior{}, nil
}

func (b *Base) AfterChangePassword(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	return Behavior{}, nil
}

func (b *Base) AfterDeleteAccount(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	return Behavior{}, nil
}

func (b *Base) CanCancel() bool { return false }
