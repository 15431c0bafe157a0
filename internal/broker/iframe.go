package broker

import (
	"context"

	"github.com/fxawebapp/fxa-front/internal/storage"
)

// IframeBroker serves a trusted relier that embedded the pages in an
// iframe. The parent frame is kept informed over the iframe channel and may
// dismiss the frame, so cancel is always available.
type IframeBroker struct {
	Base
}

var _ Broker = (*IframeBroker)(nil)

func NewIframe(deps Deps) Broker {
	return &IframeBroker{Base: Base{deps: deps}}
}

func (b *IframeBroker) Type() Type      { return TypeIframe }
func (b *IframeBroker) CanCancel() bool { return true }

func (b *IframeBroker) AfterLoaded(ctx context.Context) error {
	return b.deps.Channel.Send(ctx, "loaded", nil)
}

func (b *IframeBroker) AfterSignIn(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	err := b.deps.Channel.Send(ctx, CommandLogin, map[string]any{
		"uid":   account.UID,
		"email": account.Email,
	})
	if err != nil {
		return Behavior{}, err
	}
	return Behavior{}, nil
}
