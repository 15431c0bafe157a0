package broker

import (
	"context"

	"github.com/fxawebapp/fxa-front/internal/channel"
	"github.com/fxawebapp/fxa-front/internal/log"
	"github.com/fxawebapp/fxa-front/internal/storage"
)

// FirstRunBroker layers parent-frame notifications over fx-desktop-v2
// behavior: the first-run page embeds the flow in an iframe while the real
// credential consumer is still browser chrome on a WebChannel.
type FirstRunBroker struct {
	*syncBroker

	iframe channel.Channel
}

var _ Broker = (*FirstRunBroker)(nil)

func NewFirstRun(deps Deps) Broker {
	return &FirstRunBroker{
		syncBroker: newSyncBroker(TypeFirstRun, deps, false, true, true),
		iframe:     deps.IframeChannel,
	}
}

func (b *FirstRunBroker) Type() Type { return TypeFirstRun }

func (b *FirstRunBroker) AfterLoaded(ctx context.Context) error {
	b.notifyParent(ctx, CommandLoaded, nil)
	return nil
}

func (b *FirstRunBroker) AfterSignIn(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	behavior, err := b.syncBroker.AfterSignIn(ctx, account)
	if err != nil {
		return behavior, err
	}
	b.notifyParent(ctx, CommandLogin, map[string]any{"email": account.Email})
	return behavior, nil
}

func (b *FirstRunBroker) AfterSignUpConfirmationPoll(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	b.notifyParent(ctx, "verification_complete", nil)
	return Behavior{}, nil
}

// notifyParent is best effort: the first-run page may have torn the frame
// down already, and chrome is the party that matters.
func (b *FirstRunBroker) notifyParent(ctx context.Context, command string, data map[string]any) {
	if b.iframe == nil {
		return
	}
	if err := b.iframe.Send(ctx, command, data); err != nil {
		log.LogWarnWithFields("broker", "First-run parent notification failed", map[string]any{
			"command": command,
			"error":   err.Error(),
		})
	}
}
