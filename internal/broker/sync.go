package broker

import (
	"context"
	"errors"

	"github.com/fxawebapp/fxa-front/internal/autherrors"
	"github.com/fxawebapp/fxa-front/internal/channel"
	"github.com/fxawebapp/fxa-front/internal/log"
	"github.com/fxawebapp/fxa-front/internal/storage"
)

// Channel commands the Sync family of brokers sends to browser chrome.
const (
	CommandCanLinkAccount = "can_link_account"
	CommandLogin          = "login"
	CommandChangePassword = "change_password"
	CommandDeleteAccount  = "delete_account"
)

// syncBroker is the shared behavior of every broker backed by browser
// chrome that consumes Sync credentials: Fx desktop v1/v2, Fennec, and iOS.
type syncBroker struct {
	Base

	typ     Type
	channel channel.Channel

	// haltAfterSignIn is set for chrome that takes over the window once it
	// has the credentials, so the content side must not navigate.
	haltAfterSignIn bool

	// sendKeys is cleared for chrome that cannot handle key material in the
	// login message.
	sendKeys bool

	canCancel bool
}

var _ Broker = (*syncBroker)(nil)

func newSyncBroker(typ Type, deps Deps, haltAfterSignIn, sendKeys, canCancel bool) *syncBroker {
	return &syncBroker{
		Base:            Base{deps: deps},
		typ:             typ,
		channel:         deps.Channel,
		haltAfterSignIn: haltAfterSignIn,
		sendKeys:        sendKeys,
		canCancel:       canCancel,
	}
}

func NewFxDesktopV1(deps Deps) Broker {
	return newSyncBroker(TypeFxDesktopV1, deps, true, true, true)
}

func NewFxDesktopV2(deps Deps) Broker {
	return newSyncBroker(TypeFxDesktopV2, deps, false, true, true)
}

func NewFxFennecV1(deps Deps) Broker {
	return newSyncBroker(TypeFxFennecV1, deps, false, true, false)
}

// iOS v1 chrome cannot consume key material; the login message carries only
// the session.
func NewFxiOSV1(deps Deps) Broker {
	return newSyncBroker(TypeFxiOSV1, deps, true, false, false)
}

func NewFxiOSV2(deps Deps) Broker {
	return newSyncBroker(TypeFxiOSV2, deps, false, true, false)
}

func (b *syncBroker) Type() Type      { return b.typ }
func (b *syncBroker) CanCancel() bool { return b.canCancel }

// BeforeSignIn asks the chrome whether this account may be linked. A
// channel failure is logged and treated as denied; it must never surface as
// a crash. Denial is the expected user-canceled error.
func (b *syncBroker) BeforeSignIn(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	response, err := b.channel.Request(ctx, CommandCanLinkAccount, map[string]any{
		"email": account.Email,
	})
	if err != nil {
		log.LogWarnWithFields("broker", "can_link_account round trip failed, assuming denied", map[string]any{
			"broker": string(b.typ),
			"error":  err.Error(),
		})
		return Behavior{}, autherrors.ErrUserCanceledLogin
	}
	if ok, _ := response["ok"].(bool); !ok {
		return Behavior{}, autherrors.ErrUserCanceledLogin
	}
	return Behavior{}, nil
}

func (b *syncBroker) AfterSignIn(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	if err := b.sendLogin(ctx, account); err != nil {
		return Behavior{}, err
	}
	return Behavior{Halt: b.haltAfterSignIn}, nil
}

// BeforeSignUpConfirmationPoll hands the unverified credentials to chrome
// so Sync can start before the email round trip completes.
func (b *syncBroker) BeforeSignUpConfirmationPoll(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	if err := b.sendLogin(ctx, account); err != nil {
		return Behavior{}, err
	}
	return Behavior{}, nil
}

func (b *syncBroker) AfterResetPasswordConfirmationPoll(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	if err := b.sendLogin(ctx, account); err != nil {
		return Behavior{}, err
	}
	return Behavior{Halt: b.haltAfterSignIn}, nil
}

func (b *syncBroker) AfterChangePassword(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	data := b.loginData(account)
	if err := b.channel.Send(ctx, CommandChangePassword, data); err != nil {
		return Behavior{}, err
	}
	return Behavior{}, nil
}

func (b *syncBroker) AfterDeleteAccount(ctx context.Context, account *storage.AccountSnapshot) (Behavior, error) {
	err := b.channel.Send(ctx, CommandDeleteAccount, map[string]any{
		"email": account.Email,
		"uid":   account.UID,
	})
	if err != nil {
		return Behavior{}, err
	}
	return Behavior{}, nil
}

func (b *syncBroker) sendLogin(ctx context.Context, account *storage.AccountSnapshot) error {
	if account.SessionToken == "" {
		return errors.New("cannot send login message without a session token")
	}
	return b.channel.Send(ctx, CommandLogin, b.loginData(account))
}

func (b *syncBroker) loginData(account *storage.AccountSnapshot) map[string]any {
	data := map[string]any{
		"email":        account.Email,
		"uid":          account.UID,
		"sessionToken": account.SessionToken,
		"verified":     account.Verified,
	}
	if b.sendKeys {
		data["keyFetchToken"] = account.KeyFetchToken
		data["unwrapBKey"] = account.UnwrapBKey
	}
	if b.deps.Sync != nil {
		data["customizeSync"] = b.deps.Sync.CustomizeSync
	}
	return data
}
