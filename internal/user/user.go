// Package user manages the locally known accounts: which accounts this
// browser session has seen, which one is signed in, and the cached profile
// data attached to each. It sits on a pluggable storage backend and keeps
// the rest of the system away from persistence details.
package user

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fxawebapp/fxa-front/internal/assertion"
	"github.com/fxawebapp/fxa-front/internal/channel"
	"github.com/fxawebapp/fxa-front/internal/emailutil"
	"github.com/fxawebapp/fxa-front/internal/log"
	"github.com/fxawebapp/fxa-front/internal/oauthclient"
	"github.com/fxawebapp/fxa-front/internal/profile"
	"github.com/fxawebapp/fxa-front/internal/session"
	"github.com/fxawebapp/fxa-front/internal/storage"
)

// ErrNotSignedIn mirrors the storage sentinel for callers that only import
// this package.
var ErrNotSignedIn = storage.ErrNotSignedIn

// ProfileScope is the OAuth scope requested for profile fetches.
const ProfileScope = "profile"

// User is the account store.
type User struct {
	store    storage.Store
	profiles *profile.Client
	oauth    *oauthclient.Client
	signer   *assertion.Signer
	notifier *channel.Notifier

	// clientID and audience identify this front to the OAuth server when
	// minting profile tokens.
	clientID string
	audience string

	profileGroup singleflight.Group
}

func New(store storage.Store, profiles *profile.Client, oauth *oauthclient.Client, signer *assertion.Signer, notifier *channel.Notifier, clientID, audience string) *User {
	return &User{
		store:    store,
		profiles: profiles,
		oauth:    oauth,
		signer:   signer,
		notifier: notifier,
		clientID: clientID,
		audience: audience,
	}
}

// Account returns the snapshot for uid.
func (u *User) Account(ctx context.Context, uid string) (*storage.AccountSnapshot, error) {
	return u.store.GetAccount(ctx, uid)
}

// SaveAccount persists a snapshot, normalizing the email first.
func (u *User) SaveAccount(ctx context.Context, account *storage.AccountSnapshot) error {
	account.Email = emailutil.Normalize(account.Email)
	return u.store.SetAccount(ctx, account)
}

// SignedInAccount returns the currently signed-in account, or ErrNotSignedIn.
func (u *User) SignedInAccount(ctx context.Context) (*storage.AccountSnapshot, error) {
	uid, err := u.store.SignedInUID(ctx)
	if err != nil {
		return nil, err
	}
	return u.store.GetAccount(ctx, uid)
}

// SetSignedInAccount saves the account, marks it signed in, and notifies
// every interested context.
func (u *User) SetSignedInAccount(ctx context.Context, account *storage.AccountSnapshot) error {
	if account.LastLogin.IsZero() {
		account.LastLogin = time.Now()
	}
	if err := u.SaveAccount(ctx, account); err != nil {
		return err
	}
	if err := u.store.SetSignedInUID(ctx, account.UID); err != nil {
		return err
	}
	if u.notifier != nil {
		u.notifier.Trigger(ctx, channel.SignedInNotification, map[string]any{
			"uid":   account.UID,
			"email": account.Email,
		})
	}
	return nil
}

// ClearSignedInAccount signs the current account out locally. The snapshot
// stays cached so the next sign-in can prefill the email.
func (u *User) ClearSignedInAccount(ctx context.Context) error {
	account, err := u.SignedInAccount(ctx)
	if errors.Is(err, storage.ErrNotSignedIn) {
		return nil
	}
	if err != nil {
		return err
	}

	account.SessionToken = ""
	account.KeyFetchToken = ""
	account.UnwrapBKey = ""
	if err := u.store.SetAccount(ctx, account); err != nil {
		return err
	}
	if err := u.store.ClearSignedInUID(ctx); err != nil {
		return err
	}
	if u.notifier != nil {
		u.notifier.Trigger(ctx, channel.SignedOutNotification, map[string]any{
			"uid": account.UID,
		})
	}
	return nil
}

// RemoveAccount deletes the snapshot for uid. Deleting the signed-in
// account clears the signed-in pointer and broadcasts the deletion.
func (u *User) RemoveAccount(ctx context.Context, uid string) error {
	signedIn, err := u.store.SignedInUID(ctx)
	wasSignedIn := err == nil && signedIn == uid

	if err := u.store.DeleteAccount(ctx, uid); err != nil {
		return err
	}
	if wasSignedIn && u.notifier != nil {
		u.notifier.Trigger(ctx, channel.DeleteNotification, map[string]any{
			"uid": uid,
		})
	}
	return nil
}

// Accounts lists every cached snapshot.
func (u *User) Accounts(ctx context.Context) ([]*storage.AccountSnapshot, error) {
	return u.store.ListAccounts(ctx)
}

// FetchProfile fills in the display name and avatar for an account from the
// profile server and persists the result. Concurrent fetches for the same
// uid are collapsed into one request.
func (u *User) FetchProfile(ctx context.Context, account *storage.AccountSnapshot) (*storage.AccountSnapshot, error) {
	result, err, _ := u.profileGroup.Do(account.UID, func() (any, error) {
		signed, err := u.signer.Sign(account.UID, account.SessionToken, u.audience)
		if err != nil {
			return nil, err
		}
		token, err := u.oauth.TokenFromAssertion(ctx, u.clientID, signed, ProfileScope)
		if err != nil {
			return nil, err
		}
		p, err := u.profiles.Fetch(ctx, token)
		if err != nil {
			return nil, err
		}

		fresh, err := u.store.GetAccount(ctx, account.UID)
		if err != nil {
			return nil, err
		}
		changed := fresh.DisplayName != p.DisplayName || fresh.ProfileImageURL != p.AvatarURL
		fresh.DisplayName = p.DisplayName
		fresh.ProfileImageURL = p.AvatarURL
		if err := u.store.SetAccount(ctx, fresh); err != nil {
			return nil, err
		}
		if changed && u.notifier != nil {
			u.notifier.Trigger(ctx, channel.ProfileChangeNotification, map[string]any{
				"uid": fresh.UID,
			})
		}
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*storage.AccountSnapshot), nil
}

// UpgradeStorageFormat brings the store up to the current schema version.
// Version 1 stores carried unnormalized emails.
func (u *User) UpgradeStorageFormat(ctx context.Context) error {
	version, err := u.store.FormatVersion(ctx)
	if err != nil {
		return err
	}
	if version >= storage.CurrentFormatVersion {
		return nil
	}

	if version == 1 {
		accounts, err := u.store.ListAccounts(ctx)
		if err != nil {
			return err
		}
		for _, account := range accounts {
			normalized := emailutil.Normalize(account.Email)
			if normalized == account.Email {
				continue
			}
			account.Email = normalized
			if err := u.store.SetAccount(ctx, account); err != nil {
				return err
			}
		}
		log.LogInfoWithFields("user", "Upgraded account storage format", map[string]any{
			"from": version,
			"to":   storage.CurrentFormatVersion,
		})
	}

	return u.store.SetFormatVersion(ctx, storage.CurrentFormatVersion)
}

// UpgradeFromSession consumes the legacy session singleton exactly once. If
// it held credentials and nothing is signed in yet, those credentials become
// the signed-in account.
func (u *User) UpgradeFromSession(ctx context.Context, sess *session.Session) error {
	uid, email, sessionToken, ok := sess.TakeForMigration()
	if !ok {
		return nil
	}

	if _, err := u.store.SignedInUID(ctx); err == nil {
		// Someone is already signed in; the legacy data loses.
		return nil
	}

	account := &storage.AccountSnapshot{
		UID:          uid,
		Email:        email,
		SessionToken: sessionToken,
		Verified:     true,
	}
	log.LogInfoWithFields("user", "Migrated legacy session credentials", map[string]any{
		"uid": uid,
	})
	return u.SetSignedInAccount(ctx, account)
}
