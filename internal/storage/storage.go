// Package storage persists locally known account snapshots. It is the Go
// analog of the browser's localStorage account cache: a uid-keyed map of
// snapshots plus a pointer to the currently signed-in account.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrAccountNotFound is returned when no snapshot exists for a uid
var ErrAccountNotFound = errors.New("account not found")

// ErrNotSignedIn is returned when no account is currently signed in
var ErrNotSignedIn = errors.New("no signed-in account")

// CurrentFormatVersion is the storage schema version. Older stores are
// upgraded in place at startup.
const CurrentFormatVersion = 2

// AccountSnapshot is the locally cached view of one account.
type AccountSnapshot struct {
	UID             string    `json:"uid" firestore:"uid"`
	Email           string    `json:"email" firestore:"email"`
	SessionToken    string    `json:"sessionToken,omitempty" firestore:"session_token,omitempty"`
	KeyFetchToken   string    `json:"keyFetchToken,omitempty" firestore:"key_fetch_token,omitempty"`
	UnwrapBKey      string    `json:"unwrapBKey,omitempty" firestore:"unwrap_b_key,omitempty"`
	Verified        bool      `json:"verified" firestore:"verified"`
	DisplayName     string    `json:"displayName,omitempty" firestore:"display_name,omitempty"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty" firestore:"profile_image_url,omitempty"`
	GrantedPerms    []string  `json:"grantedPermissions,omitempty" firestore:"granted_permissions,omitempty"`
	LastLogin       time.Time `json:"lastLogin,omitempty" firestore:"last_login,omitempty"`
}

// Store is the persistence contract for account snapshots.
//
// Exactly one account may be the signed-in account at a time; deleting it
// also clears the signed-in pointer.
type Store interface {
	GetAccount(ctx context.Context, uid string) (*AccountSnapshot, error)
	SetAccount(ctx context.Context, account *AccountSnapshot) error
	DeleteAccount(ctx context.Context, uid string) error
	ListAccounts(ctx context.Context) ([]*AccountSnapshot, error)

	SignedInUID(ctx context.Context) (string, error)
	SetSignedInUID(ctx context.Context, uid string) error
	ClearSignedInUID(ctx context.Context) error

	// FormatVersion returns 0 for a fresh store.
	FormatVersion(ctx context.Context) (int, error)
	SetFormatVersion(ctx context.Context, version int) error

	Close() error
}
