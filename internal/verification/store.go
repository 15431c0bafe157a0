// Package verification stores the same-browser verification context: a
// record written when a signup or reset starts, keyed by email+uid, and
// recovered when the verification link is opened so broker selection can
// tell a same-browser verification from a different-browser one.
package verification

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultTTL matches the lifetime of a verification email link. A context
// older than this is treated as absent.
const DefaultTTL = 24 * time.Hour

// Context is what the originating tab knew when it started the flow.
type Context struct {
	Email        string `json:"email"`
	UID          string `json:"uid"`
	Service      string `json:"service,omitempty"`
	Context      string `json:"context,omitempty"`
	WebChannelID string `json:"webChannelId,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
}

// Store keeps verification contexts with a TTL.
type Store struct {
	cache *ttlcache.Cache[string, *Context]
}

// NewStore creates a store; a non-positive ttl means DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *Context](ttl),
	)
	go cache.Start()
	return &Store{cache: cache}
}

func key(email, uid string) string {
	return email + "\x00" + uid
}

// Save records the context under its email+uid key.
func (s *Store) Save(v *Context) {
	s.cache.Set(key(v.Email, v.UID), v, ttlcache.DefaultTTL)
}

// Load recovers the context for email+uid, or nil when none was written in
// this browser (or it expired).
func (s *Store) Load(email, uid string) *Context {
	item := s.cache.Get(key(email, uid))
	if item == nil {
		return nil
	}
	return item.Value()
}

// Delete drops the context once verification completes.
func (s *Store) Delete(email, uid string) {
	s.cache.Delete(key(email, uid))
}

// Stop terminates the expiry loop.
func (s *Store) Stop() {
	s.cache.Stop()
}
