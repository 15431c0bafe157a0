// Package session carries the legacy process-wide session state that
// pre-dates the account store. It survives only as a migration seam: the
// bootstrap reconciles it into the store once at startup, after which it is
// write-only legacy.
package session

import "sync"

// OAuthState is what the original tab saved when it kicked off an OAuth
// flow, so a verification link opened in the same browser can recover it.
type OAuthState struct {
	ClientID     string `json:"client_id"`
	WebChannelID string `json:"webChannelId,omitempty"`
	Scope        string `json:"scope,omitempty"`
	State        string `json:"state,omitempty"`
}

// Session is the legacy singleton's data.
type Session struct {
	mu sync.RWMutex

	email        string
	sessionToken string
	uid          string
	oauth        *OAuthState
	migrated     bool
}

// Default is the process-wide instance, one per browser session.
var Default = &Session{}

func (s *Session) SetCredentials(uid, email, sessionToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uid = uid
	s.email = email
	s.sessionToken = sessionToken
}

// Credentials returns the legacy uid/email/sessionToken triple.
func (s *Session) Credentials() (uid, email, sessionToken string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uid, s.email, s.sessionToken
}

// SetOAuth records the OAuth flow state for same-browser verification.
func (s *Session) SetOAuth(state *OAuthState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oauth = state
}

// OAuth returns the saved OAuth flow state, or nil.
func (s *Session) OAuth() *OAuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.oauth
}

// SavedClientID returns the client id the original OAuth tab saved, or "".
func (s *Session) SavedClientID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.oauth == nil {
		return ""
	}
	return s.oauth.ClientID
}

// MarkMigrated flags the one-shot migration as done; further calls to
// TakeForMigration return nothing.
func (s *Session) MarkMigrated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.migrated = true
}

// TakeForMigration returns the legacy credentials exactly once. The second
// and later calls return ok=false.
func (s *Session) TakeForMigration() (uid, email, sessionToken string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.migrated || s.uid == "" {
		s.migrated = true
		return "", "", "", false
	}
	s.migrated = true
	return s.uid, s.email, s.sessionToken, true
}

// Clear wipes everything; used by sign-out and tests.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.email = ""
	s.sessionToken = ""
	s.uid = ""
	s.oauth = nil
	s.migrated = false
}
