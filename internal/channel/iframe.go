package channel

import (
	"fmt"
	"slices"
	"time"
)

// IllegalIframeParentError aborts bootstrap when the page is embedded by an
// origin outside the allow-list.
type IllegalIframeParentError struct {
	Origin string
}

func (e *IllegalIframeParentError) Error() string {
	return fmt.Sprintf("illegal iframe parent origin: %q", e.Origin)
}

// OriginPolicy captures the inputs to parent-origin resolution.
type OriginPolicy struct {
	// Framed is whether the document is embedded at all.
	Framed bool

	// ForSync / ForOAuth say which kind of relier the embedding serves.
	ForSync  bool
	ForOAuth bool

	// SyncAllowList is the server-supplied origin allow-list used for
	// embedded Sync.
	SyncAllowList []string

	// RelierOrigin is the single origin an OAuth relier declared.
	RelierOrigin string
}

// AllowedParentOrigins resolves the set of origins permitted to embed the
// application. Empty unless framed.
func AllowedParentOrigins(p OriginPolicy) []string {
	if !p.Framed {
		return nil
	}
	if p.ForSync {
		return slices.Clone(p.SyncAllowList)
	}
	if p.ForOAuth && p.RelierOrigin != "" {
		return []string{p.RelierOrigin}
	}
	return nil
}

// NewIframeChannel challenges the actual parent origin against the resolved
// allow-list and, on success, returns a channel talking to the parent frame.
// A non-matching parent origin fails with IllegalIframeParentError and no
// channel is constructed.
func NewIframeChannel(transport Transport, parentOrigin string, allowed []string, timeout time.Duration) (Channel, error) {
	if !slices.Contains(allowed, parentOrigin) {
		return nil, &IllegalIframeParentError{Origin: parentOrigin}
	}
	return NewChannel(transport, timeout), nil
}
