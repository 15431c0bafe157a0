// Package app is the bootstrap orchestrator: it assembles every component
// in a fixed dependency order for one page load, selects the authentication
// broker, and hands off to the router. Any failure anywhere in the chain is
// fatal for the page load and ends in a hard navigation to an error page.
package app

import (
	"net/url"

	"github.com/fxawebapp/fxa-front/internal/channel"
)

// Environment abstracts the page-load world the bootstrap runs against: the
// request URL, the embedding signals, storage availability, and hard
// navigation. The server builds one per bootstrap request; tests use fakes.
type Environment interface {
	// URL is the full page-load URL, query included.
	URL() *url.URL

	// AcceptLanguage is the raw Accept-Language header value.
	AcceptLanguage() string

	// Framed reports whether the document is embedded in an iframe.
	Framed() bool

	// ParentOrigin is the embedding frame's origin; empty when not framed.
	ParentOrigin() string

	// StorageUsable reports whether local storage works in this session.
	StorageUsable() bool

	// ParentTransport is the pipe to the framing parent, nil when not
	// framed.
	ParentTransport() channel.Transport

	// ChromeChannel returns the channel to browser chrome for a WebChannel
	// id, or a NullChannel when no chrome is attached.
	ChromeChannel(id string) channel.Channel

	// Navigate performs a full page replace, never a client-route change.
	Navigate(url string) error
}
