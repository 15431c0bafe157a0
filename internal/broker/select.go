package broker

import (
	"strings"

	"github.com/fxawebapp/fxa-front/internal/relier"
)

// Signal is everything broker selection looks at: declared context and
// service, OAuth identifiers, whether the document is framed, the raw href,
// and the same-browser state recovered for verification page loads.
type Signal struct {
	Context      string
	Service      string
	ClientID     string
	WebChannelID string
	Framed       bool
	Href         string

	// IsVerification is true for a verification page load: a code paired
	// with a uid or token in the query.
	IsVerification bool

	// SavedClientID and SavedWebChannelID are what the original tab's OAuth
	// flow recorded, recovered from the legacy session for same-browser
	// verification.
	SavedClientID     string
	SavedWebChannelID string
}

// Select picks the broker variant for a signal. The rules are ordered and
// first match wins; reordering them changes behavior.
func Select(s Signal) Type {
	switch {
	case s.isFirstRun():
		return TypeFirstRun
	case s.Context == relier.ContextFxFennecV1:
		return TypeFxFennecV1
	case s.isFxDesktopV2():
		return TypeFxDesktopV2
	case s.Context == relier.ContextFxDesktopV1:
		return TypeFxDesktopV1
	case s.Context == relier.ContextFxIOSV1:
		return TypeFxiOSV1
	case s.Context == relier.ContextFxIOSV2:
		return TypeFxiOSV2
	case s.WebChannelID != "" || (s.isOAuthVerificationSameBrowser() && s.SavedWebChannelID != ""):
		return TypeWebChannel
	case s.Framed && s.Context == relier.ContextIframe:
		return TypeIframe
	case s.isOAuth():
		return TypeRedirect
	default:
		return TypeBase
	}
}

func (s Signal) isSyncInIframe() bool {
	return s.Framed && s.Context == relier.ContextIframe && s.Service == relier.ServiceSync
}

// isFxDesktopV2 is true for Sync embedded in an iframe or an explicit
// fx_desktop_v2 context; the context parameter alone does not decide it.
func (s Signal) isFxDesktopV2() bool {
	return s.isSyncInIframe() || s.Context == relier.ContextFxDesktopV2
}

func (s Signal) isFirstRun() bool {
	return s.Framed && s.Context == relier.ContextIframe && s.isFxDesktopV2()
}

// isOAuthVerificationSameBrowser is true when a verification link is opened
// in the browser that started the OAuth flow: the URL's service parameter
// matches the client id the original tab saved. Service names and client ids
// share a namespace here; that conflation is inherited behavior.
func (s Signal) isOAuthVerificationSameBrowser() bool {
	return s.IsVerification && s.Service != "" && s.Service == s.SavedClientID
}

// isOAuthVerificationDifferentBrowser is true when the verification link
// names an OAuth-looking service but no saved flow matches: a different
// browser opened it, so there is no original session to lean on.
func (s Signal) isOAuthVerificationDifferentBrowser() bool {
	return s.IsVerification && s.Service != "" && s.Service != relier.ServiceSync &&
		s.Service != s.SavedClientID
}

func (s Signal) isOAuth() bool {
	return s.ClientID != "" ||
		s.isOAuthVerificationSameBrowser() ||
		s.isOAuthVerificationDifferentBrowser() ||
		strings.Contains(s.Href, "oauth")
}
