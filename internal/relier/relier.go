// Package relier models the requesting or embedding party: the parameters it
// declared on the URL, optionally overridden by the resume token carried
// through verification email links.
//
// A relier is constructed once per page load, fetched asynchronously, and
// immutable thereafter except for explicit Set calls by views.
package relier

import (
	"context"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/fxawebapp/fxa-front/internal/autherrors"
	"github.com/fxawebapp/fxa-front/internal/emailutil"
)

// Context values declared by embedding browsers.
const (
	ContextWeb         = "web"
	ContextIframe      = "iframe"
	ContextFxDesktopV1 = "fx_desktop_v1"
	ContextFxDesktopV2 = "fx_desktop_v2"
	ContextFxFennecV1  = "fx_fennec_v1"
	ContextFxIOSV1     = "fx_ios_v1"
	ContextFxIOSV2     = "fx_ios_v2"
)

// ServiceSync is the literal service name Sync declares.
const ServiceSync = "sync"

var knownMigrations = []string{"amo", "sync11"}

var (
	uidPattern            = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)
	preVerifyTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// Relier holds the base attribute set common to every variant.
type Relier struct {
	Service     string
	Context     string
	Entrypoint  string
	Campaign    string
	UTMCampaign string
	UTMContent  string
	UTMMedium   string
	UTMSource   string
	UTMTerm     string

	PreVerifyToken string
	Migration      string
	UID            string
	Email          string
	Setting        string
	RedirectTo     string

	// AllowCachedCredentials is false when the relier demands a fresh
	// password entry (email-first forced flows).
	AllowCachedCredentials bool

	query   url.Values
	fetched bool
}

// New builds a relier over the page-load query. Call Fetch before reading
// attributes.
func New(query url.Values) *Relier {
	return &Relier{
		AllowCachedCredentials: true,
		query:                  query,
	}
}

// IsVerificationFlow reports whether the query names a verification page
// load: a code paired with either a uid or a token.
func IsVerificationFlow(query url.Values) bool {
	if query.Get("code") == "" {
		return false
	}
	return query.Get("uid") != "" || query.Get("token") != ""
}

// Fetch populates the relier from the query string, then applies resume
// token overrides. Unknown query parameters are silently dropped; invalid
// values for enumerated fields reject with a typed INVALID_PARAMETER error
// naming the parameter.
func (r *Relier) Fetch(ctx context.Context) error {
	if err := r.importQuery(); err != nil {
		return err
	}
	if resume := r.query.Get("resume"); resume != "" {
		fields, err := DecodeResumeToken(resume)
		if err != nil {
			return autherrors.NewInvalidParameter("resume")
		}
		r.applyResume(fields)
	}
	r.fetched = true
	return nil
}

func (r *Relier) importQuery() error {
	verification := IsVerificationFlow(r.query)

	r.Service = r.query.Get("service")
	r.Context = r.query.Get("context")
	r.Entrypoint = r.query.Get("entrypoint")
	r.Campaign = r.query.Get("campaign")
	r.UTMCampaign = r.query.Get("utm_campaign")
	r.UTMContent = r.query.Get("utm_content")
	r.UTMMedium = r.query.Get("utm_medium")
	r.UTMSource = r.query.Get("utm_source")
	r.UTMTerm = r.query.Get("utm_term")
	r.Setting = r.query.Get("setting")
	r.RedirectTo = r.query.Get("redirectTo")

	if migration := r.query.Get("migration"); migration != "" {
		if !slices.Contains(knownMigrations, migration) {
			return autherrors.NewInvalidParameter("migration")
		}
		r.Migration = migration
	}

	if token := r.query.Get("preVerifyToken"); token != "" {
		if !preVerifyTokenPattern.MatchString(token) {
			return autherrors.NewInvalidParameter("preVerifyToken")
		}
		r.PreVerifyToken = token
	}

	if uid := r.query.Get("uid"); uid != "" {
		if verification {
			uid = strings.TrimSpace(uid)
		}
		if !uidPattern.MatchString(uid) {
			return autherrors.NewInvalidParameter("uid")
		}
		r.UID = uid
	}

	if email := r.query.Get("email"); email != "" {
		if verification {
			email = strings.TrimSpace(email)
		}
		if !emailutil.IsValid(email) {
			return autherrors.NewInvalidParameter("email")
		}
		r.Email = email
	}

	return nil
}

func (r *Relier) applyResume(fields map[string]string) {
	if v, ok := fields["campaign"]; ok {
		r.Campaign = v
	}
	if v, ok := fields["entrypoint"]; ok {
		r.Entrypoint = v
	}
	if v, ok := fields["utmCampaign"]; ok {
		r.UTMCampaign = v
	}
	if v, ok := fields["utmContent"]; ok {
		r.UTMContent = v
	}
	if v, ok := fields["utmMedium"]; ok {
		r.UTMMedium = v
	}
	if v, ok := fields["utmSource"]; ok {
		r.UTMSource = v
	}
	if v, ok := fields["utmTerm"]; ok {
		r.UTMTerm = v
	}
}

// Fetched reports whether Fetch completed.
func (r *Relier) Fetched() bool {
	return r.fetched
}

// IsSync reports whether the declared service is Sync.
func (r *Relier) IsSync() bool {
	return r.Service == ServiceSync
}

// ResumeFields returns the relier attributes eligible for the resume token.
func (r *Relier) ResumeFields() map[string]string {
	return map[string]string{
		"campaign":    r.Campaign,
		"entrypoint":  r.Entrypoint,
		"utmCampaign": r.UTMCampaign,
		"utmContent":  r.UTMContent,
		"utmMedium":   r.UTMMedium,
		"utmSource":   r.UTMSource,
		"utmTerm":     r.UTMTerm,
	}
}
