// Package cookie handles the cookies used by the content front, most
// importantly the __cookie_check probe that lets GET /config report whether
// the browser accepts cookies at all.
package cookie

import (
	"net/http"
	"time"

	"github.com/fxawebapp/fxa-front/internal/envutil"
)

// CheckCookie is set by client code on a prior request; its presence on a
// later /config request means cookies are enabled.
const CheckCookie = "__cookie_check"

// SetCheck sets the cookie-check probe cookie.
func SetCheck(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CheckCookie,
		Value:    "1",
		Path:     "/config",
		HttpOnly: true,
		Secure:   !envutil.IsDev(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
	})
}

// HasCheck reports whether the request carries the cookie-check probe.
func HasCheck(r *http.Request) bool {
	_, err := r.Cookie(CheckCookie)
	return err == nil
}

// Clear removes a cookie by setting MaxAge to -1
func Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}
