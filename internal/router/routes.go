// Package router decides which view a page load lands on and carries the
// small page-level helpers that ride along with routing: the form prefill
// cache, the refresh detector, and the iframe height observer.
package router

import "strings"

// Route names one addressable view.
type Route struct {
	Path string
	View string

	// RequiresAuth routes bounce to signin when nobody is signed in.
	RequiresAuth bool
}

// CookiesDisabledPath is the forced start page when local storage is
// unusable.
const CookiesDisabledPath = "/cookies_disabled"

var routes = []Route{
	{Path: "/", View: "index"},
	{Path: "/signin", View: "sign_in"},
	{Path: "/signup", View: "sign_up"},
	{Path: "/confirm", View: "confirm"},
	{Path: "/signin_complete", View: "sign_in_complete"},
	{Path: "/signup_complete", View: "sign_up_complete"},
	{Path: "/verify_email", View: "complete_sign_up"},
	{Path: "/reset_password", View: "reset_password"},
	{Path: "/confirm_reset_password", View: "confirm_reset_password"},
	{Path: "/complete_reset_password", View: "complete_reset_password"},
	{Path: "/reset_password_complete", View: "reset_password_complete"},
	{Path: "/force_auth", View: "force_auth"},
	{Path: "/settings", View: "settings", RequiresAuth: true},
	{Path: "/settings/avatar", View: "avatar", RequiresAuth: true},
	{Path: "/settings/display_name", View: "display_name", RequiresAuth: true},
	{Path: "/change_password", View: "change_password", RequiresAuth: true},
	{Path: "/delete_account", View: "delete_account", RequiresAuth: true},
	{Path: "/legal", View: "legal"},
	{Path: "/legal/terms", View: "terms"},
	{Path: "/legal/privacy", View: "privacy"},
	{Path: CookiesDisabledPath, View: "cookies_disabled"},
	{Path: "/cannot_create_account", View: "cannot_create_account"},
	{Path: "/clear", View: "clear_storage"},
}

// Lookup resolves a path to its route. Trailing slashes are tolerated.
func Lookup(path string) (Route, bool) {
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	for _, r := range routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}
