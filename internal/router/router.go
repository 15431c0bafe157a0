package router

import (
	"context"
	"errors"

	"github.com/fxawebapp/fxa-front/internal/log"
	"github.com/fxawebapp/fxa-front/internal/metrics"
	"github.com/fxawebapp/fxa-front/internal/storage"
	"github.com/fxawebapp/fxa-front/internal/user"
)

// NavigationMode is how route changes are reflected in the address bar.
type NavigationMode int

const (
	// PushState rewrites the path. Forbidden when framed: a path change
	// there would force-navigate the parent frame.
	PushState NavigationMode = iota
	// HashChange keeps the path and routes on the fragment.
	HashChange
)

// History is the address-bar surface the router drives. Real servers bind
// it to the page-load response; tests use fakes.
type History interface {
	// ReplaceEntry swaps the current history entry for path.
	ReplaceEntry(path string) error
}

// Router resolves the initial view for a page load.
type Router struct {
	user    *user.User
	metrics *metrics.Metrics
	refresh *RefreshObserver

	framed        bool
	storageUsable bool
	forcedStart   string
	history       History
}

func New(u *user.User, m *metrics.Metrics, refresh *RefreshObserver, framed, storageUsable bool, history History) *Router {
	r := &Router{
		user:          u,
		metrics:       m,
		refresh:       refresh,
		framed:        framed,
		storageUsable: storageUsable,
		history:       history,
	}
	if !storageUsable {
		r.forcedStart = CookiesDisabledPath
	}
	return r
}

// Mode returns the navigation mode for this page load.
func (r *Router) Mode() NavigationMode {
	if r.framed {
		return HashChange
	}
	return PushState
}

// ForcedStartPage returns the page the session must start on regardless of
// the requested path, or "" when none applies.
func (r *Router) ForcedStartPage(requested string) string {
	if r.forcedStart == "" || requested == r.forcedStart {
		return ""
	}
	return r.forcedStart
}

// InitialRoute resolves the requested path to the view the session starts
// on. A forced start page wins over everything; the bare index fans out by
// signed-in state; unauthenticated loads of protected views land on signin.
func (r *Router) InitialRoute(ctx context.Context, requested string) (Route, error) {
	if forced := r.ForcedStartPage(requested); forced != "" {
		route, _ := Lookup(forced)
		return route, nil
	}

	route, ok := Lookup(requested)
	if !ok {
		return Route{}, ErrUnknownRoute
	}

	signedIn := false
	if r.user != nil {
		_, err := r.user.SignedInAccount(ctx)
		switch {
		case err == nil:
			signedIn = true
		case errors.Is(err, storage.ErrNotSignedIn):
		default:
			return Route{}, err
		}
	}

	if route.Path == "/" {
		target := "/signup"
		if signedIn {
			target = "/settings"
		}
		route, _ = Lookup(target)
	} else if route.RequiresAuth && !signedIn {
		route, _ = Lookup("/signin")
	}

	if r.refresh != nil {
		r.refresh.OnView(route.View)
	}
	return route, nil
}

// Start finalizes the session's routing. Replacing the history entry under
// push-state is best effort: some user agents throw here and the session
// must proceed anyway.
func (r *Router) Start(requested string) {
	if r.Mode() == PushState && r.history != nil {
		if err := r.history.ReplaceEntry(requested); err != nil {
			log.LogDebugWithFields("router", "History replace failed, continuing", map[string]any{
				"path":  requested,
				"error": err.Error(),
			})
		}
	}
}

// ErrUnknownRoute is returned for a path outside the route table.
var ErrUnknownRoute = errors.New("unknown route")
