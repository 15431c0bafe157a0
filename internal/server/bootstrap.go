package server

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/fxawebapp/fxa-front/internal/app"
	"github.com/fxawebapp/fxa-front/internal/channel"
	jsonwriter "github.com/fxawebapp/fxa-front/internal/json"
	"github.com/fxawebapp/fxa-front/internal/router"
)

// BootstrapHandler runs the application start sequence for one page load.
// The loader calls GET /bootstrap with the page URL and its embedding
// signals; a successful start returns the initial route, a fatal start
// redirects to the error page the failure path chose.
type BootstrapHandler struct {
	start *app.Start
	hub   *channel.WebChannelHub
}

func NewBootstrapHandler(start *app.Start, hub *channel.WebChannelHub) *BootstrapHandler {
	return &BootstrapHandler{start: start, hub: hub}
}

// bootstrapResponse is the JSON shape of a successful bootstrap.
type bootstrapResponse struct {
	Route           string `json:"route"`
	View            string `json:"view"`
	NavigationMode  string `json:"navigationMode"`
	Broker          string `json:"broker"`
	Language        string `json:"language"`
	ShowCloseButton bool   `json:"showCloseButton"`
	ForcedStartPage string `json:"forcedStartPage,omitempty"`
}

func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	rawURL := q.Get("url")
	if rawURL == "" {
		jsonwriter.WriteBadRequest(w, "missing url parameter")
		return
	}
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		jsonwriter.WriteBadRequest(w, "invalid url parameter")
		return
	}

	framed := q.Get("framed") == "true"

	env := &httpEnvironment{
		url:            pageURL,
		acceptLanguage: r.Header.Get("Accept-Language"),
		framed:         framed,
		parentOrigin:   q.Get("origin"),
		storageUsable:  q.Get("storage") != "false",
		hub:            h.hub,
	}

	if framed {
		// The parent frame parks its WebSocket transport before the page
		// bootstraps; claiming it is exactly-once.
		parentID := q.Get("parentChannel")
		if transport, ok := h.hub.TakeTransport(parentID); ok {
			env.parent = transport
		}
	}

	result, err := h.start.StartApp(r.Context(), env)
	if err != nil {
		// The failure path already navigated; honor it with a redirect.
		if target := env.NavigatedTo(); target != "" {
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		jsonwriter.WriteInternalServerError(w, "bootstrap failed")
		return
	}

	_ = jsonwriter.Write(w, bootstrapResponse{
		Route:           result.Route.Path,
		View:            result.Route.View,
		NavigationMode:  navigationModeName(result.Mode),
		Broker:          string(result.BrokerType),
		Language:        result.Language,
		ShowCloseButton: result.ShowCloseButton,
		ForcedStartPage: result.ForcedStartPage,
	})
}

func navigationModeName(mode router.NavigationMode) string {
	if mode == router.HashChange {
		return "hash-change"
	}
	return "push-state"
}

// httpEnvironment adapts one bootstrap request to the app.Environment the
// start sequence runs against.
type httpEnvironment struct {
	url            *url.URL
	acceptLanguage string
	framed         bool
	parentOrigin   string
	storageUsable  bool
	parent         channel.Transport
	hub            *channel.WebChannelHub

	mu        sync.Mutex
	navigated string
}

var _ app.Environment = (*httpEnvironment)(nil)

func (e *httpEnvironment) URL() *url.URL { return e.url }

func (e *httpEnvironment) AcceptLanguage() string { return e.acceptLanguage }

func (e *httpEnvironment) Framed() bool { return e.framed }

func (e *httpEnvironment) ParentOrigin() string { return e.parentOrigin }

func (e *httpEnvironment) StorageUsable() bool { return e.storageUsable }

func (e *httpEnvironment) ParentTransport() channel.Transport {
	return e.parent
}

func (e *httpEnvironment) ChromeChannel(id string) channel.Channel {
	return e.hub.Get(id)
}

// Navigate records the hard-navigation target; only the first one counts.
func (e *httpEnvironment) Navigate(url string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.navigated == "" {
		e.navigated = url
	}
	return nil
}

// NavigatedTo returns the recorded hard-navigation target, if any.
func (e *httpEnvironment) NavigatedTo() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.navigated
}
