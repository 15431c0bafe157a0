package server

import (
	"net/http"

	"github.com/fxawebapp/fxa-front/internal/config"
	"github.com/fxawebapp/fxa-front/internal/cookie"
	jsonwriter "github.com/fxawebapp/fxa-front/internal/json"
)

// ConfigHandler serves GET /config: the client bootstrap payload plus the
// cookie probe that lets the next request report whether cookies work.
type ConfigHandler struct {
	cfg *config.Config
}

func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The probe set on a previous response proves cookies are enabled.
	cookiesEnabled := cookie.HasCheck(r)
	cookie.SetCheck(w)

	language := h.cfg.NegotiateLanguage(r.Header.Get("Accept-Language"))

	// The payload varies per language and must never be cached stale.
	w.Header().Set("Cache-Control", "no-cache, max-age=0")
	w.Header().Set("Vary", "accept-language")

	_ = jsonwriter.Write(w, h.cfg.ClientConfig(language, cookiesEnabled))
}
