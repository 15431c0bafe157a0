package server

import (
	"net/http"

	"github.com/fxawebapp/fxa-front/internal/app"
	"github.com/fxawebapp/fxa-front/internal/channel"
	"github.com/fxawebapp/fxa-front/internal/config"
)

// NewRouter assembles the HTTP surface: health, client config, the
// WebChannel WebSocket endpoint, and the bootstrap endpoint.
func NewRouter(cfg *config.Config, start *app.Start, hub *channel.WebChannelHub) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /health", NewHealthHandler())
	mux.Handle("GET /config", ChainMiddleware(
		NewConfigHandler(cfg),
		NewCORSMiddleware(cfg.AllowedParentOrigins),
	))
	mux.Handle("GET /webchannel/{id}", NewWebChannelHandler(hub, cfg.AllowedParentOrigins))
	mux.Handle("GET /bootstrap", NewBootstrapHandler(start, hub))

	return ChainMiddleware(
		mux,
		NewRecoverMiddleware("http"),
		NewLoggerMiddleware("http"),
	)
}
