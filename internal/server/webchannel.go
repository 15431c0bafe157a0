package server

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/fxawebapp/fxa-front/internal/channel"
	jsonwriter "github.com/fxawebapp/fxa-front/internal/json"
	"github.com/fxawebapp/fxa-front/internal/log"
)

// WebChannelHandler upgrades GET /webchannel/{id} to a WebSocket and hands
// the connection to the hub. Browser chrome attaches as a live channel;
// parent frames declare role=parent and are parked raw until a bootstrap
// claims the transport.
type WebChannelHandler struct {
	hub      *channel.WebChannelHub
	upgrader websocket.Upgrader
}

func NewWebChannelHandler(hub *channel.WebChannelHub, allowedOrigins []string) *WebChannelHandler {
	allowedMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		allowedMap[origin] = true
	}

	return &WebChannelHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Browser chrome connects without an Origin header.
				return origin == "" || allowedMap[origin]
			},
		},
	}
}

func (h *WebChannelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		jsonwriter.WriteBadRequest(w, "missing webChannelId")
		return
	}

	role := r.URL.Query().Get("role")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		log.LogWarnWithFields("webchannel", "WebSocket upgrade failed", map[string]any{
			"webChannelId": id,
			"error":        err.Error(),
		})
		return
	}

	transport := channel.NewWebSocketTransport(conn)
	if role == "parent" {
		h.hub.Park(id, transport)
		return
	}
	h.hub.Attach(id, transport)
}
