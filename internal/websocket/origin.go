package websocket

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/welldanyogia/paperboy/internal/logger"
)

// NewSecureUpgrader creates a WebSocket upgrader that accepts the given
// comma-separated origins. "*" accepts any origin.
func NewSecureUpgrader(allowed string, sec *logger.SecurityLogger) websocket.Upgrader {
	var allowedOrigins []string
	for _, origin := range strings.Split(allowed, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowedOrigins = append(allowedOrigins, origin)
		}
	}

	// Default to localhost if no origins configured
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			// Allow same-origin requests (empty Origin)
			if origin == "" {
				return true
			}

			for _, a := range allowedOrigins {
				if a == "*" || a == origin {
					return true
				}
			}

			if sec != nil {
				sec.InvalidOrigin(r.RemoteAddr, origin)
			}
			return false
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// Serve upgrades the request and runs the client pumps until the peer leaves
func Serve(hub *Hub, upgrader websocket.Upgrader, w http.ResponseWriter, r *http.Request, clientLogger *slog.Logger) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := NewClient(hub, conn, clientLogger)
	hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
	return nil
}
