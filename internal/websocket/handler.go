package websocket

import (
	"net/http"
	"strings"

	ws "github.com/coder/websocket"
)

// Handler upgrades the request and streams the hub's events to it.
// ?types=GROCERIES,TODO limits the feed to those type prefixes.
func Handler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			// The feed is served on localhost for local tooling.
			InsecureSkipVerify: true,
		})
		if err != nil {
			hub.logger.Warn("accept", "error", err)
			return
		}
		defer conn.CloseNow()

		hub.logger.Info("devtools client connected", "remote", r.RemoteAddr)
		types := strings.Split(r.URL.Query().Get("types"), ",")
		NewClient(hub, conn, types...).Run(r.Context())
		hub.logger.Info("devtools client disconnected", "remote", r.RemoteAddr)
	}
}
