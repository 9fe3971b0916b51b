package server

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func newUpgrader(allowAll bool, allowed []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowed, origin)
		},
	}
}

// handleWebSocket upgrades the request, registers the client with the relay
// and spins up the per-connection goroutines.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		s.logger.Warn("websocket upgrade failed", "remote_addr", c.Request.RemoteAddr, "error", err)
		return
	}

	client := newClient(conn, s.clientOptions)
	entry, err := s.manager.OnConnect(client, c.Request.URL.Query(), c.RemoteIP(), c.Request.UserAgent())
	if err != nil {
		s.logger.Error("failed to register client", "remote_addr", c.Request.RemoteAddr, "error", err)
		conn.Close()
		return
	}
	client.bind(entry.ID)

	s.track(client)
	go client.write()
	go func() {
		defer s.untrack(client)
		client.read(s.manager)
	}()
}
