// server.go
// HTTP side of the relay: the WebSocket upgrade that creates a client per connection,
// plus the liveness and health routes.

package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

type Server struct {
	manager  *ClientManager
	upgrader websocket.Upgrader
	limits   Limits
	log      *slog.Logger
}

func NewServer(manager *ClientManager, limits Limits, origins []string, log *slog.Logger) *Server {
	return &Server{
		manager: manager,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(origins),
		},
		limits: limits,
		log:    log,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.index)
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /ws", s.ws)
	return mux
}

func (s *Server) ws(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.log.Debug("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := s.manager.NewClient(conn, s.limits)
	if !s.manager.Register(client) {
		_ = conn.Close()
		return
	}

	go client.read(s.limits)
	go client.write(s.limits)
}

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Server is running!"))
}

type healthResponse struct {
	Status      string `json:"status"`
	Connections int64  `json:"connections"`
	Joined      int64  `json:"joined"`
	Identities  int64  `json:"identities"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:      "ok",
		Connections: s.manager.Connections(),
		Joined:      s.manager.Joined(),
		Identities:  s.manager.Identities(),
	})
}

// originChecker allows requests without an Origin header (non-browser clients),
// any origin when "*" is listed, and otherwise exact matches only.
func originChecker(allowed []string) func(*http.Request) bool {
	anyOrigin := lo.Contains(allowed, "*")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || anyOrigin || lo.Contains(allowed, origin)
	}
}
