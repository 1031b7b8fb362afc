// client_manager.go
package main

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ClientManager owns the registry and serializes every connect, disconnect and
// inbound event through a single loop.
type ClientManager struct {
	registry *Registry
	register chan *Client
	inbound  chan inbound // events and disconnects, in per-connection order
	done     chan struct{}

	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time

	// mirrors of the registry size for readers outside the loop
	connections atomic.Int64
	joined      atomic.Int64
	identities  atomic.Int64
}

// Client represents a single WebSocket connection.
type Client struct {
	id      string
	socket  *websocket.Conn
	send    chan []byte
	manager *ClientManager
	log     *slog.Logger
}

type inbound struct {
	client     *Client
	envelope   Envelope
	disconnect bool
}

func NewClientManager(log *slog.Logger) *ClientManager {
	return &ClientManager{
		registry: NewRegistry(),
		register: make(chan *Client),
		inbound:  make(chan inbound, 256),
		done:     make(chan struct{}),
		validate: validator.New(),
		log:      log,
		now:      time.Now,
	}
}

// NewClient wraps a socket. The outbound queue is bounded; writes to a full
// queue are dropped, never waited on.
func (m *ClientManager) NewClient(socket *websocket.Conn, limits Limits) *Client {
	id := uuid.NewString()
	return &Client{
		id:      id,
		socket:  socket,
		send:    make(chan []byte, limits.SendBuffer),
		manager: m,
		log:     m.log.With("connection", id),
	}
}
