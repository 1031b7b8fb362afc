// manager.go

// central event loop. The manager handles connection registration, unregistration
// and every inbound event, one at a time, so the registry never needs a lock.
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// Run processes events until ctx is cancelled, then closes every connection.
func (m *ClientManager) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			m.log.Info("Client manager shutting down", "connections", m.registry.Len())
			m.closeAll()
			return
		case c := <-m.register:
			m.connect(c)
		case in := <-m.inbound:
			if in.disconnect {
				m.disconnect(in.client)
				continue
			}
			if err := m.handle(in.client, in.envelope); err != nil {
				m.log.Debug("Dropped inbound event",
					"connection", in.client.id, "event", in.envelope.Event, "error", err)
			}
		}
	}
}

// Wait blocks until Run has returned.
func (m *ClientManager) Wait() {
	<-m.done
}

// Register hands a new connection to the loop. Returns false once the manager stopped.
func (m *ClientManager) Register(c *Client) bool {
	select {
	case m.register <- c:
		return true
	case <-m.done:
		return false
	}
}

// Unregister queues the disconnect behind every event the client already
// dispatched, so those are still handled.
func (m *ClientManager) Unregister(c *Client) {
	select {
	case m.inbound <- inbound{client: c, disconnect: true}:
	case <-m.done:
	}
}

func (m *ClientManager) Dispatch(c *Client, env Envelope) {
	select {
	case m.inbound <- inbound{client: c, envelope: env}:
	case <-m.done:
	}
}

// Connections, Joined and Identities may be read from any goroutine.
// Joined counts joined connections, Identities distinct names.
func (m *ClientManager) Connections() int64 { return m.connections.Load() }
func (m *ClientManager) Joined() int64      { return m.joined.Load() }
func (m *ClientManager) Identities() int64  { return m.identities.Load() }

func (m *ClientManager) handle(c *Client, env Envelope) error {
	if !m.registry.Contains(c) {
		return ErrUnknownConnection
	}
	switch env.Event {
	case EventJoin:
		identity, err := decode[string](env)
		if err != nil {
			return err
		}
		return m.join(c, identity)
	case EventChatMessage:
		msg, err := decodeValid[ChatMessage](m.validate, env)
		if err != nil {
			return err
		}
		return m.route(c, msg)
	case EventTyping, EventStopTyping:
		sig, err := decodeValid[TypingSignal](m.validate, env)
		if err != nil {
			return err
		}
		return m.relaySignal(env.Event, sig)
	case EventMessageRead:
		receipt, err := decodeValid[ReadReceipt](m.validate, env)
		if err != nil {
			return err
		}
		return m.markRead(receipt)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

func (m *ClientManager) connect(c *Client) {
	if !m.registry.Open(c) {
		return
	}
	m.syncCounters()
	c.log.Info("Client connected")
}

// disconnect is idempotent. The outbound queue is closed only after the client
// left the registry, so no fan-out can reach a closed queue.
func (m *ClientManager) disconnect(c *Client) {
	identity, _ := m.registry.Identity(c)
	if !m.registry.Unbind(c) {
		return
	}
	close(c.send)
	m.syncCounters()
	c.log.Info("Client disconnected", "identity", identity)
	m.publishRoster()
}

func (m *ClientManager) join(c *Client, identity string) error {
	if strings.TrimSpace(identity) == "" {
		return ErrEmptyIdentity
	}
	if !m.registry.Bind(c, identity) {
		return ErrUnknownConnection
	}
	m.syncCounters()
	c.log.Info("Client joined", "identity", identity)
	m.publishRoster()
	return nil
}

func (m *ClientManager) closeAll() {
	for _, c := range m.registry.Connections() {
		m.registry.Unbind(c)
		close(c.send)
	}
	m.syncCounters()
}

func (m *ClientManager) syncCounters() {
	m.connections.Store(int64(m.registry.Len()))
	m.joined.Store(int64(m.registry.Joined()))
	m.identities.Store(int64(len(lo.Uniq(m.registry.Roster()))))
}

// emit encodes once and writes the frame to every target.
func (m *ClientManager) emit(targets []*Client, event string, payload any) error {
	frame, err := encode(event, payload)
	if err != nil {
		return err
	}
	for _, c := range targets {
		c.enqueue(frame)
	}
	return nil
}

func decodeValid[T any](validate *validator.Validate, env Envelope) (T, error) {
	v, err := decode[T](env)
	if err != nil {
		return v, err
	}
	if err := validate.Struct(v); err != nil {
		return v, fmt.Errorf("%w: %q: %v", ErrMalformedPayload, env.Event, err)
	}
	return v, nil
}
